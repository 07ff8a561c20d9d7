package graph

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// =============================================================================
// Node Types
// =============================================================================

// NodeType is the category of a node.
type NodeType string

// Node categories produced by the analyzer.
const (
	TypeModule NodeType = "module"
	TypeClass  NodeType = "class"
)

// Valid reports whether t is a known node category.
func (t NodeType) Valid() bool {
	return t == TypeModule || t == TypeClass
}

// =============================================================================
// Vec3 - Positions
// =============================================================================

// Vec3 is a point in the 3D layout space.
type Vec3 struct {
	X float64 `json:"x" bson:"x"`
	Y float64 `json:"y" bson:"y"`
	Z float64 `json:"z" bson:"z"`
}

// Ptr returns a pointer to a copy of v.
func (v Vec3) Ptr() *Vec3 { return &v }

// =============================================================================
// Node
// =============================================================================

// Node is a module or class in the analyzed code base.
//
// Pos is the free position the layout simulation may move. Pin is the pinned
// position that holds the node still; a nil Pin leaves the node free. Neither
// is part of the dataset file: positions travel in overlays.
type Node struct {
	ID          string   `json:"id" bson:"id"`
	Type        NodeType `json:"type" bson:"type"`
	Package     string   `json:"package,omitempty" bson:"package,omitempty"`
	Module      string   `json:"module,omitempty" bson:"module,omitempty"`
	Version     string   `json:"version,omitempty" bson:"version,omitempty"`
	LinesOfCode int      `json:"linesOfCode,omitempty" bson:"lines_of_code,omitempty"`
	Attributes  []string `json:"attributes,omitempty" bson:"attributes,omitempty"`
	Methods     []string `json:"methods,omitempty" bson:"methods,omitempty"`
	Classes     []string `json:"classes,omitempty" bson:"classes,omitempty"`
	IsAbstract  bool     `json:"isAbstract,omitempty" bson:"is_abstract,omitempty"`
	IsFinal     bool     `json:"isFinal,omitempty" bson:"is_final,omitempty"`
	IsStatic    bool     `json:"isStatic,omitempty" bson:"is_static,omitempty"`
	Complexity  string   `json:"complexity,omitempty" bson:"complexity,omitempty"`

	Pos *Vec3 `json:"-" bson:"-"`
	Pin *Vec3 `json:"-" bson:"-"`
}

// Pinned reports whether the node is held at a fixed position.
func (n *Node) Pinned() bool { return n.Pin != nil }

// PinAt sets both the free and the pinned position to p.
func (n *Node) PinAt(p Vec3) {
	n.Pos = p.Ptr()
	n.Pin = p.Ptr()
}

// clone returns a deep copy of n.
func (n *Node) clone() *Node {
	c := *n
	c.Attributes = cloneStrings(n.Attributes)
	c.Methods = cloneStrings(n.Methods)
	c.Classes = cloneStrings(n.Classes)
	if n.Pos != nil {
		c.Pos = n.Pos.Ptr()
	}
	if n.Pin != nil {
		c.Pin = n.Pin.Ptr()
	}
	return &c
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s...)
}

// =============================================================================
// Endpoint - Dual-Shaped Link End
// =============================================================================

// Endpoint is one end of a link: a raw node id, or a resolved node reference.
// The zero value is an empty endpoint.
type Endpoint struct {
	id   string
	node *Node
}

// RefID returns an endpoint holding a raw node id.
func RefID(id string) Endpoint { return Endpoint{id: id} }

// RefNode returns an endpoint referencing a resolved node.
func RefNode(n *Node) Endpoint { return Endpoint{node: n} }

// EndpointID returns the node id an endpoint refers to, whatever its shape.
// It is the only place endpoint shapes are inspected.
func EndpointID(e Endpoint) string {
	if e.node != nil {
		return e.node.ID
	}
	return e.id
}

// Node returns the referenced node, or nil for a raw id endpoint.
func (e Endpoint) Node() *Node { return e.node }

// IsZero reports whether the endpoint refers to nothing.
func (e Endpoint) IsZero() bool { return EndpointID(e) == "" }

// String returns the endpoint id.
func (e Endpoint) String() string { return EndpointID(e) }

// MarshalJSON always writes the endpoint as its id string.
func (e Endpoint) MarshalJSON() ([]byte, error) {
	return json.Marshal(EndpointID(e))
}

// UnmarshalJSON accepts a string id, an object with an "id" field, or null.
func (e *Endpoint) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*e = Endpoint{}
		return nil
	}
	if len(data) > 0 && data[0] == '{' {
		var obj struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return fmt.Errorf("decode endpoint object: %w", err)
		}
		*e = RefID(obj.ID)
		return nil
	}
	var id string
	if err := json.Unmarshal(data, &id); err != nil {
		return fmt.Errorf("decode endpoint: %w", err)
	}
	*e = RefID(id)
	return nil
}

// =============================================================================
// Link
// =============================================================================

// Link is a typed relation between two nodes.
type Link struct {
	Source   Endpoint `json:"source"`
	Target   Endpoint `json:"target"`
	Relation string   `json:"relation"`
}

// SourceID returns the id of the link source.
func (l Link) SourceID() string { return EndpointID(l.Source) }

// TargetID returns the id of the link target.
func (l Link) TargetID() string { return EndpointID(l.Target) }

// =============================================================================
// Dataset
// =============================================================================

// Dataset is the full set of nodes and links produced by one analysis run.
type Dataset struct {
	Nodes              []*Node `json:"nodes"`
	Links              []Link  `json:"links"`
	AnalysisSourcePath string  `json:"analysisSourcePath,omitempty"`
}

// Node returns the node with the given id.
func (d *Dataset) Node(id string) (*Node, bool) {
	if d == nil {
		return nil, false
	}
	for _, n := range d.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return nil, false
}

// NodeIDs returns the set of node ids in the dataset.
func (d *Dataset) NodeIDs() map[string]struct{} {
	ids := make(map[string]struct{}, len(d.Nodes))
	for _, n := range d.Nodes {
		ids[n.ID] = struct{}{}
	}
	return ids
}

// NodesOfType returns the nodes of category t in dataset order.
func (d *Dataset) NodesOfType(t NodeType) []*Node {
	var out []*Node
	for _, n := range d.Nodes {
		if n.Type == t {
			out = append(out, n)
		}
	}
	return out
}

// Clone returns a deep copy of d. Link endpoints in the copy reference the
// copied nodes when the original referenced nodes.
func (d *Dataset) Clone() *Dataset {
	if d == nil {
		return nil
	}
	out := &Dataset{
		Nodes:              make([]*Node, len(d.Nodes)),
		Links:              make([]Link, len(d.Links)),
		AnalysisSourcePath: d.AnalysisSourcePath,
	}
	byID := make(map[string]*Node, len(d.Nodes))
	for i, n := range d.Nodes {
		c := n.clone()
		out.Nodes[i] = c
		byID[c.ID] = c
	}
	for i, l := range d.Links {
		out.Links[i] = Link{
			Source:   remap(l.Source, byID),
			Target:   remap(l.Target, byID),
			Relation: l.Relation,
		}
	}
	return out
}

func remap(e Endpoint, byID map[string]*Node) Endpoint {
	if e.node == nil {
		return e
	}
	if n, ok := byID[e.node.ID]; ok {
		return RefNode(n)
	}
	return RefID(e.node.ID)
}
