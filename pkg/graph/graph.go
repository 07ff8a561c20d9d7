package graph

import (
	"encoding/json"
	"fmt"
	"io"
)

// =============================================================================
// Dataset Serialization API
// =============================================================================

// UnmarshalDataset decodes dataset JSON. It performs no validation; use
// [Dataset.Normalize] before exposing the dataset.
func UnmarshalDataset(data []byte) (*Dataset, error) {
	var d Dataset
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("unmarshal dataset: %w", err)
	}
	return &d, nil
}

// ReadDataset decodes dataset JSON from r.
func ReadDataset(r io.Reader) (*Dataset, error) {
	var d Dataset
	if err := json.NewDecoder(r).Decode(&d); err != nil {
		return nil, fmt.Errorf("decode dataset: %w", err)
	}
	return &d, nil
}

// MarshalDataset encodes a dataset as indented JSON.
func MarshalDataset(d *Dataset) ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}

// =============================================================================
// Validation
// =============================================================================

// Report counts what [Dataset.Normalize] removed.
type Report struct {
	DuplicateNodes int
	DroppedLinks   int
}

// Normalize enforces dataset invariants in place: nil nodes and nodes without
// an id are removed, only the first node of a duplicated id is kept, and
// invalid links are dropped (see [Dataset.ValidateLinks]).
func (d *Dataset) Normalize() Report {
	var r Report
	seen := make(map[string]struct{}, len(d.Nodes))
	nodes := d.Nodes[:0]
	for _, n := range d.Nodes {
		if n == nil || n.ID == "" {
			r.DuplicateNodes++
			continue
		}
		if _, dup := seen[n.ID]; dup {
			r.DuplicateNodes++
			continue
		}
		seen[n.ID] = struct{}{}
		nodes = append(nodes, n)
	}
	clear(d.Nodes[len(nodes):])
	d.Nodes = nodes
	r.DroppedLinks = d.ValidateLinks()
	return r
}

// ValidateLinks drops every link that has no relation, misses an endpoint, or
// whose endpoint id is not a node of the dataset. It returns the number of
// links dropped.
func (d *Dataset) ValidateLinks() int {
	ids := d.NodeIDs()
	kept := make([]Link, 0, len(d.Links))
	for _, l := range d.Links {
		if validLink(l, ids) {
			kept = append(kept, l)
		}
	}
	dropped := len(d.Links) - len(kept)
	d.Links = kept
	return dropped
}

func validLink(l Link, ids map[string]struct{}) bool {
	if l.Relation == "" || l.Source.IsZero() || l.Target.IsZero() {
		return false
	}
	if _, ok := ids[l.SourceID()]; !ok {
		return false
	}
	_, ok := ids[l.TargetID()]
	return ok
}

// Resolve replaces raw id endpoints with references to the dataset's nodes,
// the shape a render layer produces after first drawing the graph.
func (d *Dataset) Resolve() {
	byID := make(map[string]*Node, len(d.Nodes))
	for _, n := range d.Nodes {
		byID[n.ID] = n
	}
	for i := range d.Links {
		if n, ok := byID[d.Links[i].SourceID()]; ok {
			d.Links[i].Source = RefNode(n)
		}
		if n, ok := byID[d.Links[i].TargetID()]; ok {
			d.Links[i].Target = RefNode(n)
		}
	}
}

// =============================================================================
// Focus
// =============================================================================

// Filter derives a view holding exactly the nodes whose id is in ids and the
// links whose both endpoints are in ids. Nodes are shared with d, so position
// edits made through the view land in d.
func (d *Dataset) Filter(ids map[string]struct{}) *Dataset {
	out := &Dataset{AnalysisSourcePath: d.AnalysisSourcePath}
	for _, n := range d.Nodes {
		if _, ok := ids[n.ID]; ok {
			out.Nodes = append(out.Nodes, n)
		}
	}
	for _, l := range d.Links {
		_, src := ids[EndpointID(l.Source)]
		_, dst := ids[EndpointID(l.Target)]
		if src && dst {
			out.Links = append(out.Links, l)
		}
	}
	return out
}
