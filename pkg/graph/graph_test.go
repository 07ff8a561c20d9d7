package graph

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func linkTriples(links []Link) [][3]string {
	out := make([][3]string, 0, len(links))
	for _, l := range links {
		out = append(out, [3]string{l.SourceID(), l.TargetID(), l.Relation})
	}
	return out
}

func nodeIDs(nodes []*Node) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.ID)
	}
	return out
}

func TestEndpointJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"String", `"A"`, "A"},
		{"Object", `{"id": "B", "type": "class"}`, "B"},
		{"Null", `null`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var e Endpoint
			if err := json.Unmarshal([]byte(tt.in), &e); err != nil {
				t.Fatalf("Unmarshal: %v", err)
			}
			if got := EndpointID(e); got != tt.want {
				t.Errorf("EndpointID = %q, want %q", got, tt.want)
			}
		})
	}

	t.Run("MarshalResolved", func(t *testing.T) {
		data, err := json.Marshal(Link{Source: RefNode(&Node{ID: "A"}), Target: RefID("B"), Relation: "uses"})
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		want := `{"source":"A","target":"B","relation":"uses"}`
		if string(data) != want {
			t.Errorf("Marshal = %s, want %s", data, want)
		}
	})

	t.Run("InvalidNumber", func(t *testing.T) {
		var e Endpoint
		if err := json.Unmarshal([]byte(`42`), &e); err == nil {
			t.Error("expected error for numeric endpoint")
		}
	})
}

func TestNormalizeDropsDanglingLinks(t *testing.T) {
	ds, err := UnmarshalDataset([]byte(`{
		"nodes": [{"id":"A","type":"class"},{"id":"B","type":"class"},{"id":"C","type":"module"}],
		"links": [
			{"source":"A","target":"B","relation":"r1"},
			{"source":"A","target":"D","relation":"r2"}
		]
	}`))
	if err != nil {
		t.Fatal(err)
	}
	rep := ds.Normalize()

	want := [][3]string{{"A", "B", "r1"}}
	if diff := cmp.Diff(want, linkTriples(ds.Links)); diff != "" {
		t.Errorf("links mismatch (-want +got):\n%s", diff)
	}
	if rep.DroppedLinks != 1 {
		t.Errorf("DroppedLinks = %d, want 1", rep.DroppedLinks)
	}
}

func TestValidateLinks(t *testing.T) {
	tests := []struct {
		name string
		link Link
		keep bool
	}{
		{"Valid", Link{Source: RefID("A"), Target: RefID("B"), Relation: "uses"}, true},
		{"ResolvedValid", Link{Source: RefNode(&Node{ID: "A"}), Target: RefID("B"), Relation: "uses"}, true},
		{"NoRelation", Link{Source: RefID("A"), Target: RefID("B")}, false},
		{"NoSource", Link{Target: RefID("B"), Relation: "uses"}, false},
		{"NoTarget", Link{Source: RefID("A"), Relation: "uses"}, false},
		{"UnknownTarget", Link{Source: RefID("A"), Target: RefID("Z"), Relation: "uses"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds := &Dataset{
				Nodes: []*Node{{ID: "A"}, {ID: "B"}},
				Links: []Link{tt.link},
			}
			dropped := ds.ValidateLinks()
			if got := len(ds.Links) == 1; got != tt.keep {
				t.Errorf("kept = %v, want %v", got, tt.keep)
			}
			if tt.keep && dropped != 0 || !tt.keep && dropped != 1 {
				t.Errorf("dropped = %d", dropped)
			}
		})
	}
}

func TestNormalizeKeepsFirstDuplicate(t *testing.T) {
	ds := &Dataset{Nodes: []*Node{
		{ID: "A", Package: "first"},
		{ID: "B"},
		{ID: "A", Package: "second"},
		nil,
	}}
	rep := ds.Normalize()

	if diff := cmp.Diff([]string{"A", "B"}, nodeIDs(ds.Nodes)); diff != "" {
		t.Errorf("nodes mismatch (-want +got):\n%s", diff)
	}
	if ds.Nodes[0].Package != "first" {
		t.Errorf("kept %q, want first occurrence", ds.Nodes[0].Package)
	}
	if rep.DuplicateNodes != 2 {
		t.Errorf("DuplicateNodes = %d, want 2", rep.DuplicateNodes)
	}
}

func TestApplyOverlay(t *testing.T) {
	ds := &Dataset{Nodes: []*Node{{ID: "X"}, {ID: "Y"}}}
	n := ds.ApplyOverlay(Overlay{"X": {X: 1, Y: 2, Z: 3}, "missing": {X: 9}})

	if n != 1 {
		t.Errorf("applied = %d, want 1", n)
	}
	x, _ := ds.Node("X")
	want := Vec3{X: 1, Y: 2, Z: 3}
	if x.Pos == nil || *x.Pos != want {
		t.Errorf("X.Pos = %v, want %v", x.Pos, want)
	}
	if x.Pin == nil || *x.Pin != want {
		t.Errorf("X.Pin = %v, want %v", x.Pin, want)
	}
	if x.Pos == x.Pin {
		t.Error("Pos and Pin must not alias")
	}
	y, _ := ds.Node("Y")
	if y.Pos != nil || y.Pin != nil {
		t.Errorf("Y touched: pos=%v pin=%v", y.Pos, y.Pin)
	}
}

func TestPositions(t *testing.T) {
	ds := &Dataset{Nodes: []*Node{
		{ID: "free", Pos: Vec3{X: 1}.Ptr()},
		{ID: "pinned", Pos: Vec3{X: 5}.Ptr(), Pin: Vec3{X: 2}.Ptr()},
		{ID: "unknown"},
	}}
	want := Overlay{"free": {X: 1}, "pinned": {X: 2}}
	if diff := cmp.Diff(want, ds.Positions()); diff != "" {
		t.Errorf("Positions mismatch (-want +got):\n%s", diff)
	}
}

func TestFilter(t *testing.T) {
	ds := &Dataset{
		Nodes: []*Node{{ID: "A"}, {ID: "B"}, {ID: "C"}},
		Links: []Link{
			{Source: RefID("A"), Target: RefID("B"), Relation: "r"},
			{Source: RefID("A"), Target: RefID("C"), Relation: "r"},
			{Source: RefID("B"), Target: RefID("C"), Relation: "r"},
		},
	}
	ds.Resolve()
	view := ds.Filter(map[string]struct{}{"A": {}, "C": {}})

	if diff := cmp.Diff([]string{"A", "C"}, nodeIDs(view.Nodes)); diff != "" {
		t.Errorf("nodes mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([][3]string{{"A", "C", "r"}}, linkTriples(view.Links)); diff != "" {
		t.Errorf("links mismatch (-want +got):\n%s", diff)
	}
	if view.Nodes[0] != ds.Nodes[0] {
		t.Error("filtered view must share nodes with the canonical dataset")
	}
	if len(ds.Nodes) != 3 || len(ds.Links) != 3 {
		t.Error("Filter mutated the canonical dataset")
	}
}

func TestResolve(t *testing.T) {
	ds := &Dataset{
		Nodes: []*Node{{ID: "A"}, {ID: "B"}},
		Links: []Link{{Source: RefID("A"), Target: RefID("B"), Relation: "r"}},
	}
	ds.Resolve()
	if ds.Links[0].Source.Node() != ds.Nodes[0] || ds.Links[0].Target.Node() != ds.Nodes[1] {
		t.Error("endpoints not resolved to dataset nodes")
	}
}

func TestClone(t *testing.T) {
	ds := &Dataset{
		Nodes: []*Node{{ID: "A", Methods: []string{"run"}, Pin: Vec3{X: 1}.Ptr()}, {ID: "B"}},
		Links: []Link{{Source: RefID("A"), Target: RefID("B"), Relation: "r"}},
	}
	ds.Resolve()
	c := ds.Clone()

	c.Nodes[0].Methods[0] = "changed"
	c.Nodes[0].Pin.X = 99
	if ds.Nodes[0].Methods[0] != "run" || ds.Nodes[0].Pin.X != 1 {
		t.Error("Clone shares mutable state with the original")
	}
	if c.Links[0].Source.Node() != c.Nodes[0] {
		t.Error("cloned link does not reference cloned node")
	}
}

func TestHashIgnoresPositionsAndOrder(t *testing.T) {
	a := &Dataset{
		Nodes: []*Node{{ID: "A"}, {ID: "B"}},
		Links: []Link{{Source: RefID("A"), Target: RefID("B"), Relation: "r"}},
	}
	b := &Dataset{
		Nodes: []*Node{{ID: "B"}, {ID: "A", Pos: Vec3{X: 4}.Ptr()}},
		Links: []Link{{Source: RefID("A"), Target: RefID("B"), Relation: "r"}},
	}
	if Hash(a) != Hash(b) {
		t.Error("hash changed with node order or positions")
	}
	b.Links[0].Relation = "other"
	if Hash(a) == Hash(b) {
		t.Error("hash ignored relation change")
	}
}

func TestNames(t *testing.T) {
	tests := []struct {
		name    string
		overlay string
		diagram string
		dataset bool
	}{
		{"run-1.json", "run-1.pos.json", "run-1.png", true},
		{"run-1.pos.json", "run-1.pos.pos.json", "run-1.pos.png", false},
		{"notes.txt", "notes.txt.pos.json", "notes.txt.png", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := OverlayName(tt.name); got != tt.overlay {
				t.Errorf("OverlayName = %q, want %q", got, tt.overlay)
			}
			if got := DiagramName(tt.name); got != tt.diagram {
				t.Errorf("DiagramName = %q, want %q", got, tt.diagram)
			}
			if got := IsDatasetName(tt.name); got != tt.dataset {
				t.Errorf("IsDatasetName = %v, want %v", got, tt.dataset)
			}
		})
	}
}

func TestReadDatasetRejectsGarbage(t *testing.T) {
	if _, err := ReadDataset(strings.NewReader("{nodes")); err == nil {
		t.Error("expected decode error")
	}
}
