package diagram

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/kudsight/pkg/cache"
	"github.com/matzehuels/kudsight/pkg/graph"
	"github.com/matzehuels/kudsight/pkg/store"
)

func sample() *graph.Dataset {
	return &graph.Dataset{
		Nodes: []*graph.Node{
			{ID: "core", Type: graph.TypeModule, Version: "1.2", Classes: []string{"core.Shape", "core.Circle"}},
			{ID: "core.Shape", Type: graph.TypeClass, IsAbstract: true, Methods: []string{"area(): float"}},
			{ID: "core.Circle", Type: graph.TypeClass, Attributes: []string{"radius: float"}, Methods: []string{"area(): float"}},
			{ID: "core.Map", Type: graph.TypeClass, Attributes: []string{"items: map<string, int>"}},
		},
		Links: []graph.Link{
			{Source: graph.RefID("core.Circle"), Target: graph.RefID("core.Shape"), Relation: "extended"},
			{Source: graph.RefID("core.Map"), Target: graph.RefID("core.Circle"), Relation: "depended"},
			{Source: graph.RefID("core.Map"), Target: graph.RefID("gone"), Relation: "depended"},
		},
	}
}

func TestToDOT(t *testing.T) {
	dot := ToDOT(sample(), Options{})

	for _, want := range []string{
		"digraph G {",
		`"core" [label="{core|version: 1.2\lclasses: 2\l}"];`,
		`"core.Shape" [label="{«abstract»\nShape||area(): float\l}"];`,
		`"core.Circle" [label="{Circle|radius: float\l|area(): float\l}"];`,
		`items: map\<string, int\>\l`,
		`"core.Circle" -> "core.Shape" [arrowhead=empty];`,
		`"core.Map" -> "core.Circle" [arrowhead=vee, style=dashed];`,
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT missing %q\n%s", want, dot)
		}
	}
	if strings.Contains(dot, `"gone"`) {
		t.Error("DOT contains link to unknown node")
	}
}

func TestToDOTCompact(t *testing.T) {
	dot := ToDOT(sample(), Options{Compact: true})
	if strings.Contains(dot, "radius") {
		t.Error("compact diagram lists attributes")
	}
}

func TestParseFormat(t *testing.T) {
	if f, err := ParseFormat("SVG"); err != nil || f != SVG {
		t.Errorf("ParseFormat(SVG) = %q, %v", f, err)
	}
	if _, err := ParseFormat("pdf"); err == nil {
		t.Error("expected error")
	}
}

type memCache struct{ m map[string][]byte }

func (c *memCache) Get(_ context.Context, k string) ([]byte, bool, error) {
	v, ok := c.m[k]
	return v, ok, nil
}
func (c *memCache) Set(_ context.Context, k string, v []byte, _ time.Duration) error {
	c.m[k] = v
	return nil
}
func (c *memCache) Delete(_ context.Context, k string) error { delete(c.m, k); return nil }
func (c *memCache) Close() error                             { return nil }

func TestRendererCachesByContent(t *testing.T) {
	calls := 0
	fake := func(_ context.Context, dot string, f Format) ([]byte, error) {
		calls++
		return []byte(string(f) + ":" + dot[:7]), nil
	}
	r := NewRenderer(&memCache{m: map[string][]byte{}}, nil, log.New(io.Discard)).WithRenderFunc(fake)
	ctx := context.Background()

	ds := sample()
	if _, err := r.Render(ctx, ds, Options{}, PNG); err != nil {
		t.Fatal(err)
	}
	moved := sample()
	moved.Nodes[0].PinAt(graph.Vec3{X: 10})
	if _, err := r.Render(ctx, moved, Options{}, PNG); err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Errorf("renders = %d, want 1 (positions do not change the diagram)", calls)
	}

	if _, err := r.Render(ctx, ds, Options{}, SVG); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Render(ctx, ds, Options{Compact: true}, PNG); err != nil {
		t.Fatal(err)
	}
	if calls != 3 {
		t.Errorf("renders = %d, want 3", calls)
	}
}

func TestGenerateWritesAsset(t *testing.T) {
	ctx := context.Background()
	fs, err := store.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	raw, _ := graph.MarshalDataset(sample())
	if err := fs.Write(ctx, "run.json", raw); err != nil {
		t.Fatal(err)
	}
	r := NewRenderer(cache.NewNullCache(), nil, log.New(io.Discard)).
		WithRenderFunc(func(context.Context, string, Format) ([]byte, error) { return []byte("png"), nil })

	asset, err := r.Generate(ctx, fs, "run.json", Options{})
	if err != nil {
		t.Fatal(err)
	}
	if asset != "run.png" {
		t.Errorf("asset = %q", asset)
	}
	if data, err := fs.Read(ctx, "run.png"); err != nil || string(data) != "png" {
		t.Errorf("asset content = %q, %v", data, err)
	}
}

func TestRenderGraphviz(t *testing.T) {
	if testing.Short() {
		t.Skip("graphviz rendering is slow")
	}
	svg, err := Render(context.Background(), ToDOT(sample(), Options{}), SVG)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(svg), "<svg") {
		t.Errorf("output is not SVG: %.80s", svg)
	}
}
