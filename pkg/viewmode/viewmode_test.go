package viewmode

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/kudsight/pkg/loop"
)

type fakeProber struct {
	mu     sync.Mutex
	assets map[string]bool
	calls  int
	err    error
}

func (p *fakeProber) AssetExists(_ context.Context, name string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	return p.assets[name], p.err
}

// fakeLoader completes loads synchronously into the resident.
type fakeLoader struct {
	res   *fakeResident
	loads []string
}

func (l *fakeLoader) Load(_ context.Context, name string) {
	l.loads = append(l.loads, name)
	l.res.name = name
}
func (l *fakeLoader) Loading() bool     { return false }
func (l *fakeLoader) Requested() string { return l.res.name }

type fakeResident struct{ name string }

func (r *fakeResident) Name() string { return r.name }
func (r *fakeResident) Loaded() bool { return r.name != "" }

func setup(assets map[string]bool) (*Controller, *loop.Loop, *fakeProber, *fakeLoader, *[]Changed) {
	l := loop.New(loop.WithLogger(log.New(io.Discard)))
	prober := &fakeProber{assets: assets}
	res := &fakeResident{}
	loader := &fakeLoader{res: res}
	c := New(l, prober, loader, res)
	var events []Changed
	c.Subscribe(func(e Changed) { events = append(events, e) })
	return c, l, prober, loader, &events
}

func TestGraphDiagramGraphDoesNotRefetch(t *testing.T) {
	ctx := context.Background()
	c, l, prober, loader, events := setup(map[string]bool{"run.png": true})

	c.Enter(ctx, Graph, "run.json")
	l.Settle()
	c.Enter(ctx, Diagram, "run.json")
	l.Settle()
	c.Enter(ctx, Graph, "run.json")
	l.Settle()

	if len(loader.loads) != 1 {
		t.Errorf("dataset loads = %v, want exactly one", loader.loads)
	}
	last := (*events)[len(*events)-1]
	if last.Mode != Graph || !last.Rerender {
		t.Errorf("last event = %+v, want graph rerender", last)
	}

	// Back to diagram: the probe result is reused.
	c.Enter(ctx, Diagram, "run.json")
	l.Settle()
	if prober.calls != 1 {
		t.Errorf("probe calls = %d, want 1", prober.calls)
	}
	if st := c.State(); !st.Available || st.Asset != "run.png" {
		t.Errorf("state = %+v", st)
	}
}

func TestSameModeAndFileIsNoop(t *testing.T) {
	ctx := context.Background()
	c, l, prober, loader, events := setup(map[string]bool{})

	c.Enter(ctx, Graph, "run.json")
	if c.Enter(ctx, Graph, "run.json") {
		t.Error("re-entering resident graph reported a change")
	}
	c.Enter(ctx, Diagram, "run.json")
	if c.Enter(ctx, Diagram, "run.json") {
		t.Error("re-entering diagram while probing reported a change")
	}
	l.Settle()
	if c.Enter(ctx, Diagram, "run.json") {
		t.Error("re-entering probed diagram reported a change")
	}

	if len(loader.loads) != 1 || prober.calls != 1 {
		t.Errorf("loads = %d, probes = %d", len(loader.loads), prober.calls)
	}
	if n := len(*events); n != 3 {
		t.Errorf("events = %d, want 3 (graph, probing, result)", n)
	}
}

func TestMissingDiagramIsPlaceholder(t *testing.T) {
	ctx := context.Background()
	c, l, _, _, events := setup(map[string]bool{})

	c.Enter(ctx, Diagram, "run.json")
	if !c.State().Probing {
		t.Error("expected probing state before the probe completes")
	}
	l.Settle()

	st := c.State()
	if st.Mode != Diagram || st.Available || st.Probing || st.Asset != "run.png" {
		t.Errorf("state = %+v, want unavailable placeholder", st)
	}
	if len(*events) != 2 {
		t.Errorf("events = %d, want 2", len(*events))
	}
}

func TestProbeErrorIsPlaceholder(t *testing.T) {
	ctx := context.Background()
	c, l, prober, _, _ := setup(map[string]bool{"run.png": true})
	prober.err = errors.New("connection refused")

	c.Enter(ctx, Diagram, "run.json")
	l.Settle()

	if c.State().Available {
		t.Error("probe error reported the asset as available")
	}
}

func TestInvalidateReprobes(t *testing.T) {
	ctx := context.Background()
	c, l, prober, _, _ := setup(map[string]bool{})

	c.Enter(ctx, Diagram, "run.json")
	l.Settle()
	prober.mu.Lock()
	prober.assets["run.png"] = true
	prober.mu.Unlock()

	c.Invalidate()
	c.Refresh(ctx)
	l.Settle()

	if prober.calls != 2 {
		t.Errorf("probe calls = %d, want 2", prober.calls)
	}
	if !c.State().Available {
		t.Error("fresh asset not picked up after Invalidate")
	}
}

func TestStaleProbeIgnored(t *testing.T) {
	ctx := context.Background()
	c, l, _, _, _ := setup(map[string]bool{"a.png": true})

	c.Enter(ctx, Diagram, "a.json")
	c.Enter(ctx, Diagram, "b.json")
	l.Settle()

	st := c.State()
	if st.File != "b.json" || st.Available {
		t.Errorf("state = %+v, want b.json unavailable", st)
	}
}

func TestParseMode(t *testing.T) {
	if m, err := ParseMode("diagram"); err != nil || m != Diagram {
		t.Errorf("ParseMode(diagram) = %q, %v", m, err)
	}
	if _, err := ParseMode("wireframe"); err == nil {
		t.Error("expected error")
	}
}
