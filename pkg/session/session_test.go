package session

import (
	"context"
	stderrors "errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"

	"github.com/matzehuels/kudsight/pkg/backend"
	"github.com/matzehuels/kudsight/pkg/graph"
	"github.com/matzehuels/kudsight/pkg/loop"
	"github.com/matzehuels/kudsight/pkg/notify"
	"github.com/matzehuels/kudsight/pkg/persist"
	"github.com/matzehuels/kudsight/pkg/render"
	"github.com/matzehuels/kudsight/pkg/store"
	"github.com/matzehuels/kudsight/pkg/theme"
	"github.com/matzehuels/kudsight/pkg/viewmode"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const dataset = `{
  "nodes": [
    {"id":"m","type":"module"},
    {"id":"A","type":"class"},
    {"id":"B","type":"class"},
    {"id":"C","type":"class"}
  ],
  "links": [
    {"source":"A","target":"B","relation":"uses"},
    {"source":"A","target":"C","relation":"uses"},
    {"source":"B","target":"C","relation":"uses"}
  ]
}`

// countingBackend counts dataset fetches.
type countingBackend struct {
	backend.Backend
	fetches atomic.Int32
}

func (b *countingBackend) FetchDataset(ctx context.Context, name string) ([]byte, error) {
	b.fetches.Add(1)
	return b.Backend.FetchDataset(ctx, name)
}

type fixture struct {
	s       *Session
	clock   *loop.ManualClock
	fs      *store.FileStore
	be      *countingBackend
	surface *render.Memory
	notices []notify.Notification
}

func newFixture(t *testing.T, analyzer backend.Analyzer, files ...string) *fixture {
	t.Helper()
	fs, err := store.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	for _, f := range files {
		if err := fs.Write(ctx, f, []byte(dataset)); err != nil {
			t.Fatal(err)
		}
	}
	f := &fixture{
		clock:   loop.NewManualClock(time.Unix(0, 0)),
		fs:      fs,
		be:      &countingBackend{Backend: backend.NewLocal(fs, analyzer)},
		surface: render.NewMemory(),
	}
	f.s = New(Options{
		Backend:     f.be,
		Logger:      log.New(io.Discard),
		Clock:       f.clock,
		FlushPolicy: persist.CaptureAtSchedule,
		DetectTheme: func() (theme.Theme, bool) { return theme.Dark, true },
	})
	f.s.Notices().Subscribe(func(n notify.Notification) { f.notices = append(f.notices, n) })
	f.s.Init(ctx)
	f.s.AttachSurface(f.surface)
	return f
}

func (f *fixture) settle() { f.s.Loop().Settle() }

func TestRefreshListLoadsNewest(t *testing.T) {
	f := newFixture(t, nil, "20240101.json", "20240301.json")
	f.s.RefreshList(context.Background())
	f.settle()

	if diff := cmp.Diff([]string{"20240301.json", "20240101.json"}, f.s.Datasets()); diff != "" {
		t.Errorf("datasets (-want +got):\n%s", diff)
	}
	if got := f.s.State().Name(); got != "20240301.json" {
		t.Errorf("loaded %q, want newest", got)
	}
	if f.surface.Dataset() != f.s.State().View() {
		t.Error("surface does not show the view")
	}
	if n := len(f.s.Selection().Items()); n != 1 {
		t.Errorf("module items = %d, want 1", n)
	}
}

func TestModeRoundTripDoesNotRefetch(t *testing.T) {
	f := newFixture(t, nil, "run.json")
	ctx := context.Background()
	f.s.Load(ctx, "run.json")
	f.settle()

	f.s.SetMode(ctx, viewmode.Diagram)
	f.settle()
	if st := f.s.Views().State(); st.Available || st.Asset != "run.png" {
		t.Errorf("diagram state = %+v, want placeholder", st)
	}
	f.surface.ResetOps()
	f.s.SetMode(ctx, viewmode.Graph)
	f.settle()

	if n := f.be.fetches.Load(); n != 1 {
		t.Errorf("dataset fetches = %d, want 1", n)
	}
	want := []render.Op{render.OpClear, render.OpApplyPalette, render.OpLoad, render.OpMoveCamera}
	if diff := cmp.Diff(want, f.surface.Ops()); diff != "" {
		t.Errorf("rerender ops (-want +got):\n%s", diff)
	}
}

func TestGraphReentryShowsLoadFinishedInDiagramMode(t *testing.T) {
	f := newFixture(t, nil, "a.json", "b.json")
	ctx := context.Background()
	f.s.Load(ctx, "a.json")
	f.settle()
	shownA := f.surface.Dataset()

	f.s.Load(ctx, "b.json")
	f.surface.SetActive(false)
	f.s.SetMode(ctx, viewmode.Diagram)
	f.settle()
	if f.s.State().Name() != "b.json" {
		t.Fatalf("state = %s, want b.json", f.s.State().Name())
	}
	if f.surface.Dataset() != shownA {
		t.Fatal("inactive surface was redrawn")
	}

	f.surface.MoveCamera(render.DefaultCamera().Orbit(0.5, 0), 0)
	f.surface.SetActive(true)
	f.s.SetMode(ctx, viewmode.Graph)
	f.settle()

	if f.surface.Dataset() != f.s.State().View() {
		t.Error("surface shows the dataset from before the diagram round trip")
	}
	if f.surface.Camera() != render.DefaultCamera() {
		t.Errorf("camera = %+v, want default for a new dataset", f.surface.Camera())
	}

	f.surface.MoveCamera(render.DefaultCamera().Orbit(0.5, 0), 0)
	cam := f.surface.Camera()
	f.surface.SetActive(false)
	f.s.SetMode(ctx, viewmode.Diagram)
	f.settle()
	f.surface.SetActive(true)
	f.s.SetMode(ctx, viewmode.Graph)
	f.settle()
	if f.surface.Camera() != cam {
		t.Error("camera reset on a round trip without a new dataset")
	}
}

func TestInvalidLinksAreDroppedQuietly(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	bad := `{"nodes":[{"id":"A","type":"class"}],"links":[{"source":"A","target":"gone","relation":"uses"}]}`
	if err := f.fs.Write(ctx, "bad.json", []byte(bad)); err != nil {
		t.Fatal(err)
	}
	f.s.Load(ctx, "bad.json")
	f.settle()

	if f.s.State().Name() != "bad.json" || len(f.s.State().View().Links) != 0 {
		t.Fatalf("state = %s with %d links", f.s.State().Name(), len(f.s.State().View().Links))
	}
	if len(f.notices) != 0 {
		t.Errorf("notices = %+v, want none for dropped links", f.notices)
	}
}

func TestThemeToggleKeepsCamera(t *testing.T) {
	f := newFixture(t, nil, "run.json")
	ctx := context.Background()
	f.s.Load(ctx, "run.json")
	f.settle()

	cam := render.DefaultCamera().Orbit(1, 0.3)
	f.surface.MoveCamera(cam, 0)
	if _, err := f.s.ToggleTheme(); err != nil {
		t.Fatal(err)
	}
	f.settle()

	if f.surface.Camera() != cam {
		t.Errorf("camera = %+v, want %+v", f.surface.Camera(), cam)
	}
	if f.surface.Palette() != theme.PaletteFor(theme.Light) {
		t.Error("light palette not applied")
	}
	if f.surface.LastTransition != render.DefaultCameraTransition {
		t.Errorf("transition = %v", f.surface.LastTransition)
	}
}

func TestFocusAndReset(t *testing.T) {
	f := newFixture(t, nil, "run.json")
	f.s.Load(context.Background(), "run.json")
	f.settle()

	f.s.Selection().Add("A")
	f.s.Selection().Add("C")
	if err := f.s.State().FocusSelected(); err != nil {
		t.Fatal(err)
	}
	view := f.surface.Dataset()
	if len(view.Nodes) != 2 || len(view.Links) != 1 {
		t.Errorf("focused view = %d nodes, %d links", len(view.Nodes), len(view.Links))
	}

	if err := f.s.State().ResetToFull(); err != nil {
		t.Fatal(err)
	}
	if f.surface.Dataset() != f.s.State().Canonical() {
		t.Error("reset did not restore the canonical dataset")
	}
}

func TestMoveNodePersistsLayout(t *testing.T) {
	f := newFixture(t, nil, "run.json")
	ctx := context.Background()
	f.s.Load(ctx, "run.json")
	f.settle()

	if err := f.s.MoveNode("A", graph.Vec3{X: 5}); err != nil {
		t.Fatal(err)
	}
	f.clock.Advance(persist.DefaultDelay)
	f.settle()

	data, err := f.fs.Read(ctx, "run.pos.json")
	if err != nil {
		t.Fatalf("overlay not written: %v", err)
	}
	o, err := graph.UnmarshalOverlay(data)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(graph.Overlay{"A": {X: 5}}, o); diff != "" {
		t.Errorf("overlay (-want +got):\n%s", diff)
	}
}

func TestAnalyzeClearsBusy(t *testing.T) {
	boom := stderrors.New("analyzer crashed")
	var fs *store.FileStore
	fail := true
	f := newFixture(t, backend.AnalyzerFunc(func(ctx context.Context, folder string) error {
		if fail {
			return boom
		}
		return fs.Write(ctx, "20250101.json", []byte(dataset))
	}))
	fs = f.fs
	ctx := context.Background()

	if err := f.s.Analyze(ctx, "/src"); err != nil {
		t.Fatal(err)
	}
	if !f.s.Busy() {
		t.Error("Busy() = false while analyzing")
	}
	if err := f.s.Analyze(ctx, "/src"); !stderrors.Is(err, ErrBusy) {
		t.Errorf("second Analyze = %v, want ErrBusy", err)
	}
	f.settle()
	if f.s.Busy() {
		t.Error("Busy() not cleared after failure")
	}
	last := f.notices[len(f.notices)-1]
	if last.Level != notify.Error {
		t.Errorf("last notice = %+v, want error", last)
	}

	fail = false
	if err := f.s.Analyze(ctx, "/src"); err != nil {
		t.Fatal(err)
	}
	f.settle()
	if f.s.Busy() {
		t.Error("Busy() not cleared after success")
	}
	if got := f.s.State().Name(); got != "20250101.json" {
		t.Errorf("loaded %q after analysis", got)
	}
}

func TestLoadFailureNotifies(t *testing.T) {
	f := newFixture(t, nil)
	f.s.Load(context.Background(), "missing.json")
	f.settle()

	if len(f.notices) != 1 || f.notices[0].Level != notify.Error {
		t.Fatalf("notices = %+v", f.notices)
	}
	if f.s.Loader().Loading() {
		t.Error("Loading() not cleared after failure")
	}
}

func TestSubscribersAreEnumerable(t *testing.T) {
	f := newFixture(t, nil)
	subs := f.s.Subscribers()
	for _, bus := range []string{"theme", "view", "mode", "ready", "failed", "notices"} {
		if len(subs[bus]) == 0 {
			t.Errorf("bus %q has no subscribers", bus)
		}
	}
	f.s.Close()
	if n := len(f.s.Subscribers()["theme"]); n != 0 {
		t.Errorf("theme subscribers after Close = %d", n)
	}
}
