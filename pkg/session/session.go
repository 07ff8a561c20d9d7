// Package session assembles one interactive kudsight session.
//
// A [Session] owns the loop and every loop-confined component: the
// notification center, the selection model, the graph state, the loader,
// the layout persister, the theme coordinator and the view-mode controller.
// It subscribes them to each other and to the attached render surface. A
// session is created once and passed by reference; there is no global
// surface.
//
// # Threading
//
// All methods except [Session.Loop] must be called on the session loop.
// Front ends post into it:
//
//	s := session.New(session.Options{Backend: b, Prefs: p})
//	go s.Loop().Run(ctx)
//	s.Loop().Call(ctx, func() { s.Init(ctx); s.RefreshList(ctx) })
package session

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/kudsight/pkg/backend"
	"github.com/matzehuels/kudsight/pkg/event"
	"github.com/matzehuels/kudsight/pkg/graph"
	"github.com/matzehuels/kudsight/pkg/graphstate"
	"github.com/matzehuels/kudsight/pkg/loader"
	"github.com/matzehuels/kudsight/pkg/loop"
	"github.com/matzehuels/kudsight/pkg/notify"
	"github.com/matzehuels/kudsight/pkg/persist"
	"github.com/matzehuels/kudsight/pkg/prefs"
	"github.com/matzehuels/kudsight/pkg/render"
	"github.com/matzehuels/kudsight/pkg/selection"
	"github.com/matzehuels/kudsight/pkg/theme"
	"github.com/matzehuels/kudsight/pkg/viewmode"
)

// ErrBusy is returned by Analyze while an analysis is running.
var ErrBusy = stderrors.New("analysis already running")

// Options configures a Session.
type Options struct {
	Backend backend.Backend

	// Prefs stores the theme preference. Nil keeps it in memory.
	Prefs prefs.Store

	Logger *log.Logger

	// Clock drives timers. Nil uses the real clock.
	Clock loop.Clock

	DebounceDelay    time.Duration
	FlushPolicy      persist.Policy
	ThemeTransition  time.Duration
	CameraTransition time.Duration

	// DetectTheme reports the platform theme. Nil asks the terminal.
	DetectTheme func() (theme.Theme, bool)
}

// Status is published when the dataset list or the busy flag changes.
type Status struct {
	Datasets []string
	Busy     bool
}

// Session is one interactive session.
type Session struct {
	loop    *loop.Loop
	backend backend.Backend
	logger  *log.Logger

	notices   *notify.Center
	selection *selection.Model
	state     *graphstate.State
	loader    *loader.Loader
	persister *persist.Persister
	theme     *theme.Coordinator
	views     *viewmode.Controller

	surface          render.Surface
	cameraTransition time.Duration

	// missed records view changes published while the surface was inactive;
	// missedLoad is set when one of them was a new dataset.
	missed, missedLoad bool

	datasets []string
	busy     bool
	listSeq  uint64
	status   event.Bus[Status]

	cancels []func()
}

// New builds a session and wires its components. Nothing is fetched until
// Init and RefreshList are called.
func New(opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	loopOpts := []loop.Option{loop.WithLogger(logger)}
	if opts.Clock != nil {
		loopOpts = append(loopOpts, loop.WithClock(opts.Clock))
	}
	l := loop.New(loopOpts...)

	s := &Session{
		loop:             l,
		backend:          opts.Backend,
		logger:           logger,
		cameraTransition: opts.CameraTransition,
	}
	if s.cameraTransition <= 0 {
		s.cameraTransition = render.DefaultCameraTransition
	}

	s.notices = notify.NewCenter(logger, l.Clock().Now)
	s.selection = selection.New()
	s.state = graphstate.New(s.selection, s.notices)
	s.loader = loader.New(l, opts.Backend)
	s.persister = persist.New(l, opts.Backend, s.state, persist.Options{
		Delay:   opts.DebounceDelay,
		Policy:  opts.FlushPolicy,
		Notices: s.notices,
	})
	s.theme = theme.New(l, theme.Options{
		Prefs:      opts.Prefs,
		Detect:     opts.DetectTheme,
		Transition: opts.ThemeTransition,
		Logger:     logger,
	})
	s.views = viewmode.New(l, opts.Backend, s.loader, s.state)

	s.cancels = append(s.cancels,
		s.loader.SubscribeReady(s.onReady),
		s.loader.SubscribeFailed(s.onFailed),
		s.state.Subscribe(s.onViewChanged),
		s.theme.Subscribe(s.onThemeChanged),
		s.views.Subscribe(s.onModeChanged),
	)
	return s
}

// Loop returns the session loop. It is safe to call from any goroutine.
func (s *Session) Loop() *loop.Loop { return s.loop }

func (s *Session) Notices() *notify.Center         { return s.notices }
func (s *Session) Selection() *selection.Model     { return s.selection }
func (s *Session) State() *graphstate.State        { return s.state }
func (s *Session) Loader() *loader.Loader          { return s.loader }
func (s *Session) Persister() *persist.Persister   { return s.persister }
func (s *Session) Theme() *theme.Coordinator       { return s.theme }
func (s *Session) Views() *viewmode.Controller     { return s.views }
func (s *Session) Backend() backend.Backend        { return s.backend }

// SubscribeStatus registers fn for dataset list and busy changes.
func (s *Session) SubscribeStatus(fn func(Status)) (cancel func()) {
	return s.status.Subscribe(fn)
}

// Init picks the starting theme.
func (s *Session) Init(ctx context.Context) theme.Theme {
	return s.theme.Init(ctx)
}

// AttachSurface connects the interactive view. The loaded view, if any, is
// drawn on it right away.
func (s *Session) AttachSurface(surf render.Surface) {
	s.surface = surf
	if surf == nil || !surf.Active() {
		s.missed = true
		return
	}
	s.draw(surf.Camera(), 0)
}

// Surface returns the attached surface, or nil.
func (s *Session) Surface() render.Surface { return s.surface }

// Datasets returns the last fetched dataset list, newest first.
func (s *Session) Datasets() []string { return s.datasets }

// Busy reports whether an analysis is running.
func (s *Session) Busy() bool { return s.busy }

// Load shows name in the current view mode.
func (s *Session) Load(ctx context.Context, name string) {
	s.views.Enter(ctx, s.views.State().Mode, name)
}

// SetMode switches the view mode for the current file.
func (s *Session) SetMode(ctx context.Context, mode viewmode.Mode) {
	file := s.views.State().File
	if file == "" {
		file = s.state.Name()
	}
	s.views.Enter(ctx, mode, file)
}

// RefreshList fetches the dataset list. When nothing is shown yet the
// newest dataset is loaded.
func (s *Session) RefreshList(ctx context.Context) {
	s.listSeq++
	seq := s.listSeq
	loop.Async(s.loop, func() ([]string, error) {
		return s.backend.ListDatasets(ctx)
	}, func(names []string, err error) {
		if seq != s.listSeq {
			return
		}
		if err != nil {
			s.notices.Err(notify.Error, err)
			return
		}
		s.setDatasets(names)
		if len(names) > 0 && s.views.State().File == "" && !s.loader.Loading() {
			s.Load(ctx, names[0])
		}
	})
}

// Analyze runs an analysis of folder, then refreshes the list and loads the
// newest dataset. The busy flag is cleared however the analysis ends.
func (s *Session) Analyze(ctx context.Context, folder string) error {
	if s.busy {
		return ErrBusy
	}
	s.setBusy(true)
	s.notices.Infof("Analyzing %s", folder)

	loop.Async(s.loop, func() ([]string, error) {
		return s.backend.Analyze(ctx, folder)
	}, func(names []string, err error) {
		defer s.setBusy(false)
		if err != nil {
			s.notices.Err(notify.Error, err)
			return
		}
		s.listSeq++
		s.setDatasets(names)
		s.views.Invalidate()
		s.notices.Successf("Analysis complete")
		if len(names) > 0 {
			s.Load(ctx, names[0])
		}
	})
	return nil
}

// DatasetsChanged is called when the data directory changed underneath the
// session. The list is refreshed and the resident diagram forgotten.
func (s *Session) DatasetsChanged(ctx context.Context) {
	s.views.Invalidate()
	s.views.Refresh(ctx)
	s.RefreshList(ctx)
}

// MoveNode ends a drag of id at pos.
func (s *Session) MoveNode(id string, pos graph.Vec3) error {
	return s.persister.OnInteractionEnd(id, pos)
}

// SetCategory switches the selection list to category. The selection is
// cleared.
func (s *Session) SetCategory(category graph.NodeType) {
	s.selection.Rebuild(s.state.Canonical(), category)
}

// ToggleTheme switches between light and dark.
func (s *Session) ToggleTheme() (theme.Theme, error) {
	return s.theme.Toggle()
}

// Subscribers lists the subscriber ids of every session bus by name.
func (s *Session) Subscribers() map[string][]uuid.UUID {
	return map[string][]uuid.UUID{
		"theme":     s.theme.Bus().Subscribers(),
		"view":      s.state.Bus().Subscribers(),
		"selection": s.selection.Bus().Subscribers(),
		"mode":      s.views.Bus().Subscribers(),
		"ready":     s.loader.ReadyBus().Subscribers(),
		"failed":    s.loader.FailedBus().Subscribers(),
		"flush":     s.persister.Bus().Subscribers(),
		"notices":   s.notices.Bus().Subscribers(),
		"status":    s.status.Subscribers(),
	}
}

// Close flushes a pending layout save and detaches the session's own
// subscriptions. Run the loop (or Settle) afterwards to let the save finish.
func (s *Session) Close() {
	s.persister.FlushNow()
	for _, c := range s.cancels {
		c()
	}
	s.cancels = nil
}

func (s *Session) setDatasets(names []string) {
	s.datasets = names
	s.status.Publish(Status{Datasets: names, Busy: s.busy})
}

func (s *Session) setBusy(v bool) {
	s.busy = v
	s.status.Publish(Status{Datasets: s.datasets, Busy: v})
}

func (s *Session) onReady(r loader.Ready) {
	s.persister.DatasetSwitched(r.Name)
	s.state.Replace(r.Name, r.Dataset)
}

func (s *Session) onFailed(f loader.Failed) {
	s.notices.Err(notify.Error, f.Err)
}

func (s *Session) onViewChanged(v graphstate.ViewChanged) {
	loaded := v.Reason == graphstate.ReasonLoaded
	surf := s.surface
	if surf == nil || !surf.Active() {
		s.missed = true
		s.missedLoad = s.missedLoad || loaded
		return
	}
	cam := surf.Camera()
	if loaded {
		cam = render.DefaultCamera()
	}
	s.draw(cam, 0)
}

// draw shows the current view on the surface and clears the missed flags.
func (s *Session) draw(cam render.Camera, transition time.Duration) {
	surf := s.surface
	surf.Clear()
	surf.ApplyPalette(s.theme.Palette())
	if v := s.state.View(); v != nil {
		surf.Load(v)
	}
	surf.MoveCamera(cam, transition)
	s.missed, s.missedLoad = false, false
}

func (s *Session) onThemeChanged(c theme.Changed) {
	render.RedrawPreservingView(s.surface, c.Palette, s.cameraTransition)
}

// onModeChanged redraws the resident dataset on graph re-entry. A surface
// that missed view changes while inactive is brought up to the current
// view instead of redrawing what it last showed.
func (s *Session) onModeChanged(c viewmode.Changed) {
	if !c.Rerender {
		return
	}
	surf := s.surface
	if surf == nil || !surf.Active() {
		return
	}
	if !s.missed && surf.Dataset() == s.state.View() {
		render.RedrawPreservingView(surf, s.theme.Palette(), s.cameraTransition)
		return
	}
	cam := surf.Camera()
	if s.missedLoad || surf.Dataset() == nil {
		cam = render.DefaultCamera()
	}
	s.draw(cam, s.cameraTransition)
}
