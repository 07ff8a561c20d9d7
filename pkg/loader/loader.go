// Package loader fetches a dataset together with its saved layout.
//
// [Loader.Fetch] is the blocking part and may run on any goroutine: the
// dataset and its overlay are fetched concurrently, the overlay is applied
// and the dataset is normalized. [Loader.Load] runs Fetch off the loop and
// publishes the outcome on it. Only the most recent Load publishes; results
// of superseded loads are dropped.
//
// A missing or broken overlay never fails a load. It is logged and the
// dataset is shown with its original positions.
package loader

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/kudsight/pkg/errors"
	"github.com/matzehuels/kudsight/pkg/event"
	"github.com/matzehuels/kudsight/pkg/graph"
	"github.com/matzehuels/kudsight/pkg/loop"
	"github.com/matzehuels/kudsight/pkg/observability"
)

// Source is where datasets and overlays come from. backend.Backend
// satisfies it.
type Source interface {
	FetchDataset(ctx context.Context, name string) ([]byte, error)
	OverlayExists(ctx context.Context, name string) (bool, error)
	FetchOverlay(ctx context.Context, name string) (graph.Overlay, error)
}

// Result is a loaded, normalized dataset and what happened on the way.
type Result struct {
	Name    string
	Dataset *graph.Dataset

	graph.Report
	OverlayApplied int

	// OverlaySkipped is the reason no overlay was applied, or empty.
	OverlaySkipped string

	Duration time.Duration
}

// Ready is published when a load succeeds.
type Ready struct {
	Name    string
	Dataset *graph.Dataset
	Result  *Result
}

// Failed is published when a load fails.
type Failed struct {
	Name string
	Err  error
}

// Loader fetches datasets from a Source.
type Loader struct {
	src    Source
	loop   *loop.Loop
	logger *log.Logger

	seq       uint64
	loading   bool
	requested string

	ready  event.Bus[Ready]
	failed event.Bus[Failed]
}

// New creates a loader on l.
func New(l *loop.Loop, src Source) *Loader {
	return &Loader{src: src, loop: l, logger: l.Logger()}
}

// SubscribeReady registers fn for successful loads.
func (l *Loader) SubscribeReady(fn func(Ready)) (cancel func()) { return l.ready.Subscribe(fn) }

// SubscribeFailed registers fn for failed loads.
func (l *Loader) SubscribeFailed(fn func(Failed)) (cancel func()) { return l.failed.Subscribe(fn) }

// ReadyBus exposes the success bus for subscriber enumeration.
func (l *Loader) ReadyBus() *event.Bus[Ready] { return &l.ready }

// FailedBus exposes the failure bus for subscriber enumeration.
func (l *Loader) FailedBus() *event.Bus[Failed] { return &l.failed }

// Loading reports whether a load is in flight.
func (l *Loader) Loading() bool { return l.loading }

// Requested returns the name of the most recently requested load.
func (l *Loader) Requested() string { return l.requested }

// Load starts fetching name. It must be called on the loop. Exactly one of
// Ready or Failed is published for it, unless a later Load supersedes it.
func (l *Loader) Load(ctx context.Context, name string) {
	l.seq++
	seq := l.seq
	l.loading = true
	l.requested = name

	loop.Async(l.loop, func() (*Result, error) {
		return l.Fetch(ctx, name)
	}, func(res *Result, err error) {
		if seq != l.seq {
			l.logger.Debug("discarding superseded load", "name", name)
			return
		}
		l.loading = false
		if err != nil {
			l.failed.Publish(Failed{Name: name, Err: err})
			return
		}
		l.ready.Publish(Ready{Name: name, Dataset: res.Dataset, Result: res})
	})
}

// Fetch loads name and its overlay and returns the merged, normalized
// dataset. It does not touch loop state and is safe to call from any
// goroutine.
func (l *Loader) Fetch(ctx context.Context, name string) (res *Result, err error) {
	hooks := observability.Session()
	hooks.OnLoadStart(ctx, name)
	start := time.Now()
	defer func() {
		nodes := 0
		if res != nil {
			nodes = len(res.Dataset.Nodes)
		}
		hooks.OnLoadComplete(ctx, name, nodes, time.Since(start), err)
	}()

	overlayName := graph.OverlayName(name)
	var (
		ds      *graph.Dataset
		overlay graph.Overlay
		skipped string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		data, err := l.src.FetchDataset(gctx, name)
		if err != nil {
			return err
		}
		ds, err = graph.UnmarshalDataset(data)
		return err
	})
	g.Go(func() error {
		overlay, skipped = l.fetchOverlay(gctx, overlayName)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeLoadFailed, err, "load %s", name)
	}

	res = &Result{Name: name, Dataset: ds, OverlaySkipped: skipped}
	res.Report = ds.Normalize()
	if overlay != nil {
		res.OverlayApplied = ds.ApplyOverlay(overlay)
	}
	if skipped != "" {
		l.logger.Info("overlay skipped", "name", overlayName, "reason", skipped)
		hooks.OnOverlaySkipped(ctx, name, skipped)
	}
	res.Duration = time.Since(start)

	l.logger.Info("loaded dataset",
		"name", name,
		"nodes", len(ds.Nodes),
		"links", len(ds.Links),
		"pinned", res.OverlayApplied,
		"dropped_links", res.DroppedLinks,
		"duplicates", res.DuplicateNodes,
	)
	return res, nil
}

func (l *Loader) fetchOverlay(ctx context.Context, name string) (graph.Overlay, string) {
	ok, err := l.src.OverlayExists(ctx, name)
	if err != nil {
		return nil, fmt.Sprintf("probe failed: %v", err)
	}
	if !ok {
		return nil, "absent"
	}
	o, err := l.src.FetchOverlay(ctx, name)
	if err != nil {
		return nil, fmt.Sprintf("fetch failed: %v", err)
	}
	return o, ""
}
