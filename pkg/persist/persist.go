// Package persist saves the layout of the loaded dataset after the user
// stops moving nodes.
//
// Every finished interaction pins the moved node and restarts one shared
// debounce window. When the window passes quietly, the positions of every
// node of the dataset are submitted as one overlay. A failed submission is
// reported as a warning and not retried; the next interaction schedules a
// fresh one.
//
// What happens to a pending save when another dataset is loaded is set by
// [Policy].
package persist

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/kudsight/pkg/errors"
	"github.com/matzehuels/kudsight/pkg/event"
	"github.com/matzehuels/kudsight/pkg/graph"
	"github.com/matzehuels/kudsight/pkg/loop"
	"github.com/matzehuels/kudsight/pkg/notify"
	"github.com/matzehuels/kudsight/pkg/observability"
)

// DefaultDelay is the quiet period before a save.
const DefaultDelay = time.Second

// Policy decides what a dataset switch does to a pending save.
type Policy string

const (
	// CaptureAtSchedule binds the save to the dataset and file name current
	// when it was scheduled. A switch does not affect it.
	CaptureAtSchedule Policy = "capture"

	// CancelOnSwitch drops a pending save when another dataset is loaded.
	CancelOnSwitch Policy = "cancel"
)

// ParsePolicy converts a string to a Policy. Empty means CaptureAtSchedule.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case "", CaptureAtSchedule:
		return CaptureAtSchedule, nil
	case CancelOnSwitch:
		return CancelOnSwitch, nil
	}
	return "", fmt.Errorf("unknown flush policy %q (want capture or cancel)", s)
}

var (
	ErrNoDataset   = stderrors.New("no dataset loaded")
	ErrUnknownNode = stderrors.New("unknown node")
)

// Submitter stores an overlay. backend.Backend satisfies it.
type Submitter interface {
	SubmitOverlay(ctx context.Context, name string, o graph.Overlay) error
}

// Current reports the loaded dataset. graphstate.State satisfies it.
type Current interface {
	Name() string
	Canonical() *graph.Dataset
}

// Flushed is published when a submission completes.
type Flushed struct {
	Dataset   string
	Overlay   string
	Positions int
	Err       error
}

// Options configures a Persister.
type Options struct {
	Delay   time.Duration
	Policy  Policy
	Notices *notify.Center

	// Context bounds submissions. Nil uses context.Background.
	Context context.Context
}

// Persister debounces and submits layouts. It is loop-confined.
type Persister struct {
	loop    *loop.Loop
	sub     Submitter
	cur     Current
	policy  Policy
	notices *notify.Center
	logger  *log.Logger
	ctx     context.Context
	task    *loop.Debouncer

	target string
	ds     *graph.Dataset

	inflight int
	flushed  event.Bus[Flushed]
}

// New creates a persister on l.
func New(l *loop.Loop, sub Submitter, cur Current, opts Options) *Persister {
	p := &Persister{
		loop:    l,
		sub:     sub,
		cur:     cur,
		policy:  opts.Policy,
		notices: opts.Notices,
		logger:  l.Logger(),
		ctx:     opts.Context,
	}
	if p.policy == "" {
		p.policy = CaptureAtSchedule
	}
	if p.ctx == nil {
		p.ctx = context.Background()
	}
	delay := opts.Delay
	if delay <= 0 {
		delay = DefaultDelay
	}
	p.task = loop.NewDebouncer(l, delay, p.flush)
	return p
}

// Policy returns the dataset-switch policy.
func (p *Persister) Policy() Policy { return p.policy }

// Subscribe registers fn for completed submissions.
func (p *Persister) Subscribe(fn func(Flushed)) (cancel func()) { return p.flushed.Subscribe(fn) }

// Bus exposes the flush bus for subscriber enumeration.
func (p *Persister) Bus() *event.Bus[Flushed] { return &p.flushed }

// OnInteractionEnd pins nodeID at pos in the loaded dataset and restarts the
// save window.
func (p *Persister) OnInteractionEnd(nodeID string, pos graph.Vec3) error {
	ds := p.cur.Canonical()
	if ds == nil {
		return ErrNoDataset
	}
	n, ok := ds.Node(nodeID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownNode, nodeID)
	}
	n.PinAt(pos)

	p.target = p.cur.Name()
	p.ds = ds
	p.task.Schedule()
	return nil
}

// DatasetSwitched tells the persister another dataset was loaded. Under
// CancelOnSwitch a pending save is dropped.
func (p *Persister) DatasetSwitched(name string) {
	if p.policy != CancelOnSwitch {
		return
	}
	if p.task.Cancel() {
		p.logger.Info("pending layout save cancelled", "dataset", p.target, "switched_to", name)
		p.target, p.ds = "", nil
	}
}

// FlushNow submits a pending save immediately. It reports whether one was
// pending.
func (p *Persister) FlushNow() bool { return p.task.FlushNow() }

// Pending reports whether a save is scheduled.
func (p *Persister) Pending() bool { return p.task.Pending() }

// Submitting reports whether a submission is in flight.
func (p *Persister) Submitting() bool { return p.inflight > 0 }

func (p *Persister) flush() {
	target, ds := p.target, p.ds
	if ds == nil || target == "" {
		return
	}
	positions := ds.Positions()
	overlay := graph.OverlayName(target)
	p.inflight++

	loop.Async(p.loop, func() (struct{}, error) {
		return struct{}{}, p.sub.SubmitOverlay(p.ctx, overlay, positions)
	}, func(_ struct{}, err error) {
		p.inflight--
		observability.Session().OnFlush(p.ctx, target, len(positions), err)
		if err != nil {
			err = errors.Wrap(errors.ErrCodePersistenceFailed, err, "Could not save layout for %s", target)
			if p.notices != nil {
				p.notices.Err(notify.Warning, err)
			} else {
				p.logger.Warn("layout save failed", "dataset", target, "error", err)
			}
		} else {
			p.logger.Debug("layout saved", "overlay", overlay, "positions", len(positions))
		}
		p.flushed.Publish(Flushed{Dataset: target, Overlay: overlay, Positions: len(positions), Err: err})
	})
}
