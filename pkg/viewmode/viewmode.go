// Package viewmode switches a session between the interactive graph and the
// static diagram of the same dataset.
//
// Switching back and forth never refetches what is already resident: the
// graph comes from the session's canonical dataset, and a diagram probe is
// remembered until [Controller.Invalidate].
//
// The controller is loop-confined.
package viewmode

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/kudsight/pkg/event"
	"github.com/matzehuels/kudsight/pkg/graph"
	"github.com/matzehuels/kudsight/pkg/loop"
)

// Mode is a presentation mode.
type Mode string

const (
	Graph   Mode = "graph"
	Diagram Mode = "diagram"
)

// ParseMode converts a string to a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case Graph, Diagram:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown view mode %q (want graph or diagram)", s)
}

// State describes what is shown.
type State struct {
	Mode Mode
	File string

	// Asset is the diagram asset name; set in diagram mode only.
	Asset string

	// Available reports whether the diagram asset exists. False in diagram
	// mode means the placeholder is shown.
	Available bool

	// Probing is true while the diagram existence check runs.
	Probing bool
}

// Changed is published when the presentation changes.
type Changed struct {
	State

	// Rerender asks the graph surface to redraw the resident dataset in the
	// current palette.
	Rerender bool
}

// AssetProber checks whether a diagram asset exists.
type AssetProber interface {
	AssetExists(ctx context.Context, name string) (bool, error)
}

// DatasetLoader starts dataset loads.
type DatasetLoader interface {
	Load(ctx context.Context, name string)
	Loading() bool
	Requested() string
}

// Resident reports which dataset the session holds.
type Resident interface {
	Name() string
	Loaded() bool
}

// Controller owns the current presentation mode.
type Controller struct {
	loop     *loop.Loop
	prober   AssetProber
	loader   DatasetLoader
	resident Resident
	logger   *log.Logger

	current State

	// Last completed diagram probe, and the file being probed now.
	diagram  State
	probing  string
	probeSeq uint64

	changes event.Bus[Changed]
}

// New creates a controller in graph mode with no file.
func New(l *loop.Loop, prober AssetProber, loader DatasetLoader, resident Resident) *Controller {
	return &Controller{
		loop:     l,
		prober:   prober,
		loader:   loader,
		resident: resident,
		logger:   l.Logger(),
		current:  State{Mode: Graph},
	}
}

// Subscribe registers fn for presentation changes.
func (c *Controller) Subscribe(fn func(Changed)) (cancel func()) {
	return c.changes.Subscribe(fn)
}

// Bus exposes the change bus for subscriber enumeration.
func (c *Controller) Bus() *event.Bus[Changed] { return &c.changes }

// State returns the current presentation.
func (c *Controller) State() State { return c.current }

// Enter shows file in mode. Re-entering the current mode and file while its
// content is resident does nothing and reports false.
func (c *Controller) Enter(ctx context.Context, mode Mode, file string) bool {
	if mode == c.current.Mode && file == c.current.File && c.isResident(mode, file) {
		return false
	}
	switch mode {
	case Diagram:
		c.enterDiagram(ctx, file)
	default:
		c.enterGraph(ctx, file)
	}
	return true
}

func (c *Controller) isResident(mode Mode, file string) bool {
	if mode == Diagram {
		return c.diagram.File == file || c.probing == file
	}
	if c.resident.Loaded() && c.resident.Name() == file {
		return true
	}
	return c.loader.Loading() && c.loader.Requested() == file
}

func (c *Controller) enterGraph(ctx context.Context, file string) {
	c.current = State{Mode: Graph, File: file}
	if c.resident.Loaded() && c.resident.Name() == file {
		c.changes.Publish(Changed{State: c.current, Rerender: true})
		return
	}
	c.changes.Publish(Changed{State: c.current})
	if file == "" || c.loader.Loading() && c.loader.Requested() == file {
		return
	}
	c.loader.Load(ctx, file)
}

func (c *Controller) enterDiagram(ctx context.Context, file string) {
	if file == "" {
		c.current = State{Mode: Diagram}
		c.changes.Publish(Changed{State: c.current})
		return
	}
	asset := graph.DiagramName(file)

	switch {
	case c.diagram.File == file:
		c.current = c.diagram
		c.changes.Publish(Changed{State: c.current})
		return
	case c.probing == file:
		c.current = State{Mode: Diagram, File: file, Asset: asset, Probing: true}
		c.changes.Publish(Changed{State: c.current})
		return
	}

	c.probeSeq++
	seq := c.probeSeq
	c.probing = file
	c.current = State{Mode: Diagram, File: file, Asset: asset, Probing: true}
	c.changes.Publish(Changed{State: c.current})

	loop.Async(c.loop, func() (bool, error) {
		return c.prober.AssetExists(ctx, asset)
	}, func(ok bool, err error) {
		if seq != c.probeSeq {
			return
		}
		if err != nil {
			c.logger.Warn("diagram probe failed", "asset", asset, "error", err)
			ok = false
		}
		c.probing = ""
		c.diagram = State{Mode: Diagram, File: file, Asset: asset, Available: ok}
		if c.current.Mode == Diagram && c.current.File == file {
			c.current = c.diagram
			c.changes.Publish(Changed{State: c.current})
		}
	})
}

// Invalidate forgets the resident diagram, for example after a new analysis
// run wrote a fresh asset. A probe in flight is abandoned.
func (c *Controller) Invalidate() {
	c.diagram = State{}
	c.probing = ""
	c.probeSeq++
}

// Refresh re-enters the current mode and file, probing again if needed.
func (c *Controller) Refresh(ctx context.Context) {
	if c.current.File == "" {
		return
	}
	c.Enter(ctx, c.current.Mode, c.current.File)
}
