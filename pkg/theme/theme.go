// Package theme coordinates the light/dark theme for a session.
//
// The [Coordinator] is the only holder of the current theme. Changes are
// broadcast as [Changed] events that carry the full [Palette], so no
// subscriber keeps its own copy of colors. The preference is written to a
// [prefs.Store] in the background; writes are coalesced so the last value
// written is always the last value applied.
//
// The coordinator is loop-confined.
package theme

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/matzehuels/kudsight/pkg/event"
	"github.com/matzehuels/kudsight/pkg/loop"
	"github.com/matzehuels/kudsight/pkg/prefs"
)

// Theme is a color scheme name.
type Theme string

const (
	Light Theme = "light"
	Dark  Theme = "dark"
)

// PrefKey is the preference name the theme is stored under.
const PrefKey = "kudsight-theme"

// DefaultTransition is how long Toggle stays disabled after a toggle.
const DefaultTransition = 300 * time.Millisecond

// ErrToggleBusy is returned by Toggle during the transition window of the
// previous toggle.
var ErrToggleBusy = errors.New("theme transition in progress")

// Parse converts a string to a Theme.
func Parse(s string) (Theme, error) {
	switch Theme(s) {
	case Light, Dark:
		return Theme(s), nil
	}
	return "", fmt.Errorf("unknown theme %q (want light or dark)", s)
}

// Opposite returns the other theme.
func (t Theme) Opposite() Theme {
	if t == Dark {
		return Light
	}
	return Dark
}

// Changed is published on every theme change.
type Changed struct {
	Previous Theme
	Current  Theme
	Palette  Palette
}

// Options configures a Coordinator.
type Options struct {
	// Prefs persists the choice. Nil keeps the theme in memory only.
	Prefs prefs.Store

	// Detect reports the platform preference. Nil asks the terminal via
	// lipgloss.
	Detect func() (Theme, bool)

	// Transition is the toggle lockout. Zero uses DefaultTransition.
	Transition time.Duration

	Logger *log.Logger
}

// Coordinator owns the current theme.
type Coordinator struct {
	loop       *loop.Loop
	prefs      prefs.Store
	detect     func() (Theme, bool)
	transition time.Duration
	logger     *log.Logger

	ctx     context.Context
	current Theme
	busy    bool

	writing bool
	dirty   bool

	changes event.Bus[Changed]
}

// New creates a coordinator on l. The theme is dark until [Coordinator.Init].
func New(l *loop.Loop, opts Options) *Coordinator {
	c := &Coordinator{
		loop:       l,
		prefs:      opts.Prefs,
		detect:     opts.Detect,
		transition: opts.Transition,
		logger:     opts.Logger,
		ctx:        context.Background(),
		current:    Dark,
	}
	if c.detect == nil {
		c.detect = DetectTerminal
	}
	if c.transition <= 0 {
		c.transition = DefaultTransition
	}
	if c.logger == nil {
		c.logger = l.Logger()
	}
	return c
}

// DetectTerminal reports the terminal background as a theme.
func DetectTerminal() (Theme, bool) {
	if lipgloss.HasDarkBackground() {
		return Dark, true
	}
	return Light, true
}

// Init picks the starting theme: the stored preference, else the platform
// preference, else dark. It publishes one Changed event and does not write
// the preference. Call it once, before the loop starts serving input.
func (c *Coordinator) Init(ctx context.Context) Theme {
	c.ctx = context.WithoutCancel(ctx)
	prev := c.current
	c.current = c.initial(ctx)
	c.publish(prev)
	return c.current
}

func (c *Coordinator) initial(ctx context.Context) Theme {
	if c.prefs != nil {
		v, ok, err := c.prefs.Get(ctx, PrefKey)
		if err != nil {
			c.logger.Warn("read theme preference", "error", err)
		}
		if ok {
			if t, err := Parse(v); err == nil {
				return t
			}
			c.logger.Warn("ignoring stored theme", "value", v)
		}
	}
	if t, ok := c.detect(); ok {
		return t
	}
	return Dark
}

// Subscribe registers fn for theme changes.
func (c *Coordinator) Subscribe(fn func(Changed)) (cancel func()) {
	return c.changes.Subscribe(fn)
}

// Bus exposes the change bus for subscriber enumeration.
func (c *Coordinator) Bus() *event.Bus[Changed] { return &c.changes }

// Current returns the current theme.
func (c *Coordinator) Current() Theme { return c.current }

// Palette returns the palette of the current theme.
func (c *Coordinator) Palette() Palette { return PaletteFor(c.current) }

// ToggleEnabled reports whether Toggle would be accepted now.
func (c *Coordinator) ToggleEnabled() bool { return !c.busy }

// Toggle switches to the opposite theme and locks further toggles for the
// transition window.
func (c *Coordinator) Toggle() (Theme, error) {
	if c.busy {
		return c.current, ErrToggleBusy
	}
	c.busy = true
	c.loop.AfterFunc(c.transition, func() { c.busy = false })
	c.set(c.current.Opposite())
	return c.current, nil
}

// Apply switches to t. It is never locked out.
func (c *Coordinator) Apply(t Theme) error {
	if _, err := Parse(string(t)); err != nil {
		return err
	}
	c.set(t)
	return nil
}

func (c *Coordinator) set(t Theme) {
	prev := c.current
	c.current = t
	c.persist()
	c.publish(prev)
}

func (c *Coordinator) publish(prev Theme) {
	c.changes.Publish(Changed{Previous: prev, Current: c.current, Palette: PaletteFor(c.current)})
}

// persist writes the current theme in the background. While a write is in
// flight further calls only mark the state dirty; the completion writes
// again if the value moved on.
func (c *Coordinator) persist() {
	if c.prefs == nil {
		return
	}
	if c.writing {
		c.dirty = true
		return
	}
	c.writing = true
	value := c.current
	loop.Async(c.loop, func() (struct{}, error) {
		return struct{}{}, c.prefs.Set(c.ctx, PrefKey, string(value))
	}, func(_ struct{}, err error) {
		c.writing = false
		if err != nil {
			c.logger.Warn("persist theme preference", "theme", value, "error", err)
		}
		if c.dirty {
			c.dirty = false
			if c.current != value || err != nil {
				c.persist()
			}
		}
	})
}

// Persisting reports whether a preference write is in flight.
func (c *Coordinator) Persisting() bool { return c.writing }
