package render

import (
	"time"

	"github.com/matzehuels/kudsight/pkg/graph"
	"github.com/matzehuels/kudsight/pkg/theme"
)

// Op names a recorded surface operation.
type Op string

const (
	OpClear        Op = "clear"
	OpLoad         Op = "load"
	OpApplyPalette Op = "palette"
	OpMoveCamera   Op = "camera"
)

// Memory is a headless [Surface] that records every operation. It is used by
// tests and by commands that run the session without a terminal.
type Memory struct {
	active  bool
	dataset *graph.Dataset
	camera  Camera
	palette theme.Palette
	ops     []Op
	loads   int

	LastTransition time.Duration
}

// NewMemory returns an active surface with the default camera.
func NewMemory() *Memory {
	return &Memory{active: true, camera: DefaultCamera()}
}

func (m *Memory) Active() bool            { return m.active }
func (m *Memory) Dataset() *graph.Dataset { return m.dataset }
func (m *Memory) Camera() Camera          { return m.camera }

// SetActive toggles whether redraws apply.
func (m *Memory) SetActive(v bool) { m.active = v }

func (m *Memory) Clear() {
	m.dataset = nil
	m.ops = append(m.ops, OpClear)
}

// Load resolves link endpoints the way a real scene does, so tests see the
// object-shaped endpoints consumers must handle.
func (m *Memory) Load(ds *graph.Dataset) {
	if ds != nil {
		ds.Resolve()
	}
	m.dataset = ds
	m.loads++
	m.ops = append(m.ops, OpLoad)
}

func (m *Memory) ApplyPalette(p theme.Palette) {
	m.palette = p
	m.ops = append(m.ops, OpApplyPalette)
}

func (m *Memory) MoveCamera(cam Camera, transition time.Duration) {
	m.camera = cam
	m.LastTransition = transition
	m.ops = append(m.ops, OpMoveCamera)
}

// Palette returns the last applied palette.
func (m *Memory) Palette() theme.Palette { return m.palette }

// Ops returns the recorded operations.
func (m *Memory) Ops() []Op { return m.ops }

// Loads returns how many times Load was called.
func (m *Memory) Loads() int { return m.loads }

// ResetOps forgets recorded operations.
func (m *Memory) ResetOps() { m.ops = nil }

var _ Surface = (*Memory)(nil)
