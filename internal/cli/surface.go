package cli

import (
	"math"
	"time"

	"github.com/matzehuels/kudsight/pkg/graph"
	"github.com/matzehuels/kudsight/pkg/render"
	"github.com/matzehuels/kudsight/pkg/theme"
)

// seedRadius is the radius of the sphere unplaced nodes are spread over.
const seedRadius = 100

// termSurface is the terminal's [render.Surface]. Like the session it
// belongs to, it is confined to the session loop; the UI only ever sees
// rendered frames.
type termSurface struct {
	active  bool
	dataset *graph.Dataset
	camera  render.Camera
	palette theme.Palette

	// changed is called after every mutation.
	changed func()
}

func newTermSurface(changed func()) *termSurface {
	if changed == nil {
		changed = func() {}
	}
	return &termSurface{
		active:  true,
		camera:  render.DefaultCamera(),
		palette: theme.PaletteFor(theme.Dark),
		changed: changed,
	}
}

func (s *termSurface) Active() bool            { return s.active }
func (s *termSurface) Dataset() *graph.Dataset { return s.dataset }
func (s *termSurface) Camera() render.Camera   { return s.camera }

// SetActive shows (graph mode) or hides (diagram mode) the scene.
func (s *termSurface) SetActive(v bool) {
	s.active = v
	s.changed()
}

func (s *termSurface) Clear() {
	s.dataset = nil
	s.changed()
}

// Load shows ds. Nodes without a position are spread over a sphere around
// the origin; saved and pinned positions are kept.
func (s *termSurface) Load(ds *graph.Dataset) {
	seedPositions(ds)
	s.dataset = ds
	s.changed()
}

func (s *termSurface) ApplyPalette(p theme.Palette) {
	s.palette = p
	s.changed()
}

// MoveCamera jumps to cam. The terminal has no frame clock to tween on.
func (s *termSurface) MoveCamera(cam render.Camera, _ time.Duration) {
	s.camera = cam
	s.changed()
}

// Palette returns the applied palette.
func (s *termSurface) Palette() theme.Palette { return s.palette }

// Frame renders the scene for a w x h area.
func (s *termSurface) Frame(w, h int, opts sceneOpts) *canvas {
	if !s.active {
		return newCanvas(w, h)
	}
	return rasterize(s.dataset, s.camera, w, h, opts)
}

// seedPositions places every node without a position on a Fibonacci sphere.
// Placement depends only on the node's index, so a reload lays the same
// dataset out the same way.
func seedPositions(ds *graph.Dataset) {
	if ds == nil {
		return
	}
	n := len(ds.Nodes)
	golden := math.Pi * (3 - math.Sqrt(5))
	for i, node := range ds.Nodes {
		if node.Pos != nil {
			continue
		}
		if node.Pin != nil {
			node.Pos = node.Pin
			continue
		}
		y := 1.0
		if n > 1 {
			y = 1 - 2*float64(i)/float64(n-1)
		}
		r := math.Sqrt(max(0, 1-y*y))
		theta := golden * float64(i)
		node.Pos = &graph.Vec3{
			X: seedRadius * r * math.Cos(theta),
			Y: seedRadius * y,
			Z: seedRadius * r * math.Sin(theta),
		}
	}
}

var _ render.Surface = (*termSurface)(nil)
