package render

import (
	"time"

	"github.com/matzehuels/kudsight/pkg/graph"
	"github.com/matzehuels/kudsight/pkg/theme"
)

// Surface is an interactive graph view.
type Surface interface {
	// Active reports whether the surface currently shows the graph. An
	// inactive surface (diagram mode, not yet attached) skips redraws.
	Active() bool

	// Dataset returns the dataset currently shown, or nil.
	Dataset() *graph.Dataset

	// Camera returns the current camera pose.
	Camera() Camera

	// Clear removes everything from the scene.
	Clear()

	// Load shows ds. The surface may resolve link endpoints to nodes and
	// assign positions to nodes that have none.
	Load(ds *graph.Dataset)

	// ApplyPalette recolors the scene.
	ApplyPalette(p theme.Palette)

	// MoveCamera moves to cam over transition (zero jumps).
	MoveCamera(cam Camera, transition time.Duration)
}

// DefaultCameraTransition is the camera restore duration after a redraw.
const DefaultCameraTransition = 400 * time.Millisecond

// RedrawPreservingView rebuilds s in palette p without losing what the user
// was looking at. It captures the dataset and camera before clearing, then
// recolors, reloads and moves the camera back. Inactive surfaces are left
// alone. It reports whether a redraw happened.
func RedrawPreservingView(s Surface, p theme.Palette, transition time.Duration) bool {
	if s == nil || !s.Active() {
		return false
	}
	ds := s.Dataset()
	cam := s.Camera()

	s.Clear()
	s.ApplyPalette(p)
	if ds != nil {
		s.Load(ds)
	}
	s.MoveCamera(cam, transition)
	return true
}
