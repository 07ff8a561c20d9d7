// Package render defines the rendering surface the session drives.
//
// Drawing itself is out of scope: a [Surface] is whatever shows the graph
// (the terminal view in internal/cli, or [Memory] in tests and headless
// commands). The session only ever asks a surface to clear, load a dataset,
// apply a palette and move its camera.
//
// # View-Preserving Redraw
//
// A theme change rebuilds the scene. [RedrawPreservingView] captures the
// displayed dataset and the camera pose before clearing, so the user keeps
// looking at the same thing in the new colors:
//
//	render.RedrawPreservingView(surface, palette, 400*time.Millisecond)
//
// # Projection
//
// [Camera] is a look-at camera. [Project] maps a world position to screen
// coordinates for surfaces that draw in 2D.
package render
