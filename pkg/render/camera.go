package render

import (
	"math"

	"github.com/matzehuels/kudsight/pkg/graph"
)

// Camera is a look-at camera pose.
type Camera struct {
	Position graph.Vec3
	LookAt   graph.Vec3
	Up       graph.Vec3
}

// DefaultCamera looks at the origin from 300 units along +Z with +Y up.
func DefaultCamera() Camera {
	return Camera{
		Position: graph.Vec3{Z: 300},
		Up:       graph.Vec3{Y: 1},
	}
}

// Distance returns the distance from the camera to its target.
func (c Camera) Distance() float64 {
	return length(sub(c.Position, c.LookAt))
}

// Orbit rotates the camera around its target: yaw around the up axis, then
// pitch around the camera's right axis. Angles are in radians.
func (c Camera) Orbit(yaw, pitch float64) Camera {
	up := normalize(c.Up)
	offset := rotate(sub(c.Position, c.LookAt), up, yaw)
	right := normalize(cross(up, offset))
	if length(right) > 0 {
		offset = rotate(offset, right, pitch)
		c.Up = normalize(cross(offset, right))
	}
	c.Position = add(c.LookAt, offset)
	return c
}

// Zoom scales the distance to the target by factor (<1 moves closer).
func (c Camera) Zoom(factor float64) Camera {
	if factor <= 0 {
		return c
	}
	c.Position = add(c.LookAt, scale(sub(c.Position, c.LookAt), factor))
	return c
}

// Roll rotates the up vector around the viewing axis by angle radians.
func (c Camera) Roll(angle float64) Camera {
	axis := normalize(sub(c.LookAt, c.Position))
	c.Up = normalize(rotate(c.Up, axis, angle))
	return c
}

// Project maps world point p onto a width x height screen with a pinhole
// projection. It reports false for points behind the camera.
func Project(c Camera, p graph.Vec3, width, height int) (x, y float64, ok bool) {
	forward := normalize(sub(c.LookAt, c.Position))
	right := normalize(cross(forward, c.Up))
	up := cross(right, forward)

	rel := sub(p, c.Position)
	depth := dot(rel, forward)
	if depth <= 1e-6 {
		return 0, 0, false
	}
	// At the default distance a 300 unit wide target plane fills the
	// shorter screen side.
	focal := float64(min(width, height))
	x = float64(width)/2 + focal*dot(rel, right)/depth
	y = float64(height)/2 - focal*dot(rel, up)/depth
	return x, y, true
}

func add(a, b graph.Vec3) graph.Vec3 { return graph.Vec3{X: a.X + b.X, Y: a.Y + b.Y, Z: a.Z + b.Z} }
func sub(a, b graph.Vec3) graph.Vec3 { return graph.Vec3{X: a.X - b.X, Y: a.Y - b.Y, Z: a.Z - b.Z} }
func scale(a graph.Vec3, s float64) graph.Vec3 {
	return graph.Vec3{X: a.X * s, Y: a.Y * s, Z: a.Z * s}
}
func dot(a, b graph.Vec3) float64 { return a.X*b.X + a.Y*b.Y + a.Z*b.Z }
func cross(a, b graph.Vec3) graph.Vec3 {
	return graph.Vec3{X: a.Y*b.Z - a.Z*b.Y, Y: a.Z*b.X - a.X*b.Z, Z: a.X*b.Y - a.Y*b.X}
}
func length(a graph.Vec3) float64 { return math.Sqrt(dot(a, a)) }

func normalize(a graph.Vec3) graph.Vec3 {
	l := length(a)
	if l == 0 {
		return a
	}
	return scale(a, 1/l)
}

// rotate turns v around unit axis k by angle (Rodrigues' formula).
func rotate(v, k graph.Vec3, angle float64) graph.Vec3 {
	cos, sin := math.Cos(angle), math.Sin(angle)
	return add(add(scale(v, cos), scale(cross(k, v), sin)), scale(k, dot(k, v)*(1-cos)))
}
