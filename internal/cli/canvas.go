package cli

import (
	"math"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/kudsight/pkg/graph"
	"github.com/matzehuels/kudsight/pkg/render"
	"github.com/matzehuels/kudsight/pkg/theme"
)

// cellKind classifies a canvas cell for styling.
type cellKind uint8

const (
	cellEmpty cellKind = iota
	cellLink
	cellArrow
	cellModule
	cellClass
	cellSelected
	cellCursor
)

// canvas is a character grid the scene is rasterized into.
type canvas struct {
	w, h  int
	runes [][]rune
	kinds [][]cellKind
}

func newCanvas(w, h int) *canvas {
	c := &canvas{w: w, h: h, runes: make([][]rune, h), kinds: make([][]cellKind, h)}
	for y := range h {
		c.runes[y] = []rune(strings.Repeat(" ", w))
		c.kinds[y] = make([]cellKind, w)
	}
	return c
}

func (c *canvas) set(x, y int, r rune, k cellKind) {
	if x < 0 || y < 0 || x >= c.w || y >= c.h {
		return
	}
	c.runes[y][x] = r
	c.kinds[y][x] = k
}

// line draws a Bresenham line. Cells already holding a node label are kept.
func (c *canvas) line(x0, y0, x1, y1 int, r rune) {
	dx, dy := abs(x1-x0), -abs(y1-y0)
	sx, sy := sign(x1-x0), sign(y1-y0)
	err := dx + dy
	for {
		if x0 >= 0 && y0 >= 0 && x0 < c.w && y0 < c.h && c.kinds[y0][x0] == cellEmpty {
			c.set(x0, y0, r, cellLink)
		}
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func (c *canvas) text(x, y int, s string, k cellKind) {
	for i, r := range []rune(s) {
		c.set(x+i, y, r, k)
	}
}

// sceneOpts selects what the scene highlights.
type sceneOpts struct {
	Cursor   string
	Selected func(id string) bool
}

// projected is a node placed on screen.
type projected struct {
	node  *graph.Node
	x, y  int
	depth float64
}

// rasterize projects ds through cam onto a w x h canvas. Links are drawn
// first with an arrowhead three quarters of the way to their target; node
// labels are drawn far to near so closer labels win.
func rasterize(ds *graph.Dataset, cam render.Camera, w, h int, opts sceneOpts) *canvas {
	c := newCanvas(w, h)
	if ds == nil || w <= 0 || h <= 0 {
		return c
	}

	// Terminal cells are about twice as tall as wide; project onto a
	// double-height plane and halve y.
	placed := make(map[string]projected, len(ds.Nodes))
	for _, n := range ds.Nodes {
		if n.Pos == nil {
			continue
		}
		x, y, ok := render.Project(cam, *n.Pos, w, h*2)
		if !ok {
			continue
		}
		placed[n.ID] = projected{
			node:  n,
			x:     int(math.Round(x)),
			y:     int(math.Round(y / 2)),
			depth: distance(cam.Position, *n.Pos),
		}
	}

	for _, l := range ds.Links {
		src, ok1 := placed[l.SourceID()]
		dst, ok2 := placed[l.TargetID()]
		if !ok1 || !ok2 {
			continue
		}
		c.line(src.x, src.y, dst.x, dst.y, linkRune(l.Relation))
		ax := src.x + (dst.x-src.x)*3/4
		ay := src.y + (dst.y-src.y)*3/4
		c.set(ax, ay, arrowRune(dst.x-src.x, dst.y-src.y), cellArrow)
	}

	order := make([]projected, 0, len(placed))
	for _, p := range placed {
		order = append(order, p)
	}
	sort.Slice(order, func(i, j int) bool {
		if order[i].depth != order[j].depth {
			return order[i].depth > order[j].depth
		}
		return order[i].node.ID < order[j].node.ID
	})
	for _, p := range order {
		label, kind := nodeLabel(p.node), nodeKind(p.node.Type)
		switch {
		case p.node.ID == opts.Cursor:
			kind = cellCursor
		case opts.Selected != nil && opts.Selected(p.node.ID):
			kind = cellSelected
		}
		c.text(p.x-len([]rune(label))/2, p.y, label, kind)
	}
	return c
}

// styled renders the canvas with palette p.
func (c *canvas) styled(p theme.Palette) string {
	bg := lipgloss.Color(p.BackgroundColor)
	styles := map[cellKind]lipgloss.Style{
		cellEmpty:    lipgloss.NewStyle().Background(bg),
		cellLink:     lipgloss.NewStyle().Background(bg).Foreground(lipgloss.Color(p.LinkColor)),
		cellArrow:    lipgloss.NewStyle().Background(bg).Foreground(lipgloss.Color(p.ArrowColor)).Bold(true),
		cellModule:   lipgloss.NewStyle().Background(lipgloss.Color(p.Background)).Foreground(lipgloss.Color(p.Title)).Bold(true),
		cellClass:    lipgloss.NewStyle().Background(lipgloss.Color(p.Background)).Foreground(lipgloss.Color(p.Attribute)),
		cellSelected: lipgloss.NewStyle().Background(lipgloss.Color(p.Method)).Foreground(lipgloss.Color(p.Background)).Bold(true),
		cellCursor:   lipgloss.NewStyle().Background(lipgloss.Color(p.Stroke)).Foreground(lipgloss.Color(p.Background)).Bold(true).Underline(true),
	}

	var b strings.Builder
	for y := range c.h {
		start := 0
		for x := 1; x <= c.w; x++ {
			if x < c.w && c.kinds[y][x] == c.kinds[y][start] {
				continue
			}
			b.WriteString(styles[c.kinds[y][start]].Render(string(c.runes[y][start:x])))
			start = x
		}
		if y < c.h-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// plain returns the canvas without styling.
func (c *canvas) plain() []string {
	out := make([]string, c.h)
	for y := range c.h {
		out[y] = string(c.runes[y])
	}
	return out
}

// nodeLabel is the on-screen label: modules in brackets, classes in
// parentheses, abstract classes in angle brackets.
func nodeLabel(n *graph.Node) string {
	name := shortName(n.ID)
	switch {
	case n.Type == graph.TypeModule:
		return "[" + name + "]"
	case n.IsAbstract:
		return "<" + name + ">"
	default:
		return "(" + name + ")"
	}
}

func nodeKind(t graph.NodeType) cellKind {
	if t == graph.TypeModule {
		return cellModule
	}
	return cellClass
}

// shortName strips package qualifiers from an id.
func shortName(id string) string {
	if i := strings.LastIndexAny(id, ".:/"); i >= 0 && i < len(id)-1 {
		return id[i+1:]
	}
	return id
}

func linkRune(relation string) rune {
	switch relation {
	case "extended", "implemented":
		return '-'
	default:
		return '·'
	}
}

func arrowRune(dx, dy int) rune {
	if abs(dx) >= 2*abs(dy) {
		if dx >= 0 {
			return '>'
		}
		return '<'
	}
	if dy >= 0 {
		return 'v'
	}
	return '^'
}

func distance(a, b graph.Vec3) float64 {
	dx, dy, dz := a.X-b.X, a.Y-b.Y, a.Z-b.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
