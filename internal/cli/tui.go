package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/kudsight/pkg/graph"
	"github.com/matzehuels/kudsight/pkg/graphstate"
	"github.com/matzehuels/kudsight/pkg/loader"
	"github.com/matzehuels/kudsight/pkg/loop"
	"github.com/matzehuels/kudsight/pkg/notify"
	"github.com/matzehuels/kudsight/pkg/persist"
	"github.com/matzehuels/kudsight/pkg/render"
	"github.com/matzehuels/kudsight/pkg/selection"
	"github.com/matzehuels/kudsight/pkg/session"
	"github.com/matzehuels/kudsight/pkg/theme"
	"github.com/matzehuels/kudsight/pkg/viewmode"
)

const (
	sidebarWidth = 36
	maxNotices   = 4
	maxDetail    = 12

	orbitStep = math.Pi / 24
	rollStep  = math.Pi / 36
	zoomStep  = 1.25
	nudgeStep = 10.0
)

// Sidebar styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

var sidebarStyle = lipgloss.NewStyle().
	Width(sidebarWidth).
	PaddingLeft(1).
	BorderStyle(lipgloss.NormalBorder()).
	BorderLeft(true).
	BorderForeground(colorDim)

// =============================================================================
// viewer - session side of the terminal UI
// =============================================================================

// viewer drives a session on behalf of the terminal UI. Its fields belong to
// the session loop; the bubbletea model only receives [frameMsg] values.
type viewer struct {
	ctx  context.Context
	sess *session.Session
	surf *termSurface
	send func(tea.Msg)

	width, height int
	cursor        int
	notices       []notify.Notification
	scheduled     bool
}

func newViewer(ctx context.Context, sess *session.Session, send func(tea.Msg)) *viewer {
	v := &viewer{ctx: ctx, sess: sess, send: send, width: 100, height: 30}
	v.surf = newTermSurface(v.invalidate)
	return v
}

// attach subscribes to the session and attaches the surface. It must run on
// the session loop.
func (v *viewer) attach() {
	s := v.sess
	s.Notices().Subscribe(func(n notify.Notification) {
		v.notices = append(v.notices, n)
		if len(v.notices) > maxNotices {
			v.notices = v.notices[len(v.notices)-maxNotices:]
		}
		v.invalidate()
	})
	s.Selection().Subscribe(func(selection.Changed) {
		v.clampCursor()
		v.invalidate()
	})
	s.State().Subscribe(func(graphstate.ViewChanged) { v.invalidate() })
	s.Views().Subscribe(func(viewmode.Changed) { v.invalidate() })
	s.Theme().Subscribe(func(theme.Changed) { v.invalidate() })
	s.SubscribeStatus(func(session.Status) { v.invalidate() })
	s.Loader().SubscribeFailed(func(loader.Failed) { v.invalidate() })
	s.Persister().Subscribe(func(persist.Flushed) { v.invalidate() })
	s.AttachSurface(v.surf)
}

// post runs fn on the session loop and then refreshes the UI.
func (v *viewer) post(fn func()) {
	v.sess.Loop().Post(func() {
		fn()
		v.invalidate()
	})
}

// invalidate schedules one frame. Repeated calls before the frame is built
// coalesce.
func (v *viewer) invalidate() {
	if v.scheduled || v.send == nil {
		return
	}
	v.scheduled = true
	v.sess.Loop().Post(func() {
		v.scheduled = false
		v.send(v.frame())
	})
}

func (v *viewer) resize(w, h int) {
	v.width, v.height = w, h
}

// handleKey applies one key press.
func (v *viewer) handleKey(k string) {
	s := v.sess
	kn := keyName(k)

	switch {
	case key.Matches(kn, keys.Graph):
		v.setMode(viewmode.Graph)
	case key.Matches(kn, keys.Diagram):
		v.setMode(viewmode.Diagram)
	case key.Matches(kn, keys.Theme):
		if _, err := s.ToggleTheme(); err != nil && !stderrors.Is(err, theme.ErrToggleBusy) {
			s.Notices().Err(notify.Warning, err)
		}
	case key.Matches(kn, keys.Next):
		v.step(1)
	case key.Matches(kn, keys.Prev):
		v.step(-1)
	case key.Matches(kn, keys.Refresh):
		s.RefreshList(v.ctx)
	case key.Matches(kn, keys.Export):
		v.exportDiagram()
	}
	if s.Views().State().Mode != viewmode.Graph {
		return
	}

	cam := v.surf.Camera()
	switch {
	case key.Matches(kn, keys.OrbitLeft):
		v.orbit(-orbitStep, 0)
	case key.Matches(kn, keys.OrbitRight):
		v.orbit(orbitStep, 0)
	case key.Matches(kn, keys.OrbitUp):
		v.orbit(0, orbitStep)
	case key.Matches(kn, keys.OrbitDown):
		v.orbit(0, -orbitStep)
	case key.Matches(kn, keys.ZoomIn):
		v.surf.MoveCamera(cam.Zoom(1/zoomStep), 0)
	case key.Matches(kn, keys.ZoomOut):
		v.surf.MoveCamera(cam.Zoom(zoomStep), 0)
	case key.Matches(kn, keys.RollLeft):
		v.surf.MoveCamera(cam.Roll(-rollStep), 0)
	case key.Matches(kn, keys.RollRight):
		v.surf.MoveCamera(cam.Roll(rollStep), 0)
	case key.Matches(kn, keys.Home):
		v.surf.MoveCamera(render.DefaultCamera(), 0)
	case key.Matches(kn, keys.CursorNext):
		v.moveCursor(1)
	case key.Matches(kn, keys.CursorPrev):
		v.moveCursor(-1)
	case key.Matches(kn, keys.Select):
		if id := v.cursorID(); id != "" {
			s.Selection().Toggle(id)
		}
	case key.Matches(kn, keys.Focus):
		_ = s.State().FocusSelected()
	case key.Matches(kn, keys.ShowAll):
		_ = s.State().ResetToFull()
	case key.Matches(kn, keys.ClearSel):
		s.Selection().Clear()
	case key.Matches(kn, keys.Category):
		next := graph.TypeClass
		if s.Selection().Category() == graph.TypeClass {
			next = graph.TypeModule
		}
		s.SetCategory(next)
		v.cursor = 0
	case key.Matches(kn, keys.NudgeLeft):
		v.nudge(graph.Vec3{X: -nudgeStep})
	case key.Matches(kn, keys.NudgeRight):
		v.nudge(graph.Vec3{X: nudgeStep})
	case key.Matches(kn, keys.NudgeUp):
		v.nudge(graph.Vec3{Y: nudgeStep})
	case key.Matches(kn, keys.NudgeDown):
		v.nudge(graph.Vec3{Y: -nudgeStep})
	}
}

// setMode activates the surface before graph mode is entered, so the
// resident dataset is redrawn.
func (v *viewer) setMode(m viewmode.Mode) {
	v.surf.SetActive(m == viewmode.Graph)
	v.sess.SetMode(v.ctx, m)
}

func (v *viewer) orbit(yaw, pitch float64) {
	v.surf.MoveCamera(v.surf.Camera().Orbit(yaw, pitch), 0)
}

// step loads the next (dir 1) or previous (dir -1) dataset in list order.
func (v *viewer) step(dir int) {
	names := v.sess.Datasets()
	if len(names) == 0 {
		return
	}
	cur := v.sess.Views().State().File
	i := 0
	for j, n := range names {
		if n == cur {
			i = j + dir
			break
		}
	}
	i = min(max(i, 0), len(names)-1)
	if names[i] != cur {
		v.sess.Load(v.ctx, names[i])
	}
}

func (v *viewer) moveCursor(d int) {
	items := v.sess.Selection().Items()
	if len(items) == 0 {
		return
	}
	v.cursor = (v.cursor + d + len(items)) % len(items)
}

func (v *viewer) clampCursor() {
	n := len(v.sess.Selection().Items())
	if v.cursor >= n {
		v.cursor = max(0, n-1)
	}
}

func (v *viewer) cursorID() string {
	items := v.sess.Selection().Items()
	if v.cursor < 0 || v.cursor >= len(items) {
		return ""
	}
	return items[v.cursor].ID
}

// nudge drags the cursor node by delta and ends the interaction, which
// schedules a layout save.
func (v *viewer) nudge(delta graph.Vec3) {
	id := v.cursorID()
	node, ok := v.sess.State().Canonical().Node(id)
	if !ok {
		return
	}
	var pos graph.Vec3
	if node.Pos != nil {
		pos = *node.Pos
	}
	pos = graph.Vec3{X: pos.X + delta.X, Y: pos.Y + delta.Y, Z: pos.Z + delta.Z}
	if err := v.sess.MoveNode(id, pos); err != nil {
		v.sess.Notices().Err(notify.Warning, err)
	}
	v.surf.changed()
}

// exportDiagram copies the shown diagram asset into the working directory.
func (v *viewer) exportDiagram() {
	st := v.sess.Views().State()
	if st.Mode != viewmode.Diagram || !st.Available {
		return
	}
	asset := st.Asset
	loop.Async(v.sess.Loop(), func() (string, error) {
		data, err := v.sess.Backend().FetchAsset(v.ctx, asset)
		if err != nil {
			return "", err
		}
		return asset, os.WriteFile(filepath.Base(asset), data, 0o644)
	}, func(path string, err error) {
		if err != nil {
			v.sess.Notices().Err(notify.Error, fmt.Errorf("export %s: %w", asset, err))
			return
		}
		v.sess.Notices().Successf("Saved %s", path)
	})
}

// =============================================================================
// Frames
// =============================================================================

// frameMsg is an immutable picture of the session for the UI.
type frameMsg struct {
	Scene    string
	Dataset  string
	Mode     viewmode.State
	Theme    theme.Theme
	Palette  theme.Palette
	Category graph.NodeType
	Items    []itemRow
	Cursor   int
	Detail   []string
	Notices  []notify.Notification
	Datasets int
	Busy     bool
	Loading  bool
	Focused  bool
	Saving   bool
}

type itemRow struct {
	Label    string
	Selected bool
}

func (v *viewer) sceneSize() (int, int) {
	return max(v.width-sidebarWidth-1, 10), max(v.height-3, 5)
}

func (v *viewer) frame() frameMsg {
	s := v.sess
	sel := s.Selection()

	f := frameMsg{
		Dataset:  s.State().Name(),
		Mode:     s.Views().State(),
		Theme:    s.Theme().Current(),
		Palette:  s.Theme().Palette(),
		Category: sel.Category(),
		Cursor:   v.cursor,
		Notices:  append([]notify.Notification(nil), v.notices...),
		Datasets: len(s.Datasets()),
		Busy:     s.Busy(),
		Loading:  s.Loader().Loading(),
		Focused:  s.State().Focused(),
		Saving:   s.Persister().Pending() || s.Persister().Submitting(),
	}
	for _, n := range sel.Items() {
		f.Items = append(f.Items, itemRow{Label: n.ID, Selected: sel.Has(n.ID)})
	}
	if id := sel.Detail(); id != "" {
		if n, ok := s.State().Canonical().Node(id); ok {
			f.Detail = nodeDetail(n)
		}
	}

	w, h := v.sceneSize()
	if f.Mode.Mode == viewmode.Graph {
		f.Scene = v.surf.Frame(w, h, sceneOpts{Cursor: v.cursorID(), Selected: sel.Has}).styled(v.surf.Palette())
	} else {
		f.Scene = diagramPanel(f.Mode, w, h)
	}
	return f
}

// nodeDetail describes n for the detail panel.
func nodeDetail(n *graph.Node) []string {
	lines := []string{n.ID, string(n.Type)}
	add := func(label, value string) {
		if value != "" {
			lines = append(lines, label+": "+value)
		}
	}
	add("package", n.Package)
	add("module", n.Module)
	add("version", n.Version)
	if n.LinesOfCode > 0 {
		add("lines", fmt.Sprint(n.LinesOfCode))
	}
	add("complexity", n.Complexity)
	var flags []string
	for _, f := range []struct {
		on   bool
		name string
	}{{n.IsAbstract, "abstract"}, {n.IsFinal, "final"}, {n.IsStatic, "static"}} {
		if f.on {
			flags = append(flags, f.name)
		}
	}
	add("flags", strings.Join(flags, ", "))
	for _, a := range n.Attributes {
		lines = append(lines, "  "+a)
	}
	for _, m := range n.Methods {
		lines = append(lines, "  "+m+"()")
	}
	if n.Type == graph.TypeModule && len(n.Classes) > 0 {
		lines = append(lines, fmt.Sprintf("classes: %d", len(n.Classes)))
	}
	if len(lines) > maxDetail {
		lines = append(lines[:maxDetail-1], "…")
	}
	return lines
}

// diagramPanel is the diagram mode body.
func diagramPanel(st viewmode.State, w, h int) string {
	var body string
	switch {
	case st.File == "":
		body = StyleDim.Render("No dataset selected")
	case st.Probing:
		body = StyleDim.Render("Looking for " + st.Asset + "…")
	case st.Available:
		body = StyleSuccess.Render(iconSuccess+" Diagram "+st.Asset) + "\n\n" +
			StyleDim.Render("press e to save it to the working directory")
	default:
		body = StyleWarning.Render("No diagram for "+st.File) + "\n\n" +
			StyleDim.Render("render one with ") + styleCommand.Render("kudsight diagram "+st.File)
	}
	return lipgloss.Place(w, h, lipgloss.Center, lipgloss.Center, body)
}

// =============================================================================
// viewModel - bubbletea model
// =============================================================================

type viewModel struct {
	v       *viewer
	frame   frameMsg
	spinner spinner.Model
	help    help.Model
	ready   bool
}

func newViewModel(v *viewer) viewModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styleIconSpinner
	h := help.New()
	h.Styles.ShortKey = StyleDim
	h.Styles.FullKey = StyleHighlight
	return viewModel{v: v, spinner: sp, help: h}
}

func (m viewModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m viewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		w, h := msg.Width, msg.Height
		m.help.Width = w
		m.v.post(func() { m.v.resize(w, h) })
	case frameMsg:
		m.frame = msg
		m.ready = true
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		}
		k := msg.String()
		m.v.post(func() { m.v.handleKey(k) })
	}
	return m, nil
}

func (m viewModel) View() string {
	if !m.ready {
		return m.spinner.View() + " Starting…"
	}
	f := m.frame
	body := lipgloss.JoinHorizontal(lipgloss.Top, f.Scene, m.sidebar())
	return lipgloss.JoinVertical(lipgloss.Left, m.header(), body, m.footer())
}

func (m viewModel) header() string {
	f := m.frame
	name := f.Dataset
	if f.Mode.File != "" {
		name = f.Mode.File
	}
	if name == "" {
		name = "no dataset"
	}
	parts := []string{
		StyleTitle.Render(appName),
		StyleHighlight.Render(name),
		StyleDim.Render(string(f.Mode.Mode) + " · " + string(f.Theme)),
	}
	if f.Focused {
		parts = append(parts, StyleWarning.Render("focused"))
	}
	switch {
	case f.Busy:
		parts = append(parts, m.spinner.View()+StyleDim.Render("analyzing"))
	case f.Loading:
		parts = append(parts, m.spinner.View()+StyleDim.Render("loading"))
	case f.Saving:
		parts = append(parts, StyleDim.Render("saving layout"))
	}
	return strings.Join(parts, "  ")
}

func (m viewModel) sidebar() string {
	f := m.frame
	var b strings.Builder

	title := "Modules"
	if f.Category == graph.TypeClass {
		title = "Classes"
	}
	b.WriteString(StyleTitle.Render(title) + "\n")
	start := max(0, min(f.Cursor-5, len(f.Items)-10))
	end := min(len(f.Items), start+10)
	for i := start; i < end; i++ {
		it := f.Items[i]
		mark := "  "
		if it.Selected {
			mark = StyleSuccess.Render("* ")
		}
		label := truncate(shortName(it.Label), sidebarWidth-5)
		switch {
		case i == f.Cursor:
			b.WriteString(mark + listSelectedStyle.Render(label))
		case it.Selected:
			b.WriteString(mark + listNormalStyle.Render(label))
		default:
			b.WriteString(mark + listDimStyle.Render(label))
		}
		b.WriteByte('\n')
	}
	b.WriteString(listDimStyle.Render(fmt.Sprintf("[%d/%d]  %d datasets", min(f.Cursor+1, len(f.Items)), len(f.Items), f.Datasets)))
	b.WriteString("\n\n")

	if len(f.Detail) > 0 {
		b.WriteString(StyleTitle.Render("Detail") + "\n")
		for _, l := range f.Detail {
			b.WriteString(StyleValue.Render(truncate(l, sidebarWidth-2)) + "\n")
		}
	}
	return sidebarStyle.Render(b.String())
}

func (m viewModel) footer() string {
	f := m.frame
	if len(f.Notices) > 0 && !m.help.ShowAll {
		return noticeLine(f.Notices[len(f.Notices)-1])
	}
	return m.help.View(keys)
}

func noticeLine(n notify.Notification) string {
	switch n.Level {
	case notify.Error:
		return styleIconError.Render(iconError) + " " + n.Message
	case notify.Warning:
		return styleIconWarning.Render(iconWarning) + " " + StyleWarning.Render(n.Message)
	case notify.Success:
		return styleIconSuccess.Render(iconSuccess) + " " + n.Message
	}
	return styleIconInfo.Render(iconInfo) + " " + n.Message
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n || n < 1 {
		return s
	}
	return string(r[:n-1]) + "…"
}
