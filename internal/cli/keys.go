package cli

import "github.com/charmbracelet/bubbles/key"

// keyName adapts a key string to key.Matches, so the viewer can be driven
// by plain strings outside a bubbletea program.
type keyName string

func (k keyName) String() string { return string(k) }

type keyMap struct {
	// Any mode
	Graph, Diagram, Theme, Next, Prev, Refresh, Export, Help, Quit key.Binding

	// Graph mode
	OrbitLeft, OrbitRight, OrbitUp, OrbitDown key.Binding
	ZoomIn, ZoomOut, RollLeft, RollRight, Home key.Binding
	CursorNext, CursorPrev, Select, Focus, ShowAll key.Binding
	ClearSel, Category                            key.Binding
	NudgeLeft, NudgeRight, NudgeUp, NudgeDown     key.Binding
}

var keys = keyMap{
	Graph:   key.NewBinding(key.WithKeys("g"), key.WithHelp("g", "graph")),
	Diagram: key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "diagram")),
	Theme:   key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "theme")),
	Next:    key.NewBinding(key.WithKeys("n"), key.WithHelp("n/p", "dataset")),
	Prev:    key.NewBinding(key.WithKeys("p")),
	Refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
	Export:  key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "export diagram")),
	Help:    key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
	Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),

	OrbitLeft:  key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←↑↓→", "orbit")),
	OrbitRight: key.NewBinding(key.WithKeys("right", "l")),
	OrbitUp:    key.NewBinding(key.WithKeys("up", "k")),
	OrbitDown:  key.NewBinding(key.WithKeys("down", "j")),
	ZoomIn:     key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+/-", "zoom")),
	ZoomOut:    key.NewBinding(key.WithKeys("-", "_")),
	RollLeft:   key.NewBinding(key.WithKeys("["), key.WithHelp("[ ]", "roll")),
	RollRight:  key.NewBinding(key.WithKeys("]")),
	Home:       key.NewBinding(key.WithKeys("0"), key.WithHelp("0", "reset camera")),
	CursorNext: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next item")),
	CursorPrev: key.NewBinding(key.WithKeys("shift+tab")),
	Select:     key.NewBinding(key.WithKeys(" ", "space"), key.WithHelp("space", "select")),
	Focus:      key.NewBinding(key.WithKeys("enter", "f"), key.WithHelp("f", "focus")),
	ShowAll:    key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "show all")),
	ClearSel:   key.NewBinding(key.WithKeys("x", "esc"), key.WithHelp("x", "clear")),
	Category:   key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "modules/classes")),
	NudgeLeft:  key.NewBinding(key.WithKeys("H"), key.WithHelp("HJKL", "move node")),
	NudgeRight: key.NewBinding(key.WithKeys("L")),
	NudgeUp:    key.NewBinding(key.WithKeys("K")),
	NudgeDown:  key.NewBinding(key.WithKeys("J")),
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.OrbitLeft, k.ZoomIn, k.RollLeft, k.Home},
		{k.CursorNext, k.Select, k.Focus, k.ShowAll, k.ClearSel},
		{k.Category, k.NudgeLeft, k.Theme, k.Graph, k.Diagram},
		{k.Next, k.Refresh, k.Export, k.Quit},
	}
}
