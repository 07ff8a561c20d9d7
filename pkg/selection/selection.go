// Package selection tracks which nodes the user has picked.
//
// A [Model] holds the current category list (all nodes of one type in the
// loaded dataset) and the set of selected ids within it. Rebuilding the list
// always clears the selection: ids picked from one list are meaningless in
// another.
//
// The model is loop-confined.
package selection

import (
	"github.com/matzehuels/kudsight/pkg/event"
	"github.com/matzehuels/kudsight/pkg/graph"
)

// Set is an immutable snapshot of selected node ids.
type Set struct {
	ids    map[string]struct{}
	detail string
}

// NewSet returns a set of ids. The detail id is the last one given.
func NewSet(ids ...string) Set {
	s := Set{ids: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		s.ids[id] = struct{}{}
		s.detail = id
	}
	return s
}

// Has reports whether id is selected.
func (s Set) Has(id string) bool {
	_, ok := s.ids[id]
	return ok
}

// Len returns the number of selected ids.
func (s Set) Len() int { return len(s.ids) }

// Empty reports whether nothing is selected.
func (s Set) Empty() bool { return len(s.ids) == 0 }

// IDs returns a copy of the selected ids as a lookup set.
func (s Set) IDs() map[string]struct{} {
	out := make(map[string]struct{}, len(s.ids))
	for id := range s.ids {
		out[id] = struct{}{}
	}
	return out
}

// Detail returns the most recently added id that is still selected, or "".
func (s Set) Detail() string { return s.detail }

// Changed is published after every selection or category list change.
type Changed struct {
	Category graph.NodeType
	Members  Set
}

// Model is the selection state for one session.
type Model struct {
	category graph.NodeType
	items    []*graph.Node
	selected map[string]struct{}
	order    []string

	changes event.Bus[Changed]
}

// New returns an empty model listing module nodes.
func New() *Model {
	return &Model{category: graph.TypeModule, selected: map[string]struct{}{}}
}

// Subscribe registers fn for selection changes.
func (m *Model) Subscribe(fn func(Changed)) (cancel func()) {
	return m.changes.Subscribe(fn)
}

// Bus exposes the change bus for subscriber enumeration.
func (m *Model) Bus() *event.Bus[Changed] { return &m.changes }

// Category returns the node type the item list is built from.
func (m *Model) Category() graph.NodeType { return m.category }

// Items returns the current category list.
func (m *Model) Items() []*graph.Node { return m.items }

// Rebuild lists the nodes of category in ds and clears the selection. A nil
// dataset yields an empty list.
func (m *Model) Rebuild(ds *graph.Dataset, category graph.NodeType) []*graph.Node {
	m.category = category
	m.items = nil
	if ds != nil {
		m.items = ds.NodesOfType(category)
	}
	m.reset()
	m.publish()
	return m.items
}

// Add selects id. It reports whether the selection changed.
func (m *Model) Add(id string) bool {
	if _, ok := m.selected[id]; ok {
		return false
	}
	m.selected[id] = struct{}{}
	m.order = append(m.order, id)
	m.publish()
	return true
}

// Remove deselects id. It reports whether the selection changed.
func (m *Model) Remove(id string) bool {
	if _, ok := m.selected[id]; !ok {
		return false
	}
	delete(m.selected, id)
	for i, o := range m.order {
		if o == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	m.publish()
	return true
}

// Toggle flips the selection of id and reports whether it is now selected.
func (m *Model) Toggle(id string) bool {
	if m.Has(id) {
		m.Remove(id)
		return false
	}
	m.Add(id)
	return true
}

// Clear deselects everything.
func (m *Model) Clear() {
	if len(m.selected) == 0 {
		return
	}
	m.reset()
	m.publish()
}

// Has reports whether id is selected.
func (m *Model) Has(id string) bool {
	_, ok := m.selected[id]
	return ok
}

// Len returns the number of selected ids.
func (m *Model) Len() int { return len(m.selected) }

// Detail returns the id whose details should be shown: the most recently
// added id that is still selected, or "" when nothing is selected.
func (m *Model) Detail() string {
	if len(m.order) == 0 {
		return ""
	}
	return m.order[len(m.order)-1]
}

// Members returns a snapshot of the selection.
func (m *Model) Members() Set {
	return NewSet(m.order...)
}

func (m *Model) reset() {
	clear(m.selected)
	m.order = nil
}

func (m *Model) publish() {
	m.changes.Publish(Changed{Category: m.category, Members: m.Members()})
}
