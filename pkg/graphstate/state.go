// Package graphstate owns the canonical dataset and the view derived from it.
//
// The canonical dataset is what the loader produced, overlay applied. The
// view is what the render surface shows: either the canonical dataset itself
// or a focused subset restricted to the current selection. A focused view
// shares node pointers with the canonical dataset, so a node dragged in the
// focused view is moved in the canonical dataset as well.
//
// Every view change publishes a [ViewChanged] synchronously before the
// mutating call returns.
//
// The state is loop-confined.
package graphstate

import (
	"errors"

	"github.com/matzehuels/kudsight/pkg/event"
	"github.com/matzehuels/kudsight/pkg/graph"
	"github.com/matzehuels/kudsight/pkg/notify"
	"github.com/matzehuels/kudsight/pkg/selection"
)

// Sentinel errors for soft failures. The state is unchanged when they occur.
var (
	ErrNoDataset      = errors.New("no dataset loaded")
	ErrEmptySelection = errors.New("no nodes selected")
)

// Reason names why the view changed.
type Reason string

const (
	ReasonLoaded Reason = "loaded"
	ReasonFocus  Reason = "focus"
	ReasonReset  Reason = "reset"
)

// ViewChanged is published on every view mutation.
type ViewChanged struct {
	Reason    Reason
	Name      string
	View      *graph.Dataset
	Canonical *graph.Dataset
}

// Focused reports whether the view is a filtered subset.
func (v ViewChanged) Focused() bool { return v.View != v.Canonical }

// State is the canonical/view pair for one session.
type State struct {
	name      string
	canonical *graph.Dataset
	view      *graph.Dataset

	sel     *selection.Model
	notices *notify.Center
	changes event.Bus[ViewChanged]
}

// New returns an empty state. Replacing the dataset rebuilds sel's category
// list; soft failures are reported to notices.
func New(sel *selection.Model, notices *notify.Center) *State {
	return &State{sel: sel, notices: notices}
}

// Subscribe registers fn for view changes.
func (s *State) Subscribe(fn func(ViewChanged)) (cancel func()) {
	return s.changes.Subscribe(fn)
}

// Bus exposes the change bus for subscriber enumeration.
func (s *State) Bus() *event.Bus[ViewChanged] { return &s.changes }

// Name returns the name of the loaded dataset.
func (s *State) Name() string { return s.name }

// Canonical returns the loaded dataset, or nil.
func (s *State) Canonical() *graph.Dataset { return s.canonical }

// View returns the displayed dataset, or nil.
func (s *State) View() *graph.Dataset { return s.view }

// Focused reports whether the view is a filtered subset.
func (s *State) Focused() bool { return s.view != s.canonical }

// Loaded reports whether a dataset is installed.
func (s *State) Loaded() bool { return s.canonical != nil }

// Replace installs ds as the canonical dataset and shows it in full. The
// selection's category list is rebuilt for the current category, which clears
// the selection.
func (s *State) Replace(name string, ds *graph.Dataset) {
	s.name = name
	s.canonical = ds
	s.view = ds
	s.sel.Rebuild(ds, s.sel.Category())
	s.publish(ReasonLoaded)
}

// ApplyFocus restricts the view to the nodes in sel and the canonical links
// between them. An empty selection or a missing dataset leaves the view
// untouched and posts a warning.
func (s *State) ApplyFocus(sel selection.Set) error {
	if s.canonical == nil {
		s.warn(ErrNoDataset)
		return ErrNoDataset
	}
	if sel.Empty() {
		s.warn(ErrEmptySelection)
		return ErrEmptySelection
	}
	s.view = s.canonical.Filter(sel.IDs())
	s.publish(ReasonFocus)
	return nil
}

// FocusSelected applies the selection model's current members.
func (s *State) FocusSelected() error {
	return s.ApplyFocus(s.sel.Members())
}

// ResetToFull shows the whole canonical dataset and clears the selection.
func (s *State) ResetToFull() error {
	if s.canonical == nil {
		s.warn(ErrNoDataset)
		return ErrNoDataset
	}
	s.view = s.canonical
	s.sel.Clear()
	s.publish(ReasonReset)
	return nil
}

func (s *State) warn(err error) {
	if s.notices != nil {
		s.notices.Warnf("%s", capitalize(err.Error()))
	}
}

func (s *State) publish(r Reason) {
	s.changes.Publish(ViewChanged{Reason: r, Name: s.name, View: s.view, Canonical: s.canonical})
}

func capitalize(msg string) string {
	if msg == "" || msg[0] < 'a' || msg[0] > 'z' {
		return msg
	}
	return string(msg[0]-'a'+'A') + msg[1:]
}
