// Package store persists datasets, overlays and diagram assets by name.
//
// Names are flat basenames ("run-1.json", "run-1.pos.json", "run-1.png");
// every implementation rejects anything else with an INVALID_PATH error.
//
// Implementations:
//   - [FileStore]: one file per name in a data directory
//   - [MongoStore]: one document per name in a MongoDB collection
package store

import (
	"context"
	"errors"
	"sort"
)

// ErrNotFound is returned by Read when no resource has the given name.
var ErrNotFound = errors.New("not found")

// Store is a flat name/blob store.
type Store interface {
	// List returns every stored name.
	List(ctx context.Context) ([]string, error)

	// Read returns the content stored under name, or ErrNotFound.
	Read(ctx context.Context, name string) ([]byte, error)

	// Exists reports whether name is stored.
	Exists(ctx context.Context, name string) (bool, error)

	// Write stores data under name, replacing any previous content.
	Write(ctx context.Context, name string, data []byte) error

	// Close releases resources.
	Close() error
}

// SortNewestFirst orders names newest first. Analyzer output names embed a
// timestamp, so descending name order is descending age.
func SortNewestFirst(names []string) {
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
}
