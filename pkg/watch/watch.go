// Package watch reports new and changed datasets in a data directory.
//
// Changes are collected and delivered in batches once per interval, so an
// analyzer writing many files produces one callback. Overlay files are
// ignored: they are written by sessions themselves and do not change the
// dataset list.
package watch

import (
	"context"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"

	"github.com/matzehuels/kudsight/pkg/graph"
)

// DefaultInterval is the batching interval.
const DefaultInterval = 500 * time.Millisecond

// Change is one batch of changed file names, sorted.
type Change struct {
	Names []string
}

// Relevant reports whether name can affect what a session shows.
func Relevant(name string) bool {
	if strings.HasSuffix(name, ".pos.json") {
		return false
	}
	return graph.IsDatasetName(name) || strings.HasSuffix(name, ".png")
}

// Watcher watches one directory.
type Watcher struct {
	dir      string
	interval time.Duration
	logger   *log.Logger
	fsw      *fsnotify.Watcher
}

// New starts watching dir. Call Run to receive changes.
func New(dir string, interval time.Duration, logger *log.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, err
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Watcher{dir: dir, interval: interval, logger: logger, fsw: fsw}, nil
}

// Run delivers batches to fn until ctx is cancelled, then releases the
// watcher. fn runs on Run's goroutine.
func (w *Watcher) Run(ctx context.Context, fn func(Change)) error {
	defer w.fsw.Close()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	pending := map[string]struct{}{}

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
				continue
			}
			name := filepath.Base(ev.Name)
			if !Relevant(name) {
				continue
			}
			w.logger.Debug("data change", "name", name, "op", ev.Op.String())
			pending[name] = struct{}{}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "dir", w.dir, "error", err)

		case <-ticker.C:
			if len(pending) == 0 {
				continue
			}
			names := make([]string, 0, len(pending))
			for n := range pending {
				names = append(names, n)
			}
			slices.Sort(names)
			clear(pending)
			fn(Change{Names: names})
		}
	}
}
