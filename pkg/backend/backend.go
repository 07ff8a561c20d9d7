// Package backend is the collaborator a session loads datasets from and
// saves layouts to.
//
// Two implementations share the [Backend] interface:
//   - [Client] talks to a kudsight server over HTTP
//   - [Local] reads and writes a [store.Store] directly and runs an
//     [Analyzer] in-process
//
// Both report a missing resource with [ErrNotFound] and a failed analysis as
// a coded error whose user message is shown as is.
package backend

import (
	"context"
	"errors"

	"github.com/matzehuels/kudsight/pkg/graph"
	"github.com/matzehuels/kudsight/pkg/store"
)

// ErrNotFound is returned when a dataset, overlay or asset does not exist.
var ErrNotFound = errors.New("resource not found")

// ErrNetwork is returned for transport failures and unexpected statuses.
var ErrNetwork = errors.New("network error")

// Backend is the set of operations a session needs from its data source.
type Backend interface {
	// ListDatasets returns dataset names, newest first. Overlay files are
	// never listed.
	ListDatasets(ctx context.Context) ([]string, error)

	// FetchDataset returns the raw JSON of a dataset.
	FetchDataset(ctx context.Context, name string) ([]byte, error)

	// OverlayExists reports whether an overlay resource exists.
	OverlayExists(ctx context.Context, name string) (bool, error)

	// FetchOverlay returns a saved layout.
	FetchOverlay(ctx context.Context, name string) (graph.Overlay, error)

	// SubmitOverlay stores a layout under name, replacing any previous one.
	SubmitOverlay(ctx context.Context, name string, o graph.Overlay) error

	// AssetExists reports whether a diagram asset exists.
	AssetExists(ctx context.Context, name string) (bool, error)

	// FetchAsset returns the bytes of a diagram asset.
	FetchAsset(ctx context.Context, name string) ([]byte, error)

	// Analyze runs an analysis of folder and returns the refreshed dataset
	// list, newest first.
	Analyze(ctx context.Context, folder string) ([]string, error)
}

// Response is the status envelope of the mutating endpoints.
type Response struct {
	Status  string   `json:"status"`
	Message string   `json:"message,omitempty"`
	Files   []string `json:"files,omitempty"`
}

// Status values carried by [Response].
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// SavePosRequest is the body of a layout submission.
type SavePosRequest struct {
	Filename string        `json:"filename"`
	Data     graph.Overlay `json:"data"`
}

// MsgPathMissing is the analysis error for a folder that does not exist.
const MsgPathMissing = "Path does not exist."

// MsgInvalidPayload is the submission error for an empty filename or layout.
const MsgInvalidPayload = "Invalid payload"

// DatasetNames filters names down to datasets and orders them newest first.
func DatasetNames(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if graph.IsDatasetName(n) {
			out = append(out, n)
		}
	}
	store.SortNewestFirst(out)
	return out
}
