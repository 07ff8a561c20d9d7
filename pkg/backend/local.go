package backend

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"

	"github.com/matzehuels/kudsight/pkg/errors"
	"github.com/matzehuels/kudsight/pkg/graph"
	"github.com/matzehuels/kudsight/pkg/store"
)

// Local is a [Backend] over a [store.Store] in the same process. The server
// serves one; the view command uses one when no remote is configured.
type Local struct {
	store    store.Store
	analyzer Analyzer
}

// NewLocal creates a backend over s. A nil analyzer makes Analyze fail with
// an UNSUPPORTED error.
func NewLocal(s store.Store, a Analyzer) *Local {
	return &Local{store: s, analyzer: a}
}

// Store returns the underlying store.
func (b *Local) Store() store.Store { return b.store }

func (b *Local) ListDatasets(ctx context.Context) ([]string, error) {
	names, err := b.store.List(ctx)
	if err != nil {
		return nil, err
	}
	return DatasetNames(names), nil
}

func (b *Local) FetchDataset(ctx context.Context, name string) ([]byte, error) {
	return b.read(ctx, name)
}

func (b *Local) OverlayExists(ctx context.Context, name string) (bool, error) {
	return b.store.Exists(ctx, name)
}

func (b *Local) FetchOverlay(ctx context.Context, name string) (graph.Overlay, error) {
	data, err := b.read(ctx, name)
	if err != nil {
		return nil, err
	}
	return graph.UnmarshalOverlay(data)
}

// SubmitOverlay writes the layout as indented JSON. An empty name or layout
// is rejected with [MsgInvalidPayload].
func (b *Local) SubmitOverlay(ctx context.Context, name string, o graph.Overlay) error {
	if name == "" || len(o) == 0 {
		return errors.New(errors.ErrCodeInvalidInput, MsgInvalidPayload)
	}
	data, err := json.MarshalIndent(o, "", "  ")
	if err != nil {
		return fmt.Errorf("encode layout: %w", err)
	}
	return b.store.Write(ctx, name, data)
}

func (b *Local) AssetExists(ctx context.Context, name string) (bool, error) {
	return b.store.Exists(ctx, name)
}

func (b *Local) FetchAsset(ctx context.Context, name string) ([]byte, error) {
	return b.read(ctx, name)
}

func (b *Local) Analyze(ctx context.Context, folder string) ([]string, error) {
	if b.analyzer == nil {
		return nil, errors.New(errors.ErrCodeUnsupported, "no analyzer configured")
	}
	if err := b.analyzer.Analyze(ctx, folder); err != nil {
		return nil, err
	}
	return b.ListDatasets(ctx)
}

func (b *Local) read(ctx context.Context, name string) ([]byte, error) {
	data, err := b.store.Read(ctx, name)
	if stderrors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return data, err
}

var _ Backend = (*Local)(nil)
