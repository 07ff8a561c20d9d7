package diagram

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/kudsight/pkg/cache"
	"github.com/matzehuels/kudsight/pkg/graph"
	"github.com/matzehuels/kudsight/pkg/observability"
	"github.com/matzehuels/kudsight/pkg/store"
)

// DefaultTTL is how long rendered diagrams stay cached.
const DefaultTTL = 7 * 24 * time.Hour

// RenderFunc renders DOT source. [Render] is the default.
type RenderFunc func(ctx context.Context, dot string, format Format) ([]byte, error)

// Renderer renders datasets with a content-addressed cache in front.
type Renderer struct {
	cache  cache.Cache
	keyer  cache.Keyer
	logger *log.Logger
	render RenderFunc
	ttl    time.Duration
}

// NewRenderer creates a renderer. A nil cache disables caching.
func NewRenderer(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Renderer {
	if c == nil {
		c = cache.NewNullCache()
	}
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Renderer{cache: c, keyer: keyer, logger: logger, render: Render, ttl: DefaultTTL}
}

// WithRenderFunc replaces the Graphviz renderer.
func (r *Renderer) WithRenderFunc(fn RenderFunc) *Renderer {
	r.render = fn
	return r
}

// Render returns the diagram of ds in format. Datasets with the same nodes
// and links share a cache entry regardless of node positions.
func (r *Renderer) Render(ctx context.Context, ds *graph.Dataset, opts Options, format Format) ([]byte, error) {
	key := r.keyer.DiagramKey(graph.Hash(ds), cache.DiagramKeyOpts{
		Format: string(format),
		Theme:  string(opts.Theme) + compactSuffix(opts.Compact),
	})

	hooks := observability.Cache()
	if data, ok, err := r.cache.Get(ctx, key); err != nil {
		r.logger.Warn("diagram cache read failed", "error", err)
	} else if ok {
		hooks.OnCacheHit(ctx, "diagram")
		return data, nil
	}
	hooks.OnCacheMiss(ctx, "diagram")

	data, err := r.render(ctx, ToDOT(ds, opts), format)
	if err != nil {
		return nil, err
	}
	if err := r.cache.Set(ctx, key, data, r.ttl); err != nil {
		r.logger.Warn("diagram cache write failed", "error", err)
	} else {
		hooks.OnCacheSet(ctx, "diagram", len(data))
	}
	return data, nil
}

// Generate renders the dataset stored under name and writes the PNG asset
// next to it. It returns the asset name.
func (r *Renderer) Generate(ctx context.Context, st store.Store, name string, opts Options) (string, error) {
	raw, err := st.Read(ctx, name)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", name, err)
	}
	ds, err := graph.UnmarshalDataset(raw)
	if err != nil {
		return "", err
	}
	ds.Normalize()

	data, err := r.Render(ctx, ds, opts, PNG)
	if err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	asset := graph.DiagramName(name)
	if err := st.Write(ctx, asset, data); err != nil {
		return "", err
	}
	r.logger.Info("wrote diagram", "asset", asset, "bytes", len(data))
	return asset, nil
}

func compactSuffix(compact bool) string {
	if compact {
		return "+compact"
	}
	return ""
}
