// Package observability provides hooks for metrics and tracing.
//
// Libraries call hooks; main registers implementations. kudsight ships a
// Prometheus implementation in internal/metrics, registered by the serve and
// view commands. Without registration every hook is a no-op.
//
// # Usage
//
// Register hooks at application startup:
//
//	observability.SetSessionHooks(metrics.Session())
//	observability.SetHTTPHooks(metrics.HTTP())
//
// Libraries emit events:
//
//	observability.Session().OnLoadStart(ctx, name)
//	// ... fetch and merge ...
//	observability.Session().OnLoadComplete(ctx, name, nodes, time.Since(start), err)
package observability

import (
	"context"
	"sync/atomic"
	"time"
)

// SessionHooks receives events from the graph session.
type SessionHooks interface {
	// Load events
	OnLoadStart(ctx context.Context, name string)
	OnLoadComplete(ctx context.Context, name string, nodeCount int, duration time.Duration, err error)

	// OnOverlaySkipped records a load that applied no saved layout.
	OnOverlaySkipped(ctx context.Context, name string, reason string)

	// OnFlush records a layout flush and its outcome.
	OnFlush(ctx context.Context, name string, positions int, err error)
}

// CacheHooks receives events from preference and diagram cache lookups.
// keyType names the kind of entry, such as "pref" or "diagram".
type CacheHooks interface {
	OnCacheHit(ctx context.Context, keyType string)
	OnCacheMiss(ctx context.Context, keyType string)
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// HTTPHooks receives events from HTTP client operations.
type HTTPHooks interface {
	// OnRequest records an outgoing HTTP request.
	OnRequest(ctx context.Context, method, host, path string)

	// OnResponse records an HTTP response.
	OnResponse(ctx context.Context, method, host, path string, statusCode int, duration time.Duration)

	// OnError records an HTTP error (network failure, timeout).
	OnError(ctx context.Context, method, host, path string, err error)
}

// NoopSessionHooks ignores every session event.
type NoopSessionHooks struct{}

func (NoopSessionHooks) OnLoadStart(context.Context, string)                              {}
func (NoopSessionHooks) OnLoadComplete(context.Context, string, int, time.Duration, error) {}
func (NoopSessionHooks) OnOverlaySkipped(context.Context, string, string)                 {}
func (NoopSessionHooks) OnFlush(context.Context, string, int, error)                      {}

// NoopCacheHooks ignores every cache event.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopHTTPHooks ignores every HTTP client event.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string, string)                      {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, string, int, time.Duration) {}
func (NoopHTTPHooks) OnError(context.Context, string, string, string, error)                 {}

// registry is replaced as a whole on every Set call so readers never lock.
type registry struct {
	session SessionHooks
	cache   CacheHooks
	http    HTTPHooks
}

var current atomic.Pointer[registry]

func init() { Reset() }

func update(fn func(r *registry)) {
	for {
		old := current.Load()
		next := *old
		fn(&next)
		if current.CompareAndSwap(old, &next) {
			return
		}
	}
}

// SetSessionHooks registers session hooks. A nil value is ignored.
func SetSessionHooks(h SessionHooks) {
	if h != nil {
		update(func(r *registry) { r.session = h })
	}
}

// SetCacheHooks registers cache hooks. A nil value is ignored.
func SetCacheHooks(h CacheHooks) {
	if h != nil {
		update(func(r *registry) { r.cache = h })
	}
}

// SetHTTPHooks registers HTTP client hooks. A nil value is ignored.
func SetHTTPHooks(h HTTPHooks) {
	if h != nil {
		update(func(r *registry) { r.http = h })
	}
}

func Session() SessionHooks { return current.Load().session }
func Cache() CacheHooks     { return current.Load().cache }
func HTTP() HTTPHooks       { return current.Load().http }

// Reset restores the no-op hooks.
func Reset() {
	current.Store(&registry{NoopSessionHooks{}, NoopCacheHooks{}, NoopHTTPHooks{}})
}
