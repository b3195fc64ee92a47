// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard dependencies
// on specific observability backends. Consumers can register hooks at startup
// to receive events about resolution, recipe fetches, cache operations, and
// HTTP calls.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// A Prometheus implementation is provided by [NewPrometheus].
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    m := observability.NewPrometheus(prometheus.DefaultRegisterer)
//	    m.Install()
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Resolve().OnResolveStart(ctx, len(roots))
//	// ... resolve ...
//	observability.Resolve().OnResolveComplete(ctx, packages, rounds, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Resolve Hooks
// =============================================================================

// ResolveHooks receives events from the resolver and recipe sources.
type ResolveHooks interface {
	// Resolve events
	OnResolveStart(ctx context.Context, roots int)
	OnResolveComplete(ctx context.Context, packages, rounds int, duration time.Duration, err error)

	// OnFetch records one recipe fetch from a source.
	OnFetch(ctx context.Context, source, identifier string, duration time.Duration, err error)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// HTTP Hooks
// =============================================================================

// HTTPHooks receives events from HTTP client operations.
type HTTPHooks interface {
	// OnRequest records an outgoing HTTP request.
	OnRequest(ctx context.Context, method, host, path string)

	// OnResponse records an HTTP response.
	OnResponse(ctx context.Context, method, host, path string, statusCode int, duration time.Duration)

	// OnError records an HTTP error (network failure, timeout).
	OnError(ctx context.Context, method, host, path string, err error)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopResolveHooks is a no-op implementation of ResolveHooks.
type NoopResolveHooks struct{}

func (NoopResolveHooks) OnResolveStart(context.Context, int)                               {}
func (NoopResolveHooks) OnResolveComplete(context.Context, int, int, time.Duration, error) {}
func (NoopResolveHooks) OnFetch(context.Context, string, string, time.Duration, error)     {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopHTTPHooks is a no-op implementation of HTTPHooks.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string, string)                      {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, string, int, time.Duration) {}
func (NoopHTTPHooks) OnError(context.Context, string, string, string, error)                 {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	resolveHooks  ResolveHooks  = NoopResolveHooks{}
	cacheHooks    CacheHooks    = NoopCacheHooks{}
	httpHooks     HTTPHooks     = NoopHTTPHooks{}
	hooksMu       sync.RWMutex
)

// SetResolveHooks registers custom resolve hooks.
// This should be called once at application startup before any resolution.
func SetResolveHooks(h ResolveHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		resolveHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
// This should be called once at application startup before any cache operations.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// SetHTTPHooks registers custom HTTP hooks.
// This should be called once at application startup before any HTTP operations.
func SetHTTPHooks(h HTTPHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		httpHooks = h
	}
}

// Resolve returns the registered resolve hooks.
func Resolve() ResolveHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return resolveHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// HTTP returns the registered HTTP hooks.
func HTTP() HTTPHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return httpHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	resolveHooks = NoopResolveHooks{}
	cacheHooks = NoopCacheHooks{}
	httpHooks = NoopHTTPHooks{}
}
