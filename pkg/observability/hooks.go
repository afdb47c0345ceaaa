// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard dependencies
// on specific observability backends. Consumers can register hooks at startup
// to receive events about convergence runs, cache operations, and collaborator
// invocations.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// This approach:
//   - Avoids import cycles (hooks are registered by main, not by libraries)
//   - Keeps the core library dependency-free from observability frameworks
//   - Allows different backends (OpenTelemetry, Prometheus, DataDog, etc.)
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetConvergenceHooks(&myConvergenceHooks{})
//	    observability.SetCacheHooks(&myCacheHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Convergence().OnIterationStart(ctx, iteration)
//	// ... measure, decide ...
//	observability.Convergence().OnMeasureComplete(ctx, iteration, slides, failing, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Convergence Hooks
// =============================================================================

// ConvergenceHooks receives events from the convergence controller.
type ConvergenceHooks interface {
	// Iteration events
	OnIterationStart(ctx context.Context, iteration int)

	// Measurement events
	OnMeasureComplete(ctx context.Context, iteration, slideCount, failingCount int, duration time.Duration, err error)

	// Patch events
	OnPatchEmitted(ctx context.Context, iteration, patchCount int)

	// Terminal events
	OnTerminal(ctx context.Context, state string, iteration int, err error)
}

// =============================================================================
// Collaborator Hooks
// =============================================================================

// CollaboratorHooks receives events from collaborator invocations.
type CollaboratorHooks interface {
	// OnCollaboratorStart records an invocation starting.
	OnCollaboratorStart(ctx context.Context, name string, iteration int)

	// OnCollaboratorComplete records an invocation finishing.
	OnCollaboratorComplete(ctx context.Context, name string, iteration int, duration time.Duration, err error)
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
// No-op Implementations
// =============================================================================

// NoopConvergenceHooks is a no-op implementation of ConvergenceHooks.
type NoopConvergenceHooks struct{}

func (NoopConvergenceHooks) OnIterationStart(context.Context, int) {}
func (NoopConvergenceHooks) OnMeasureComplete(context.Context, int, int, int, time.Duration, error) {
}
func (NoopConvergenceHooks) OnPatchEmitted(context.Context, int, int)       {}
func (NoopConvergenceHooks) OnTerminal(context.Context, string, int, error) {}

// NoopCollaboratorHooks is a no-op implementation of CollaboratorHooks.
type NoopCollaboratorHooks struct{}

func (NoopCollaboratorHooks) OnCollaboratorStart(context.Context, string, int) {}
func (NoopCollaboratorHooks) OnCollaboratorComplete(context.Context, string, int, time.Duration, error) {
}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	convergenceHooks  ConvergenceHooks  = NoopConvergenceHooks{}
	collaboratorHooks CollaboratorHooks = NoopCollaboratorHooks{}
	cacheHooks        CacheHooks        = NoopCacheHooks{}
	hooksMu           sync.RWMutex
)

// SetConvergenceHooks registers custom convergence hooks.
// This should be called once at application startup before any runs.
func SetConvergenceHooks(h ConvergenceHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		convergenceHooks = h
	}
}

// SetCollaboratorHooks registers custom collaborator hooks.
// This should be called once at application startup before any runs.
func SetCollaboratorHooks(h CollaboratorHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		collaboratorHooks = h
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

// Convergence returns the registered convergence hooks.
func Convergence() ConvergenceHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return convergenceHooks
}

// Collaborator returns the registered collaborator hooks.
func Collaborator() CollaboratorHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return collaboratorHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	convergenceHooks = NoopConvergenceHooks{}
	collaboratorHooks = NoopCollaboratorHooks{}
	cacheHooks = NoopCacheHooks{}
}
