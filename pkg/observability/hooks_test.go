package observability

import (
	"context"
	"testing"
	"time"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	// Convergence hooks
	c := NoopConvergenceHooks{}
	c.OnIterationStart(ctx, 1)
	c.OnMeasureComplete(ctx, 1, 12, 3, time.Second, nil)
	c.OnPatchEmitted(ctx, 1, 3)
	c.OnTerminal(ctx, "converged", 2, nil)

	// Collaborator hooks
	co := NoopCollaboratorHooks{}
	co.OnCollaboratorStart(ctx, "optimize", 1)
	co.OnCollaboratorComplete(ctx, "optimize", 1, time.Second, nil)

	// Cache hooks
	ca := NoopCacheHooks{}
	ca.OnCacheHit(ctx, "metrics")
	ca.OnCacheMiss(ctx, "metrics")
	ca.OnCacheSet(ctx, "metrics", 1024)
}

func TestGlobalHooksRegistry(t *testing.T) {
	// Reset to known state
	Reset()

	// Verify defaults are noop
	if _, ok := Convergence().(NoopConvergenceHooks); !ok {
		t.Error("Convergence() should return NoopConvergenceHooks by default")
	}
	if _, ok := Collaborator().(NoopCollaboratorHooks); !ok {
		t.Error("Collaborator() should return NoopCollaboratorHooks by default")
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("Cache() should return NoopCacheHooks by default")
	}

	// Set custom hooks
	customConvergence := &testConvergenceHooks{}
	SetConvergenceHooks(customConvergence)
	if Convergence() != customConvergence {
		t.Error("SetConvergenceHooks should set custom hooks")
	}

	customCollaborator := &testCollaboratorHooks{}
	SetCollaboratorHooks(customCollaborator)
	if Collaborator() != customCollaborator {
		t.Error("SetCollaboratorHooks should set custom hooks")
	}

	customCache := &testCacheHooks{}
	SetCacheHooks(customCache)
	if Cache() != customCache {
		t.Error("SetCacheHooks should set custom hooks")
	}

	// Reset and verify
	Reset()
	if _, ok := Convergence().(NoopConvergenceHooks); !ok {
		t.Error("Reset() should restore NoopConvergenceHooks")
	}
}

func TestSetNilHooksIsIgnored(t *testing.T) {
	Reset()

	custom := &testConvergenceHooks{}
	SetConvergenceHooks(custom)

	// Setting nil should be ignored
	SetConvergenceHooks(nil)

	if Convergence() != custom {
		t.Error("SetConvergenceHooks(nil) should be ignored")
	}

	Reset()
}

// Test implementations
type testConvergenceHooks struct{ NoopConvergenceHooks }
type testCollaboratorHooks struct{ NoopCollaboratorHooks }
type testCacheHooks struct{ NoopCacheHooks }
