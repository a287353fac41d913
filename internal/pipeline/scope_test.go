package pipeline_test

import (
	"context"
	"testing"

	"nestling/internal/pipeline"
)

func TestBatchScopeSupersedes(t *testing.T) {
	var scope pipeline.BatchScope

	first, release1 := scope.Start(context.Background())
	second, release2 := scope.Start(context.Background())
	defer release2()

	select {
	case <-first.Done():
	default:
		t.Fatal("starting a new batch must cancel the previous scope")
	}
	if second.Err() != nil {
		t.Fatal("new scope must start live")
	}

	// Releasing the superseded batch must not touch the active one.
	release1()
	if second.Err() != nil {
		t.Fatal("stale release cancelled the active scope")
	}

	scope.Cancel()
	if second.Err() == nil {
		t.Fatal("Cancel must abort the active scope")
	}
}

func TestBatchScopeCancelIdempotent(t *testing.T) {
	var scope pipeline.BatchScope
	scope.Cancel()
	scope.Cancel()

	ctx, release := scope.Start(context.Background())
	scope.Cancel()
	scope.Cancel()
	release()
	if ctx.Err() == nil {
		t.Fatal("scope not cancelled")
	}
}

func TestBatchScopeReleaseClearsOwnGeneration(t *testing.T) {
	var scope pipeline.BatchScope
	ctx, release := scope.Start(context.Background())
	release()
	if ctx.Err() == nil {
		t.Fatal("release must cancel its own scope")
	}

	next, releaseNext := scope.Start(context.Background())
	defer releaseNext()
	if next.Err() != nil {
		t.Fatal("fresh scope after release must be live")
	}
}
