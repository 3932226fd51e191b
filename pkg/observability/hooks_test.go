package observability

import (
	"context"
	"testing"
	"time"
)

type countingPipelineHooks struct {
	NoopPipelineHooks
	unfolds int
}

func (h *countingPipelineHooks) OnUnfoldStart(ctx context.Context, top string, normSet []string) {
	h.unfolds++
}

type countingCacheHooks struct {
	NoopCacheHooks
	hits int
}

func (h *countingCacheHooks) OnCacheHit(ctx context.Context, keyType string) {
	h.hits++
}

func TestDefaultHooksAreNoop(t *testing.T) {
	Reset()
	ctx := context.Background()

	// Must not panic
	Pipeline().OnUnfoldStart(ctx, "model", []string{"x"})
	Pipeline().OnUnfoldComplete(ctx, "model", 2, time.Second, nil)
	Cache().OnCacheHit(ctx, "unfold")
	Store().OnStoreOp(ctx, "save", time.Millisecond, nil)
}

func TestSetAndResetHooks(t *testing.T) {
	Reset()
	t.Cleanup(Reset)
	ctx := context.Background()

	ph := &countingPipelineHooks{}
	ch := &countingCacheHooks{}
	SetPipelineHooks(ph)
	SetCacheHooks(ch)

	Pipeline().OnUnfoldStart(ctx, "model", nil)
	Pipeline().OnUnfoldStart(ctx, "model", nil)
	Cache().OnCacheHit(ctx, "model")

	if ph.unfolds != 2 {
		t.Errorf("unfold events = %d, want 2", ph.unfolds)
	}
	if ch.hits != 1 {
		t.Errorf("cache hits = %d, want 1", ch.hits)
	}

	Reset()
	if _, ok := Pipeline().(NoopPipelineHooks); !ok {
		t.Error("Reset should restore noop pipeline hooks")
	}
}

func TestSetNilHooksKeepsCurrent(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	ph := &countingPipelineHooks{}
	SetPipelineHooks(ph)
	SetPipelineHooks(nil)

	if Pipeline() != ph {
		t.Error("SetPipelineHooks(nil) should keep current hooks")
	}
}
