package pipeline_test

import (
	"fmt"
	"testing"
	"time"

	"nestling/internal/pipeline"
)

func TestEmitterCoalescesBursts(t *testing.T) {
	sink := &recordSink{}
	emitter := pipeline.NewProgressEmitter(sink, 120*time.Millisecond)

	var last pipeline.ProgressSnapshot
	for i := 0; i < 50; i++ {
		last = pipeline.ProgressSnapshot{
			Total:        50,
			Completed:    i,
			CurrentLabel: fmt.Sprintf("photo-%d", i),
			Stage:        pipeline.StageUploading,
			Percent:      i * 2,
		}
		emitter.Emit(last)
	}
	emitter.Flush()

	delivered := sink.batchCount()
	if delivered >= 50 {
		t.Fatalf("burst of 50 emits delivered %d snapshots, expected coalescing", delivered)
	}
	if delivered == 0 {
		t.Fatal("nothing delivered")
	}
	got, _ := sink.lastBatch()
	if got != last {
		t.Fatalf("flush must deliver the newest snapshot, got %+v", got)
	}
	if emitter.Last() != last {
		t.Fatalf("Last() disagrees with delivered snapshot: %+v", emitter.Last())
	}
}

func TestEmitterDeliversAfterWindow(t *testing.T) {
	sink := &recordSink{}
	emitter := pipeline.NewProgressEmitter(sink, 10*time.Millisecond)

	emitter.Emit(pipeline.ProgressSnapshot{Percent: 1})
	if sink.batchCount() != 1 {
		t.Fatalf("first emit should deliver immediately, got %d", sink.batchCount())
	}

	emitter.Emit(pipeline.ProgressSnapshot{Percent: 2})
	deadline := time.Now().Add(2 * time.Second)
	for sink.batchCount() < 2 {
		if time.Now().After(deadline) {
			t.Fatal("buffered snapshot never delivered by the timer")
		}
		time.Sleep(time.Millisecond)
	}
	got, _ := sink.lastBatch()
	if got.Percent != 2 {
		t.Fatalf("timer delivered a stale snapshot: %+v", got)
	}
}

func TestEmitterFlushIsIdempotent(t *testing.T) {
	sink := &recordSink{}
	emitter := pipeline.NewProgressEmitter(sink, 120*time.Millisecond)

	emitter.Emit(pipeline.ProgressSnapshot{Percent: 10})
	emitter.Emit(pipeline.ProgressSnapshot{Percent: 20})
	emitter.Flush()
	emitter.Flush()

	if got := sink.batchCount(); got != 2 {
		t.Fatalf("expected 2 deliveries, got %d", got)
	}
}

func TestEmitterNilSink(t *testing.T) {
	emitter := pipeline.NewProgressEmitter(nil, 0)
	emitter.Emit(pipeline.ProgressSnapshot{Percent: 5})
	emitter.Flush()
}
