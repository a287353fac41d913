package logging_test

import (
	"context"
	"strings"
	"testing"

	"nestling/internal/logging"
	"nestling/internal/services"
)

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestNewConsoleAndJSON(t *testing.T) {
	for _, format := range []string{"console", "json", ""} {
		if _, err := logging.New(logging.Options{Format: format, OutputPaths: []string{"stderr"}}); err != nil {
			t.Fatalf("New(%q) failed: %v", format, err)
		}
	}
}

func TestWithContextCarriesFields(t *testing.T) {
	ctx := services.WithTaskID(context.Background(), "task-9")
	ctx = services.WithStage(ctx, "uploading")
	ctx = services.WithBatchID(ctx, "batch-1")

	fields := logging.ContextFields(ctx)
	keys := make([]string, 0, len(fields))
	for _, f := range fields {
		keys = append(keys, f.Key)
	}
	joined := strings.Join(keys, ",")
	for _, want := range []string{logging.FieldTaskID, logging.FieldStage, logging.FieldBatchID} {
		if !strings.Contains(joined, want) {
			t.Fatalf("missing %s in context fields: %v", want, keys)
		}
	}

	logger := logging.WithContext(ctx, logging.NewNop())
	if logger == nil {
		t.Fatal("expected logger")
	}
}

func TestWithContextNilLogger(t *testing.T) {
	if logger := logging.WithContext(context.Background(), nil); logger == nil {
		t.Fatal("expected fallback no-op logger")
	}
}
