package shared

import (
	"context"
	"testing"

	"github.com/google/uuid"
)

func TestTraceID_DefaultDash(t *testing.T) {
	ctx := context.Background()
	if got := TraceID(ctx); got != "-" {
		t.Fatalf("expected '-', got %q", got)
	}
	ctx = WithTraceID(ctx, "")
	if got := TraceID(ctx); got != "-" {
		t.Fatalf("empty trace id should read as '-', got %q", got)
	}
	ctx = WithTraceID(ctx, "abc")
	if got := TraceID(ctx); got != "abc" {
		t.Fatalf("expected abc, got %q", got)
	}
}

func TestNewTraceID_IsV7(t *testing.T) {
	id, err := uuid.Parse(NewTraceID())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if id.Version() != 7 {
		t.Fatalf("version = %d, want 7", id.Version())
	}
}

func TestTaskID_RoundTrip(t *testing.T) {
	ctx := context.Background()
	if got := TaskID(ctx); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
	ctx = WithTaskID(ctx, "1760780000123")
	if got := TaskID(ctx); got != "1760780000123" {
		t.Fatalf("got %q", got)
	}
}

func TestOperation_RoundTrip(t *testing.T) {
	ctx := WithOperation(context.Background(), "export")
	if got := Operation(ctx); got != "export" {
		t.Fatalf("got %q", got)
	}
	ctx = WithOperation(ctx, "import")
	if got := Operation(ctx); got != "import" {
		t.Fatalf("overwrite failed, got %q", got)
	}
}
