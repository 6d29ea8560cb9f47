package runctx_test

import (
	"context"
	"testing"

	"github.com/isethius/Autowebsites-sub001/id"
	"github.com/isethius/Autowebsites-sub001/runctx"
)

func TestWith_RoundTrip(t *testing.T) {
	runID := id.NewRunID()
	ctx := runctx.With(context.Background(), runID)

	got, ok := runctx.From(ctx)
	if !ok {
		t.Fatal("expected run ID in context")
	}
	if got != runID {
		t.Errorf("From = %s, want %s", got, runID)
	}
}

func TestFrom_EmptyContext(t *testing.T) {
	_, ok := runctx.From(context.Background())
	if ok {
		t.Fatal("expected no run ID in empty context")
	}
}

func TestWith_NilIDIsNoOp(t *testing.T) {
	ctx := runctx.With(context.Background(), id.Nil)
	if _, ok := runctx.From(ctx); ok {
		t.Fatal("nil run ID should not be attached")
	}
}

func TestWith_InnerWins(t *testing.T) {
	outer := id.NewRunID()
	inner := id.NewRunID()

	ctx := runctx.With(context.Background(), outer)
	ctx = runctx.With(ctx, inner)

	got, ok := runctx.From(ctx)
	if !ok {
		t.Fatal("expected run ID in context")
	}
	if got != inner {
		t.Errorf("From = %s, want inner %s", got, inner)
	}
}
