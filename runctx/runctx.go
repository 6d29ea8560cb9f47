// Package runctx carries the identity of the run that owns the current
// unit of work through context.Context.
//
// The pipeline attaches the run ID before processing each lead, so
// collaborators deep in the call tree (discovery clients, preview
// generators, email senders, extensions) can attribute their logs and
// side effects to the owning run without threading the ID through every
// signature.
package runctx

import (
	"context"

	"github.com/isethius/Autowebsites-sub001/id"
)

type ctxKey struct{}

// With attaches the run ID to the context. A nil run ID is a no-op.
func With(ctx context.Context, runID id.RunID) context.Context {
	if runID.IsNil() {
		return ctx
	}
	return context.WithValue(ctx, ctxKey{}, runID)
}

// From extracts the run ID from the context. The second return is false
// when no run identity is attached.
func From(ctx context.Context) (id.RunID, bool) {
	runID, ok := ctx.Value(ctxKey{}).(id.RunID)
	return runID, ok
}
