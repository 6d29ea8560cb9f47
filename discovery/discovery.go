// Package discovery defines the lead discovery contract.
//
// A Source finds candidate businesses for one industry/location pair.
// The pipeline walks the campaign schedule and calls Discover once per
// pair, so implementations only deal with a single query at a time.
// Adapters live in sub-packages; discovery/webdir scrapes public web
// directories.
package discovery

import (
	"context"

	"github.com/isethius/Autowebsites-sub001/lead"
)

// Source finds candidate leads.
type Source interface {
	// Discover returns up to limit candidate leads for the given
	// industry and location. Returning fewer than limit (including
	// none) is not an error.
	Discover(ctx context.Context, industry, location string, limit int) ([]*lead.Lead, error)
}

// SourceFunc adapts a plain function to the Source interface.
type SourceFunc func(ctx context.Context, industry, location string, limit int) ([]*lead.Lead, error)

// Discover implements Source.
func (f SourceFunc) Discover(ctx context.Context, industry, location string, limit int) ([]*lead.Lead, error) {
	return f(ctx, industry, location, limit)
}
