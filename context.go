package autowebsites

import "context"

// Context is an alias for context.Context, re-exported so callers can
// write autowebsites.Context in signatures without importing context.
type Context = context.Context
