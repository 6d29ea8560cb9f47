package autowebsites

import "github.com/isethius/Autowebsites-sub001/id"

// ID is re-exported from the id package so callers can reference
// autowebsites.ID without a second import.
type ID = id.ID

// Prefix is re-exported from the id package.
type Prefix = id.Prefix
