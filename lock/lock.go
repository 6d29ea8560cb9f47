// Package lock provides the named, owner-tokened, TTL-leased mutual
// exclusion primitive that guarantees at most one outreach cycle runs
// cluster-wide.
//
// The contract is compare-and-swap with expiry: any store offering an
// atomic "set if absent or expired" satisfies it. Ownership is proven by
// an opaque token generated at acquire time; a crashed holder is never
// contacted — its lease simply expires and the next acquirer reclaims
// the name.
package lock

import "time"

// Lease is a time-bounded ownership claim on a named lock.
type Lease struct {
	// Name is the lock the lease belongs to.
	Name string `json:"name"`

	// Token proves ownership. Opaque; release and renew succeed only
	// while the store still holds this exact value.
	Token string `json:"token"`

	// ExpiresAt is when the lease lapses unless renewed. After this
	// instant another owner may reclaim the name at any time.
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the lease has lapsed as of now.
func (l *Lease) Expired(now time.Time) bool {
	return now.After(l.ExpiresAt)
}
