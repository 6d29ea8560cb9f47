package pipeline

import "sync/atomic"

// CancelFlag is the cooperative cancellation signal shared between the
// scheduler and the cycle it started. Setting the flag never interrupts
// in-flight lead work: the Runner checks it between schedule pairs and
// between lead dispatches and winds down at the next checkpoint.
type CancelFlag struct {
	set atomic.Bool
}

// NewCancelFlag returns an unset flag.
func NewCancelFlag() *CancelFlag { return &CancelFlag{} }

// Cancel sets the flag. Idempotent and safe from any goroutine.
func (f *CancelFlag) Cancel() { f.set.Store(true) }

// Cancelled reports whether the flag has been set. A nil flag is never
// cancelled, so a Runner can be driven without one.
func (f *CancelFlag) Cancelled() bool {
	if f == nil {
		return false
	}
	return f.set.Load()
}
