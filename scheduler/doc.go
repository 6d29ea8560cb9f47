// Package scheduler decides when outreach cycles run and guards their
// admission. A Trigger (usually cron) fires attempts; each attempt walks
// a fixed gate sequence — local busy mutex, run-hours window, daily
// quota, distributed lock — and only a fully admitted attempt creates a
// Run and hands it to the pipeline on its own goroutine.
//
// The gates are ordered cheapest-first and short-circuit: a process that
// is already running a cycle never touches the store, and the
// distributed lock is checked last because acquiring it has side
// effects. The lock is the authoritative mutual-exclusion mechanism
// across instances; the quota check is advisory (two instances can both
// read Remaining > 0, the lock serializes them).
//
// While a cycle runs the scheduler renews the lock lease at half the
// TTL and releases it in a deferred cleanup regardless of how the cycle
// ends. Cancellation is cooperative: CancelCurrent sets a flag the
// pipeline observes between lead dispatches, and Stop requests the same
// before waiting (bounded) for the active cycle to wind down.
package scheduler
