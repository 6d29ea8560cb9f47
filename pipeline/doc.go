// Package pipeline executes one admitted outreach cycle from discovery
// through email.
//
// The [Runner] walks four phases in strict order:
//
//  1. Discovery — the weighted (industry, location) schedule is walked
//     sequentially, accumulating candidates up to the cycle's effective
//     lead cap. Each source call is retried on failure and, if it still
//     fails, recorded as a discovery-phase error without aborting the
//     cycle.
//  2. Qualification — a pure filter over the discovered leads; leads
//     that fail are counted as skipped, not as errors.
//  3. Preview, deploy, and email — qualified leads are fed in schedule
//     order to a fixed-size worker pool. A global rate limiter spaces
//     lead starts across the whole pool, and each lead runs through the
//     middleware chain before its phases execute. Workers claim email
//     slots from a shared atomic counter; once the cap is reached the
//     configured policy decides whether previews keep flowing or
//     dispatch stops.
//  4. Aggregation — counters, per-key breakdowns, and phase timings are
//     merged from the concurrent-safe collector onto the owning run.
//
// Every per-lead failure is isolated: it produces a phase-tagged entry
// in the run's error list and a failed or partial [lead.Result], never
// an aborted cycle. Cancellation is cooperative — the [CancelFlag] is
// checked between schedule pairs and between lead dispatches, and
// in-flight work is always allowed to finish.
package pipeline
