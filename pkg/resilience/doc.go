// Package resilience implements retry with exponential backoff and graceful
// degradation for batch operations against unreliable devices.
//
// Do retries an operation according to a RetryConfig, backing off between
// attempts and giving up immediately on errors the fault taxonomy marks
// non-retryable. Backoff is the underlying delay calculator, also usable on
// its own for reconnect loops.
//
// RunAll processes a list of independent items, continuing past individual
// failures, and returns a PartialResult. Callers accept the partial outcome
// when the success rate clears a configurable threshold; below it, RunAll
// fails with a validation fault carrying the rate and the threshold.
package resilience
