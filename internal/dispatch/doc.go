// Package dispatch drives a campaign's recipient queue through the
// automation session, one recipient at a time.
//
// The service owns exactly one worker because the session is an exclusive
// resource: one browser identity can only "be" in one conversation, and
// parallel sends would defeat the pacing policy. Runs are queued and
// processed in submission order; per-recipient outcomes are recorded in
// queue order and kept (bounded, TTL-pruned) for status polling.
//
// Failure semantics: a recipient's failure never aborts the run. The only
// run-aborting condition is the session reporting itself closed, which
// fail-fasts the remainder while preserving the outcomes already collected.
package dispatch
