// Package automation owns the single interactive browser session through
// which every delivery reaches WhatsApp Web.
//
// The Session is an exclusive resource: exactly one exists per process and
// only the dispatcher calls Deliver. The concrete browser mechanics live
// behind the Surface interface so the delivery state machine can be tested
// without a browser; the production Surface drives Chrome via chromedp.
//
// Sending a message mutates external state. Deliver is therefore neither
// idempotent nor safely retryable; callers record the outcome and move on.
package automation
