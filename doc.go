// Package conout implements the client-side matching workflow for the Conout
// blind-date event service: register with an institutional email, verify it
// with a one-time code, submit event preferences, and retrieve the computed
// match.
//
// The package is the reusable core behind a presentation layer. [Flow] is the
// workflow state machine; it is built through [Builder.Build] with an injected
// [APIClient] and is safe to call from multiple goroutines afterwards.
//
// # Architecture boundaries
//
// conout is the public surface. It exposes [Flow], [Builder], [Config], the
// validation rules, and value types (Match, Preferences, FlowState). The HTTP
// rendition of the API contract lives in the httpapi subpackage; a reference
// backend for local development lives in devserver. The Flow never touches a
// transport directly: all network I/O goes through the [APIClient] interface.
//
// # What this package must NOT do
//
//   - Perform I/O outside of [APIClient] dispatches (construction via Builder
//     is allocation-only until Build).
//   - Retry a failed request on its own. Every retry is an explicit caller
//     action; failures only park the flow in its current step.
//   - Persist anything. Workflow state lives in memory and dies with Reset.
//
// # Completion contract
//
// Each step operation validates its input, dispatches at most one request, and
// applies the completion under a single mutex with a generation check, so a
// stale completion (for example a slow resend resolving after the flow has
// already advanced) can never mutate a step it no longer belongs to.
// Transition notifications for the presentation layer are delivered through
// the [EventSink] configured on the Builder.
package conout
