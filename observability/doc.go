// Package observability defines the telemetry contract shared by the
// workflow engine, the deferred scheduler, and the outbound HTTP helpers:
// span-based tracing, counters and histograms, and structured logging behind
// a single Provider interface.
//
// The interface is deliberately minimal so that backends stay pluggable.
// The slogobs subpackage provides a standard-library implementation; NewNoop
// disables telemetry. Spans travel through the context via ContextWithSpan /
// SpanFromContext so that deeply nested helpers can attach events without
// threading a Span parameter everywhere.
package observability
