package observability

import (
	"context"
	"fmt"
	"time"
)

// Provider is the main interface for observability (tracing, metrics, logging).
// The workflow engine, the scheduler, and the HTTP helpers all emit their
// telemetry through a Provider. Use slogobs.New for the standard-library
// backed implementation, or NewNoop to disable telemetry entirely.
type Provider interface {
	Tracer
	Metrics
	Logger
}

// Tracer provides span-based tracing capabilities.
type Tracer interface {
	// StartSpan starts a new span and returns a context carrying it.
	StartSpan(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span)
}

// Span represents a single unit of work.
type Span interface {
	// End completes the span.
	End()
	// SetAttributes adds attributes to the span.
	SetAttributes(attrs ...Attribute)
	// SetStatus sets the span status.
	SetStatus(code StatusCode, description string)
	// RecordError records an error on the span.
	RecordError(err error)
	// AddEvent adds a point-in-time event to the span.
	AddEvent(name string, attrs ...Attribute)
}

// StatusCode represents the status of a span.
type StatusCode int

const (
	StatusUnset StatusCode = iota
	StatusOK
	StatusError
)

// Metrics provides metrics collection capabilities.
type Metrics interface {
	// Counter creates or retrieves a monotonically increasing counter.
	Counter(name string) Counter
	// Histogram creates or retrieves a value-distribution metric.
	Histogram(name string) Histogram
}

// Counter is a monotonically increasing metric.
type Counter interface {
	Add(ctx context.Context, value int64, attrs ...Attribute)
}

// Histogram records the distribution of observed values.
type Histogram interface {
	Record(ctx context.Context, value float64, attrs ...Attribute)
}

// Logger provides structured logging capabilities.
type Logger interface {
	Debug(ctx context.Context, msg string, attrs ...Attribute)
	Info(ctx context.Context, msg string, attrs ...Attribute)
	Warn(ctx context.Context, msg string, attrs ...Attribute)
	Error(ctx context.Context, msg string, attrs ...Attribute)
}

// Attribute represents a key-value pair of span, metric, or log metadata.
type Attribute struct {
	Key   string
	Value any
}

// String creates a string attribute.
func String(key, value string) Attribute {
	return Attribute{Key: key, Value: value}
}

// Int creates an int attribute.
func Int(key string, value int) Attribute {
	return Attribute{Key: key, Value: value}
}

// Int64 creates an int64 attribute.
func Int64(key string, value int64) Attribute {
	return Attribute{Key: key, Value: value}
}

// Bool creates a bool attribute.
func Bool(key string, value bool) Attribute {
	return Attribute{Key: key, Value: value}
}

// Duration creates a duration attribute.
func Duration(key string, value time.Duration) Attribute {
	return Attribute{Key: key, Value: value}
}

// Error creates an attribute holding an error message under the "error" key.
func Error(err error) Attribute {
	if err == nil {
		return Attribute{Key: "error", Value: ""}
	}
	return Attribute{Key: "error", Value: err.Error()}
}

// Any creates an attribute with an arbitrary value, stringified lazily by
// the backend.
func Any(key string, value any) Attribute {
	return Attribute{Key: key, Value: value}
}

// Stringify renders an attribute value for text-based backends.
func (a Attribute) Stringify() string {
	switch v := a.Value.(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}
