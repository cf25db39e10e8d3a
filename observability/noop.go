package observability

import "context"

// NewNoop returns a Provider that discards all telemetry.
// It is the default when no provider is configured.
func NewNoop() Provider {
	return noopProvider{}
}

type noopProvider struct{}

var _ Provider = noopProvider{}

func (noopProvider) StartSpan(ctx context.Context, _ string, _ ...Attribute) (context.Context, Span) {
	return ctx, noopSpan{}
}

func (noopProvider) Counter(string) Counter     { return noopCounter{} }
func (noopProvider) Histogram(string) Histogram { return noopHistogram{} }

func (noopProvider) Debug(context.Context, string, ...Attribute) {}
func (noopProvider) Info(context.Context, string, ...Attribute)  {}
func (noopProvider) Warn(context.Context, string, ...Attribute)  {}
func (noopProvider) Error(context.Context, string, ...Attribute) {}

type noopSpan struct{}

func (noopSpan) End()                          {}
func (noopSpan) SetAttributes(...Attribute)    {}
func (noopSpan) SetStatus(StatusCode, string)  {}
func (noopSpan) RecordError(error)             {}
func (noopSpan) AddEvent(string, ...Attribute) {}

type noopCounter struct{}

func (noopCounter) Add(context.Context, int64, ...Attribute) {}

type noopHistogram struct{}

func (noopHistogram) Record(context.Context, float64, ...Attribute) {}
