// Package slogobs implements observability.Provider on top of the standard
// library log/slog. It routes spans, metrics, and log events through a
// structured logger, which keeps lightweight deployments free of external
// telemetry dependencies.
package slogobs

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/voicegraph/voicegraph/observability"
)

// Provider implements observability.Provider using log/slog.
type Provider struct {
	logger  *slog.Logger
	metrics *metricsStore
}

var _ observability.Provider = (*Provider)(nil)

// Option configures a Provider.
type Option func(*config)

type config struct {
	logger *slog.Logger
	level  slog.Leveler
}

// WithLogger uses an existing slog.Logger instead of constructing one.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *config) {
		cfg.logger = logger
	}
}

// WithLevel sets the minimum log level for the built-in handler.
// Ignored when WithLogger is used.
func WithLevel(level slog.Leveler) Option {
	return func(cfg *config) {
		cfg.level = level
	}
}

// New creates a slog-based provider. Without options it builds a text handler
// writing to stderr, with the level taken from VOICEGRAPH_LOG_LEVEL
// (debug|info|warn|error, default info).
func New(opts ...Option) *Provider {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	logger := cfg.logger
	if logger == nil {
		level := cfg.level
		if level == nil {
			level = levelFromEnv()
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	}

	return &Provider{
		logger:  logger,
		metrics: &metricsStore{},
	}
}

func levelFromEnv() slog.Level {
	switch strings.ToLower(os.Getenv("VOICEGRAPH_LOG_LEVEL")) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// --- TRACING ---

// StartSpan begins a named span, logging its start at debug level.
// The span's End method logs the elapsed duration.
func (p *Provider) StartSpan(ctx context.Context, name string, attrs ...observability.Attribute) (context.Context, observability.Span) {
	span := &slogSpan{
		name:      name,
		startTime: time.Now(),
		logger:    p.logger,
		attrs:     attrs,
	}
	p.logger.DebugContext(ctx, "span.start", slogArgs(name, attrs)...)
	return observability.ContextWithSpan(ctx, span), span
}

type slogSpan struct {
	mu        sync.Mutex
	name      string
	startTime time.Time
	logger    *slog.Logger
	attrs     []observability.Attribute
	status    observability.StatusCode
	statusMsg string
}

func (s *slogSpan) End() {
	s.mu.Lock()
	attrs := append([]observability.Attribute{
		observability.Duration("duration", time.Since(s.startTime)),
	}, s.attrs...)
	failed := s.status == observability.StatusError
	statusMsg := s.statusMsg
	s.mu.Unlock()

	if failed {
		attrs = append(attrs, observability.String("status", statusMsg))
		s.logger.Error("span.end", slogArgs(s.name, attrs)...)
		return
	}
	s.logger.Debug("span.end", slogArgs(s.name, attrs)...)
}

func (s *slogSpan) SetAttributes(attrs ...observability.Attribute) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attrs = append(s.attrs, attrs...)
}

func (s *slogSpan) SetStatus(code observability.StatusCode, description string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = code
	s.statusMsg = description
}

func (s *slogSpan) RecordError(err error) {
	if err == nil {
		return
	}
	s.mu.Lock()
	s.attrs = append(s.attrs, observability.Error(err))
	s.mu.Unlock()
	s.logger.Error("span.error", "span", s.name, "error", err.Error())
}

func (s *slogSpan) AddEvent(name string, attrs ...observability.Attribute) {
	args := append([]any{"span", s.name}, attrArgs(attrs)...)
	s.logger.Debug(name, args...)
}

// --- METRICS ---

// metricsStore keeps counters and histogram aggregates in memory and mirrors
// every update to the logger at debug level.
type metricsStore struct {
	mu         sync.Mutex
	counters   map[string]int64
	histograms map[string]*histogramAgg
}

type histogramAgg struct {
	count int64
	sum   float64
}

func (p *Provider) Counter(name string) observability.Counter {
	return &slogCounter{name: name, provider: p}
}

func (p *Provider) Histogram(name string) observability.Histogram {
	return &slogHistogram{name: name, provider: p}
}

type slogCounter struct {
	name     string
	provider *Provider
}

func (c *slogCounter) Add(ctx context.Context, value int64, attrs ...observability.Attribute) {
	store := c.provider.metrics
	store.mu.Lock()
	if store.counters == nil {
		store.counters = make(map[string]int64)
	}
	store.counters[c.name] += value
	total := store.counters[c.name]
	store.mu.Unlock()

	args := append([]any{"value", value, "total", total}, attrArgs(attrs)...)
	c.provider.logger.DebugContext(ctx, "metric.counter."+c.name, args...)
}

type slogHistogram struct {
	name     string
	provider *Provider
}

func (h *slogHistogram) Record(ctx context.Context, value float64, attrs ...observability.Attribute) {
	store := h.provider.metrics
	store.mu.Lock()
	if store.histograms == nil {
		store.histograms = make(map[string]*histogramAgg)
	}
	agg, ok := store.histograms[h.name]
	if !ok {
		agg = &histogramAgg{}
		store.histograms[h.name] = agg
	}
	agg.count++
	agg.sum += value
	store.mu.Unlock()

	args := append([]any{"value", value}, attrArgs(attrs)...)
	h.provider.logger.DebugContext(ctx, "metric.histogram."+h.name, args...)
}

// CounterValue returns the current value of a counter, for tests and
// diagnostics endpoints.
func (p *Provider) CounterValue(name string) int64 {
	p.metrics.mu.Lock()
	defer p.metrics.mu.Unlock()
	return p.metrics.counters[name]
}

// --- LOGGING ---

func (p *Provider) Debug(ctx context.Context, msg string, attrs ...observability.Attribute) {
	p.logger.DebugContext(ctx, msg, attrArgs(attrs)...)
}

func (p *Provider) Info(ctx context.Context, msg string, attrs ...observability.Attribute) {
	p.logger.InfoContext(ctx, msg, attrArgs(attrs)...)
}

func (p *Provider) Warn(ctx context.Context, msg string, attrs ...observability.Attribute) {
	p.logger.WarnContext(ctx, msg, attrArgs(attrs)...)
}

func (p *Provider) Error(ctx context.Context, msg string, attrs ...observability.Attribute) {
	p.logger.ErrorContext(ctx, msg, attrArgs(attrs)...)
}

func slogArgs(spanName string, attrs []observability.Attribute) []any {
	return append([]any{"span", spanName}, attrArgs(attrs)...)
}

func attrArgs(attrs []observability.Attribute) []any {
	args := make([]any, 0, len(attrs)*2)
	for _, attr := range attrs {
		args = append(args, attr.Key, attr.Value)
	}
	return args
}
