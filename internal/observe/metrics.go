// Package observe provides application-wide observability primitives for
// jerseyvox: OpenTelemetry metrics, distributed tracing, structured
// logging, and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still
// be scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all jerseyvox metrics.
const meterName = "github.com/equiproom/jerseyvox"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms per turn stage ---

	// TranscribeDuration tracks speech-to-text transcription latency.
	TranscribeDuration metric.Float64Histogram

	// InterpretDuration tracks interpretation latency, model or grammar.
	InterpretDuration metric.Float64Histogram

	// ResolveDuration tracks target resolution latency.
	ResolveDuration metric.Float64Histogram

	// ExecuteDuration tracks command execution latency including the
	// store round trip.
	ExecuteDuration metric.Float64Histogram

	// TurnDuration tracks end-to-end turn latency, audio in to
	// confirmation out.
	TurnDuration metric.Float64Histogram

	// --- Counters ---

	// Commands counts executed commands. Use with attributes:
	//   attribute.String("type", ...), attribute.String("status", ...)
	Commands metric.Int64Counter

	// InterpreterFallbacks counts turns where the model path failed and
	// the grammar interpreter answered instead.
	InterpreterFallbacks metric.Int64Counter

	// Rollbacks counts optimistic updates reverted after a store failure.
	Rollbacks metric.Int64Counter

	// LowStockAlerts counts low-stock notifications fired.
	LowStockAlerts metric.Int64Counter

	// ProviderErrors counts provider errors. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...)
	ProviderErrors metric.Int64Counter

	// --- Gauges ---

	// ActiveTurns tracks the number of turns currently in flight. With a
	// single-session deployment this is 0 or 1; it exists to spot stuck
	// turns.
	ActiveTurns metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with
	// attributes:
	//   attribute.String("method", ...), attribute.String("route", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) optimised
// for voice-pipeline latencies.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.TranscribeDuration, err = m.Float64Histogram("jerseyvox.transcribe.duration",
		metric.WithDescription("Latency of speech-to-text transcription."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.InterpretDuration, err = m.Float64Histogram("jerseyvox.interpret.duration",
		metric.WithDescription("Latency of transcript interpretation."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ResolveDuration, err = m.Float64Histogram("jerseyvox.resolve.duration",
		metric.WithDescription("Latency of command target resolution."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ExecuteDuration, err = m.Float64Histogram("jerseyvox.execute.duration",
		metric.WithDescription("Latency of command execution including persistence."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.TurnDuration, err = m.Float64Histogram("jerseyvox.turn.duration",
		metric.WithDescription("End-to-end turn latency."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.Commands, err = m.Int64Counter("jerseyvox.commands",
		metric.WithDescription("Total executed commands by type and status."),
	); err != nil {
		return nil, err
	}
	if met.InterpreterFallbacks, err = m.Int64Counter("jerseyvox.interpreter.fallbacks",
		metric.WithDescription("Total turns answered by the grammar after a model failure."),
	); err != nil {
		return nil, err
	}
	if met.Rollbacks, err = m.Int64Counter("jerseyvox.rollbacks",
		metric.WithDescription("Total optimistic updates reverted after a store failure."),
	); err != nil {
		return nil, err
	}
	if met.LowStockAlerts, err = m.Int64Counter("jerseyvox.low_stock.alerts",
		metric.WithDescription("Total low-stock notifications fired."),
	); err != nil {
		return nil, err
	}
	if met.ProviderErrors, err = m.Int64Counter("jerseyvox.provider.errors",
		metric.WithDescription("Total provider errors by provider and kind."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveTurns, err = m.Int64UpDownCounter("jerseyvox.active_turns",
		metric.WithDescription("Number of turns currently in flight."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("jerseyvox.http.request.duration",
		metric.WithDescription("HTTP request latency by method and route."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it
// on first call using [otel.GetMeterProvider]. Subsequent calls return the
// same pointer. Panics if instrument creation fails (should not happen with
// the global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordCommand is a convenience method that records a command counter
// increment with the standard attribute set.
func (m *Metrics) RecordCommand(ctx context.Context, cmdType, status string) {
	m.Commands.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("type", cmdType),
			attribute.String("status", status),
		),
	)
}

// RecordProviderError is a convenience method that records a provider error
// counter increment.
func (m *Metrics) RecordProviderError(ctx context.Context, provider, kind string) {
	m.ProviderErrors.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
		),
	)
}
