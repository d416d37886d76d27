// Package observe provides application-wide observability primitives for
// FlexTranslator: OpenTelemetry metrics, distributed tracing, structured
// logging, and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still be
// scraped via the standard /metrics endpoint. A package-level default
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

// meterName is the instrumentation scope name used for all FlexTranslator
// metrics.
const meterName = "github.com/juanan28s/flextranslator"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use. The underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms ---

	// OneShotDuration tracks one-shot translation request latency.
	OneShotDuration metric.Float64Histogram

	// ConnectDuration tracks live session establishment latency, from dial
	// to the setup acknowledgement.
	ConnectDuration metric.Float64Histogram

	// --- Counters ---

	// FramesSent counts microphone frames streamed to the model.
	FramesSent metric.Int64Counter

	// ChunksPlayed counts synthesized audio chunks handed to the playback
	// scheduler.
	ChunksPlayed metric.Int64Counter

	// ChunksDropped counts inbound audio chunks discarded because they
	// could not be decoded.
	ChunksDropped metric.Int64Counter

	// GapResets counts playback cursor resets after an idle gap in the
	// synthesized stream.
	GapResets metric.Int64Counter

	// TurnsCompleted counts finished translation turns. Use with attribute:
	//   attribute.String("source_lang", ...)
	TurnsCompleted metric.Int64Counter

	// --- Error counters ---

	// SessionErrors counts live session failures. Use with attribute:
	//   attribute.String("stage", ...)
	SessionErrors metric.Int64Counter

	// --- Gauges ---

	// ActiveSessions tracks the number of live translation sessions.
	ActiveSessions metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) optimised
// for interactive translation latencies.
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
	if met.OneShotDuration, err = m.Float64Histogram("flextranslator.oneshot.duration",
		metric.WithDescription("Latency of one-shot text and document translation."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ConnectDuration, err = m.Float64Histogram("flextranslator.connect.duration",
		metric.WithDescription("Latency of live session establishment."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.FramesSent, err = m.Int64Counter("flextranslator.capture.frames_sent",
		metric.WithDescription("Total microphone frames streamed to the model."),
	); err != nil {
		return nil, err
	}
	if met.ChunksPlayed, err = m.Int64Counter("flextranslator.playback.chunks_played",
		metric.WithDescription("Total synthesized audio chunks scheduled for playback."),
	); err != nil {
		return nil, err
	}
	if met.ChunksDropped, err = m.Int64Counter("flextranslator.playback.chunks_dropped",
		metric.WithDescription("Total inbound audio chunks dropped as undecodable."),
	); err != nil {
		return nil, err
	}
	if met.GapResets, err = m.Int64Counter("flextranslator.playback.gap_resets",
		metric.WithDescription("Total playback cursor resets after an idle gap."),
	); err != nil {
		return nil, err
	}
	if met.TurnsCompleted, err = m.Int64Counter("flextranslator.turns.completed",
		metric.WithDescription("Total completed translation turns by source language."),
	); err != nil {
		return nil, err
	}

	// Error counters.
	if met.SessionErrors, err = m.Int64Counter("flextranslator.session.errors",
		metric.WithDescription("Total live session failures by stage."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveSessions, err = m.Int64UpDownCounter("flextranslator.active_sessions",
		metric.WithDescription("Number of live translation sessions."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("flextranslator.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
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

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
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

// RecordTurnCompleted records a completed turn with its detected source
// language.
func (m *Metrics) RecordTurnCompleted(ctx context.Context, sourceLang string) {
	m.TurnsCompleted.Add(ctx, 1,
		metric.WithAttributes(attribute.String("source_lang", sourceLang)),
	)
}

// RecordSessionError records a live session failure for the given stage, e.g.
// "connect", "stream", or "capture".
func (m *Metrics) RecordSessionError(ctx context.Context, stage string) {
	m.SessionErrors.Add(ctx, 1,
		metric.WithAttributes(attribute.String("stage", stage)),
	)
}
