// Package observe provides the OpenTelemetry metrics and tracing used by the
// caption pipeline.
//
// Metrics are recorded through the OpenTelemetry Metrics API. [InitProvider]
// installs a Prometheus exporter bridge backed by a private registry so a
// batch run can dump its counters to a node-exporter textfile when it exits.
// Tests should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all capgate metrics.
const meterName = "capgate"

// Metrics holds the metric instruments for the pipeline. All fields are safe
// for concurrent use.
type Metrics struct {
	// Runs counts pipeline runs. Attributes: status, reason, vad_tier.
	Runs metric.Int64Counter

	// StageDuration tracks per-stage latency. Attribute: stage.
	StageDuration metric.Float64Histogram

	// VADAttempts counts detector invocations. Attributes: vad_tier, outcome.
	VADAttempts metric.Int64Counter

	// VADAttemptDuration tracks detector latency. Attributes: vad_tier, outcome.
	VADAttemptDuration metric.Float64Histogram

	// VADDegraded counts runs whose VAD result was degraded. Attributes:
	// vad_tier, bypassed.
	VADDegraded metric.Int64Counter

	// SpeechCoverage records the detected speech fraction of each track.
	SpeechCoverage metric.Float64Histogram

	// Cues counts cues by disposition. Attribute: kind (raw, gated, dropped,
	// merged, passthrough, filtered).
	Cues metric.Int64Counter
}

// latencyBuckets are histogram boundaries in seconds sized for short-form
// tracks where VAD dominates.
var latencyBuckets = []float64{
	0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30,
}

var coverageBuckets = []float64{
	0.05, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider].
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.Runs, err = m.Int64Counter("capgate.runs",
		metric.WithDescription("Pipeline runs by status, failure reason and VAD tier."),
	); err != nil {
		return nil, err
	}
	if met.StageDuration, err = m.Float64Histogram("capgate.stage.duration",
		metric.WithDescription("Latency of each pipeline stage."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.VADAttempts, err = m.Int64Counter("capgate.vad.attempts",
		metric.WithDescription("Detector invocations by tier and outcome."),
	); err != nil {
		return nil, err
	}
	if met.VADAttemptDuration, err = m.Float64Histogram("capgate.vad.attempt.duration",
		metric.WithDescription("Latency of detector invocations by tier and outcome."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.VADDegraded, err = m.Int64Counter("capgate.vad.degraded",
		metric.WithDescription("Runs whose speech detection was degraded, by tier and bypass."),
	); err != nil {
		return nil, err
	}
	if met.SpeechCoverage, err = m.Float64Histogram("capgate.vad.coverage",
		metric.WithDescription("Fraction of each track classified as speech."),
		metric.WithUnit("1"),
		metric.WithExplicitBucketBoundaries(coverageBuckets...),
	); err != nil {
		return nil, err
	}
	if met.Cues, err = m.Int64Counter("capgate.cues",
		metric.WithDescription("Cues by disposition."),
	); err != nil {
		return nil, err
	}
	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call from [otel.GetMeterProvider]. Call [InitProvider] first when the
// metrics should be exported.
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

// RecordRun counts one finished pipeline run.
func (m *Metrics) RecordRun(ctx context.Context, status, reason, tier string) {
	m.Runs.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("status", status),
			attribute.String("reason", reason),
			attribute.String("vad_tier", tier),
		),
	)
}

// RecordStage observes one stage latency.
func (m *Metrics) RecordStage(ctx context.Context, stage string, seconds float64) {
	m.StageDuration.Record(ctx, seconds, metric.WithAttributes(attribute.String("stage", stage)))
}

// RecordVADAttempt counts one detector invocation and its latency.
func (m *Metrics) RecordVADAttempt(ctx context.Context, tier, outcome string, seconds float64) {
	attrs := metric.WithAttributes(
		attribute.String("vad_tier", tier),
		attribute.String("outcome", outcome),
	)
	m.VADAttempts.Add(ctx, 1, attrs)
	m.VADAttemptDuration.Record(ctx, seconds, attrs)
}

// RecordVADResult observes coverage and, for degraded results, bumps the
// degraded counter.
func (m *Metrics) RecordVADResult(ctx context.Context, tier string, coverage float64, degraded, bypassed bool) {
	m.SpeechCoverage.Record(ctx, coverage, metric.WithAttributes(attribute.String("vad_tier", tier)))
	if !degraded {
		return
	}
	m.VADDegraded.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("vad_tier", tier),
			attribute.Bool("bypassed", bypassed),
		),
	)
}

// RecordCues adds n cues of the given kind. Zero counts are skipped.
func (m *Metrics) RecordCues(ctx context.Context, kind string, n int) {
	if n <= 0 {
		return
	}
	m.Cues.Add(ctx, int64(n), metric.WithAttributes(attribute.String("kind", kind)))
}
