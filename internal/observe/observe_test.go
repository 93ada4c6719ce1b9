package observe

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// newTestMetrics returns a Metrics instance backed by a ManualReader for
// programmatic metric inspection.
func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func sumFor(t *testing.T, rm metricdata.ResourceMetrics, name, key, value string) int64 {
	t.Helper()
	met := findMetric(rm, name)
	if met == nil {
		t.Fatalf("metric %q not found", name)
	}
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("metric %q is not an int64 sum", name)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		if v, ok := dp.Attributes.Value(attribute.Key(key)); ok && v.AsString() == value {
			total += dp.Value
		}
	}
	return total
}

func TestRecordRunAndCues(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordRun(ctx, "ok", "", "energy")
	m.RecordRun(ctx, "failed", "no_speech_detected", "primary")
	m.RecordRun(ctx, "ok", "", "energy")
	m.RecordCues(ctx, "raw", 12)
	m.RecordCues(ctx, "dropped", 3)
	m.RecordCues(ctx, "merged", 0)

	rm := collect(t, reader)
	if got := sumFor(t, rm, "capgate.runs", "status", "ok"); got != 2 {
		t.Errorf("ok runs = %d, want 2", got)
	}
	if got := sumFor(t, rm, "capgate.runs", "reason", "no_speech_detected"); got != 1 {
		t.Errorf("no_speech runs = %d, want 1", got)
	}
	if got := sumFor(t, rm, "capgate.cues", "kind", "raw"); got != 12 {
		t.Errorf("raw cues = %d, want 12", got)
	}
	if got := sumFor(t, rm, "capgate.cues", "kind", "merged"); got != 0 {
		t.Errorf("merged cues = %d, want 0", got)
	}
}

func TestRecordVAD(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordVADAttempt(ctx, "primary", "timeout", 5.0)
	m.RecordVADAttempt(ctx, "classical", "ok", 0.02)
	m.RecordVADResult(ctx, "classical", 0.4, true, false)
	m.RecordVADResult(ctx, "primary", 0.6, false, false)

	rm := collect(t, reader)
	if got := sumFor(t, rm, "capgate.vad.attempts", "outcome", "timeout"); got != 1 {
		t.Errorf("timeout attempts = %d, want 1", got)
	}
	if got := sumFor(t, rm, "capgate.vad.degraded", "vad_tier", "classical"); got != 1 {
		t.Errorf("degraded classical = %d, want 1", got)
	}
	if got := sumFor(t, rm, "capgate.vad.degraded", "vad_tier", "primary"); got != 0 {
		t.Errorf("degraded primary = %d, want 0", got)
	}

	met := findMetric(rm, "capgate.vad.coverage")
	if met == nil {
		t.Fatal("coverage metric not found")
	}
	hist, ok := met.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatal("coverage is not a histogram")
	}
	var count uint64
	for _, dp := range hist.DataPoints {
		count += dp.Count
	}
	if count != 2 {
		t.Errorf("coverage samples = %d, want 2", count)
	}
}

func TestRecordStage(t *testing.T) {
	m, reader := newTestMetrics(t)
	m.RecordStage(context.Background(), "gate", 0.001)
	m.RecordStage(context.Background(), "gate", 0.002)

	met := findMetric(collect(t, reader), "capgate.stage.duration")
	if met == nil {
		t.Fatal("stage duration not found")
	}
	hist := met.Data.(metricdata.Histogram[float64])
	if len(hist.DataPoints) != 1 || hist.DataPoints[0].Count != 2 {
		t.Fatalf("unexpected data points %+v", hist.DataPoints)
	}
}

func TestEndSpanRecordsError(t *testing.T) {
	exp := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	ctx, span := tp.Tracer("test").Start(context.Background(), "detect")
	if TraceID(ctx) == "" {
		t.Fatal("expected trace id inside span")
	}
	EndSpan(span, errors.New("boom"), attribute.String("vad_tier", "energy"))

	spans := exp.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Status.Code != codes.Error {
		t.Fatalf("expected error status, got %v", spans[0].Status)
	}
	if len(spans[0].Events) == 0 {
		t.Fatal("expected recorded error event")
	}
}

func TestTraceIDEmptyByDefault(t *testing.T) {
	if got := TraceID(context.Background()); got != "" {
		t.Fatalf("TraceID(background) = %q, want empty", got)
	}
}

func TestProviderWritesTextfile(t *testing.T) {
	ctx := context.Background()
	provider, err := InitProvider(ctx, ProviderConfig{ServiceVersion: "test"})
	if err != nil {
		t.Fatalf("InitProvider: %v", err)
	}
	t.Cleanup(func() { _ = provider.Shutdown(ctx) })

	m, err := NewMetrics(provider.MeterProvider)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	m.RecordRun(ctx, "ok", "", "energy")

	path := filepath.Join(t.TempDir(), "textfile", "capgate.prom")
	if err := provider.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read textfile: %v", err)
	}
	if !strings.Contains(string(data), "capgate_runs") {
		t.Fatalf("expected capgate_runs series, got:\n%s", data)
	}
}
