package pipeline

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"capgate/internal/audio"
	"capgate/internal/config"
	"capgate/internal/observe"
	"capgate/internal/services"
	"capgate/internal/testsupport"
	"capgate/internal/vad"
)

type fixedDetector struct {
	tier     vad.Tier
	segments []vad.Segment
	err      error
}

func (d fixedDetector) Tier() vad.Tier { return d.tier }
func (d fixedDetector) Name() string   { return "fixed" }

func (d fixedDetector) Detect(context.Context, *audio.Track) ([]vad.Segment, error) {
	return d.segments, d.err
}

// trustedConfig enables only the classical tier and trusts it, so a fixed
// detector result is not degraded.
func trustedConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithTiers(config.TierClassical))
	cfg.VAD.TrustClassical = true
	return cfg
}

func speechDetector(segments ...vad.Segment) Option {
	return WithDetectors(fixedDetector{tier: vad.TierClassical, segments: segments})
}

func newRunner(t *testing.T, cfg *config.Config, logger *slog.Logger, opts ...Option) *Runner {
	t.Helper()
	runner, err := New(cfg, logger, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return runner
}

func writeInputs(t *testing.T, segments ...testsupport.TranscriptSegment) (string, string) {
	t.Helper()
	dir := t.TempDir()
	audioPath := testsupport.WriteSpeechWAV(t, dir, 8,
		testsupport.Region{Start: 1, End: 3},
		testsupport.Region{Start: 5, End: 6.5},
	)
	return audioPath, testsupport.WriteTranscriptJSON(t, dir, segments...)
}

func TestRunWritesGatedSubtitles(t *testing.T) {
	cfg := trustedConfig(t)
	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	runner := newRunner(t, cfg, logger, speechDetector(
		vad.Segment{Start: 1, End: 3, Confidence: 0.9},
		vad.Segment{Start: 5, End: 6.5, Confidence: 0.9},
	))

	audioPath, transcriptPath := writeInputs(t,
		testsupport.TranscriptSegment{Start: 0.5, End: 3.5, Text: "hello there"},
		testsupport.TranscriptSegment{Start: 3.8, End: 4.4, Text: "stray"},
		testsupport.TranscriptSegment{Start: 5.0, End: 7.0, Text: "good morning"},
	)
	out := filepath.Join(t.TempDir(), "captions", "clip.srt")

	res, err := runner.Run(context.Background(), Request{
		AudioPath:      audioPath,
		TranscriptPath: transcriptPath,
		OutputPath:     out,
		JobID:          "job-42",
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if res.Gate.Input != 5 || res.Gate.Output != 2 || res.Gate.Dropped != 1 || res.Gate.Merged != 2 {
		t.Fatalf("unexpected gate stats %+v", res.Gate)
	}
	if res.VAD.Degraded || res.VAD.Tier != vad.TierClassical {
		t.Fatalf("unexpected vad result %+v", res.VAD)
	}
	if res.RunID == "" {
		t.Fatal("expected run id")
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	content := string(data)
	for _, want := range []string{
		"1\n00:00:00,940 --> 00:00:03,120\nhello there\n",
		"2\n00:00:04,940 --> 00:00:06,620\ngood morning\n",
	} {
		if !strings.Contains(content, want) {
			t.Fatalf("output missing %q:\n%s", want, content)
		}
	}
	if strings.Contains(content, "stray") {
		t.Fatalf("cue in silence should be dropped:\n%s", content)
	}
	if len(res.Issues) != 0 {
		t.Fatalf("unexpected validation issues %v", res.Issues)
	}

	for _, event := range []string{"stage_start", "stage_complete", "gating_summary", "cue_dropped"} {
		if !strings.Contains(logs.String(), `"event_type":"`+event+`"`) {
			t.Fatalf("expected %s event in logs", event)
		}
	}
	if !strings.Contains(logs.String(), `"job_id":"job-42"`) {
		t.Fatal("expected job id on log lines")
	}
}

func TestRunInfersWebVTTFromExtension(t *testing.T) {
	cfg := trustedConfig(t)
	runner := newRunner(t, cfg, nil, speechDetector(vad.Segment{Start: 1, End: 3, Confidence: 0.9}))
	audioPath, transcriptPath := writeInputs(t,
		testsupport.TranscriptSegment{Start: 1.2, End: 2.2, Text: "hello"},
	)
	out := filepath.Join(t.TempDir(), "clip.vtt")

	res, err := runner.Run(context.Background(), Request{AudioPath: audioPath, TranscriptPath: transcriptPath, OutputPath: out})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Format != "vtt" {
		t.Fatalf("format = %q, want vtt", res.Format)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !strings.HasPrefix(string(data), "WEBVTT\n\n") {
		t.Fatalf("expected WEBVTT header, got:\n%s", data)
	}
	if !strings.Contains(string(data), "00:00:00.940 --> 00:00:03.120") {
		t.Fatalf("unexpected cue timing:\n%s", data)
	}
}

func TestRunNoSpeech(t *testing.T) {
	cfg := trustedConfig(t)
	runner := newRunner(t, cfg, nil, speechDetector(vad.Segment{Start: 6, End: 7, Confidence: 0.9}))
	audioPath, transcriptPath := writeInputs(t,
		testsupport.TranscriptSegment{Start: 1, End: 2, Text: "hello"},
	)
	out := filepath.Join(t.TempDir(), "clip.srt")

	res, err := runner.Run(context.Background(), Request{AudioPath: audioPath, TranscriptPath: transcriptPath, OutputPath: out})
	if !errors.Is(err, services.ErrNoSpeech) {
		t.Fatalf("expected ErrNoSpeech, got %v", err)
	}
	if got := services.FailureReason(err); got != services.ReasonNoSpeech {
		t.Fatalf("reason = %q", got)
	}
	var perr *services.PipelineError
	if !errors.As(err, &perr) || perr.Stage != "gate" || perr.CuesIn != 1 {
		t.Fatalf("expected gate PipelineError, got %#v", err)
	}
	if _, statErr := os.Stat(out); !os.IsNotExist(statErr) {
		t.Fatalf("no file should be written, stat err = %v", statErr)
	}

	reports, err := LoadReports(ReportsDir(cfg.Paths.WorkDir), 0)
	if err != nil {
		t.Fatalf("LoadReports: %v", err)
	}
	if len(reports) != 1 || reports[0].Status != "failed" || reports[0].Reason != "no_speech_detected" {
		t.Fatalf("unexpected reports %+v", reports)
	}
	if reports[0].RunID != res.RunID {
		t.Fatalf("report run id %q, want %q", reports[0].RunID, res.RunID)
	}
}

func TestRunEnergyTierIsDegraded(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	runner := newRunner(t, cfg, nil)
	audioPath, transcriptPath := writeInputs(t,
		testsupport.TranscriptSegment{Start: 1.2, End: 2.4, Text: "hello there"},
		testsupport.TranscriptSegment{Start: 5.2, End: 6.2, Text: "again"},
	)

	res, err := runner.Run(context.Background(), Request{
		AudioPath:      audioPath,
		TranscriptPath: transcriptPath,
		OutputPath:     filepath.Join(t.TempDir(), "clip.srt"),
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.VAD.Tier != vad.TierEnergy || !res.VAD.Degraded {
		t.Fatalf("expected degraded energy result, got %+v", res.VAD)
	}
	if !res.Gate.Degraded || res.Gate.Output == 0 {
		t.Fatalf("unexpected gate stats %+v", res.Gate)
	}
}

func TestRunSilentTrackBypassesGating(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithTiers(config.TierEnergy))
	runner := newRunner(t, cfg, nil)

	dir := t.TempDir()
	audioPath := testsupport.WriteSpeechWAV(t, dir, 30)
	transcriptPath := testsupport.WriteTranscriptJSON(t, dir,
		testsupport.TranscriptSegment{Start: 2, End: 3.5, Text: "hello"},
		testsupport.TranscriptSegment{Start: 10.25, End: 12.5, Text: "world"},
		testsupport.TranscriptSegment{Start: 27, End: 29.75, Text: "goodbye"},
	)
	out := filepath.Join(t.TempDir(), "silent.srt")

	res, err := runner.Run(context.Background(), Request{
		AudioPath:      audioPath,
		TranscriptPath: transcriptPath,
		OutputPath:     out,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.VAD.Tier != vad.TierEnergy || !res.VAD.Bypassed || !res.VAD.Degraded {
		t.Fatalf("expected bypassed energy result, got %+v", res.VAD)
	}
	if len(res.VAD.Segments) != 1 || res.VAD.Segments[0].Start != 0 || res.VAD.Segments[0].End != 30 {
		t.Fatalf("expected one whole-track segment, got %+v", res.VAD.Segments)
	}
	if res.Gate.Output != 3 || res.Gate.Dropped != 0 || res.Gate.Passthrough != 3 || !res.Gate.Bypassed {
		t.Fatalf("unexpected gate stats %+v", res.Gate)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	for _, want := range []string{
		"1\n00:00:02,000 --> 00:00:03,500\nhello\n",
		"2\n00:00:10,250 --> 00:00:12,500\nworld\n",
		"3\n00:00:27,000 --> 00:00:29,750\ngoodbye\n",
	} {
		if !strings.Contains(string(data), want) {
			t.Fatalf("output missing %q:\n%s", want, data)
		}
	}
}

func TestRunFailOnDegraded(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.VAD.FailOnDegraded = true
	runner := newRunner(t, cfg, nil)
	audioPath, transcriptPath := writeInputs(t,
		testsupport.TranscriptSegment{Start: 1.2, End: 2.4, Text: "hello"},
	)

	_, err := runner.Run(context.Background(), Request{
		AudioPath:      audioPath,
		TranscriptPath: transcriptPath,
		OutputPath:     filepath.Join(t.TempDir(), "clip.srt"),
	})
	if got := services.FailureReason(err); got != services.ReasonVADDegraded {
		t.Fatalf("reason = %q (err %v)", got, err)
	}
}

func TestRunTranscriptWithoutText(t *testing.T) {
	cfg := trustedConfig(t)
	runner := newRunner(t, cfg, nil, speechDetector(vad.Segment{Start: 1, End: 3, Confidence: 0.9}))
	audioPath, transcriptPath := writeInputs(t,
		testsupport.TranscriptSegment{Start: 1, End: 2, Text: "   "},
	)

	_, err := runner.Run(context.Background(), Request{
		AudioPath:      audioPath,
		TranscriptPath: transcriptPath,
		OutputPath:     filepath.Join(t.TempDir(), "clip.srt"),
	})
	if got := services.FailureReason(err); got != services.ReasonTranscriptEmpty {
		t.Fatalf("reason = %q (err %v)", got, err)
	}
}

func TestRunRejectsIncompleteRequest(t *testing.T) {
	runner := newRunner(t, trustedConfig(t), nil)
	_, err := runner.Run(context.Background(), Request{AudioPath: "a.wav", TranscriptPath: "t.json"})
	if !errors.Is(err, services.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestRunRejectsUnknownFormat(t *testing.T) {
	runner := newRunner(t, trustedConfig(t), nil)
	_, err := runner.Run(context.Background(), Request{
		AudioPath:      "a.wav",
		TranscriptPath: "t.json",
		OutputPath:     "out.srt",
		Format:         "ass",
	})
	if !errors.Is(err, services.ErrSerialization) {
		t.Fatalf("expected ErrSerialization, got %v", err)
	}
}

func TestRunLastTierFailure(t *testing.T) {
	cfg := trustedConfig(t)
	runner := newRunner(t, cfg, nil, WithDetectors(fixedDetector{tier: vad.TierClassical, err: errors.New("model exploded")}))
	audioPath, transcriptPath := writeInputs(t,
		testsupport.TranscriptSegment{Start: 1, End: 2, Text: "hello"},
	)

	res, err := runner.Run(context.Background(), Request{
		AudioPath:      audioPath,
		TranscriptPath: transcriptPath,
		OutputPath:     filepath.Join(t.TempDir(), "clip.srt"),
	})
	if !errors.Is(err, services.ErrInvariant) {
		t.Fatalf("expected ErrInvariant, got %v", err)
	}
	if len(res.VAD.Attempts) != 1 || res.VAD.Attempts[0].Outcome != vad.OutcomeError {
		t.Fatalf("expected one failed attempt, got %+v", res.VAD.Attempts)
	}
}

func TestRunRecordsMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	metrics, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	cfg := trustedConfig(t)
	runner := newRunner(t, cfg, nil, WithMetrics(metrics), speechDetector(vad.Segment{Start: 1, End: 3, Confidence: 0.9}))
	audioPath, transcriptPath := writeInputs(t,
		testsupport.TranscriptSegment{Start: 1.2, End: 2.2, Text: "hello"},
	)
	if _, err := runner.Run(context.Background(), Request{
		AudioPath:      audioPath,
		TranscriptPath: transcriptPath,
		OutputPath:     filepath.Join(t.TempDir(), "clip.srt"),
	}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	var runs int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "capgate.runs" {
				continue
			}
			for _, dp := range m.Data.(metricdata.Sum[int64]).DataPoints {
				if v, ok := dp.Attributes.Value(attribute.Key("status")); ok && v.AsString() == "ok" {
					runs += dp.Value
				}
			}
		}
	}
	if runs != 1 {
		t.Fatalf("ok runs = %d, want 1", runs)
	}
}

func TestDetectAndCues(t *testing.T) {
	cfg := trustedConfig(t)
	runner := newRunner(t, cfg, nil, speechDetector(vad.Segment{Start: 1, End: 3, Confidence: 0.9}))
	audioPath, transcriptPath := writeInputs(t,
		testsupport.TranscriptSegment{Start: 1, End: 2, Text: "one two"},
	)

	track, vr, err := runner.Detect(context.Background(), audioPath)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if track.Duration != 8 || len(vr.Segments) != 1 {
		t.Fatalf("unexpected detect output: duration=%v result=%+v", track.Duration, vr)
	}

	cues, stats, err := runner.Cues(context.Background(), transcriptPath, track.Duration)
	if err != nil {
		t.Fatalf("Cues: %v", err)
	}
	if len(cues) != 2 || stats.Cues != 2 {
		t.Fatalf("expected two word cues, got %+v (stats %+v)", cues, stats)
	}
}

func TestLoadReportsNewestFirst(t *testing.T) {
	dir := t.TempDir()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		if _, err := WriteReport(dir, Report{RunID: id, Status: "ok", FinishedAt: base.Add(time.Duration(i) * time.Minute)}); err != nil {
			t.Fatalf("WriteReport: %v", err)
		}
	}
	testsupport.WriteFile(t, filepath.Join(dir, "garbage.json"), []byte("{"))

	reports, err := LoadReports(dir, 2)
	if err != nil {
		t.Fatalf("LoadReports: %v", err)
	}
	if len(reports) != 2 || reports[0].RunID != "c" || reports[1].RunID != "b" {
		t.Fatalf("unexpected order %+v", reports)
	}

	if reports, err := LoadReports(filepath.Join(dir, "missing"), 0); err != nil || reports != nil {
		t.Fatalf("missing dir: reports=%v err=%v", reports, err)
	}
	if _, err := WriteReport(dir, Report{}); err == nil {
		t.Fatal("expected error for report without run id")
	}
}
