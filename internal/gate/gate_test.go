package gate_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"math"
	"strings"
	"testing"

	"capgate/internal/cue"
	"capgate/internal/gate"
	"capgate/internal/services"
	"capgate/internal/vad"
)

const epsilon = 1e-9

func approx(a, b float64) bool {
	return math.Abs(a-b) < epsilon
}

func scenarioCues() []cue.Cue {
	return []cue.Cue{
		{Index: 1, Start: 0.50, End: 3.20, Text: "Olá"},
		{Index: 2, Start: 3.50, End: 6.10, Text: "mundo"},
		{Index: 3, Start: 8.00, End: 9.50, Text: "!"},
	}
}

func TestApplyClampsDropsAndMerges(t *testing.T) {
	vr := vad.Result{
		Segments: []vad.Segment{{Start: 0.42, End: 3.28}, {Start: 3.45, End: 6.18}},
		Tier:     vad.TierPrimary,
	}
	out, stats, err := gate.Apply(scenarioCues(), vr, 10, gate.DefaultParams())
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected one merged cue, got %v", out)
	}
	got := out[0]
	if !approx(got.Start, 0.36) || !approx(got.End, 6.30) || got.Text != "Olá mundo" || got.Index != 1 {
		t.Fatalf("unexpected cue %v", got)
	}
	if stats.Dropped != 1 || stats.Merged != 1 || stats.Input != 3 || stats.Output != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if stats.Tier != vad.TierPrimary || stats.Degraded || stats.Bypassed {
		t.Fatalf("unexpected tier flags %+v", stats)
	}
}

func TestApplyBypassPassesCuesThrough(t *testing.T) {
	vr := vad.Result{
		Segments: []vad.Segment{{Start: 0, End: 30}},
		Tier:     vad.TierEnergy,
		Degraded: true,
		Bypassed: true,
	}
	raw := []cue.Cue{
		{Start: 1.0, End: 2.0, Text: "first"},
		{Start: 10.0, End: 11.5, Text: "second"},
		{Start: 29.5, End: 31.0, Text: "tail"},
	}
	out, stats, err := gate.Apply(raw, vr, 30, gate.DefaultParams())
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(out) != 3 || stats.Passthrough != 3 || stats.Dropped != 0 {
		t.Fatalf("expected all cues to pass through, got %v %+v", out, stats)
	}
	if out[0].Start != 1.0 || out[0].End != 2.0 || out[1].Start != 10.0 || out[1].End != 11.5 {
		t.Fatalf("expected cue timing unchanged, got %v", out)
	}
	if out[2].End != 30 {
		t.Fatalf("expected tail clamped to track end, got %v", out[2])
	}
	if !stats.Degraded || !stats.Bypassed {
		t.Fatalf("expected degraded bypass stats, got %+v", stats)
	}
}

func TestApplyDegradedPassthroughWithoutOverlap(t *testing.T) {
	vr := vad.Result{
		Segments: []vad.Segment{{Start: 0, End: 1}},
		Tier:     vad.TierClassical,
		Degraded: true,
	}
	raw := []cue.Cue{
		{Start: 0.2, End: 0.6, Text: "a"},
		{Start: 5, End: 6, Text: "b"},
	}
	out, stats, err := gate.Apply(raw, vr, 10, gate.DefaultParams())
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(out) != 2 || stats.Passthrough != 1 || stats.Dropped != 0 {
		t.Fatalf("unexpected result %v %+v", out, stats)
	}
	if out[1].Start != 5 || out[1].End != 6 {
		t.Fatalf("expected unbacked cue unchanged, got %v", out[1])
	}
}

func TestApplyEmptyInput(t *testing.T) {
	_, _, err := gate.Apply(nil, vad.Result{Tier: vad.TierPrimary}, 10, gate.DefaultParams())
	if !errors.Is(err, services.ErrTranscriptEmpty) {
		t.Fatalf("expected ErrTranscriptEmpty, got %v", err)
	}
	var pe *services.PipelineError
	if !errors.As(err, &pe) || pe.Stage != "gate" || pe.Reason() != services.ReasonTranscriptEmpty {
		t.Fatalf("expected gate PipelineError, got %#v", err)
	}
}

func TestApplyNoSpeechWhenNothingOverlaps(t *testing.T) {
	vr := vad.Result{Segments: []vad.Segment{{Start: 20, End: 25}}, Tier: vad.TierPrimary}
	_, stats, err := gate.Apply(scenarioCues(), vr, 30, gate.DefaultParams())
	if !errors.Is(err, services.ErrNoSpeech) {
		t.Fatalf("expected ErrNoSpeech, got %v", err)
	}
	var pe *services.PipelineError
	if !errors.As(err, &pe) || pe.CuesIn != 3 || pe.CuesOut != 0 || pe.Tier != string(vad.TierPrimary) || pe.Degraded {
		t.Fatalf("unexpected error context %#v", pe)
	}
	if stats.Dropped != 3 {
		t.Fatalf("expected 3 drops, got %+v", stats)
	}
}

func TestApplyOutputBounds(t *testing.T) {
	p := gate.DefaultParams()
	segments := []vad.Segment{{Start: 0.8, End: 1.0}, {Start: 2.0, End: 4.5}, {Start: 6.0, End: 6.05}, {Start: 9.0, End: 12.0}}
	vr := vad.Result{Segments: segments, Tier: vad.TierPrimary}
	var raw []cue.Cue
	for i := 0; i < 60; i++ {
		start := float64(i) * 0.25
		raw = append(raw, cue.Cue{Start: start, End: start + 0.2, Text: "w"})
	}
	out, stats, err := gate.Apply(raw, vr, 20, p)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(out) > len(raw) {
		t.Fatalf("merge increased cue count")
	}
	for _, c := range out {
		if c.End <= c.Start || c.End-c.Start < p.MinDuration-epsilon {
			t.Fatalf("cue %v violates duration bounds", c)
		}
		backed := false
		for _, seg := range segments {
			if c.Start >= seg.Start-p.PrePad-epsilon && c.End <= seg.End+p.PostPad+epsilon {
				backed = true
				break
			}
		}
		// Merged cues span several segments; check each endpoint instead.
		if !backed {
			startOK, endOK := false, false
			for _, seg := range segments {
				startOK = startOK || approx(c.Start, max(0, seg.Start-p.PrePad))
				endOK = endOK || approx(c.End, seg.End+p.PostPad)
			}
			if !startOK || !endOK {
				t.Fatalf("cue %v not anchored to any padded segment", c)
			}
		}
	}
	if stats.Output != len(out) || stats.Input != len(raw) {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestClampIdempotent(t *testing.T) {
	seg := vad.Segment{Start: 5.0, End: 5.02}
	for _, preserve := range []bool{false, true} {
		p := gate.DefaultParams()
		p.PreserveWordOnset = preserve
		for _, c := range []cue.Cue{
			{Start: 4.0, End: 5.5, Text: "early"},
			{Start: 5.01, End: 5.015, Text: "inside"},
			{Start: 9.9, End: 10.0, Text: "track end"},
		} {
			once := gate.Clamp(c, seg, 10, p)
			twice := gate.Clamp(once, seg, 10, p)
			if once != twice {
				t.Fatalf("preserve=%v: clamp not idempotent: %v then %v", preserve, once, twice)
			}
		}
	}
}

func TestClampPreserveWordOnset(t *testing.T) {
	seg := vad.Segment{Start: 1.0, End: 3.0}
	c := cue.Cue{Start: 2.0, End: 2.5, Text: "late"}

	p := gate.DefaultParams()
	if got := gate.Clamp(c, seg, 10, p); !approx(got.Start, 0.94) {
		t.Fatalf("expected padded segment start, got %v", got)
	}
	p.PreserveWordOnset = true
	if got := gate.Clamp(c, seg, 10, p); got.Start != 2.0 || !approx(got.End, 3.12) {
		t.Fatalf("expected word onset kept, got %v", got)
	}
}

func TestClampMinDurationAtTrackEnd(t *testing.T) {
	p := gate.DefaultParams()
	got := gate.Clamp(cue.Cue{Start: 9.99, End: 10}, vad.Segment{Start: 9.99, End: 10}, 10, p)
	if got.End != 10 || !approx(got.End-got.Start, p.MinDuration) {
		t.Fatalf("expected start pulled back to honor minimum duration, got %v", got)
	}
	short := gate.Clamp(cue.Cue{Start: 0, End: 0.01}, vad.Segment{Start: 0, End: 0.01}, 0.05, p)
	if short.Start != 0 || short.End != 0.05 {
		t.Fatalf("expected whole short track, got %v", short)
	}
}

func TestMerge(t *testing.T) {
	cues := []cue.Cue{
		{Start: 4, End: 5, Text: "c"},
		{Start: 0, End: 1, Text: "a"},
		{Start: 1.05, End: 1.5, Text: "b"},
		{Start: 1.2, End: 1.4, Text: "inner"},
	}
	merged, folds := gate.Merge(cues, 0.12)
	if len(merged) != 2 || folds != 2 {
		t.Fatalf("unexpected merge %v (%d folds)", merged, folds)
	}
	if merged[0].Text != "a b inner" || merged[0].End != 1.5 || merged[0].Index != 1 {
		t.Fatalf("unexpected first cue %v", merged[0])
	}
	if merged[1].Index != 2 || merged[1].Text != "c" {
		t.Fatalf("unexpected second cue %v", merged[1])
	}
	if cues[0].Text != "c" {
		t.Fatal("merge modified its input")
	}

	none, folds := gate.Merge(nil, 0.12)
	if none != nil || folds != 0 {
		t.Fatalf("expected empty merge, got %v", none)
	}
}

func TestGateLogsDroppedCues(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	g := gate.New(gate.DefaultParams(), logger)
	vr := vad.Result{Segments: []vad.Segment{{Start: 0.42, End: 3.28}}, Tier: vad.TierPrimary}
	if _, _, err := g.Apply(context.Background(), scenarioCues(), vr, 10); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if got := strings.Count(buf.String(), `"event_type":"cue_dropped"`); got != 2 {
		t.Fatalf("expected 2 drop logs, got %d: %s", got, buf.String())
	}
}

func TestParamsValidate(t *testing.T) {
	p := gate.DefaultParams()
	if err := p.Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
	p.MergeGap = -1
	if err := p.Validate(); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}
