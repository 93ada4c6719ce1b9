package vad

import (
	"math"
	"testing"
)

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestFramesToSegmentsHysteresisAndMinSilence(t *testing.T) {
	rules := frameRules{
		frameSeconds:  0.1,
		threshold:     0.5,
		exitThreshold: 0.35,
		minSpeech:     0.2,
		minSilence:    0.2,
		duration:      2,
	}
	scores := []float64{
		0, 0.9, 0.9, 0.4, 0.9, 0.1, 0.1, 0.1, 0, 0,
		0.8, 0, 0, 0, 0.7, 0.7, 0.7, 0.7, 0.7, 0.7,
	}
	segs := framesToSegments(scores, rules)
	if len(segs) != 2 {
		t.Fatalf("expected 2 segments, got %+v", segs)
	}
	if !approx(segs[0].Start, 0.1) || !approx(segs[0].End, 0.5) {
		t.Fatalf("first segment = %+v, want 0.1-0.5", segs[0])
	}
	if !approx(segs[1].Start, 1.4) || !approx(segs[1].End, 2.0) {
		t.Fatalf("second segment = %+v, want 1.4-2.0", segs[1])
	}
	if !approx(segs[1].Confidence, 0.7) {
		t.Fatalf("confidence = %v, want 0.7", segs[1].Confidence)
	}
}

func TestNormalizeSegmentsClampsSortsAndMerges(t *testing.T) {
	segs := normalizeSegments([]Segment{
		{Start: 3, End: 4, Confidence: 1},
		{Start: -1, End: 1, Confidence: 0.5},
		{Start: 0.5, End: 2, Confidence: 1},
		{Start: 5, End: 5, Confidence: 1},
		{Start: 3.5, End: 9, Confidence: 0.2},
	}, 6)
	if len(segs) != 2 {
		t.Fatalf("expected 2 merged segments, got %+v", segs)
	}
	if segs[0].Start != 0 || segs[0].End != 2 {
		t.Fatalf("first segment = %+v", segs[0])
	}
	if segs[1].Start != 3 || segs[1].End != 6 {
		t.Fatalf("second segment = %+v", segs[1])
	}
	for _, s := range segs {
		if s.Confidence < 0 || s.Confidence > 1 {
			t.Fatalf("confidence out of range: %+v", s)
		}
	}
}

func TestCoverage(t *testing.T) {
	if got := Coverage([]Segment{{Start: 0, End: 1}, {Start: 2, End: 3}}, 4); got != 0.5 {
		t.Fatalf("Coverage = %v, want 0.5", got)
	}
	if Coverage(nil, 0) != 0 {
		t.Fatal("zero duration coverage should be 0")
	}
}
