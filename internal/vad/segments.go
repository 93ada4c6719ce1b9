package vad

import (
	"math"
	"slices"
)

// frameRules controls how per-frame speech scores become segments.
type frameRules struct {
	frameSeconds  float64
	threshold     float64
	exitThreshold float64
	minSpeech     float64
	minSilence    float64
	duration      float64
}

// framesToSegments converts frame scores into speech segments. A run opens
// when a score reaches threshold and closes once scores stay below
// exitThreshold for at least minSilence. Runs shorter than minSpeech are
// discarded.
func framesToSegments(scores []float64, rules frameRules) []Segment {
	if len(scores) == 0 || rules.frameSeconds <= 0 {
		return nil
	}
	var (
		segments  []Segment
		triggered bool
		startIdx  int
		silentIdx = -1
	)
	emit := func(endIdx int) {
		start := float64(startIdx) * rules.frameSeconds
		end := math.Min(float64(endIdx)*rules.frameSeconds, rules.duration)
		if end-start < rules.minSpeech || end <= start {
			return
		}
		segments = append(segments, Segment{
			Start:      start,
			End:        end,
			Confidence: meanScore(scores[startIdx:endIdx]),
		})
	}

	for i, score := range scores {
		switch {
		case score >= rules.threshold:
			if !triggered {
				triggered = true
				startIdx = i
			}
			silentIdx = -1
		case triggered && score < rules.exitThreshold:
			if silentIdx < 0 {
				silentIdx = i
			}
			silence := float64(i+1-silentIdx) * rules.frameSeconds
			if silence >= rules.minSilence {
				emit(silentIdx)
				triggered = false
				silentIdx = -1
			}
		}
	}
	if triggered {
		endIdx := len(scores)
		if silentIdx >= 0 {
			endIdx = silentIdx
		}
		emit(endIdx)
	}
	return segments
}

func meanScore(scores []float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	var sum float64
	for _, s := range scores {
		sum += s
	}
	return clamp01(sum / float64(len(scores)))
}

// normalizeSegments clamps segments to [0, duration], drops empty ones, sorts
// by start and merges overlaps. Merged confidence is duration-weighted.
func normalizeSegments(segments []Segment, duration float64) []Segment {
	out := make([]Segment, 0, len(segments))
	for _, seg := range segments {
		if math.IsNaN(seg.Start) || math.IsNaN(seg.End) {
			continue
		}
		seg.Start = math.Max(0, seg.Start)
		seg.End = math.Min(duration, seg.End)
		if seg.End <= seg.Start {
			continue
		}
		seg.Confidence = clamp01(seg.Confidence)
		out = append(out, seg)
	}
	slices.SortStableFunc(out, func(a, b Segment) int {
		switch {
		case a.Start < b.Start:
			return -1
		case a.Start > b.Start:
			return 1
		}
		return 0
	})

	merged := out[:0]
	for _, seg := range out {
		if n := len(merged); n > 0 && seg.Start <= merged[n-1].End {
			last := &merged[n-1]
			if seg.End > last.End {
				la, sa := last.Duration(), seg.Duration()
				last.Confidence = (last.Confidence*la + seg.Confidence*sa) / (la + sa)
				last.End = seg.End
			}
			continue
		}
		merged = append(merged, seg)
	}
	return merged
}

// Coverage returns the fraction of duration covered by segments.
func Coverage(segments []Segment, duration float64) float64 {
	if duration <= 0 {
		return 0
	}
	return totalDuration(segments) / duration
}

func totalDuration(segments []Segment) float64 {
	var total float64
	for _, seg := range segments {
		total += seg.Duration()
	}
	return total
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
