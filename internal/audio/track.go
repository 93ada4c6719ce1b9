package audio

import (
	"errors"
	"fmt"
	"math"
)

// Track is a mono audio buffer with samples in [-1, 1]. Duration is in
// seconds and stays authoritative across resampling.
type Track struct {
	Samples    []float32
	SampleRate int
	Duration   float64
}

// NewTrack wraps samples without copying them.
func NewTrack(samples []float32, sampleRate int) *Track {
	t := &Track{Samples: samples, SampleRate: sampleRate}
	if sampleRate > 0 {
		t.Duration = float64(len(samples)) / float64(sampleRate)
	}
	return t
}

// Validate reports structural problems that make the track unusable.
func (t *Track) Validate() error {
	switch {
	case t == nil:
		return errors.New("track is nil")
	case t.SampleRate <= 0:
		return fmt.Errorf("invalid sample rate %d", t.SampleRate)
	case len(t.Samples) == 0:
		return errors.New("track has no samples")
	case t.Duration <= 0 || math.IsNaN(t.Duration) || math.IsInf(t.Duration, 0):
		return fmt.Errorf("invalid duration %v", t.Duration)
	}
	return nil
}

// Slice returns the samples between start and end seconds, clamped to the
// track bounds. The returned slice aliases the track buffer.
func (t *Track) Slice(start, end float64) []float32 {
	if t == nil || t.SampleRate <= 0 {
		return nil
	}
	lo := int(math.Max(0, start) * float64(t.SampleRate))
	hi := int(math.Min(t.Duration, end) * float64(t.SampleRate))
	lo = min(max(lo, 0), len(t.Samples))
	hi = min(max(hi, lo), len(t.Samples))
	return t.Samples[lo:hi]
}

// Peak returns the largest absolute sample value.
func (t *Track) Peak() float32 {
	var peak float32
	for _, s := range t.Samples {
		if s < 0 {
			s = -s
		}
		if s > peak {
			peak = s
		}
	}
	return peak
}
