package vad

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"capgate/internal/audio"
)

// Tier identifies a detector class in the fallback chain.
type Tier string

const (
	TierPrimary   Tier = "primary"
	TierClassical Tier = "classical"
	TierEnergy    Tier = "energy"
)

// Tiers lists every tier in fallback order.
var Tiers = []Tier{TierPrimary, TierClassical, TierEnergy}

// ErrPrimaryUnavailable is reported by the primary tier when the binary was
// built without the Silero model.
var ErrPrimaryUnavailable = errors.New("vad: primary tier unavailable (built without -tags silero)")

// ParseTier maps a tier name or detector alias onto a Tier.
func ParseTier(value string) (Tier, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "primary", "silero":
		return TierPrimary, nil
	case "classical", "webrtc":
		return TierClassical, nil
	case "energy", "rms":
		return TierEnergy, nil
	default:
		return "", fmt.Errorf("unknown vad tier %q", value)
	}
}

func (t Tier) rank() int {
	for i, candidate := range Tiers {
		if candidate == t {
			return i
		}
	}
	return len(Tiers)
}

// Detector is one speech detection strategy.
type Detector interface {
	Tier() Tier
	Name() string
	Detect(ctx context.Context, track *audio.Track) ([]Segment, error)
}

// Segment is a detected speech interval in seconds with 0 <= Start < End <=
// track duration. Confidence is the mean per-frame speech score.
type Segment struct {
	Start      float64
	End        float64
	Confidence float64
}

// Duration returns End minus Start.
func (s Segment) Duration() float64 {
	return s.End - s.Start
}

// Attempt outcomes.
const (
	OutcomeOK      = "ok"
	OutcomeError   = "error"
	OutcomeTimeout = "timeout"
	OutcomePanic   = "panic"
)

// Attempt records one tier invocation within a Detect call.
type Attempt struct {
	Tier     Tier
	Detector string
	Outcome  string
	Elapsed  time.Duration
	Err      error
}

// Result is the outcome of Engine.Detect. Degraded is set when the selected
// tier is not trusted or the result was replaced by the whole-track bypass.
// Coverage is the speech fraction reported by the selected tier before any
// bypass.
type Result struct {
	Segments []Segment
	Tier     Tier
	Detector string
	Degraded bool
	Bypassed bool
	Coverage float64
	Attempts []Attempt
}

// SpeechSeconds sums segment durations.
func (r Result) SpeechSeconds() float64 {
	return totalDuration(r.Segments)
}
