//go:build !silero

package vad

import (
	"context"

	"capgate/internal/audio"
)

// PrimaryAvailable reports whether the Silero tier is compiled in.
func PrimaryAvailable() bool { return false }

type unavailablePrimary struct{}

func newPrimaryDetector(Options) Detector { return unavailablePrimary{} }

func (unavailablePrimary) Tier() Tier   { return TierPrimary }
func (unavailablePrimary) Name() string { return "silero" }

func (unavailablePrimary) Detect(context.Context, *audio.Track) ([]Segment, error) {
	return nil, ErrPrimaryUnavailable
}
