package vad

import (
	"context"
	"math"

	"capgate/internal/audio"
)

const energyWindowSeconds = 0.05

type energyDetector struct {
	opts Options
}

func newEnergyDetector(opts Options) Detector {
	return &energyDetector{opts: opts}
}

func (d *energyDetector) Tier() Tier   { return TierEnergy }
func (d *energyDetector) Name() string { return "energy" }

// Detect thresholds 50 ms RMS windows against EnergyPeakRatio of the loudest
// window. A silent track yields no segments.
func (d *energyDetector) Detect(ctx context.Context, track *audio.Track) ([]Segment, error) {
	window := int(math.Round(energyWindowSeconds * float64(track.SampleRate)))
	if window <= 0 {
		window = 1
	}
	rms := windowRMS(track.Samples, window)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var peak float64
	for _, v := range rms {
		peak = math.Max(peak, v)
	}
	if peak == 0 {
		return nil, nil
	}
	scores := make([]float64, len(rms))
	for i, v := range rms {
		scores[i] = v / peak
	}
	ratio := d.opts.EnergyPeakRatio
	return framesToSegments(scores, frameRules{
		frameSeconds:  float64(window) / float64(track.SampleRate),
		threshold:     ratio,
		exitThreshold: ratio,
		minSpeech:     d.opts.MinSpeechDuration,
		minSilence:    d.opts.MinSilenceDuration,
		duration:      track.Duration,
	}), nil
}

// windowRMS computes RMS over consecutive windows; the last window may be
// shorter.
func windowRMS(samples []float32, window int) []float64 {
	out := make([]float64, 0, len(samples)/window+1)
	for start := 0; start < len(samples); start += window {
		end := min(start+window, len(samples))
		var sum float64
		for _, s := range samples[start:end] {
			sum += float64(s) * float64(s)
		}
		out = append(out, math.Sqrt(sum/float64(end-start)))
	}
	return out
}
