package vad

import (
	"time"

	"capgate/internal/config"
)

// Options configures the detector tiers and the engine policy. An empty Tiers
// list enables every tier.
type Options struct {
	Threshold              float64
	MinSpeechDuration      float64
	MinSilenceDuration     float64
	Tiers                  []Tier
	TrustClassical         bool
	ClassicalMode          int
	EnergyPeakRatio        float64
	BypassMinCoverage      float64
	BypassMinSpeechSeconds float64
	TimeoutFactor          float64
	MinTimeout             time.Duration
	ModelPath              string
	ORTLibraryPath         string
}

// DefaultOptions mirrors the configuration defaults.
func DefaultOptions() Options {
	cfg := config.Default()
	opts, _ := OptionsFromConfig(cfg.VAD)
	return opts
}

// OptionsFromConfig converts the [vad] configuration section.
func OptionsFromConfig(cfg config.VAD) (Options, error) {
	opts := Options{
		Threshold:              cfg.Threshold,
		MinSpeechDuration:      cfg.MinSpeechDuration,
		MinSilenceDuration:     cfg.MinSilenceDuration,
		TrustClassical:         cfg.TrustClassical,
		ClassicalMode:          cfg.ClassicalMode,
		EnergyPeakRatio:        cfg.EnergyPeakRatio,
		BypassMinCoverage:      cfg.BypassMinCoverage,
		BypassMinSpeechSeconds: cfg.BypassMinSpeechSeconds,
		TimeoutFactor:          cfg.TimeoutFactor,
		MinTimeout:             time.Duration(cfg.MinTimeoutSeconds * float64(time.Second)),
		ModelPath:              cfg.ModelPath,
		ORTLibraryPath:         cfg.ORTLibraryPath,
	}
	for _, name := range cfg.Tiers {
		tier, err := ParseTier(name)
		if err != nil {
			return Options{}, err
		}
		opts.Tiers = append(opts.Tiers, tier)
	}
	return opts, nil
}

// timeoutFor returns max(MinTimeout, TimeoutFactor x duration).
func (o Options) timeoutFor(duration float64) time.Duration {
	scaled := time.Duration(o.TimeoutFactor * duration * float64(time.Second))
	return max(o.MinTimeout, scaled)
}

func (o Options) enabled(t Tier) bool {
	if len(o.Tiers) == 0 {
		return true
	}
	for _, candidate := range o.Tiers {
		if candidate == t {
			return true
		}
	}
	return false
}

// exitThreshold is the hysteresis level below which an active speech run ends.
func (o Options) exitThreshold() float64 {
	return max(o.Threshold-0.15, 0.01)
}
