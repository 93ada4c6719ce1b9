package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateGate(); err != nil {
		return err
	}
	if err := c.validateVAD(); err != nil {
		return err
	}
	if err := c.validateNormalize(); err != nil {
		return err
	}
	if err := c.validateOutput(); err != nil {
		return err
	}
	if err := c.validateAudio(); err != nil {
		return err
	}
	return c.validateMetrics()
}

func (c *Config) validateGate() error {
	if err := ensureNonNegativeMap(map[string]float64{
		"gate.pre_pad":      c.Gate.PrePad,
		"gate.post_pad":     c.Gate.PostPad,
		"gate.min_duration": c.Gate.MinDuration,
		"gate.merge_gap":    c.Gate.MergeGap,
	}); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateVAD() error {
	v := c.VAD
	if v.Threshold <= 0 || v.Threshold >= 1 {
		return errors.New("vad.threshold must be between 0 and 1 (exclusive)")
	}
	if err := ensureNonNegativeMap(map[string]float64{
		"vad.min_speech_duration":       v.MinSpeechDuration,
		"vad.min_silence_duration":      v.MinSilenceDuration,
		"vad.bypass_min_speech_seconds": v.BypassMinSpeechSeconds,
	}); err != nil {
		return err
	}
	if v.ClassicalMode < 0 || v.ClassicalMode > 3 {
		return errors.New("vad.classical_mode must be between 0 and 3")
	}
	if v.EnergyPeakRatio <= 0 || v.EnergyPeakRatio >= 1 {
		return errors.New("vad.energy_peak_ratio must be between 0 and 1 (exclusive)")
	}
	if v.BypassMinCoverage < 0 || v.BypassMinCoverage > 1 {
		return errors.New("vad.bypass_min_coverage must be between 0 and 1")
	}
	if v.TimeoutFactor <= 0 {
		return errors.New("vad.timeout_factor must be positive")
	}
	if v.MinTimeoutSeconds <= 0 {
		return errors.New("vad.min_timeout_seconds must be positive")
	}
	for _, tier := range v.Tiers {
		if _, ok := tierAliases[tier]; !ok {
			return fmt.Errorf("vad.tiers: unknown tier %q", tier)
		}
	}
	return nil
}

func (c *Config) validateNormalize() error {
	switch c.Normalize.Granularity {
	case GranularityWord, GranularitySegment:
		return nil
	default:
		return fmt.Errorf("normalize.granularity must be %q or %q, got %q", GranularityWord, GranularitySegment, c.Normalize.Granularity)
	}
}

func (c *Config) validateOutput() error {
	switch c.Output.Format {
	case FormatSRT, FormatVTT:
		return nil
	default:
		return fmt.Errorf("output.format must be %q or %q, got %q", FormatSRT, FormatVTT, c.Output.Format)
	}
}

func (c *Config) validateAudio() error {
	if strings.TrimSpace(c.Audio.FFmpegBinary) == "" {
		return errors.New("audio.ffmpeg_binary must be set")
	}
	if c.Audio.SampleRate < 8000 || c.Audio.SampleRate > 48000 {
		return errors.New("audio.sample_rate must be between 8000 and 48000")
	}
	return nil
}

func (c *Config) validateMetrics() error {
	if c.Metrics.Enabled && strings.TrimSpace(c.Metrics.TextfilePath) == "" {
		return errors.New("metrics.textfile_path must be set when metrics.enabled is true")
	}
	return nil
}

func ensureNonNegativeMap(values map[string]float64) error {
	for key, value := range values {
		if value < 0 {
			return fmt.Errorf("%s must be >= 0", key)
		}
	}
	return nil
}
