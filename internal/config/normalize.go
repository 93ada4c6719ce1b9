package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeVAD(); err != nil {
		return err
	}
	c.normalizeNormalize()
	c.normalizeOutput()
	c.normalizeAudio()
	c.normalizeLogging()
	return c.normalizeMetrics()
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		c.Paths.WorkDir = defaultWorkDir
	}
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeVAD() error {
	var err error
	c.VAD.ModelPath = strings.TrimSpace(c.VAD.ModelPath)
	if c.VAD.ModelPath == "" {
		if value, ok := os.LookupEnv("CAPGATE_MODEL_PATH"); ok {
			c.VAD.ModelPath = strings.TrimSpace(value)
		}
	}
	if c.VAD.ModelPath, err = expandPath(c.VAD.ModelPath); err != nil {
		return fmt.Errorf("vad.model_path: %w", err)
	}
	c.VAD.ORTLibraryPath = strings.TrimSpace(c.VAD.ORTLibraryPath)
	if c.VAD.ORTLibraryPath == "" {
		if value, ok := os.LookupEnv("CAPGATE_ORT_LIB_PATH"); ok {
			c.VAD.ORTLibraryPath = strings.TrimSpace(value)
		}
	}
	if c.VAD.ORTLibraryPath, err = expandPath(c.VAD.ORTLibraryPath); err != nil {
		return fmt.Errorf("vad.ort_library_path: %w", err)
	}

	if len(c.VAD.Tiers) > 0 {
		tiers, err := NormalizeTiers(c.VAD.Tiers)
		if err != nil {
			return err
		}
		c.VAD.Tiers = tiers
	}
	if c.VAD.TimeoutFactor <= 0 {
		c.VAD.TimeoutFactor = defaultTimeoutFactor
	}
	if c.VAD.MinTimeoutSeconds <= 0 {
		c.VAD.MinTimeoutSeconds = defaultMinTimeoutSeconds
	}
	return nil
}

// NormalizeTiers canonicalizes tier names, drops duplicates, and orders the
// result by fallback precedence. Unknown names are rejected.
func NormalizeTiers(values []string) ([]string, error) {
	seen := make(map[string]struct{}, len(values))
	for _, raw := range values {
		name := strings.ToLower(strings.TrimSpace(raw))
		if name == "" {
			continue
		}
		canonical, ok := tierAliases[name]
		if !ok {
			return nil, fmt.Errorf("vad.tiers: unknown tier %q", raw)
		}
		seen[canonical] = struct{}{}
	}
	ordered := make([]string, 0, len(seen))
	for _, tier := range []string{TierPrimary, TierClassical, TierEnergy} {
		if _, ok := seen[tier]; ok {
			ordered = append(ordered, tier)
		}
	}
	return ordered, nil
}

func (c *Config) normalizeNormalize() {
	c.Normalize.Granularity = strings.ToLower(strings.TrimSpace(c.Normalize.Granularity))
	if c.Normalize.Granularity == "" {
		c.Normalize.Granularity = defaultGranularity
	}
}

func (c *Config) normalizeOutput() {
	c.Output.Format = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(c.Output.Format), "."))
	switch c.Output.Format {
	case "":
		c.Output.Format = defaultOutputFormat
	case "webvtt":
		c.Output.Format = FormatVTT
	}
}

func (c *Config) normalizeAudio() {
	c.Audio.FFmpegBinary = strings.TrimSpace(c.Audio.FFmpegBinary)
	if c.Audio.FFmpegBinary == "" {
		c.Audio.FFmpegBinary = defaultFFmpegBinary
	}
	if c.Audio.SampleRate == 0 {
		c.Audio.SampleRate = defaultSampleRate
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func (c *Config) normalizeMetrics() error {
	var err error
	if c.Metrics.TextfilePath, err = expandPath(strings.TrimSpace(c.Metrics.TextfilePath)); err != nil {
		return fmt.Errorf("metrics.textfile_path: %w", err)
	}
	return nil
}
