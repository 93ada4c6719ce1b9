package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains working and log directory configuration.
type Paths struct {
	WorkDir string `toml:"work_dir"`
	LogDir  string `toml:"log_dir"`
}

// Gate contains the padding and merge windows applied to gated cues. All
// values are in seconds.
type Gate struct {
	PrePad            float64 `toml:"pre_pad"`
	PostPad           float64 `toml:"post_pad"`
	MinDuration       float64 `toml:"min_duration"`
	MergeGap          float64 `toml:"merge_gap"`
	PreserveWordOnset bool    `toml:"preserve_word_onset"`
}

// VAD contains detector selection, tier thresholds and degradation policy.
// An empty Tiers list enables every tier in fallback order.
type VAD struct {
	Threshold              float64  `toml:"threshold"`
	MinSpeechDuration      float64  `toml:"min_speech_duration"`
	MinSilenceDuration     float64  `toml:"min_silence_duration"`
	Tiers                  []string `toml:"tiers"`
	TrustClassical         bool     `toml:"trust_classical"`
	ClassicalMode          int      `toml:"classical_mode"`
	EnergyPeakRatio        float64  `toml:"energy_peak_ratio"`
	BypassMinCoverage      float64  `toml:"bypass_min_coverage"`
	BypassMinSpeechSeconds float64  `toml:"bypass_min_speech_seconds"`
	TimeoutFactor          float64  `toml:"timeout_factor"`
	MinTimeoutSeconds      float64  `toml:"min_timeout_seconds"`
	ModelPath              string   `toml:"model_path"`
	ORTLibraryPath         string   `toml:"ort_library_path"`
	FailOnDegraded         bool     `toml:"fail_on_degraded"`
}

// Normalize controls how transcript segments are split into cues.
// FilterHallucinations drops known transcription artifacts (isolated
// sign-off phrases, music-only segments) before splitting.
type Normalize struct {
	Granularity          string `toml:"granularity"`
	FilterHallucinations bool   `toml:"filter_hallucinations"`
}

// Output controls the serialized subtitle format. Validate re-reads written
// SRT files and logs content issues.
type Output struct {
	Format   string `toml:"format"`
	Validate bool   `toml:"validate"`
}

// Audio contains decoder settings.
type Audio struct {
	FFmpegBinary string `toml:"ffmpeg_binary"`
	SampleRate   int    `toml:"sample_rate"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format      string `toml:"format"`
	Level       string `toml:"level"`
	Development bool   `toml:"development"`
}

// Metrics contains OpenTelemetry export settings.
type Metrics struct {
	Enabled      bool   `toml:"enabled"`
	TextfilePath string `toml:"textfile_path"`
}

// Config encapsulates all configuration values for capgate.
//
// Configuration sections by subsystem:
//   - Paths: working and log directories
//   - Gate: cue padding, minimum duration and merge window
//   - VAD: detector tiers, thresholds, timeouts and bypass policy
//   - Normalize: word or segment granularity
//   - Output: subtitle format
//   - Audio: ffmpeg binary and analysis sample rate
//   - Logging: log format and level
//   - Metrics: Prometheus textfile export
type Config struct {
	Paths     Paths     `toml:"paths"`
	Gate      Gate      `toml:"gate"`
	VAD       VAD       `toml:"vad"`
	Normalize Normalize `toml:"normalize"`
	Output    Output    `toml:"output"`
	Audio     Audio     `toml:"audio"`
	Logging   Logging   `toml:"logging"`
	Metrics   Metrics   `toml:"metrics"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("capgate.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the working and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.WorkDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// FFmpegBinary returns the ffmpeg executable used to decode non-WAV audio.
func (c *Config) FFmpegBinary() string {
	if bin := strings.TrimSpace(c.Audio.FFmpegBinary); bin != "" {
		return bin
	}
	return defaultFFmpegBinary
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// SampleConfig returns the embedded sample configuration.
func SampleConfig() string {
	return sampleConfig
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
