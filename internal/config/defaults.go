package config

const (
	defaultConfigPath             = "~/.config/capgate/config.toml"
	defaultWorkDir                = "~/.local/share/capgate/work"
	defaultLogDir                 = "~/.local/share/capgate/logs"
	defaultPrePad                 = 0.06
	defaultPostPad                = 0.12
	defaultMinDuration            = 0.12
	defaultMergeGap               = 0.12
	defaultVADThreshold           = 0.5
	defaultMinSpeechDuration      = 0.25
	defaultMinSilenceDuration     = 0.10
	defaultClassicalMode          = 3
	defaultEnergyPeakRatio        = 0.10
	defaultBypassMinCoverage      = 0.10
	defaultBypassMinSpeechSeconds = 0
	defaultTimeoutFactor          = 0.5
	defaultMinTimeoutSeconds      = 5
	defaultGranularity            = GranularityWord
	defaultOutputFormat           = FormatSRT
	defaultFFmpegBinary           = "ffmpeg"
	defaultSampleRate             = 16000
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
)

// Granularity values accepted by normalize.granularity.
const (
	GranularityWord    = "word"
	GranularitySegment = "segment"
)

// Output formats accepted by output.format.
const (
	FormatSRT = "srt"
	FormatVTT = "vtt"
)

// Tier names accepted by vad.tiers, in fallback order.
const (
	TierPrimary   = "primary"
	TierClassical = "classical"
	TierEnergy    = "energy"
)

var tierAliases = map[string]string{
	"primary":   TierPrimary,
	"silero":    TierPrimary,
	"classical": TierClassical,
	"webrtc":    TierClassical,
	"energy":    TierEnergy,
	"rms":       TierEnergy,
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir: defaultWorkDir,
			LogDir:  defaultLogDir,
		},
		Gate: Gate{
			PrePad:      defaultPrePad,
			PostPad:     defaultPostPad,
			MinDuration: defaultMinDuration,
			MergeGap:    defaultMergeGap,
		},
		VAD: VAD{
			Threshold:              defaultVADThreshold,
			MinSpeechDuration:      defaultMinSpeechDuration,
			MinSilenceDuration:     defaultMinSilenceDuration,
			ClassicalMode:          defaultClassicalMode,
			EnergyPeakRatio:        defaultEnergyPeakRatio,
			BypassMinCoverage:      defaultBypassMinCoverage,
			BypassMinSpeechSeconds: defaultBypassMinSpeechSeconds,
			TimeoutFactor:          defaultTimeoutFactor,
			MinTimeoutSeconds:      defaultMinTimeoutSeconds,
		},
		Normalize: Normalize{
			Granularity:          defaultGranularity,
			FilterHallucinations: true,
		},
		Output: Output{
			Format:   defaultOutputFormat,
			Validate: true,
		},
		Audio: Audio{
			FFmpegBinary: defaultFFmpegBinary,
			SampleRate:   defaultSampleRate,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
