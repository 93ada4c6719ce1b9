package deps

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// ResolveFFmpegPath returns the ffmpeg command to execute. An explicit
// configured value wins; otherwise an ffmpeg sitting next to the capgate
// executable is preferred over PATH lookup.
func ResolveFFmpegPath(configured string) string {
	if configured = strings.TrimSpace(configured); configured != "" && configured != "ffmpeg" {
		return configured
	}
	if exe, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(exe), executableName("ffmpeg"))
		if info, statErr := os.Stat(candidate); statErr == nil && isExecutable(info) {
			return candidate
		}
	}
	return "ffmpeg"
}

// FFmpegRequirement describes the ffmpeg binary used to decode non-WAV
// audio. WAV input never needs it, so it is optional.
func FFmpegRequirement(configured string) Requirement {
	return Requirement{
		Name:        "FFmpeg",
		Command:     ResolveFFmpegPath(configured),
		Description: "Decodes non-WAV audio to 16 kHz mono PCM",
		Optional:    true,
	}
}

// CheckFFmpeg reports the availability of the ffmpeg binary.
func CheckFFmpeg(configured string) Status {
	return checkBinary(FFmpegRequirement(configured))
}

func executableName(name string) string {
	if runtime.GOOS == "windows" {
		return name + ".exe"
	}
	return name
}

func isExecutable(info os.FileInfo) bool {
	if info == nil || info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
