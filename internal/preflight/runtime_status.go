package preflight

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"capgate/internal/deps"
)

// FFmpegInfo reports the decoder version snapshot shown by "capgate status".
type FFmpegInfo struct {
	Available bool
	Command   string
	Version   string
}

// FFmpegVersion runs "ffmpeg -version" with a short timeout.
func FFmpegVersion(ctx context.Context, configured string) FFmpegInfo {
	command := deps.ResolveFFmpegPath(configured)
	if _, err := exec.LookPath(command); err != nil {
		return FFmpegInfo{Command: command}
	}

	versionCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	output, err := exec.CommandContext(versionCtx, command, "-hide_banner", "-version").Output()
	if err != nil {
		return FFmpegInfo{Command: command}
	}
	return FFmpegInfo{
		Available: true,
		Command:   command,
		Version:   parseFFmpegVersion(string(output)),
	}
}

func parseFFmpegVersion(output string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(output), "\n")
	fields := strings.Fields(line)
	if len(fields) >= 3 && fields[0] == "ffmpeg" && fields[1] == "version" {
		return fields[2]
	}
	return "unknown"
}

// Detail renders a display-friendly summary for status output.
func (p FFmpegInfo) Detail() string {
	if !p.Available {
		return fmt.Sprintf("%s not available (WAV input only)", p.Command)
	}
	return fmt.Sprintf("%s (version %s)", p.Command, p.Version)
}
