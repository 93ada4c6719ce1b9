package audio

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// DecodeFFmpeg decodes any container ffmpeg understands into a mono track
// at sampleRate.
func DecodeFFmpeg(ctx context.Context, ffmpegBinary, path string, sampleRate int) (*Track, error) {
	if strings.TrimSpace(ffmpegBinary) == "" {
		ffmpegBinary = "ffmpeg"
	}
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-nostdin",
		"-i", path,
		"-vn",
		"-ac", "1",
		"-ar", fmt.Sprintf("%d", sampleRate),
		"-f", "s16le",
		"-",
	}
	cmd := exec.CommandContext(ctx, ffmpegBinary, args...) //nolint:gosec
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg pcm extract: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return NewTrack(PCM16ToFloat32(stdout.Bytes()), sampleRate), nil
}
