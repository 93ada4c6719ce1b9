package audio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"capgate/internal/services"
)

// DefaultSampleRate is the analysis rate used by the detectors.
const DefaultSampleRate = 16000

// LoadOptions controls how non-WAV inputs are decoded.
type LoadOptions struct {
	FFmpegBinary string
	SampleRate   int
}

// Load reads path into a validated track. WAV files are decoded natively;
// everything else, and WAV encodings DecodeWAV does not handle, goes through
// ffmpeg.
func Load(ctx context.Context, path string, opts LoadOptions) (*Track, error) {
	if strings.TrimSpace(path) == "" {
		return nil, services.Wrap(services.ErrInvalidInput, "audio", "load", "audio path is empty", nil)
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, services.Wrap(services.ErrInvalidInput, "audio", "stat", path, err)
	}
	if info.IsDir() {
		return nil, services.Wrap(services.ErrInvalidInput, "audio", "stat", fmt.Sprintf("%s is a directory", path), nil)
	}

	var track *Track
	if strings.EqualFold(filepath.Ext(path), ".wav") {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, services.Wrap(services.ErrInvalidInput, "audio", "read wav", path, err)
		}
		track, err = DecodeWAV(data)
		if err != nil && !errors.Is(err, ErrUnsupportedWAV) {
			return nil, services.Wrap(services.ErrInvalidInput, "audio", "decode wav", path, err)
		}
	}
	if track == nil {
		track, err = DecodeFFmpeg(ctx, opts.FFmpegBinary, path, opts.SampleRate)
		if err != nil {
			return nil, services.Wrap(services.ErrExternalTool, "audio", "ffmpeg decode", path, err)
		}
	}

	if err := track.Validate(); err != nil {
		return nil, services.Wrap(services.ErrInvalidInput, "audio", "validate", path, err)
	}
	return track, nil
}
