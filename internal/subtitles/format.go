package subtitles

import (
	"fmt"
	"path/filepath"
	"strings"

	"capgate/internal/services"
)

// Format identifies a caption file format.
type Format string

const (
	FormatSRT Format = "srt"
	FormatVTT Format = "vtt"
)

// ParseFormat maps a config or flag value to a Format. Empty selects SRT.
func ParseFormat(value string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(value), ".")) {
	case "", "srt":
		return FormatSRT, nil
	case "vtt", "webvtt":
		return FormatVTT, nil
	default:
		return "", services.Wrap(services.ErrSerialization, "serialize", "format", fmt.Sprintf("unsupported subtitle format %q", value), nil)
	}
}

// FormatFromPath infers the format from a file extension, falling back to
// SRT for anything that is not .vtt.
func FormatFromPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".vtt") {
		return FormatVTT
	}
	return FormatSRT
}

// Extension returns the file extension including the dot.
func (f Format) Extension() string {
	if f == FormatVTT {
		return ".vtt"
	}
	return ".srt"
}
