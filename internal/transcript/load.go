package transcript

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"capgate/internal/services"
	"capgate/internal/subtitles"
)

type whisperXPayload struct {
	Segments []Segment `json:"segments"`
}

// Load reads a transcript file. .json files may hold a WhisperX-style
// {"segments": [...]} object or a bare array of segments; .srt and .vtt
// files contribute one segment per cue.
func Load(path string) ([]Segment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, services.Wrap(services.ErrInvalidInput, "transcript", "read", path, err)
	}

	var segments []Segment
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		segments, err = decodeJSON(data)
	case ".srt", ".vtt":
		segments, err = decodeCaptions(data)
	default:
		return nil, services.Wrap(services.ErrInvalidInput, "transcript", "load", fmt.Sprintf("unsupported transcript extension %q", ext), nil)
	}
	if err != nil {
		return nil, services.Wrap(services.ErrInvalidInput, "transcript", "decode", path, err)
	}
	if len(segments) == 0 {
		return nil, services.Wrap(services.ErrTranscriptEmpty, "transcript", "load", path, nil)
	}
	return segments, nil
}

func decodeJSON(data []byte) ([]Segment, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}
	if trimmed[0] == '[' {
		var segments []Segment
		if err := json.Unmarshal(trimmed, &segments); err != nil {
			return nil, fmt.Errorf("decode segment array: %w", err)
		}
		return segments, nil
	}
	var payload whisperXPayload
	if err := json.Unmarshal(trimmed, &payload); err != nil {
		return nil, fmt.Errorf("decode transcript object: %w", err)
	}
	return payload.Segments, nil
}

func decodeCaptions(data []byte) ([]Segment, error) {
	cues, err := subtitles.ParseSRT(string(data))
	if err != nil {
		return nil, err
	}
	segments := make([]Segment, 0, len(cues))
	for _, c := range cues {
		segments = append(segments, Segment{Start: c.Start, End: c.End, Text: c.Text})
	}
	return segments, nil
}
