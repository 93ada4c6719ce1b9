package subtitles

import (
	"fmt"
	"strconv"
	"strings"

	"capgate/internal/cue"
	"capgate/internal/services"
)

const vttHeader = "WEBVTT"

// Serialize renders cues in the requested format. Records are numbered from
// 1 in slice order regardless of Cue.Index and separated by a blank line.
func Serialize(cues []cue.Cue, format Format) (string, error) {
	if len(cues) == 0 {
		return "", &services.PipelineError{
			Marker: services.ErrSerialization,
			Stage:  "serialize",
			Err:    fmt.Errorf("no cues to serialize"),
		}
	}
	sep := byte(',')
	switch format {
	case FormatSRT, "":
	case FormatVTT:
		sep = '.'
	default:
		return "", services.Wrap(services.ErrSerialization, "serialize", "format", fmt.Sprintf("unsupported subtitle format %q", format), nil)
	}
	for i, c := range cues {
		if c.End-c.Start <= 0 {
			return "", &services.PipelineError{
				Marker:  services.ErrSerialization,
				Stage:   "serialize",
				CuesIn:  len(cues),
				CuesOut: i,
				Err:     fmt.Errorf("cue %d has non-positive duration (%.3f-%.3f)", i+1, c.Start, c.End),
			}
		}
	}

	var sb strings.Builder
	if format == FormatVTT {
		sb.WriteString(vttHeader)
		sb.WriteString("\n\n")
	}
	for i, c := range cues {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(strconv.Itoa(i + 1))
		sb.WriteString("\n")
		sb.WriteString(formatTimestamp(c.Start, sep))
		sb.WriteString(" --> ")
		sb.WriteString(formatTimestamp(c.End, sep))
		sb.WriteString("\n")
		if text := cueText(c.Text); text != "" {
			sb.WriteString(text)
			sb.WriteString("\n")
		}
	}
	return sb.String(), nil
}

// cueText drops blank lines inside a cue so the text cannot terminate the
// record early.
func cueText(text string) string {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	kept := lines[:0]
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}
