package subtitles

import (
	"fmt"
	"os"
	"sort"
	"strings"
)

// Issue codes reported by ValidateContent. Issues with detail are rendered
// as "<code>: <detail>".
const (
	IssueReadError          = "read_error"
	IssueEmptyFile          = "empty_subtitle_file"
	IssueTimestampParse     = "timestamp_parse_error"
	IssueNoValidTimestamps  = "no_valid_timestamps"
	IssueInvalidCueDuration = "invalid_cue_duration"
	IssueOverlappingCues    = "overlapping_cues"
	IssueDurationMismatch   = "duration_mismatch"
)

// Cues may end at most this far past the track end before it counts as a
// mismatch; rounding to milliseconds alone can push an end 0.5 ms over.
const durationToleranceSeconds = 0.5

// ValidateContent checks a caption file for format issues. trackSeconds of
// zero skips the duration check. An empty slice means validation passed.
func ValidateContent(path string, trackSeconds float64) []string {
	data, err := os.ReadFile(path)
	if err != nil {
		return []string{fmt.Sprintf("%s: %v", IssueReadError, err)}
	}
	return ValidateCues(string(data), trackSeconds)
}

// ValidateCues runs the ValidateContent checks over in-memory content.
func ValidateCues(content string, trackSeconds float64) []string {
	result := parseBlocks(content)
	if len(result.cues) == 0 && len(result.failures) == 0 {
		return []string{IssueEmptyFile}
	}

	var issues []string
	if n := len(result.failures); n > 0 {
		issues = append(issues, fmt.Sprintf("%s: blocks=%d first=%v", IssueTimestampParse, n, result.failures[0]))
	}
	if len(result.cues) == 0 {
		return append(issues, IssueNoValidTimestamps)
	}

	var invalid []string
	for _, c := range result.cues {
		if c.End <= c.Start {
			invalid = append(invalid, fmt.Sprintf("#%d", c.Index))
		}
	}
	if len(invalid) > 0 {
		issues = append(issues, fmt.Sprintf("%s: %s", IssueInvalidCueDuration, strings.Join(invalid, ",")))
	}

	ordered := append(result.cues[:0:0], result.cues...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Start < ordered[j].Start })
	overlaps := 0
	first := 0
	lastEnd := ordered[0].End
	for _, c := range ordered[1:] {
		if c.Start < lastEnd {
			if overlaps == 0 {
				first = c.Index
			}
			overlaps++
		}
		lastEnd = max(lastEnd, c.End)
	}
	if overlaps > 0 {
		issues = append(issues, fmt.Sprintf("%s: count=%d first=#%d", IssueOverlappingCues, overlaps, first))
	}

	if trackSeconds > 0 {
		var last float64
		for _, c := range result.cues {
			last = max(last, c.End)
		}
		if delta := last - trackSeconds; delta > durationToleranceSeconds {
			issues = append(issues, fmt.Sprintf("%s: delta=%.1fs", IssueDurationMismatch, delta))
		}
	}
	return issues
}

// IssueCode strips the detail from a rendered issue.
func IssueCode(issue string) string {
	code, _, _ := strings.Cut(issue, ":")
	return code
}
