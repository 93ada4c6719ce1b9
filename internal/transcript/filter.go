package transcript

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"unicode"

	"capgate/internal/logging"
	"capgate/internal/textutil"
)

// Removal reasons reported by Filter.
const (
	ReasonIsolatedHallucination = "isolated_hallucination"
	ReasonRepeatedHallucination = "repeated_hallucination"
	ReasonMusicSymbols          = "music_symbols"
	ReasonTrailingHallucination = "trailing_hallucination"
	ReasonTrailingMusic         = "trailing_music"
	ReasonAdvertisement         = "advertisement"
)

const (
	isolationGapSeconds   = 10.0
	repeatGapSeconds      = 5.0
	repeatMinRun          = 3
	trailingWindowSeconds = 15.0
	trailingMinTrack      = 120.0
)

// Removal records one segment dropped by Filter.
type Removal struct {
	Segment Segment
	Reason  string
}

// FilterResult holds the surviving segments and everything removed.
type FilterResult struct {
	Segments []Segment
	Removals []Removal
}

// Known transcription hallucinations in normalized form.
var hallucinationPhrases = map[string]bool{
	"thank you":              true,
	"thank you for watching": true,
	"thanks for watching":    true,
	"please subscribe":       true,
	"like and subscribe":     true,
	"well be right back":     true,
	"bye":                    true,
	"bye bye":                true,
	"see you next time":      true,
	"see you later":          true,
	"obrigado":               true,
	"obrigada":               true,
	"gracias":                true,
}

var adPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)opensubtitles`),
	regexp.MustCompile(`(?i)subtitles? by`),
	regexp.MustCompile(`(?i)synced? and corrected`),
	regexp.MustCompile(`(?i)http(s)?://`),
	regexp.MustCompile(`(?i)\bwww\.`),
	regexp.MustCompile(`(?i)\bsubscene\b`),
	regexp.MustCompile(`(?i)\byify\b`),
}

var apostrophes = strings.NewReplacer("'", "", "’", "")

// Filter drops transcription artifacts before normalization: advertisement
// lines, hallucinated sign-offs and music-only segments that sit in silence,
// runs of identical lines spaced far apart, and the same artifacts anywhere
// in the tail of longer tracks. trackSeconds of zero disables the tail sweep.
func Filter(segments []Segment, trackSeconds float64) FilterResult {
	remove := make([]bool, len(segments))
	var removals []Removal

	for i, seg := range segments {
		if isAdvertisement(seg.Text) {
			remove[i] = true
			removals = append(removals, Removal{Segment: seg, Reason: ReasonAdvertisement})
		}
	}

	markRepeatedHallucinations(segments, remove, &removals)

	for i, seg := range segments {
		if remove[i] {
			continue
		}
		isolated := gapToPrevious(segments, i) >= isolationGapSeconds && gapToNext(segments, i) >= isolationGapSeconds
		switch {
		case isolated && hallucinationPhrases[normalizePhrase(seg.Text)]:
			remove[i] = true
			removals = append(removals, Removal{Segment: seg, Reason: ReasonIsolatedHallucination})
		case isolated && isMusicOnly(seg.Text):
			remove[i] = true
			removals = append(removals, Removal{Segment: seg, Reason: ReasonMusicSymbols})
		}
	}

	if trackSeconds >= trailingMinTrack {
		threshold := trackSeconds - trailingWindowSeconds
		for i, seg := range segments {
			if remove[i] || seg.Start < threshold {
				continue
			}
			switch {
			case hallucinationPhrases[normalizePhrase(seg.Text)]:
				remove[i] = true
				removals = append(removals, Removal{Segment: seg, Reason: ReasonTrailingHallucination})
			case isMusicOnly(seg.Text):
				remove[i] = true
				removals = append(removals, Removal{Segment: seg, Reason: ReasonTrailingMusic})
			}
		}
	}

	kept := make([]Segment, 0, len(segments)-len(removals))
	for i, seg := range segments {
		if !remove[i] {
			kept = append(kept, seg)
		}
	}
	return FilterResult{Segments: kept, Removals: removals}
}

// markRepeatedHallucinations marks runs of repeatMinRun or more consecutive
// segments with identical normalized text where every gap exceeds
// repeatGapSeconds.
func markRepeatedHallucinations(segments []Segment, remove []bool, removals *[]Removal) {
	i := 0
	for i < len(segments) {
		norm := normalizePhrase(segments[i].Text)
		if norm == "" {
			i++
			continue
		}
		runEnd := i + 1
		for runEnd < len(segments) {
			if normalizePhrase(segments[runEnd].Text) != norm {
				break
			}
			if segments[runEnd].Start-segments[runEnd-1].End <= repeatGapSeconds {
				break
			}
			runEnd++
		}
		if runEnd-i >= repeatMinRun {
			for j := i; j < runEnd; j++ {
				if remove[j] {
					continue
				}
				remove[j] = true
				*removals = append(*removals, Removal{Segment: segments[j], Reason: ReasonRepeatedHallucination})
			}
		}
		i = runEnd
	}
}

func gapToPrevious(segments []Segment, i int) float64 {
	if i == 0 {
		return segments[i].Start
	}
	return segments[i].Start - segments[i-1].End
}

func gapToNext(segments []Segment, i int) float64 {
	if i >= len(segments)-1 {
		return 1e9
	}
	return segments[i+1].Start - segments[i].End
}

func normalizePhrase(text string) string {
	return strings.Join(textutil.Tokenize(apostrophes.Replace(text)), " ")
}

// isMusicOnly reports whether text consists only of music notation symbols
// (¶, ♪, ♫, *) and whitespace.
func isMusicOnly(text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}
	for _, r := range text {
		switch {
		case r == '¶', r == '♪', r == '♫', r == '*':
		case unicode.IsSpace(r):
		default:
			return false
		}
	}
	return true
}

func isAdvertisement(text string) bool {
	payload := strings.TrimSpace(text)
	if payload == "" {
		return false
	}
	for _, pattern := range adPatterns {
		if pattern.MatchString(payload) {
			return true
		}
	}
	return false
}

// LogFilterSummary logs removal counts at INFO and each removal at DEBUG.
// Nothing is logged when the filter removed nothing.
func LogFilterSummary(ctx context.Context, logger *slog.Logger, result FilterResult) {
	if logger == nil || len(result.Removals) == 0 {
		return
	}
	reasons := make(map[string]int)
	for _, r := range result.Removals {
		reasons[r.Reason]++
	}
	attrs := []slog.Attr{
		logging.String(logging.FieldEventType, "transcript_filter_applied"),
		logging.Int("segments_removed", len(result.Removals)),
		logging.Int("segments_remaining", len(result.Segments)),
	}
	for reason, count := range reasons {
		attrs = append(attrs, logging.Int("removed_"+reason, count))
	}
	logger.LogAttrs(ctx, slog.LevelInfo, "transcript filter applied", attrs...)

	for _, r := range result.Removals {
		logger.Debug("transcript filter removed segment",
			logging.String("text", r.Segment.Text),
			logging.String(logging.FieldReason, r.Reason),
			logging.Float64("start", r.Segment.Start),
			logging.Float64("end", r.Segment.End),
		)
	}
}
