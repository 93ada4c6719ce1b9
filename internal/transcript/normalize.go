package transcript

import (
	"context"
	"log/slog"
	"strings"

	"capgate/internal/cue"
	"capgate/internal/logging"
	"capgate/internal/textutil"
)

// Granularity values accepted by Options.
const (
	GranularityWord    = "word"
	GranularitySegment = "segment"
)

// Options controls Normalize. Empty Granularity selects word cues.
type Options struct {
	Granularity string
	Logger      *slog.Logger
}

// Stats summarizes a Normalize call.
type Stats struct {
	Segments      int
	Skipped       int
	Cues          int
	EqualDivision int
}

// Normalize expands transcript segments into cues. In word granularity each
// segment's duration is spread over its words in proportion to their
// character counts, laid out contiguously from the segment start with the
// last word ending exactly at the segment end. Segments with a single word
// pass through unchanged. Segments with no text or without positive
// duration are skipped and logged. Indices run from 1 across the output.
func Normalize(segments []Segment, opts Options) ([]cue.Cue, Stats) {
	return NormalizeContext(context.Background(), segments, opts)
}

// NormalizeContext is Normalize with run fields from ctx attached to log
// lines.
func NormalizeContext(ctx context.Context, segments []Segment, opts Options) ([]cue.Cue, Stats) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.WithContext(ctx, logger)
	segmentMode := strings.EqualFold(strings.TrimSpace(opts.Granularity), GranularitySegment)

	stats := Stats{Segments: len(segments)}
	cues := make([]cue.Cue, 0, len(segments))
	for i, seg := range segments {
		words := textutil.Words(seg.Text)
		switch {
		case len(words) == 0:
			stats.Skipped++
			logging.WarnWithContext(logger, "skipping transcript segment without text", "transcript_segment_skipped",
				logging.Int("segment", i),
				logging.Float64("start", seg.Start),
				logging.Float64("end", seg.End),
				logging.String(logging.FieldReason, "empty_text"),
				logging.String(logging.FieldImpact, "segment produces no captions"),
			)
			continue
		case seg.End <= seg.Start:
			stats.Skipped++
			logging.WarnWithContext(logger, "skipping transcript segment without positive duration", "transcript_segment_skipped",
				logging.Int("segment", i),
				logging.Float64("start", seg.Start),
				logging.Float64("end", seg.End),
				logging.String("text", seg.Text),
				logging.String(logging.FieldReason, "non_positive_duration"),
				logging.String(logging.FieldImpact, "segment produces no captions"),
			)
			continue
		}

		if segmentMode || len(words) == 1 {
			cues = append(cues, cue.Cue{Start: seg.Start, End: seg.End, Text: textutil.CollapseSpace(seg.Text)})
			continue
		}

		var equal bool
		cues, equal = appendWordCues(cues, seg, words)
		if equal {
			stats.EqualDivision++
		}
	}

	cue.Renumber(cues)
	stats.Cues = len(cues)
	logger.Debug("transcript normalized",
		logging.String(logging.FieldEventType, "transcript_normalized"),
		logging.Int("segments", stats.Segments),
		logging.Int("skipped", stats.Skipped),
		logging.Int("cues", stats.Cues),
	)
	return cues, stats
}

// appendWordCues lays words out over seg. equal reports that character
// counts were unusable and every word received the same share.
func appendWordCues(dst []cue.Cue, seg Segment, words []string) ([]cue.Cue, bool) {
	lengths := make([]int, len(words))
	total := 0
	for i, w := range words {
		lengths[i] = textutil.RuneLength(w)
		total += lengths[i]
	}

	duration := seg.End - seg.Start
	equal := total == 0
	cursor := seg.Start
	last := len(words) - 1
	for i, w := range words {
		var share float64
		if equal {
			share = duration / float64(len(words))
		} else {
			share = duration * float64(lengths[i]) / float64(total)
		}
		end := cursor + share
		if i == last {
			end = seg.End
		}
		dst = append(dst, cue.Cue{Start: cursor, End: end, Text: w})
		cursor = end
	}
	return dst, equal
}
