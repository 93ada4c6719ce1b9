package gate

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"capgate/internal/cue"
	"capgate/internal/logging"
	"capgate/internal/services"
	"capgate/internal/vad"
)

// timeEpsilon absorbs float error when comparing against the track end.
const timeEpsilon = 1e-9

// Stats summarizes one Apply call. Passthrough counts cues kept on their own
// timing because the VAD result could not vouch for them either way.
type Stats struct {
	Input       int
	Output      int
	Dropped     int
	Merged      int
	Passthrough int
	Tier        vad.Tier
	Degraded    bool
	Bypassed    bool
}

// Gate applies Params to cue lists and logs per-cue decisions.
type Gate struct {
	params Params
	logger *slog.Logger
}

// New builds a Gate. A nil logger discards output.
func New(p Params, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Gate{params: p, logger: logger}
}

// Apply gates raw cues against vr with default logging disabled.
func Apply(raw []cue.Cue, vr vad.Result, duration float64, p Params) ([]cue.Cue, Stats, error) {
	return New(p, nil).Apply(context.Background(), raw, vr, duration)
}

// Apply restricts each raw cue to the first speech segment it touches, drops
// cues no segment backs, and merges cues separated by less than MergeGap.
// When vr is bypassed every cue keeps its own timing clamped to the track.
// Output indices run from 1.
func (g *Gate) Apply(ctx context.Context, raw []cue.Cue, vr vad.Result, duration float64) ([]cue.Cue, Stats, error) {
	logger := logging.WithContext(ctx, g.logger)
	stats := Stats{
		Input:    len(raw),
		Tier:     vr.Tier,
		Degraded: vr.Degraded,
		Bypassed: vr.Bypassed,
	}
	if len(raw) == 0 {
		return nil, stats, g.fail(services.ErrTranscriptEmpty, stats, fmt.Errorf("no cues to gate"))
	}
	if duration <= 0 {
		return nil, stats, g.fail(services.ErrInvalidInput, stats, fmt.Errorf("track duration must be positive, got %v", duration))
	}
	if err := g.params.Validate(); err != nil {
		return nil, stats, err
	}

	gated := make([]cue.Cue, 0, len(raw))
	for _, c := range raw {
		if !vr.Bypassed {
			if seg, ok := firstOverlap(c, vr.Segments); ok {
				gated = append(gated, Clamp(c, seg, duration, g.params))
				continue
			}
		}
		if vr.Bypassed || vr.Degraded {
			if kept, ok := clampToTrack(c, duration, g.params.MinDuration); ok {
				stats.Passthrough++
				gated = append(gated, kept)
				continue
			}
		}
		stats.Dropped++
		logger.Debug("cue dropped",
			logging.String(logging.FieldEventType, "cue_dropped"),
			logging.Float64("start", c.Start),
			logging.Float64("end", c.End),
			logging.String("text", c.Text),
			logging.String(logging.FieldTier, string(vr.Tier)),
		)
	}

	merged, mergedCount := Merge(gated, g.params.MergeGap)
	stats.Merged = mergedCount
	stats.Output = len(merged)

	if len(merged) == 0 && !vr.Degraded {
		return nil, stats, g.fail(services.ErrNoSpeech, stats, fmt.Errorf("no cue overlaps detected speech"))
	}
	return merged, stats, nil
}

func (g *Gate) fail(marker error, stats Stats, err error) error {
	return &services.PipelineError{
		Marker:   marker,
		Stage:    "gate",
		Tier:     string(stats.Tier),
		CuesIn:   stats.Input,
		CuesOut:  stats.Output,
		Degraded: stats.Degraded,
		Err:      err,
	}
}

func firstOverlap(c cue.Cue, segments []vad.Segment) (vad.Segment, bool) {
	for _, seg := range segments {
		if c.Overlaps(seg.Start, seg.End) {
			return seg, true
		}
	}
	return vad.Segment{}, false
}

// Clamp snaps c to seg widened by the pads and bounded by [0, duration],
// then extends it to MinDuration where the track allows. Clamp is
// idempotent for a fixed seg.
func Clamp(c cue.Cue, seg vad.Segment, duration float64, p Params) cue.Cue {
	start := seg.Start - p.PrePad
	if p.PreserveWordOnset {
		start = min(max(c.Start, start), seg.End)
	}
	start = max(0, start)
	end := min(duration, seg.End+p.PostPad)
	c.Start, c.End = enforceMinDuration(start, end, duration, p.MinDuration)
	return c
}

// clampToTrack keeps c's own timing inside [0, duration]. Cues entirely
// outside the track are rejected.
func clampToTrack(c cue.Cue, duration, minDuration float64) (cue.Cue, bool) {
	start := max(0, c.Start)
	end := min(duration, c.End)
	if start >= duration || end <= 0 || end < start {
		return c, false
	}
	c.Start, c.End = enforceMinDuration(start, end, duration, minDuration)
	if c.End <= c.Start {
		return c, false
	}
	return c, true
}

// enforceMinDuration extends end to start+minDuration. When the track end is
// in the way the cue is pinned to the last minDuration of the track.
func enforceMinDuration(start, end, duration, minDuration float64) (float64, float64) {
	if end-start >= minDuration {
		return start, end
	}
	if start+minDuration <= duration-timeEpsilon {
		return start, start + minDuration
	}
	return max(0, duration-minDuration), duration
}

// Merge folds cues whose gap to the previous kept cue is below gap, in start
// order, joining text with a space. It returns the merged cues renumbered
// from 1 and the number of folds. The input slice is not modified.
func Merge(cues []cue.Cue, gap float64) ([]cue.Cue, int) {
	if len(cues) == 0 {
		return nil, 0
	}
	ordered := append([]cue.Cue(nil), cues...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Start < ordered[j].Start })

	merged := make([]cue.Cue, 0, len(ordered))
	merged = append(merged, ordered[0])
	folds := 0
	for _, c := range ordered[1:] {
		last := &merged[len(merged)-1]
		if c.Start-last.End < gap {
			last.End = max(last.End, c.End)
			last.Text = joinText(last.Text, c.Text)
			folds++
			continue
		}
		merged = append(merged, c)
	}
	cue.Renumber(merged)
	return merged, folds
}

func joinText(a, b string) string {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	switch {
	case a == "":
		return b
	case b == "":
		return a
	default:
		return a + " " + b
	}
}
