package vad

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"capgate/internal/audio"
	"capgate/internal/logging"
	"capgate/internal/services"
)

// Engine runs detectors in tier order until one succeeds.
type Engine struct {
	opts      Options
	detectors []Detector
	logger    *slog.Logger
}

// NewEngine builds an engine over detectors, keeping only the tiers enabled
// in opts. With no detectors it uses DefaultDetectors.
func NewEngine(opts Options, logger *slog.Logger, detectors ...Detector) *Engine {
	if len(detectors) == 0 {
		detectors = DefaultDetectors(opts)
	}
	enabled := make([]Detector, 0, len(detectors))
	for _, d := range detectors {
		if opts.enabled(d.Tier()) {
			enabled = append(enabled, d)
		}
	}
	return &Engine{
		opts:      opts,
		detectors: enabled,
		logger:    logging.NewComponentLogger(logger, "vad"),
	}
}

// DefaultDetectors returns the primary, classical and energy detectors.
func DefaultDetectors(opts Options) []Detector {
	return []Detector{
		newPrimaryDetector(opts),
		newClassicalDetector(opts),
		newEnergyDetector(opts),
	}
}

// Detectors returns the enabled detectors in fallback order.
func (e *Engine) Detectors() []Detector {
	return append([]Detector(nil), e.detectors...)
}

// Detect returns speech segments for track. Tier failures advance to the
// next tier and are recorded in Result.Attempts; only a failure of the last
// enabled tier, an invalid track, or a cancelled context is returned.
func (e *Engine) Detect(ctx context.Context, track *audio.Track) (Result, error) {
	if err := track.Validate(); err != nil {
		return Result{}, services.Wrap(services.ErrInvalidInput, "vad", "validate track", "", err)
	}
	if len(e.detectors) == 0 {
		return Result{}, services.Wrap(services.ErrInvariant, "vad", "detect", "no detector tiers enabled", nil)
	}
	logger := logging.WithContext(ctx, e.logger)

	var attempts []Attempt
	for i, detector := range e.detectors {
		final := i == len(e.detectors)-1
		started := time.Now()

		segments, err := e.detectWithTimeout(ctx, detector, track)
		attempt := Attempt{
			Tier:     detector.Tier(),
			Detector: detector.Name(),
			Outcome:  OutcomeOK,
			Elapsed:  time.Since(started),
			Err:      err,
		}
		if err != nil {
			attempt.Outcome = outcomeFor(err)
			attempts = append(attempts, attempt)

			if ctxErr := ctx.Err(); ctxErr != nil {
				marker := services.ErrTransient
				if errors.Is(ctxErr, context.DeadlineExceeded) {
					marker = services.ErrTimeout
				}
				return Result{Attempts: attempts}, services.Wrap(marker, "vad", "detect", "context done", ctxErr)
			}
			if final {
				return Result{Attempts: attempts}, services.Wrap(services.ErrInvariant, "vad", detector.Name(), "last detector tier failed", err)
			}
			logging.WarnWithContext(logger, "vad tier failed; falling back", "vad_tier_fallback",
				logging.String(logging.FieldTier, string(detector.Tier())),
				logging.String("detector", detector.Name()),
				logging.String("outcome", attempt.Outcome),
				logging.Duration("elapsed", attempt.Elapsed),
				logging.Error(err),
				logging.String(logging.FieldImpact, "speech timing comes from a lower tier"),
				logging.String(logging.FieldErrorHint, fallbackHint(err)),
			)
			continue
		}
		attempts = append(attempts, attempt)

		result := e.buildResult(detector, segments, track.Duration)
		result.Attempts = attempts
		if result.Bypassed {
			logging.WarnWithContext(logger, "vad result implausibly sparse; gating bypassed", "vad_bypass",
				logging.String(logging.FieldTier, string(result.Tier)),
				logging.Float64("coverage", result.Coverage),
				logging.Int("segments", len(segments)),
				logging.String(logging.FieldImpact, "captions keep transcript timing"),
				logging.String(logging.FieldErrorHint, "check the audio track or lower vad.bypass_min_coverage"),
			)
		}
		logger.Debug("vad tier selected",
			logging.String(logging.FieldTier, string(result.Tier)),
			logging.String("detector", result.Detector),
			logging.Int("segments", len(result.Segments)),
			logging.Float64("coverage", result.Coverage),
			logging.Bool("degraded", result.Degraded),
			logging.Duration("elapsed", attempt.Elapsed),
		)
		return result, nil
	}
	return Result{Attempts: attempts}, services.Wrap(services.ErrInvariant, "vad", "detect", "no tier produced a result", nil)
}

func (e *Engine) buildResult(detector Detector, raw []Segment, duration float64) Result {
	segments := normalizeSegments(raw, duration)
	result := Result{
		Segments: segments,
		Tier:     detector.Tier(),
		Detector: detector.Name(),
		Degraded: e.degraded(detector.Tier()),
		Coverage: Coverage(segments, duration),
	}
	if e.implausible(segments, result.Coverage) {
		result.Segments = []Segment{{Start: 0, End: duration, Confidence: 0}}
		result.Degraded = true
		result.Bypassed = true
	}
	return result
}

func (e *Engine) degraded(tier Tier) bool {
	switch tier {
	case TierPrimary:
		return false
	case TierClassical:
		return !e.opts.TrustClassical
	default:
		return true
	}
}

func (e *Engine) implausible(segments []Segment, coverage float64) bool {
	if len(segments) == 0 {
		return true
	}
	if coverage < e.opts.BypassMinCoverage {
		return true
	}
	if e.opts.BypassMinSpeechSeconds > 0 && totalDuration(segments) < e.opts.BypassMinSpeechSeconds {
		return true
	}
	return false
}

type detectOutcome struct {
	segments []Segment
	err      error
}

// detectWithTimeout runs detector in its own goroutine and stops waiting at
// the deadline. A detector that ignores ctx keeps running in the background;
// its result is discarded.
func (e *Engine) detectWithTimeout(ctx context.Context, detector Detector, track *audio.Track) ([]Segment, error) {
	timeout := e.opts.timeoutFor(track.Duration)
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan detectOutcome, 1)
	go func() {
		segments, err := safeDetect(ctx, detector, track)
		done <- detectOutcome{segments: segments, err: err}
	}()

	select {
	case out := <-done:
		return out.segments, out.err
	case <-ctx.Done():
		return nil, services.Wrap(services.ErrTimeout, "vad", detector.Name(), fmt.Sprintf("exceeded %s", timeout), ctx.Err())
	}
}

type panicError struct {
	value any
}

func (p panicError) Error() string {
	return fmt.Sprintf("detector panic: %v", p.value)
}

func safeDetect(ctx context.Context, detector Detector, track *audio.Track) (segments []Segment, err error) {
	defer func() {
		if r := recover(); r != nil {
			segments = nil
			err = panicError{value: r}
		}
	}()
	return detector.Detect(ctx, track)
}

func outcomeFor(err error) string {
	var pe panicError
	switch {
	case errors.As(err, &pe):
		return OutcomePanic
	case errors.Is(err, services.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return OutcomeTimeout
	default:
		return OutcomeError
	}
}

func fallbackHint(err error) string {
	switch {
	case errors.Is(err, ErrPrimaryUnavailable):
		return "build with -tags silero to enable the primary tier"
	case errors.Is(err, services.ErrTimeout):
		return "raise vad.min_timeout_seconds or vad.timeout_factor"
	default:
		return "check the vad runtime installation"
	}
}
