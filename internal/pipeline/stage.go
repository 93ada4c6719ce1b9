package pipeline

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"capgate/internal/logging"
	"capgate/internal/observe"
	"capgate/internal/services"
)

// Stage names used in logs, spans and metrics.
const (
	StagePreflight  = "preflight"
	StageAudio      = "audio"
	StageTranscript = "transcript"
	StageNormalize  = "normalize"
	StageVAD        = "vad"
	StageGate       = "gate"
	StageWrite      = "write"
	StageValidate   = "validate"
)

// runStage executes fn with stage-scoped logging, tracing and timing.
func (r *Runner) runStage(ctx context.Context, name string, fn func(context.Context) error) error {
	stageCtx := services.WithStage(ctx, name)
	stageCtx, span := observe.StartSpan(stageCtx, "capgate."+name)
	logger := logging.WithContext(stageCtx, r.logger)

	logger.Debug("stage started", logging.String(logging.FieldEventType, "stage_start"))

	started := time.Now()
	err := fn(stageCtx)
	elapsed := time.Since(started)

	r.metrics.RecordStage(ctx, name, elapsed.Seconds())
	observe.EndSpan(span, err, attribute.String("stage", name))

	if err != nil {
		reason := services.FailureReason(err)
		logging.ErrorWithContext(logger, "stage failed", "stage_failure",
			logging.String(logging.FieldReason, string(reason)),
			logging.String(logging.FieldErrorHint, failureHint(reason)),
			logging.Duration("elapsed", elapsed),
			logging.Error(err),
		)
		return err
	}
	logger.Debug("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Duration("elapsed", elapsed),
	)
	return nil
}

func failureHint(reason services.Reason) string {
	switch reason {
	case services.ReasonTranscriptEmpty:
		return "check that the transcript has timed segments with text"
	case services.ReasonNoSpeech:
		return "confirm the audio matches the transcript or lower vad.threshold"
	case services.ReasonVADDegraded:
		return "enable the silero tier or unset vad.fail_on_degraded"
	case services.ReasonInvalidInput:
		return "check the input paths and formats"
	case services.ReasonConfiguration:
		return "run capgate config validate"
	case services.ReasonExternalTool:
		return "run capgate status to check ffmpeg"
	case services.ReasonTimeout:
		return "raise vad.timeout_factor or vad.min_timeout_seconds"
	default:
		return "check logs for details"
	}
}
