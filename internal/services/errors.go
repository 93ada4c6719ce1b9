package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrTranscriptEmpty = errors.New("transcript empty")
	ErrNoSpeech        = errors.New("no speech detected")
	ErrVADDegraded     = errors.New("vad degraded")
	ErrInvalidInput    = errors.New("invalid input")
	ErrSerialization   = errors.New("serialization rejected")
	ErrInvariant       = errors.New("invariant violation")
	ErrExternalTool    = errors.New("external tool error")
	ErrConfiguration   = errors.New("configuration error")
	ErrTimeout         = errors.New("timeout")
	ErrTransient       = errors.New("transient failure")
)

// Reason is the machine-readable failure code reported to the enclosing job.
type Reason string

const (
	ReasonNone            Reason = ""
	ReasonTranscriptEmpty Reason = "transcript_empty"
	ReasonNoSpeech        Reason = "no_speech_detected"
	ReasonVADDegraded     Reason = "vad_degraded"
	ReasonInvalidInput    Reason = "invalid_input"
	ReasonSerialization   Reason = "serialization_rejected"
	ReasonInvariant       Reason = "invariant_violation"
	ReasonExternalTool    Reason = "external_tool"
	ReasonConfiguration   Reason = "configuration"
	ReasonTimeout         Reason = "timeout"
	ReasonUnclassified    Reason = "unclassified"
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// PipelineError carries the diagnostic context operators need to tell data
// problems from detector problems without re-running the pipeline.
type PipelineError struct {
	Marker   error
	Stage    string
	Tier     string
	CuesIn   int
	CuesOut  int
	Degraded bool
	Err      error
}

func (e *PipelineError) Error() string {
	marker := e.Marker
	if marker == nil {
		marker = ErrTransient
	}
	var b strings.Builder
	b.WriteString(marker.Error())
	if e.Stage != "" {
		b.WriteString(": ")
		b.WriteString(e.Stage)
	}
	fmt.Fprintf(&b, " (tier=%s cues_in=%d cues_out=%d degraded=%t)", tierLabel(e.Tier), e.CuesIn, e.CuesOut, e.Degraded)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *PipelineError) Unwrap() []error {
	if e.Marker == nil {
		return []error{ErrTransient, e.Err}
	}
	if e.Err == nil {
		return []error{e.Marker}
	}
	return []error{e.Marker, e.Err}
}

// Reason returns the failure code for the error's marker.
func (e *PipelineError) Reason() Reason {
	return FailureReason(e.Marker)
}

// FailureReason maps an error to the reason code the enclosing job should be
// marked with.
func FailureReason(err error) Reason {
	switch {
	case err == nil:
		return ReasonNone
	case errors.Is(err, ErrTranscriptEmpty):
		return ReasonTranscriptEmpty
	case errors.Is(err, ErrNoSpeech):
		return ReasonNoSpeech
	case errors.Is(err, ErrVADDegraded):
		return ReasonVADDegraded
	case errors.Is(err, ErrInvalidInput):
		return ReasonInvalidInput
	case errors.Is(err, ErrSerialization):
		return ReasonSerialization
	case errors.Is(err, ErrInvariant):
		return ReasonInvariant
	case errors.Is(err, ErrExternalTool):
		return ReasonExternalTool
	case errors.Is(err, ErrConfiguration):
		return ReasonConfiguration
	case errors.Is(err, ErrTimeout):
		return ReasonTimeout
	default:
		return ReasonUnclassified
	}
}

func tierLabel(tier string) string {
	if strings.TrimSpace(tier) == "" {
		return "none"
	}
	return tier
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
