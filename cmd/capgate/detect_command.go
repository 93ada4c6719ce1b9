package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"capgate/internal/vad"
)

type detectOutput struct {
	Audio        string          `json:"audio"`
	TrackSeconds float64         `json:"track_seconds"`
	Tier         string          `json:"vad_tier"`
	Detector     string          `json:"detector"`
	Degraded     bool            `json:"degraded"`
	Bypassed     bool            `json:"bypassed"`
	Coverage     float64         `json:"coverage"`
	Segments     []detectSegment `json:"segments"`
	Attempts     []detectAttempt `json:"attempts"`
}

type detectSegment struct {
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Confidence float64 `json:"confidence"`
}

type detectAttempt struct {
	Tier      string  `json:"tier"`
	Detector  string  `json:"detector"`
	Outcome   string  `json:"outcome"`
	ElapsedMS float64 `json:"elapsed_ms"`
	Error     string  `json:"error,omitempty"`
}

func newDetectCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "detect <audio>",
		Short: "Run speech detection and print the detected segments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			audioPath, err := resolveInputPath(args[0])
			if err != nil {
				return err
			}
			runner, cleanup, err := ctx.newRunner(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			track, vr, err := runner.Detect(cmd.Context(), audioPath)
			if err != nil {
				return err
			}
			out := buildDetectOutput(audioPath, track.Duration, vr)
			if jsonOutput {
				return writeJSON(cmd, out)
			}
			printDetectOutput(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print segments as JSON")
	return cmd
}

func buildDetectOutput(audioPath string, duration float64, vr vad.Result) detectOutput {
	out := detectOutput{
		Audio:        audioPath,
		TrackSeconds: duration,
		Tier:         string(vr.Tier),
		Detector:     vr.Detector,
		Degraded:     vr.Degraded,
		Bypassed:     vr.Bypassed,
		Coverage:     vr.Coverage,
		Segments:     make([]detectSegment, 0, len(vr.Segments)),
	}
	for _, s := range vr.Segments {
		out.Segments = append(out.Segments, detectSegment{Start: s.Start, End: s.End, Confidence: s.Confidence})
	}
	for _, a := range vr.Attempts {
		attempt := detectAttempt{
			Tier:      string(a.Tier),
			Detector:  a.Detector,
			Outcome:   a.Outcome,
			ElapsedMS: float64(a.Elapsed.Microseconds()) / 1000,
		}
		if a.Err != nil {
			attempt.Error = a.Err.Error()
		}
		out.Attempts = append(out.Attempts, attempt)
	}
	return out
}

func printDetectOutput(w io.Writer, out detectOutput) {
	fmt.Fprintf(w, "Tier:     %s (%s)\n", out.Tier, out.Detector)
	fmt.Fprintf(w, "Coverage: %s of %ss\n", formatPercent(out.Coverage), formatSeconds(out.TrackSeconds))
	fmt.Fprintf(w, "Degraded: %s\n", yesNo(out.Degraded))
	fmt.Fprintf(w, "Bypassed: %s\n", yesNo(out.Bypassed))

	rows := make([][]string, 0, len(out.Segments))
	for i, s := range out.Segments {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			formatSeconds(s.Start),
			formatSeconds(s.End),
			formatSeconds(s.End - s.Start),
			strconv.FormatFloat(s.Confidence, 'f', 2, 64),
		})
	}
	fmt.Fprintln(w, renderTable(
		[]string{"#", "Start", "End", "Duration", "Confidence"},
		rows, 0, 1, 2, 3, 4,
	))

	if len(out.Attempts) > 1 {
		attemptRows := make([][]string, 0, len(out.Attempts))
		for _, a := range out.Attempts {
			attemptRows = append(attemptRows, []string{a.Tier, a.Detector, a.Outcome, strconv.FormatFloat(a.ElapsedMS, 'f', 1, 64), a.Error})
		}
		fmt.Fprintln(w, renderTable(
			[]string{"Tier", "Detector", "Outcome", "Elapsed ms", "Error"},
			attemptRows, 3,
		))
	}
}
