package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"capgate/internal/pipeline"
)

type syncSummary struct {
	RunID       string   `json:"run_id"`
	Output      string   `json:"output"`
	Format      string   `json:"format"`
	Cues        int      `json:"cues"`
	Tier        string   `json:"vad_tier"`
	Degraded    bool     `json:"degraded"`
	Bypassed    bool     `json:"bypassed"`
	Coverage    float64  `json:"coverage"`
	Dropped     int      `json:"dropped"`
	Merged      int      `json:"merged"`
	Passthrough int      `json:"passthrough"`
	Filtered    int      `json:"segments_filtered"`
	Issues      []string `json:"issues,omitempty"`
	Report      string   `json:"report,omitempty"`
}

func summarizeResult(res *pipeline.Result) syncSummary {
	return syncSummary{
		RunID:       res.RunID,
		Output:      res.OutputPath,
		Format:      string(res.Format),
		Cues:        len(res.Cues),
		Tier:        string(res.VAD.Tier),
		Degraded:    res.VAD.Degraded,
		Bypassed:    res.VAD.Bypassed,
		Coverage:    res.VAD.Coverage,
		Dropped:     res.Gate.Dropped,
		Merged:      res.Gate.Merged,
		Passthrough: res.Gate.Passthrough,
		Filtered:    res.Filtered,
		Issues:      res.Issues,
		Report:      res.ReportPath,
	}
}

func newSyncCommand(ctx *commandContext) *cobra.Command {
	var req pipeline.Request
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Gate a transcript against detected speech and write subtitles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			runner, cleanup, err := ctx.newRunner(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			res, err := runner.Run(cmd.Context(), req)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, summarizeResult(res))
			}
			printSyncResult(cmd.OutOrStdout(), summarizeResult(res))
			return nil
		},
	}

	cmd.Flags().StringVarP(&req.AudioPath, "audio", "a", "", "Audio file (WAV, or anything ffmpeg decodes)")
	cmd.Flags().StringVarP(&req.TranscriptPath, "transcript", "t", "", "Transcript file (WhisperX JSON, SRT or WebVTT)")
	cmd.Flags().StringVarP(&req.OutputPath, "output", "o", "", "Subtitle file to write")
	cmd.Flags().StringVar(&req.Format, "format", "", "Output format (srt or vtt); defaults to output.format")
	cmd.Flags().StringVar(&req.JobID, "job-id", "", "Caller job identifier echoed into logs and the run report")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the run summary as JSON")
	_ = cmd.MarkFlagRequired("audio")
	_ = cmd.MarkFlagRequired("transcript")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}

func printSyncResult(out io.Writer, s syncSummary) {
	fmt.Fprintf(out, "Wrote %d cues to %s\n", s.Cues, s.Output)

	tier := s.Tier
	var flags []string
	if s.Degraded {
		flags = append(flags, "degraded")
	}
	if s.Bypassed {
		flags = append(flags, "bypassed")
	}
	if len(flags) > 0 {
		tier = fmt.Sprintf("%s (%s)", tier, strings.Join(flags, ", "))
	}
	fmt.Fprintf(out, "  VAD tier:    %s\n", tier)
	fmt.Fprintf(out, "  Coverage:    %s\n", formatPercent(s.Coverage))
	fmt.Fprintf(out, "  Dropped:     %d\n", s.Dropped)
	fmt.Fprintf(out, "  Merged:      %d\n", s.Merged)
	if s.Passthrough > 0 {
		fmt.Fprintf(out, "  Passthrough: %d\n", s.Passthrough)
	}
	if s.Filtered > 0 {
		fmt.Fprintf(out, "  Filtered:    %d transcript segments\n", s.Filtered)
	}
	for _, issue := range s.Issues {
		fmt.Fprintf(out, "  Issue:       %s\n", issue)
	}
	fmt.Fprintf(out, "  Run ID:      %s\n", s.RunID)
}
