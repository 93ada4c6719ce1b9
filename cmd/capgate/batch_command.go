package main

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"capgate/internal/pipeline"
	"capgate/internal/services"
	"capgate/internal/subtitles"
)

type batchResult struct {
	Audio  string `json:"audio"`
	Output string `json:"output,omitempty"`
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
	Error  string `json:"error,omitempty"`
	Tier   string `json:"vad_tier,omitempty"`
	Cues   int    `json:"cues"`
	Drops  int    `json:"dropped"`
	RunID  string `json:"run_id,omitempty"`
}

func newBatchCommand(ctx *commandContext) *cobra.Command {
	var outputDir string
	var formatFlag string
	var jobs int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "batch <audio>...",
		Short: "Synchronize many tracks concurrently",
		Long: "Synchronize many tracks concurrently. Each audio file is paired with the\n" +
			"transcript that shares its name (.json, .srt or .vtt). Subtitles are written\n" +
			"next to the audio unless --output-dir is set.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			format, err := resolveFormat(formatFlag, cfg)
			if err != nil {
				return err
			}
			runner, cleanup, err := ctx.newRunner(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			if jobs <= 0 {
				jobs = runtime.NumCPU()
			}
			results := make([]batchResult, len(args))
			var g errgroup.Group
			g.SetLimit(jobs)
			for i, audioPath := range args {
				g.Go(func() error {
					results[i] = runBatchItem(cmd.Context(), runner, audioPath, outputDir, format)
					return nil
				})
			}
			_ = g.Wait()

			failed := 0
			for _, r := range results {
				if r.Status != "ok" {
					failed++
				}
			}
			if jsonOutput {
				if err := writeJSON(cmd, results); err != nil {
					return err
				}
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), renderBatchTable(results))
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d tracks failed", failed, len(results))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "Directory for subtitle files (default: next to each audio file)")
	cmd.Flags().StringVar(&formatFlag, "format", "", "Output format (srt or vtt); defaults to output.format")
	cmd.Flags().IntVarP(&jobs, "jobs", "j", runtime.NumCPU(), "Tracks processed concurrently")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print results as JSON")
	return cmd
}

func runBatchItem(ctx context.Context, runner *pipeline.Runner, audioPath, outputDir string, format subtitles.Format) batchResult {
	result := batchResult{Audio: audioPath, Status: "failed"}

	transcriptPath, ok := findTranscript(audioPath)
	if !ok {
		err := services.Wrap(services.ErrInvalidInput, "batch", "pair", "no transcript next to "+audioPath, nil)
		result.Reason = string(services.FailureReason(err))
		result.Error = err.Error()
		return result
	}

	stem := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	dir := outputDir
	if strings.TrimSpace(dir) == "" {
		dir = filepath.Dir(audioPath)
	}
	result.Output = filepath.Join(dir, stem+format.Extension())

	res, err := runner.Run(ctx, pipeline.Request{
		AudioPath:      audioPath,
		TranscriptPath: transcriptPath,
		OutputPath:     result.Output,
		Format:         string(format),
		JobID:          stem,
	})
	if res != nil {
		result.RunID = res.RunID
		result.Tier = string(res.VAD.Tier)
		result.Cues = len(res.Cues)
		result.Drops = res.Gate.Dropped
	}
	if err != nil {
		result.Reason = string(services.FailureReason(err))
		result.Error = err.Error()
		return result
	}
	result.Status = "ok"
	return result
}

func renderBatchTable(results []batchResult) string {
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		rows = append(rows, []string{
			filepath.Base(r.Audio),
			r.Status,
			r.Tier,
			strconv.Itoa(r.Cues),
			strconv.Itoa(r.Drops),
			r.Reason,
		})
	}
	return renderTable(
		[]string{"Track", "Status", "Tier", "Cues", "Dropped", "Reason"},
		rows, 3, 4,
	)
}
