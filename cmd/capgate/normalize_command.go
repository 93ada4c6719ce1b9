package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"capgate/internal/subtitles"
)

func newNormalizeCommand(ctx *commandContext) *cobra.Command {
	var outputPath string
	var formatFlag string
	var granularity string
	var trackSeconds float64

	cmd := &cobra.Command{
		Use:   "normalize <transcript>",
		Short: "Split a transcript into word cues without gating",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			transcriptPath, err := resolveInputPath(args[0])
			if err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if value := strings.TrimSpace(granularity); value != "" {
				cfg.Normalize.Granularity = strings.ToLower(value)
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

			cues, stats, err := runner.Cues(cmd.Context(), transcriptPath, trackSeconds)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Normalized %d segments into %d cues (%d skipped, %d equal-split)\n",
				stats.Segments, stats.Cues, stats.Skipped, stats.EqualDivision)

			if strings.TrimSpace(outputPath) != "" {
				return subtitles.WriteFile(cmd.Context(), outputPath, cues, format)
			}
			content, err := subtitles.Serialize(cues, format)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), content)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write cues to this file instead of stdout")
	cmd.Flags().StringVar(&formatFlag, "format", "", "Output format (srt or vtt); defaults to output.format")
	cmd.Flags().StringVar(&granularity, "granularity", "", "Override normalize.granularity (word or segment)")
	cmd.Flags().Float64Var(&trackSeconds, "duration", 0, "Track length in seconds for the trailing hallucination filter")
	return cmd
}
