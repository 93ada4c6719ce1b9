package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"capgate/internal/services"
	"capgate/internal/subtitles"
)

func newValidateCommand() *cobra.Command {
	var trackSeconds float64

	cmd := &cobra.Command{
		Use:         "validate <subtitle>",
		Short:       "Check a subtitle file for timing problems",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := resolveInputPath(args[0])
			if err != nil {
				return services.Wrap(services.ErrInvalidInput, "validate", "open", "", err)
			}
			issues := subtitles.ValidateContent(path, trackSeconds)
			out := cmd.OutOrStdout()
			if len(issues) == 0 {
				fmt.Fprintf(out, "%s: no issues found\n", path)
				return nil
			}
			for _, issue := range issues {
				fmt.Fprintf(out, "%s: %s\n", path, issue)
			}
			return services.Wrap(services.ErrInvalidInput, "validate", "content", fmt.Sprintf("%d issue(s) in %s", len(issues), path), nil)
		},
	}
	cmd.Flags().Float64Var(&trackSeconds, "duration", 0, "Track length in seconds; cues ending past it are reported")
	return cmd
}
