package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"capgate/internal/config"
	"capgate/internal/subtitles"
)

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

func formatPercent(v float64) string {
	return fmt.Sprintf("%.1f%%", v*100)
}

// resolveInputPath expands ~ and verifies the path names a regular file.
func resolveInputPath(arg string) (string, error) {
	path, err := config.ExpandPath(strings.TrimSpace(arg))
	if err != nil {
		return "", err
	}
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("inspect path %q: %w", path, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s is a directory", path)
	}
	return path, nil
}

// resolveFormat picks the subtitle format from an explicit flag value,
// falling back to output.format.
func resolveFormat(flagValue string, cfg *config.Config) (subtitles.Format, error) {
	if value := strings.TrimSpace(flagValue); value != "" {
		return subtitles.ParseFormat(value)
	}
	return subtitles.ParseFormat(cfg.Output.Format)
}

var transcriptExtensions = []string{".json", ".srt", ".vtt"}

// findTranscript returns the transcript sharing audioPath's stem, trying
// JSON before SRT and WebVTT.
func findTranscript(audioPath string) (string, bool) {
	stem := strings.TrimSuffix(audioPath, filepath.Ext(audioPath))
	for _, ext := range transcriptExtensions {
		candidate := stem + ext
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true
		}
	}
	return "", false
}
