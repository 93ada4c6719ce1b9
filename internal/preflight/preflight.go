package preflight

import (
	"strings"

	"capgate/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the checks that must pass before a run starts. outputDir
// is the directory the subtitle file will be written into; it is skipped
// when empty.
func RunAll(cfg *config.Config, outputDir string) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result
	if dir := strings.TrimSpace(cfg.Paths.WorkDir); dir != "" {
		results = append(results, CheckDirectoryAccess("Work directory", dir))
	}
	if dir := strings.TrimSpace(outputDir); dir != "" {
		results = append(results, CheckDirectoryAccess("Output directory", dir))
	}
	results = append(results, CheckTierSelection(cfg))
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
