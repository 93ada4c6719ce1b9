package main

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"capgate/internal/testsupport"
)

type cliTestEnv struct {
	baseDir     string
	configPath  string
	workDir     string
	metricsPath string
	inputDir    string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	t.Setenv("HOME", filepath.Join(base, "home"))
	env := &cliTestEnv{
		baseDir:     base,
		configPath:  filepath.Join(base, "config.toml"),
		workDir:     filepath.Join(base, "work"),
		metricsPath: filepath.Join(base, "metrics", "capgate.prom"),
		inputDir:    filepath.Join(base, "input"),
	}
	writeTestConfig(t, env)
	return env
}

func writeTestConfig(t *testing.T, env *cliTestEnv) {
	t.Helper()
	content := fmt.Sprintf(`[paths]
work_dir = %q
log_dir = %q

[vad]
tiers = ["energy"]
min_timeout_seconds = 1.0

[logging]
level = "error"

[metrics]
enabled = true
textfile_path = %q
`, env.workDir, filepath.Join(env.baseDir, "logs"), env.metricsPath)
	testsupport.WriteFile(t, env.configPath, []byte(content))
}

// writeTrack writes <name>.wav with speech in [1,3] and [5,6.5] of an 8 s
// track, plus <name>.json when segments are given.
func (env *cliTestEnv) writeTrack(t *testing.T, name string, segments ...testsupport.TranscriptSegment) string {
	t.Helper()
	audioPath := filepath.Join(env.inputDir, name+".wav")
	track := testsupport.SpeechTrack(8,
		testsupport.Region{Start: 1, End: 3},
		testsupport.Region{Start: 5, End: 6.5},
	)
	testsupport.WriteTrackWAV(t, audioPath, track)
	if len(segments) > 0 {
		var parts []string
		for _, s := range segments {
			parts = append(parts, fmt.Sprintf(`{"start": %g, "end": %g, "text": %q}`, s.Start, s.End, s.Text))
		}
		body := `{"segments": [` + strings.Join(parts, ", ") + `]}`
		testsupport.WriteFile(t, filepath.Join(env.inputDir, name+".json"), []byte(body))
	}
	return audioPath
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

// requireLine fails unless a single line of output holds every part.
func requireLine(t *testing.T, output string, parts ...string) {
	t.Helper()
	for _, line := range strings.Split(output, "\n") {
		matched := true
		for _, p := range parts {
			if !strings.Contains(line, p) {
				matched = false
				break
			}
		}
		if matched {
			return
		}
	}
	t.Fatalf("no line of %q contains all of %q", output, parts)
}
