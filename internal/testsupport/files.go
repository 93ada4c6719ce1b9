package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteFile writes content to path, creating parent directories.
func WriteFile(t testing.TB, path string, content []byte) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// WriteTranscriptJSON writes a WhisperX-style transcript with the provided
// segments and returns its path.
func WriteTranscriptJSON(t testing.TB, dir string, segments ...TranscriptSegment) string {
	t.Helper()

	path := filepath.Join(dir, "transcript.json")
	WriteFile(t, path, transcriptJSON(segments))
	return path
}
