package testsupport

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"

	"capgate/internal/audio"
)

// Region marks a voiced span in seconds.
type Region struct {
	Start float64
	End   float64
}

// SpeechTrack builds a 16 kHz track of the given duration that is silent
// except for amplitude-modulated tones inside regions.
func SpeechTrack(duration float64, regions ...Region) *audio.Track {
	const rate = audio.DefaultSampleRate
	samples := make([]float32, int(duration*rate))
	for _, r := range regions {
		lo := max(0, int(r.Start*rate))
		hi := min(len(samples), int(r.End*rate))
		for i := lo; i < hi; i++ {
			t := float64(i) / rate
			envelope := 0.6 + 0.4*math.Sin(2*math.Pi*4*t)
			tone := math.Sin(2*math.Pi*220*t) + 0.5*math.Sin(2*math.Pi*440*t)
			samples[i] = float32(0.4 * envelope * tone / 1.5)
		}
	}
	return audio.NewTrack(samples, rate)
}

// WriteSpeechWAV writes SpeechTrack output as a WAV file and returns its path.
func WriteSpeechWAV(t testing.TB, dir string, duration float64, regions ...Region) string {
	t.Helper()

	path := filepath.Join(dir, "speech.wav")
	WriteTrackWAV(t, path, SpeechTrack(duration, regions...))
	return path
}

// WriteTrackWAV writes track to path as 16-bit PCM, creating parent dirs.
func WriteTrackWAV(t testing.TB, path string, track *audio.Track) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := audio.WriteWAVFile(path, track); err != nil {
		t.Fatalf("write wav %s: %v", path, err)
	}
}

// TranscriptSegment is one entry of a WhisperX-style transcript.
type TranscriptSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

func transcriptJSON(segments []TranscriptSegment) []byte {
	payload := struct {
		Segments []TranscriptSegment `json:"segments"`
	}{Segments: segments}
	data, _ := json.Marshal(payload)
	return data
}
