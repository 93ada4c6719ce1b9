//go:build silero

package vad

import (
	"context"
	"fmt"
	"os"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"capgate/internal/audio"
)

// Silero VAD v5 at 16 kHz takes exactly 512 samples (32 ms) per call and
// carries a combined recurrent state tensor of shape [2, 1, 128].
const (
	sileroSampleRate = 16000
	sileroWindowSize = 512
	sileroStateSize  = 128
)

// PrimaryAvailable reports whether the Silero tier is compiled in.
func PrimaryAvailable() bool { return true }

var (
	ortInitOnce sync.Once
	ortInitErr  error

	sileroOnce    sync.Once
	sileroShared  *sileroSession
	sileroLoadErr error
)

// sileroSession owns the ONNX session and its bound tensors. One session is
// shared per process; mu serializes inference.
type sileroSession struct {
	mu sync.Mutex

	session      *ort.AdvancedSession
	inputTensor  *ort.Tensor[float32]
	stateTensor  *ort.Tensor[float32]
	srTensor     *ort.Tensor[int64]
	outputTensor *ort.Tensor[float32]
	stateNTensor *ort.Tensor[float32]
}

type sileroDetector struct {
	opts Options
}

func newPrimaryDetector(opts Options) Detector {
	return &sileroDetector{opts: opts}
}

func (d *sileroDetector) Tier() Tier   { return TierPrimary }
func (d *sileroDetector) Name() string { return "silero" }

func (d *sileroDetector) Detect(ctx context.Context, track *audio.Track) ([]Segment, error) {
	sess, err := sharedSileroSession(d.opts)
	if err != nil {
		return nil, err
	}
	resampled := audio.Resample(track, sileroSampleRate)
	probs, err := sess.probabilities(ctx, resampled.Samples)
	if err != nil {
		return nil, err
	}
	return framesToSegments(probs, frameRules{
		frameSeconds:  float64(sileroWindowSize) / sileroSampleRate,
		threshold:     d.opts.Threshold,
		exitThreshold: d.opts.exitThreshold(),
		minSpeech:     d.opts.MinSpeechDuration,
		minSilence:    d.opts.MinSilenceDuration,
		duration:      track.Duration,
	}), nil
}

// sharedSileroSession loads the model on first use. The first caller's
// model and library paths win for the life of the process.
func sharedSileroSession(opts Options) (*sileroSession, error) {
	sileroOnce.Do(func() {
		sileroShared, sileroLoadErr = loadSileroSession(opts)
	})
	return sileroShared, sileroLoadErr
}

func loadSileroSession(opts Options) (*sileroSession, error) {
	model := sileroModelData
	if opts.ModelPath != "" {
		data, err := os.ReadFile(opts.ModelPath)
		if err != nil {
			return nil, fmt.Errorf("silero: read model: %w", err)
		}
		model = data
	}
	if len(model) == 0 {
		return nil, fmt.Errorf("silero: model data is empty")
	}

	ortInitOnce.Do(func() {
		libPath, err := ResolveORTLibrary(opts.ORTLibraryPath)
		if err != nil {
			ortInitErr = fmt.Errorf("resolve ORT lib: %w", err)
			return
		}
		ort.SetSharedLibraryPath(libPath)
		ortInitErr = ort.InitializeEnvironment()
	})
	if ortInitErr != nil {
		return nil, fmt.Errorf("silero: %w", ortInitErr)
	}

	s := &sileroSession{}
	var err error
	if s.inputTensor, err = ort.NewEmptyTensor[float32](ort.NewShape(1, sileroWindowSize)); err != nil {
		return nil, fmt.Errorf("silero: create input tensor: %w", err)
	}
	if s.stateTensor, err = ort.NewEmptyTensor[float32](ort.NewShape(2, 1, sileroStateSize)); err != nil {
		s.destroy()
		return nil, fmt.Errorf("silero: create state tensor: %w", err)
	}
	if s.srTensor, err = ort.NewTensor(ort.NewShape(1), []int64{sileroSampleRate}); err != nil {
		s.destroy()
		return nil, fmt.Errorf("silero: create sr tensor: %w", err)
	}
	if s.outputTensor, err = ort.NewEmptyTensor[float32](ort.NewShape(1, 1)); err != nil {
		s.destroy()
		return nil, fmt.Errorf("silero: create output tensor: %w", err)
	}
	if s.stateNTensor, err = ort.NewEmptyTensor[float32](ort.NewShape(2, 1, sileroStateSize)); err != nil {
		s.destroy()
		return nil, fmt.Errorf("silero: create stateN tensor: %w", err)
	}
	clear(s.stateTensor.GetData())
	clear(s.stateNTensor.GetData())

	s.session, err = ort.NewAdvancedSessionWithONNXData(
		model,
		[]string{"input", "state", "sr"},
		[]string{"output", "stateN"},
		[]ort.Value{s.inputTensor, s.stateTensor, s.srTensor},
		[]ort.Value{s.outputTensor, s.stateNTensor},
		nil,
	)
	if err != nil {
		s.destroy()
		return nil, fmt.Errorf("silero: create session: %w", err)
	}
	return s, nil
}

// probabilities returns one speech probability per 512-sample window. The
// final partial window is zero padded. Recurrent state starts from zero on
// every call.
func (s *sileroSession) probabilities(ctx context.Context, samples []float32) ([]float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	clear(s.stateTensor.GetData())
	windows := (len(samples) + sileroWindowSize - 1) / sileroWindowSize
	probs := make([]float64, 0, windows)
	input := s.inputTensor.GetData()
	for w := range windows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		start := w * sileroWindowSize
		n := copy(input, samples[start:min(start+sileroWindowSize, len(samples))])
		clear(input[n:])

		if err := s.session.Run(); err != nil {
			return nil, fmt.Errorf("silero: inference: %w", err)
		}
		probs = append(probs, float64(s.outputTensor.GetData()[0]))
		copy(s.stateTensor.GetData(), s.stateNTensor.GetData())
	}
	return probs, nil
}

func (s *sileroSession) destroy() {
	if s.session != nil {
		s.session.Destroy()
	}
	if s.inputTensor != nil {
		s.inputTensor.Destroy()
	}
	if s.stateTensor != nil {
		s.stateTensor.Destroy()
	}
	if s.srTensor != nil {
		s.srTensor.Destroy()
	}
	if s.outputTensor != nil {
		s.outputTensor.Destroy()
	}
	if s.stateNTensor != nil {
		s.stateNTensor.Destroy()
	}
}
