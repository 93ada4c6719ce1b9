package vad

import (
	"context"

	"capgate/internal/audio"
)

const (
	classicalSampleRate   = 16000
	classicalFrameSamples = classicalSampleRate * 30 / 1000
	classicalFrameBytes   = classicalFrameSamples * 2
)

// frameClassifier labels one 30 ms frame of 16 kHz s16le PCM.
type frameClassifier interface {
	Process(sampleRate int, frame []byte) (bool, error)
}

type classicalDetector struct {
	opts          Options
	newClassifier func(mode int) (frameClassifier, error)
}

func newClassicalDetector(opts Options) Detector {
	return &classicalDetector{opts: opts, newClassifier: newWebRTCClassifier}
}

func (d *classicalDetector) Tier() Tier   { return TierClassical }
func (d *classicalDetector) Name() string { return "webrtc" }

// Detect classifies 30 ms frames with the WebRTC VAD. When WebRTC is not
// available the energy/zero-crossing classifier labels the frames instead.
func (d *classicalDetector) Detect(ctx context.Context, track *audio.Track) ([]Segment, error) {
	resampled := audio.Resample(track, classicalSampleRate)
	pcm := audio.Float32ToPCM16(resampled.Samples)

	classifier, err := d.newClassifier(d.opts.ClassicalMode)
	if err != nil {
		classifier = newZCRClassifier(resampled.Samples, classicalFrameSamples)
	}

	frames := len(pcm) / classicalFrameBytes
	scores := make([]float64, frames)
	for i := range frames {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		speech, err := classifier.Process(classicalSampleRate, pcm[i*classicalFrameBytes:(i+1)*classicalFrameBytes])
		if err != nil {
			return nil, err
		}
		if speech {
			scores[i] = 1
		}
	}

	return framesToSegments(scores, frameRules{
		frameSeconds:  float64(classicalFrameSamples) / classicalSampleRate,
		threshold:     0.5,
		exitThreshold: 0.5,
		minSpeech:     d.opts.MinSpeechDuration,
		minSilence:    d.opts.MinSilenceDuration,
		duration:      track.Duration,
	}), nil
}

// ClassicalBackend names the frame classifier the classical tier will use
// for mode: "webrtc" when the cgo WebRTC VAD can be created, otherwise
// "zcr". The error explains why WebRTC is unavailable.
func ClassicalBackend(mode int) (string, error) {
	if _, err := newWebRTCClassifier(mode); err != nil {
		return "zcr", err
	}
	return "webrtc", nil
}
