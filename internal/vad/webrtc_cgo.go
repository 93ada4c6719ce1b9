//go:build cgo

package vad

import "github.com/visvasity/webrtcvad"

type webrtcClassifier struct {
	vad *webrtcvad.VAD
}

// newWebRTCClassifier creates a WebRTC VAD instance. Modes run from 0
// (quality) to 3 (aggressive).
func newWebRTCClassifier(mode int) (frameClassifier, error) {
	vad, err := webrtcvad.New()
	if err != nil {
		return nil, err
	}
	if err := vad.SetMode(mode); err != nil {
		return nil, err
	}
	return &webrtcClassifier{vad: vad}, nil
}

func (w *webrtcClassifier) Process(sampleRate int, frame []byte) (bool, error) {
	return w.vad.Process(sampleRate, frame)
}
