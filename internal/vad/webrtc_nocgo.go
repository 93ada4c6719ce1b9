//go:build !cgo

package vad

import "errors"

func newWebRTCClassifier(int) (frameClassifier, error) {
	return nil, errors.New("webrtcvad unavailable (cgo disabled)")
}
