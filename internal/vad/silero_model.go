//go:build silero

package vad

import (
	_ "embed"
)

// sileroModelData holds the Silero VAD v5 weights. The file must exist at
// internal/vad/silero_vad.onnx before compiling with -tags silero; run
// "make model" to fetch it.
//
//go:embed silero_vad.onnx
var sileroModelData []byte
