// Package vad detects speech regions in an audio track through an ordered
// chain of detector tiers.
//
// The primary tier runs the Silero v5 ONNX model (build with -tags silero),
// the classical tier runs the WebRTC GMM classifier (cgo) or a pure-Go
// energy/zero-crossing classifier, and the energy tier thresholds windowed
// RMS against the track peak. Engine tries each enabled tier in order, abandons
// any tier that exceeds its deadline, and replaces implausibly sparse
// results with a single whole-track segment so downstream gating never drops
// every caption because of a detector failure.
package vad
