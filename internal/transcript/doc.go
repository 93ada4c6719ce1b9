// Package transcript loads transcription output and turns its coarse
// segments into per-word cues.
//
// Load accepts WhisperX-style JSON, bare JSON segment arrays and caption
// files. Filter removes transcription artifacts, and Normalize spreads each
// segment's duration over its words by character count.
package transcript
