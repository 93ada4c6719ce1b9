// Package audio decodes input tracks into mono float32 sample buffers for
// speech detection.
//
// WAV files with 16-bit PCM or 32-bit float samples are decoded natively; any
// other container is piped through ffmpeg as 16 kHz mono s16le. Tracks are
// read-only once built: resampling and PCM conversion always return copies.
package audio
