package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const wavFormatPCM = 1

// ErrUnsupportedWAV marks WAV files whose sample encoding is not decoded
// natively (IEEE float, extensible, 8-bit). Callers fall back to ffmpeg.
var ErrUnsupportedWAV = errors.New("unsupported wav encoding")

// DecodeWAV decodes a RIFF/WAVE buffer holding 16, 24 or 32-bit integer PCM.
// Multi-channel audio is averaged down to mono.
func DecodeWAV(data []byte) (*Track, error) {
	decoder := wav.NewDecoder(bytes.NewReader(data))
	if !decoder.IsValidFile() {
		return nil, errors.New("not a valid wav file")
	}
	bits := int(decoder.BitDepth)
	if decoder.WavAudioFormat != wavFormatPCM || (bits != 16 && bits != 24 && bits != 32) {
		return nil, fmt.Errorf("%w: format=%d bits=%d", ErrUnsupportedWAV, decoder.WavAudioFormat, bits)
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("read pcm: %w", err)
	}
	if buf.Format == nil || buf.Format.NumChannels <= 0 {
		return nil, errors.New("wav has no channels")
	}
	if buf.Format.SampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", buf.Format.SampleRate)
	}
	return NewTrack(downmix(buf, bits), buf.Format.SampleRate), nil
}

// downmix averages interleaved integer frames into mono floats in [-1, 1).
func downmix(buf *goaudio.IntBuffer, bits int) []float32 {
	channels := buf.Format.NumChannels
	scale := float32(int64(1) << (bits - 1))
	frames := len(buf.Data) / channels
	samples := make([]float32, frames)
	for i := range frames {
		var sum float32
		for _, v := range buf.Data[i*channels : (i+1)*channels] {
			sum += float32(v) / scale
		}
		samples[i] = sum / float32(channels)
	}
	return samples
}

// WriteWAV16 encodes t as mono 16-bit PCM.
func WriteWAV16(w io.WriteSeeker, t *Track) error {
	data := make([]int, len(t.Samples))
	for i, s := range t.Samples {
		data[i] = int(floatToInt16(s))
	}
	enc := wav.NewEncoder(w, t.SampleRate, 16, 1, wavFormatPCM)
	if err := enc.Write(&goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: t.SampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}); err != nil {
		return fmt.Errorf("encode wav: %w", err)
	}
	return enc.Close()
}

// WriteWAVFile writes t to path as mono 16-bit PCM.
func WriteWAVFile(path string, t *Track) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteWAV16(f, t); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
