package vad

import (
	"encoding/binary"
	"math"
	"slices"
)

// zcrClassifier is the pure-Go frame classifier used when WebRTC is not
// available. A frame is speech when its RMS clears an adaptive floor derived
// from the whole track and its zero-crossing rate is below the broadband
// noise range.
type zcrClassifier struct {
	floor  float64
	maxZCR float64
}

const (
	zcrNoiseMultiplier = 3.0
	zcrPeakFraction    = 0.05
	zcrAbsoluteFloor   = 1e-3
	zcrMaxRate         = 0.45
)

func newZCRClassifier(samples []float32, frameSamples int) *zcrClassifier {
	rms := windowRMS(samples, max(frameSamples, 1))
	if len(rms) == 0 {
		return &zcrClassifier{floor: zcrAbsoluteFloor, maxZCR: zcrMaxRate}
	}
	sorted := slices.Clone(rms)
	slices.Sort(sorted)
	noise := sorted[len(sorted)/10]
	peak := sorted[len(sorted)-1]
	floor := math.Max(zcrAbsoluteFloor, math.Max(noise*zcrNoiseMultiplier, peak*zcrPeakFraction))
	return &zcrClassifier{floor: floor, maxZCR: zcrMaxRate}
}

func (z *zcrClassifier) Process(_ int, frame []byte) (bool, error) {
	n := len(frame) / 2
	if n == 0 {
		return false, nil
	}
	var (
		sum       float64
		crossings int
		prev      int16
	)
	for i := range n {
		s := int16(binary.LittleEndian.Uint16(frame[i*2:]))
		f := float64(s) / 32768
		sum += f * f
		if i > 0 && (s >= 0) != (prev >= 0) {
			crossings++
		}
		prev = s
	}
	rms := math.Sqrt(sum / float64(n))
	zcr := float64(crossings) / float64(n)
	return rms >= z.floor && zcr <= z.maxZCR, nil
}
