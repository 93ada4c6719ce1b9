package audio

import "math"

// lowPassTaps is the FIR length used ahead of downsampling. Odd so it
// centres on the sample being filtered.
const lowPassTaps = 63

// Resample returns a copy of t at dstRate using linear interpolation. When
// dstRate is below the source rate the signal is first low-passed at the
// new Nyquist frequency so content above it does not fold back into the
// speech band. When the rates already match the samples are still copied so
// callers may not mutate the original through the result.
func Resample(t *Track, dstRate int) *Track {
	if t == nil {
		return nil
	}
	if dstRate <= 0 || t.SampleRate <= 0 || t.SampleRate == dstRate || len(t.Samples) < 2 {
		cp := make([]float32, len(t.Samples))
		copy(cp, t.Samples)
		return &Track{Samples: cp, SampleRate: t.SampleRate, Duration: t.Duration}
	}

	src := t.Samples
	at := func(j int) float32 { return src[j] }
	if dstRate < t.SampleRate {
		kernel := lowPassKernel(0.5 * float64(dstRate) / float64(t.SampleRate))
		at = func(j int) float32 { return convolveAt(src, kernel, j) }
	}
	dstSamples := int(int64(len(src)) * int64(dstRate) / int64(t.SampleRate))
	out := make([]float32, dstSamples)
	ratio := float64(t.SampleRate) / float64(dstRate)

	for i := range dstSamples {
		srcPos := float64(i) * ratio
		srcIdx := int(srcPos)
		frac := float32(srcPos - float64(srcIdx))

		s0 := at(srcIdx)
		s1 := s0
		if frac != 0 && srcIdx+1 < len(src) {
			s1 = at(srcIdx + 1)
		}
		out[i] = s0*(1-frac) + s1*frac
	}
	return &Track{Samples: out, SampleRate: dstRate, Duration: t.Duration}
}

// lowPassKernel builds a Hann-windowed sinc filter with the given cutoff in
// cycles per sample, normalised to unity DC gain.
func lowPassKernel(cutoff float64) []float64 {
	kernel := make([]float64, lowPassTaps)
	half := lowPassTaps / 2
	var sum float64
	for i := range kernel {
		n := float64(i - half)
		v := 2 * cutoff
		if n != 0 {
			v = math.Sin(2*math.Pi*cutoff*n) / (math.Pi * n)
		}
		v *= 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(lowPassTaps-1))
		kernel[i] = v
		sum += v
	}
	for i := range kernel {
		kernel[i] /= sum
	}
	return kernel
}

// convolveAt returns the filtered value of src at index i. Samples past
// either edge count as zero.
func convolveAt(src []float32, kernel []float64, i int) float32 {
	half := len(kernel) / 2
	var acc float64
	for k, c := range kernel {
		j := i + k - half
		if j < 0 || j >= len(src) {
			continue
		}
		acc += c * float64(src[j])
	}
	return float32(acc)
}
