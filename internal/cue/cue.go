// Package cue defines the timed text unit passed between the transcript
// normalizer, the speech gate and the subtitle serializer.
package cue

import "fmt"

// Cue is one timed caption line. Times are seconds from the start of the
// track. Index is 1-based and assigned by whichever stage produced the slice.
type Cue struct {
	Index int
	Start float64
	End   float64
	Text  string
}

// Duration returns End minus Start.
func (c Cue) Duration() float64 {
	return c.End - c.Start
}

// Overlaps reports whether c shares any instant with [start, end]. Touching
// intervals count as overlapping.
func (c Cue) Overlaps(start, end float64) bool {
	return !(c.End < start || end < c.Start)
}

func (c Cue) String() string {
	return fmt.Sprintf("#%d %.3f-%.3f %q", c.Index, c.Start, c.End, c.Text)
}

// Renumber assigns sequential indices starting at 1 in place.
func Renumber(cues []Cue) {
	for i := range cues {
		cues[i].Index = i + 1
	}
}
