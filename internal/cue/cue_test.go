package cue

import "testing"

func TestOverlapsTreatsTouchingAsOverlap(t *testing.T) {
	c := Cue{Start: 1, End: 2}
	tests := []struct {
		start, end float64
		want       bool
	}{
		{0, 0.5, false},
		{0, 1, true},
		{1.5, 1.6, true},
		{2, 3, true},
		{2.01, 3, false},
	}
	for _, tc := range tests {
		if got := c.Overlaps(tc.start, tc.end); got != tc.want {
			t.Errorf("Overlaps(%v, %v) = %v, want %v", tc.start, tc.end, got, tc.want)
		}
	}
}

func TestRenumber(t *testing.T) {
	cues := []Cue{{Index: 7, Start: 2, End: 3}, {Index: 3, Start: 0.5, End: 1}}
	Renumber(cues)
	if cues[0].Index != 1 || cues[1].Index != 2 {
		t.Fatalf("unexpected indices: %+v", cues)
	}
}
