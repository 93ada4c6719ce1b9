package transcript

// Segment is one transcript line with the engine's coarse timing. Times are
// seconds from the start of the track.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Duration returns End minus Start.
func (s Segment) Duration() float64 {
	return s.End - s.Start
}
