package gate

import (
	"fmt"

	"capgate/internal/config"
	"capgate/internal/services"
)

// Params holds the padding and merge windows in seconds. PreserveWordOnset
// keeps a cue's own start when it falls after the padded segment start.
type Params struct {
	PrePad            float64
	PostPad           float64
	MinDuration       float64
	MergeGap          float64
	PreserveWordOnset bool
}

// DefaultParams returns the stock gate windows.
func DefaultParams() Params {
	return ParamsFromConfig(config.Default().Gate)
}

// ParamsFromConfig copies the [gate] section.
func ParamsFromConfig(cfg config.Gate) Params {
	return Params{
		PrePad:            cfg.PrePad,
		PostPad:           cfg.PostPad,
		MinDuration:       cfg.MinDuration,
		MergeGap:          cfg.MergeGap,
		PreserveWordOnset: cfg.PreserveWordOnset,
	}
}

// Validate rejects negative windows.
func (p Params) Validate() error {
	for name, value := range map[string]float64{
		"pre_pad":      p.PrePad,
		"post_pad":     p.PostPad,
		"min_duration": p.MinDuration,
		"merge_gap":    p.MergeGap,
	} {
		if value < 0 {
			return services.Wrap(services.ErrConfiguration, "gate", "params", fmt.Sprintf("%s must be >= 0, got %v", name, value), nil)
		}
	}
	return nil
}
