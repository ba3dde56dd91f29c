package viewer

import (
	"github.com/depthkit/go-depthview/pkg/filter"
	"github.com/depthkit/go-depthview/pkg/grabber"
)

// Settings is the mutable pipeline configuration. All numeric fields
// stay within their clamps at all times; clamping happens at the point
// of mutation in Transition, never afterwards.
//
// Settings is owned by the consumer loop. Other goroutines only see
// copies through the viewer's status snapshot.
type Settings struct {
	// Confidence is the depth confidence threshold, [0,15].
	Confidence int `json:"confidence"`

	// Temporal is the device-side cross-frame filtering mode.
	Temporal grabber.TemporalFilter `json:"temporal"`

	// Window is the temporal filtering window size, at least 1.
	// Meaningful only when Temporal is not off.
	Window int `json:"window"`

	// Smoothing enables the consumer-side bilateral filter.
	Smoothing bool `json:"smoothing"`

	// SigmaSpatial is the smoothing spatial sigma, at least 1.
	SigmaSpatial float64 `json:"sigma_spatial"`

	// SigmaRange is the smoothing range sigma, at least 0.01.
	SigmaRange float64 `json:"sigma_range"`

	// Recording enables persisting consumed clouds to the current
	// session directory.
	Recording bool `json:"recording"`
}

// DefaultSettings returns the startup configuration.
func DefaultSettings() Settings {
	return Settings{
		Confidence:   6,
		Temporal:     grabber.TemporalOff,
		Window:       3,
		Smoothing:    false,
		SigmaSpatial: filter.DefaultSigmaSpatial,
		SigmaRange:   filter.DefaultSigmaRange,
		Recording:    false,
	}
}
