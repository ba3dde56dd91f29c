// Package grabber defines the capture device boundary: an asynchronous
// source of point cloud frames with runtime-tunable acquisition settings.
package grabber

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/depthkit/go-depthview/pkg/pointcloud"
)

// TemporalFilter selects the cross-frame filtering applied by the device
// over a sliding window of recent frames.
type TemporalFilter int

const (
	// TemporalOff disables cross-frame filtering.
	TemporalOff TemporalFilter = iota

	// TemporalAverage averages depth over the window.
	TemporalAverage
)

// String returns the human-readable filter name.
func (t TemporalFilter) String() string {
	switch t {
	case TemporalAverage:
		return "average"
	default:
		return "off"
	}
}

// Next returns the next filter in the cycle. The cycle has exactly two
// states: off and average.
func (t TemporalFilter) Next() TemporalFilter {
	if t == TemporalOff {
		return TemporalAverage
	}
	return TemporalOff
}

// MarshalJSON encodes the filter as its name.
func (t TemporalFilter) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.String() + `"`), nil
}

// UnmarshalJSON parses a filter name written by MarshalJSON.
func (t *TemporalFilter) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	switch name {
	case "off":
		*t = TemporalOff
	case "average":
		*t = TemporalAverage
	default:
		return fmt.Errorf("grabber: unknown temporal filter %q", name)
	}
	return nil
}

// Confidence threshold bounds accepted by SetConfidenceThreshold.
const (
	MinConfidence = 0
	MaxConfidence = 15
)

// CloudHandler receives captured clouds. It is invoked from the grabber's
// own acquisition goroutine, concurrently with everything else; the cloud
// must not be modified.
type CloudHandler func(c *pointcloud.Cloud)

// Registration is a revocable callback registration.
type Registration interface {
	// Revoke detaches the handler. After Revoke returns, the handler is
	// never invoked again.
	Revoke()
}

// Grabber captures point cloud frames from a depth camera.
type Grabber interface {
	// Start begins frame acquisition. Registered handlers start
	// receiving clouds from the acquisition goroutine.
	Start(ctx context.Context) error

	// Stop halts acquisition. It is safe to call Stop multiple times.
	// When Stop returns, no handler invocation is in flight.
	Stop() error

	// OnCloud registers a handler for captured clouds.
	OnCloud(h CloudHandler) Registration

	// SetConfidenceThreshold sets the depth confidence cutoff [0,15].
	SetConfidenceThreshold(level int) error

	// SetTemporalFiltering configures cross-frame filtering. The window
	// size is meaningful only when mode is not TemporalOff.
	SetTemporalFiltering(mode TemporalFilter, window int) error

	// FramesPerSecond reports the current acquisition rate.
	FramesPerSecond() float64

	// DeviceID returns the device serial or identity string.
	DeviceID() string

	// Close releases all device resources.
	// After Close, the grabber cannot be restarted.
	io.Closer
}
