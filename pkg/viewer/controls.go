package viewer

import (
	"fmt"
	"log/slog"

	"github.com/depthkit/go-depthview/pkg/filter"
	"github.com/depthkit/go-depthview/pkg/grabber"
)

// Event is a discrete control input. Events arrive from the display's
// keyboard and from the status server; both feed the same state machine.
type Event int

const (
	// EventNone is an unmapped input and has no effect.
	EventNone Event = iota

	// EventConfidenceUp raises the confidence threshold by 1, capped at 15.
	EventConfidenceUp

	// EventConfidenceDown lowers the confidence threshold by 1, floored at 0.
	EventConfidenceDown

	// EventWindowUp raises the temporal window by 1.
	EventWindowUp

	// EventWindowDown lowers the temporal window by 1, floored at 1.
	EventWindowDown

	// EventCycleTemporal advances the temporal filtering mode.
	EventCycleTemporal

	// EventToggleSmoothing flips the bilateral smoothing filter.
	EventToggleSmoothing

	// EventSigmaSpatialUp raises the smoothing spatial sigma by 1.
	EventSigmaSpatialUp

	// EventSigmaSpatialDown lowers the spatial sigma by 1, floored at 1.
	EventSigmaSpatialDown

	// EventSigmaRangeUp raises the smoothing range sigma by 0.01.
	EventSigmaRangeUp

	// EventSigmaRangeDown lowers the range sigma by 0.01, floored at 0.01.
	EventSigmaRangeDown

	// EventToggleRecording starts or ends a recording session.
	EventToggleRecording

	// EventSaveCloud saves the most recently displayed cloud once.
	EventSaveCloud
)

var eventNames = map[Event]string{
	EventConfidenceUp:     "confidence-up",
	EventConfidenceDown:   "confidence-down",
	EventWindowUp:         "window-up",
	EventWindowDown:       "window-down",
	EventCycleTemporal:    "cycle-temporal",
	EventToggleSmoothing:  "toggle-smoothing",
	EventSigmaSpatialUp:   "sigma-spatial-up",
	EventSigmaSpatialDown: "sigma-spatial-down",
	EventSigmaRangeUp:     "sigma-range-up",
	EventSigmaRangeDown:   "sigma-range-down",
	EventToggleRecording:  "toggle-recording",
	EventSaveCloud:        "save-cloud",
}

// String returns the event's wire name.
func (e Event) String() string {
	if name, ok := eventNames[e]; ok {
		return name
	}
	return "none"
}

// ParseEvent maps a wire name back to an event.
func ParseEvent(name string) (Event, error) {
	for e, n := range eventNames {
		if n == name {
			return e, nil
		}
	}
	return EventNone, fmt.Errorf("viewer: unknown control event %q", name)
}

// EventForKey maps a display key press to a control event, following the
// viewer's keyboard bindings. Unmapped keys return EventNone.
func EventForKey(k rune) Event {
	switch k {
	case 't':
		return EventConfidenceUp
	case 'T':
		return EventConfidenceDown
	case 'w':
		return EventWindowUp
	case 'W':
		return EventWindowDown
	case 'k':
		return EventCycleTemporal
	case 'b':
		return EventToggleSmoothing
	case 'a':
		return EventSigmaSpatialUp
	case 'A':
		return EventSigmaSpatialDown
	case 'z':
		return EventSigmaRangeUp
	case 'Z':
		return EventSigmaRangeDown
	case 's':
		return EventToggleRecording
	case 'p':
		return EventSaveCloud
	default:
		return EventNone
	}
}

// Transition returns the settings after applying e. It is a pure
// function; clamps are enforced here, at the point of mutation.
// EventSaveCloud and EventNone leave the settings unchanged.
func Transition(s Settings, e Event) Settings {
	switch e {
	case EventConfidenceUp, EventConfidenceDown:
		delta := 1
		if e == EventConfidenceDown {
			delta = -1
		}
		s.Confidence += delta
		if s.Confidence < grabber.MinConfidence {
			s.Confidence = grabber.MinConfidence
		}
		if s.Confidence > grabber.MaxConfidence {
			s.Confidence = grabber.MaxConfidence
		}
	case EventWindowUp, EventWindowDown:
		delta := 1
		if e == EventWindowDown {
			delta = -1
		}
		s.Window += delta
		if s.Window < 1 {
			s.Window = 1
		}
	case EventCycleTemporal:
		s.Temporal = s.Temporal.Next()
	case EventToggleSmoothing:
		s.Smoothing = !s.Smoothing
	case EventSigmaSpatialUp, EventSigmaSpatialDown:
		delta := 1.0
		if e == EventSigmaSpatialDown {
			delta = -1.0
		}
		s.SigmaSpatial += delta
		if s.SigmaSpatial < filter.MinSigmaSpatial {
			s.SigmaSpatial = filter.MinSigmaSpatial
		}
	case EventSigmaRangeUp, EventSigmaRangeDown:
		delta := 0.01
		if e == EventSigmaRangeDown {
			delta = -0.01
		}
		s.SigmaRange += delta
		if s.SigmaRange < filter.MinSigmaRange {
			s.SigmaRange = filter.MinSigmaRange
		}
	case EventToggleRecording:
		s.Recording = !s.Recording
	}
	return s
}

// Controls applies control events to the pipeline: it advances the
// settings through Transition and performs the side effects on the
// capture device, the smoothing filter and the recorder.
type Controls struct {
	settings Settings
	grab     grabber.Grabber
	filt     *filter.Bilateral
	rec      *Recorder
	logger   *slog.Logger

	// onChange is invoked synchronously after every settings change,
	// before the next event is processed. The viewer hooks the overlay
	// refresh here so the settings display never lags its control.
	onChange func(Settings)
}

// NewControls creates the control state machine around the given
// collaborators, starting from the default settings.
func NewControls(grab grabber.Grabber, filt *filter.Bilateral, rec *Recorder, logger *slog.Logger) *Controls {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controls{
		settings: DefaultSettings(),
		grab:     grab,
		filt:     filt,
		rec:      rec,
		logger:   logger,
	}
}

// Settings returns the current settings.
func (c *Controls) Settings() Settings {
	return c.settings
}

// ApplyToDevice pushes the current capture-affecting settings to the
// grabber. Called once at startup so device and settings agree.
func (c *Controls) ApplyToDevice() error {
	if err := c.grab.SetConfidenceThreshold(c.settings.Confidence); err != nil {
		return err
	}
	return c.grab.SetTemporalFiltering(c.settings.Temporal, c.settings.Window)
}

// Apply executes one control event. The returned error is fatal only
// for recording session allocation failures.
func (c *Controls) Apply(e Event) error {
	if e == EventNone || e == EventSaveCloud {
		return nil
	}

	old := c.settings
	c.settings = Transition(old, e)

	switch e {
	case EventConfidenceUp, EventConfidenceDown:
		c.logger.Info("confidence threshold", "value", c.settings.Confidence)
		if err := c.grab.SetConfidenceThreshold(c.settings.Confidence); err != nil {
			c.logger.Warn("apply confidence threshold", "error", err)
		}
	case EventWindowUp, EventWindowDown:
		c.logger.Info("temporal filtering window", "size", c.settings.Window)
		if err := c.grab.SetTemporalFiltering(c.settings.Temporal, c.settings.Window); err != nil {
			c.logger.Warn("apply temporal filtering", "error", err)
		}
	case EventCycleTemporal:
		c.logger.Info("temporal filtering", "mode", c.settings.Temporal.String())
		if err := c.grab.SetTemporalFiltering(c.settings.Temporal, c.settings.Window); err != nil {
			c.logger.Warn("apply temporal filtering", "error", err)
		}
	case EventToggleSmoothing:
		c.logger.Info("smoothing", "enabled", c.settings.Smoothing)
	case EventSigmaSpatialUp, EventSigmaSpatialDown:
		c.filt.SetSigmaSpatial(c.settings.SigmaSpatial)
		c.logger.Info("smoothing spatial sigma", "value", c.settings.SigmaSpatial)
	case EventSigmaRangeUp, EventSigmaRangeDown:
		c.filt.SetSigmaRange(c.settings.SigmaRange)
		c.logger.Info("smoothing range sigma", "value", c.settings.SigmaRange)
	case EventToggleRecording:
		if c.settings.Recording {
			if err := c.rec.BeginSession(); err != nil {
				// Continuing without the session directory would
				// corrupt the recorded sequence.
				c.settings.Recording = false
				return err
			}
			c.logger.Info("recording", "enabled", true, "session", c.rec.Session())
		} else {
			c.rec.EndSession()
			c.logger.Info("recording", "enabled", false)
		}
	}

	if c.onChange != nil {
		c.onChange(c.settings)
	}
	return nil
}
