package viewer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/depthkit/go-depthview/pkg/filter"
	"github.com/depthkit/go-depthview/pkg/grabber"
)

func applyAll(s Settings, events ...Event) Settings {
	for _, e := range events {
		s = Transition(s, e)
	}
	return s
}

func TestTransition_ConfidenceClampsPerStep(t *testing.T) {
	s := DefaultSettings()
	if s.Confidence != 6 {
		t.Fatalf("default confidence = %d, want 6", s.Confidence)
	}

	s = applyAll(s, EventConfidenceUp, EventConfidenceUp, EventConfidenceUp, EventConfidenceDown)
	if s.Confidence != 8 {
		t.Errorf("6 +3 -1 = %d, want 8", s.Confidence)
	}

	// Clamping happens at each step, not on the net total: pushing far
	// past the cap and stepping back lands just below the cap.
	s = DefaultSettings()
	for i := 0; i < 20; i++ {
		s = Transition(s, EventConfidenceUp)
	}
	if s.Confidence != 15 {
		t.Errorf("confidence after 20 increments = %d, want 15", s.Confidence)
	}
	s = Transition(s, EventConfidenceDown)
	if s.Confidence != 14 {
		t.Errorf("confidence after clamped run and one decrement = %d, want 14", s.Confidence)
	}

	for i := 0; i < 40; i++ {
		s = Transition(s, EventConfidenceDown)
	}
	if s.Confidence != 0 {
		t.Errorf("confidence floor = %d, want 0", s.Confidence)
	}
}

func TestTransition_WindowFloorsAtOne(t *testing.T) {
	s := DefaultSettings()
	if s.Window != 3 {
		t.Fatalf("default window = %d, want 3", s.Window)
	}

	for i := 0; i < 5; i++ {
		s = Transition(s, EventWindowDown)
	}
	if s.Window != 1 {
		t.Errorf("window after 5 decrements = %d, want 1", s.Window)
	}
}

func TestTransition_TemporalTwoCycle(t *testing.T) {
	s := DefaultSettings()
	if s.Temporal != grabber.TemporalOff {
		t.Fatalf("default temporal = %v, want off", s.Temporal)
	}

	s = Transition(s, EventCycleTemporal)
	if s.Temporal != grabber.TemporalAverage {
		t.Errorf("after one cycle = %v, want average", s.Temporal)
	}

	s = Transition(s, EventCycleTemporal)
	if s.Temporal != grabber.TemporalOff {
		t.Errorf("after two cycles = %v, want off", s.Temporal)
	}
}

func TestTransition_SigmaFloors(t *testing.T) {
	s := DefaultSettings()

	for i := 0; i < 10; i++ {
		s = Transition(s, EventSigmaSpatialDown)
	}
	if s.SigmaSpatial != 1 {
		t.Errorf("spatial sigma floor = %v, want 1", s.SigmaSpatial)
	}

	for i := 0; i < 10; i++ {
		s = Transition(s, EventSigmaRangeDown)
	}
	if s.SigmaRange != 0.01 {
		t.Errorf("range sigma floor = %v, want 0.01", s.SigmaRange)
	}
}

func TestTransition_SaveAndNoneAreNoOps(t *testing.T) {
	s := DefaultSettings()
	if got := Transition(s, EventSaveCloud); got != s {
		t.Error("EventSaveCloud changed the settings")
	}
	if got := Transition(s, EventNone); got != s {
		t.Error("EventNone changed the settings")
	}
}

func TestEventForKey_Bindings(t *testing.T) {
	cases := map[rune]Event{
		't': EventConfidenceUp,
		'T': EventConfidenceDown,
		'w': EventWindowUp,
		'W': EventWindowDown,
		'k': EventCycleTemporal,
		'b': EventToggleSmoothing,
		'a': EventSigmaSpatialUp,
		'A': EventSigmaSpatialDown,
		'z': EventSigmaRangeUp,
		'Z': EventSigmaRangeDown,
		's': EventToggleRecording,
		'p': EventSaveCloud,
		'q': EventNone,
	}
	for k, want := range cases {
		if got := EventForKey(k); got != want {
			t.Errorf("EventForKey(%q) = %v, want %v", k, got, want)
		}
	}
}

func TestParseEvent_RoundTrip(t *testing.T) {
	for _, e := range []Event{
		EventConfidenceUp, EventCycleTemporal, EventToggleRecording, EventSaveCloud,
	} {
		got, err := ParseEvent(e.String())
		if err != nil {
			t.Fatalf("ParseEvent(%q): %v", e.String(), err)
		}
		if got != e {
			t.Errorf("ParseEvent(%q) = %v, want %v", e.String(), got, e)
		}
	}

	if _, err := ParseEvent("bogus"); err == nil {
		t.Error("expected error for unknown event name")
	}
}

func TestControls_ReappliesToDevice(t *testing.T) {
	grab := grabber.NewMock(nil)
	c := NewControls(grab, filter.NewBilateral(), NewRecorder(t.TempDir(), nil), nil)

	if err := c.Apply(EventConfidenceUp); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if got := grab.ConfidenceThreshold(); got != 7 {
		t.Errorf("device threshold = %d, want 7", got)
	}

	if err := c.Apply(EventCycleTemporal); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	mode, window := grab.TemporalFiltering()
	if mode != grabber.TemporalAverage || window != 3 {
		t.Errorf("device temporal = (%v, %d), want (average, 3)", mode, window)
	}
}

func TestControls_SigmaReachesFilter(t *testing.T) {
	filt := filter.NewBilateral()
	c := NewControls(grabber.NewMock(nil), filt, NewRecorder(t.TempDir(), nil), nil)

	if err := c.Apply(EventSigmaSpatialUp); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if got := filt.SigmaSpatial(); got != 6 {
		t.Errorf("filter spatial sigma = %v, want 6", got)
	}

	if err := c.Apply(EventSigmaRangeDown); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if got := filt.SigmaRange(); got != 0.04 {
		t.Errorf("filter range sigma = %v, want 0.04", got)
	}
}

func TestControls_RecordingSessions(t *testing.T) {
	root := t.TempDir()
	rec := NewRecorder(root, nil)
	c := NewControls(grabber.NewMock(nil), filter.NewBilateral(), rec, nil)

	// on, off, on: two sessions, two directories.
	for _, e := range []Event{EventToggleRecording, EventToggleRecording, EventToggleRecording} {
		if err := c.Apply(e); err != nil {
			t.Fatalf("Apply: %v", err)
		}
	}

	for _, dir := range []string{"0001", "0002"} {
		if _, err := os.Stat(filepath.Join(root, dir)); err != nil {
			t.Errorf("session directory %s missing: %v", dir, err)
		}
	}
	if !c.Settings().Recording {
		t.Error("recording should be on after the third toggle")
	}
	if rec.Session() != 2 {
		t.Errorf("session index = %d, want 2", rec.Session())
	}
}

func TestControls_OnChangeFiresSynchronously(t *testing.T) {
	c := NewControls(grabber.NewMock(nil), filter.NewBilateral(), NewRecorder(t.TempDir(), nil), nil)

	var seen []Settings
	c.onChange = func(s Settings) { seen = append(seen, s) }

	c.Apply(EventConfidenceUp)
	c.Apply(EventToggleSmoothing)

	if len(seen) != 2 {
		t.Fatalf("onChange fired %d times, want 2", len(seen))
	}
	if seen[0].Confidence != 7 {
		t.Errorf("first change confidence = %d, want 7", seen[0].Confidence)
	}
	if !seen[1].Smoothing {
		t.Error("second change should have smoothing on")
	}
}
