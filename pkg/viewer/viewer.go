package viewer

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/depthkit/go-depthview/pkg/display"
	"github.com/depthkit/go-depthview/pkg/filter"
	"github.com/depthkit/go-depthview/pkg/grabber"
	"github.com/depthkit/go-depthview/pkg/pointcloud"
)

// Status is a point-in-time snapshot of the pipeline, safe to hand to
// other goroutines (the status server reads it).
type Status struct {
	Device    string   `json:"device"`
	FPS       float64  `json:"fps"`
	Settings  Settings `json:"settings"`
	Session   int      `json:"session"`
	NextFrame int      `json:"next_frame"`
	Dropped   uint64   `json:"dropped"`
	Shown     uint64   `json:"shown"`
}

// Viewer owns the capture device handle and drives the consumer loop:
// take the latest cloud from the mailbox, smooth it if enabled, display
// it, feed it to the recorder, then service pending control events and
// yield to the display's own event tick.
type Viewer struct {
	grab   grabber.Grabber
	disp   display.Display
	filt   *filter.Bilateral
	rec    *Recorder
	ctrl   *Controls
	logger *slog.Logger

	mailbox Mailbox
	events  chan Event

	saveDir     string
	pollTimeout time.Duration
	writeCloud  writeCloudFunc
	onStatus    func(Status)

	// last is the most recently displayed cloud, owned by the loop.
	last  *pointcloud.Cloud
	shown uint64

	statusMu sync.RWMutex
	status   Status
}

// Option configures a Viewer.
type Option func(*Viewer)

// WithLogger sets the viewer's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(v *Viewer) {
		v.logger = logger
	}
}

// WithRecordRoot places recording session directories under dir.
func WithRecordRoot(dir string) Option {
	return func(v *Viewer) {
		v.rec = NewRecorder(dir, v.logger)
	}
}

// WithRecorder replaces the recorder entirely.
func WithRecorder(rec *Recorder) Option {
	return func(v *Viewer) {
		v.rec = rec
	}
}

// WithSaveDir sets the directory for one-off cloud saves.
func WithSaveDir(dir string) Option {
	return func(v *Viewer) {
		v.saveDir = dir
	}
}

// WithPollTimeout sets how long each iteration yields to the display.
func WithPollTimeout(d time.Duration) Option {
	return func(v *Viewer) {
		v.pollTimeout = d
	}
}

// WithStatusHook registers a callback invoked with every status update.
// The status server uses this to broadcast to websocket clients.
func WithStatusHook(h func(Status)) Option {
	return func(v *Viewer) {
		v.onStatus = h
	}
}

// SetStatusHook registers the status callback after construction.
// Must be called before Run.
func (v *Viewer) SetStatusHook(h func(Status)) {
	v.onStatus = h
}

// New wires a viewer around a capture device and a display surface.
func New(grab grabber.Grabber, disp display.Display, opts ...Option) *Viewer {
	v := &Viewer{
		grab:        grab,
		disp:        disp,
		filt:        filter.NewBilateral(),
		logger:      slog.Default(),
		events:      make(chan Event, 16),
		saveDir:     ".",
		pollTimeout: time.Millisecond,
		writeCloud:  pointcloud.WriteCompressedFile,
	}

	for _, opt := range opts {
		opt(v)
	}

	if v.rec == nil {
		v.rec = NewRecorder(".", v.logger)
	}
	v.ctrl = NewControls(grab, v.filt, v.rec, v.logger)
	v.ctrl.onChange = func(Settings) { v.refreshOverlay() }

	return v
}

// Enqueue queues a control event for the consumer loop. Events beyond
// the queue capacity are dropped.
func (v *Viewer) Enqueue(e Event) bool {
	select {
	case v.events <- e:
		return true
	default:
		v.logger.Warn("control event queue full, dropping", "event", e.String())
		return false
	}
}

// Status returns the latest pipeline snapshot.
func (v *Viewer) Status() Status {
	v.statusMu.RLock()
	defer v.statusMu.RUnlock()
	return v.status
}

// Run starts capture and drives the consumer loop until the display is
// closed, the context is cancelled, or a fatal recording error occurs.
// On return the capture device is stopped and its callback revoked, so
// no publish outlives the mailbox.
func (v *Viewer) Run(ctx context.Context) error {
	reg := v.grab.OnCloud(v.mailbox.Publish)
	defer reg.Revoke()

	if err := v.ctrl.ApplyToDevice(); err != nil {
		return fmt.Errorf("viewer: apply capture settings: %w", err)
	}
	if err := v.grab.Start(ctx); err != nil {
		return fmt.Errorf("viewer: start capture: %w", err)
	}
	defer v.grab.Stop()

	v.logger.Info("viewer running", "device", v.grab.DeviceID())
	v.refreshOverlay()

	for !v.disp.WasClosed() {
		if err := ctx.Err(); err != nil {
			return err
		}

		if c, ok := v.mailbox.Take(); ok {
			if v.ctrl.Settings().Smoothing {
				c = v.filt.Apply(c)
			}
			v.last = c
			v.rec.WriteCloud(c)
			v.disp.ShowCloud(c)
			v.shown++
			v.refreshOverlay()
		}

		if err := v.drainEvents(); err != nil {
			return err
		}

		for _, k := range v.disp.PollEvents(v.pollTimeout) {
			if err := v.handleEvent(EventForKey(k.Key)); err != nil {
				return err
			}
		}
	}

	v.logger.Info("viewer closed by user")
	return nil
}

// drainEvents services control events queued from outside the loop.
func (v *Viewer) drainEvents() error {
	for {
		select {
		case e := <-v.events:
			if err := v.handleEvent(e); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}

func (v *Viewer) handleEvent(e Event) error {
	switch e {
	case EventNone:
		return nil
	case EventSaveCloud:
		v.saveLast()
		return nil
	default:
		return v.ctrl.Apply(e)
	}
}

// saveLast writes the most recently displayed cloud to a one-off file
// named from the device identity and the cloud timestamp. Fire and
// forget: failures are logged, never fatal.
func (v *Viewer) saveLast() {
	if v.last == nil {
		v.logger.Warn("no cloud displayed yet, nothing to save")
		return
	}

	name := fmt.Sprintf("%s_%d%s", v.grab.DeviceID(), v.last.Stamp, pointcloud.FileExt)
	path := filepath.Join(v.saveDir, name)
	if err := v.writeCloud(path, v.last); err != nil {
		v.logger.Warn("save cloud", "path", path, "error", err)
		return
	}
	v.logger.Info("saved cloud", "path", path)
}

// refreshOverlay rewrites every overlay line from the current settings
// and publishes a status snapshot. Runs synchronously on every settings
// change, before the next event is processed.
func (v *Viewer) refreshOverlay() {
	s := v.ctrl.Settings()

	temporal := s.Temporal.String()
	if s.Temporal != grabber.TemporalOff {
		temporal = fmt.Sprintf("%s, window size %d", temporal, s.Window)
	}
	smoothing := "off"
	if s.Smoothing {
		smoothing = fmt.Sprintf("spatial sigma %.0f, range sigma %.2f", s.SigmaSpatial, s.SigmaRange)
	}
	recording := "off"
	if s.Recording {
		recording = "on"
	}

	v.disp.SetOverlayLine(0, fmt.Sprintf("framerate: %.1f", v.grab.FramesPerSecond()))
	v.disp.SetOverlayLine(1, fmt.Sprintf("confidence threshold: %d", s.Confidence))
	v.disp.SetOverlayLine(2, "temporal filtering: "+temporal)
	v.disp.SetOverlayLine(3, "smoothing: "+smoothing)
	v.disp.SetOverlayLine(4, "recording: "+recording)

	status := Status{
		Device:    v.grab.DeviceID(),
		FPS:       v.grab.FramesPerSecond(),
		Settings:  s,
		Session:   v.rec.Session(),
		NextFrame: v.rec.FrameIndex(),
		Dropped:   v.mailbox.Drops(),
		Shown:     v.shown,
	}

	v.statusMu.Lock()
	v.status = status
	v.statusMu.Unlock()

	if v.onStatus != nil {
		v.onStatus(status)
	}
}
