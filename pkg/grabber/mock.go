package grabber

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/depthkit/go-depthview/pkg/pointcloud"
)

// MockGrabber is a simulated depth camera for development and testing.
// It generates a deterministic synthetic scene (a tilted plane with a
// moving bump) at a fixed frame rate.
type MockGrabber struct {
	serial    string
	width     int
	height    int
	frameRate float64
	logger    *slog.Logger

	mu        sync.Mutex
	running   bool
	closed    bool
	stopCh    chan struct{}
	loopDone  sync.WaitGroup
	handlers  map[int]CloudHandler
	nextReg   int
	threshold int
	temporal  TemporalFilter
	window    int

	rate  *RateTracker
	frame uint64
}

// MockOption configures a MockGrabber.
type MockOption func(*MockGrabber)

// WithSerial overrides the generated device serial.
func WithSerial(serial string) MockOption {
	return func(m *MockGrabber) {
		m.serial = serial
	}
}

// WithSize sets the simulated sensor resolution.
func WithSize(width, height int) MockOption {
	return func(m *MockGrabber) {
		m.width = width
		m.height = height
	}
}

// WithFrameRate sets the simulated acquisition rate in frames per second.
func WithFrameRate(fps float64) MockOption {
	return func(m *MockGrabber) {
		m.frameRate = fps
	}
}

// NewMock creates a simulated grabber. Without options it produces a
// 64x48 cloud at 30 FPS under a random serial.
func NewMock(logger *slog.Logger, opts ...MockOption) *MockGrabber {
	if logger == nil {
		logger = slog.Default()
	}

	m := &MockGrabber{
		serial:    "SIM-" + uuid.NewString()[:8],
		width:     64,
		height:    48,
		frameRate: 30,
		logger:    logger,
		handlers:  make(map[int]CloudHandler),
		threshold: 6,
		temporal:  TemporalOff,
		window:    3,
		rate:      NewRateTracker(),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Start begins generating clouds.
func (m *MockGrabber) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	if m.running {
		return nil
	}

	m.running = true
	m.stopCh = make(chan struct{})
	m.loopDone.Add(1)
	go m.captureLoop(ctx, m.stopCh)

	m.logger.Info("mock grabber started",
		"serial", m.serial,
		"size", m.width*m.height,
		"fps", m.frameRate,
	)

	return nil
}

func (m *MockGrabber) captureLoop(ctx context.Context, stop chan struct{}) {
	defer m.loopDone.Done()

	ticker := time.NewTicker(time.Duration(float64(time.Second) / m.frameRate))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case now := <-ticker.C:
			cloud := m.generateCloud(now)
			m.rate.Tick(now)

			m.mu.Lock()
			handlers := make([]CloudHandler, 0, len(m.handlers))
			for _, h := range m.handlers {
				handlers = append(handlers, h)
			}
			m.mu.Unlock()

			for _, h := range handlers {
				h(cloud)
			}
		}
	}
}

// generateCloud builds one frame of the synthetic scene. The scene is a
// plane sloping away from the camera with a bump orbiting its center;
// points near the frame border are treated as low confidence and dropped
// once the threshold rises high enough.
func (m *MockGrabber) generateCloud(now time.Time) *pointcloud.Cloud {
	m.mu.Lock()
	threshold := m.threshold
	frame := m.frame
	m.frame++
	m.mu.Unlock()

	c := pointcloud.New(m.width, m.height)
	c.Stamp = uint64(now.UnixMicro())
	c.Device = m.serial

	phase := float64(frame) * 0.1
	cx := 0.5 + 0.25*math.Cos(phase)
	cy := 0.5 + 0.25*math.Sin(phase)

	for y := 0; y < m.height; y++ {
		for x := 0; x < m.width; x++ {
			u := float64(x) / float64(m.width-1)
			v := float64(y) / float64(m.height-1)

			// Confidence falls off toward the frame border, 15 in the
			// center and 0 in the corners.
			edge := math.Min(math.Min(u, 1-u), math.Min(v, 1-v))
			conf := int(edge * 2 * 15)
			if conf < threshold {
				c.Set(x, y, pointcloud.InvalidPoint())
				continue
			}

			z := 1.0 + 0.5*v
			d2 := (u-cx)*(u-cx) + (v-cy)*(v-cy)
			z -= 0.2 * math.Exp(-d2/0.01)

			c.Set(x, y, pointcloud.Point{
				X: float32((u - 0.5) * z),
				Y: float32((v - 0.5) * z),
				Z: float32(z),
				R: uint8(255 * u),
				G: uint8(255 * v),
				B: 128,
			})
		}
	}
	return c
}

// Stop halts cloud generation. When Stop returns no handler call is in
// flight and none will follow.
func (m *MockGrabber) Stop() error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return nil
	}
	m.running = false
	close(m.stopCh)
	m.mu.Unlock()

	m.loopDone.Wait()
	m.logger.Info("mock grabber stopped", "serial", m.serial)
	return nil
}

type mockRegistration struct {
	m  *MockGrabber
	id int
}

func (r *mockRegistration) Revoke() {
	r.m.mu.Lock()
	delete(r.m.handlers, r.id)
	r.m.mu.Unlock()
}

// OnCloud registers a handler invoked from the capture goroutine.
func (m *MockGrabber) OnCloud(h CloudHandler) Registration {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextReg
	m.nextReg++
	m.handlers[id] = h
	return &mockRegistration{m: m, id: id}
}

// SetConfidenceThreshold sets the simulated confidence cutoff.
func (m *MockGrabber) SetConfidenceThreshold(level int) error {
	if level < MinConfidence || level > MaxConfidence {
		return ErrBadThreshold
	}
	m.mu.Lock()
	m.threshold = level
	m.mu.Unlock()
	return nil
}

// SetTemporalFiltering records the requested temporal filtering mode.
// The simulated scene is noise free, so the mode has no visible effect.
func (m *MockGrabber) SetTemporalFiltering(mode TemporalFilter, window int) error {
	if window < 1 {
		return ErrBadWindow
	}
	m.mu.Lock()
	m.temporal = mode
	m.window = window
	m.mu.Unlock()
	return nil
}

// TemporalFiltering returns the last applied mode and window, for tests.
func (m *MockGrabber) TemporalFiltering() (TemporalFilter, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.temporal, m.window
}

// ConfidenceThreshold returns the last applied threshold, for tests.
func (m *MockGrabber) ConfidenceThreshold() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.threshold
}

// FramesPerSecond reports the observed generation rate.
func (m *MockGrabber) FramesPerSecond() float64 {
	return m.rate.FPS()
}

// DeviceID returns the simulated serial.
func (m *MockGrabber) DeviceID() string {
	return m.serial
}

// Close stops the grabber and releases it.
func (m *MockGrabber) Close() error {
	m.Stop()

	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

// Ensure MockGrabber implements Grabber.
var _ Grabber = (*MockGrabber)(nil)
