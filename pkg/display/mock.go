package display

import (
	"sync"
	"time"

	"github.com/depthkit/go-depthview/pkg/pointcloud"
)

// MockDisplay is a scripted display for testing. Key events are queued
// with PushKey and delivered one per poll; the window reports closed
// after CloseAfter polls (or when Close is called).
type MockDisplay struct {
	mu         sync.Mutex
	closed     bool
	closeAfter int
	polls      int
	keys       []rune

	// Shown records every cloud passed to ShowCloud, in order.
	Shown []*pointcloud.Cloud

	// Overlay holds the current overlay text by line index.
	Overlay map[int]string
}

// NewMock creates a mock display that stays open for closeAfter polls.
// A closeAfter of zero keeps the window open until Close is called.
func NewMock(closeAfter int) *MockDisplay {
	return &MockDisplay{
		closeAfter: closeAfter,
		Overlay:    make(map[int]string),
	}
}

// PushKey queues a key event for a later poll.
func (d *MockDisplay) PushKey(k rune) {
	d.mu.Lock()
	d.keys = append(d.keys, k)
	d.mu.Unlock()
}

// WasClosed reports whether the scripted close point was reached.
func (d *MockDisplay) WasClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed || (d.closeAfter > 0 && d.polls >= d.closeAfter)
}

// ShowCloud records the shown cloud.
func (d *MockDisplay) ShowCloud(c *pointcloud.Cloud) {
	d.mu.Lock()
	d.Shown = append(d.Shown, c)
	d.mu.Unlock()
}

// SetOverlayLine records the overlay text.
func (d *MockDisplay) SetOverlayLine(index int, text string) {
	d.mu.Lock()
	d.Overlay[index] = text
	d.mu.Unlock()
}

// OverlayLine returns the current text of the given line.
func (d *MockDisplay) OverlayLine(index int) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.Overlay[index]
}

// ShownCount returns how many clouds were displayed.
func (d *MockDisplay) ShownCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.Shown)
}

// PollEvents counts the poll and dequeues at most one scripted key.
// Like a real event loop it blocks for the full timeout.
func (d *MockDisplay) PollEvents(timeout time.Duration) []KeyEvent {
	time.Sleep(timeout)

	d.mu.Lock()
	defer d.mu.Unlock()

	d.polls++
	if len(d.keys) == 0 {
		return nil
	}
	k := d.keys[0]
	d.keys = d.keys[1:]
	return []KeyEvent{{Key: k}}
}

// Close marks the display closed.
func (d *MockDisplay) Close() error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	return nil
}

// Ensure MockDisplay implements Display.
var _ Display = (*MockDisplay)(nil)
