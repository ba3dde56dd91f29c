// Package viewer implements the real-time frame pipeline: the single
// slot mailbox between capture and consumer, the runtime settings and
// their control state machine, the recording sessions, and the driver
// loop that ties them to the display.
package viewer

import (
	"sync"

	"github.com/depthkit/go-depthview/pkg/pointcloud"
)

// Mailbox is a single-slot, overwrite-latest handoff between the capture
// goroutine and the consumer loop. It is the only state shared across
// that boundary.
//
// Publish overwrites unconditionally, so a slow consumer observes only
// the most recent cloud and intermediate ones are silently dropped.
type Mailbox struct {
	mu    sync.Mutex
	cloud *pointcloud.Cloud
	drops uint64
}

// Publish stores c as the current slot value, discarding whatever was
// previously stored. Called from the capture goroutine.
func (m *Mailbox) Publish(c *pointcloud.Cloud) {
	m.mu.Lock()
	if m.cloud != nil {
		m.drops++
	}
	m.cloud = c
	m.mu.Unlock()
}

// Take atomically returns the current slot value and clears the slot.
// The second result is false when nothing was published since the last
// Take.
func (m *Mailbox) Take() (*pointcloud.Cloud, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c := m.cloud
	m.cloud = nil
	return c, c != nil
}

// Drops returns how many published clouds were overwritten before being
// taken.
func (m *Mailbox) Drops() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.drops
}
