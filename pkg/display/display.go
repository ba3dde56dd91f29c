// Package display defines the rendering surface for the viewer: showing
// the latest cloud, drawing overlay text, and delivering key events.
package display

import (
	"time"

	"github.com/depthkit/go-depthview/pkg/pointcloud"
)

// KeyEvent is a single key press delivered by the display surface.
type KeyEvent struct {
	// Key is the pressed key.
	Key rune
}

// Display is the viewer's rendering surface.
type Display interface {
	// WasClosed reports whether the user closed the viewer window.
	WasClosed() bool

	// ShowCloud updates the displayed cloud, or inserts it and resets
	// the camera if nothing is shown yet.
	ShowCloud(c *pointcloud.Cloud)

	// SetOverlayLine updates the overlay text line at the given index,
	// inserting it if not present. Lines render top to bottom with
	// fixed vertical spacing.
	SetOverlayLine(index int, text string)

	// PollEvents services the display's event and render tick for at
	// most the given timeout and returns any pending key events.
	PollEvents(timeout time.Duration) []KeyEvent

	// Close releases the display surface.
	Close() error
}
