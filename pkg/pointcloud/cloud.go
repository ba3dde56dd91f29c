// Package pointcloud provides the point cloud frame type shared by the
// capture, filter, display and recording layers, plus the compressed
// on-disk codec for persisting clouds.
package pointcloud

import (
	"math"
	"time"
)

// Point is a single point of an organized cloud. Position is in meters
// in the camera frame. Color channels are optional; depth-only sources
// leave them zero.
type Point struct {
	X, Y, Z float32
	R, G, B uint8
}

// Valid reports whether the point carries a usable measurement.
// Invalid points are marked with a NaN depth, matching common
// organized-cloud conventions.
func (p Point) Valid() bool {
	return !math.IsNaN(float64(p.Z))
}

// InvalidPoint returns a point marked as missing.
func InvalidPoint() Point {
	nan := float32(math.NaN())
	return Point{X: nan, Y: nan, Z: nan}
}

// Cloud is one organized point cloud snapshot captured at a point in time.
//
// A Cloud is shared by reference between the capture goroutine and the
// consumer loop: once published it must never be modified in place.
// Transformations (smoothing, colorizing) allocate a new Cloud.
type Cloud struct {
	// Width and Height describe the sensor grid. len(Points) == Width*Height.
	Width  int
	Height int

	// Stamp is the device timestamp in microseconds.
	Stamp uint64

	// Device identifies the capture device that produced this cloud.
	Device string

	// Points in row-major order.
	Points []Point
}

// New allocates an empty organized cloud of the given dimensions.
func New(width, height int) *Cloud {
	return &Cloud{
		Width:  width,
		Height: height,
		Points: make([]Point, width*height),
	}
}

// At returns the point at grid position (x, y).
func (c *Cloud) At(x, y int) Point {
	return c.Points[y*c.Width+x]
}

// Set stores the point at grid position (x, y).
// Only valid before the cloud is published.
func (c *Cloud) Set(x, y int, p Point) {
	c.Points[y*c.Width+x] = p
}

// Size returns the total number of points, valid or not.
func (c *Cloud) Size() int {
	return len(c.Points)
}

// Time converts the device stamp to wall-clock time.
func (c *Cloud) Time() time.Time {
	return time.UnixMicro(int64(c.Stamp))
}

// Clone returns a deep copy sharing no storage with the receiver.
func (c *Cloud) Clone() *Cloud {
	out := &Cloud{
		Width:  c.Width,
		Height: c.Height,
		Stamp:  c.Stamp,
		Device: c.Device,
		Points: make([]Point, len(c.Points)),
	}
	copy(out.Points, c.Points)
	return out
}
