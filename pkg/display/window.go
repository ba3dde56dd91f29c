package display

import (
	"image"
	"image/color"
	"math"
	"sort"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/depthkit/go-depthview/pkg/pointcloud"
)

// Overlay text geometry.
const (
	overlayX       = 5
	overlayY       = 14
	overlaySpacing = 16
)

// Window renders clouds into an OpenCV window as a colorized depth map
// with overlay text, and delivers key presses from the window.
//
// All methods must be called from the same goroutine; OpenCV highgui is
// not thread safe.
type Window struct {
	win     *gocv.Window
	mu      sync.Mutex
	overlay map[int]string
	frame   gocv.Mat
	hasImg  bool
	closed  bool
}

// NewWindow opens a named display window.
func NewWindow(title string) *Window {
	return &Window{
		win:     gocv.NewWindow(title),
		overlay: make(map[int]string),
		frame:   gocv.NewMat(),
	}
}

// WasClosed reports whether the user closed the window.
func (w *Window) WasClosed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed || !w.win.IsOpen()
}

// ShowCloud renders the cloud's depth channel through a colormap and
// displays it together with the current overlay text.
func (w *Window) ShowCloud(c *pointcloud.Cloud) {
	gray := depthImage(c)
	defer gray.Close()

	w.mu.Lock()
	defer w.mu.Unlock()

	gocv.ApplyColorMap(gray, &w.frame, gocv.ColormapJet)
	w.hasImg = true
	w.render()
}

// depthImage converts valid depths to an 8-bit image, near depths bright.
// Invalid points render black.
func depthImage(c *pointcloud.Cloud) gocv.Mat {
	zmin := math.Inf(1)
	zmax := math.Inf(-1)
	for _, p := range c.Points {
		if !p.Valid() {
			continue
		}
		z := float64(p.Z)
		if z < zmin {
			zmin = z
		}
		if z > zmax {
			zmax = z
		}
	}

	data := make([]byte, len(c.Points))
	if span := zmax - zmin; span > 0 {
		for i, p := range c.Points {
			if !p.Valid() {
				continue
			}
			data[i] = byte(255 * (1 - (float64(p.Z)-zmin)/span))
		}
	}

	img, err := gocv.NewMatFromBytes(c.Height, c.Width, gocv.MatTypeCV8UC1, data)
	if err != nil {
		return gocv.Zeros(c.Height, c.Width, gocv.MatTypeCV8UC1)
	}
	return img
}

// SetOverlayLine updates an overlay line and redraws immediately so the
// text never lags the control that produced it.
func (w *Window) SetOverlayLine(index int, text string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.overlay[index] = text
	if w.hasImg {
		w.render()
	}
}

// render composites the overlay onto a copy of the current frame and
// shows it. Caller holds w.mu.
func (w *Window) render() {
	img := w.frame.Clone()
	defer img.Close()

	lines := make([]int, 0, len(w.overlay))
	for i := range w.overlay {
		lines = append(lines, i)
	}
	sort.Ints(lines)

	white := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	for _, i := range lines {
		org := image.Pt(overlayX, overlayY+i*overlaySpacing)
		gocv.PutText(&img, w.overlay[i], org, gocv.FontHersheyPlain, 1.0, white, 1)
	}

	w.win.IMShow(img)
}

// PollEvents pumps the window event loop for up to timeout and returns
// the pressed key, if any.
func (w *Window) PollEvents(timeout time.Duration) []KeyEvent {
	ms := int(timeout.Milliseconds())
	if ms < 1 {
		ms = 1
	}

	key := w.win.WaitKey(ms)
	if key < 0 {
		return nil
	}
	return []KeyEvent{{Key: rune(key)}}
}

// Close destroys the window.
func (w *Window) Close() error {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()

	w.frame.Close()
	return w.win.Close()
}

// Ensure Window implements Display.
var _ Display = (*Window)(nil)
