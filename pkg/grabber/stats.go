package grabber

import (
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"
)

// rateWindow is how many recent frame timestamps the tracker keeps.
const rateWindow = 30

// RateStats summarizes recent inter-frame intervals.
type RateStats struct {
	// FPS is the mean instantaneous frame rate over the window.
	FPS float64

	// Jitter is the standard deviation of instantaneous FPS.
	Jitter float64

	// Frames is the total number of frames observed.
	Frames uint64
}

// RateTracker derives a frame rate from observed frame arrival times.
// It is safe for concurrent use: the acquisition goroutine calls Tick
// while the consumer reads Stats.
type RateTracker struct {
	mu     sync.Mutex
	times  []time.Time
	frames uint64
}

// NewRateTracker creates an empty tracker.
func NewRateTracker() *RateTracker {
	return &RateTracker{
		times: make([]time.Time, 0, rateWindow),
	}
}

// Tick records a frame arrival at time t.
func (r *RateTracker) Tick(t time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.frames++
	r.times = append(r.times, t)
	if len(r.times) > rateWindow {
		r.times = r.times[1:]
	}
}

// Stats computes the current rate statistics from the retained window.
func (r *RateTracker) Stats() RateStats {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := RateStats{Frames: r.frames}
	if len(r.times) < 2 {
		return s
	}

	fps := make([]float64, 0, len(r.times)-1)
	for i := 1; i < len(r.times); i++ {
		interval := r.times[i].Sub(r.times[i-1]).Seconds()
		if interval > 0 {
			fps = append(fps, 1.0/interval)
		}
	}
	if len(fps) == 0 {
		return s
	}

	s.FPS = stat.Mean(fps, nil)
	if len(fps) > 1 {
		s.Jitter = stat.StdDev(fps, nil)
	}
	return s
}

// FPS is a convenience wrapper returning only the mean rate.
func (r *RateTracker) FPS() float64 {
	return r.Stats().FPS
}
