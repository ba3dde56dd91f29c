// Package filter provides per-frame smoothing of organized point clouds.
package filter

import (
	"math"

	"github.com/depthkit/go-depthview/pkg/pointcloud"
)

// Sigma bounds. Values below these (or non-finite values) are clamped.
const (
	MinSigmaSpatial = 1.0
	MinSigmaRange   = 0.01
)

// Default sigmas for a freshly constructed filter.
const (
	DefaultSigmaSpatial = 5.0
	DefaultSigmaRange   = 0.05
)

// Bilateral smooths point positions with a neighborhood-weighted average
// over the organized grid. The spatial sigma controls falloff by grid
// distance, the range sigma controls falloff by depth similarity; edges
// in the depth image are preserved because dissimilar neighbors get
// negligible weight.
//
// Apply is deterministic for a fixed input and fixed sigmas, and never
// modifies its input.
type Bilateral struct {
	sigmaS float64
	sigmaR float64
}

// NewBilateral creates a filter with the default sigmas.
func NewBilateral() *Bilateral {
	return &Bilateral{
		sigmaS: DefaultSigmaSpatial,
		sigmaR: DefaultSigmaRange,
	}
}

// SetSigmaSpatial sets the spatial falloff sigma, clamped to at least 1.
// Non-finite values are replaced by the minimum.
func (f *Bilateral) SetSigmaSpatial(s float64) {
	f.sigmaS = clampSigma(s, MinSigmaSpatial)
}

// SigmaSpatial returns the current spatial sigma.
func (f *Bilateral) SigmaSpatial() float64 {
	return f.sigmaS
}

// SetSigmaRange sets the depth-similarity sigma, clamped to at least 0.01.
// Non-finite values are replaced by the minimum.
func (f *Bilateral) SetSigmaRange(r float64) {
	f.sigmaR = clampSigma(r, MinSigmaRange)
}

// SigmaRange returns the current range sigma.
func (f *Bilateral) SigmaRange() float64 {
	return f.sigmaR
}

func clampSigma(v, min float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < min {
		return min
	}
	return v
}

// Apply returns a smoothed copy of c. Point count and ordering are
// preserved; invalid points pass through unchanged and contribute no
// weight to their neighbors.
func (f *Bilateral) Apply(c *pointcloud.Cloud) *pointcloud.Cloud {
	out := c.Clone()

	// Neighborhood radius of two sigmas covers ~95% of the gaussian mass.
	radius := int(math.Ceil(2 * f.sigmaS))
	invS := 1.0 / (2 * f.sigmaS * f.sigmaS)
	invR := 1.0 / (2 * f.sigmaR * f.sigmaR)

	for y := 0; y < c.Height; y++ {
		for x := 0; x < c.Width; x++ {
			center := c.At(x, y)
			if !center.Valid() {
				continue
			}

			var sumX, sumY, sumZ, sumW float64
			for dy := -radius; dy <= radius; dy++ {
				ny := y + dy
				if ny < 0 || ny >= c.Height {
					continue
				}
				for dx := -radius; dx <= radius; dx++ {
					nx := x + dx
					if nx < 0 || nx >= c.Width {
						continue
					}
					n := c.At(nx, ny)
					if !n.Valid() {
						continue
					}

					dz := float64(n.Z - center.Z)
					w := math.Exp(-float64(dx*dx+dy*dy)*invS) *
						math.Exp(-dz*dz*invR)

					sumX += w * float64(n.X)
					sumY += w * float64(n.Y)
					sumZ += w * float64(n.Z)
					sumW += w
				}
			}

			if sumW > 0 {
				smoothed := center
				smoothed.X = float32(sumX / sumW)
				smoothed.Y = float32(sumY / sumW)
				smoothed.Z = float32(sumZ / sumW)
				out.Set(x, y, smoothed)
			}
		}
	}
	return out
}
