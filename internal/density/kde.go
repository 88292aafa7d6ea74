// Package density fits Gaussian kernel density estimates over synthetic
// incident locations.
package density

import (
	"math"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"gonum.org/v1/gonum/floats"

	"github.com/sells-group/saferoute/internal/resilience"
)

// ErrFitFailure is returned when a density cannot be fitted.
var ErrFitFailure = eris.New("density: fit failure")

// BandwidthConfig clamps the adaptive bandwidth scale/sqrt(n).
type BandwidthConfig struct {
	Scale float64
	Min   float64
	Max   float64
}

// DefaultBandwidth returns the standard clamp: 0.1/sqrt(n) within [0.005, 0.02].
func DefaultBandwidth() BandwidthConfig {
	return BandwidthConfig{Scale: 0.1, Min: 0.005, Max: 0.02}
}

// Bandwidth returns the kernel width in degrees for n samples. It never
// increases with n.
func Bandwidth(n int, cfg BandwidthConfig) float64 {
	if n < 1 {
		return cfg.Max
	}
	return math.Max(cfg.Min, math.Min(cfg.Max, cfg.Scale/math.Sqrt(float64(n))))
}

// Field is an immutable 2-D Gaussian KDE.
type Field struct {
	xs, ys    []float64
	bandwidth float64
	logNorm   float64
}

// Fit builds a Field from incident coordinates ({lng, lat}).
func Fit(points []geom.Coord, cfg BandwidthConfig) (*Field, error) {
	if len(points) == 0 {
		return nil, eris.Wrap(ErrFitFailure, "no samples")
	}
	f := &Field{
		xs: make([]float64, len(points)),
		ys: make([]float64, len(points)),
	}
	for i, p := range points {
		if len(p) < 2 || !finite(p[0]) || !finite(p[1]) {
			return nil, eris.Wrapf(ErrFitFailure, "sample %d is not finite", i)
		}
		f.xs[i], f.ys[i] = p[0], p[1]
	}
	h := Bandwidth(len(points), cfg)
	if !(h > 0) {
		return nil, eris.Wrapf(ErrFitFailure, "bandwidth %v", h)
	}
	f.bandwidth = h
	// Mean of n isotropic Gaussians: 1 / (n * 2π h²).
	f.logNorm = -math.Log(float64(len(points))) - math.Log(2*math.Pi*h*h)
	return f, nil
}

// TryFit fits a Field, reporting failure as a degraded outcome with a nil
// field instead of an error.
func TryFit(points []geom.Coord, cfg BandwidthConfig) resilience.Outcome[*Field] {
	return resilience.Or(
		func() (*Field, error) { return Fit(points, cfg) },
		func(error) *Field { return nil },
	)
}

// Bandwidth returns the fitted kernel width.
func (f *Field) Bandwidth() float64 { return f.bandwidth }

// Len returns the number of samples.
func (f *Field) Len() int { return len(f.xs) }

// LogDensity evaluates the log density at c using log-sum-exp.
func (f *Field) LogDensity(c geom.Coord) float64 {
	inv := 1 / (2 * f.bandwidth * f.bandwidth)
	terms := make([]float64, len(f.xs))
	for i := range f.xs {
		dx, dy := c[0]-f.xs[i], c[1]-f.ys[i]
		terms[i] = -(dx*dx + dy*dy) * inv
	}
	return floats.LogSumExp(terms) + f.logNorm
}

// Density evaluates the density at c.
func (f *Field) Density(c geom.Coord) float64 {
	if f == nil || len(f.xs) == 0 {
		return 0
	}
	return math.Exp(f.LogDensity(c))
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
