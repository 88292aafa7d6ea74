// Package hotspot finds dense, severity-weighted clusters of synthetic
// incidents within a district.
package hotspot

import (
	"math"
	"sort"

	"github.com/twpayne/go-geom"
	"gonum.org/v1/gonum/stat"
)

// Hotspot is a cluster of incidents. Center and Radius are in degrees.
type Hotspot struct {
	Center    geom.Coord `json:"center"`
	Radius    float64    `json:"radius"`
	Intensity float64    `json:"intensity"`
	Count     int        `json:"crime_count"`
}

// Lng returns the center longitude.
func (h Hotspot) Lng() float64 { return h.Center[0] }

// Lat returns the center latitude.
func (h Hotspot) Lat() float64 { return h.Center[1] }

// Config tunes detection. Eps applies to standardized coordinates.
type Config struct {
	Eps        float64
	MinSamples float64
	MinPoints  int
}

// DefaultConfig returns eps 0.5, min weight 3 and a five point minimum.
func DefaultConfig() Config {
	return Config{Eps: 0.5, MinSamples: 3, MinPoints: 5}
}

// Point is an incident with its severity weight.
type Point struct {
	Coord  geom.Coord
	Weight float64
}

// Detect clusters the pooled incidents of one district. Coordinates are
// standardized per axis before clustering; centers, radii and intensities are
// computed on the original coordinates. It returns nil when fewer than
// MinPoints incidents are given. Hotspots are ordered by descending
// intensity.
func Detect(points []Point, cfg Config) []Hotspot {
	if len(points) < max(cfg.MinPoints, 1) {
		return nil
	}

	xs := make([]float64, len(points))
	ys := make([]float64, len(points))
	ws := make([]float64, len(points))
	for i, p := range points {
		xs[i], ys[i], ws[i] = p.Coord[0], p.Coord[1], p.Weight
	}
	labels := DBSCAN(Standardize(xs), Standardize(ys), ws, cfg.Eps, cfg.MinSamples)

	members := make(map[int][]int)
	var order []int
	for i, l := range labels {
		if l == Noise {
			continue
		}
		if _, ok := members[l]; !ok {
			order = append(order, l)
		}
		members[l] = append(members[l], i)
	}

	hotspots := make([]Hotspot, 0, len(order))
	for _, l := range order {
		idx := members[l]
		var sw, cx, cy float64
		for _, i := range idx {
			sw += ws[i]
			cx += ws[i] * xs[i]
			cy += ws[i] * ys[i]
		}
		if !(sw > 0) {
			continue
		}
		center := geom.Coord{cx / sw, cy / sw}

		var radius float64
		for _, i := range idx {
			radius = math.Max(radius, math.Hypot(xs[i]-center[0], ys[i]-center[1]))
		}
		hotspots = append(hotspots, Hotspot{
			Center:    center,
			Radius:    radius,
			Intensity: sw,
			Count:     len(idx),
		})
	}

	sort.SliceStable(hotspots, func(i, j int) bool {
		return hotspots[i].Intensity > hotspots[j].Intensity
	})
	return hotspots
}

// Standardize returns (v - mean) / std using the population standard
// deviation. A constant input maps to zeros.
func Standardize(v []float64) []float64 {
	mean, variance := stat.PopMeanVariance(v, nil)
	std := math.Sqrt(variance)
	if !(std > 0) {
		std = 1
	}
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = (x - mean) / std
	}
	return out
}
