package route

import (
	"math"

	"github.com/twpayne/go-geom"
)

// Similarity settings used when merging alternatives from several requests.
const (
	similaritySamples   = 20
	similarityTolerance = 0.01 // degrees
	similarityThreshold = 0.8
)

// Similar reports whether two routes mostly overlap: more than 80% of up
// to 20 evenly spaced samples from a lie within 0.01° of some sample of b.
func Similar(a, b []geom.Coord) bool {
	n := min(similaritySamples, len(a), len(b))
	if n == 0 {
		return false
	}
	sa, sb := evenSamples(a, n), evenSamples(b, n)

	near := 0
	for _, p := range sa {
		best := math.Inf(1)
		for _, q := range sb {
			best = math.Min(best, math.Hypot(p[0]-q[0], p[1]-q[1]))
		}
		if best < similarityTolerance {
			near++
		}
	}
	return float64(near)/float64(n) > similarityThreshold
}

// evenSamples picks n indices spread evenly from first to last, truncating
// toward zero.
func evenSamples(coords []geom.Coord, n int) []geom.Coord {
	if n == 1 {
		return []geom.Coord{coords[0]}
	}
	out := make([]geom.Coord, n)
	last := float64(len(coords) - 1)
	for i := 0; i < n; i++ {
		out[i] = coords[int(float64(i)*last/float64(n-1))]
	}
	return out
}

// Dedupe appends each candidate from extra to base unless it is similar to
// a route already kept, then truncates to limit (0 = no limit). Candidates
// whose polyline does not decode are kept out.
func Dedupe(base, extra []Candidate, limit int) []Candidate {
	kept := make([]Candidate, 0, len(base)+len(extra))
	var shapes [][]geom.Coord
	for _, c := range base {
		coords, err := Decode(c.Polyline)
		if err != nil {
			continue
		}
		kept = append(kept, c)
		shapes = append(shapes, coords)
	}

	for _, c := range extra {
		coords, err := Decode(c.Polyline)
		if err != nil {
			continue
		}
		dup := false
		for _, s := range shapes {
			if Similar(coords, s) {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		kept = append(kept, c)
		shapes = append(shapes, coords)
	}

	if limit > 0 && len(kept) > limit {
		kept = kept[:limit]
	}
	for i := range kept {
		kept[i].ID = i
	}
	return kept
}
