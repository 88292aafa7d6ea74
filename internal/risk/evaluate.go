package risk

import (
	"math"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/saferoute/internal/crime"
	"github.com/sells-group/saferoute/internal/temporal"
)

// Breakdown itemizes one point evaluation.
type Breakdown struct {
	Region  string                 `json:"region,omitempty"`
	Period  temporal.Period        `json:"period"`
	Day     temporal.DayType       `json:"day_type"`
	Density map[crime.Type]float64 `json:"density,omitempty"`
	Hotspot float64                `json:"hotspot"`
	// Base is density plus hotspot risk before the floor and multipliers.
	Base           float64 `json:"base"`
	Fallback       bool    `json:"fallback"`
	DistrictFactor float64 `json:"district_factor"`
	Jitter         float64 `json:"jitter"`
	Total          float64 `json:"total"`
}

// Evaluate returns the risk at c ({lng, lat}) for travel at local time at.
// Points outside every district, or in a district without statistics, score
// exactly 0. Evaluate never fails; unusable per-type terms are skipped.
func (s *Snapshot) Evaluate(c geom.Coord, at time.Time) float64 {
	return s.EvaluateDetail(c, at).Total
}

// EvaluateDetail is Evaluate with the intermediate terms.
func (s *Snapshot) EvaluateDetail(c geom.Coord, at time.Time) Breakdown {
	b := Breakdown{
		Period: temporal.PeriodOf(at.Hour()),
		Day:    temporal.DayTypeOf(at.Weekday()),
	}
	region, ok := s.store.Locate(c)
	if !ok {
		return b
	}
	b.Region = region.Name

	d, ok := s.districts[region.Name]
	if !ok || d.Record == nil {
		return b
	}

	p := s.opts.Params
	b.Density = make(map[crime.Type]float64, len(d.Fields))
	for _, t := range crime.Catalog {
		f, ok := d.Fields[t]
		if !ok {
			continue
		}
		v := f.Density(c) * s.opts.Weights.Of(t) *
			s.opts.Temporal.TimeMultiplier(b.Period, t) *
			s.opts.Temporal.DayMultiplier(b.Day, t)
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			continue
		}
		b.Density[t] = v
		b.Base += v
	}

	for _, h := range d.Hotspots {
		if !(h.Radius > 0) {
			continue
		}
		dist := math.Hypot(c[0]-h.Center[0], c[1]-h.Center[1])
		if dist < h.Radius {
			b.Hotspot += h.Intensity * (1 - dist/h.Radius) * p.ProximityFactor
		}
	}
	b.Base += b.Hotspot

	b.Jitter = Jitter(c, p.JitterMin, p.JitterMax)
	risk := b.Base
	if risk < p.Epsilon {
		risk = b.Jitter*p.FallbackScale + p.FallbackOffset
		b.Fallback = true
	}
	b.DistrictFactor = 1 + p.ViolenceFactor*d.Stats.ViolenceRatio
	b.Total = risk * b.DistrictFactor * b.Jitter
	return b
}

// Jitter returns a value in [lo, hi) that depends only on c rounded to four
// decimals. Each call seeds its own generator from a hash of the rounded
// coordinate, so concurrent callers never share state.
func Jitter(c geom.Coord, lo, hi float64) float64 {
	key := roundKey(c[1]) + "," + roundKey(c[0])
	h := xxhash.Sum64String(key)
	r := rand.New(rand.NewPCG(h, h^0x9e3779b97f4a7c15))
	return lo + r.Float64()*(hi-lo)
}

func roundKey(v float64) string {
	r := math.Round(v*1e4) / 1e4
	if r == 0 {
		r = 0 // drop the sign of -0
	}
	return strconv.FormatFloat(r, 'f', 4, 64)
}
