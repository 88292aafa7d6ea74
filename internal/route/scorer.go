// Package route scores candidate routes against a risk surface, grades
// them and ranks alternatives.
package route

import (
	"math"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"
)

// RiskSource evaluates point risk. *risk.Snapshot implements it.
type RiskSource interface {
	Evaluate(c geom.Coord, at time.Time) float64
}

// SegmentScore is the risk of one leg between consecutive coordinates.
// Distance is the planar length in degrees; Meters is the great-circle length.
type SegmentScore struct {
	Start        geom.Coord `json:"start"`
	End          geom.Coord `json:"end"`
	Risk         float64    `json:"risk"`
	Distance     float64    `json:"distance"`
	Meters       float64    `json:"meters"`
	WeightedRisk float64    `json:"weighted_risk"`
	Samples      int        `json:"samples"`
}

// Score is the aggregate risk of a route.
type Score struct {
	TotalRisk      float64        `json:"total_risk"`
	NormalizedRisk float64        `json:"normalized_risk"`
	MaxSegmentRisk float64        `json:"max_segment_risk"`
	RiskVariance   float64        `json:"risk_variance"`
	Composite      float64        `json:"composite"`
	Grade          Grade          `json:"safety_grade"`
	Distance       float64        `json:"distance"`
	Meters         float64        `json:"meters"`
	Segments       []SegmentScore `json:"segments"`
}

// Config controls segment sampling.
type Config struct {
	SamplesPerKM float64
	MinSamples   int
	// MaxSamples caps samples per segment; 0 means no cap.
	MaxSamples int
}

// DefaultConfig samples roughly once per kilometre, at least three times
// per segment.
func DefaultConfig() Config {
	return Config{SamplesPerKM: 1, MinSamples: 3, MaxSamples: 250}
}

// Scorer turns coordinate sequences into Scores.
type Scorer struct {
	risk   RiskSource
	cfg    Config
	grader Grader
}

// NewScorer returns a Scorer reading risk from src.
func NewScorer(src RiskSource, cfg Config, grader Grader) *Scorer {
	if cfg.MinSamples < 2 {
		cfg.MinSamples = 2
	}
	if cfg.SamplesPerKM <= 0 {
		cfg.SamplesPerKM = 1
	}
	return &Scorer{risk: src, cfg: cfg, grader: grader}
}

// Score evaluates a route at local time at. Fewer than two coordinates
// produce an all-zero score.
func (s *Scorer) Score(coords []geom.Coord, at time.Time) Score {
	if len(coords) < 2 {
		return s.grade(Score{Segments: []SegmentScore{}})
	}

	out := Score{Segments: make([]SegmentScore, 0, len(coords)-1)}
	risks := make([]float64, 0, len(coords)-1)
	for i := 0; i < len(coords)-1; i++ {
		seg := s.segment(coords[i], coords[i+1], at)
		out.Segments = append(out.Segments, seg)
		risks = append(risks, seg.Risk)

		out.TotalRisk += seg.WeightedRisk
		out.Distance += seg.Distance
		out.Meters += seg.Meters
		out.MaxSegmentRisk = math.Max(out.MaxSegmentRisk, seg.Risk)
	}

	if out.Distance > 0 {
		out.NormalizedRisk = out.TotalRisk / out.Distance
	}
	if len(risks) > 1 {
		_, out.RiskVariance = stat.PopMeanVariance(risks, nil)
	}
	return s.grade(out)
}

func (s *Scorer) grade(sc Score) Score {
	sc.Composite = s.grader.Composite(sc.NormalizedRisk, sc.MaxSegmentRisk, sc.RiskVariance)
	sc.Grade = s.grader.Grade(sc.Composite)
	return sc
}

func (s *Scorer) segment(start, end geom.Coord, at time.Time) SegmentScore {
	dx, dy := end[0]-start[0], end[1]-start[1]
	length := math.Hypot(dx, dy)
	meters := geo.DistanceHaversine(orb.Point{start[0], start[1]}, orb.Point{end[0], end[1]})

	n := max(s.cfg.MinSamples, int(meters/1000*s.cfg.SamplesPerKM))
	if s.cfg.MaxSamples > 0 {
		n = min(n, max(s.cfg.MaxSamples, s.cfg.MinSamples))
	}

	var sum float64
	for j := 0; j < n; j++ {
		t := float64(j) / float64(n-1)
		sum += s.sample(geom.Coord{start[0] + t*dx, start[1] + t*dy}, at)
	}
	mean := sum / float64(n)

	return SegmentScore{
		Start:        start,
		End:          end,
		Risk:         mean,
		Distance:     length,
		Meters:       meters,
		WeightedRisk: mean * length,
		Samples:      n,
	}
}

// sample evaluates one point; a panicking or non-finite evaluation counts
// as zero.
func (s *Scorer) sample(c geom.Coord, at time.Time) (v float64) {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Warn("route: risk sample failed", zap.Any("panic", r), zap.Float64s("coord", c))
			v = 0
		}
	}()
	v = s.risk.Evaluate(c, at)
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}
