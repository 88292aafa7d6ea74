package route

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/twpayne/go-geom"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/saferoute/internal/temporal"
)

// Candidate is a route returned by a routing provider.
type Candidate struct {
	ID              int     `json:"id"`
	Summary         string  `json:"summary,omitempty"`
	Polyline        string  `json:"polyline"`
	DistanceMeters  float64 `json:"distance_meters"`
	DurationSeconds float64 `json:"duration_seconds"`
}

// DistanceKM returns the provider distance in kilometres.
func (c Candidate) DistanceKM() float64 { return c.DistanceMeters / 1000 }

// DurationMinutes returns the provider duration in minutes.
func (c Candidate) DurationMinutes() float64 { return c.DurationSeconds / 60 }

// Ranked is a scored candidate in safety order.
type Ranked struct {
	Rank        int             `json:"rank"`
	Recommended bool            `json:"recommended"`
	Candidate   Candidate       `json:"candidate"`
	Coords      []geom.Coord    `json:"-"`
	Score       Score           `json:"score"`
	At          time.Time       `json:"travel_time"`
	Period      temporal.Period `json:"time_period"`
	Weekend     bool            `json:"is_weekend"`
	Explanation string          `json:"explanation,omitempty"`
	// ExplanationSource is "primary" for model text, "degraded" for the template.
	ExplanationSource string `json:"explanation_source,omitempty"`
}

// Rank decodes and scores candidates concurrently, then orders them by
// normalized risk and duration. Candidates whose polyline cannot be decoded
// are dropped. The first entry is marked recommended.
func (s *Scorer) Rank(ctx context.Context, cands []Candidate, at time.Time, concurrency int) ([]Ranked, error) {
	results := make([]*Ranked, len(cands))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, concurrency))
	for i, c := range cands {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			coords, err := Decode(c.Polyline)
			if err != nil {
				zap.L().Warn("route: dropping candidate", zap.Int("id", c.ID), zap.Error(err))
				return nil
			}
			results[i] = &Ranked{
				Candidate: c,
				Coords:    coords,
				Score:     s.Score(coords, at),
				At:        at,
				Period:    temporal.PeriodOf(at.Hour()),
				Weekend:   temporal.DayTypeOf(at.Weekday()) == temporal.Weekend,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ranked := make([]Ranked, 0, len(results))
	for _, r := range results {
		if r != nil {
			ranked = append(ranked, *r)
		}
	}
	Order(ranked)
	return ranked, nil
}

// Order sorts by (normalized risk, duration), numbers ranks from 1 and marks
// the first entry recommended.
func Order(ranked []Ranked) {
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Score.NormalizedRisk != b.Score.NormalizedRisk {
			return a.Score.NormalizedRisk < b.Score.NormalizedRisk
		}
		return a.Candidate.DurationSeconds < b.Candidate.DurationSeconds
	})
	for i := range ranked {
		ranked[i].Rank = i + 1
		ranked[i].Recommended = i == 0
	}
}

// RouteRef identifies a route in Insights.
type RouteRef struct {
	ID        int     `json:"id"`
	Summary   string  `json:"summary,omitempty"`
	RiskScore float64 `json:"risk_score"`
}

// Insights compares the safest and riskiest ranked routes.
type Insights struct {
	Message          string    `json:"message,omitempty"`
	Safest           *RouteRef `json:"safest_route,omitempty"`
	Riskiest         *RouteRef `json:"riskiest_route,omitempty"`
	RiskReductionPct *float64  `json:"risk_reduction_percentage,omitempty"`
	TimeWarning      string    `json:"time_warning,omitempty"`
	TimeInfo         string    `json:"time_info,omitempty"`
}

// Summarize derives insights from routes already in rank order.
func Summarize(ranked []Ranked, hour int) Insights {
	if len(ranked) < 2 {
		return Insights{Message: "Only one route available"}
	}
	safest, riskiest := ranked[0], ranked[len(ranked)-1]
	in := Insights{
		Safest:   &RouteRef{ID: safest.Candidate.ID, Summary: safest.Candidate.Summary, RiskScore: safest.Score.NormalizedRisk},
		Riskiest: &RouteRef{ID: riskiest.Candidate.ID, Summary: riskiest.Candidate.Summary, RiskScore: riskiest.Score.NormalizedRisk},
	}
	if r := riskiest.Score.NormalizedRisk; r > 0 {
		pct := math.Round((r-safest.Score.NormalizedRisk)/r*1000) / 10
		in.RiskReductionPct = &pct
	}

	switch {
	case hour >= 0 && hour <= 6:
		in.TimeWarning = "Late night/early morning - higher crime risk"
	case hour > 6 && hour <= 9:
		in.TimeInfo = "Morning rush hour - generally safer"
	case hour >= 20:
		in.TimeWarning = "Night time - increased risk"
	}
	return in
}
