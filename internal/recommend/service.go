// Package recommend fetches alternative routes between two places, scores
// them against the current risk snapshot and explains the ranking.
package recommend

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/saferoute/internal/explain"
	"github.com/sells-group/saferoute/internal/resilience"
	"github.com/sells-group/saferoute/internal/risk"
	"github.com/sells-group/saferoute/internal/route"
	"github.com/sells-group/saferoute/internal/temporal"
	"github.com/sells-group/saferoute/pkg/directions"
)

// Snapshots yields the risk snapshot to score against. *risk.Holder
// implements it.
type Snapshots interface {
	Current() *risk.Snapshot
}

// Config tunes a Service.
type Config struct {
	Scoring     route.Config
	Grader      route.Grader
	Mode        string
	MaxRoutes   int
	Concurrency int
}

// DefaultConfig returns driving directions, at most five routes.
func DefaultConfig() Config {
	return Config{
		Scoring:     route.DefaultConfig(),
		Grader:      route.DefaultGrader(),
		Mode:        "driving",
		MaxRoutes:   5,
		Concurrency: 4,
	}
}

// Request asks for the safest way from Origin to Destination at At.
type Request struct {
	Origin      string    `json:"origin"`
	Destination string    `json:"destination"`
	At          time.Time `json:"travel_time"`
	Explain     bool      `json:"explain"`
}

// Result is a ranked set of routes.
type Result struct {
	Routes   []route.Ranked  `json:"routes"`
	Insights route.Insights  `json:"insights"`
	At       time.Time       `json:"travel_time"`
	Period   temporal.Period `json:"time_period"`
	Weekend  bool            `json:"is_weekend"`
	// Degraded is set when the routing provider failed; Routes is then empty.
	Degraded bool   `json:"degraded,omitempty"`
	Cause    string `json:"cause,omitempty"`
}

// Best returns the recommended route, if any.
func (r *Result) Best() (route.Ranked, bool) {
	if r == nil || len(r.Routes) == 0 {
		return route.Ranked{}, false
	}
	return r.Routes[0], true
}

// Service ties the routing provider, the risk snapshot and the explainer
// together.
type Service struct {
	routes    directions.Client
	snapshots Snapshots
	explainer explain.Explainer
	cfg       Config
	log       *zap.Logger
}

// NewService builds a Service. A nil explainer means template explanations.
func NewService(routes directions.Client, snapshots Snapshots, explainer explain.Explainer, cfg Config) *Service {
	if explainer == nil {
		explainer = explain.FallbackExplainer{}
	}
	if cfg.MaxRoutes <= 0 {
		cfg.MaxRoutes = 5
	}
	if len(cfg.Grader.Thresholds) == 0 {
		cfg.Grader = route.DefaultGrader()
	}
	return &Service{
		routes:    routes,
		snapshots: snapshots,
		explainer: explainer,
		cfg:       cfg,
		log:       zap.L().With(zap.String("component", "recommend")),
	}
}

// Candidates asks the provider for alternatives, then for variants avoiding
// highways and tolls, and merges them without near-duplicates. A failed
// primary request yields a degraded empty list; failed variants are skipped.
func (s *Service) Candidates(ctx context.Context, req Request) resilience.Outcome[[]route.Candidate] {
	base := directions.Request{
		Origin:      req.Origin,
		Destination: req.Destination,
		Mode:        s.cfg.Mode,
		Departure:   req.At,
	}

	primary, err := s.routes.Routes(ctx, base)
	if err != nil {
		s.log.Warn("routing provider failed", zap.Error(err))
		return resilience.Fallback([]route.Candidate{}, err)
	}

	var extra []route.Candidate
	for _, avoid := range []string{directions.AvoidHighways, directions.AvoidTolls} {
		if len(primary)+len(extra) >= s.cfg.MaxRoutes {
			break
		}
		alt := base
		alt.Avoid = avoid
		rs, err := s.routes.Routes(ctx, alt)
		if err != nil {
			s.log.Debug("alternative request failed", zap.String("avoid", avoid), zap.Error(err))
			continue
		}
		extra = append(extra, toCandidates(rs)...)
	}

	return resilience.Ok(route.Dedupe(toCandidates(primary), extra, s.cfg.MaxRoutes))
}

func toCandidates(rs []directions.Route) []route.Candidate {
	out := make([]route.Candidate, len(rs))
	for i, r := range rs {
		out[i] = route.Candidate{
			ID:              i,
			Summary:         r.Summary,
			Polyline:        r.Polyline,
			DistanceMeters:  r.DistanceMeters,
			DurationSeconds: r.DurationSeconds,
		}
	}
	return out
}

// Recommend fetches, scores, ranks and optionally explains routes for req.
// No routes is not an error.
func (s *Service) Recommend(ctx context.Context, req Request) (*Result, error) {
	if req.At.IsZero() {
		req.At = time.Now()
	}
	cands := s.Candidates(ctx, req)
	res, err := s.Score(ctx, cands.Value, req.At, req.Explain)
	if err != nil {
		return nil, err
	}
	if cands.IsDegraded() {
		res.Degraded = true
		res.Cause = cands.Cause.Error()
	}
	s.log.Info("recommendation complete",
		zap.String("origin", req.Origin),
		zap.String("destination", req.Destination),
		zap.Int("routes", len(res.Routes)),
		zap.Bool("degraded", res.Degraded),
	)
	return res, nil
}

// Score ranks already-fetched candidates at travel time at.
func (s *Service) Score(ctx context.Context, cands []route.Candidate, at time.Time, withExplanations bool) (*Result, error) {
	snap := s.snapshots.Current()
	if snap == nil {
		return nil, eris.New("recommend: no risk snapshot loaded")
	}
	scorer := route.NewScorer(snap, s.cfg.Scoring, s.cfg.Grader)

	ranked, err := scorer.Rank(ctx, cands, at, s.cfg.Concurrency)
	if err != nil {
		return nil, eris.Wrap(err, "recommend: rank routes")
	}
	if withExplanations {
		explain.All(ctx, s.explainer, ranked, s.cfg.Concurrency)
	}

	return &Result{
		Routes:   ranked,
		Insights: route.Summarize(ranked, at.Hour()),
		At:       at,
		Period:   temporal.PeriodOf(at.Hour()),
		Weekend:  temporal.DayTypeOf(at.Weekday()) == temporal.Weekend,
	}, nil
}

// CompareHours are the local hours used by CompareTimes.
var CompareHours = []struct {
	Label string
	Hour  int
}{
	{"morning", 9},
	{"afternoon", 15},
	{"evening", 19},
	{"night", 23},
}

// Comparison is the best route at one time of day.
type Comparison struct {
	Label          string      `json:"label"`
	At             time.Time   `json:"travel_time"`
	SafetyGrade    route.Grade `json:"safety_grade,omitempty"`
	RiskScore      float64     `json:"risk_score"`
	Duration       float64     `json:"duration_minutes"`
	Recommendation string      `json:"recommendation,omitempty"`
	Degraded       bool        `json:"degraded,omitempty"`
	Error          string      `json:"error,omitempty"`
}

// CompareTimes scores one set of candidates at each of CompareHours on the
// day of req.At. Periods without routes or with a scoring error carry the
// error text instead of a grade. A routing provider failure yields one
// degraded row per period; only a cancelled ctx is returned as an error.
func (s *Service) CompareTimes(ctx context.Context, req Request) ([]Comparison, error) {
	day := req.At
	if day.IsZero() {
		day = time.Now()
	}
	cands := s.Candidates(ctx, req)
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "recommend: compare times")
	}

	out := make([]Comparison, 0, len(CompareHours))
	for _, h := range CompareHours {
		at := time.Date(day.Year(), day.Month(), day.Day(), h.Hour, 0, 0, 0, day.Location())
		c := Comparison{Label: h.Label, At: at}

		if cands.IsDegraded() {
			c.Degraded = true
			c.Error = cands.Cause.Error()
			out = append(out, c)
			continue
		}

		res, err := s.Score(ctx, cands.Value, at, false)
		switch {
		case err != nil:
			c.Error = err.Error()
		case len(res.Routes) == 0:
			c.Error = "no routes found"
		default:
			best := res.Routes[0]
			if req.Explain {
				explain.All(ctx, s.explainer, res.Routes[:1], 1)
				best = res.Routes[0]
			}
			c.SafetyGrade = best.Score.Grade
			c.RiskScore = best.Score.NormalizedRisk
			c.Duration = best.Candidate.DurationMinutes()
			c.Recommendation = best.Explanation
		}
		out = append(out, c)
	}
	return out, nil
}
