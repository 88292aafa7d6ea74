// Package explain produces short natural-language assessments of ranked
// routes, from a language model when available and from templates otherwise.
package explain

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/sells-group/saferoute/internal/resilience"
	"github.com/sells-group/saferoute/internal/route"
	"github.com/sells-group/saferoute/pkg/anthropic"
)

// Explainer describes one route given its rank among total routes. It never
// fails: a degraded outcome carries template text and the cause.
type Explainer interface {
	Explain(ctx context.Context, r route.Ranked, total int) resilience.Outcome[string]
}

// RiskLevel buckets a normalized risk score.
func RiskLevel(score float64) string {
	switch {
	case score < 30:
		return "low"
	case score < 70:
		return "moderate"
	default:
		return "high"
	}
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

// Prompt builds the model prompt for r.
func Prompt(r route.Ranked, total int) string {
	sc := r.Score
	consistency := "Consistent"
	if sc.RiskVariance > 100 {
		consistency = "High variance"
	}
	goal := "Explains why this is the safest option"
	if r.Rank != 1 {
		goal = fmt.Sprintf("Compares this #%d route to safer alternatives", r.Rank)
	}

	var b strings.Builder
	b.WriteString("You are a safety-focused navigation expert. Provide a clear, helpful explanation for this route recommendation:\n\n")
	b.WriteString("ROUTE DETAILS:\n")
	fmt.Fprintf(&b, "- Rank: #%d of %d routes\n", r.Rank, total)
	fmt.Fprintf(&b, "- Safety Grade: %s\n", sc.Grade)
	fmt.Fprintf(&b, "- Risk Level: %s (%.1f)\n", RiskLevel(sc.NormalizedRisk), sc.NormalizedRisk)
	fmt.Fprintf(&b, "- Distance: %.1f km\n", r.Candidate.DistanceKM())
	fmt.Fprintf(&b, "- Duration: %.0f minutes\n", r.Candidate.DurationMinutes())
	fmt.Fprintf(&b, "- Travel Time: during %s\n", r.Period.Label())
	fmt.Fprintf(&b, "- Weekend: %s\n\n", yesNo(r.Weekend))
	b.WriteString("RISK ANALYSIS:\n")
	fmt.Fprintf(&b, "- Maximum segment risk: %.1f\n", sc.MaxSegmentRisk)
	fmt.Fprintf(&b, "- Risk consistency: %s\n\n", consistency)
	b.WriteString("Provide a 3-4 sentence explanation that:\n")
	fmt.Fprintf(&b, "1. %s\n", goal)
	b.WriteString("2. Mentions specific time-of-day safety considerations\n")
	b.WriteString("3. Notes any significant risk areas or safety advantages\n")
	b.WriteString("4. Gives actionable advice if needed\n\n")
	b.WriteString("Use a helpful, conversational tone. Be specific but not alarming.")
	return b.String()
}

// Fallback is the templated assessment used when no model answer is
// available.
func Fallback(r route.Ranked) string {
	desc := r.Score.Grade.Description()
	period := r.Period.Label()
	if r.Rank == 1 {
		return fmt.Sprintf("This route offers %s safety during %s with a risk score of %.1f. "+
			"The %.1fkm journey should take about %.0f minutes.",
			desc, period, r.Score.NormalizedRisk, r.Candidate.DistanceKM(), r.Candidate.DurationMinutes())
	}
	return fmt.Sprintf("Alternative #%d has %s safety but higher risk than the recommended route. "+
		"Consider the trade-off between the %.0f-minute travel time and the %.1f risk score for %s travel.",
		r.Rank, desc, r.Candidate.DurationMinutes(), r.Score.NormalizedRisk, period)
}

// FallbackExplainer always answers from templates.
type FallbackExplainer struct{}

// Explain implements Explainer.
func (FallbackExplainer) Explain(_ context.Context, r route.Ranked, _ int) resilience.Outcome[string] {
	return resilience.Fallback(Fallback(r), nil)
}

// ModelConfig configures a ModelExplainer.
type ModelConfig struct {
	Model     string
	MaxTokens int64
	// Timeout bounds each model call. Zero means no extra bound.
	Timeout time.Duration
	// RPS limits calls per second. Zero disables limiting.
	RPS float64
}

// ModelExplainer asks a language model for each assessment.
type ModelExplainer struct {
	client  anthropic.Client
	cfg     ModelConfig
	limiter *rate.Limiter
	log     *zap.Logger
}

// NewModelExplainer returns an Explainer backed by client.
func NewModelExplainer(client anthropic.Client, cfg ModelConfig) *ModelExplainer {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 300
	}
	e := &ModelExplainer{
		client: client,
		cfg:    cfg,
		log:    zap.L().With(zap.String("component", "explain")),
	}
	if cfg.RPS > 0 {
		e.limiter = rate.NewLimiter(rate.Limit(cfg.RPS), 1)
	}
	return e
}

// Explain implements Explainer.
func (e *ModelExplainer) Explain(ctx context.Context, r route.Ranked, total int) resilience.Outcome[string] {
	out := resilience.Or(
		func() (string, error) { return e.ask(ctx, Prompt(r, total)) },
		func(error) string { return Fallback(r) },
	)
	if out.IsDegraded() {
		e.log.Warn("model explanation failed, using template",
			zap.Int("rank", r.Rank),
			zap.Error(out.Cause),
		)
	}
	return out
}

func (e *ModelExplainer) ask(ctx context.Context, prompt string) (string, error) {
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return "", eris.Wrap(err, "explain: rate limit")
		}
	}
	if e.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
	}

	resp, err := e.client.Complete(ctx, anthropic.Request{
		Model:     e.cfg.Model,
		MaxTokens: e.cfg.MaxTokens,
		Prompt:    prompt,
	})
	if err != nil {
		return "", eris.Wrap(err, "explain: model request")
	}
	resp.Usage.Log(e.cfg.Model, "explain")
	if resp.Truncated() {
		zap.L().Debug("explain: model reply truncated", zap.Int64("max_tokens", e.cfg.MaxTokens))
	}

	text := resp.Text
	if text == "" {
		return "", eris.New("explain: empty model response")
	}
	return text, nil
}

// All fills Explanation and ExplanationSource on every ranked route, asking
// at most concurrency explanations at once.
func All(ctx context.Context, e Explainer, ranked []route.Ranked, concurrency int) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, concurrency))
	for i := range ranked {
		g.Go(func() error {
			out := e.Explain(gctx, ranked[i], len(ranked))
			ranked[i].Explanation = out.Value
			ranked[i].ExplanationSource = out.Source.String()
			return nil
		})
	}
	_ = g.Wait()
}
