package main

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/saferoute/internal/boundary"
	"github.com/sells-group/saferoute/internal/crime"
	"github.com/sells-group/saferoute/internal/explain"
	"github.com/sells-group/saferoute/internal/recommend"
	"github.com/sells-group/saferoute/internal/resilience"
	"github.com/sells-group/saferoute/internal/risk"
	"github.com/sells-group/saferoute/internal/route"
	"github.com/sells-group/saferoute/internal/store"
	anthropicpkg "github.com/sells-group/saferoute/pkg/anthropic"
	"github.com/sells-group/saferoute/pkg/directions"
)

// engine holds the loaded risk model, the recommendation service and the
// run store needed by the score/recommend/compare/serve commands.
type engine struct {
	Holder  *risk.Holder
	Service *recommend.Service
	Store   store.Store // may be nil
	pool    *pgxpool.Pool
}

// Close releases resources held by the engine.
func (e *engine) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
	if e.pool != nil {
		e.pool.Close()
	}
}

// initEngine validates config, builds the first risk snapshot and wires the
// routing and explanation clients. withStore opens and migrates the run
// store. Callers should defer env.Close().
func initEngine(ctx context.Context, withStore bool) (*engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	pool, err := openBoundaryPool(ctx)
	if err != nil {
		return nil, err
	}
	e := &engine{pool: pool}

	loader := func(ctx context.Context) (*risk.Snapshot, error) {
		return loadSnapshot(ctx, e.pool)
	}
	snap, err := loader(ctx)
	if err != nil {
		e.Close()
		return nil, err
	}
	e.Holder = risk.NewHolder(snap, loader)

	svcCfg, err := serviceConfig()
	if err != nil {
		e.Close()
		return nil, err
	}
	e.Service = recommend.NewService(initDirections(), e.Holder, initExplainer(), svcCfg)

	if withStore {
		st, err := initStore(ctx)
		if err != nil {
			e.Close()
			return nil, err
		}
		e.Store = st
	}
	return e, nil
}

// openBoundaryPool connects to the boundary database when boundaries come
// from PostGIS, and returns nil otherwise.
func openBoundaryPool(ctx context.Context) (*pgxpool.Pool, error) {
	if cfg.Data.BoundarySource != boundary.KindPostGIS {
		return nil, nil
	}
	if cfg.Data.DatabaseURL == "" {
		return nil, eris.New("data.database_url is required for postgis boundaries")
	}
	pool, err := pgxpool.New(ctx, cfg.Data.DatabaseURL)
	if err != nil {
		return nil, eris.Wrap(err, "connect boundary database")
	}
	return pool, nil
}

// loadSnapshot reads boundaries and crime statistics and builds a snapshot.
// pool is used only for PostGIS boundaries.
func loadSnapshot(ctx context.Context, pool *pgxpool.Pool) (*risk.Snapshot, error) {
	opts := boundary.Options{
		Kind:           cfg.Data.BoundarySource,
		Path:           cfg.Data.BoundaryPath,
		NameProperties: cfg.Data.NameProperties,
		PostGIS:        boundary.PostGISSource{Table: cfg.Data.BoundaryTable},
	}
	if pool != nil {
		opts.DB = pool
	}
	regions, err := boundary.Load(ctx, opts)
	if err != nil {
		return nil, eris.Wrap(err, "load boundaries")
	}

	rows, err := crime.ReadFile(cfg.Data.CrimePath, cfg.Data.CrimeSheet, cfg.Data.DistrictColumn)
	if err != nil {
		return nil, eris.Wrap(err, "load crime statistics")
	}
	ledger, report := crime.Match(rows, regions)
	zap.L().Info("crime rows matched",
		zap.Int("regions", regions.Len()),
		zap.Int("matched", report.Matched),
		zap.Int("skipped", report.Skipped),
		zap.Int("unmatched", len(report.Unmatched)),
	)
	if len(report.Unmatched) > 0 {
		zap.L().Debug("unmatched crime rows", zap.Strings("names", report.Unmatched))
	}

	riskOpts, err := risk.OptionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	return risk.Build(ctx, regions, ledger, riskOpts)
}

// serviceConfig maps scoring and routing config onto recommend.Config.
func serviceConfig() (recommend.Config, error) {
	grader := route.DefaultGrader()
	if len(cfg.Scoring.GradeThresholds) > 0 {
		g, err := route.NewGrader(cfg.Scoring.GradeThresholds, cfg.Scoring.CompositeFloor)
		if err != nil {
			return recommend.Config{}, eris.Wrap(err, "grade thresholds")
		}
		grader = g
	}
	return recommend.Config{
		Scoring: route.Config{
			SamplesPerKM: cfg.Scoring.SamplesPerKM,
			MinSamples:   cfg.Scoring.MinSamples,
			MaxSamples:   cfg.Scoring.MaxSamples,
		},
		Grader:      grader,
		Mode:        cfg.Routing.Mode,
		MaxRoutes:   cfg.Routing.MaxRoutes,
		Concurrency: cfg.Scoring.Concurrency,
	}, nil
}

func initDirections() directions.Client {
	if cfg.Routing.Key == "" {
		zap.L().Warn("routing.key is not set; directions requests will be rejected")
	}
	retry := resilience.DefaultRetryConfig().WithAttempts(cfg.Routing.Retries + 1)
	retry.OnRetry = resilience.RetryLogger("directions", "routes")
	return directions.NewClient(cfg.Routing.Key,
		directions.WithBaseURL(cfg.Routing.BaseURL),
		directions.WithRateLimit(cfg.Routing.RPS),
		directions.WithRetry(retry),
	)
}

// initExplainer returns nil, meaning template explanations, when no
// Anthropic key is configured.
func initExplainer() explain.Explainer {
	if cfg.Anthropic.Key == "" {
		return nil
	}
	timeout := time.Duration(cfg.Anthropic.TimeoutSecs) * time.Second
	client := anthropicpkg.NewClient(cfg.Anthropic.Key, anthropicpkg.WithTimeout(timeout))
	return explain.NewModelExplainer(client, explain.ModelConfig{
		Model:     cfg.Anthropic.Model,
		MaxTokens: cfg.Anthropic.MaxTokens,
		Timeout:   timeout,
		RPS:       cfg.Anthropic.RPS,
	})
}

// initStore opens and migrates the run history database.
func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.NewSQLite(cfg.Store.DSN)
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// scoringContext bounds one scoring request by scoring.timeout_secs.
func scoringContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if cfg.Scoring.TimeoutSecs <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, time.Duration(cfg.Scoring.TimeoutSecs)*time.Second)
}
