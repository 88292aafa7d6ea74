package risk

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/saferoute/internal/config"
	"github.com/sells-group/saferoute/internal/crime"
	"github.com/sells-group/saferoute/internal/density"
	"github.com/sells-group/saferoute/internal/hotspot"
	"github.com/sells-group/saferoute/internal/incident"
	"github.com/sells-group/saferoute/internal/temporal"
)

// Params are the point evaluation constants.
type Params struct {
	// ProximityFactor scales a hotspot's intensity inside its radius.
	ProximityFactor float64
	// Epsilon is the base risk below which the fallback floor applies.
	Epsilon        float64
	JitterMin      float64
	JitterMax      float64
	FallbackScale  float64
	FallbackOffset float64
	// ViolenceFactor multiplies the district violence ratio.
	ViolenceFactor float64
}

// DefaultParams returns the standard evaluation constants.
func DefaultParams() Params {
	return Params{
		ProximityFactor: 0.1,
		Epsilon:         1e-4,
		JitterMin:       0.8,
		JitterMax:       1.2,
		FallbackScale:   0.5,
		FallbackOffset:  0.3,
		ViolenceFactor:  0.5,
	}
}

// Options configures snapshot construction and evaluation.
type Options struct {
	Weights        crime.Weights
	Temporal       *temporal.Table
	Incident       incident.Config
	Bandwidth      density.BandwidthConfig
	Hotspot        hotspot.Config
	Params         Params
	Seed           uint64
	GridResolution int
	UrbanKeywords  []string
	Concurrency    int
}

// DefaultOptions returns built-in weights, tables and constants with seed 1.
func DefaultOptions() Options {
	return Options{
		Weights:        crime.DefaultWeights(),
		Temporal:       temporal.DefaultTable(),
		Incident:       incident.DefaultConfig(),
		Bandwidth:      density.DefaultBandwidth(),
		Hotspot:        hotspot.DefaultConfig(),
		Params:         DefaultParams(),
		Seed:           1,
		GridResolution: 100,
		UrbanKeywords:  []string{"city", "bengaluru", "mysuru", "hubballi"},
		Concurrency:    4,
	}
}

// OptionsFromConfig maps application config onto Options.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	weights, err := crime.WeightsFromConfig(cfg.Weights)
	if err != nil {
		return Options{}, eris.Wrap(err, "risk: weights")
	}
	table, err := temporal.FromConfig(cfg.Temporal.Time, cfg.Temporal.Day)
	if err != nil {
		return Options{}, eris.Wrap(err, "risk: temporal tables")
	}

	m := cfg.Model
	return Options{
		Weights:  weights,
		Temporal: table,
		Incident: incident.Config{
			BonusThreshold: float64(m.BonusThreshold),
			BonusPoints:    m.BonusPoints,
			BonusClusters:  m.BonusClusters,
			ClusterSlack:   m.ClusterSlack,
		},
		Bandwidth: density.BandwidthConfig{Scale: m.BandwidthScale, Min: m.BandwidthMin, Max: m.BandwidthMax},
		Hotspot:   hotspot.Config{Eps: m.HotspotEps, MinSamples: m.HotspotMinSamples, MinPoints: m.HotspotMinPoints},
		Params: Params{
			ProximityFactor: m.ProximityFactor,
			Epsilon:         m.Epsilon,
			JitterMin:       m.JitterMin,
			JitterMax:       m.JitterMax,
			FallbackScale:   m.FallbackScale,
			FallbackOffset:  m.FallbackOffset,
			ViolenceFactor:  m.ViolenceFactor,
		},
		Seed:           m.Seed,
		GridResolution: m.GridResolution,
		UrbanKeywords:  m.UrbanKeywords,
		Concurrency:    cfg.Scoring.Concurrency,
	}, nil
}
