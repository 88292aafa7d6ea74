package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Data      DataConfig      `yaml:"data" mapstructure:"data"`
	Model     ModelConfig     `yaml:"model" mapstructure:"model"`
	Weights   WeightsConfig   `yaml:"weights" mapstructure:"weights"`
	Temporal  TemporalConfig  `yaml:"temporal" mapstructure:"temporal"`
	Scoring   ScoringConfig   `yaml:"scoring" mapstructure:"scoring"`
	Routing   RoutingConfig   `yaml:"routing" mapstructure:"routing"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// DataConfig locates the district boundary and crime statistics sources.
type DataConfig struct {
	BoundarySource string   `yaml:"boundary_source" mapstructure:"boundary_source"` // geojson, shapefile, postgis
	BoundaryPath   string   `yaml:"boundary_path" mapstructure:"boundary_path"`
	NameProperties []string `yaml:"name_properties" mapstructure:"name_properties"`
	DatabaseURL    string   `yaml:"database_url" mapstructure:"database_url"`
	BoundaryTable  string   `yaml:"boundary_table" mapstructure:"boundary_table"`
	CrimePath      string   `yaml:"crime_path" mapstructure:"crime_path"`
	CrimeSheet     string   `yaml:"crime_sheet" mapstructure:"crime_sheet"`
	DistrictColumn string   `yaml:"district_column" mapstructure:"district_column"`
}

// ModelConfig tunes incident synthesis, density fitting, hotspot clustering
// and point risk evaluation.
type ModelConfig struct {
	Seed           uint64   `yaml:"seed" mapstructure:"seed"` // 0 = random per build
	GridResolution int      `yaml:"grid_resolution" mapstructure:"grid_resolution"`
	UrbanKeywords  []string `yaml:"urban_keywords" mapstructure:"urban_keywords"`
	BonusThreshold int      `yaml:"bonus_threshold" mapstructure:"bonus_threshold"`
	BonusPoints    int      `yaml:"bonus_points" mapstructure:"bonus_points"`
	BonusClusters  int      `yaml:"bonus_clusters" mapstructure:"bonus_clusters"`
	ClusterSlack   float64  `yaml:"cluster_slack" mapstructure:"cluster_slack"`

	BandwidthScale float64 `yaml:"bandwidth_scale" mapstructure:"bandwidth_scale"`
	BandwidthMin   float64 `yaml:"bandwidth_min" mapstructure:"bandwidth_min"`
	BandwidthMax   float64 `yaml:"bandwidth_max" mapstructure:"bandwidth_max"`

	HotspotEps        float64 `yaml:"hotspot_eps" mapstructure:"hotspot_eps"`
	HotspotMinSamples float64 `yaml:"hotspot_min_samples" mapstructure:"hotspot_min_samples"`
	HotspotMinPoints  int     `yaml:"hotspot_min_points" mapstructure:"hotspot_min_points"`

	ProximityFactor float64 `yaml:"proximity_factor" mapstructure:"proximity_factor"`
	Epsilon         float64 `yaml:"epsilon" mapstructure:"epsilon"`
	JitterMin       float64 `yaml:"jitter_min" mapstructure:"jitter_min"`
	JitterMax       float64 `yaml:"jitter_max" mapstructure:"jitter_max"`
	FallbackScale   float64 `yaml:"fallback_scale" mapstructure:"fallback_scale"`
	FallbackOffset  float64 `yaml:"fallback_offset" mapstructure:"fallback_offset"`
	ViolenceFactor  float64 `yaml:"violence_factor" mapstructure:"violence_factor"`
}

// WeightsConfig maps a crime type key (lower case, underscores) to its severity.
type WeightsConfig map[string]float64

// TemporalConfig holds the time-of-day and day-of-week multiplier tables,
// keyed by period name then crime type key.
type TemporalConfig struct {
	Time map[string]map[string]float64 `yaml:"time" mapstructure:"time"`
	Day  map[string]map[string]float64 `yaml:"day" mapstructure:"day"`
}

// ScoringConfig configures route sampling, grading and batch scoring.
type ScoringConfig struct {
	SamplesPerKM    float64   `yaml:"samples_per_km" mapstructure:"samples_per_km"`
	MinSamples      int       `yaml:"min_samples" mapstructure:"min_samples"`
	MaxSamples      int       `yaml:"max_samples" mapstructure:"max_samples"`
	Concurrency     int       `yaml:"concurrency" mapstructure:"concurrency"`
	CompositeFloor  float64   `yaml:"composite_floor" mapstructure:"composite_floor"`
	GradeThresholds []float64 `yaml:"grade_thresholds" mapstructure:"grade_thresholds"`
	TimeoutSecs     int       `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// RoutingConfig holds the directions provider settings.
type RoutingConfig struct {
	Key       string  `yaml:"key" mapstructure:"key"`
	BaseURL   string  `yaml:"base_url" mapstructure:"base_url"`
	Mode      string  `yaml:"mode" mapstructure:"mode"`
	MaxRoutes int     `yaml:"max_routes" mapstructure:"max_routes"`
	RPS       float64 `yaml:"rps" mapstructure:"rps"`
	Retries   int     `yaml:"retries" mapstructure:"retries"`
}

// AnthropicConfig holds Anthropic API settings for route explanations.
type AnthropicConfig struct {
	Key         string  `yaml:"key" mapstructure:"key"`
	Model       string  `yaml:"model" mapstructure:"model"`
	MaxTokens   int64   `yaml:"max_tokens" mapstructure:"max_tokens"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RPS         float64 `yaml:"rps" mapstructure:"rps"`
}

// StoreConfig configures the run history database.
type StoreConfig struct {
	DSN string `yaml:"dsn" mapstructure:"dsn"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("SAFEROUTE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("store.dsn", "saferoute.db")

	v.SetDefault("data.boundary_source", "geojson")
	v.SetDefault("data.boundary_path", "districts.geojson")
	v.SetDefault("data.name_properties", []string{"NAME_2", "district", "name"})
	v.SetDefault("data.boundary_table", "districts")
	v.SetDefault("data.crime_path", "crimes.csv")
	v.SetDefault("data.district_column", "DISTRICT/UNITS")

	v.SetDefault("model.seed", 0)
	v.SetDefault("model.grid_resolution", 100)
	v.SetDefault("model.urban_keywords", []string{"city", "bengaluru", "mysuru", "hubballi"})
	v.SetDefault("model.bonus_threshold", 500)
	v.SetDefault("model.bonus_points", 30)
	v.SetDefault("model.bonus_clusters", 2)
	v.SetDefault("model.cluster_slack", 2.0)
	v.SetDefault("model.bandwidth_scale", 0.1)
	v.SetDefault("model.bandwidth_min", 0.005)
	v.SetDefault("model.bandwidth_max", 0.02)
	v.SetDefault("model.hotspot_eps", 0.5)
	v.SetDefault("model.hotspot_min_samples", 3.0)
	v.SetDefault("model.hotspot_min_points", 5)
	v.SetDefault("model.proximity_factor", 0.1)
	v.SetDefault("model.epsilon", 1e-4)
	v.SetDefault("model.jitter_min", 0.8)
	v.SetDefault("model.jitter_max", 1.2)
	v.SetDefault("model.fallback_scale", 0.5)
	v.SetDefault("model.fallback_offset", 0.3)
	v.SetDefault("model.violence_factor", 0.5)

	v.SetDefault("weights", map[string]any{
		"murder":                    10.0,
		"attempt_to_murder":         8.5,
		"rape":                      9.0,
		"dacoity":                   7.5,
		"robbery":                   6.5,
		"burglary_day":              4.0,
		"burglary_night":            5.5,
		"theft":                     3.0,
		"molestation":               7.0,
		"fatal_motor_accidents":     4.5,
		"non_fatal_motor_accidents": 2.0,
		"cyber_crime":               1.5,
		"pocso":                     8.0,
		"pocso_rape":                9.5,
	})
	v.SetDefault("temporal.time", map[string]any{
		"early_morning": map[string]any{"burglary_night": 2.0, "theft": 1.8, "robbery": 1.6},
		"morning":       map[string]any{"theft": 0.7, "burglary_day": 1.2, "fatal_motor_accidents": 1.3},
		"midday":        map[string]any{"theft": 0.8, "burglary_day": 1.5, "cyber_crime": 1.2},
		"afternoon":     map[string]any{"theft": 1.1, "robbery": 0.9, "fatal_motor_accidents": 1.4},
		"evening":       map[string]any{"theft": 1.3, "robbery": 1.4, "molestation": 1.6},
		"night":         map[string]any{"burglary_night": 2.2, "robbery": 1.8, "molestation": 2.0, "murder": 1.5},
		"late_night":    map[string]any{"burglary_night": 2.5, "murder": 1.8, "robbery": 2.0},
	})
	v.SetDefault("temporal.day", map[string]any{
		"weekday": map[string]any{"burglary_day": 1.2, "cyber_crime": 1.1},
		"weekend": map[string]any{"robbery": 1.3, "theft": 1.2, "molestation": 1.4},
	})

	v.SetDefault("scoring.samples_per_km", 1.0)
	v.SetDefault("scoring.min_samples", 3)
	v.SetDefault("scoring.max_samples", 250)
	v.SetDefault("scoring.concurrency", 4)
	v.SetDefault("scoring.composite_floor", 5.0)
	v.SetDefault("scoring.grade_thresholds", []float64{10, 20, 35, 50, 70, 90, 120})
	v.SetDefault("scoring.timeout_secs", 60)

	v.SetDefault("routing.key", "")
	v.SetDefault("anthropic.key", "")
	v.SetDefault("data.database_url", "")
	v.SetDefault("data.crime_sheet", "")

	v.SetDefault("routing.base_url", "https://maps.googleapis.com/maps/api")
	v.SetDefault("routing.mode", "driving")
	v.SetDefault("routing.max_routes", 5)
	v.SetDefault("routing.rps", 5.0)
	v.SetDefault("routing.retries", 3)

	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 300)
	v.SetDefault("anthropic.timeout_secs", 20)
	v.SetDefault("anthropic.rps", 2.0)
}

// Validate checks that the configuration is internally consistent.
// All violations are reported together.
func (c *Config) Validate() error {
	var errs []string

	for name, w := range c.Weights {
		if w <= 0 {
			errs = append(errs, fmt.Sprintf("weights.%s must be > 0", name))
		}
	}
	for _, table := range []struct {
		name string
		rows map[string]map[string]float64
	}{{"temporal.time", c.Temporal.Time}, {"temporal.day", c.Temporal.Day}} {
		for period, row := range table.rows {
			for crime, m := range row {
				if m <= 0 {
					errs = append(errs, fmt.Sprintf("%s.%s.%s must be > 0", table.name, period, crime))
				}
			}
		}
	}

	m := c.Model
	if m.GridResolution < 2 {
		errs = append(errs, "model.grid_resolution must be >= 2")
	}
	if m.BandwidthMin <= 0 || m.BandwidthMax < m.BandwidthMin {
		errs = append(errs, "model.bandwidth_min must be > 0 and <= bandwidth_max")
	}
	if m.BandwidthScale <= 0 {
		errs = append(errs, "model.bandwidth_scale must be > 0")
	}
	if m.HotspotEps <= 0 || m.HotspotMinSamples <= 0 {
		errs = append(errs, "model.hotspot_eps and hotspot_min_samples must be > 0")
	}
	if m.JitterMin <= 0 || m.JitterMax <= m.JitterMin {
		errs = append(errs, "model.jitter_min must be > 0 and < jitter_max")
	}
	if m.Epsilon < 0 {
		errs = append(errs, "model.epsilon must be >= 0")
	}

	s := c.Scoring
	if s.SamplesPerKM <= 0 {
		errs = append(errs, "scoring.samples_per_km must be > 0")
	}
	if s.MinSamples < 2 {
		errs = append(errs, "scoring.min_samples must be >= 2")
	}
	if s.MaxSamples > 0 && s.MaxSamples < s.MinSamples {
		errs = append(errs, "scoring.max_samples must be >= min_samples")
	}
	for i := 1; i < len(s.GradeThresholds); i++ {
		if s.GradeThresholds[i] <= s.GradeThresholds[i-1] {
			errs = append(errs, "scoring.grade_thresholds must be strictly ascending")
			break
		}
	}

	if len(errs) > 0 {
		return eris.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
