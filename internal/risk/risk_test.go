package risk

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/sells-group/saferoute/internal/boundary"
	"github.com/sells-group/saferoute/internal/config"
	"github.com/sells-group/saferoute/internal/crime"
	"github.com/sells-group/saferoute/internal/density"
	"github.com/sells-group/saferoute/internal/hotspot"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

var wednesdayNoon = time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)

func rect(t *testing.T, name string, minLng, minLat, maxLng, maxLat float64) *boundary.Region {
	t.Helper()
	r, err := boundary.NewRectRegion(name, minLng, minLat, maxLng, maxLat)
	require.NoError(t, err)
	return r
}

func TestEvaluate_OutsideIsZero(t *testing.T) {
	r := rect(t, "Mysuru", 76, 12, 77, 13)
	rec := &crime.Record{Region: "Mysuru", Counts: map[crime.Type]float64{crime.Theft: 10}}
	snap := Assemble(boundary.NewStore([]*boundary.Region{r}), []*District{{Region: r, Record: rec}}, DefaultOptions())

	assert.Equal(t, 0.0, snap.Evaluate(geom.Coord{10, 10}, wednesdayNoon))
	b := snap.EvaluateDetail(geom.Coord{10, 10}, wednesdayNoon)
	assert.Empty(t, b.Region)
	assert.False(t, b.Fallback)
}

func TestEvaluate_NoRecordIsZero(t *testing.T) {
	r := rect(t, "Kodagu", 75, 12, 76, 13)
	snap := Assemble(boundary.NewStore([]*boundary.Region{r}), []*District{{Region: r}}, DefaultOptions())

	assert.Equal(t, 0.0, snap.Evaluate(geom.Coord{75.5, 12.5}, wednesdayNoon))
	assert.Equal(t, "Kodagu", snap.EvaluateDetail(geom.Coord{75.5, 12.5}, wednesdayNoon).Region)
}

func TestEvaluate_FallbackFloor(t *testing.T) {
	r := rect(t, "Udupi", 74, 13, 75, 14)
	rec := &crime.Record{Counts: map[crime.Type]float64{crime.Murder: 1, crime.Theft: 3}}
	d := &District{Region: r, Record: rec, Stats: crime.ComputeStats(rec, r.Area)}
	snap := Assemble(boundary.NewStore([]*boundary.Region{r}), []*District{d}, DefaultOptions())

	c := geom.Coord{74.5, 13.5}
	j := Jitter(c, 0.8, 1.2)
	want := (j*0.5 + 0.3) * (1 + 0.5*0.25) * j

	b := snap.EvaluateDetail(c, wednesdayNoon)
	assert.True(t, b.Fallback)
	assert.InDelta(t, want, b.Total, 1e-12)
	assert.InDelta(t, 1.125, b.DistrictFactor, 1e-12)
	assert.GreaterOrEqual(t, b.Total, 0.8*(0.8*0.5+0.3))
	assert.LessOrEqual(t, b.Total, 1.2*(1.2*0.5+0.3)*1.5)
}

func TestEvaluate_DensityAndHotspot(t *testing.T) {
	r := rect(t, "Mandya", 76, 12, 77, 13)
	rec := &crime.Record{Counts: map[crime.Type]float64{crime.Murder: 10}}
	field, err := density.Fit([]geom.Coord{{76.5, 12.5}}, density.DefaultBandwidth())
	require.NoError(t, err)

	d := &District{
		Region:   r,
		Record:   rec,
		Stats:    crime.ComputeStats(rec, r.Area),
		Fields:   map[crime.Type]*density.Field{crime.Murder: field},
		Hotspots: []hotspot.Hotspot{{Center: geom.Coord{76.5, 12.5}, Radius: 0.01, Intensity: 100, Count: 10}},
	}
	snap := Assemble(boundary.NewStore([]*boundary.Region{r}), []*District{d}, DefaultOptions())

	c := geom.Coord{76.5, 12.5}
	night := time.Date(2026, 10, 14, 23, 0, 0, 0, time.UTC)
	b := snap.EvaluateDetail(c, night)

	peak := field.Density(c)
	assert.InDelta(t, peak*10*1.5, b.Density[crime.Murder], 1e-6)
	assert.InDelta(t, 100*0.1, b.Hotspot, 1e-12)
	assert.False(t, b.Fallback)
	assert.InDelta(t, (peak*15+10)*1.5*b.Jitter, b.Total, 1e-6)

	noon := snap.EvaluateDetail(c, wednesdayNoon)
	assert.Greater(t, b.Total, noon.Total)

	outside := snap.EvaluateDetail(geom.Coord{76.52, 12.5}, wednesdayNoon)
	assert.Zero(t, outside.Hotspot)
}

func TestJitter(t *testing.T) {
	for _, c := range []geom.Coord{{77.5946, 12.9716}, {0, 0}, {-122.4, 37.7}, {180, -90}} {
		j := Jitter(c, 0.8, 1.2)
		assert.GreaterOrEqual(t, j, 0.8)
		assert.Less(t, j, 1.2)
		assert.Equal(t, j, Jitter(c, 0.8, 1.2))
	}

	// Same four-decimal rounding, same value.
	assert.Equal(t, Jitter(geom.Coord{77.59461, 12.97161}, 0.8, 1.2), Jitter(geom.Coord{77.59459, 12.97159}, 0.8, 1.2))
	assert.Equal(t, Jitter(geom.Coord{-0.00001, 0}, 0.8, 1.2), Jitter(geom.Coord{0, 0}, 0.8, 1.2))
	assert.NotEqual(t, Jitter(geom.Coord{77.5946, 12.9716}, 0.8, 1.2), Jitter(geom.Coord{77.5947, 12.9716}, 0.8, 1.2))
}

func TestJitter_Concurrent(t *testing.T) {
	c := geom.Coord{77.6, 12.9}
	want := Jitter(c, 0.8, 1.2)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Equal(t, want, Jitter(c, 0.8, 1.2))
		}()
	}
	wg.Wait()
}

func buildFixture(t *testing.T, seed uint64) *Snapshot {
	t.Helper()
	regions := []*boundary.Region{
		rect(t, "Bengaluru Urban", 77.4, 12.8, 77.8, 13.2),
		rect(t, "Kodagu", 75.5, 12.0, 76.0, 12.5),
	}
	store := boundary.NewStore(regions)
	ledger := crime.NewLedger()
	ledger.Add("Bengaluru Urban", "Bengaluru City", map[crime.Type]float64{
		crime.Theft: 300, crime.Robbery: 120, crime.Murder: 40, crime.BurglaryNight: 60,
	})

	opts := DefaultOptions()
	opts.Seed = seed
	opts.GridResolution = 40
	snap, err := Build(context.Background(), store, ledger, opts)
	require.NoError(t, err)
	return snap
}

func TestBuild(t *testing.T) {
	snap := buildFixture(t, 7)

	ds := snap.Districts()
	require.Len(t, ds, 2)
	blr := ds[0]
	assert.Equal(t, "Bengaluru Urban", blr.Region.Name)
	assert.True(t, blr.Urban)
	assert.InDelta(t, 520, blr.Stats.Total, 1e-9)
	assert.InDelta(t, 160.0/520.0, blr.Stats.ViolenceRatio, 1e-9)
	assert.NotEmpty(t, blr.Fields[crime.Theft])
	assert.NotNil(t, blr.Fields[crime.POCSO], "bonus points give every type a field")
	assert.NotEmpty(t, blr.Hotspots)
	for i := 1; i < len(blr.Hotspots); i++ {
		assert.GreaterOrEqual(t, blr.Hotspots[i-1].Intensity, blr.Hotspots[i].Intensity)
	}

	kodagu, ok := snap.District("Kodagu")
	require.True(t, ok)
	assert.Nil(t, kodagu.Record)
	assert.Nil(t, kodagu.Hotspots)

	assert.Zero(t, snap.Evaluate(geom.Coord{75.7, 12.2}, wednesdayNoon))
	v := snap.Evaluate(blr.Hotspots[0].Center, wednesdayNoon)
	assert.Greater(t, v, 0.0)
	assert.False(t, math.IsNaN(v))
}

func TestBuild_Deterministic(t *testing.T) {
	a := buildFixture(t, 11)
	b := buildFixture(t, 11)

	da, _ := a.District("Bengaluru Urban")
	db, _ := b.District("Bengaluru Urban")
	assert.Equal(t, da.Incidents, db.Incidents)
	assert.Equal(t, da.Hotspots, db.Hotspots)

	c := geom.Coord{77.6, 13.0}
	assert.Equal(t, a.Evaluate(c, wednesdayNoon), b.Evaluate(c, wednesdayNoon))
}

func TestBuild_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	store := boundary.NewStore([]*boundary.Region{rect(t, "A", 0, 0, 1, 1)})
	_, err := Build(ctx, store, crime.NewLedger(), DefaultOptions())
	assert.Error(t, err)
}

func TestHolder(t *testing.T) {
	first := buildFixture(t, 3)
	second := buildFixture(t, 4)

	fail := false
	h := NewHolder(first, func(context.Context) (*Snapshot, error) {
		if fail {
			return nil, errors.New("boundary file vanished")
		}
		return second, nil
	})
	assert.Same(t, first, h.Current())

	got, err := h.Reload(context.Background())
	require.NoError(t, err)
	assert.Same(t, second, got)
	assert.Same(t, second, h.Current())

	fail = true
	_, err = h.Reload(context.Background())
	assert.Error(t, err)
	assert.Same(t, second, h.Current())

	empty := NewHolder(nil, nil)
	assert.Nil(t, empty.Current())
	_, err = empty.Reload(context.Background())
	assert.Error(t, err)
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := &config.Config{
		Weights: config.WeightsConfig{"murder": 12},
		Model: config.ModelConfig{
			Seed: 9, GridResolution: 50, BandwidthScale: 0.1, BandwidthMin: 0.005, BandwidthMax: 0.02,
			HotspotEps: 0.5, HotspotMinSamples: 3, HotspotMinPoints: 5,
			Epsilon: 1e-4, JitterMin: 0.9, JitterMax: 1.1, FallbackScale: 0.5, FallbackOffset: 0.3,
			ViolenceFactor: 0.5, ProximityFactor: 0.1, BonusThreshold: 500, BonusPoints: 30, BonusClusters: 2,
		},
		Scoring: config.ScoringConfig{Concurrency: 2},
	}
	opts, err := OptionsFromConfig(cfg)
	require.NoError(t, err)
	assert.InDelta(t, 12.0, opts.Weights.Of(crime.Murder), 1e-12)
	assert.InDelta(t, 3.0, opts.Weights.Of(crime.Theft), 1e-12)
	assert.Equal(t, uint64(9), opts.Seed)
	assert.InDelta(t, 0.9, opts.Params.JitterMin, 1e-12)
	assert.InDelta(t, 500.0, opts.Incident.BonusThreshold, 1e-12)
	assert.InDelta(t, 1.5, opts.Temporal.TimeMultiplier("night", crime.Murder), 1e-12)

	cfg.Weights["theft"] = -1
	_, err = OptionsFromConfig(cfg)
	assert.Error(t, err)
}
