package temporal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/saferoute/internal/crime"
)

func TestPeriodOf(t *testing.T) {
	want := map[int]Period{
		0: Night, 1: Night, 2: LateNight, 3: LateNight,
		4: EarlyMorning, 5: EarlyMorning,
		6: Morning, 9: Morning,
		10: Midday, 13: Midday,
		14: Afternoon, 17: Afternoon,
		18: Evening, 21: Evening,
		22: Night, 23: Night,
		24: Night, -1: Night,
	}
	for hour, p := range want {
		assert.Equal(t, p, PeriodOf(hour), "hour %d", hour)
	}
}

func TestPeriodOf_CoversEveryHour(t *testing.T) {
	seen := map[Period]int{}
	for h := 0; h < 24; h++ {
		seen[PeriodOf(h)]++
	}
	assert.Len(t, seen, len(Periods))
	assert.Equal(t, 4, seen[Night])
	assert.Equal(t, 2, seen[LateNight])
}

func TestPeriodLabel(t *testing.T) {
	assert.Equal(t, "late night", LateNight.Label())
	assert.Equal(t, "midday", Midday.Label())
	assert.True(t, EarlyMorning.IsDark())
	assert.False(t, Evening.IsDark())
}

func TestDayTypeOf(t *testing.T) {
	assert.Equal(t, Weekend, DayTypeOf(time.Saturday))
	assert.Equal(t, Weekend, DayTypeOf(time.Sunday))
	for _, d := range []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday} {
		assert.Equal(t, Weekday, DayTypeOf(d))
	}
}

func TestMultiplier(t *testing.T) {
	tbl := DefaultTable()
	wedNight := time.Date(2026, 10, 14, 23, 0, 0, 0, time.UTC)
	satEvening := time.Date(2026, 10, 17, 19, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		at   time.Time
		c    crime.Type
		want float64
	}{
		{"night murder weekday", wedNight, crime.Murder, 1.5},
		{"night theft weekday", wedNight, crime.Theft, 1.0},
		{"weekend evening robbery", satEvening, crime.Robbery, 1.4 * 1.3},
		{"weekend evening molestation", satEvening, crime.Molestation, 1.6 * 1.4},
		{"unlisted type", satEvening, crime.POCSO, 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, tbl.Multiplier(tt.at, tt.c), 1e-12)
		})
	}
}

func TestMultiplierAlwaysPositive(t *testing.T) {
	tbl := DefaultTable()
	start := time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC)
	for h := 0; h < 24*7; h++ {
		at := start.Add(time.Duration(h) * time.Hour)
		for _, c := range crime.Catalog {
			assert.Greater(t, tbl.Multiplier(at, c), 0.0)
		}
	}
}

func TestFromConfig(t *testing.T) {
	tbl, err := FromConfig(
		map[string]map[string]float64{"night": {"murder": 3}},
		nil,
	)
	require.NoError(t, err)
	assert.InDelta(t, 3.0, tbl.TimeMultiplier(Night, crime.Murder), 1e-12)
	assert.InDelta(t, 1.0, tbl.TimeMultiplier(Evening, crime.Robbery), 1e-12, "replaced table has no evening row")
	assert.InDelta(t, 1.3, tbl.DayMultiplier(Weekend, crime.Robbery), 1e-12, "day table keeps defaults")

	_, err = FromConfig(map[string]map[string]float64{"dusk": {"murder": 1}}, nil)
	assert.Error(t, err)
	_, err = FromConfig(map[string]map[string]float64{"night": {"arson": 1}}, nil)
	assert.Error(t, err)
	_, err = FromConfig(nil, map[string]map[string]float64{"weekend": {"theft": 0}})
	assert.Error(t, err)
	_, err = FromConfig(nil, map[string]map[string]float64{"holiday": {"theft": 1}})
	assert.Error(t, err)
}
