// Package temporal maps a travel time to time-of-day and day-of-week risk
// multipliers per crime type.
package temporal

import (
	"sort"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/saferoute/internal/crime"
)

// Period is a named slice of the day.
type Period string

// Periods of the day. Night wraps midnight: 22:00 to 02:00.
const (
	EarlyMorning Period = "early_morning" // 04–06
	Morning      Period = "morning"       // 06–10
	Midday       Period = "midday"        // 10–14
	Afternoon    Period = "afternoon"     // 14–18
	Evening      Period = "evening"       // 18–22
	Night        Period = "night"         // 22–02
	LateNight    Period = "late_night"    // 02–04
)

// Periods lists every period in day order starting at early morning.
var Periods = []Period{EarlyMorning, Morning, Midday, Afternoon, Evening, Night, LateNight}

// PeriodOf classifies an hour of the day. Hours outside 0–23 are reduced
// modulo 24.
func PeriodOf(hour int) Period {
	hour = ((hour % 24) + 24) % 24
	switch {
	case hour >= 4 && hour < 6:
		return EarlyMorning
	case hour >= 6 && hour < 10:
		return Morning
	case hour >= 10 && hour < 14:
		return Midday
	case hour >= 14 && hour < 18:
		return Afternoon
	case hour >= 18 && hour < 22:
		return Evening
	case hour >= 22 || hour < 2:
		return Night
	default:
		return LateNight
	}
}

// Label renders a period for people: "late night".
func (p Period) Label() string {
	b := []byte(p)
	for i := range b {
		if b[i] == '_' {
			b[i] = ' '
		}
	}
	return string(b)
}

// IsDark reports whether travel in p deserves a safety warning.
func (p Period) IsDark() bool {
	return p == Night || p == LateNight || p == EarlyMorning
}

// DayType is weekday or weekend.
type DayType string

// Day types.
const (
	Weekday DayType = "weekday"
	Weekend DayType = "weekend"
)

// DayTypeOf classifies a weekday. Saturday and Sunday are weekend.
func DayTypeOf(d time.Weekday) DayType {
	if d == time.Saturday || d == time.Sunday {
		return Weekend
	}
	return Weekday
}

// Table holds the multiplier tables. Missing entries are 1.0.
type Table struct {
	Time map[Period]map[crime.Type]float64
	Day  map[DayType]map[crime.Type]float64
}

// DefaultTable returns the built-in multipliers.
func DefaultTable() *Table {
	return &Table{
		Time: map[Period]map[crime.Type]float64{
			EarlyMorning: {crime.BurglaryNight: 2.0, crime.Theft: 1.8, crime.Robbery: 1.6},
			Morning:      {crime.Theft: 0.7, crime.BurglaryDay: 1.2, crime.FatalMotorAccidents: 1.3},
			Midday:       {crime.Theft: 0.8, crime.BurglaryDay: 1.5, crime.CyberCrime: 1.2},
			Afternoon:    {crime.Theft: 1.1, crime.Robbery: 0.9, crime.FatalMotorAccidents: 1.4},
			Evening:      {crime.Theft: 1.3, crime.Robbery: 1.4, crime.Molestation: 1.6},
			Night:        {crime.BurglaryNight: 2.2, crime.Robbery: 1.8, crime.Molestation: 2.0, crime.Murder: 1.5},
			LateNight:    {crime.BurglaryNight: 2.5, crime.Murder: 1.8, crime.Robbery: 2.0},
		},
		Day: map[DayType]map[crime.Type]float64{
			Weekday: {crime.BurglaryDay: 1.2, crime.CyberCrime: 1.1},
			Weekend: {crime.Robbery: 1.3, crime.Theft: 1.2, crime.Molestation: 1.4},
		},
	}
}

// FromConfig builds a Table from config maps keyed by period/day name then
// crime type key. Empty maps yield the defaults.
func FromConfig(timeRows, dayRows map[string]map[string]float64) (*Table, error) {
	t := DefaultTable()
	if len(timeRows) > 0 {
		t.Time = make(map[Period]map[crime.Type]float64, len(timeRows))
		for name, row := range timeRows {
			p := Period(name)
			if !validPeriod(p) {
				return nil, eris.Errorf("temporal: unknown period %q", name)
			}
			parsed, err := parseRow(name, row)
			if err != nil {
				return nil, err
			}
			t.Time[p] = parsed
		}
	}
	if len(dayRows) > 0 {
		t.Day = make(map[DayType]map[crime.Type]float64, len(dayRows))
		for name, row := range dayRows {
			d := DayType(name)
			if d != Weekday && d != Weekend {
				return nil, eris.Errorf("temporal: unknown day type %q", name)
			}
			parsed, err := parseRow(name, row)
			if err != nil {
				return nil, err
			}
			t.Day[d] = parsed
		}
	}
	return t, nil
}

func validPeriod(p Period) bool {
	for _, q := range Periods {
		if p == q {
			return true
		}
	}
	return false
}

func parseRow(name string, row map[string]float64) (map[crime.Type]float64, error) {
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(map[crime.Type]float64, len(row))
	for _, k := range keys {
		ct, ok := crime.ParseType(k)
		if !ok {
			return nil, eris.Errorf("temporal: %s: unknown crime type %q", name, k)
		}
		if row[k] <= 0 {
			return nil, eris.Errorf("temporal: %s.%s must be positive", name, k)
		}
		out[ct] = row[k]
	}
	return out, nil
}

// TimeMultiplier returns the time-of-day multiplier for c in period p.
func (t *Table) TimeMultiplier(p Period, c crime.Type) float64 {
	if m, ok := t.Time[p][c]; ok {
		return m
	}
	return 1.0
}

// DayMultiplier returns the day-of-week multiplier for c on day type d.
func (t *Table) DayMultiplier(d DayType, c crime.Type) float64 {
	if m, ok := t.Day[d][c]; ok {
		return m
	}
	return 1.0
}

// Multiplier returns the combined multiplier for c at local time at.
func (t *Table) Multiplier(at time.Time, c crime.Type) float64 {
	return t.TimeMultiplier(PeriodOf(at.Hour()), c) * t.DayMultiplier(DayTypeOf(at.Weekday()), c)
}
