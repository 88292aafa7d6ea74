package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/saferoute/internal/route"
	"github.com/sells-group/saferoute/internal/temporal"
)

var generated = time.Date(2026, 10, 17, 23, 5, 9, 0, time.UTC)

func ranked(grade route.Grade, risk, maxSeg float64, segRisks ...float64) route.Ranked {
	segs := make([]route.SegmentScore, len(segRisks))
	for i, r := range segRisks {
		segs[i] = route.SegmentScore{Risk: r, Meters: float64(100 * (i + 1))}
	}
	return route.Ranked{
		Candidate:   route.Candidate{DistanceMeters: 15_250, DurationSeconds: 1_860},
		Score:       route.Score{Grade: grade, NormalizedRisk: risk, MaxSegmentRisk: maxSeg, RiskVariance: 12.34, Segments: segs},
		Period:      temporal.LateNight,
		Weekend:     true,
		Explanation: "Stay on the main road.",
	}
}

func TestText_Empty(t *testing.T) {
	assert.Equal(t, "No routes to analyze.", Text(nil, generated))
}

func TestText(t *testing.T) {
	routes := []route.Ranked{
		ranked(route.GradeB, 22.46, 91, 10, 60, 95),
		ranked(route.GradeD, 64, 40, 20),
	}
	text := Text(routes, generated)
	lines := strings.Split(text, "\n")

	assert.Equal(t, strings.Repeat("=", 60), lines[0])
	assert.Equal(t, "COMPREHENSIVE ROUTE SAFETY ANALYSIS REPORT", lines[1])
	assert.Equal(t, "Generated on: 2026-10-17 23:05:09", lines[3])
	assert.Equal(t, "Travel Time: Late Night", lines[4])
	assert.Equal(t, "Weekend Travel: Yes", lines[5])
	assert.Equal(t, strings.Repeat("=", 60), lines[len(lines)-1])

	assert.Contains(t, text, "Route #1: Safety Grade B, Risk Score 22.5, 31 min, 15.2 km")
	assert.Contains(t, text, "Route #2: Safety Grade D, Risk Score 64.0, 31 min, 15.2 km")
	assert.Contains(t, text, "ROUTE #2 DETAILED ANALYSIS")
	assert.Contains(t, text, "Risk Variance: 12.3")
	assert.Contains(t, text, "AI Safety Assessment:\nStay on the main road.")
	assert.Contains(t, text, "High-Risk Segments (Risk > 50):\n  1. Risk: 95.0, Distance: 300m\n  2. Risk: 60.0, Distance: 200m")
	assert.Contains(t, text, "No high-risk segments identified.")

	assert.Contains(t, text, "⚠ The recommended route has acceptable safety. Consider:")
	assert.Contains(t, text, "  - Exercise extra caution in high-risk segments")
	assert.Contains(t, text, "  - Night travel increases risk - consider delaying if possible")
	assert.Contains(t, text, "  - Weekend travel may have different risk patterns")
}

func TestHighRisk_TopFive(t *testing.T) {
	segs := make([]route.SegmentScore, 0, 8)
	for _, r := range []float64{51, 99, 10, 70, 55, 80, 65, 50} {
		segs = append(segs, route.SegmentScore{Risk: r})
	}
	hot := HighRisk(segs)
	require.Len(t, hot, 5)
	assert.Equal(t, 99.0, hot[0].Risk)
	assert.Equal(t, 55.0, hot[4].Risk)
}

func TestRecommendations(t *testing.T) {
	tests := []struct {
		name  string
		best  route.Ranked
		first string
		n     int
	}{
		{
			name:  "excellent daytime weekday",
			best:  route.Ranked{Score: route.Score{Grade: route.GradeA}, Period: temporal.Midday},
			first: "✓ The recommended route has excellent safety characteristics.",
			n:     1,
		},
		{
			name:  "elevated night weekend",
			best:  route.Ranked{Score: route.Score{Grade: route.GradeC, MaxSegmentRisk: 81}, Period: temporal.Night, Weekend: true},
			first: "⚠ All available routes have elevated risk. Strong recommendations:",
			n:     6,
		},
		{
			name:  "early morning is not night",
			best:  route.Ranked{Score: route.Score{Grade: route.GradeBPlus}, Period: temporal.EarlyMorning},
			first: "⚠ The recommended route has acceptable safety. Consider:",
			n:     1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Recommendations(tt.best)
			require.Len(t, got, tt.n)
			assert.Equal(t, tt.first, got[0])
		})
	}
}

func TestWrite(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, []route.Ranked{ranked(route.GradeAPlus, 1, 1)}, generated))
	assert.True(t, strings.HasSuffix(buf.String(), strings.Repeat("=", 60)+"\n"))
}
