//go:build !integration

package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/saferoute/internal/store"
)

func TestFormatRunsList(t *testing.T) {
	now := time.Date(2026, 10, 14, 10, 30, 0, 0, time.UTC)
	runs := []store.Run{
		{
			ID:          "abc12345-6789-0000-0000-000000000000",
			Kind:        store.KindRecommend,
			Origin:      "Srirangapatna",
			Destination: "Maddur",
			TravelTime:  now.Add(12 * time.Hour),
			RouteCount:  3,
			BestGrade:   "B+",
			CreatedAt:   now,
		},
		{
			ID:         "def12345-6789-0000-0000-000000000000",
			Kind:       store.KindScore,
			TravelTime: now,
			CreatedAt:  now.Add(-1 * time.Hour),
		},
	}

	var buf bytes.Buffer
	formatRunsList(&buf, runs)

	output := buf.String()
	assert.Contains(t, output, "ID")
	assert.Contains(t, output, "KIND")
	assert.Contains(t, output, "GRADE")
	assert.Contains(t, output, "abc12345")
	assert.NotContains(t, output, "abc12345-6789")
	assert.Contains(t, output, "Srirangapatna → Maddur")
	assert.Contains(t, output, "2026-10-14 22:30")
	assert.Contains(t, output, "B+")
	assert.Contains(t, output, "score")
}

func TestFormatRunsList_Degraded(t *testing.T) {
	runs := []store.Run{{
		ID:          "abc12345",
		Kind:        store.KindRecommend,
		Origin:      "a",
		Destination: "b",
		Degraded:    true,
	}}

	var buf bytes.Buffer
	formatRunsList(&buf, runs)
	assert.Contains(t, buf.String(), "- (degraded)")
}

func TestRunsStats(t *testing.T) {
	now := time.Date(2026, 10, 14, 10, 0, 0, 0, time.UTC)

	runs := []store.Run{
		{ID: "1", Kind: store.KindRecommend, RouteCount: 3, BestGrade: "A", CreatedAt: now},
		{ID: "2", Kind: store.KindRecommend, RouteCount: 1, BestGrade: "A", CreatedAt: now.Add(-time.Hour)},
		{ID: "3", Kind: store.KindScore, RouteCount: 2, BestGrade: "C", CreatedAt: now.Add(-2 * time.Hour)},
		{ID: "4", Kind: store.KindRecommend, Degraded: true, CreatedAt: now.Add(-3 * time.Hour)},
		{ID: "5", Kind: store.KindRecommend, RouteCount: 9, BestGrade: "F", CreatedAt: now.Add(-48 * time.Hour)},
	}

	stats := computeRunStats(runs, now.Add(-24*time.Hour))
	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, 3, stats.ByKind[store.KindRecommend])
	assert.Equal(t, 1, stats.ByKind[store.KindScore])
	assert.Equal(t, 2, stats.ByGrade["A"])
	assert.Equal(t, 1, stats.ByGrade["C"])
	assert.Zero(t, stats.ByGrade["F"])
	assert.Equal(t, 1, stats.Degraded)
	assert.Equal(t, 1, stats.Empty)
	// (3 + 1 + 2 + 0) / 4
	assert.InDelta(t, 1.5, stats.AvgRoute, 1e-9)

	var buf bytes.Buffer
	formatRunStats(&buf, stats)

	output := buf.String()
	assert.Contains(t, output, "Total runs:")
	assert.Contains(t, output, "recommend:")
	assert.Contains(t, output, "Degraded:")
	assert.Contains(t, output, "Best grade:")
	assert.Contains(t, output, "1.5")
}

func TestRunsStats_Empty(t *testing.T) {
	stats := computeRunStats(nil, time.Time{})
	assert.Zero(t, stats.Total)
	assert.Zero(t, stats.AvgRoute)

	var buf bytes.Buffer
	formatRunStats(&buf, stats)
	assert.NotContains(t, buf.String(), "Avg routes:")
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "abc12345", truncateID("abc12345-6789-0000-0000-000000000000"))
	assert.Equal(t, "short", truncateID("short"))
}
