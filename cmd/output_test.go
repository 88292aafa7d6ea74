package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/saferoute/internal/recommend"
	"github.com/sells-group/saferoute/internal/route"
)

func TestParseTravelTime(t *testing.T) {
	now := time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		in      string
		want    time.Time
		wantErr bool
	}{
		{"empty is now", "", now, false},
		{"rfc3339", "2026-10-14T23:15:00Z", time.Date(2026, 10, 14, 23, 15, 0, 0, time.UTC), false},
		{"local minutes", "2026-10-14 23:15", time.Date(2026, 10, 14, 23, 15, 0, 0, time.Local), false},
		{"local T minutes", "2026-10-14T06:30", time.Date(2026, 10, 14, 6, 30, 0, 0, time.Local), false},
		{"date only", "2026-10-17", time.Date(2026, 10, 17, 0, 0, 0, 0, time.Local), false},
		{"garbage", "tonight", time.Time{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseTravelTime(tt.in, now)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s want %s", got, tt.want)
		})
	}
}

func TestWriteOutput(t *testing.T) {
	cmp := []recommend.Comparison{{Label: "night", SafetyGrade: route.GradeC, RiskScore: 42.5}}

	var js bytes.Buffer
	require.NoError(t, writeOutput(&js, "json", cmp))
	assert.Contains(t, js.String(), `"safety_grade": "C"`)

	var ym bytes.Buffer
	require.NoError(t, writeOutput(&ym, "yaml", cmp))
	var decoded []map[string]any
	require.NoError(t, yaml.Unmarshal(ym.Bytes(), &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, "night", decoded[0]["label"])
	assert.Equal(t, "C", decoded[0]["safety_grade"])
	assert.InDelta(t, 42.5, decoded[0]["risk_score"], 1e-9)

	assert.Error(t, writeOutput(&bytes.Buffer{}, "xml", cmp))
}

func TestReadCandidates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "routes.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"id":7,"polyline":"_p~iF~ps|U_ulLnnqC","duration_seconds":60}]`), 0o644))

	cands, err := readCandidates(path, []string{"_p~iF~ps|U"})
	require.NoError(t, err)
	require.Len(t, cands, 2)
	assert.Equal(t, 7, cands[0].ID)
	assert.InDelta(t, 60, cands[0].DurationSeconds, 1e-9)
	assert.Equal(t, 1, cands[1].ID)
	assert.Equal(t, "_p~iF~ps|U", cands[1].Polyline)

	_, err = readCandidates("", nil)
	assert.Error(t, err)

	_, err = readCandidates(filepath.Join(t.TempDir(), "missing.json"), nil)
	assert.Error(t, err)
}

func TestRouteHotspots(t *testing.T) {
	snap := testSnapshot(t)
	inside := route.Ranked{Coords: []geom.Coord{{76.4, 12.5}, {76.6, 12.5}}}
	outside := route.Ranked{Coords: []geom.Coord{{70, 10}, {70.1, 10}}}

	assert.Len(t, routeHotspots(snap, []route.Ranked{inside, inside}), 1)
	assert.Empty(t, routeHotspots(snap, []route.Ranked{outside}))
	assert.Nil(t, routeHotspots(nil, []route.Ranked{inside}))
}

func TestWriteGeoJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "routes.geojson")
	ranked := []route.Ranked{{
		Rank:   1,
		Coords: []geom.Coord{{76.4, 12.5}, {76.6, 12.5}},
		Score:  route.Score{Segments: []route.SegmentScore{{Start: geom.Coord{76.4, 12.5}, End: geom.Coord{76.6, 12.5}, Risk: 12}}},
	}}
	require.NoError(t, writeGeoJSON(path, testSnapshot(t), ranked))

	body, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"FeatureCollection"`)
	assert.Contains(t, string(body), `"hotspot-0"`)
}

func TestFormatComparisons(t *testing.T) {
	at := time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)
	var buf bytes.Buffer
	formatComparisons(&buf, []recommend.Comparison{
		{Label: "morning", At: at, SafetyGrade: route.GradeA, RiskScore: 4.24, Duration: 31, Recommendation: "Safe enough."},
		{Label: "night", At: at.Add(14 * time.Hour), Error: "no routes found"},
	})

	out := buf.String()
	assert.Contains(t, out, "PERIOD")
	assert.Contains(t, out, "09:00")
	assert.Contains(t, out, "4.2")
	assert.Contains(t, out, "31 min")
	assert.Contains(t, out, "Safe enough.")
	assert.Contains(t, out, "23:00")
	assert.Contains(t, out, "no routes found")
}

func TestFormatDistricts(t *testing.T) {
	views := districtViews(testSnapshot(t), "")
	var buf bytes.Buffer
	formatDistricts(&buf, views)

	out := buf.String()
	assert.Contains(t, out, "DISTRICT")
	assert.Contains(t, out, "Mandya")
	assert.Contains(t, out, "#1")
	assert.Contains(t, out, "12.5000,76.5000")
	assert.Contains(t, out, "crimes=10")
}

func TestDistrictViews_Filter(t *testing.T) {
	snap := testSnapshot(t)
	assert.Len(t, districtViews(snap, "MANDYA"), 1)
	assert.Len(t, districtViews(snap, "and"), 1)
	assert.Empty(t, districtViews(snap, "Hassan"))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcd...", truncate("abcdefghij", 7))
	assert.Equal(t, "ab", truncate("abcdef", 2))
	assert.Equal(t, "ಮಂಡ್...", truncate("ಮಂಡ್ಯ ಜಿಲ್ಲೆ", 7))
}
