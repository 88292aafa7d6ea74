package store

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/saferoute/internal/recommend"
	"github.com/sells-group/saferoute/internal/route"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

var travel = time.Date(2026, 10, 14, 23, 0, 0, 0, time.UTC)

func TestSQLite_SaveAndGet(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	saved, err := st.SaveRun(ctx, Run{
		Kind:        KindRecommend,
		Origin:      "Mysuru",
		Destination: "Mandya",
		TravelTime:  travel,
		RouteCount:  3,
		BestGrade:   "B+",
		Degraded:    true,
		Result:      json.RawMessage(`{"routes":[]}`),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, saved.ID)
	assert.False(t, saved.CreatedAt.IsZero())

	got, err := st.GetRun(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, KindRecommend, got.Kind)
	assert.Equal(t, "Mysuru", got.Origin)
	assert.Equal(t, "Mandya", got.Destination)
	assert.True(t, travel.Equal(got.TravelTime))
	assert.Equal(t, 3, got.RouteCount)
	assert.Equal(t, "B+", got.BestGrade)
	assert.True(t, got.Degraded)
	assert.JSONEq(t, `{"routes":[]}`, string(got.Result))
}

func TestSQLite_GetRun_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)
	_, err := st.GetRun(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLite_SaveRun_NoResult(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	saved, err := st.SaveRun(ctx, Run{Kind: KindScore, TravelTime: travel})
	require.NoError(t, err)

	got, err := st.GetRun(ctx, saved.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Result)
	assert.False(t, got.Degraded)
}

func TestSQLite_ListRuns(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	for _, r := range []Run{
		{Kind: KindRecommend, Destination: "Mandya", TravelTime: travel},
		{Kind: KindScore, Destination: "Mandya", TravelTime: travel},
		{Kind: KindRecommend, Destination: "Hassan", TravelTime: travel},
	} {
		_, err := st.SaveRun(ctx, r)
		require.NoError(t, err)
	}

	tests := []struct {
		name   string
		filter RunFilter
		want   int
	}{
		{"all", RunFilter{}, 3},
		{"by kind", RunFilter{Kind: KindRecommend}, 2},
		{"by destination", RunFilter{Destination: "Mandya"}, 2},
		{"both", RunFilter{Kind: KindScore, Destination: "Mandya"}, 1},
		{"limit", RunFilter{Limit: 1}, 1},
		{"offset", RunFilter{Limit: 10, Offset: 2}, 1},
		{"none", RunFilter{Kind: KindCompare}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runs, err := st.ListRuns(ctx, tt.filter)
			require.NoError(t, err)
			assert.Len(t, runs, tt.want)
		})
	}

	runs, err := st.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	assert.Equal(t, "Hassan", runs[0].Destination)
}

func TestSQLite_DeleteRunsBefore(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.SaveRun(ctx, Run{Kind: KindScore, TravelTime: travel})
	require.NoError(t, err)

	n, err := st.DeleteRunsBefore(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = st.DeleteRunsBefore(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRunFromResult(t *testing.T) {
	res := &recommend.Result{
		At: travel,
		Routes: []route.Ranked{
			{Rank: 1, Score: route.Score{Grade: route.GradeBPlus}},
			{Rank: 2, Score: route.Score{Grade: route.GradeC}},
		},
	}
	run, err := RunFromResult(KindRecommend, recommend.Request{Origin: "a", Destination: "b"}, res)
	require.NoError(t, err)
	assert.Equal(t, "B+", run.BestGrade)
	assert.Equal(t, 2, run.RouteCount)
	assert.Equal(t, "a", run.Origin)
	assert.True(t, travel.Equal(run.TravelTime))

	var decoded recommend.Result
	require.NoError(t, json.Unmarshal(run.Result, &decoded))
	assert.Len(t, decoded.Routes, 2)

	empty, err := RunFromResult(KindScore, recommend.Request{}, &recommend.Result{At: travel})
	require.NoError(t, err)
	assert.Empty(t, empty.BestGrade)
}
