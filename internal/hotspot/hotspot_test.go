package hotspot

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
)

func cluster(cx, cy, w float64, n int) []Point {
	out := make([]Point, 0, n)
	for i := 0; i < n; i++ {
		dx := 0.001 * float64(i%3-1)
		dy := 0.001 * float64(i/3%3-1)
		out = append(out, Point{Coord: geom.Coord{cx + dx, cy + dy}, Weight: w})
	}
	return out
}

func TestDetect_TooFewPoints(t *testing.T) {
	assert.Nil(t, Detect(cluster(77, 12, 10, 4), DefaultConfig()))
	assert.Nil(t, Detect(nil, DefaultConfig()))
}

func TestDetect_TwoClusters(t *testing.T) {
	var pts []Point
	pts = append(pts, cluster(77.0, 12.0, 3.0, 6)...)  // theft
	pts = append(pts, cluster(77.1, 12.1, 10.0, 6)...) // murder
	pts = append(pts, Point{Coord: geom.Coord{77.0, 12.1}, Weight: 1.0})

	hs := Detect(pts, DefaultConfig())
	require.Len(t, hs, 2)

	assert.InDelta(t, 60.0, hs[0].Intensity, 1e-9)
	assert.Equal(t, 6, hs[0].Count)
	assert.InDelta(t, 77.1, hs[0].Lng(), 0.002)
	assert.InDelta(t, 12.1, hs[0].Lat(), 0.002)

	assert.InDelta(t, 18.0, hs[1].Intensity, 1e-9)
	assert.InDelta(t, 77.0, hs[1].Lng(), 0.002)

	for _, h := range hs {
		assert.GreaterOrEqual(t, h.Radius, 0.0)
		assert.Less(t, h.Radius, 0.01)
		assert.Greater(t, h.Intensity, 0.0)
	}
}

func TestDetect_WeightedCenter(t *testing.T) {
	pts := []Point{
		{Coord: geom.Coord{0, 0}, Weight: 3},
		{Coord: geom.Coord{0, 0}, Weight: 3},
		{Coord: geom.Coord{0.001, 0}, Weight: 9},
		{Coord: geom.Coord{0.001, 0}, Weight: 3},
		{Coord: geom.Coord{0, 0.001}, Weight: 2},
	}
	// Distant light points widen the standardization scale and stay noise.
	noise := []Point{
		{Coord: geom.Coord{1, 1}, Weight: 1},
		{Coord: geom.Coord{-1, 1}, Weight: 1},
	}
	hs := Detect(append(pts, noise...), DefaultConfig())
	require.Len(t, hs, 1)
	h := hs[0]
	assert.Equal(t, 5, h.Count)
	assert.InDelta(t, 20, h.Intensity, 1e-9)
	assert.InDelta(t, 0.012/20, h.Center[0], 1e-12)
	assert.InDelta(t, 0.002/20, h.Center[1], 1e-12)

	want := 0.0
	for _, p := range pts {
		want = math.Max(want, math.Hypot(p.Coord[0]-h.Center[0], p.Coord[1]-h.Center[1]))
	}
	assert.InDelta(t, want, h.Radius, 1e-12)
}

func TestDBSCAN(t *testing.T) {
	xs := []float64{0, 0.1, 0.2, 5, 5.1, 9}
	ys := []float64{0, 0, 0, 5, 5, 9}

	labels := DBSCAN(xs, ys, []float64{1, 1, 1, 1, 1, 1}, 0.5, 3)
	assert.Equal(t, []int{0, 0, 0, Noise, Noise, Noise}, labels)

	// Heavy weights let a pair become core.
	labels = DBSCAN(xs, ys, []float64{1, 1, 1, 2, 2, 1}, 0.5, 3)
	assert.Equal(t, []int{0, 0, 0, 1, 1, Noise}, labels)

	// A single heavy point is a cluster on its own.
	labels = DBSCAN(xs, ys, []float64{1, 1, 1, 1, 1, 5}, 0.5, 3)
	assert.Equal(t, 1, labels[5])

	assert.Empty(t, DBSCAN(nil, nil, nil, 0.5, 3))
}

func TestDBSCAN_BorderPoint(t *testing.T) {
	// 1 and 2 are core; 0 and 3 are border points reached from them.
	xs := []float64{0, 0.3, 0.6, 1.05}
	ys := []float64{0, 0, 0, 0}
	labels := DBSCAN(xs, ys, []float64{1, 1, 1, 1}, 0.5, 3)
	assert.Equal(t, []int{0, 0, 0, 0}, labels)
}

func TestStandardize(t *testing.T) {
	out := Standardize([]float64{1, 2, 3})
	std := math.Sqrt(2.0 / 3.0)
	assert.InDeltaSlice(t, []float64{-1 / std, 0, 1 / std}, out, 1e-12)

	assert.Equal(t, []float64{0, 0}, Standardize([]float64{4, 4}))
}
