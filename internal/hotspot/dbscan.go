package hotspot

import (
	"math"
)

// Noise labels points that belong to no cluster.
const Noise = -1

type cellKey struct{ x, y int }

// grid buckets points into square cells of side eps so a neighborhood query
// only inspects the 3×3 block around a point.
type grid struct {
	eps   float64
	cells map[cellKey][]int
}

func newGrid(xs, ys []float64, eps float64) *grid {
	g := &grid{eps: eps, cells: make(map[cellKey][]int)}
	for i := range xs {
		k := g.key(xs[i], ys[i])
		g.cells[k] = append(g.cells[k], i)
	}
	return g
}

func (g *grid) key(x, y float64) cellKey {
	return cellKey{int(math.Floor(x / g.eps)), int(math.Floor(y / g.eps))}
}

// neighbors returns every index within eps of point i, i included.
func (g *grid) neighbors(xs, ys []float64, i int) []int {
	k := g.key(xs[i], ys[i])
	eps2 := g.eps * g.eps
	var out []int
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			for _, j := range g.cells[cellKey{k.x + dx, k.y + dy}] {
				ddx, ddy := xs[i]-xs[j], ys[i]-ys[j]
				if ddx*ddx+ddy*ddy <= eps2 {
					out = append(out, j)
				}
			}
		}
	}
	return out
}

// DBSCAN labels points by weighted density-based clustering. A point is a
// core point when the weights of its eps-neighborhood, itself included, sum
// to at least minWeight. Border points join the first cluster that reaches
// them. Labels are 0..k-1 in discovery order, or Noise.
func DBSCAN(xs, ys, weights []float64, eps, minWeight float64) []int {
	n := len(xs)
	labels := make([]int, n)
	for i := range labels {
		labels[i] = Noise
	}
	if n == 0 || eps <= 0 {
		return labels
	}

	g := newGrid(xs, ys, eps)
	hoods := make([][]int, n)
	core := make([]bool, n)
	for i := 0; i < n; i++ {
		hoods[i] = g.neighbors(xs, ys, i)
		var w float64
		for _, j := range hoods[i] {
			w += weights[j]
		}
		core[i] = w >= minWeight
	}

	cluster := 0
	for i := 0; i < n; i++ {
		if labels[i] != Noise || !core[i] {
			continue
		}
		labels[i] = cluster
		stack := []int{i}
		for len(stack) > 0 {
			p := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if !core[p] {
				continue
			}
			for _, q := range hoods[p] {
				if labels[q] == Noise {
					labels[q] = cluster
					stack = append(stack, q)
				}
			}
		}
		cluster++
	}
	return labels
}
