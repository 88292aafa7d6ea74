// Package incident synthesizes plausible incident locations from aggregate
// district crime counts. The points are a modeling device, not real
// locations.
package incident

import (
	"math"
	"math/rand/v2"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/saferoute/internal/crime"
)

// Pattern is the spatial distribution used for a crime type.
type Pattern int

// Patterns.
const (
	Clustered Pattern = iota
	SemiRandom
	Mixed
)

func (p Pattern) String() string {
	switch p {
	case Clustered:
		return "clustered"
	case SemiRandom:
		return "semi_random"
	default:
		return "mixed"
	}
}

type patternShape struct {
	maxClusters int
	perCluster  int // incidents per cluster before clamping
	urban       float64
	rural       float64
}

var patterns = map[Pattern]patternShape{
	Clustered:  {maxClusters: 5, perCluster: 10, urban: 0.005, rural: 0.01},
	SemiRandom: {maxClusters: 3, perCluster: 15, urban: 0.01, rural: 0.02},
	Mixed:      {maxClusters: 4, perCluster: 12},
}

// Mixed spreads are drawn per point regardless of the urban flag.
const (
	mixedTight      = 0.005
	mixedWide       = 0.015
	mixedTightShare = 0.7
)

// PatternFor returns the distribution pattern for a crime type.
func PatternFor(t crime.Type) Pattern {
	switch t {
	case crime.Theft, crime.BurglaryDay, crime.CyberCrime:
		return Clustered
	case crime.Murder, crime.Rape, crime.Dacoity:
		return SemiRandom
	default:
		return Mixed
	}
}

// Clusters returns the cluster count for count incidents: count divided by
// the pattern's per-cluster size, clamped to [1, max].
func Clusters(p Pattern, count int) int {
	shape := patterns[p]
	n := count / shape.perCluster
	return max(1, min(shape.maxClusters, n))
}

func (p Pattern) spread(rng *rand.Rand, urban bool) float64 {
	if p == Mixed {
		if rng.Float64() < mixedTightShare {
			return mixedTight
		}
		return mixedWide
	}
	shape := patterns[p]
	if urban {
		return shape.urban
	}
	return shape.rural
}

// Config tunes generation.
type Config struct {
	// BonusThreshold is the district total above which every crime type
	// receives BonusPoints extra clustered incidents.
	BonusThreshold float64
	BonusPoints    int
	BonusClusters  int
	// ClusterSlack is the Poisson mean added to each cluster's size.
	ClusterSlack float64
}

// DefaultConfig returns the standard generation settings.
func DefaultConfig() Config {
	return Config{BonusThreshold: 500, BonusPoints: 30, BonusClusters: 2, ClusterSlack: 2}
}

// Set holds synthetic incident coordinates ({lng, lat}) per crime type.
type Set map[crime.Type][]geom.Coord

// Len returns the total number of incidents.
func (s Set) Len() int {
	n := 0
	for _, pts := range s {
		n += len(pts)
	}
	return n
}

// Generator draws incidents from an injected random source. It is not safe
// for concurrent use; build one per region.
type Generator struct {
	rng *rand.Rand
	cfg Config
}

// NewGenerator returns a Generator using rng.
func NewGenerator(rng *rand.Rand, cfg Config) *Generator {
	return &Generator{rng: rng, cfg: cfg}
}

// RegionSource returns a deterministic random source for a region. A zero
// seed yields a randomly seeded source.
func RegionSource(seed uint64, region string) *rand.Rand {
	if seed == 0 {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return rand.New(rand.NewPCG(seed, xxhash.Sum64String(region)))
}

// IsUrban reports whether the region name contains any urban keyword.
func IsUrban(name string, keywords []string) bool {
	lower := strings.ToLower(name)
	for _, k := range keywords {
		if k != "" && strings.Contains(lower, strings.ToLower(k)) {
			return true
		}
	}
	return false
}

// Pattern places up to count incidents in clusters centered on grid nodes.
// Offsets are Gaussian with the pattern's spread; points outside the grid's
// bounding box are discarded. It returns nil for an empty grid or count <= 0.
func (g *Generator) Pattern(grid []geom.Coord, count, clusters int, p Pattern, urban bool) []geom.Coord {
	if len(grid) == 0 || count <= 0 {
		return nil
	}
	clusters = max(1, clusters)
	minX, minY, maxX, maxY := extent(grid)
	perCluster := max(1, count/clusters)

	out := make([]geom.Coord, 0, count)
	for c := 0; c < clusters && len(out) < count; c++ {
		center := grid[g.rng.IntN(len(grid))]
		size := perCluster + g.poisson(g.cfg.ClusterSlack)
		attempts := min(size, count-len(out))

		for i := 0; i < attempts; i++ {
			sigma := p.spread(g.rng, urban)
			x := center[0] + g.rng.NormFloat64()*sigma
			y := center[1] + g.rng.NormFloat64()*sigma
			if x < minX || x > maxX || y < minY || y > maxY {
				continue
			}
			out = append(out, geom.Coord{x, y})
		}
	}
	return out
}

// Region synthesizes incidents for every crime type in the catalog. Types
// with a zero count get no incidents of their own; when the record's total
// exceeds the bonus threshold every type also receives the same set of
// extra urban-spread clustered points.
func (g *Generator) Region(rec *crime.Record, grid []geom.Coord, urban bool) Set {
	set := make(Set, len(crime.Catalog))
	for _, t := range crime.Catalog {
		count := int(rec.Count(t))
		if count <= 0 {
			set[t] = nil
			continue
		}
		p := PatternFor(t)
		set[t] = g.Pattern(grid, count, Clusters(p, count), p, urban)
	}

	if g.cfg.BonusPoints > 0 && rec.Total() > g.cfg.BonusThreshold {
		extra := g.Pattern(grid, g.cfg.BonusPoints, g.cfg.BonusClusters, Clustered, true)
		for _, t := range crime.Catalog {
			pts := make([]geom.Coord, 0, len(set[t])+len(extra))
			set[t] = append(append(pts, set[t]...), extra...)
		}
	}
	return set
}

// poisson draws from a Poisson distribution (Knuth's method; lambda is small).
func (g *Generator) poisson(lambda float64) int {
	if lambda <= 0 {
		return 0
	}
	limit := math.Exp(-lambda)
	k := 0
	p := g.rng.Float64()
	for p > limit {
		k++
		p *= g.rng.Float64()
	}
	return k
}

func extent(pts []geom.Coord) (minX, minY, maxX, maxY float64) {
	minX, minY = math.Inf(1), math.Inf(1)
	maxX, maxY = math.Inf(-1), math.Inf(-1)
	for _, c := range pts {
		minX = math.Min(minX, c[0])
		maxX = math.Max(maxX, c[0])
		minY = math.Min(minY, c[1])
		maxY = math.Max(maxY, c[1])
	}
	return minX, minY, maxX, maxY
}
