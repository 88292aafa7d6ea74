// Package risk builds the immutable analysis snapshot (incidents, density
// fields, hotspots, district statistics) and evaluates point risk from it.
package risk

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/saferoute/internal/boundary"
	"github.com/sells-group/saferoute/internal/crime"
	"github.com/sells-group/saferoute/internal/density"
	"github.com/sells-group/saferoute/internal/hotspot"
	"github.com/sells-group/saferoute/internal/incident"
)

// District bundles a region with everything derived from its crime record.
// Record is nil for regions with no matched statistics.
type District struct {
	Region    *boundary.Region
	Record    *crime.Record
	Stats     crime.Stats
	Urban     bool
	Incidents incident.Set
	Fields    map[crime.Type]*density.Field
	Hotspots  []hotspot.Hotspot
}

// Snapshot is the read-only product of one data load.
type Snapshot struct {
	store     *boundary.Store
	districts map[string]*District
	opts      Options
	builtAt   time.Time
}

// Build derives a District for every region, in parallel, and assembles a
// Snapshot. Regions without a ledger record are kept but carry no model.
func Build(ctx context.Context, store *boundary.Store, ledger *crime.Ledger, opts Options) (*Snapshot, error) {
	log := zap.L().With(zap.String("component", "risk"))
	start := time.Now()

	regions := store.Regions()
	districts := make([]*District, len(regions))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, opts.Concurrency))
	for i, region := range regions {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return eris.Wrap(err, "risk: build cancelled")
			}
			rec, _ := ledger.Get(region.Name)
			districts[i] = BuildDistrict(region, rec, opts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	snap := Assemble(store, districts, opts)
	log.Info("risk: snapshot built",
		zap.Int("regions", len(regions)),
		zap.Int("with_records", ledger.Len()),
		zap.Duration("elapsed", time.Since(start)),
	)
	return snap, nil
}

// BuildDistrict synthesizes incidents, fits densities and detects hotspots
// for one region.
func BuildDistrict(region *boundary.Region, rec *crime.Record, opts Options) *District {
	d := &District{
		Region: region,
		Record: rec,
		Urban:  incident.IsUrban(region.Name, opts.UrbanKeywords),
	}
	if rec == nil {
		return d
	}
	d.Stats = crime.ComputeStats(rec, region.Area)

	grid := region.InteriorGrid(opts.GridResolution)
	gen := incident.NewGenerator(incident.RegionSource(opts.Seed, region.Name), opts.Incident)
	d.Incidents = gen.Region(rec, grid, d.Urban)

	d.Fields = make(map[crime.Type]*density.Field)
	var pooled []hotspot.Point
	for _, t := range crime.Catalog {
		pts := d.Incidents[t]
		if len(pts) == 0 {
			continue
		}
		out := density.TryFit(pts, opts.Bandwidth)
		if out.IsDegraded() {
			zap.L().Debug("risk: skipping density",
				zap.String("region", region.Name),
				zap.String("type", string(t)),
				zap.Error(out.Cause),
			)
		} else {
			d.Fields[t] = out.Value
		}

		w := opts.Weights.Of(t)
		for _, c := range pts {
			pooled = append(pooled, hotspot.Point{Coord: c, Weight: w})
		}
	}
	d.Hotspots = hotspot.Detect(pooled, opts.Hotspot)
	return d
}

// Assemble wraps prebuilt districts into a Snapshot. Districts are keyed by
// region name; nil entries are ignored.
func Assemble(store *boundary.Store, districts []*District, opts Options) *Snapshot {
	s := &Snapshot{
		store:     store,
		districts: make(map[string]*District, len(districts)),
		opts:      opts,
		builtAt:   time.Now().UTC(),
	}
	for _, d := range districts {
		if d == nil || d.Region == nil {
			continue
		}
		s.districts[d.Region.Name] = d
	}
	return s
}

// Store returns the boundary store the snapshot was built from.
func (s *Snapshot) Store() *boundary.Store { return s.store }

// BuiltAt returns when the snapshot was assembled.
func (s *Snapshot) BuiltAt() time.Time { return s.builtAt }

// Options returns the options the snapshot evaluates with.
func (s *Snapshot) Options() Options { return s.opts }

// District returns the named district.
func (s *Snapshot) District(name string) (*District, bool) {
	d, ok := s.districts[name]
	return d, ok
}

// Districts returns districts in boundary load order.
func (s *Snapshot) Districts() []*District {
	out := make([]*District, 0, len(s.districts))
	for _, r := range s.store.Regions() {
		if d, ok := s.districts[r.Name]; ok {
			out = append(out, d)
		}
	}
	return out
}
