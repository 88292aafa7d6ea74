// Package boundary loads administrative district polygons and answers
// point-in-district queries.
package boundary

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
)

// Region is an immutable named district. Coordinates are {lng, lat}.
type Region struct {
	Name     string
	Geometry *geom.MultiPolygon
	Centroid geom.Coord
	Bounds   *geom.Bounds
	// Area is in square degrees.
	Area float64
}

// NewRegion builds a Region from a Polygon or MultiPolygon. Z and M ordinates
// are dropped. Geometries with zero area are rejected.
func NewRegion(name string, g geom.T) (*Region, error) {
	mp, err := toMultiPolygonXY(g)
	if err != nil {
		return nil, eris.Wrapf(err, "boundary: region %q", name)
	}
	if mp.NumPolygons() == 0 {
		return nil, eris.Errorf("boundary: region %q has no polygons", name)
	}

	area := mp.Area()
	if !(area > 0) {
		return nil, eris.Errorf("boundary: region %q has non-positive area", name)
	}

	centroid, err := xy.Centroid(mp)
	if err != nil {
		return nil, eris.Wrapf(err, "boundary: centroid of %q", name)
	}

	return &Region{
		Name:     name,
		Geometry: mp,
		Centroid: centroid,
		Bounds:   mp.Bounds(),
		Area:     area,
	}, nil
}

// NewRectRegion builds an axis-aligned rectangular region.
func NewRectRegion(name string, minLng, minLat, maxLng, maxLat float64) (*Region, error) {
	ring := []float64{minLng, minLat, maxLng, minLat, maxLng, maxLat, minLng, maxLat, minLng, minLat}
	poly := geom.NewPolygon(geom.XY)
	if err := poly.Push(geom.NewLinearRingFlat(geom.XY, ring)); err != nil {
		return nil, eris.Wrap(err, "boundary: rect ring")
	}
	return NewRegion(name, poly)
}

// MinLng returns the western edge of the bounding box.
func (r *Region) MinLng() float64 { return r.Bounds.Min(0) }
func (r *Region) MaxLng() float64 { return r.Bounds.Max(0) }
func (r *Region) MinLat() float64 { return r.Bounds.Min(1) }
func (r *Region) MaxLat() float64 { return r.Bounds.Max(1) }

// InBounds reports whether c lies within the bounding box, edges included.
func (r *Region) InBounds(c geom.Coord) bool {
	return c[0] >= r.MinLng() && c[0] <= r.MaxLng() && c[1] >= r.MinLat() && c[1] <= r.MaxLat()
}

// Contains reports whether c lies inside the region: inside some polygon's
// shell and outside all of that polygon's holes.
func (r *Region) Contains(c geom.Coord) bool {
	if !r.InBounds(c) {
		return false
	}
	for i := 0; i < r.Geometry.NumPolygons(); i++ {
		p := r.Geometry.Polygon(i)
		if !xy.IsPointInRing(geom.XY, c, p.LinearRing(0).FlatCoords()) {
			continue
		}
		inHole := false
		for j := 1; j < p.NumLinearRings(); j++ {
			if xy.IsPointInRing(geom.XY, c, p.LinearRing(j).FlatCoords()) {
				inHole = true
				break
			}
		}
		if !inHole {
			return true
		}
	}
	return false
}

// InteriorGrid lays a resolution×resolution lattice over the bounding box
// (edges included) and returns the nodes that fall inside the region.
func (r *Region) InteriorGrid(resolution int) []geom.Coord {
	if resolution < 2 {
		resolution = 2
	}
	minX, maxX := r.MinLng(), r.MaxLng()
	minY, maxY := r.MinLat(), r.MaxLat()
	stepX := (maxX - minX) / float64(resolution-1)
	stepY := (maxY - minY) / float64(resolution-1)

	var out []geom.Coord
	for i := 0; i < resolution; i++ {
		x := minX + float64(i)*stepX
		for j := 0; j < resolution; j++ {
			c := geom.Coord{x, minY + float64(j)*stepY}
			if r.Contains(c) {
				out = append(out, c)
			}
		}
	}
	return out
}

func toMultiPolygonXY(g geom.T) (*geom.MultiPolygon, error) {
	switch t := g.(type) {
	case *geom.Polygon:
		mp := geom.NewMultiPolygon(geom.XY)
		if err := mp.Push(polygonXY(t)); err != nil {
			return nil, eris.Wrap(err, "push polygon")
		}
		return mp, nil
	case *geom.MultiPolygon:
		mp := geom.NewMultiPolygon(geom.XY)
		for i := 0; i < t.NumPolygons(); i++ {
			if err := mp.Push(polygonXY(t.Polygon(i))); err != nil {
				return nil, eris.Wrap(err, "push polygon")
			}
		}
		return mp, nil
	case nil:
		return nil, eris.New("missing geometry")
	default:
		return nil, eris.Errorf("unsupported geometry %T", g)
	}
}

func polygonXY(p *geom.Polygon) *geom.Polygon {
	out := geom.NewPolygon(geom.XY)
	for i := 0; i < p.NumLinearRings(); i++ {
		ring := p.LinearRing(i)
		flat := make([]float64, 0, ring.NumCoords()*2)
		for j := 0; j < ring.NumCoords(); j++ {
			c := ring.Coord(j)
			flat = append(flat, c[0], c[1])
		}
		// Push only fails on layout mismatch, which cannot happen here.
		_ = out.Push(geom.NewLinearRingFlat(geom.XY, flat))
	}
	return out
}
