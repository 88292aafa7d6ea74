package boundary

import (
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
	"go.uber.org/zap"
)

// LoadShapefile reads polygon records from a shapefile. The district name is
// taken from nameField (case-insensitive); records without it are named
// "Unknown".
func LoadShapefile(path, nameField string) ([]*Region, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, &DataLoadError{Source: path, Err: eris.Wrap(err, "boundary: open shapefile")}
	}
	defer func() { _ = reader.Close() }()

	nameIdx := -1
	for i, f := range reader.Fields() {
		if strings.EqualFold(strings.TrimRight(f.String(), "\x00"), nameField) {
			nameIdx = i
			break
		}
	}

	var regions []*Region
	var skipped int
	for reader.Next() {
		n, shape := reader.Shape()

		name := unknownName
		if nameIdx >= 0 {
			if v := strings.TrimSpace(strings.TrimRight(reader.Attribute(nameIdx), "\x00")); v != "" {
				name = v
			}
		}

		poly, ok := shape.(*shp.Polygon)
		if !ok {
			skipped++
			continue
		}
		mp := shapeToMultiPolygon(poly)
		if mp == nil {
			skipped++
			continue
		}
		region, err := NewRegion(name, mp)
		if err != nil {
			zap.L().Debug("boundary: skipping shapefile record", zap.Int("record", n), zap.Error(err))
			skipped++
			continue
		}
		regions = append(regions, region)
	}

	if skipped > 0 {
		zap.L().Debug("boundary: skipped shapefile records", zap.String("path", path), zap.Int("skipped", skipped))
	}
	if len(regions) == 0 {
		return nil, &DataLoadError{Source: path, Err: eris.New("boundary: no usable polygon records")}
	}
	return regions, nil
}

// shapeToMultiPolygon groups shapefile parts into polygons. Shells are
// clockwise in the shapefile format; a counter-clockwise part is a hole of
// the preceding shell.
func shapeToMultiPolygon(p *shp.Polygon) *geom.MultiPolygon {
	if p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	mp := geom.NewMultiPolygon(geom.XY)
	var current *geom.Polygon
	flush := func() {
		if current != nil {
			_ = mp.Push(current)
		}
	}

	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		end := int32(len(p.Points))
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		}
		if end-start < 4 {
			continue
		}

		flat := make([]float64, 0, (end-start)*2)
		for j := start; j < end; j++ {
			flat = append(flat, p.Points[j].X, p.Points[j].Y)
		}
		ring := geom.NewLinearRingFlat(geom.XY, flat)

		if current != nil && xy.IsRingCounterClockwise(geom.XY, flat) {
			_ = current.Push(ring)
			continue
		}
		flush()
		current = geom.NewPolygon(geom.XY)
		_ = current.Push(ring)
	}
	flush()

	if mp.NumPolygons() == 0 {
		return nil
	}
	return mp
}
