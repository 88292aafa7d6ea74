package boundary

import (
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"
)

// DefaultNameProperties are the feature properties tried, in order, for a
// district name.
var DefaultNameProperties = []string{"NAME_2", "district", "name"}

const unknownName = "Unknown"

// LoadGeoJSON reads a FeatureCollection of Polygon/MultiPolygon features.
// Features with unusable geometry are skipped; a collection with no usable
// features is a DataLoadError.
func LoadGeoJSON(r io.Reader, nameProps []string) ([]*Region, error) {
	if len(nameProps) == 0 {
		nameProps = DefaultNameProperties
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &DataLoadError{Source: "geojson", Err: eris.Wrap(err, "boundary: read geojson")}
	}

	var fc geojson.FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, &DataLoadError{Source: "geojson", Err: eris.Wrap(err, "boundary: decode geojson")}
	}

	var regions []*Region
	var skipped int
	for i, f := range fc.Features {
		if f == nil {
			skipped++
			continue
		}
		name := featureName(f.Properties, nameProps)
		region, err := NewRegion(name, f.Geometry)
		if err != nil {
			zap.L().Debug("boundary: skipping feature", zap.Int("index", i), zap.Error(err))
			skipped++
			continue
		}
		regions = append(regions, region)
	}

	if skipped > 0 {
		zap.L().Warn("boundary: skipped unusable features", zap.Int("skipped", skipped))
	}
	if len(regions) == 0 {
		return nil, &DataLoadError{Source: "geojson", Err: eris.New("boundary: no usable polygon features")}
	}
	return regions, nil
}

// LoadGeoJSONFile opens path and calls LoadGeoJSON.
func LoadGeoJSONFile(path string, nameProps []string) ([]*Region, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &DataLoadError{Source: path, Err: eris.Wrap(err, "boundary: open geojson")}
	}
	defer f.Close() //nolint:errcheck

	return LoadGeoJSON(f, nameProps)
}

func featureName(props map[string]any, keys []string) string {
	for _, k := range keys {
		v, ok := props[k]
		if !ok || v == nil {
			continue
		}
		var s string
		switch t := v.(type) {
		case string:
			s = t
		default:
			b, err := json.Marshal(t)
			if err != nil {
				continue
			}
			s = string(b)
		}
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return unknownName
}
