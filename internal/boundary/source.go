package boundary

import (
	"context"

	"github.com/rotisserie/eris"
)

// Source kinds accepted by Load.
const (
	KindGeoJSON   = "geojson"
	KindShapefile = "shapefile"
	KindPostGIS   = "postgis"
)

// Options selects and parameterizes a boundary source.
type Options struct {
	Kind           string
	Path           string
	NameProperties []string
	PostGIS        PostGISSource
	// DB is required for KindPostGIS.
	DB Querier
}

// Load reads regions from the configured source and indexes them.
func Load(ctx context.Context, opts Options) (*Store, error) {
	var (
		regions []*Region
		err     error
	)
	switch opts.Kind {
	case KindGeoJSON, "":
		regions, err = LoadGeoJSONFile(opts.Path, opts.NameProperties)
	case KindShapefile:
		field := "NAME_2"
		if len(opts.NameProperties) > 0 {
			field = opts.NameProperties[0]
		}
		regions, err = LoadShapefile(opts.Path, field)
	case KindPostGIS:
		if opts.DB == nil {
			return nil, &DataLoadError{Source: "postgis", Err: eris.New("boundary: database not configured")}
		}
		regions, err = LoadPostGIS(ctx, opts.DB, opts.PostGIS)
	default:
		return nil, &DataLoadError{Source: opts.Kind, Err: eris.Errorf("boundary: unknown source kind %q", opts.Kind)}
	}
	if err != nil {
		return nil, err
	}
	return NewStore(regions), nil
}
