package boundary

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/wkb"
	"go.uber.org/zap"
)

// Querier is the subset of pgxpool.Pool used to read boundaries.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostGISSource names the table and columns holding district polygons.
type PostGISSource struct {
	Table   string // may be schema-qualified
	NameCol string
	GeomCol string
}

func (s PostGISSource) query() string {
	table := pgx.Identifier(strings.Split(s.Table, ".")).Sanitize()
	return fmt.Sprintf("SELECT %s, ST_AsBinary(%s) FROM %s ORDER BY %s",
		pgx.Identifier{s.NameCol}.Sanitize(),
		pgx.Identifier{s.GeomCol}.Sanitize(),
		table,
		pgx.Identifier{s.NameCol}.Sanitize(),
	)
}

// LoadPostGIS reads district polygons from a PostGIS table.
func LoadPostGIS(ctx context.Context, q Querier, src PostGISSource) ([]*Region, error) {
	if src.NameCol == "" {
		src.NameCol = "name"
	}
	if src.GeomCol == "" {
		src.GeomCol = "geom"
	}
	if src.Table == "" {
		return nil, &DataLoadError{Source: "postgis", Err: eris.New("boundary: table name required")}
	}

	rows, err := q.Query(ctx, src.query())
	if err != nil {
		return nil, &DataLoadError{Source: "postgis:" + src.Table, Err: eris.Wrap(err, "boundary: query districts")}
	}
	defer rows.Close()

	var regions []*Region
	var skipped int
	for rows.Next() {
		var name string
		var raw []byte
		if err := rows.Scan(&name, &raw); err != nil {
			return nil, &DataLoadError{Source: "postgis:" + src.Table, Err: eris.Wrap(err, "boundary: scan district")}
		}
		g, err := wkb.Unmarshal(raw)
		if err != nil {
			zap.L().Debug("boundary: skipping undecodable geometry", zap.String("region", name), zap.Error(err))
			skipped++
			continue
		}
		if name = strings.TrimSpace(name); name == "" {
			name = unknownName
		}
		region, err := NewRegion(name, g)
		if err != nil {
			zap.L().Debug("boundary: skipping district", zap.String("region", name), zap.Error(err))
			skipped++
			continue
		}
		regions = append(regions, region)
	}
	if err := rows.Err(); err != nil {
		return nil, &DataLoadError{Source: "postgis:" + src.Table, Err: eris.Wrap(err, "boundary: iterate districts")}
	}

	if skipped > 0 {
		zap.L().Warn("boundary: skipped unusable districts", zap.Int("skipped", skipped))
	}
	if len(regions) == 0 {
		return nil, &DataLoadError{Source: "postgis:" + src.Table, Err: eris.New("boundary: no usable districts")}
	}
	return regions, nil
}
