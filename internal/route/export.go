package route

import (
	"encoding/json"
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sells-group/saferoute/internal/hotspot"
)

// FeatureCollection renders ranked routes as one LineString per segment,
// carrying its risk, plus one Point per hotspot.
func FeatureCollection(ranked []Ranked, hotspots []hotspot.Hotspot) *geojson.FeatureCollection {
	fc := &geojson.FeatureCollection{}
	for _, r := range ranked {
		for i, seg := range r.Score.Segments {
			line := geom.NewLineString(geom.XY).MustSetCoords([]geom.Coord{seg.Start, seg.End})
			fc.Features = append(fc.Features, &geojson.Feature{
				ID:       fmt.Sprintf("route-%d-seg-%d", r.Candidate.ID, i),
				Geometry: line,
				Properties: map[string]any{
					"kind":         "segment",
					"route_id":     r.Candidate.ID,
					"rank":         r.Rank,
					"recommended":  r.Recommended,
					"safety_grade": string(r.Score.Grade),
					"risk":         seg.Risk,
					"meters":       seg.Meters,
				},
			})
		}
	}
	for i, h := range hotspots {
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:       fmt.Sprintf("hotspot-%d", i),
			Geometry: geom.NewPoint(geom.XY).MustSetCoords(h.Center),
			Properties: map[string]any{
				"kind":        "hotspot",
				"radius":      h.Radius,
				"intensity":   h.Intensity,
				"crime_count": h.Count,
			},
		})
	}
	return fc
}

// MarshalGeoJSON encodes FeatureCollection(ranked, hotspots).
func MarshalGeoJSON(ranked []Ranked, hotspots []hotspot.Hotspot) ([]byte, error) {
	b, err := json.Marshal(FeatureCollection(ranked, hotspots))
	if err != nil {
		return nil, eris.Wrap(err, "route: marshal geojson")
	}
	return b, nil
}
