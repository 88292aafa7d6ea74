package route

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-polyline"
)

// Decode turns an encoded polyline (5-decimal precision) into {lng, lat}
// coordinates.
func Decode(encoded string) ([]geom.Coord, error) {
	latLngs, rest, err := polyline.DecodeCoords([]byte(encoded))
	if err != nil {
		return nil, eris.Wrap(err, "route: decode polyline")
	}
	if len(rest) > 0 {
		return nil, eris.Errorf("route: %d trailing polyline bytes", len(rest))
	}
	coords := make([]geom.Coord, len(latLngs))
	for i, ll := range latLngs {
		coords[i] = geom.Coord{ll[1], ll[0]}
	}
	return coords, nil
}

// Encode turns {lng, lat} coordinates into an encoded polyline.
func Encode(coords []geom.Coord) string {
	latLngs := make([][]float64, len(coords))
	for i, c := range coords {
		latLngs[i] = []float64{c[1], c[0]}
	}
	return string(polyline.EncodeCoords(latLngs))
}
