package geo

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/wroge/wgs84"
)

// Location records carry coordinates as "x,y" text with 4-decimal
// fixed formatting. Projection math itself belongs to the wgs84
// library; this package only parses, formats and delegates.

// ErrInvalidCoordinates is returned when the coordinates are invalid
var ErrInvalidCoordinates = errors.New("invalid coordinates provided")

// ParseCoordinates parses a string in the format "x,y" into a point.
func ParseCoordinates(coords string) (geom.Point, error) {
	parts := strings.Split(coords, ",")
	if len(parts) != 2 {
		return geom.Point{}, ErrInvalidCoordinates
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return geom.Point{}, ErrInvalidCoordinates
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return geom.Point{}, ErrInvalidCoordinates
	}
	point := geom.NewPoint(
		geom.Coordinates{
			XY:   geom.XY{X: x, Y: y},
			Type: geom.DimXY,
		},
	)
	return point, nil
}

// FormatCoordinates renders a coordinate pair in the persisted
// 4-decimal fixed format.
func FormatCoordinates(x, y float64) string {
	return fmt.Sprintf("%.4f,%.4f", x, y)
}

// WebMercatorFromLonLat converts EPSG 4326 lon/lat to EPSG 3857, the
// projection map surfaces render in.
func WebMercatorFromLonLat(lon, lat float64) geom.Point {
	epsg := wgs84.EPSG()
	f := epsg.Transform(4326, 3857)
	x, y, _ := f(lon, lat, 0)
	return geom.NewPoint(
		geom.Coordinates{
			XY:   geom.XY{X: x, Y: y},
			Type: geom.DimXY,
		},
	)
}
