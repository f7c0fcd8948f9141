package geo

import (
	"math"

	"github.com/golang/geo/s2"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// EarthRadiusMeters is the mean sphere radius used by the haversine formula.
const EarthRadiusMeters = 6371000.0

type Point struct {
	Lat float64
	Lng float64
}

// DistanceMeters returns the great-circle distance between two points given
// in degrees.
func DistanceMeters(p1, p2 Point) float64 {
	lat1 := toRadians(p1.Lat)
	lat2 := toRadians(p2.Lat)
	dLat := toRadians(p2.Lat - p1.Lat)
	dLng := toRadians(p2.Lng - p1.Lng)

	sinLat := math.Sin(dLat / 2)
	sinLng := math.Sin(dLng / 2)
	a := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLng*sinLng
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusMeters * c
}

// TotalDistance sums the distance between consecutive points. The slice must
// already be in path order.
func TotalDistance(points []Point) float64 {
	var total float64
	for i := 1; i < len(points); i++ {
		total += DistanceMeters(points[i-1], points[i])
	}
	return total
}

// ValidCoordinate reports whether lat is in [-90,90] and lng in [-180,180].
func ValidCoordinate(lat, lng float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lng) {
		return false
	}
	return s2.LatLngFromDegrees(lat, lng).IsValid()
}

// PathFeature encodes an ordered path as a GeoJSON feature. A single point is
// encoded as a Point geometry since a LineString needs two positions.
func PathFeature(id string, points []Point, props map[string]interface{}) (*geojson.Feature, error) {
	coords := make([]geom.Coord, 0, len(points))
	for _, p := range points {
		coords = append(coords, geom.Coord{p.Lng, p.Lat})
	}

	var g geom.T
	switch len(coords) {
	case 0:
		g = geom.NewLineString(geom.XY).SetSRID(4326)
	case 1:
		pt, err := geom.NewPoint(geom.XY).SetCoords(coords[0])
		if err != nil {
			return nil, err
		}
		g = pt.SetSRID(4326)
	default:
		ls, err := geom.NewLineString(geom.XY).SetCoords(coords)
		if err != nil {
			return nil, err
		}
		g = ls.SetSRID(4326)
	}

	return &geojson.Feature{
		ID:         id,
		Geometry:   g,
		Properties: props,
	}, nil
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
