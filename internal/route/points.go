package route

import (
	"fmt"
	"math"
	"sort"

	"backend-routeshare/internal/shared/apperr"
	"backend-routeshare/internal/shared/geo"
)

// Path is a normalized point sequence with its start and end anchors.
type Path struct {
	Points []RoutePoint
	Start  RoutePoint
	End    RoutePoint
}

// NormalizePoints validates raw points and orders them by sequence. Points
// sharing a sequence keep their submission order.
func NormalizePoints(raw []RawPoint) (Path, error) {
	if len(raw) == 0 {
		return Path{}, apperr.MissingFields("points")
	}

	if missing := missingPointFields(raw); len(missing) > 0 {
		return Path{}, apperr.MissingFields(missing...)
	}

	points := make([]RoutePoint, len(raw))
	for i, p := range raw {
		if *p.Sequence < math.MinInt32 || *p.Sequence > math.MaxInt32 {
			return Path{}, apperr.InvalidField(fmt.Sprintf("points[%d].sequence", i))
		}
		if !geo.ValidCoordinate(*p.Lat, 0) {
			return Path{}, apperr.InvalidField(fmt.Sprintf("points[%d].lat", i))
		}
		if !geo.ValidCoordinate(0, *p.Lng) {
			return Path{}, apperr.InvalidField(fmt.Sprintf("points[%d].lng", i))
		}
		points[i] = RoutePoint{
			Sequence:       *p.Sequence,
			Lat:            *p.Lat,
			Lng:            *p.Lng,
			AccuracyMeters: p.AccuracyMeters,
			RecordedAt:     *p.RecordedAt,
		}
	}

	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Sequence < points[j].Sequence
	})

	return Path{
		Points: points,
		Start:  points[0],
		End:    points[len(points)-1],
	}, nil
}

// missingPointFields names every absent required field as points[i].field.
func missingPointFields(raw []RawPoint) []string {
	var missing []string
	for i, p := range raw {
		if p.Sequence == nil {
			missing = append(missing, fmt.Sprintf("points[%d].sequence", i))
		}
		if p.Lat == nil {
			missing = append(missing, fmt.Sprintf("points[%d].lat", i))
		}
		if p.Lng == nil {
			missing = append(missing, fmt.Sprintf("points[%d].lng", i))
		}
		if p.RecordedAt == nil {
			missing = append(missing, fmt.Sprintf("points[%d].recorded_at", i))
		}
	}
	return missing
}

// Coordinates returns the path in the form the distance calculator takes.
func (p Path) Coordinates() []geo.Point {
	coords := make([]geo.Point, len(p.Points))
	for i, pt := range p.Points {
		coords[i] = geo.Point{Lat: pt.Lat, Lng: pt.Lng}
	}
	return coords
}

// duplicateSequence returns the first sequence number used twice, if any.
// Points must already be sorted.
func duplicateSequence(points []RoutePoint) (int, bool) {
	for i := 1; i < len(points); i++ {
		if points[i].Sequence == points[i-1].Sequence {
			return points[i].Sequence, true
		}
	}
	return 0, false
}
