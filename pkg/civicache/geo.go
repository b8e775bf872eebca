package civicache

import (
	"math"
	"strings"
)

const earthRadiusMeters = 6371e3

// Bounds is a map bounding box in degrees.
type Bounds struct {
	North float64
	South float64
	East  float64
	West  float64
}

// ParseBounds parses "north,south,east,west". It reports false unless the
// string holds exactly four finite numbers.
func ParseBounds(s string) (Bounds, bool) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return Bounds{}, false
	}

	var vals [4]float64

	for i, p := range parts {
		v, ok := parseFinite(p)
		if !ok {
			return Bounds{}, false
		}

		vals[i] = v
	}

	return Bounds{North: vals[0], South: vals[1], East: vals[2], West: vals[3]}, true
}

// Contains reports whether the point lies inside b, edges included.
// Boxes crossing the antimeridian are not supported.
func (b Bounds) Contains(lat, lng float64) bool {
	return lat <= b.North && lat >= b.South && lng <= b.East && lng >= b.West
}

// String renders b in the discriminator form accepted by [ParseBounds].
func (b Bounds) String() string {
	return strings.Join([]string{
		formatFloat(b.North), formatFloat(b.South), formatFloat(b.East), formatFloat(b.West),
	}, ",")
}

// Distance returns the great-circle distance in meters (haversine).
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)

	return earthRadiusMeters * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
