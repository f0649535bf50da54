package tracking

import "math"

// earthRadiusMiles is the mean Earth radius used for billable mileage.
const earthRadiusMiles = 3958.8

// DistanceMiles computes the great-circle distance between two coordinates
// using the haversine formula. Pure and deterministic; malformed input is a
// precondition violation, not a runtime error.
func DistanceMiles(a, b Coordinate) float64 {
	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	deltaLat := (b.Latitude - a.Latitude) * math.Pi / 180
	deltaLon := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*
			math.Sin(deltaLon/2)*math.Sin(deltaLon/2)

	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusMiles * c
}
