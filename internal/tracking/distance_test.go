package tracking

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDistanceMilesSamePointIsZero(t *testing.T) {
	a := Coordinate{Latitude: 40.7128, Longitude: -74.0060}
	require.Equal(t, 0.0, DistanceMiles(a, a))
}

func TestDistanceMilesIsSymmetric(t *testing.T) {
	a := Coordinate{Latitude: 40.7128, Longitude: -74.0060}
	b := Coordinate{Latitude: 34.0522, Longitude: -118.2437}
	require.InDelta(t, DistanceMiles(a, b), DistanceMiles(b, a), 1e-9)
}

func TestDistanceMilesOneDegreeLatitude(t *testing.T) {
	a := Coordinate{Latitude: 40.0, Longitude: -74.0}
	b := Coordinate{Latitude: 41.0, Longitude: -74.0}

	// One degree of latitude is roughly 69 miles.
	d := DistanceMiles(a, b)
	require.InDelta(t, 69.09, d, 0.2)
}

func TestDistanceMilesShortStep(t *testing.T) {
	a := Coordinate{Latitude: 40.0, Longitude: -74.0}
	b := Coordinate{Latitude: 40.000724, Longitude: -74.0}

	d := DistanceMiles(a, b)
	require.InDelta(t, 0.05, d, 0.005)
}
