package tracking

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMileageFirstSampleNeverAccrues(t *testing.T) {
	var m MileageAccumulator

	delta := m.Advance(Coordinate{Latitude: 40.0, Longitude: -74.0}, true)
	require.Equal(t, 0.0, delta)
	require.Equal(t, 0.0, m.TotalMiles())
}

func TestMileageAccruesOnlyWhileDriving(t *testing.T) {
	var m MileageAccumulator

	m.Advance(Coordinate{Latitude: 40.0, Longitude: -74.0}, true)
	delta := m.Advance(Coordinate{Latitude: 40.000724, Longitude: -74.0}, false)
	require.Equal(t, 0.0, delta)
	require.Equal(t, 0.0, m.TotalMiles())

	// The idle step still advanced the reference point.
	delta = m.Advance(Coordinate{Latitude: 40.001448, Longitude: -74.0}, true)
	require.InDelta(t, 0.05, delta, 0.005)
	require.InDelta(t, 0.05, m.TotalMiles(), 0.005)
}

func TestMileageTotalIsMonotonic(t *testing.T) {
	var m MileageAccumulator

	lat := 40.0
	prev := 0.0
	for i := 0; i < 10; i++ {
		driving := i%2 == 0
		m.Advance(Coordinate{Latitude: lat, Longitude: -74.0}, driving)
		require.GreaterOrEqual(t, m.TotalMiles(), prev)
		prev = m.TotalMiles()
		lat += 0.000724
	}
}

func TestMileageTeleportStepIsRejectedButAdvancesReference(t *testing.T) {
	var m MileageAccumulator

	m.Advance(Coordinate{Latitude: 40.0, Longitude: -74.0}, true)

	// ~69 miles in one step: physically implausible at a 60s cadence.
	delta := m.Advance(Coordinate{Latitude: 41.0, Longitude: -74.0}, true)
	require.Equal(t, 0.0, delta)
	require.Equal(t, 0.0, m.TotalMiles())

	// Reference moved to the teleport target, so a small step from there
	// accrues normally.
	delta = m.Advance(Coordinate{Latitude: 41.000724, Longitude: -74.0}, true)
	require.InDelta(t, 0.05, delta, 0.005)
}

func TestMileageRestoreSeedsTotalWithoutReference(t *testing.T) {
	var m MileageAccumulator

	m.Restore(3.2)
	require.Equal(t, 3.2, m.TotalMiles())

	// No reference point after restore: first sample never accrues.
	delta := m.Advance(Coordinate{Latitude: 40.0, Longitude: -74.0}, true)
	require.Equal(t, 0.0, delta)
	require.Equal(t, 3.2, m.TotalMiles())
}
