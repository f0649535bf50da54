package tracking

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

// sampleTimeout is how long a one-shot location query may take before it is
// abandoned as ErrTimeout.
const sampleTimeout = 15 * time.Second

// GeoSampler wraps the platform location provider. Each Sample call performs
// one one-shot high-accuracy query that never reuses a cached fix, and
// validates the reading before handing it to the session.
type GeoSampler struct {
	provider LocationProvider
}

// NewGeoSampler wraps a LocationProvider.
func NewGeoSampler(provider LocationProvider) *GeoSampler {
	return &GeoSampler{provider: provider}
}

// Sample produces one location sample or fails with one of
// ErrPermissionDenied, ErrTimeout, ErrSignalUnavailable or
// ErrMalformedSample.
func (g *GeoSampler) Sample(ctx context.Context) (LocationSample, error) {
	ctx, cancel := context.WithTimeout(ctx, sampleTimeout)
	defer cancel()

	sample, err := g.provider.Position(ctx, PositionOptions{
		EnableHighAccuracy: true,
		Timeout:            sampleTimeout,
		MaxCacheAge:        0, // a stale fix is never acceptable
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return LocationSample{}, fmt.Errorf("position query: %w", ErrTimeout)
		}
		return LocationSample{}, err
	}

	if !validCoordinate(sample.Latitude, sample.Longitude) {
		return LocationSample{}, fmt.Errorf("coordinates (%v, %v): %w",
			sample.Latitude, sample.Longitude, ErrMalformedSample)
	}
	if sample.Speed != nil && math.IsNaN(*sample.Speed) {
		sample.Speed = nil
	}
	if sample.CapturedAt.IsZero() {
		sample.CapturedAt = time.Now()
	}
	return sample, nil
}

func validCoordinate(lat, lng float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lng) {
		return false
	}
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}
