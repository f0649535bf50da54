package services

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestGeocoder(t *testing.T, handler http.HandlerFunc) *GeocodingService {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return &GeocodingService{
		apiKey:  "test-key",
		baseURL: srv.URL,
		client:  srv.Client(),
		cache:   make(map[string]*geocodeCacheEntry),
		maxSize: 10,
		ttl:     time.Hour,
	}
}

func geocodeResponse(address string) map[string]interface{} {
	return map[string]interface{}{
		"status": "OK",
		"results": []map[string]interface{}{{
			"formatted_address": address,
			"geometry": map[string]interface{}{
				"location": map[string]float64{"lat": 34.0522, "lng": -118.2437},
			},
		}},
	}
}

func TestReverseGeocodeReturnsAddress(t *testing.T) {
	svc := newTestGeocoder(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "test-key", r.URL.Query().Get("key"))
		require.NotEmpty(t, r.URL.Query().Get("latlng"))
		json.NewEncoder(w).Encode(geocodeResponse("1200 Main St, Los Angeles, CA"))
	})

	addr, err := svc.ReverseGeocode(34.0522, -118.2437)
	require.NoError(t, err)
	require.Equal(t, "1200 Main St, Los Angeles, CA", addr.FormattedAddress)
	require.InDelta(t, 34.0522, addr.Coordinates.Lat, 1e-9)
}

func TestReverseGeocodeCachesByQuantizedCoordinate(t *testing.T) {
	calls := 0
	svc := newTestGeocoder(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		json.NewEncoder(w).Encode(geocodeResponse("1200 Main St"))
	})

	_, err := svc.ReverseGeocode(34.05221, -118.24370)
	require.NoError(t, err)

	// GPS jitter within ~11m resolves to the same cache key
	_, err = svc.ReverseGeocode(34.05223, -118.24372)
	require.NoError(t, err)

	require.Equal(t, 1, calls)
}

func TestReverseGeocodeDistinctCoordinatesMiss(t *testing.T) {
	calls := 0
	svc := newTestGeocoder(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		json.NewEncoder(w).Encode(geocodeResponse("somewhere"))
	})

	_, err := svc.ReverseGeocode(34.05, -118.24)
	require.NoError(t, err)
	_, err = svc.ReverseGeocode(34.10, -118.24)
	require.NoError(t, err)

	require.Equal(t, 2, calls)
}

func TestReverseGeocodeAPIErrorStatus(t *testing.T) {
	svc := newTestGeocoder(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"status": "ZERO_RESULTS", "results": []interface{}{}})
	})

	_, err := svc.ReverseGeocode(0, 0)
	require.Error(t, err)
}

func TestGeocodeForwardLookup(t *testing.T) {
	svc := newTestGeocoder(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "1200 Main St", r.URL.Query().Get("address"))
		json.NewEncoder(w).Encode(geocodeResponse("1200 Main St, Los Angeles, CA 90015"))
	})

	addr, err := svc.Geocode("1200 Main St")
	require.NoError(t, err)
	require.Equal(t, "1200 Main St, Los Angeles, CA 90015", addr.FormattedAddress)
	require.InDelta(t, -118.2437, addr.Coordinates.Lng, 1e-9)
}
