package agent

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"qynex-pulse/internal/tracking"

	"github.com/stretchr/testify/require"
)

func TestPositionPassesOptionsToBridge(t *testing.T) {
	var gotQuery map[string]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{
			"highAccuracy":  r.URL.Query().Get("highAccuracy"),
			"timeoutMs":     r.URL.Query().Get("timeoutMs"),
			"maxCacheAgeMs": r.URL.Query().Get("maxCacheAgeMs"),
		}
		json.NewEncoder(w).Encode(bridgeFix{
			Latitude:   34.0522,
			Longitude:  -118.2437,
			Accuracy:   5,
			CapturedAt: time.Now().UnixMilli(),
		})
	}))
	defer srv.Close()

	provider := NewHTTPLocationProvider(srv.URL)
	sample, err := provider.Position(context.Background(), tracking.PositionOptions{
		EnableHighAccuracy: true,
		Timeout:            15 * time.Second,
		MaxCacheAge:        0,
	})
	require.NoError(t, err)

	require.Equal(t, "true", gotQuery["highAccuracy"])
	require.Equal(t, "15000", gotQuery["timeoutMs"])
	require.Equal(t, "0", gotQuery["maxCacheAgeMs"])
	require.InDelta(t, 34.0522, sample.Latitude, 1e-9)
	require.InDelta(t, -118.2437, sample.Longitude, 1e-9)
	require.Nil(t, sample.Speed)
}

func TestPositionMapsBridgeStatusCodes(t *testing.T) {
	cases := []struct {
		name   string
		status int
		want   error
	}{
		{"permission denied", http.StatusForbidden, tracking.ErrPermissionDenied},
		{"timeout", http.StatusGatewayTimeout, tracking.ErrTimeout},
		{"no signal", http.StatusServiceUnavailable, tracking.ErrSignalUnavailable},
		{"bad request", http.StatusBadRequest, tracking.ErrMalformedSample},
		{"unprocessable", http.StatusUnprocessableEntity, tracking.ErrMalformedSample},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
			}))
			defer srv.Close()

			provider := NewHTTPLocationProvider(srv.URL)
			_, err := provider.Position(context.Background(), tracking.PositionOptions{})
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestPositionGarbledBodyIsMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer srv.Close()

	provider := NewHTTPLocationProvider(srv.URL)
	_, err := provider.Position(context.Background(), tracking.PositionOptions{})
	require.ErrorIs(t, err, tracking.ErrMalformedSample)
}

func TestPositionUnreachableBridgeIsSignalUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	provider := NewHTTPLocationProvider(srv.URL)
	_, err := provider.Position(context.Background(), tracking.PositionOptions{})
	require.ErrorIs(t, err, tracking.ErrSignalUnavailable)
}
