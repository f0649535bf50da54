package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"qynex-pulse/internal/tracking"
)

// HTTPLocationProvider queries a local GPS bridge over HTTP. In-vehicle
// installs run a small daemon next to the receiver; it exposes one endpoint
// that blocks until a fix is available or the timeout passes.
type HTTPLocationProvider struct {
	baseURL string
	client  *http.Client
}

// NewHTTPLocationProvider creates a provider for the given bridge URL
func NewHTTPLocationProvider(baseURL string) *HTTPLocationProvider {
	return &HTTPLocationProvider{
		baseURL: baseURL,
		// The bridge handles timing out; ours is a backstop
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

type bridgeFix struct {
	Latitude   float64  `json:"latitude"`
	Longitude  float64  `json:"longitude"`
	Accuracy   float64  `json:"accuracy"`
	Speed      *float64 `json:"speed"`
	CapturedAt int64    `json:"captured_at"` // epoch milliseconds
}

// Position performs a one-shot position query against the bridge
func (p *HTTPLocationProvider) Position(ctx context.Context, opts tracking.PositionOptions) (tracking.LocationSample, error) {
	params := url.Values{}
	params.Set("highAccuracy", strconv.FormatBool(opts.EnableHighAccuracy))
	params.Set("timeoutMs", strconv.FormatInt(opts.Timeout.Milliseconds(), 10))
	params.Set("maxCacheAgeMs", strconv.FormatInt(opts.MaxCacheAge.Milliseconds(), 10))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/position?"+params.Encode(), nil)
	if err != nil {
		return tracking.LocationSample{}, fmt.Errorf("%w: %v", tracking.ErrSignalUnavailable, err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return tracking.LocationSample{}, tracking.ErrTimeout
		}
		return tracking.LocationSample{}, fmt.Errorf("%w: %v", tracking.ErrSignalUnavailable, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		// fall through to decode
	case http.StatusForbidden:
		return tracking.LocationSample{}, tracking.ErrPermissionDenied
	case http.StatusGatewayTimeout:
		return tracking.LocationSample{}, tracking.ErrTimeout
	case http.StatusServiceUnavailable:
		return tracking.LocationSample{}, tracking.ErrSignalUnavailable
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return tracking.LocationSample{}, tracking.ErrMalformedSample
	default:
		return tracking.LocationSample{}, fmt.Errorf("%w: bridge returned %d", tracking.ErrSignalUnavailable, resp.StatusCode)
	}

	var fix bridgeFix
	if err := json.NewDecoder(resp.Body).Decode(&fix); err != nil {
		return tracking.LocationSample{}, fmt.Errorf("%w: %v", tracking.ErrMalformedSample, err)
	}

	capturedAt := time.Now()
	if fix.CapturedAt > 0 {
		capturedAt = time.UnixMilli(fix.CapturedAt)
	}

	return tracking.LocationSample{
		Latitude:   fix.Latitude,
		Longitude:  fix.Longitude,
		Accuracy:   fix.Accuracy,
		Speed:      fix.Speed,
		CapturedAt: capturedAt,
	}, nil
}
