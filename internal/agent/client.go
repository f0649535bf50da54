package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"qynex-pulse/internal/tracking"
)

// APIClient talks to the Pulse server's REST API. It implements the tracking
// session's auth, shift store and breadcrumb store collaborators.
type APIClient struct {
	baseURL string
	client  *http.Client

	token  string
	userID string
}

// NewAPIClient creates a client for the given server base URL (no trailing slash)
func NewAPIClient(baseURL string) *APIClient {
	return &APIClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 20 * time.Second},
	}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

type shiftPayload struct {
	ID         string  `json:"id"`
	UserID     string  `json:"user_id"`
	JobID      *string `json:"job_id"`
	Status     string  `json:"status"`
	ClockIn    int64   `json:"clock_in"`
	ClockOut   *int64  `json:"clock_out"`
	TotalMiles float64 `json:"total_miles"`
}

// Login authenticates and stores the bearer token for subsequent calls
func (c *APIClient) Login(ctx context.Context, email, password string) error {
	body, _ := json.Marshal(map[string]string{"email": email, "password": password})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/auth/login", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("login request failed: %w", err)
	}
	defer resp.Body.Close()

	var loginResp struct {
		OK    bool   `json:"ok"`
		Token string `json:"token"`
		User  struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&loginResp); err != nil {
		return fmt.Errorf("decoding login response: %w", err)
	}
	if resp.StatusCode != http.StatusOK || !loginResp.OK {
		return fmt.Errorf("%w: login rejected (%d)", tracking.ErrUnauthenticated, resp.StatusCode)
	}

	c.token = loginResp.Token
	c.userID = loginResp.User.ID
	return nil
}

// CurrentUser returns the authenticated user id
func (c *APIClient) CurrentUser(ctx context.Context) (string, error) {
	if c.token == "" || c.userID == "" {
		return "", tracking.ErrUnauthenticated
	}
	return c.userID, nil
}

func (c *APIClient) do(ctx context.Context, method, path string, body interface{}, out *envelope) (int, error) {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("decoding response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

// Create persists a new shift and returns the server-assigned id
func (c *APIClient) Create(ctx context.Context, shift tracking.ShiftRecord) (string, error) {
	body := map[string]interface{}{
		"clock_in": shift.ClockIn.Unix(),
	}
	if shift.JobID != "" {
		body["job_id"] = shift.JobID
	}

	var env envelope
	status, err := c.do(ctx, http.MethodPost, "/api/shifts", body, &env)
	if err != nil {
		return "", fmt.Errorf("creating shift: %w", err)
	}
	if status == http.StatusUnauthorized {
		return "", tracking.ErrUnauthenticated
	}
	if status == http.StatusConflict {
		return "", tracking.ErrShiftAlreadyOpen
	}
	if status != http.StatusCreated || !env.Success {
		return "", fmt.Errorf("creating shift: server returned %d: %s", status, env.Error)
	}

	var created shiftPayload
	if err := json.Unmarshal(env.Data, &created); err != nil {
		return "", fmt.Errorf("decoding created shift: %w", err)
	}
	return created.ID, nil
}

// Update applies a field-level update to a shift
func (c *APIClient) Update(ctx context.Context, id string, update tracking.ShiftUpdate) error {
	body := map[string]interface{}{}
	if update.ClockOut != nil {
		body["clock_out"] = update.ClockOut.Unix()
	}
	if update.Status != nil {
		body["status"] = string(*update.Status)
	}
	if update.TotalMiles != nil {
		body["total_miles"] = *update.TotalMiles
	}

	var env envelope
	status, err := c.do(ctx, http.MethodPatch, "/api/shifts/"+id, body, &env)
	if err != nil {
		return fmt.Errorf("updating shift %s: %w", id, err)
	}
	if status == http.StatusUnauthorized {
		return tracking.ErrUnauthenticated
	}
	if status != http.StatusOK || !env.Success {
		return fmt.Errorf("updating shift %s: server returned %d: %s", id, status, env.Error)
	}
	return nil
}

// OpenShiftFor returns the user's open shift, or nil when clocked out
func (c *APIClient) OpenShiftFor(ctx context.Context, userID string) (*tracking.ShiftRecord, error) {
	var env envelope
	status, err := c.do(ctx, http.MethodGet, "/api/shifts/open", nil, &env)
	if err != nil {
		return nil, fmt.Errorf("fetching open shift: %w", err)
	}
	if status == http.StatusUnauthorized {
		return nil, tracking.ErrUnauthenticated
	}
	if status != http.StatusOK || !env.Success {
		return nil, fmt.Errorf("fetching open shift: server returned %d: %s", status, env.Error)
	}

	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil, nil
	}

	var payload shiftPayload
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		return nil, fmt.Errorf("decoding open shift: %w", err)
	}

	record := &tracking.ShiftRecord{
		ID:         tracking.ConfirmedID(payload.ID),
		UserID:     payload.UserID,
		Status:     tracking.ShiftStatus(payload.Status),
		ClockIn:    time.Unix(payload.ClockIn, 0),
		TotalMiles: payload.TotalMiles,
	}
	if payload.JobID != nil {
		record.JobID = *payload.JobID
	}
	if payload.ClockOut != nil {
		out := time.Unix(*payload.ClockOut, 0)
		record.ClockOut = &out
	}
	return record, nil
}

// Append persists one breadcrumb against a shift
func (c *APIClient) Append(ctx context.Context, shiftID string, crumb tracking.Breadcrumb) error {
	body := map[string]interface{}{
		"breadcrumbs": []map[string]interface{}{{
			"latitude":    crumb.Latitude,
			"longitude":   crumb.Longitude,
			"accuracy":    crumb.Accuracy,
			"speed":       crumb.Speed,
			"recorded_at": crumb.RecordedAt.Unix(),
		}},
	}

	var env envelope
	status, err := c.do(ctx, http.MethodPost, "/api/shifts/"+shiftID+"/breadcrumbs", body, &env)
	if err != nil {
		return fmt.Errorf("appending breadcrumb: %w", err)
	}
	if status == http.StatusUnauthorized {
		return tracking.ErrUnauthenticated
	}
	if status != http.StatusCreated || !env.Success {
		return fmt.Errorf("appending breadcrumb: server returned %d: %s", status, env.Error)
	}
	return nil
}
