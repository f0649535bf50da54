package tracking

import (
	"context"
	"time"
)

// AuthProvider resolves the authenticated user driving the session.
type AuthProvider interface {
	// CurrentUser returns the authenticated user's id, or ErrUnauthenticated.
	CurrentUser(ctx context.Context) (string, error)
}

// ShiftUpdate is a field-level update to a shift row. Nil fields are left
// untouched by the store.
type ShiftUpdate struct {
	ClockOut   *time.Time
	Status     *ShiftStatus
	TotalMiles *float64
}

// ShiftStore is the durable shift storage behind the controller.
type ShiftStore interface {
	// Create persists a new shift and returns the store-assigned id.
	Create(ctx context.Context, shift ShiftRecord) (string, error)

	// Update applies a field-level update to the shift with the given id.
	Update(ctx context.Context, id string, update ShiftUpdate) error

	// OpenShiftFor returns the user's open shift, or nil when none exists.
	OpenShiftFor(ctx context.Context, userID string) (*ShiftRecord, error)
}

// BreadcrumbStore persists location breadcrumbs for a shift. The store must
// tolerate unordered arrival; breadcrumbs carry their own timestamp.
type BreadcrumbStore interface {
	Append(ctx context.Context, shiftID string, crumb Breadcrumb) error
}

// PositionOptions configures a one-shot location query.
type PositionOptions struct {
	EnableHighAccuracy bool
	Timeout            time.Duration
	MaxCacheAge        time.Duration
}

// LocationProvider is the platform's one-shot position query. Implementations
// must honor MaxCacheAge (0 means a cached fix is never acceptable) and fail
// with one of the sample sentinel errors.
type LocationProvider interface {
	Position(ctx context.Context, opts PositionOptions) (LocationSample, error)
}
