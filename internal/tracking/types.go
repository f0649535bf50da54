package tracking

import (
	"time"
)

// ShiftStatus represents the current status of a shift
type ShiftStatus string

const (
	ShiftStatusActive       ShiftStatus = "active"        // Clocked in, not driving
	ShiftStatusDriving      ShiftStatus = "driving"       // Clocked in, moving at driving speed
	ShiftStatusCompleted    ShiftStatus = "completed"     // Ended by the worker
	ShiftStatusAutoClockout ShiftStatus = "auto_clockout" // Ended by the signal-loss watchdog
)

// Coordinate is a geographic point.
type Coordinate struct {
	Latitude  float64
	Longitude float64
}

// LocationSample is one GPS reading from the device.
// Speed is nil when the device cannot determine it.
type LocationSample struct {
	Latitude   float64
	Longitude  float64
	Accuracy   float64 // meters
	Speed      *float64
	CapturedAt time.Time
}

// Coordinate returns the sample's position.
func (s LocationSample) Coordinate() Coordinate {
	return Coordinate{Latitude: s.Latitude, Longitude: s.Longitude}
}

// Breadcrumb is a location sample persisted against a shift. Breadcrumbs are
// append-only and carry their own timestamp, so the store may receive them
// out of order.
type Breadcrumb struct {
	Latitude   float64
	Longitude  float64
	Accuracy   float64
	Speed      *float64
	RecordedAt time.Time
}

// ShiftID identifies a shift either by a locally generated placeholder
// (before the store confirms the create) or by the store-assigned id.
// Breadcrumb sampling is gated strictly on confirmed ids.
type ShiftID struct {
	value     string
	confirmed bool
}

// ProvisionalID wraps a locally generated placeholder id.
func ProvisionalID(local string) ShiftID {
	return ShiftID{value: local}
}

// ConfirmedID wraps a store-assigned durable id.
func ConfirmedID(remote string) ShiftID {
	return ShiftID{value: remote, confirmed: true}
}

// Confirmed reports whether the id is durable.
func (id ShiftID) Confirmed() bool { return id.confirmed }

func (id ShiftID) String() string { return id.value }

// ShiftRecord represents one work session.
type ShiftRecord struct {
	ID         ShiftID
	UserID     string
	JobID      string
	JobLabel   string
	ClockIn    time.Time
	ClockOut   *time.Time
	Status     ShiftStatus
	TotalMiles float64
}

// JobSelection is the job coding chosen by the worker at clock-in.
type JobSelection struct {
	JobID    string
	JobLabel string
}

// GPSStatus is the sampling health indicator exposed to the UI.
type GPSStatus string

const (
	GPSSearching GPSStatus = "searching"
	GPSActive    GPSStatus = "active"
	GPSError     GPSStatus = "error"
)

// SyncStatus is the durable-store health indicator exposed to the UI.
type SyncStatus string

const (
	SyncIdle   SyncStatus = "idle"
	SyncSynced SyncStatus = "synced"
	SyncError  SyncStatus = "error"
)

// Snapshot is the read model the UI consumes.
type Snapshot struct {
	Active         bool
	Status         ShiftStatus
	ElapsedSeconds int64
	TotalMiles     float64
	JobLabel       string
	GPS            GPSStatus
	Sync           SyncStatus
	LastError      string
}
