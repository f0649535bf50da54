package models

// Breadcrumb represents one persisted GPS reading during a shift.
// Append-only; carries its own client-side timestamp so rows may arrive out
// of order (write retries can overlap the next sample).
type Breadcrumb struct {
	ID         int64    `json:"id" db:"id"`
	ShiftID    string   `json:"shift_id" db:"shift_id"`
	Latitude   float64  `json:"latitude" db:"latitude"`
	Longitude  float64  `json:"longitude" db:"longitude"`
	Accuracy   float64  `json:"accuracy" db:"accuracy"`   // GPS accuracy in meters
	Speed      *float64 `json:"speed" db:"speed"`         // Speed in m/s, null when unknown
	RecordedAt int64    `json:"recorded_at" db:"recorded_at"` // Client-side timestamp
	CreatedAt  int64    `json:"created_at" db:"created_at"`   // Server-side timestamp
}
