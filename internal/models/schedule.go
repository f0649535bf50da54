package models

// ScheduleItem represents one planned shift on the weekly schedule
type ScheduleItem struct {
	ID        string `json:"id" db:"id"`
	ProfileID string `json:"profile_id" db:"profile_id"`
	Day       string `json:"day" db:"day"` // "monday".."sunday"
	StartTime string `json:"start_time" db:"start_time"` // "HH:MM"
	EndTime   string `json:"end_time" db:"end_time"`     // "HH:MM"
	Role      string `json:"role" db:"role"`
	CreatedAt int64  `json:"created_at" db:"created_at"`
}
