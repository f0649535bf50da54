package models

import "time"

// ShiftStatus represents the current status of a shift
type ShiftStatus string

const (
	ShiftStatusActive       ShiftStatus = "active"        // Clocked in
	ShiftStatusDriving      ShiftStatus = "driving"       // Clocked in, moving at driving speed
	ShiftStatusCompleted    ShiftStatus = "completed"     // Clocked out by the worker
	ShiftStatusAutoClockout ShiftStatus = "auto_clockout" // Closed by the signal-loss watchdog
)

// Open reports whether the status is a non-terminal state.
func (s ShiftStatus) Open() bool {
	return s == ShiftStatusActive || s == ShiftStatusDriving
}

// Valid reports whether s is one of the known status values.
func (s ShiftStatus) Valid() bool {
	switch s {
	case ShiftStatusActive, ShiftStatusDriving, ShiftStatusCompleted, ShiftStatusAutoClockout:
		return true
	}
	return false
}

// Correction request states for shift time corrections.
const (
	CorrectionNone            = "none"
	CorrectionPending         = "pending"
	CorrectionApproved        = "approved"
	CorrectionRejected        = "rejected"
	CorrectionPendingAddition = "pending_addition" // Worker requests a missed shift be added
)

// Shift represents one work session
type Shift struct {
	ID         string      `json:"id" db:"id"`
	UserID     string      `json:"user_id" db:"user_id"`
	JobID      *string     `json:"job_id" db:"job_id"`
	Status     ShiftStatus `json:"status" db:"status"`
	ClockIn    int64       `json:"clock_in" db:"clock_in"`
	ClockOut   *int64      `json:"clock_out" db:"clock_out"`
	TotalMiles float64     `json:"total_miles" db:"total_miles"`

	// Job coding
	CompletedTasks *string `json:"completed_tasks" db:"completed_tasks"`
	SubtaskNote    *string `json:"subtask_note" db:"subtask_note"`

	// Notes
	EmployeeNotes *string `json:"employee_notes" db:"employee_notes"`
	AdminNotes    *string `json:"admin_notes" db:"admin_notes"`

	// Correction requests
	CorrectionRequest *string `json:"correction_request" db:"correction_request"`
	CorrectionStatus  string  `json:"correction_status" db:"correction_status"`
	RequestedStart    *int64  `json:"requested_start" db:"requested_start"`
	RequestedEnd      *int64  `json:"requested_end" db:"requested_end"`
	RequestedJobID    *string `json:"requested_job_id" db:"requested_job_id"`

	CreatedAt int64 `json:"created_at" db:"created_at"`
	UpdatedAt int64 `json:"updated_at" db:"updated_at"`
}

// Duration returns the shift length; open shifts measure up to now.
func (s *Shift) Duration() time.Duration {
	end := time.Now().Unix()
	if s.ClockOut != nil {
		end = *s.ClockOut
	}
	seconds := end - s.ClockIn
	if seconds < 0 {
		seconds = 0
	}
	return time.Duration(seconds) * time.Second
}

// ShiftWithJob is a shift joined with its job and client labels for list views
type ShiftWithJob struct {
	Shift
	JobName    *string `json:"job_name" db:"job_name"`
	ClientName *string `json:"client_name" db:"client_name"`
	UserName   *string `json:"user_name" db:"user_name"`
}
