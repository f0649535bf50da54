package models

// Client represents a billing client (parent of jobs)
type Client struct {
	ID        string `json:"id" db:"id"`
	Name      string `json:"name" db:"name"`
	CreatedAt int64  `json:"created_at" db:"created_at"`
}

// Location represents a physical work site
type Location struct {
	ID        string `json:"id" db:"id"`
	Name      string `json:"name" db:"name"`
	Address   string `json:"address" db:"address"`
	CreatedAt int64  `json:"created_at" db:"created_at"`
}

// Job represents a billable project a worker can clock into
type Job struct {
	ID         string  `json:"id" db:"id"`
	Name       string  `json:"name" db:"name"`
	Status     string  `json:"status" db:"status"` // "active" or "archived"
	ClientID   *string `json:"client_id" db:"client_id"`
	LocationID *string `json:"location_id" db:"location_id"`
	CreatedAt  int64   `json:"created_at" db:"created_at"`
	UpdatedAt  int64   `json:"updated_at" db:"updated_at"`
}

// JobWithRelations joins a job with its client and location names
type JobWithRelations struct {
	Job
	ClientName      *string `json:"client_name" db:"client_name"`
	LocationName    *string `json:"location_name" db:"location_name"`
	LocationAddress *string `json:"location_address" db:"location_address"`
}

// TaskItem represents an entry in the master task list
type TaskItem struct {
	ID        string `json:"id" db:"id"`
	TaskName  string `json:"task_name" db:"task_name"`
	CreatedAt int64  `json:"created_at" db:"created_at"`
}
