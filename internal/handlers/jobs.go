package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"qynex-pulse/internal/models"
	"qynex-pulse/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// GetJobs returns jobs joined with client and location labels. Workers see
// active jobs only; admins can pass ?include_archived=true.
func GetJobs(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		includeArchived := r.URL.Query().Get("include_archived") == "true"

		query := `SELECT j.*, c.name AS client_name, l.name AS location_name, l.address AS location_address
				  FROM jobs j
				  LEFT JOIN clients c ON c.id = j.client_id
				  LEFT JOIN locations l ON l.id = j.location_id`
		if !includeArchived {
			query += ` WHERE j.status = 'active'`
		}
		query += ` ORDER BY j.name ASC`

		var jobs []models.JobWithRelations
		if err := db.Select(&jobs, query); err != nil {
			log.Printf("❌ Error fetching jobs: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Database error")
			return
		}

		utils.RespondData(w, http.StatusOK, jobs)
	}
}

// CreateJob creates a new job (admin only)
func CreateJob(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Name       string  `json:"name"`
			ClientID   *string `json:"client_id"`
			LocationID *string `json:"location_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if req.Name == "" {
			utils.RespondError(w, http.StatusBadRequest, "name is required")
			return
		}

		now := time.Now().Unix()
		job := models.Job{
			ID:         uuid.New().String(),
			Name:       req.Name,
			Status:     "active",
			ClientID:   req.ClientID,
			LocationID: req.LocationID,
			CreatedAt:  now,
			UpdatedAt:  now,
		}

		query := `INSERT INTO jobs (id, name, status, client_id, location_id, created_at, updated_at)
				  VALUES ($1, $2, $3, $4, $5, $6, $7)`

		if _, err := db.Exec(query, job.ID, job.Name, job.Status, job.ClientID, job.LocationID, now, now); err != nil {
			log.Printf("❌ Error creating job: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to create job")
			return
		}

		log.Printf("✅ Job created: %s (%s)", job.Name, job.ID)
		utils.RespondData(w, http.StatusCreated, job)
	}
}

// UpdateJob updates a job's name, relations or archive status (admin only)
func UpdateJob(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobID := chi.URLParam(r, "id")

		var req struct {
			Name       *string `json:"name"`
			Status     *string `json:"status"`
			ClientID   *string `json:"client_id"`
			LocationID *string `json:"location_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		var job models.Job
		if err := db.Get(&job, "SELECT * FROM jobs WHERE id = $1", jobID); err != nil {
			utils.RespondError(w, http.StatusNotFound, "Job not found")
			return
		}

		if req.Name != nil {
			job.Name = *req.Name
		}
		if req.Status != nil {
			if *req.Status != "active" && *req.Status != "archived" {
				utils.RespondError(w, http.StatusBadRequest, "status must be active or archived")
				return
			}
			job.Status = *req.Status
		}
		if req.ClientID != nil {
			job.ClientID = req.ClientID
		}
		if req.LocationID != nil {
			job.LocationID = req.LocationID
		}

		now := time.Now().Unix()
		query := `UPDATE jobs
				  SET name = $1, status = $2, client_id = $3, location_id = $4, updated_at = $5
				  WHERE id = $6`

		if _, err := db.Exec(query, job.Name, job.Status, job.ClientID, job.LocationID, now, jobID); err != nil {
			log.Printf("❌ Error updating job: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to update job")
			return
		}

		utils.RespondData(w, http.StatusOK, job)
	}
}

// GetJobTasks returns the master task list
func GetJobTasks(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var tasks []models.TaskItem
		if err := db.Select(&tasks, `SELECT * FROM tasks ORDER BY task_name ASC`); err != nil {
			log.Printf("❌ Error fetching tasks: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Database error")
			return
		}

		utils.RespondData(w, http.StatusOK, tasks)
	}
}

// CreateTask adds an entry to the master task list (admin only)
func CreateTask(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			TaskName string `json:"task_name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if req.TaskName == "" {
			utils.RespondError(w, http.StatusBadRequest, "task_name is required")
			return
		}

		task := models.TaskItem{
			ID:        uuid.New().String(),
			TaskName:  req.TaskName,
			CreatedAt: time.Now().Unix(),
		}

		if _, err := db.Exec(`INSERT INTO tasks (id, task_name, created_at) VALUES ($1, $2, $3)`,
			task.ID, task.TaskName, task.CreatedAt); err != nil {
			log.Printf("❌ Error creating task: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to create task")
			return
		}

		utils.RespondData(w, http.StatusCreated, task)
	}
}

// DeleteTask removes a master task list entry (admin only)
func DeleteTask(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		taskID := chi.URLParam(r, "id")

		result, err := db.Exec("DELETE FROM tasks WHERE id = $1", taskID)
		if err != nil {
			log.Printf("❌ Error deleting task: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to delete task")
			return
		}

		rowsAffected, _ := result.RowsAffected()
		if rowsAffected == 0 {
			utils.RespondError(w, http.StatusNotFound, "Task not found")
			return
		}

		utils.RespondData(w, http.StatusOK, map[string]interface{}{"deleted": true})
	}
}
