package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"qynex-pulse/internal/middleware"
	"qynex-pulse/internal/models"
	"qynex-pulse/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var validDays = map[string]bool{
	"monday": true, "tuesday": true, "wednesday": true, "thursday": true,
	"friday": true, "saturday": true, "sunday": true,
}

// GetSchedule returns the weekly schedule. Workers get their own entries;
// admins get everyone's.
func GetSchedule(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userClaims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		var items []models.ScheduleItem
		var err error

		if userClaims.Role == "admin" {
			err = db.Select(&items, `SELECT * FROM schedule_items ORDER BY profile_id, day, start_time`)
		} else {
			err = db.Select(&items, `SELECT * FROM schedule_items WHERE profile_id = $1 ORDER BY day, start_time`, userClaims.UserID)
		}

		if err != nil {
			log.Printf("❌ Error fetching schedule: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Database error")
			return
		}

		utils.RespondData(w, http.StatusOK, items)
	}
}

// CreateScheduleItem adds a planned shift to the weekly schedule (admin only)
func CreateScheduleItem(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ProfileID string `json:"profile_id"`
			Day       string `json:"day"`
			StartTime string `json:"start_time"`
			EndTime   string `json:"end_time"`
			Role      string `json:"role"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		if req.ProfileID == "" || req.StartTime == "" || req.EndTime == "" {
			utils.RespondError(w, http.StatusBadRequest, "profile_id, start_time and end_time are required")
			return
		}
		if !validDays[req.Day] {
			utils.RespondError(w, http.StatusBadRequest, "day must be monday..sunday")
			return
		}

		item := models.ScheduleItem{
			ID:        uuid.New().String(),
			ProfileID: req.ProfileID,
			Day:       req.Day,
			StartTime: req.StartTime,
			EndTime:   req.EndTime,
			Role:      req.Role,
			CreatedAt: time.Now().Unix(),
		}

		query := `INSERT INTO schedule_items (id, profile_id, day, start_time, end_time, role, created_at)
				  VALUES ($1, $2, $3, $4, $5, $6, $7)`

		if _, err := db.Exec(query, item.ID, item.ProfileID, item.Day, item.StartTime, item.EndTime, item.Role, item.CreatedAt); err != nil {
			log.Printf("❌ Error creating schedule item: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to create schedule item")
			return
		}

		utils.RespondData(w, http.StatusCreated, item)
	}
}

// DeleteScheduleItem removes a planned shift (admin only)
func DeleteScheduleItem(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		itemID := chi.URLParam(r, "id")

		result, err := db.Exec("DELETE FROM schedule_items WHERE id = $1", itemID)
		if err != nil {
			log.Printf("❌ Error deleting schedule item: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to delete schedule item")
			return
		}

		rowsAffected, _ := result.RowsAffected()
		if rowsAffected == 0 {
			utils.RespondError(w, http.StatusNotFound, "Schedule item not found")
			return
		}

		utils.RespondData(w, http.StatusOK, map[string]interface{}{"deleted": true})
	}
}
