package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"qynex-pulse/internal/middleware"
	"qynex-pulse/internal/models"
	"qynex-pulse/internal/websocket"
	"qynex-pulse/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/jmoiron/sqlx"
)

// AppendBreadcrumbs stores GPS readings for a shift. Accepts a batch so that
// retried writes can piggyback on the next tick. Breadcrumbs are append-only;
// there is no update or delete path.
func AppendBreadcrumbs(db *sqlx.DB, hub *websocket.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userClaims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		shiftID := chi.URLParam(r, "id")

		var req struct {
			Breadcrumbs []struct {
				Latitude   float64  `json:"latitude"`
				Longitude  float64  `json:"longitude"`
				Accuracy   float64  `json:"accuracy"`
				Speed      *float64 `json:"speed"`
				RecordedAt int64    `json:"recorded_at"`
			} `json:"breadcrumbs"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if len(req.Breadcrumbs) == 0 {
			utils.RespondError(w, http.StatusBadRequest, "breadcrumbs array is required")
			return
		}

		var shift models.Shift
		if err := db.Get(&shift, "SELECT * FROM shifts WHERE id = $1", shiftID); err != nil {
			utils.RespondError(w, http.StatusNotFound, "Shift not found")
			return
		}

		if shift.UserID != userClaims.UserID {
			log.Printf("❌ User %s attempted to write breadcrumbs to shift %s owned by %s",
				userClaims.UserID, shiftID, shift.UserID)
			utils.RespondError(w, http.StatusForbidden, "Forbidden")
			return
		}

		now := time.Now().Unix()
		query := `INSERT INTO breadcrumbs (shift_id, latitude, longitude, accuracy, speed, recorded_at, created_at)
				  VALUES ($1, $2, $3, $4, $5, $6, $7)`

		inserted := 0
		for _, b := range req.Breadcrumbs {
			if b.Latitude < -90 || b.Latitude > 90 || b.Longitude < -180 || b.Longitude > 180 {
				log.Printf("⚠️ Rejecting out-of-range breadcrumb (%.4f, %.4f) for shift %s",
					b.Latitude, b.Longitude, shiftID)
				continue
			}

			recordedAt := b.RecordedAt
			if recordedAt == 0 {
				recordedAt = now
			}

			if _, err := db.Exec(query, shiftID, b.Latitude, b.Longitude, b.Accuracy, b.Speed, recordedAt, now); err != nil {
				log.Printf("❌ Error inserting breadcrumb: %v", err)
				utils.RespondError(w, http.StatusInternalServerError, "Failed to store breadcrumbs")
				return
			}
			inserted++
		}

		if inserted > 0 {
			last := req.Breadcrumbs[len(req.Breadcrumbs)-1]
			hub.BroadcastToRole("admin", map[string]interface{}{
				"type": "breadcrumb",
				"data": map[string]interface{}{
					"shift_id":  shiftID,
					"user_id":   shift.UserID,
					"latitude":  last.Latitude,
					"longitude": last.Longitude,
					"speed":     last.Speed,
					"status":    shift.Status,
				},
			})
		}

		utils.RespondData(w, http.StatusCreated, map[string]interface{}{"inserted": inserted})
	}
}

// GetShiftBreadcrumbs returns the full GPS trail of a shift, oldest first.
// Admins can read any trail; workers only their own.
func GetShiftBreadcrumbs(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userClaims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		shiftID := chi.URLParam(r, "id")

		var shift models.Shift
		if err := db.Get(&shift, "SELECT * FROM shifts WHERE id = $1", shiftID); err != nil {
			utils.RespondError(w, http.StatusNotFound, "Shift not found")
			return
		}

		if userClaims.Role != "admin" && shift.UserID != userClaims.UserID {
			utils.RespondError(w, http.StatusForbidden, "Forbidden")
			return
		}

		var breadcrumbs []models.Breadcrumb
		query := `SELECT * FROM breadcrumbs WHERE shift_id = $1 ORDER BY recorded_at ASC`
		if err := db.Select(&breadcrumbs, query, shiftID); err != nil {
			log.Printf("❌ Error fetching breadcrumbs: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Database error")
			return
		}

		utils.RespondData(w, http.StatusOK, breadcrumbs)
	}
}
