package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"qynex-pulse/internal/middleware"
	"qynex-pulse/internal/models"
	"qynex-pulse/internal/services"
	"qynex-pulse/internal/websocket"
	"qynex-pulse/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// RequestCorrection lets a worker ask for their shift times to be fixed, or
// for a missed shift to be added after the fact (shift_id omitted).
func RequestCorrection(db *sqlx.DB, hub *websocket.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userClaims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		var req struct {
			ShiftID        *string `json:"shift_id"`
			Reason         string  `json:"reason"`
			RequestedStart *int64  `json:"requested_start"`
			RequestedEnd   *int64  `json:"requested_end"`
			RequestedJobID *string `json:"requested_job_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if req.Reason == "" {
			utils.RespondError(w, http.StatusBadRequest, "reason is required")
			return
		}
		if req.RequestedStart != nil && req.RequestedEnd != nil && *req.RequestedEnd <= *req.RequestedStart {
			utils.RespondError(w, http.StatusBadRequest, "requested_end must be after requested_start")
			return
		}

		now := time.Now().Unix()

		if req.ShiftID == nil {
			// Missed-shift addition: a placeholder shift carries the request
			// until an admin approves or rejects it
			if req.RequestedStart == nil || req.RequestedEnd == nil {
				utils.RespondError(w, http.StatusBadRequest, "requested_start and requested_end are required for shift additions")
				return
			}

			shiftID := uuid.New().String()
			query := `INSERT INTO shifts (id, user_id, job_id, status, clock_in, clock_out, total_miles,
						correction_request, correction_status, requested_start, requested_end, requested_job_id,
						created_at, updated_at)
					  VALUES ($1, $2, $3, 'completed', $4, $5, 0, $6, $7, $4, $5, $3, $8, $8)`

			if _, err := db.Exec(query, shiftID, userClaims.UserID, req.RequestedJobID,
				*req.RequestedStart, *req.RequestedEnd, req.Reason, models.CorrectionPendingAddition, now); err != nil {
				log.Printf("❌ Error creating shift addition request: %v", err)
				utils.RespondError(w, http.StatusInternalServerError, "Failed to create request")
				return
			}

			hub.BroadcastToRole("admin", map[string]interface{}{
				"type": "correction_requested",
				"data": map[string]interface{}{"shift_id": shiftID, "user_id": userClaims.UserID},
			})

			log.Printf("✅ Shift addition requested by %s (shift %s)", userClaims.Email, shiftID)
			utils.RespondData(w, http.StatusCreated, map[string]interface{}{"shift_id": shiftID})
			return
		}

		var shift models.Shift
		if err := db.Get(&shift, "SELECT * FROM shifts WHERE id = $1", *req.ShiftID); err != nil {
			utils.RespondError(w, http.StatusNotFound, "Shift not found")
			return
		}
		if shift.UserID != userClaims.UserID {
			utils.RespondError(w, http.StatusForbidden, "Forbidden")
			return
		}
		if shift.CorrectionStatus == models.CorrectionPending {
			utils.RespondError(w, http.StatusConflict, "A correction is already pending for this shift")
			return
		}

		query := `UPDATE shifts
				  SET correction_request = $1, correction_status = $2,
					  requested_start = $3, requested_end = $4, requested_job_id = $5,
					  updated_at = $6
				  WHERE id = $7`

		if _, err := db.Exec(query, req.Reason, models.CorrectionPending,
			req.RequestedStart, req.RequestedEnd, req.RequestedJobID, now, shift.ID); err != nil {
			log.Printf("❌ Error saving correction request: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to save request")
			return
		}

		hub.BroadcastToRole("admin", map[string]interface{}{
			"type": "correction_requested",
			"data": map[string]interface{}{"shift_id": shift.ID, "user_id": shift.UserID},
		})

		log.Printf("✅ Correction requested for shift %s by %s", shift.ID, userClaims.Email)
		utils.RespondData(w, http.StatusOK, map[string]interface{}{"shift_id": shift.ID})
	}
}

// GetPendingCorrections returns shifts awaiting an admin decision
func GetPendingCorrections(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := `SELECT s.*, j.name AS job_name, c.name AS client_name, p.name AS user_name
				  FROM shifts s
				  LEFT JOIN jobs j ON j.id = s.job_id
				  LEFT JOIN clients c ON c.id = j.client_id
				  LEFT JOIN profiles p ON p.id = s.user_id
				  WHERE s.correction_status IN ($1, $2)
				  ORDER BY s.updated_at ASC`

		var shifts []models.ShiftWithJob
		if err := db.Select(&shifts, query, models.CorrectionPending, models.CorrectionPendingAddition); err != nil {
			log.Printf("❌ Error fetching pending corrections: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Database error")
			return
		}

		utils.RespondData(w, http.StatusOK, shifts)
	}
}

// DecideCorrection approves or rejects a pending correction (admin only).
// Approval applies the requested times to the shift; a rejected addition
// request deletes the placeholder shift.
func DecideCorrection(db *sqlx.DB, hub *websocket.Hub, fcm *services.FCMService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		shiftID := chi.URLParam(r, "id")

		var req struct {
			Decision string `json:"decision"` // "approved" or "rejected"
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if req.Decision != models.CorrectionApproved && req.Decision != models.CorrectionRejected {
			utils.RespondError(w, http.StatusBadRequest, "decision must be approved or rejected")
			return
		}

		var shift models.Shift
		if err := db.Get(&shift, "SELECT * FROM shifts WHERE id = $1", shiftID); err != nil {
			utils.RespondError(w, http.StatusNotFound, "Shift not found")
			return
		}
		if shift.CorrectionStatus != models.CorrectionPending && shift.CorrectionStatus != models.CorrectionPendingAddition {
			utils.RespondError(w, http.StatusConflict, "No pending correction on this shift")
			return
		}

		now := time.Now().Unix()
		isAddition := shift.CorrectionStatus == models.CorrectionPendingAddition

		if req.Decision == models.CorrectionRejected && isAddition {
			// The placeholder shift only existed to carry the request
			if _, err := db.Exec("DELETE FROM breadcrumbs WHERE shift_id = $1", shiftID); err != nil {
				log.Printf("⚠️ Error clearing breadcrumbs for rejected addition: %v", err)
			}
			if _, err := db.Exec("DELETE FROM shifts WHERE id = $1", shiftID); err != nil {
				log.Printf("❌ Error deleting rejected shift addition: %v", err)
				utils.RespondError(w, http.StatusInternalServerError, "Failed to apply decision")
				return
			}
		} else if req.Decision == models.CorrectionApproved {
			if shift.RequestedStart != nil {
				shift.ClockIn = *shift.RequestedStart
			}
			if shift.RequestedEnd != nil {
				shift.ClockOut = shift.RequestedEnd
			}
			if shift.RequestedJobID != nil {
				shift.JobID = shift.RequestedJobID
			}

			query := `UPDATE shifts
					  SET clock_in = $1, clock_out = $2, job_id = $3,
						  correction_status = $4, updated_at = $5
					  WHERE id = $6`

			if _, err := db.Exec(query, shift.ClockIn, shift.ClockOut, shift.JobID,
				models.CorrectionApproved, now, shiftID); err != nil {
				log.Printf("❌ Error applying correction: %v", err)
				utils.RespondError(w, http.StatusInternalServerError, "Failed to apply decision")
				return
			}
		} else {
			query := `UPDATE shifts SET correction_status = $1, updated_at = $2 WHERE id = $3`
			if _, err := db.Exec(query, models.CorrectionRejected, now, shiftID); err != nil {
				log.Printf("❌ Error rejecting correction: %v", err)
				utils.RespondError(w, http.StatusInternalServerError, "Failed to apply decision")
				return
			}
		}

		hub.BroadcastToUser(shift.UserID, map[string]interface{}{
			"type": "correction_decision",
			"data": map[string]interface{}{
				"shift_id": shiftID,
				"decision": req.Decision,
			},
		})

		if fcm != nil {
			var tokens []string
			if err := db.Select(&tokens, `SELECT token FROM fcm_tokens WHERE user_id = $1`, shift.UserID); err == nil {
				for _, token := range tokens {
					if err := fcm.SendCorrectionDecisionNotification(token, shiftID, req.Decision); err != nil {
						log.Printf("⚠️ FCM correction push failed: %v", err)
					}
				}
			}
		}

		log.Printf("✅ Correction %s for shift %s", req.Decision, shiftID)
		utils.RespondData(w, http.StatusOK, map[string]interface{}{
			"shift_id": shiftID,
			"decision": req.Decision,
		})
	}
}
