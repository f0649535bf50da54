package handlers

import (
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
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

// GetOpenShift returns the caller's open shift, or null data when clocked out.
// The mobile app calls this on launch to re-adopt a session that survived an
// app restart.
func GetOpenShift(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userClaims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		var shift models.Shift
		query := `SELECT * FROM shifts
				  WHERE user_id = $1 AND clock_out IS NULL
				  ORDER BY clock_in DESC
				  LIMIT 1`

		err := db.Get(&shift, query, userClaims.UserID)
		if err == sql.ErrNoRows {
			utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
				"success": true,
				"data":    nil,
			})
			return
		}
		if err != nil {
			log.Printf("❌ Error getting open shift: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Database error")
			return
		}

		utils.RespondData(w, http.StatusOK, shift)
	}
}

// CreateShift clocks the caller in. One open shift per worker; a second
// create while one is open is a client-side bug and gets a 409.
func CreateShift(db *sqlx.DB, hub *websocket.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Printf("📥 REQUEST: POST /api/shifts")

		userClaims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		log.Printf("   User: %s (%s)", userClaims.Email, userClaims.UserID)

		var req struct {
			JobID   *string `json:"job_id"`
			ClockIn *int64  `json:"clock_in"`
		}
		if r.Body != nil {
			// Empty body is fine, clock_in defaults to now
			json.NewDecoder(r.Body).Decode(&req)
		}

		var existing models.Shift
		existingQuery := `SELECT * FROM shifts WHERE user_id = $1 AND clock_out IS NULL LIMIT 1`
		if err := db.Get(&existing, existingQuery, userClaims.UserID); err == nil {
			log.Printf("⚠️  Clock-in rejected, shift %s already open", existing.ID)
			utils.RespondError(w, http.StatusConflict, "You already have an open shift")
			return
		}

		now := time.Now().Unix()
		clockIn := now
		if req.ClockIn != nil && *req.ClockIn > 0 {
			clockIn = *req.ClockIn
		}

		shift := models.Shift{
			ID:               uuid.New().String(),
			UserID:           userClaims.UserID,
			JobID:            req.JobID,
			Status:           models.ShiftStatusActive,
			ClockIn:          clockIn,
			TotalMiles:       0,
			CorrectionStatus: models.CorrectionNone,
			CreatedAt:        now,
			UpdatedAt:        now,
		}

		query := `INSERT INTO shifts (id, user_id, job_id, status, clock_in, total_miles, correction_status, created_at, updated_at)
				  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

		if _, err := db.Exec(query, shift.ID, shift.UserID, shift.JobID, shift.Status,
			shift.ClockIn, shift.TotalMiles, shift.CorrectionStatus, now, now); err != nil {
			log.Printf("❌ Error creating shift: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to create shift")
			return
		}

		hub.BroadcastToRole("admin", map[string]interface{}{
			"type": "shift_started",
			"data": map[string]interface{}{
				"shift_id": shift.ID,
				"user_id":  shift.UserID,
				"clock_in": shift.ClockIn,
			},
		})

		log.Printf("✅ Shift started: %s (%s)", shift.ID, userClaims.Email)
		utils.RespondData(w, http.StatusCreated, shift)
	}
}

// UpdateShift applies a partial update to a shift. Workers may only touch
// their own shifts; admins may touch any. This is the write path for every
// mid-shift sync: mileage totals, driving/active flips, clock-out, job
// coding and notes.
func UpdateShift(db *sqlx.DB, hub *websocket.Hub, fcm *services.FCMService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userClaims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		shiftID := chi.URLParam(r, "id")

		var req struct {
			Status         *string  `json:"status"`
			ClockOut       *int64   `json:"clock_out"`
			TotalMiles     *float64 `json:"total_miles"`
			JobID          *string  `json:"job_id"`
			CompletedTasks *string  `json:"completed_tasks"`
			SubtaskNote    *string  `json:"subtask_note"`
			EmployeeNotes  *string  `json:"employee_notes"`
			AdminNotes     *string  `json:"admin_notes"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		var shift models.Shift
		if err := db.Get(&shift, "SELECT * FROM shifts WHERE id = $1", shiftID); err != nil {
			utils.RespondError(w, http.StatusNotFound, "Shift not found")
			return
		}

		if userClaims.Role != "admin" && shift.UserID != userClaims.UserID {
			log.Printf("❌ User %s attempted to update shift %s owned by %s", userClaims.UserID, shiftID, shift.UserID)
			utils.RespondError(w, http.StatusForbidden, "Forbidden")
			return
		}

		if req.AdminNotes != nil && userClaims.Role != "admin" {
			utils.RespondError(w, http.StatusForbidden, "Only admins can set admin notes")
			return
		}

		statusChanged := false
		if req.Status != nil {
			newStatus := models.ShiftStatus(*req.Status)
			if !newStatus.Valid() {
				utils.RespondError(w, http.StatusBadRequest, "Invalid status")
				return
			}
			statusChanged = newStatus != shift.Status
			shift.Status = newStatus
		}
		if req.ClockOut != nil {
			shift.ClockOut = req.ClockOut
			// Clock-out without an explicit terminal status means worker-initiated
			if shift.Status.Open() {
				shift.Status = models.ShiftStatusCompleted
			}
		}
		if req.TotalMiles != nil {
			if *req.TotalMiles < 0 {
				utils.RespondError(w, http.StatusBadRequest, "total_miles cannot be negative")
				return
			}
			shift.TotalMiles = *req.TotalMiles
		}
		if req.JobID != nil {
			shift.JobID = req.JobID
		}
		if req.CompletedTasks != nil {
			shift.CompletedTasks = req.CompletedTasks
		}
		if req.SubtaskNote != nil {
			shift.SubtaskNote = req.SubtaskNote
		}
		if req.EmployeeNotes != nil {
			shift.EmployeeNotes = req.EmployeeNotes
		}
		if req.AdminNotes != nil {
			shift.AdminNotes = req.AdminNotes
		}

		// Terminal statuses must carry a clock_out, the schema enforces it
		if !shift.Status.Open() && shift.ClockOut == nil {
			now := time.Now().Unix()
			shift.ClockOut = &now
		}

		now := time.Now().Unix()
		query := `UPDATE shifts
				  SET status = $1, clock_out = $2, total_miles = $3, job_id = $4,
					  completed_tasks = $5, subtask_note = $6, employee_notes = $7,
					  admin_notes = $8, updated_at = $9
				  WHERE id = $10`

		if _, err := db.Exec(query, shift.Status, shift.ClockOut, shift.TotalMiles, shift.JobID,
			shift.CompletedTasks, shift.SubtaskNote, shift.EmployeeNotes, shift.AdminNotes,
			now, shiftID); err != nil {
			log.Printf("❌ Error updating shift: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to update shift")
			return
		}

		if statusChanged {
			hub.BroadcastToRole("admin", map[string]interface{}{
				"type": "shift_status_changed",
				"data": map[string]interface{}{
					"shift_id": shift.ID,
					"user_id":  shift.UserID,
					"status":   shift.Status,
				},
			})
		}

		// Auto clock-out can arrive from the tracker while the phone app is
		// backgrounded; push so the worker finds out
		if statusChanged && shift.Status == models.ShiftStatusAutoClockout {
			hub.BroadcastToUser(shift.UserID, map[string]interface{}{
				"type": "auto_clockout",
				"data": map[string]interface{}{
					"shift_id": shift.ID,
					"message":  "Shift automatically clocked out: no GPS signal for over 5 minutes",
				},
			})
			notifyAutoClockout(db, fcm, shift.UserID, shift.ID)
		}

		log.Printf("✅ Shift updated: %s (status: %s, miles: %.2f)", shift.ID, shift.Status, shift.TotalMiles)
		utils.RespondData(w, http.StatusOK, shift)
	}
}

// notifyAutoClockout sends an FCM push to every device the worker registered
func notifyAutoClockout(db *sqlx.DB, fcm *services.FCMService, userID, shiftID string) {
	if fcm == nil {
		return
	}

	var tokens []string
	if err := db.Select(&tokens, `SELECT token FROM fcm_tokens WHERE user_id = $1`, userID); err != nil {
		log.Printf("⚠️ Failed to load FCM tokens for %s: %v", userID, err)
		return
	}

	for _, token := range tokens {
		if err := fcm.SendAutoClockoutNotification(token, shiftID); err != nil {
			log.Printf("⚠️ FCM auto-clockout push failed: %v", err)
		}
	}
}

// GetShiftHistory returns the caller's past shifts, newest first
func GetShiftHistory(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userClaims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		limit := 100
		if raw := r.URL.Query().Get("limit"); raw != "" {
			if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 500 {
				limit = parsed
			}
		}

		query := `SELECT s.*, j.name AS job_name, c.name AS client_name, p.name AS user_name
				  FROM shifts s
				  LEFT JOIN jobs j ON j.id = s.job_id
				  LEFT JOIN clients c ON c.id = j.client_id
				  LEFT JOIN profiles p ON p.id = s.user_id
				  WHERE s.user_id = $1
				  ORDER BY s.clock_in DESC
				  LIMIT $2`

		var shifts []models.ShiftWithJob
		if err := db.Select(&shifts, query, userClaims.UserID, limit); err != nil {
			log.Printf("❌ Error fetching shift history: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to fetch shift history")
			return
		}

		utils.RespondData(w, http.StatusOK, shifts)
	}
}

// ListShifts returns shifts across all workers for the admin timesheet view.
// Supports ?user_id=, ?from= and ?to= (epoch seconds) filters.
func ListShifts(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := `SELECT s.*, j.name AS job_name, c.name AS client_name, p.name AS user_name
				  FROM shifts s
				  LEFT JOIN jobs j ON j.id = s.job_id
				  LEFT JOIN clients c ON c.id = j.client_id
				  LEFT JOIN profiles p ON p.id = s.user_id
				  WHERE 1=1`

		args := []interface{}{}
		argN := 1

		if userID := r.URL.Query().Get("user_id"); userID != "" {
			query += ` AND s.user_id = $` + strconv.Itoa(argN)
			args = append(args, userID)
			argN++
		}
		if from := r.URL.Query().Get("from"); from != "" {
			if ts, err := strconv.ParseInt(from, 10, 64); err == nil {
				query += ` AND s.clock_in >= $` + strconv.Itoa(argN)
				args = append(args, ts)
				argN++
			}
		}
		if to := r.URL.Query().Get("to"); to != "" {
			if ts, err := strconv.ParseInt(to, 10, 64); err == nil {
				query += ` AND s.clock_in <= $` + strconv.Itoa(argN)
				args = append(args, ts)
				argN++
			}
		}

		query += ` ORDER BY s.clock_in DESC LIMIT 500`

		var shifts []models.ShiftWithJob
		if err := db.Select(&shifts, query, args...); err != nil {
			log.Printf("❌ Error listing shifts: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Database error")
			return
		}

		utils.RespondData(w, http.StatusOK, shifts)
	}
}
