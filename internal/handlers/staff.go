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
	"golang.org/x/crypto/bcrypt"
)

// GetStaff returns all profiles (admin only)
func GetStaff(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var profiles []models.Profile
		query := `SELECT * FROM profiles ORDER BY name ASC`

		if err := db.Select(&profiles, query); err != nil {
			log.Printf("❌ Error fetching staff: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Database error")
			return
		}

		responses := make([]models.ProfileResponse, len(profiles))
		for i, p := range profiles {
			responses[i] = p.ToProfileResponse()
		}

		utils.RespondData(w, http.StatusOK, responses)
	}
}

// CreateStaff creates a new staff or admin account (admin only)
func CreateStaff(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email    string `json:"email"`
			Password string `json:"password"`
			Name     string `json:"name"`
			Role     string `json:"role"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		if req.Email == "" || req.Password == "" || req.Name == "" {
			utils.RespondError(w, http.StatusBadRequest, "email, password and name are required")
			return
		}
		if req.Role == "" {
			req.Role = "staff"
		}
		if req.Role != "staff" && req.Role != "admin" {
			utils.RespondError(w, http.StatusBadRequest, "role must be staff or admin")
			return
		}

		hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			log.Printf("❌ Error hashing password: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to create account")
			return
		}

		now := time.Now().Unix()
		profile := models.Profile{
			ID:        uuid.New().String(),
			Email:     req.Email,
			Password:  string(hashed),
			Name:      req.Name,
			Role:      req.Role,
			CreatedAt: now,
			UpdatedAt: now,
		}

		query := `INSERT INTO profiles (id, email, password, name, role, created_at, updated_at)
				  VALUES ($1, $2, $3, $4, $5, $6, $7)`

		if _, err := db.Exec(query, profile.ID, profile.Email, profile.Password, profile.Name, profile.Role, now, now); err != nil {
			log.Printf("❌ Error creating staff account: %v", err)
			utils.RespondError(w, http.StatusConflict, "Email already registered")
			return
		}

		log.Printf("✅ Staff account created: %s (%s)", profile.Email, profile.Role)
		utils.RespondData(w, http.StatusCreated, profile.ToProfileResponse())
	}
}

// UpdateStaff updates a profile's name, role or password (admin only)
func UpdateStaff(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		profileID := chi.URLParam(r, "id")

		var req struct {
			Name     *string `json:"name"`
			Role     *string `json:"role"`
			Password *string `json:"password"`
			Avatar   *string `json:"avatar"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		var profile models.Profile
		if err := db.Get(&profile, "SELECT * FROM profiles WHERE id = $1", profileID); err != nil {
			utils.RespondError(w, http.StatusNotFound, "Profile not found")
			return
		}

		if req.Name != nil {
			profile.Name = *req.Name
		}
		if req.Role != nil {
			if *req.Role != "staff" && *req.Role != "admin" {
				utils.RespondError(w, http.StatusBadRequest, "role must be staff or admin")
				return
			}
			profile.Role = *req.Role
		}
		if req.Avatar != nil {
			profile.Avatar = req.Avatar
		}
		if req.Password != nil && *req.Password != "" {
			hashed, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
			if err != nil {
				utils.RespondError(w, http.StatusInternalServerError, "Failed to update password")
				return
			}
			profile.Password = string(hashed)
		}

		now := time.Now().Unix()
		query := `UPDATE profiles
				  SET name = $1, role = $2, password = $3, avatar = $4, updated_at = $5
				  WHERE id = $6`

		if _, err := db.Exec(query, profile.Name, profile.Role, profile.Password, profile.Avatar, now, profileID); err != nil {
			log.Printf("❌ Error updating profile: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to update profile")
			return
		}

		log.Printf("✅ Profile updated: %s", profileID)
		utils.RespondData(w, http.StatusOK, profile.ToProfileResponse())
	}
}

// DeleteStaff removes a profile (admin only). The shifts foreign key
// cascades, so this wipes the account's timesheet history too; the dashboard
// warns before calling it.
func DeleteStaff(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		profileID := chi.URLParam(r, "id")

		userClaims, _ := middleware.GetUserFromContext(r)
		if userClaims.UserID == profileID {
			utils.RespondError(w, http.StatusBadRequest, "Cannot delete your own account")
			return
		}

		result, err := db.Exec("DELETE FROM profiles WHERE id = $1", profileID)
		if err != nil {
			log.Printf("❌ Error deleting profile: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to delete profile")
			return
		}

		rowsAffected, _ := result.RowsAffected()
		if rowsAffected == 0 {
			utils.RespondError(w, http.StatusNotFound, "Profile not found")
			return
		}

		log.Printf("🗑️  Profile deleted: %s", profileID)
		utils.RespondData(w, http.StatusOK, map[string]interface{}{"deleted": true})
	}
}
