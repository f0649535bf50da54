package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"qynex-pulse/internal/models"
	"qynex-pulse/internal/services"
	"qynex-pulse/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// GetClients returns all billing clients
func GetClients(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var clients []models.Client
		if err := db.Select(&clients, `SELECT * FROM clients ORDER BY name ASC`); err != nil {
			log.Printf("❌ Error fetching clients: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Database error")
			return
		}

		utils.RespondData(w, http.StatusOK, clients)
	}
}

// CreateClient creates a billing client (admin only)
func CreateClient(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Name string `json:"name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if req.Name == "" {
			utils.RespondError(w, http.StatusBadRequest, "name is required")
			return
		}

		client := models.Client{
			ID:        uuid.New().String(),
			Name:      req.Name,
			CreatedAt: time.Now().Unix(),
		}

		if _, err := db.Exec(`INSERT INTO clients (id, name, created_at) VALUES ($1, $2, $3)`,
			client.ID, client.Name, client.CreatedAt); err != nil {
			log.Printf("❌ Error creating client: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to create client")
			return
		}

		log.Printf("✅ Client created: %s", client.Name)
		utils.RespondData(w, http.StatusCreated, client)
	}
}

// DeleteClient removes a billing client (admin only)
func DeleteClient(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clientID := chi.URLParam(r, "id")

		// Jobs keep their rows; the FK nulls out client_id
		result, err := db.Exec("DELETE FROM clients WHERE id = $1", clientID)
		if err != nil {
			log.Printf("❌ Error deleting client: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to delete client")
			return
		}

		rowsAffected, _ := result.RowsAffected()
		if rowsAffected == 0 {
			utils.RespondError(w, http.StatusNotFound, "Client not found")
			return
		}

		utils.RespondData(w, http.StatusOK, map[string]interface{}{"deleted": true})
	}
}

// GetLocations returns all work sites
func GetLocations(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var locations []models.Location
		if err := db.Select(&locations, `SELECT * FROM locations ORDER BY name ASC`); err != nil {
			log.Printf("❌ Error fetching locations: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Database error")
			return
		}

		utils.RespondData(w, http.StatusOK, locations)
	}
}

// CreateLocation creates a work site (admin only). If a geocoding service is
// configured the address is normalized through it first.
func CreateLocation(db *sqlx.DB, geocoder *services.GeocodingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Name    string `json:"name"`
			Address string `json:"address"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if req.Name == "" || req.Address == "" {
			utils.RespondError(w, http.StatusBadRequest, "name and address are required")
			return
		}

		address := req.Address
		if geocoder != nil {
			if resolved, err := geocoder.Geocode(req.Address); err == nil {
				address = resolved.FormattedAddress
			} else {
				log.Printf("⚠️ Geocoding failed for %q, storing raw address: %v", req.Address, err)
			}
		}

		location := models.Location{
			ID:        uuid.New().String(),
			Name:      req.Name,
			Address:   address,
			CreatedAt: time.Now().Unix(),
		}

		if _, err := db.Exec(`INSERT INTO locations (id, name, address, created_at) VALUES ($1, $2, $3, $4)`,
			location.ID, location.Name, location.Address, location.CreatedAt); err != nil {
			log.Printf("❌ Error creating location: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to create location")
			return
		}

		log.Printf("✅ Location created: %s (%s)", location.Name, location.Address)
		utils.RespondData(w, http.StatusCreated, location)
	}
}

// DeleteLocation removes a work site (admin only)
func DeleteLocation(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		locationID := chi.URLParam(r, "id")

		result, err := db.Exec("DELETE FROM locations WHERE id = $1", locationID)
		if err != nil {
			log.Printf("❌ Error deleting location: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to delete location")
			return
		}

		rowsAffected, _ := result.RowsAffected()
		if rowsAffected == 0 {
			utils.RespondError(w, http.StatusNotFound, "Location not found")
			return
		}

		utils.RespondData(w, http.StatusOK, map[string]interface{}{"deleted": true})
	}
}
