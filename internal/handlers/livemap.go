package handlers

import (
	"log"
	"net/http"

	"qynex-pulse/internal/models"
	"qynex-pulse/internal/services"
	"qynex-pulse/pkg/utils"

	"github.com/jmoiron/sqlx"
)

// LiveWorker is one marker on the admin live map
type LiveWorker struct {
	ShiftID     string              `json:"shift_id"`
	UserID      string              `json:"user_id"`
	UserName    string              `json:"user_name"`
	JobName     *string             `json:"job_name"`
	Status      models.ShiftStatus  `json:"status"`
	ClockIn     int64               `json:"clock_in"`
	TotalMiles  float64             `json:"total_miles"`
	Address     *string             `json:"address,omitempty"`
	Breadcrumbs []models.Breadcrumb `json:"breadcrumbs"`
}

// GetLiveMap returns every open shift with its most recent breadcrumbs so the
// admin dashboard can draw worker markers and short trails. The WebSocket
// feed keeps the map fresh between loads; this endpoint is the initial state.
func GetLiveMap(db *sqlx.DB, geocoder *services.GeocodingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		type openShiftRow struct {
			models.Shift
			UserName string  `db:"user_name"`
			JobName  *string `db:"job_name"`
		}

		var rows []openShiftRow
		query := `SELECT s.*, p.name AS user_name, j.name AS job_name
				  FROM shifts s
				  JOIN profiles p ON p.id = s.user_id
				  LEFT JOIN jobs j ON j.id = s.job_id
				  WHERE s.clock_out IS NULL
				  ORDER BY s.clock_in ASC`

		if err := db.Select(&rows, query); err != nil {
			log.Printf("❌ Error fetching open shifts for live map: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Database error")
			return
		}

		workers := make([]LiveWorker, 0, len(rows))
		for _, row := range rows {
			var crumbs []models.Breadcrumb
			crumbQuery := `SELECT * FROM breadcrumbs
						   WHERE shift_id = $1
						   ORDER BY recorded_at DESC
						   LIMIT 5`
			if err := db.Select(&crumbs, crumbQuery, row.ID); err != nil {
				log.Printf("⚠️ Error fetching breadcrumbs for shift %s: %v", row.ID, err)
				crumbs = []models.Breadcrumb{}
			}

			worker := LiveWorker{
				ShiftID:     row.ID,
				UserID:      row.UserID,
				UserName:    row.UserName,
				JobName:     row.JobName,
				Status:      row.Status,
				ClockIn:     row.ClockIn,
				TotalMiles:  row.TotalMiles,
				Breadcrumbs: crumbs,
			}

			// "near 1200 Main St" label from the freshest position
			if geocoder != nil && len(crumbs) > 0 {
				if addr, err := geocoder.ReverseGeocode(crumbs[0].Latitude, crumbs[0].Longitude); err == nil {
					worker.Address = &addr.FormattedAddress
				}
			}

			workers = append(workers, worker)
		}

		utils.RespondData(w, http.StatusOK, workers)
	}
}
