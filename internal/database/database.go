package database

import (
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

func Connect(dbURL string) (*sqlx.DB, error) {
	log.Println("🔌 Connecting to Postgres...")
	db, err := sqlx.Connect("postgres", dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("✅ Database connection established")
	return db, nil
}

func Migrate(db *sqlx.DB) error {
	migrations := []string{
		// Create profiles table (staff + admin accounts)
		`CREATE TABLE IF NOT EXISTS profiles (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			password TEXT NOT NULL,
			name TEXT NOT NULL,
			role TEXT NOT NULL CHECK(role IN ('staff', 'admin')),
			avatar TEXT,
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			updated_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT
		)`,

		// Create clients table
		`CREATE TABLE IF NOT EXISTS clients (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT
		)`,

		// Create locations table
		`CREATE TABLE IF NOT EXISTS locations (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			address TEXT NOT NULL,
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT
		)`,

		// Create jobs table
		`CREATE TABLE IF NOT EXISTS jobs (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'active' CHECK(status IN ('active', 'archived')),
			client_id TEXT,
			location_id TEXT,
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			updated_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			FOREIGN KEY (client_id) REFERENCES clients(id) ON DELETE SET NULL,
			FOREIGN KEY (location_id) REFERENCES locations(id) ON DELETE SET NULL
		)`,

		// Create master tasks table
		`CREATE TABLE IF NOT EXISTS tasks (
			id TEXT PRIMARY KEY,
			task_name TEXT NOT NULL,
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT
		)`,

		// Create shifts table
		`CREATE TABLE IF NOT EXISTS shifts (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			job_id TEXT,
			status TEXT NOT NULL CHECK(status IN ('active', 'driving', 'completed', 'auto_clockout')),
			clock_in BIGINT NOT NULL,
			clock_out BIGINT,
			total_miles DOUBLE PRECISION NOT NULL DEFAULT 0,
			completed_tasks TEXT,
			subtask_note TEXT,
			employee_notes TEXT,
			admin_notes TEXT,
			correction_request TEXT,
			correction_status TEXT NOT NULL DEFAULT 'none'
				CHECK(correction_status IN ('none', 'pending', 'approved', 'rejected', 'pending_addition')),
			requested_start BIGINT,
			requested_end BIGINT,
			requested_job_id TEXT,
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			updated_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			FOREIGN KEY (user_id) REFERENCES profiles(id) ON DELETE CASCADE,
			FOREIGN KEY (job_id) REFERENCES jobs(id) ON DELETE SET NULL,
			CHECK (total_miles >= 0),
			CHECK ((clock_out IS NULL) = (status IN ('active', 'driving')))
		)`,

		// Create breadcrumbs table (append-only GPS trail per shift)
		`CREATE TABLE IF NOT EXISTS breadcrumbs (
			id BIGSERIAL PRIMARY KEY,
			shift_id TEXT NOT NULL,
			latitude DOUBLE PRECISION NOT NULL,
			longitude DOUBLE PRECISION NOT NULL,
			accuracy DOUBLE PRECISION NOT NULL DEFAULT 0,
			speed DOUBLE PRECISION,
			recorded_at BIGINT NOT NULL,
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			FOREIGN KEY (shift_id) REFERENCES shifts(id) ON DELETE CASCADE
		)`,

		// Create schedule_items table
		`CREATE TABLE IF NOT EXISTS schedule_items (
			id TEXT PRIMARY KEY,
			profile_id TEXT NOT NULL,
			day TEXT NOT NULL CHECK(day IN ('monday','tuesday','wednesday','thursday','friday','saturday','sunday')),
			start_time TEXT NOT NULL,
			end_time TEXT NOT NULL,
			role TEXT NOT NULL DEFAULT '',
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			FOREIGN KEY (profile_id) REFERENCES profiles(id) ON DELETE CASCADE
		)`,

		// Create FCM tokens table
		`CREATE TABLE IF NOT EXISTS fcm_tokens (
			id SERIAL PRIMARY KEY,
			user_id TEXT NOT NULL,
			token TEXT NOT NULL UNIQUE,
			device_type TEXT NOT NULL CHECK(device_type IN ('ios', 'android')),
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			updated_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			FOREIGN KEY (user_id) REFERENCES profiles(id) ON DELETE CASCADE
		)`,

		// Create indexes
		`CREATE INDEX IF NOT EXISTS idx_profiles_email ON profiles(email)`,
		`CREATE INDEX IF NOT EXISTS idx_jobs_client_id ON jobs(client_id)`,
		`CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status)`,
		`CREATE INDEX IF NOT EXISTS idx_shifts_user_id ON shifts(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_shifts_status ON shifts(status)`,
		`CREATE INDEX IF NOT EXISTS idx_shifts_clock_in ON shifts(clock_in)`,
		`CREATE INDEX IF NOT EXISTS idx_shifts_correction_status ON shifts(correction_status)`,
		`CREATE INDEX IF NOT EXISTS idx_breadcrumbs_shift_id ON breadcrumbs(shift_id)`,
		`CREATE INDEX IF NOT EXISTS idx_breadcrumbs_recorded_at ON breadcrumbs(shift_id, recorded_at)`,
		`CREATE INDEX IF NOT EXISTS idx_schedule_items_profile_id ON schedule_items(profile_id)`,
		`CREATE INDEX IF NOT EXISTS idx_fcm_tokens_user_id ON fcm_tokens(user_id)`,

		// One open shift per user is enforced by the tracking controller, not
		// the store; this partial index just keeps the lookup cheap.
		`CREATE INDEX IF NOT EXISTS idx_shifts_open ON shifts(user_id) WHERE clock_out IS NULL`,
	}

	for i, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	return nil
}
