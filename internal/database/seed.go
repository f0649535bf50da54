package database

import (
	"log"
	"os"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
)

// SeedAdmin creates the initial admin account if no profiles exist yet.
// Credentials come from SEED_ADMIN_EMAIL / SEED_ADMIN_PASSWORD.
func SeedAdmin(db *sqlx.DB) error {
	var count int
	if err := db.Get(&count, "SELECT COUNT(*) FROM profiles"); err != nil {
		return err
	}

	if count > 0 {
		log.Println("✓ Profiles already seeded, skipping...")
		return nil
	}

	email := os.Getenv("SEED_ADMIN_EMAIL")
	if email == "" {
		email = "admin@qynex.com"
	}
	password := os.Getenv("SEED_ADMIN_PASSWORD")
	if password == "" {
		password = "changeme"
		log.Println("⚠️  SEED_ADMIN_PASSWORD not set, using default (change it!)")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	query := `INSERT INTO profiles (id, email, password, name, role)
			  VALUES ($1, $2, $3, $4, 'admin')
			  ON CONFLICT (email) DO NOTHING`

	if _, err := db.Exec(query, uuid.NewString(), email, string(hash), "Admin User"); err != nil {
		return err
	}

	log.Printf("🌱 Seeded admin account: %s", email)
	return nil
}
