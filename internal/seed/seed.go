package seed

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Simplici0/primeestate/internal/store"
)

// Config names the back-office account ensured at startup.
type Config struct {
	AdminEmail    string
	AdminPassword string
}

// Stats counts the rows written by Run.
type Stats struct {
	Inserts int
	Updates int
}

// Run ensures the configured admin account exists. Running it again writes nothing.
func Run(db *sql.DB, cfg Config) (Stats, error) {
	tx, err := db.Begin()
	if err != nil {
		return Stats{}, fmt.Errorf("begin seed transaction: %w", err)
	}

	var stats Stats
	if err := seedAdmin(tx, cfg.AdminEmail, cfg.AdminPassword, time.Now().UTC(), &stats); err != nil {
		_ = tx.Rollback()
		return Stats{}, err
	}

	if err := tx.Commit(); err != nil {
		return Stats{}, fmt.Errorf("commit seed transaction: %w", err)
	}

	return stats, nil
}

// seedAdmin creates the admin account, or promotes an existing account with
// the same address. The password of an existing account is left untouched.
func seedAdmin(tx *sql.Tx, email, password string, now time.Time, stats *Stats) error {
	email = store.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil
	}

	var role string
	err := tx.QueryRow(`SELECT role FROM users WHERE email = ?`, email).Scan(&role)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return fmt.Errorf("look up admin %s: %w", email, err)
	case role == store.RoleAdmin:
		return nil
	default:
		if _, err := tx.Exec(`
			UPDATE users
			SET role = ?, updated_at = ?
			WHERE email = ?
		`, store.RoleAdmin, store.FormatTime(now), email); err != nil {
			return fmt.Errorf("promote admin user: %w", err)
		}
		stats.Updates++
		return nil
	}

	hash, err := store.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	if _, err := tx.Exec(`
		INSERT INTO users (id, email, password_hash, role, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, uuid.NewString(), email, hash, store.RoleAdmin, store.FormatTime(now), store.FormatTime(now)); err != nil {
		return fmt.Errorf("insert admin %s: %w", email, err)
	}
	stats.Inserts++
	return nil
}
