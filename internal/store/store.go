package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// timeLayout is how timestamps are persisted: UTC, sortable as text.
const timeLayout = "2006-01-02 15:04:05"

var (
	ErrNotFound   = errors.New("store: not found")
	ErrEmailTaken = errors.New("store: email already registered")
)

// Store persists users and calculation logs in SQLite.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// New returns a Store backed by db.
func New(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Overview holds the headline numbers of the admin dashboard.
type Overview struct {
	TotalUsers        int
	TotalCalculations int
	CalculationsToday int
	NewUsersThisWeek  int
}

// Overview counts users and calculations relative to now.
// "Today" starts at UTC midnight; "this week" is the trailing seven days.
func (s *Store) Overview(ctx context.Context, now time.Time) (Overview, error) {
	now = now.UTC()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	weekAgo := now.AddDate(0, 0, -7)

	var o Overview
	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM users),
			(SELECT COUNT(*) FROM calculation_logs),
			(SELECT COUNT(*) FROM calculation_logs WHERE created_at >= ?),
			(SELECT COUNT(*) FROM users WHERE created_at >= ?)
	`, FormatTime(startOfDay), FormatTime(weekAgo)).Scan(
		&o.TotalUsers,
		&o.TotalCalculations,
		&o.CalculationsToday,
		&o.NewUsersThisWeek,
	)
	if err != nil {
		return Overview{}, fmt.Errorf("query overview: %w", err)
	}
	return o, nil
}

// FormatTime renders t the way timestamps are persisted.
func FormatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(raw string) (time.Time, error) {
	t, err := time.ParseInLocation(timeLayout, raw, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", raw, err)
	}
	return t, nil
}
