package storage

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"pabt.dev/departures/model"
)

type SQLiteConfig struct {
	OnDisk    bool
	Directory string
}

type SQLiteStorage struct {
	SQLiteConfig

	db *sql.DB
}

func NewSQLiteStorage(cfg ...SQLiteConfig) (*SQLiteStorage, error) {
	onDisk := false
	directory := ""
	if len(cfg) > 0 {
		onDisk = cfg[0].OnDisk
		directory = cfg[0].Directory
	}

	sourceName := ":memory:"
	if onDisk {
		sourceName = directory + "/departures.db"
	}

	db, err := sql.Open("sqlite3", sourceName)
	if err != nil {
		return nil, &PersistenceError{Op: "opening database", Err: err}
	}

	return &SQLiteStorage{
		SQLiteConfig: SQLiteConfig{
			OnDisk:    onDisk,
			Directory: directory,
		},
		db: db,
	}, nil
}

func (s *SQLiteStorage) EnsureSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS departures (
    route TEXT NOT NULL,
    destination TEXT NOT NULL,
    departs_display TEXT NOT NULL,
    gate TEXT NOT NULL,
    scheduled_departure_at TIMESTAMP NOT NULL,
    route_variation TEXT NOT NULL,
PRIMARY KEY (route, destination, scheduled_departure_at)
);`)
	if err != nil {
		return &PersistenceError{Op: "creating departures table", Err: err}
	}
	return nil
}

func (s *SQLiteStorage) AppendBatch(departures []model.Departure) (int, error) {
	if len(departures) == 0 {
		return 0, nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, &PersistenceError{Op: "starting transaction", Err: err}
	}

	stmt, err := tx.Prepare(`
INSERT INTO departures (route, destination, departs_display, gate, scheduled_departure_at, route_variation)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (route, destination, scheduled_departure_at) DO NOTHING`)
	if err != nil {
		tx.Rollback()
		return 0, &PersistenceError{Op: "preparing departure insert", Err: err}
	}

	inserted := 0
	for _, d := range departures {
		res, err := stmt.Exec(
			d.Route,
			d.Destination,
			d.Departs,
			d.Gate,
			d.ScheduledAt,
			d.RouteVariation,
		)
		if err != nil {
			stmt.Close()
			tx.Rollback()
			return 0, &PersistenceError{Op: "inserting departure", Err: err}
		}
		n, err := res.RowsAffected()
		if err != nil {
			stmt.Close()
			tx.Rollback()
			return 0, &PersistenceError{Op: "inserting departure", Err: err}
		}
		inserted += int(n)
	}

	stmt.Close()
	if err := tx.Commit(); err != nil {
		return 0, &PersistenceError{Op: "committing transaction", Err: err}
	}

	return inserted, nil
}

func (s *SQLiteStorage) List(filter ListFilter) ([]model.Departure, error) {
	query := `
SELECT
    route,
    destination,
    departs_display,
    gate,
    scheduled_departure_at,
    route_variation
FROM departures`

	conditions := []string{}
	params := []interface{}{}
	if !filter.From.IsZero() {
		conditions = append(conditions, "scheduled_departure_at >= ?")
		params = append(params, filter.From)
	}
	if !filter.To.IsZero() {
		conditions = append(conditions, "scheduled_departure_at <= ?")
		params = append(params, filter.To)
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	rows, err := s.db.Query(query, params...)
	if err != nil {
		return nil, &PersistenceError{Op: "querying departures", Err: err}
	}
	defer rows.Close()

	departures := []model.Departure{}
	for rows.Next() {
		var d model.Departure
		err := rows.Scan(
			&d.Route,
			&d.Destination,
			&d.Departs,
			&d.Gate,
			&d.ScheduledAt,
			&d.RouteVariation,
		)
		if err != nil {
			return nil, &PersistenceError{Op: "scanning departure", Err: err}
		}
		departures = append(departures, d)
	}
	if err := rows.Err(); err != nil {
		return nil, &PersistenceError{Op: "scanning departures", Err: err}
	}

	return departures, nil
}

func (s *SQLiteStorage) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("closing database: %w", err)
	}
	return nil
}
