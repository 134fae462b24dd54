package storage

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/lib/pq"

	"pabt.dev/departures/model"
)

type PSQLStorage struct {
	db *sql.DB
}

// Creates a new Postgres Storage using the provided connection string.
//
// If clearDB is true, the departures table is dropped on startup. You
// probably only want this for testing.
func NewPSQLStorage(connStr string, clearDB bool) (*PSQLStorage, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, &PersistenceError{Op: "opening database", Err: err}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, &PersistenceError{Op: "pinging database", Err: err}
	}

	if clearDB {
		_, err = db.Exec(`DROP TABLE IF EXISTS departures;`)
		if err != nil {
			db.Close()
			return nil, &PersistenceError{Op: "clearing database", Err: err}
		}
	}

	return &PSQLStorage{
		db: db,
	}, nil
}

func (s *PSQLStorage) EnsureSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS departures (
    route TEXT NOT NULL,
    destination TEXT NOT NULL,
    departs_display TEXT NOT NULL,
    gate TEXT NOT NULL,
    scheduled_departure_at TIMESTAMPTZ NOT NULL,
    route_variation TEXT NOT NULL,
    PRIMARY KEY (route, destination, scheduled_departure_at)
);`)
	if err != nil {
		return &PersistenceError{Op: "creating departures table", Err: err}
	}
	return nil
}

func (s *PSQLStorage) AppendBatch(departures []model.Departure) (int, error) {
	if len(departures) == 0 {
		return 0, nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, &PersistenceError{Op: "starting transaction", Err: err}
	}

	stmt, err := tx.Prepare(`
INSERT INTO departures (route, destination, departs_display, gate, scheduled_departure_at, route_variation)
VALUES ($1, $2, $3, $4, $5, $6)
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

func (s *PSQLStorage) List(filter ListFilter) ([]model.Departure, error) {
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
	paramCount := 1
	if !filter.From.IsZero() {
		conditions = append(conditions, fmt.Sprintf("scheduled_departure_at >= $%d", paramCount))
		params = append(params, filter.From)
		paramCount++
	}
	if !filter.To.IsZero() {
		conditions = append(conditions, fmt.Sprintf("scheduled_departure_at <= $%d", paramCount))
		params = append(params, filter.To)
		paramCount++
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

func (s *PSQLStorage) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("closing database: %w", err)
	}
	return nil
}
