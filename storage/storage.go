package storage

import (
	"fmt"
	"time"

	"pabt.dev/departures/model"
)

// Storage persists departure records with a uniqueness constraint on
// the natural key (route, destination, scheduled_departure_at).
type Storage interface {
	// Creates the departures table and its natural key constraint
	// if absent. Safe to call repeatedly.
	EnsureSchema() error

	// Inserts a batch of records in a single transaction. Rows
	// whose natural key already exists are silently skipped; there
	// is no update-on-conflict. Returns the number of rows
	// actually inserted. On any non-constraint failure nothing is
	// applied and the whole batch may be retried.
	AppendBatch(departures []model.Departure) (int, error)

	// Retrieves all records matching the given filter. No
	// particular order is guaranteed; readers impose their own.
	List(filter ListFilter) ([]model.Departure, error)

	Close() error
}

// ListFilter bounds a List call. Both bounds are inclusive and apply
// to the scheduled departure time; zero values disable a bound.
type ListFilter struct {
	From time.Time
	To   time.Time
}

// PersistenceError wraps schema and write failures. Batches that fail
// with it have not been applied at all.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
