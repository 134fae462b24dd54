package storage

import (
	"sync"

	"pabt.dev/departures/model"
)

// In memory implementation of Storage below. Enforces the same
// natural key uniqueness as the SQL backends, guarded by a mutex so
// concurrent poll cycles behave like they do against a real database.

type memoryKey struct {
	Route       string
	Destination string
	ScheduledAt string
}

type MemoryStorage struct {
	mutex      sync.Mutex
	departures map[memoryKey]model.Departure
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		departures: map[memoryKey]model.Departure{},
	}
}

func keyOf(d model.Departure) memoryKey {
	return memoryKey{
		Route:       d.Route,
		Destination: d.Destination,
		// UTC nanoseconds, so equal instants collide regardless
		// of the zone they were parsed in.
		ScheduledAt: d.ScheduledAt.UTC().Format("2006-01-02T15:04:05.999999999"),
	}
}

func (s *MemoryStorage) EnsureSchema() error {
	return nil
}

func (s *MemoryStorage) AppendBatch(departures []model.Departure) (int, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	inserted := 0
	for _, d := range departures {
		key := keyOf(d)
		if _, found := s.departures[key]; found {
			continue
		}
		s.departures[key] = d
		inserted++
	}

	return inserted, nil
}

func (s *MemoryStorage) List(filter ListFilter) ([]model.Departure, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	departures := []model.Departure{}
	for _, d := range s.departures {
		if !filter.From.IsZero() && d.ScheduledAt.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && d.ScheduledAt.After(filter.To) {
			continue
		}
		departures = append(departures, d)
	}

	return departures, nil
}

func (s *MemoryStorage) Close() error {
	return nil
}
