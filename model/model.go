package model

import (
	"strings"
	"time"
)

// Holds the canonical record types shared by the pipeline, storage
// and board.

// A single scheduled departure from the terminal.
//
// The tuple (Route, Destination, ScheduledAt) identifies the physical
// departure event. It is the uniqueness key in storage: repeated polls
// observing the same event collapse to one stored row, first
// observation wins.
type Departure struct {
	// Short public route code, e.g. "167".
	Route string

	// Full headsign text, e.g. "167 Middletown".
	Destination string

	// Human readable departure time exactly as the API gave it,
	// e.g. "10:05 PM".
	Departs string

	// Lane/gate label. "N/A" when the API omitted it.
	Gate string

	// Scheduled departure instant, wall clock local to the
	// terminal. Never zero in a persisted record.
	ScheduledAt time.Time

	// First whitespace delimited token of Destination. Derived,
	// never taken from upstream.
	RouteVariation string
}

// RouteVariationOf derives the route variation label from a headsign.
func RouteVariationOf(destination string) string {
	fields := strings.Fields(destination)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// Less orders departures by scheduled time, breaking ties on the
// natural key. Identical (Route, Destination, ScheduledAt) tuples
// cannot coexist in storage, so this is a total order over stored
// records.
func Less(a, b Departure) bool {
	if !a.ScheduledAt.Equal(b.ScheduledAt) {
		return a.ScheduledAt.Before(b.ScheduledAt)
	}
	if a.Route != b.Route {
		return a.Route < b.Route
	}
	return a.Destination < b.Destination
}
