package departures

import (
	"sort"
	"strings"
	"time"

	"pabt.dev/departures/model"
)

const (
	DefaultWindow   = 15 * time.Minute
	DefaultGroupCap = 3
)

// One summary line on the departure board: a route family and its
// next few departures.
type BoardRow struct {
	RouteVariation string
	Route          string

	// Comma joined display times of the capped departures, in
	// chronological order.
	NextDepartures string

	// Comma joined gates, aligned with NextDepartures.
	Gates string
}

type Board struct {
	Rows []BoardRow

	// Records with a scheduled departure inside the requested
	// window.
	Windowed int

	// Records considered regardless of window. Zero means the
	// store held no data at all, which is distinct from an empty
	// window over a populated store.
	Total int

	// Latest scheduled departure seen in the input, serving as a
	// "last updated" hint for display.
	LastUpdated time.Time
}

// BuildBoard computes the live view over a snapshot of stored
// records. It is pure: no I/O, no retained state, safe to call
// concurrently over the same slice.
//
// The window [now, now+window] (inclusive both ends) selects which
// (routeVariation, route) groups appear. For every shown group the
// board then lists its next departures at or after now, even ones
// past the window end, capped at groupCap per group.
//
// Rows sort on the joined display string, not on actual time, so
// cross-row order follows the AM/PM text. Only the list within a row
// is chronological.
func BuildBoard(
	records []model.Departure,
	now time.Time,
	window time.Duration,
	groupCap int,
	loc *time.Location,
) Board {
	board := Board{Total: len(records)}

	if loc != nil {
		now = now.In(loc)
	}
	end := now.Add(window)

	// Stored timestamps are zone aware already; this projects them
	// into the display zone, it never re-parses.
	localized := make([]model.Departure, len(records))
	for i, rec := range records {
		if loc != nil {
			rec.ScheduledAt = rec.ScheduledAt.In(loc)
		}
		localized[i] = rec
		if board.LastUpdated.Before(rec.ScheduledAt) {
			board.LastUpdated = rec.ScheduledAt
		}
	}

	windowed := []model.Departure{}
	for _, rec := range localized {
		if rec.ScheduledAt.Before(now) || rec.ScheduledAt.After(end) {
			continue
		}
		windowed = append(windowed, rec)
	}
	board.Windowed = len(windowed)
	if len(windowed) == 0 {
		return board
	}

	type group struct {
		RouteVariation string
		Route          string
	}

	shown := map[group]bool{}
	for _, rec := range windowed {
		shown[group{rec.RouteVariation, rec.Route}] = true
	}

	// Expand each shown group to all its upcoming departures, in
	// or out of the window. Past departures never qualify.
	byGroup := map[group][]model.Departure{}
	for _, rec := range localized {
		if rec.ScheduledAt.Before(now) {
			continue
		}
		g := group{rec.RouteVariation, rec.Route}
		if !shown[g] {
			continue
		}
		byGroup[g] = append(byGroup[g], rec)
	}

	rows := make([]BoardRow, 0, len(byGroup))
	for g, members := range byGroup {
		sort.SliceStable(members, func(i, j int) bool {
			return model.Less(members[i], members[j])
		})
		if groupCap > 0 && len(members) > groupCap {
			members = members[:groupCap]
		}

		times := make([]string, len(members))
		gates := make([]string, len(members))
		for i, m := range members {
			times[i] = m.Departs
			gates[i] = m.Gate
		}

		rows = append(rows, BoardRow{
			RouteVariation: g.RouteVariation,
			Route:          g.Route,
			NextDepartures: strings.Join(times, ", "),
			Gates:          strings.Join(gates, ", "),
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].NextDepartures != rows[j].NextDepartures {
			return rows[i].NextDepartures < rows[j].NextDepartures
		}
		return rows[i].Route < rows[j].Route
	})

	board.Rows = rows
	return board
}
