package parse

import (
	"time"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"

	"pabt.dev/departures/model"
)

// SchedLayout is the format of the sched_dep_time field. The API
// expresses wall clock time at the terminal, so values are parsed in
// the terminal's zone rather than parsed elsewhere and shifted.
const SchedLayout = "01/02/2006 03:04:05 PM"

type payload struct {
	Trips json.RawMessage `json:"DVTrip"`
}

type tripJSON struct {
	Destination string `json:"header"`
	Route       string `json:"public_route"`
	Departs     string `json:"departuretime"`
	Gate        string `json:"lanegate"`
	SchedDep    string `json:"sched_dep_time"`
}

// Departures converts a raw BUSDV2 payload into canonical records.
//
// An absent payload, or one whose DVTrip field is missing or not a
// list, yields an empty result without error. Individual entries are
// dropped when they lack a headsign, route or display time, or when
// sched_dep_time is missing or unparseable; the second return value
// counts the drops. One bad entry never aborts the batch.
//
// Output order follows payload order, and every returned record has a
// non-zero ScheduledAt.
func Departures(buf []byte, loc *time.Location) ([]model.Departure, int, error) {
	if len(buf) == 0 {
		return nil, 0, nil
	}

	var p payload
	if err := json.Unmarshal(buf, &p); err != nil {
		return nil, 0, errors.Wrap(err, "unmarshaling payload")
	}

	if len(p.Trips) == 0 {
		return nil, 0, nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(p.Trips, &raw); err != nil {
		// DVTrip present but not a list. Same as absent.
		return nil, 0, nil
	}

	departures := []model.Departure{}
	rejected := 0
	for _, entry := range raw {
		var t tripJSON
		if err := json.Unmarshal(entry, &t); err != nil {
			rejected++
			continue
		}

		if t.Destination == "" || t.Route == "" || t.Departs == "" {
			rejected++
			continue
		}

		scheduledAt, err := time.ParseInLocation(SchedLayout, t.SchedDep, loc)
		if err != nil {
			rejected++
			continue
		}

		gate := t.Gate
		if gate == "" {
			gate = "N/A"
		}

		departures = append(departures, model.Departure{
			Route:          t.Route,
			Destination:    t.Destination,
			Departs:        t.Departs,
			Gate:           gate,
			ScheduledAt:    scheduledAt,
			RouteVariation: model.RouteVariationOf(t.Destination),
		})
	}

	return departures, rejected, nil
}
