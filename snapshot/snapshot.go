package snapshot

import (
	"fmt"
	"io"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"
	"github.com/spkg/bom"

	"pabt.dev/departures/model"
)

// CSV snapshots of the departures store, one row per record. Column
// names match the store schema; timestamps are RFC 3339 so the zone
// survives the round trip.

type recordCSV struct {
	Route          string `csv:"route"`
	Destination    string `csv:"destination"`
	Departs        string `csv:"departs_display"`
	Gate           string `csv:"gate"`
	ScheduledAt    string `csv:"scheduled_departure_at"`
	RouteVariation string `csv:"route_variation"`
}

// Write dumps records to w as CSV.
func Write(w io.Writer, departures []model.Departure) error {
	rows := make([]recordCSV, len(departures))
	for i, d := range departures {
		rows[i] = recordCSV{
			Route:          d.Route,
			Destination:    d.Destination,
			Departs:        d.Departs,
			Gate:           d.Gate,
			ScheduledAt:    d.ScheduledAt.Format(time.RFC3339),
			RouteVariation: d.RouteVariation,
		}
	}

	if err := gocsv.Marshal(rows, w); err != nil {
		return errors.Wrap(err, "marshaling csv")
	}
	return nil
}

// Read loads a snapshot back into canonical records.
//
// Unlike the upstream payload parser this is strict: the snapshot is
// our own format, so a bad row is a corrupt file, not a bad upstream
// record. The route variation is re-derived from the destination
// rather than trusted, keeping it consistent with what storage
// expects.
func Read(r io.Reader) ([]model.Departure, error) {
	// LazyCSVReader survives sloppy quoting, the BOM reader strips
	// unicode BOMs if present.
	gocsv.SetCSVReader(func(in io.Reader) gocsv.CSVReader {
		return gocsv.LazyCSVReader(bom.NewReader(in))
	})

	rows := []*recordCSV{}
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, errors.Wrap(err, "unmarshaling csv")
	}

	departures := make([]model.Departure, 0, len(rows))
	for i, row := range rows {
		if row.Route == "" || row.Destination == "" || row.Departs == "" {
			return nil, fmt.Errorf("missing identity field (row %d)", i+1)
		}

		scheduledAt, err := time.Parse(time.RFC3339, row.ScheduledAt)
		if err != nil {
			return nil, errors.Wrapf(err, "parsing scheduled_departure_at (row %d)", i+1)
		}

		gate := row.Gate
		if gate == "" {
			gate = "N/A"
		}

		departures = append(departures, model.Departure{
			Route:          row.Route,
			Destination:    row.Destination,
			Departs:        row.Departs,
			Gate:           gate,
			ScheduledAt:    scheduledAt,
			RouteVariation: model.RouteVariationOf(row.Destination),
		})
	}

	return departures, nil
}
