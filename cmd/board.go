package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"pabt.dev/departures"
	"pabt.dev/departures/storage"
)

var boardCmd = &cobra.Command{
	Use:   "board",
	Short: "Prints the departure board from accumulated records",
	RunE:  board,
}

var boardWindow time.Duration

func init() {
	boardCmd.Flags().DurationVarP(&boardWindow, "window", "W", 0, "Time window (default from config)")
}

func board(cmd *cobra.Command, args []string) error {
	cfg, s, _, err := setup()
	if err != nil {
		return err
	}
	defer s.Close()

	loc, err := loadLocation(cfg.Board)
	if err != nil {
		return err
	}

	records, err := s.List(storage.ListFilter{})
	if err != nil {
		return err
	}

	window := boardWindow
	if window == 0 {
		window = time.Duration(cfg.Board.WindowMinutes) * time.Minute
	}

	b := departures.BuildBoard(records, time.Now(), window, cfg.Board.GroupCap, loc)

	if b.Total == 0 {
		fmt.Println("no departure data available")
		return nil
	}

	for _, row := range b.Rows {
		fmt.Printf("%-5s %-24s next: %-28s gates: %s\n",
			row.Route, row.RouteVariation, row.NextDepartures, row.Gates)
	}

	fmt.Printf("\n%d departures within %s across %d routes\n", b.Windowed, window, len(b.Rows))
	if !b.LastUpdated.IsZero() {
		fmt.Printf("last updated: %s\n", b.LastUpdated.Format("2006-01-02 03:04:05 PM"))
	}

	return nil
}
