package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"pabt.dev/departures/snapshot"
	"pabt.dev/departures/storage"
)

var exportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Writes all stored departures to a CSV snapshot",
	Args:  cobra.ExactArgs(1),
	RunE:  exportSnapshot,
}

func exportSnapshot(cmd *cobra.Command, args []string) error {
	_, s, _, err := setup()
	if err != nil {
		return err
	}
	defer s.Close()

	records, err := s.List(storage.ListFilter{})
	if err != nil {
		return err
	}

	f, err := os.Create(args[0])
	if err != nil {
		return fmt.Errorf("creating %s: %w", args[0], err)
	}
	defer f.Close()

	if err := snapshot.Write(f, records); err != nil {
		return err
	}

	fmt.Printf("wrote %d records to %s\n", len(records), args[0])

	return nil
}
