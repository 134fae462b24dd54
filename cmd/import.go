package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"pabt.dev/departures/snapshot"
)

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Loads a CSV snapshot into the store",
	Long:  "Loads a CSV snapshot into the store. Records already present are skipped, so re-importing is safe.",
	Args:  cobra.ExactArgs(1),
	RunE:  importSnapshot,
}

func importSnapshot(cmd *cobra.Command, args []string) error {
	_, s, _, err := setup()
	if err != nil {
		return err
	}
	defer s.Close()

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("opening %s: %w", args[0], err)
	}
	defer f.Close()

	records, err := snapshot.Read(f)
	if err != nil {
		return err
	}

	inserted, err := s.AppendBatch(records)
	if err != nil {
		return err
	}

	fmt.Printf("imported %d records (%d new)\n", len(records), inserted)

	return nil
}
