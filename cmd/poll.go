package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"pabt.dev/departures"
	"pabt.dev/departures/njtransit"
)

var pollCmd = &cobra.Command{
	Use:   "poll",
	Short: "Runs one poll cycle against the upstream API",
	RunE:  poll,
}

var noCache bool

func init() {
	pollCmd.Flags().BoolVarP(&noCache, "no-cache", "", false, "Bypass the fetch cache")
}

func poll(cmd *cobra.Command, args []string) error {
	cfg, s, logger, err := setup()
	if err != nil {
		return err
	}
	defer s.Close()

	loc, err := loadLocation(cfg.Board)
	if err != nil {
		return err
	}

	client := njtransit.NewClient(cfg.Upstream.Username, cfg.Upstream.Password)
	client.BaseURL = cfg.Upstream.BaseURL

	pipeline := departures.NewPipeline(client, s, loc)
	pipeline.Stop = cfg.Upstream.Stop
	pipeline.HorizonMinutes = cfg.Upstream.HorizonMinutes
	pipeline.Logger = logger

	opts := departures.PollOptions{}
	if !noCache {
		opts.CacheKey = departures.TimeBucket(time.Now(), cfg.Upstream.FetchTTL)
		opts.CacheTTL = cfg.Upstream.FetchTTL
	}

	res, err := pipeline.Poll(cmd.Context(), opts)
	if err != nil {
		return err
	}

	fmt.Printf("validated=%d rejected=%d inserted=%d\n", res.Validated, res.Rejected, res.Inserted)

	return nil
}
