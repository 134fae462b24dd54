package departures

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"pabt.dev/departures/njtransit"
	"pabt.dev/departures/parse"
	"pabt.dev/departures/storage"
)

const (
	DefaultStop           = "PABT"
	DefaultHorizonMinutes = 90
	DefaultFetchTTL       = 60 * time.Second
)

// Pipeline runs one ingestion cycle: authenticate, fetch the raw
// departure payload, normalize it, and append it to storage. The
// steps run sequentially and block; callers decide scheduling.
//
// The read path (BuildBoard) shares nothing with Pipeline beyond the
// store, so polls and board reads can run independently.
type Pipeline struct {
	Client         njtransit.API
	Storage        storage.Storage
	Location       *time.Location
	Stop           string
	HorizonMinutes int
	Logger         zerolog.Logger
}

func NewPipeline(client njtransit.API, s storage.Storage, loc *time.Location) *Pipeline {
	return &Pipeline{
		Client:         client,
		Storage:        s,
		Location:       loc,
		Stop:           DefaultStop,
		HorizonMinutes: DefaultHorizonMinutes,
		Logger:         zerolog.Nop(),
	}
}

type PollOptions struct {
	// Cache key for the fetch, typically a time bucket from
	// TimeBucket. Leave blank to bypass the cache.
	CacheKey string

	// TTL for a cached payload. Defaults to DefaultFetchTTL when
	// a cache key is given.
	CacheTTL time.Duration
}

// Outcome of a successful poll cycle. Validated + Rejected equals the
// number of trip entries in the payload; Inserted counts rows the
// store had not seen before.
type PollResult struct {
	Validated int
	Rejected  int
	Inserted  int
}

// Poll runs one cycle. On failure the store is left untouched (auth
// and fetch failures happen before any write, and the batch write is
// atomic), so a failed cycle is always safe to retry.
func (p *Pipeline) Poll(ctx context.Context, opts PollOptions) (PollResult, error) {
	var res PollResult

	token, err := p.Client.Authenticate(ctx)
	if err != nil {
		return res, err
	}

	ttl := opts.CacheTTL
	if opts.CacheKey != "" && ttl == 0 {
		ttl = DefaultFetchTTL
	}

	payload, err := p.Client.FetchDepartures(ctx, token, njtransit.FetchOptions{
		Stop:           p.Stop,
		HorizonMinutes: p.HorizonMinutes,
		CacheKey:       opts.CacheKey,
		CacheTTL:       ttl,
	})
	if err != nil {
		return res, err
	}

	records, rejected, err := parse.Departures(payload, p.Location)
	if err != nil {
		return res, errors.Wrap(err, "parsing payload")
	}
	res.Validated = len(records)
	res.Rejected = rejected

	if rejected > 0 {
		p.Logger.Warn().
			Int("rejected", rejected).
			Msg("dropped malformed trip entries")
	}

	inserted, err := p.Storage.AppendBatch(records)
	if err != nil {
		return res, err
	}
	res.Inserted = inserted

	p.Logger.Info().
		Str("stop", p.Stop).
		Int("validated", res.Validated).
		Int("rejected", res.Rejected).
		Int("inserted", res.Inserted).
		Msg("poll cycle complete")

	return res, nil
}

// TimeBucket renders t truncated to ttl, for use as a fetch cache
// key. Two polls within the same bucket share one upstream call.
func TimeBucket(t time.Time, ttl time.Duration) string {
	if ttl <= 0 {
		ttl = DefaultFetchTTL
	}
	return t.UTC().Truncate(ttl).Format(time.RFC3339)
}
