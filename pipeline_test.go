package departures_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pabt.dev/departures"
	"pabt.dev/departures/njtransit"
	"pabt.dev/departures/storage"
	"pabt.dev/departures/testutil"
)

type fakeAPI struct {
	token     string
	authErr   error
	payload   []byte
	fetchErr  error
	authCalls int
	fetched   []njtransit.FetchOptions
}

func (f *fakeAPI) Authenticate(_ context.Context) (string, error) {
	f.authCalls++
	if f.authErr != nil {
		return "", f.authErr
	}
	return f.token, nil
}

func (f *fakeAPI) FetchDepartures(_ context.Context, token string, opts njtransit.FetchOptions) ([]byte, error) {
	f.fetched = append(f.fetched, opts)
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.payload, nil
}

func newTestPipeline(t *testing.T, api njtransit.API) (*departures.Pipeline, storage.Storage) {
	s := testutil.BuildStorage(t, "memory")
	p := departures.NewPipeline(api, s, tzET(t))
	return p, s
}

func TestPollFullCycle(t *testing.T) {
	payload := testutil.Payload(t,
		testutil.RawTrip("167", "167 Middletown", "10:05 PM", "210", "11/01/2024 10:05:00 PM"),
		testutil.RawTrip("25", "25 Springfield Ave", "10:30 PM", "31", "11/01/2024 10:30:00 PM"),
	)
	api := &fakeAPI{token: "tok-1", payload: payload}
	p, s := newTestPipeline(t, api)

	res, err := p.Poll(context.Background(), departures.PollOptions{})
	require.NoError(t, err)

	assert.Equal(t, 2, res.Validated)
	assert.Equal(t, 0, res.Rejected)
	assert.Equal(t, 2, res.Inserted)

	require.Len(t, api.fetched, 1)
	assert.Equal(t, "PABT", api.fetched[0].Stop)
	assert.Equal(t, 90, api.fetched[0].HorizonMinutes)

	stored, err := s.List(storage.ListFilter{})
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

func TestPollIdempotent(t *testing.T) {
	payload := testutil.Payload(t,
		testutil.RawTrip("167", "167 Middletown", "10:05 PM", "210", "11/01/2024 10:05:00 PM"),
	)
	api := &fakeAPI{token: "tok-1", payload: payload}
	p, s := newTestPipeline(t, api)

	first, err := p.Poll(context.Background(), departures.PollOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, first.Inserted)

	// Same payload again: validated but nothing new inserted.
	second, err := p.Poll(context.Background(), departures.PollOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, second.Validated)
	assert.Equal(t, 0, second.Inserted)

	stored, err := s.List(storage.ListFilter{})
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestPollAuthFailureTouchesNothing(t *testing.T) {
	authErr := &njtransit.AuthError{Err: assert.AnError}
	api := &fakeAPI{authErr: authErr}
	p, s := newTestPipeline(t, api)

	_, err := p.Poll(context.Background(), departures.PollOptions{})

	var ae *njtransit.AuthError
	require.ErrorAs(t, err, &ae)
	assert.Empty(t, api.fetched)

	stored, err := s.List(storage.ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestPollFetchFailurePropagates(t *testing.T) {
	fetchErr := &njtransit.FetchError{Err: assert.AnError}
	api := &fakeAPI{token: "tok-1", fetchErr: fetchErr}
	p, s := newTestPipeline(t, api)

	_, err := p.Poll(context.Background(), departures.PollOptions{})

	var fe *njtransit.FetchError
	require.ErrorAs(t, err, &fe)

	stored, err := s.List(storage.ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestPollRejectsDoNotAbortBatch(t *testing.T) {
	payload := testutil.Payload(t,
		testutil.RawTrip("167", "167 Middletown", "10:05 PM", "210", "11/01/2024 10:05:00 PM"),
		testutil.RawTrip("25", "25 Springfield Ave", "10:30 PM", "31", "not a timestamp"),
		testutil.RawTrip("", "Missing Route", "10:45 PM", "5", "11/01/2024 10:45:00 PM"),
	)
	api := &fakeAPI{token: "tok-1", payload: payload}
	p, s := newTestPipeline(t, api)

	res, err := p.Poll(context.Background(), departures.PollOptions{})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Validated)
	assert.Equal(t, 2, res.Rejected)
	assert.Equal(t, 1, res.Inserted)

	stored, err := s.List(storage.ListFilter{})
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "167", stored[0].Route)
}

func TestPollEmptyPayload(t *testing.T) {
	api := &fakeAPI{token: "tok-1", payload: []byte(`{"DVTrip": []}`)}
	p, _ := newTestPipeline(t, api)

	res, err := p.Poll(context.Background(), departures.PollOptions{})
	require.NoError(t, err)
	assert.Zero(t, res.Validated)
	assert.Zero(t, res.Inserted)
}

func TestPollMalformedPayloadFails(t *testing.T) {
	api := &fakeAPI{token: "tok-1", payload: []byte(`{"DVTrip": [`)}
	p, s := newTestPipeline(t, api)

	_, err := p.Poll(context.Background(), departures.PollOptions{})
	require.Error(t, err)

	stored, err := s.List(storage.ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestPollPassesCacheOptions(t *testing.T) {
	api := &fakeAPI{token: "tok-1", payload: []byte(`{"DVTrip": []}`)}
	p, _ := newTestPipeline(t, api)

	_, err := p.Poll(context.Background(), departures.PollOptions{
		CacheKey: "bucket-1",
	})
	require.NoError(t, err)

	require.Len(t, api.fetched, 1)
	assert.Equal(t, "bucket-1", api.fetched[0].CacheKey)
	assert.Equal(t, departures.DefaultFetchTTL, api.fetched[0].CacheTTL)
}

func TestTimeBucket(t *testing.T) {
	base := time.Date(2024, 11, 1, 22, 5, 17, 0, time.UTC)

	a := departures.TimeBucket(base, time.Minute)
	b := departures.TimeBucket(base.Add(30*time.Second), time.Minute)
	c := departures.TimeBucket(base.Add(time.Minute), time.Minute)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)

	// Zone representation does not change the bucket.
	loc := tzET(t)
	assert.Equal(t, a, departures.TimeBucket(base.In(loc), time.Minute))
}
