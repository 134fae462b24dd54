package njtransit

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
)

const (
	DefaultBaseURL = "https://pcsdata.njtransit.com"
	DefaultTimeout = 30 * time.Second

	authPath       = "/api/BUSDV2/authenticateUser"
	departuresPath = "/api/BUSDV2/getBusDV"
)

// AuthError indicates a failed credential exchange: transport
// failure, non-success status, or a response without a token.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authenticating: %v", e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// FetchError indicates a failed departures fetch.
type FetchError struct {
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetching departures: %v", e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// API is the upstream surface the pipeline depends on.
type API interface {
	// Exchanges the configured credentials for a short lived
	// bearer token. No retries; callers decide retry policy.
	Authenticate(ctx context.Context) (string, error)

	// Fetches the raw departures payload for a stop.
	FetchDepartures(ctx context.Context, token string, opts FetchOptions) ([]byte, error)
}

type FetchOptions struct {
	// Stop identifier, e.g. "PABT".
	Stop string

	// Horizon hint in minutes, sent as the "time" form field. The
	// API caps the effective horizon (observed around 60 minutes)
	// regardless of what is asked for; longer coverage comes from
	// the store accumulating rows across polls.
	HorizonMinutes int

	// If set, the payload is served from and written to the
	// client's cache under this key. Callers pass an explicit
	// key, typically a time bucket.
	CacheKey string
	CacheTTL time.Duration
}

// Client talks to the NJ Transit BUSDV2 API. Construct with NewClient
// and adjust exported fields before first use.
type Client struct {
	BaseURL    string
	Username   string
	Password   string
	HTTPClient *http.Client
	Cache      *Cache
}

func NewClient(username, password string) *Client {
	return &Client{
		BaseURL:    DefaultBaseURL,
		Username:   username,
		Password:   password,
		HTTPClient: &http.Client{Timeout: DefaultTimeout},
		Cache:      NewCache(),
	}
}

func (c *Client) Authenticate(ctx context.Context) (string, error) {
	form := url.Values{}
	form.Set("username", c.Username)
	form.Set("password", c.Password)

	body, err := c.postForm(ctx, authPath, form)
	if err != nil {
		return "", &AuthError{Err: err}
	}

	var resp struct {
		UserToken string `json:"UserToken"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", &AuthError{Err: errors.Wrap(err, "unmarshaling response")}
	}

	if resp.UserToken == "" {
		return "", &AuthError{Err: errors.New("no UserToken in response")}
	}

	return resp.UserToken, nil
}

func (c *Client) FetchDepartures(ctx context.Context, token string, opts FetchOptions) ([]byte, error) {
	// A missing token can't succeed, so fail before any network
	// I/O is attempted.
	if token == "" {
		return nil, &FetchError{Err: errors.New("missing token")}
	}

	if opts.CacheKey != "" && c.Cache != nil {
		if body, ok := c.Cache.Get(opts.CacheKey); ok {
			return body, nil
		}
	}

	form := url.Values{}
	form.Set("token", token)
	form.Set("stop", opts.Stop)
	if opts.HorizonMinutes > 0 {
		form.Set("time", strconv.Itoa(opts.HorizonMinutes))
	}

	body, err := c.postForm(ctx, departuresPath, form)
	if err != nil {
		return nil, &FetchError{Err: err}
	}

	if opts.CacheKey != "" && c.Cache != nil {
		c.Cache.Put(opts.CacheKey, body, opts.CacheTTL)
	}

	return body, nil
}

func (c *Client) postForm(ctx context.Context, path string, form url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(
		ctx,
		"POST",
		c.BaseURL+path,
		strings.NewReader(form.Encode()),
	)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("making request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}

	return body, nil
}
