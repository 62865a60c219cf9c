package pollen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// API resource paths under the pollenrapporten base URL.
const (
	forecastsPath        = "/v1/forecasts"
	regionsPath          = "/v1/regions"
	pollenTypesPath      = "/v1/pollen-types"
	levelDefinitionsPath = "/v1/pollen-level-definitions"
)

const defaultTimeout = 10 * time.Second

// maxErrorBody bounds how much of an error response body is kept in a
// StatusError.
const maxErrorBody = 4096

// BackoffConfig controls exponential backoff behaviour for upstream requests.
type BackoffConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// ClientConfig bundles the settings for a Client. Zero values get sensible
// defaults: a 10-second HTTP timeout, the real clock, a nop logger, and a
// 3-attempt backoff schedule.
type ClientConfig struct {
	BaseURL    string
	RegionID   string
	HTTPClient *http.Client
	Backoff    BackoffConfig
	Clock      clockwork.Clock
	Logger     *zap.SugaredLogger
}

// Client fetches pollen data from the pollenrapporten API. Regions and
// pollen types change rarely upstream, so successful fetches of those are
// cached for the lifetime of the Client with no TTL or invalidation.
type Client struct {
	baseURL  string
	regionID string
	http     *http.Client
	backoff  BackoffConfig
	circuit  *gobreaker.CircuitBreaker
	clock    clockwork.Clock
	log      *zap.SugaredLogger

	mu          sync.RWMutex
	regions     RegionCatalog
	pollenTypes PollenTypeCatalog
}

// NewClient creates a pollenrapporten API client for the given region.
func NewClient(cfg ClientConfig) *Client {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: defaultTimeout}
	}
	if cfg.Backoff.MaxRetries == 0 && cfg.Backoff.InitialInterval == 0 {
		cfg.Backoff = BackoffConfig{
			MaxRetries:      3,
			InitialInterval: 500 * time.Millisecond,
			MaxInterval:     5 * time.Second,
		}
	}
	if cfg.Backoff.InitialInterval <= 0 {
		cfg.Backoff.InitialInterval = time.Millisecond
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop().Sugar()
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "pollenrapporten",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})

	return &Client{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		regionID: cfg.RegionID,
		http:     cfg.HTTPClient,
		backoff:  cfg.Backoff,
		circuit:  cb,
		clock:    cfg.Clock,
		log:      cfg.Logger,
	}
}

// RegionID returns the region this client is configured for.
func (c *Client) RegionID() string {
	return c.regionID
}

// FetchForecast fetches the current forecast for the configured region and
// reduces its level series to today's levels. Entries whose time field does
// not contain today's local calendar date are dropped; when several entries
// for the same pollen type match, the last one wins.
//
// All failures are escalated: timeouts, connection errors, 4xx/5xx statuses,
// empty bodies, missing items, and unparseable payloads.
func (c *Client) FetchForecast(ctx context.Context) (ForecastPayload, error) {
	query := url.Values{}
	query.Set("region_id", c.regionID)
	query.Set("current", "true")

	resp, err := c.doGet(ctx, forecastsPath, query)
	if err != nil {
		return ForecastPayload{}, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return ForecastPayload{}, classify(err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return ForecastPayload{}, ErrEmptyResponse
	}

	var payload forecastResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return ForecastPayload{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if len(payload.Items) == 0 {
		return ForecastPayload{}, ErrNoItems
	}

	// Upstream returns at most one current forecast per region.
	item := payload.Items[0]

	today := c.clock.Now().Format("2006-01-02")
	levels := make(map[string]int)
	for _, entry := range item.LevelSeries {
		if entry.PollenID == "" || entry.Level == nil {
			continue
		}
		if !strings.Contains(entry.Time, today) {
			continue
		}
		levels[entry.PollenID] = *entry.Level
	}

	return ForecastPayload{
		StartDate: item.StartDate,
		EndDate:   item.EndDate,
		Text:      item.Text,
		Levels:    levels,
	}, nil
}

// FetchRegions returns the region catalog, cached for the lifetime of the
// client after the first successful fetch. A non-200 status or a response
// without an items key yields an empty catalog and no error: region listing
// can legitimately be sparse and callers degrade gracefully. Timeouts,
// connection failures, and unparseable bodies are still escalated.
func (c *Client) FetchRegions(ctx context.Context) (RegionCatalog, error) {
	c.mu.RLock()
	cached := c.regions
	c.mu.RUnlock()
	if len(cached) > 0 {
		return cached, nil
	}

	resp, err := c.doGet(ctx, regionsPath, nil)
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) {
			c.log.Warnw("regions request failed", "status", se.Status)
			return RegionCatalog{}, nil
		}
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.log.Warnw("regions request returned unexpected status", "status", resp.StatusCode)
		return RegionCatalog{}, nil
	}

	var payload catalogResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if payload.Items == nil {
		c.log.Warn("regions response has no items key")
		return RegionCatalog{}, nil
	}

	regions := make(RegionCatalog, len(payload.Items))
	for _, item := range payload.Items {
		regions[item.ID] = item.Name
	}
	if len(regions) == 0 {
		// Valid but degraded; leave the cache empty so a later call retries.
		return regions, nil
	}

	c.mu.Lock()
	c.regions = regions
	c.mu.Unlock()
	return regions, nil
}

// FetchPollenTypes returns the pollen type catalog, cached for the lifetime
// of the client after the first successful fetch. Unlike regions, an empty
// result is always an error — even a 200 with zero items — because a
// measurement list with no entries is useless to the consumer. Failed
// fetches are never cached.
func (c *Client) FetchPollenTypes(ctx context.Context) (PollenTypeCatalog, error) {
	c.mu.RLock()
	cached := c.pollenTypes
	c.mu.RUnlock()
	if len(cached) > 0 {
		return cached, nil
	}

	resp, err := c.doGet(ctx, pollenTypesPath, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classify(err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, ErrEmptyResponse
	}

	var payload catalogResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if payload.Items == nil {
		return nil, fmt.Errorf("%w: no items key in pollen types response", ErrMalformed)
	}

	types := make(PollenTypeCatalog, len(payload.Items))
	for _, item := range payload.Items {
		types[item.ID] = item.Name
	}
	if len(types) == 0 {
		return nil, ErrNoPollenTypes
	}

	c.mu.Lock()
	c.pollenTypes = types
	c.mu.Unlock()
	return types, nil
}

// FetchLevelDefinitions fetches the level description catalog. It is
// best-effort: any failure is logged and yields an empty catalog, never an
// error. Callers fall back to a generic label for unknown levels.
func (c *Client) FetchLevelDefinitions(ctx context.Context) LevelDefinitionCatalog {
	defs := LevelDefinitionCatalog{}

	resp, err := c.doGet(ctx, levelDefinitionsPath, nil)
	if err != nil {
		c.log.Warnw("level definitions fetch failed", "error", err)
		return defs
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.log.Warnw("level definitions fetch returned unexpected status", "status", resp.StatusCode)
		return defs
	}

	var payload levelDefinitionResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		c.log.Warnw("level definitions parse failed", "error", err)
		return defs
	}

	for _, item := range payload.Items {
		defs[item.Level] = item.Name
	}
	return defs
}

// doGet executes a GET with retries, exponential backoff, and a circuit
// breaker. Responses with status >= 400 become a *StatusError; only rate
// limiting and 5xx are retried. The returned response body is unread.
func (c *Client) doGet(ctx context.Context, path string, query url.Values) (*http.Response, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var attempt int
	for {
		if err := ctx.Err(); err != nil {
			return nil, classify(err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		result, err := c.circuit.Execute(func() (interface{}, error) {
			resp, execErr := c.http.Do(req)
			if execErr != nil {
				return nil, classify(execErr)
			}
			if resp.StatusCode >= 400 {
				body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
				resp.Body.Close()
				return nil, &StatusError{
					Status: resp.StatusCode,
					Body:   strings.TrimSpace(string(body)),
				}
			}
			return resp, nil
		})
		if err == nil {
			return result.(*http.Response), nil
		}

		// An open circuit means the upstream is down; do not wait it out here.
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", ErrTransport, err)
		}

		if !retryable(err) || attempt >= c.backoff.MaxRetries {
			return nil, err
		}

		delay := c.backoff.InitialInterval * time.Duration(math.Pow(2, float64(attempt)))
		if c.backoff.MaxInterval > 0 && delay > c.backoff.MaxInterval {
			delay = c.backoff.MaxInterval
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, classify(ctx.Err())
		case <-timer.C:
		}

		attempt++
	}
}

// Wire types for the pollenrapporten API.

type forecastResponse struct {
	Items []forecastItem `json:"items"`
}

type forecastItem struct {
	StartDate   string       `json:"startDate"`
	EndDate     string       `json:"endDate"`
	Text        string       `json:"text"`
	LevelSeries []levelEntry `json:"levelSeries"`
}

type levelEntry struct {
	Time     string `json:"time"`
	PollenID string `json:"pollenId"`
	Level    *int   `json:"level"`
}

type catalogResponse struct {
	Items []catalogItem `json:"items"`
}

type catalogItem struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type levelDefinitionResponse struct {
	Items []levelDefinitionItem `json:"items"`
}

type levelDefinitionItem struct {
	Level int    `json:"level"`
	Name  string `json:"name"`
}
