// Package upstream talks to the public mempool.space API.
package upstream

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	json "github.com/goccy/go-json"

	"mempool-backend/config"
	"mempool-backend/internal/models"
	"mempool-backend/internal/simulate"
)

// ErrUpstream is the collapsed failure for any of the three upstream calls.
// Callers never learn which endpoint failed; a fetch either yields a whole
// snapshot or nothing.
var ErrUpstream = errors.New("upstream fetch failed")

// Client fetches fee recommendations, the mempool summary and the difficulty
// adjustment, and folds them into one NetworkSnapshot.
type Client struct {
	cfg        config.UpstreamConfig
	httpClient *http.Client
	gen        *simulate.Generator
}

// NewClient creates a client with a bounded-timeout HTTP transport shared by
// all three endpoints.
func NewClient(cfg config.UpstreamConfig, gen *simulate.Generator) *Client {
	return &Client{
		cfg: cfg,
		gen: gen,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

type feeResponse struct {
	FastestFee  int64 `json:"fastestFee"`
	HalfHourFee int64 `json:"halfHourFee"`
	HourFee     int64 `json:"hourFee"`
	MinimumFee  int64 `json:"minimumFee"`
}

type mempoolResponse struct {
	Count int64 `json:"count"`
	Vsize int64 `json:"vsize"`
}

// difficultyResponse tolerates absent fields: the live difficulty-adjustment
// endpoint does not always carry them, in which case the default-snapshot
// constants are used.
type difficultyResponse struct {
	Difficulty *int64  `json:"difficulty"`
	Time       *string `json:"time"`
}

// Result is a successful fetch: the snapshot plus the simulated volume that
// accompanies it. Volume is demo data, never an upstream measurement.
type Result struct {
	Snapshot models.NetworkSnapshot
	Volume   float64
}

// Fetch issues the three GETs and normalizes the responses. If any call
// fails (network error, non-2xx status, malformed body, timeout) the whole
// fetch fails with an error wrapping ErrUpstream; there is no partial
// snapshot.
func (c *Client) Fetch(ctx context.Context) (Result, error) {
	var fees feeResponse
	if err := c.getJSON(ctx, c.cfg.FeesURL, &fees); err != nil {
		return Result{}, fmt.Errorf("%w: fees: %v", ErrUpstream, err)
	}

	var mp mempoolResponse
	if err := c.getJSON(ctx, c.cfg.MempoolURL, &mp); err != nil {
		return Result{}, fmt.Errorf("%w: mempool: %v", ErrUpstream, err)
	}

	var diff difficultyResponse
	if err := c.getJSON(ctx, c.cfg.DifficultyURL, &diff); err != nil {
		return Result{}, fmt.Errorf("%w: difficulty: %v", ErrUpstream, err)
	}

	now := time.Now().UTC()

	difficulty := models.DefaultDifficulty
	if diff.Difficulty != nil {
		difficulty = *diff.Difficulty
	}
	adjustmentTime := now.Format(time.RFC3339)
	if diff.Time != nil {
		adjustmentTime = *diff.Time
	}

	snapshot := models.NetworkSnapshot{
		Fees: models.Fees{
			FastestFee:  fees.FastestFee,
			HalfHourFee: fees.HalfHourFee,
			HourFee:     fees.HourFee,
			MinimumFee:  fees.MinimumFee,
		},
		Mempool: models.Mempool{
			Count: mp.Count,
			Vsize: mp.Vsize,
		},
		Savings:        float64(fees.FastestFee-fees.HourFee) * models.SavingsRate,
		Difficulty:     difficulty,
		AdjustmentTime: adjustmentTime,
	}

	return Result{Snapshot: snapshot, Volume: c.gen.Volume()}, nil
}

func (c *Client) getJSON(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("request returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
