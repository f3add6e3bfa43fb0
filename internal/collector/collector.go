package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"PowerPosition/internal/clock"
	"PowerPosition/internal/model"
)

// RetryPolicy bounds how transient upstream failures are retried.
type RetryPolicy struct {
	MaxRetries int           // retries after the first attempt
	BaseDelay  time.Duration // doubled after every retry
}

// Collector fetches trades through a Fetcher and retries transient failures.
type Collector struct {
	Fetcher Fetcher
	Policy  RetryPolicy
	// OnRetry, if set, is called before every backoff.
	OnRetry func(attempt int, err error)

	clock clock.Clock
	log   zerolog.Logger
}

// NewCollector creates a new Collector.
func NewCollector(fetcher Fetcher, policy RetryPolicy, clk clock.Clock, log zerolog.Logger) *Collector {
	return &Collector{
		Fetcher: fetcher,
		Policy:  policy,
		clock:   clk,
		log:     log.With().Str("component", "collector").Str("source", fetcher.Name()).Logger(),
	}
}

// Trades fetches the trades for date and returns them with the number of attempts made.
// Only transient errors are retried, with exponential backoff measured on the
// collector's clock; other errors are returned at once.
func (c *Collector) Trades(ctx context.Context, date time.Time) ([]model.Trade, int, error) {
	maxAttempts := c.Policy.MaxRetries + 1
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		trades, err := c.Fetcher.FetchTrades(ctx, date)
		if err == nil {
			return trades, attempt, nil
		}
		if !IsTransient(err) {
			return nil, attempt, fmt.Errorf("fetch trades from %s: %w", c.Fetcher.Name(), err)
		}
		lastErr = err
		if attempt == maxAttempts {
			break
		}

		backoff := c.Policy.BaseDelay << uint(attempt-1)
		c.log.Warn().
			Err(err).
			Int("attempt", attempt).
			Int("max_attempts", maxAttempts).
			Dur("retry_in", backoff).
			Msg("Fetch trades failed, retrying")
		if c.OnRetry != nil {
			c.OnRetry(attempt, err)
		}
		if err := c.clock.Sleep(ctx, backoff); err != nil {
			return nil, attempt, err
		}
	}
	return nil, maxAttempts, fmt.Errorf("fetch trades from %s: %w after %d attempts: %w",
		c.Fetcher.Name(), ErrRetriesExhausted, maxAttempts, lastErr)
}
