package collector

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PowerPosition/internal/calculator"
	"PowerPosition/internal/clock"
	"PowerPosition/internal/model"
)

// scriptedFetcher returns the queued errors in order, then trades.
type scriptedFetcher struct {
	mu     sync.Mutex
	errs   []error
	trades []model.Trade
	calls  int
}

func (f *scriptedFetcher) Name() string { return "scripted" }

func (f *scriptedFetcher) FetchTrades(_ context.Context, _ time.Time) ([]model.Trade, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return nil, err
	}
	return f.trades, nil
}

var day = time.Date(2025, 7, 4, 0, 0, 0, 0, time.UTC)

func fastPolicy(retries int) RetryPolicy {
	return RetryPolicy{MaxRetries: retries, BaseDelay: time.Millisecond}
}

func TestCollector_RetriesTransientThenSucceeds(t *testing.T) {
	f := &scriptedFetcher{
		errs:   []error{Transient("fetch", errors.New("down")), Transient("fetch", errors.New("down"))},
		trades: []model.Trade{model.NewTrade(day, 24)},
	}
	var retries []int
	c := NewCollector(f, fastPolicy(3), clock.System(), zerolog.Nop())
	c.OnRetry = func(attempt int, _ error) { retries = append(retries, attempt) }

	trades, attempts, err := c.Trades(context.Background(), day)

	require.NoError(t, err)
	assert.Len(t, trades, 1)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, []int{1, 2}, retries)
}

func TestCollector_PermanentErrorIsNotRetried(t *testing.T) {
	permanent := errors.New("bad request")
	f := &scriptedFetcher{errs: []error{permanent}}
	c := NewCollector(f, fastPolicy(3), clock.System(), zerolog.Nop())

	_, attempts, err := c.Trades(context.Background(), day)

	assert.ErrorIs(t, err, permanent)
	assert.NotErrorIs(t, err, ErrRetriesExhausted)
	assert.Equal(t, 1, attempts)
	assert.Equal(t, 1, f.calls)
}

func TestCollector_RetriesExhausted(t *testing.T) {
	down := errors.New("down")
	f := &scriptedFetcher{errs: []error{
		Transient("fetch", down), Transient("fetch", down), Transient("fetch", down), Transient("fetch", down),
	}}
	c := NewCollector(f, fastPolicy(3), clock.System(), zerolog.Nop())

	_, attempts, err := c.Trades(context.Background(), day)

	assert.ErrorIs(t, err, ErrRetriesExhausted)
	assert.ErrorIs(t, err, down)
	assert.True(t, IsTransient(err))
	assert.Equal(t, 4, attempts)
	assert.Equal(t, 4, f.calls)
}

func TestCollector_BackoffDoublesOnClock(t *testing.T) {
	clk := clock.NewFake(day)
	f := &scriptedFetcher{
		errs:   []error{Transient("fetch", errors.New("down")), Transient("fetch", errors.New("down"))},
		trades: []model.Trade{model.NewTrade(day, 24)},
	}
	c := NewCollector(f, RetryPolicy{MaxRetries: 3, BaseDelay: time.Second}, clk, zerolog.Nop())

	done := make(chan error, 1)
	go func() {
		_, _, err := c.Trades(context.Background(), day)
		done <- err
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, clk.BlockUntil(ctx, 1))
	clk.Advance(999 * time.Millisecond)
	assert.Equal(t, 1, clk.Sleepers(), "first backoff is one second")
	clk.Advance(time.Millisecond)

	require.NoError(t, clk.BlockUntil(ctx, 1))
	clk.Advance(time.Second)
	assert.Equal(t, 1, clk.Sleepers(), "second backoff is two seconds")
	clk.Advance(time.Second)

	require.NoError(t, <-done)
}

func TestCollector_CancelledDuringBackoff(t *testing.T) {
	clk := clock.NewFake(day)
	f := &scriptedFetcher{errs: []error{Transient("fetch", errors.New("down"))}}
	c := NewCollector(f, RetryPolicy{MaxRetries: 3, BaseDelay: time.Minute}, clk, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, _, err := c.Trades(ctx, day)
		done <- err
	}()

	wait, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	require.NoError(t, clk.BlockUntil(wait, 1))
	cancel()

	assert.ErrorIs(t, <-done, context.Canceled)
	assert.Equal(t, 1, f.calls)
}

func TestHTTPFetcher_FetchTrades(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/trades", r.URL.Path)
		assert.Equal(t, "2025-07-04", r.URL.Query().Get("date"))
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"date":"2025-07-04","periods":[{"period":1,"volume":100},{"period":2,"volume":-20.5}]}]`))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(srv.URL, "secret", "")
	trades, err := f.FetchTrades(context.Background(), day)

	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, day, trades[0].Date)
	assert.Equal(t, []model.Period{{Period: 1, Volume: 100}, {Period: 2, Volume: -20.5}}, trades[0].Periods)
}

func TestHTTPFetcher_ClassifiesStatus(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		transient bool
	}{
		{"server error", http.StatusInternalServerError, true},
		{"unavailable", http.StatusServiceUnavailable, true},
		{"rate limited", http.StatusTooManyRequests, true},
		{"bad request", http.StatusBadRequest, false},
		{"unauthorized", http.StatusUnauthorized, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", tc.status)
			}))
			defer srv.Close()

			_, err := NewHTTPFetcher(srv.URL, "", "").FetchTrades(context.Background(), day)
			require.Error(t, err)
			assert.Equal(t, tc.transient, IsTransient(err))
		})
	}
}

func TestHTTPFetcher_UnreachableIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewHTTPFetcher(url, "", "").FetchTrades(context.Background(), day)
	assert.True(t, IsTransient(err))
}

func TestHTTPFetcher_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"not":"a list"}`))
	}))
	defer srv.Close()

	_, err := NewHTTPFetcher(srv.URL, "", "").FetchTrades(context.Background(), day)
	require.Error(t, err)
	assert.False(t, IsTransient(err))
}

func TestSimulatedFetcher_PeriodCountFollowsDST(t *testing.T) {
	loc, err := calculator.LoadZone("Europe/London")
	require.NoError(t, err)

	tests := []struct {
		date    time.Time
		periods int
	}{
		{time.Date(2025, 7, 4, 15, 0, 0, 0, loc), 24},
		{time.Date(2025, 3, 30, 15, 0, 0, 0, loc), 23},
		{time.Date(2025, 10, 26, 15, 0, 0, 0, loc), 25},
	}
	f := NewSimulatedFetcher(loc, 0, 1)
	for _, tc := range tests {
		trades, err := f.FetchTrades(context.Background(), tc.date)
		require.NoError(t, err)
		require.NotEmpty(t, trades)
		assert.LessOrEqual(t, len(trades), f.MaxTrades)
		for _, tr := range trades {
			assert.Len(t, tr.Periods, tc.periods, tc.date.Format(time.DateOnly))
			assert.Equal(t, 1, tr.Periods[0].Period)
		}
	}
}

func TestSimulatedFetcher_AlwaysFailing(t *testing.T) {
	f := NewSimulatedFetcher(time.UTC, 1, 1)
	_, err := f.FetchTrades(context.Background(), day)
	assert.True(t, IsTransient(err))
}

func TestSimulatedFetcher_Deterministic(t *testing.T) {
	a, err := NewSimulatedFetcher(time.UTC, 0, 7).FetchTrades(context.Background(), day)
	require.NoError(t, err)
	b, err := NewSimulatedFetcher(time.UTC, 0, 7).FetchTrades(context.Background(), day)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestHTTPFetcher_RejectsPeriodOutsideDay(t *testing.T) {
	loc, err := calculator.LoadZone("Europe/London")
	require.NoError(t, err)

	tests := []struct {
		name string
		date time.Time
		body string
		ok   bool
	}{
		{"ordinary day period 24", time.Date(2025, 7, 4, 0, 0, 0, 0, loc),
			`[{"date":"2025-07-04","periods":[{"period":24,"volume":1}]}]`, true},
		{"ordinary day period 25", time.Date(2025, 7, 4, 0, 0, 0, 0, loc),
			`[{"date":"2025-07-04","periods":[{"period":25,"volume":1}]}]`, false},
		{"period zero", time.Date(2025, 7, 4, 0, 0, 0, 0, loc),
			`[{"date":"2025-07-04","periods":[{"period":0,"volume":1}]}]`, false},
		{"spring forward period 24", time.Date(2025, 3, 30, 0, 0, 0, 0, loc),
			`[{"date":"2025-03-30","periods":[{"period":24,"volume":1}]}]`, false},
		{"fall back period 25", time.Date(2025, 10, 26, 0, 0, 0, 0, loc),
			`[{"date":"2025-10-26","periods":[{"period":25,"volume":1}]}]`, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			trades, err := NewHTTPFetcher(srv.URL, "", "").FetchTrades(context.Background(), tc.date)
			if tc.ok {
				require.NoError(t, err)
				assert.Len(t, trades, 1)
				return
			}
			require.Error(t, err)
			assert.False(t, IsTransient(err), "malformed data is not retried")
		})
	}
}
