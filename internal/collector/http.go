package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"PowerPosition/internal/calculator"
	"PowerPosition/internal/model"
)

// HTTPFetcher implements Fetcher using the power service REST API.
type HTTPFetcher struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

// NewHTTPFetcher creates a new fetcher with optional proxy support.
func NewHTTPFetcher(baseURL, apiKey, proxyURL string) *HTTPFetcher {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &HTTPFetcher{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
	}
}

func (f *HTTPFetcher) Name() string { return "power-service" }

// wireTrade is the expected JSON shape from the power service.
type wireTrade struct {
	Date    string         `json:"date"`
	Periods []model.Period `json:"periods"`
}

// FetchTrades requests the trades for date. Network errors, 429 and 5xx responses are
// transient; any other failure is permanent.
func (f *HTTPFetcher) FetchTrades(ctx context.Context, date time.Time) ([]model.Trade, error) {
	endpoint := fmt.Sprintf("%s/api/v1/trades?%s", f.BaseURL, url.Values{"date": {date.Format(time.DateOnly)}}.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if f.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+f.APIKey)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.Client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, Transient("fetch trades", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		err := fmt.Errorf("status %d, body: %s", resp.StatusCode, string(body))
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
			return nil, Transient("fetch trades", err)
		}
		return nil, fmt.Errorf("fetch trades: %w", err)
	}

	var wire []wireTrade
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, fmt.Errorf("decode trades: %w", err)
	}
	trades := make([]model.Trade, len(wire))
	for i, wt := range wire {
		d := date
		if wt.Date != "" {
			parsed, err := time.ParseInLocation(time.DateOnly, wt.Date, date.Location())
			if err != nil {
				return nil, fmt.Errorf("decode trade %d date: %w", i, err)
			}
			d = parsed
		}
		maxPeriod := calculator.PeriodsInDay(d, d.Location())
		for _, p := range wt.Periods {
			if p.Period < 1 || p.Period > maxPeriod {
				return nil, fmt.Errorf("decode trade %d: period %d outside 1..%d for %s",
					i, p.Period, maxPeriod, d.Format(time.DateOnly))
			}
		}
		trades[i] = model.Trade{Date: d, Periods: wt.Periods}
	}
	return trades, nil
}
