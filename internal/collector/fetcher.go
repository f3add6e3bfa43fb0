package collector

import (
	"context"
	"time"

	"PowerPosition/internal/model"
)

// Fetcher defines the interface for fetching the trades of one calendar date.
type Fetcher interface {
	FetchTrades(ctx context.Context, date time.Time) ([]model.Trade, error)
	Name() string
}
