package collector

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"PowerPosition/internal/calculator"
	"PowerPosition/internal/model"
)

// SimulatedFetcher generates random trades for development and testing. It returns
// the number of periods the date has in loc and fails transiently at FailureRate.
type SimulatedFetcher struct {
	Location    *time.Location
	FailureRate float64
	MaxTrades   int

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSimulatedFetcher creates a simulated source; equal seeds give equal results.
func NewSimulatedFetcher(loc *time.Location, failureRate float64, seed int64) *SimulatedFetcher {
	return &SimulatedFetcher{
		Location:    loc,
		FailureRate: failureRate,
		MaxTrades:   5,
		rng:         rand.New(rand.NewSource(seed)),
	}
}

func (s *SimulatedFetcher) Name() string { return "simulated" }

func (s *SimulatedFetcher) FetchTrades(ctx context.Context, date time.Time) ([]model.Trade, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rng.Float64() < s.FailureRate {
		return nil, Transient("fetch trades", errors.New("simulated power service outage"))
	}

	y, m, d := date.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, s.Location)
	periods := calculator.PeriodsInDay(day, s.Location)

	count := 1
	if s.MaxTrades > 1 {
		count += s.rng.Intn(s.MaxTrades)
	}
	trades := make([]model.Trade, count)
	for i := range trades {
		trades[i] = model.NewTrade(day, periods)
		for j := range trades[i].Periods {
			trades[i].Periods[j].Volume = s.rng.Float64()*200 - 50
		}
	}
	return trades, nil
}
