// Package clock abstracts the current time and sleeping so that schedules can be
// driven by a fake clock in tests.
package clock

import (
	"context"
	"time"
)

// Clock supplies the current instant and a cancellable sleep measured on the same clock.
type Clock interface {
	Now() time.Time
	// Sleep blocks until d has elapsed on this clock or ctx is done, in which case it
	// returns ctx.Err().
	Sleep(ctx context.Context, d time.Duration) error
}

type systemClock struct{}

// System returns the wall clock.
func System() Clock { return systemClock{} }

func (systemClock) Now() time.Time { return time.Now().UTC() }

func (systemClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
