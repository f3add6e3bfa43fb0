package calculator

import (
	"fmt"
	"time"
	_ "time/tzdata"

	"PowerPosition/internal/model"
)

// LoadZone resolves a time zone identifier such as "Europe/London".
func LoadZone(name string) (*time.Location, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: time zone is empty", model.ErrConfiguration)
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("%w: load time zone %q: %v", model.ErrConfiguration, name, err)
	}
	return loc, nil
}

// DSTTransitionOffset returns the change of the zone's UTC offset, in whole hours,
// from local midnight of date to local midnight of the following day.
// It is -1 on a day the clocks go back, +1 on a day they go forward and 0 otherwise.
func DSTTransitionOffset(date time.Time, loc *time.Location) int {
	y, m, d := date.Date()
	_, today := time.Date(y, m, d, 0, 0, 0, 0, loc).Zone()
	_, tomorrow := time.Date(y, m, d+1, 0, 0, 0, 0, loc).Zone()
	return (tomorrow - today) / 3600
}

// PeriodsInDay returns the number of trading periods traded for date: 23, 24 or 25.
func PeriodsInDay(date time.Time, loc *time.Location) int {
	return 24 - DSTTransitionOffset(date, loc)
}

// wallClock resolves hour o'clock of the given local day to an instant. The hour may
// be negative or exceed 23 and is normalised like time.Date.
//
// A wall clock repeated by a backward transition resolves to its first occurrence, one
// skipped by a forward transition resolves past the gap. Both use the offset in force
// before the transition.
func wallClock(y int, m time.Month, d, hour int, loc *time.Location) time.Time {
	naive := time.Date(y, m, d, hour, 0, 0, 0, time.UTC)
	_, before := naive.Add(-24 * time.Hour).In(loc).Zone()
	_, after := naive.Add(24 * time.Hour).In(loc).Zone()

	t := naive.Add(-time.Duration(before) * time.Second).In(loc)
	if !sameWall(t, naive) {
		if alt := naive.Add(-time.Duration(after) * time.Second).In(loc); sameWall(alt, naive) {
			t = alt
		}
	}
	return t
}

func sameWall(t, naive time.Time) bool {
	y1, m1, d1 := t.Date()
	y2, m2, d2 := naive.Date()
	return y1 == y2 && m1 == m2 && d1 == d2 && t.Hour() == naive.Hour() && t.Minute() == naive.Minute()
}
