package model

import "time"

// Period is one fixed-length trading period of a trade.
// Periods 1 and 2 fall before local midnight; period 3 is 01:00 on a day without a DST transition.
type Period struct {
	Period int     `json:"period"`
	Volume float64 `json:"volume"`
}

// Trade holds the periods traded for one calendar date.
type Trade struct {
	Date    time.Time
	Periods []Period
}

// NewTrade creates a trade for date with periods 1..periods and zero volume.
func NewTrade(date time.Time, periods int) Trade {
	t := Trade{Date: date, Periods: make([]Period, periods)}
	for i := range t.Periods {
		t.Periods[i].Period = i + 1
	}
	return t
}
