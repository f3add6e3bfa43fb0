package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// VolumeBucket is the total volume for one local hour.
type VolumeBucket struct {
	LocalTime time.Time
	Volume    decimal.Decimal
}

// Report is the intra-day volume report for one date, buckets ordered by time.
type Report struct {
	Date    time.Time
	Buckets []VolumeBucket
}

// Total returns the sum of all bucket volumes.
func (r Report) Total() decimal.Decimal {
	total := decimal.Zero
	for _, b := range r.Buckets {
		total = total.Add(b.Volume)
	}
	return total
}
