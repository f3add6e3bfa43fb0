package calculator

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"PowerPosition/internal/model"
)

// Aggregate sums the period volumes of trades into local-hour buckets for date.
//
// Period p maps to local hour p-2 of date, so periods 1 and 2 fall on the previous
// evening. From period 4 onwards the mapping is shifted by the day's DST transition
// offset: on a 25-period day periods 3 and 4 both land on the repeated 01:00, on a
// 23-period day the skipped 01:00 never appears. Volumes are accumulated by UTC
// instant and presented in loc, which must not be nil.
func Aggregate(date time.Time, trades []model.Trade, loc *time.Location) model.Report {
	y, m, d := date.Date()
	dstOffset := DSTTransitionOffset(date, loc)

	volumes := make(map[int64]decimal.Decimal)
	for _, trade := range trades {
		for _, p := range trade.Periods {
			hour := p.Period - 2
			if p.Period >= 4 {
				hour += dstOffset
			}
			key := wallClock(y, m, d, hour, loc).Unix()
			volumes[key] = volumes[key].Add(decimal.NewFromFloat(p.Volume))
		}
	}

	keys := make([]int64, 0, len(volumes))
	for k := range volumes {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	report := model.Report{
		Date:    time.Date(y, m, d, 0, 0, 0, 0, loc),
		Buckets: make([]model.VolumeBucket, 0, len(keys)),
	}
	for _, k := range keys {
		report.Buckets = append(report.Buckets, model.VolumeBucket{
			LocalTime: time.Unix(k, 0).In(loc),
			Volume:    volumes[k],
		})
	}
	return report
}
