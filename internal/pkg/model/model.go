package model

import "time"

// Price is one hour slot of the day-ahead market. Value is VAT-exclusive
// EUR/MWh; negative prices are valid.
type Price struct {
	StartTime time.Time `json:"start_time"`
	Value     float64   `json:"price"`
}

// PriceTable holds one calendar day of hourly prices, sorted by start
// time. DST transition days carry 23 or 25 entries instead of 24.
type PriceTable []Price

// SlotDuration returns the spacing between consecutive slots. Tables
// with fewer than two entries report one hour.
func (t PriceTable) SlotDuration() time.Duration {
	if len(t) < 2 {
		return time.Hour
	}
	return t[len(t)-1].StartTime.Sub(t[0].StartTime) / time.Duration(len(t)-1)
}

// SlotAt returns the index of the slot containing ts. The second return
// is false when ts falls outside the table's day.
func (t PriceTable) SlotAt(ts time.Time) (int, bool) {
	if len(t) == 0 {
		return 0, false
	}
	d := t.SlotDuration()
	for i := len(t) - 1; i >= 0; i-- {
		if !ts.Before(t[i].StartTime) {
			if ts.Before(t[i].StartTime.Add(d)) {
				return i, true
			}
			return 0, false
		}
	}
	return 0, false
}

// WindowSlots converts a wall-clock window into a slot count, clamped to
// [1, len(t)].
func (t PriceTable) WindowSlots(window time.Duration) int {
	n := int(window / t.SlotDuration())
	if n < 1 {
		n = 1
	}
	if n > len(t) {
		n = len(t)
	}
	return n
}

// Plan is the on/off decision per slot for one device.
type Plan []bool

// OnCount reports how many slots in [from, to) are on.
func (p Plan) OnCount(from, to int) int {
	count := 0
	for i := from; i < to; i++ {
		if p[i] {
			count++
		}
	}
	return count
}
