package insights

import "time"

// Timing places "now" relative to the month being narrated. It decides which
// comparisons can be stated as facts.
type Timing string

const (
	TimingEarly   Timing = "early"   // first days: no comparisons at all
	TimingMiddle  Timing = "middle"  // comparisons only hedged
	TimingClosing Timing = "closing" // last day of the month
	TimingClosed  Timing = "closed"  // a past month
)

// earlyMonthLastDay is the last day of the month still considered early.
const earlyMonthLastDay = 10

// ClassifyTiming buckets now against the month that contains monthStart. A
// month that has not started yet is early.
func ClassifyTiming(monthStart, now time.Time) Timing {
	start, next := monthBounds(time.Date(monthStart.Year(), monthStart.Month(), 1, 0, 0, 0, 0, now.Location()))
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	lastDay := next.AddDate(0, 0, -1)

	switch {
	case !today.Before(next):
		return TimingClosed
	case today.Before(start):
		return TimingEarly
	case today.Equal(lastDay):
		return TimingClosing
	case today.Day() <= earlyMonthLastDay:
		return TimingEarly
	}
	return TimingMiddle
}

// Conclusive reports whether comparisons may be stated as final.
func (t Timing) Conclusive() bool {
	return t == TimingClosed || t == TimingClosing
}

// AllowsComparison reports whether any comparison with the previous month
// may be stated.
func (t Timing) AllowsComparison() bool {
	return t != TimingEarly
}

// InProgress reports whether the month is still open.
func (t Timing) InProgress() bool {
	return t != TimingClosed
}
