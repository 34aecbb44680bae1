package domain

import "time"

// Interval is the half-open range [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

func NewInterval(start, end time.Time) Interval {
	return Interval{Start: start, End: end}
}

func (i Interval) Valid() bool {
	return i.End.After(i.Start)
}

// Overlaps reports whether the two ranges share an instant. Back-to-back
// ranges (one ends exactly when the other starts) do not overlap.
func (i Interval) Overlaps(other Interval) bool {
	return i.Start.Before(other.End) && i.End.After(other.Start)
}

func (i Interval) Duration() time.Duration {
	return i.End.Sub(i.Start)
}
