package clock

import (
	"time"

	"go.uber.org/fx"
)

// Clock abstracts time for deterministic behavior in tests.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

var Module = fx.Module("clock",
	fx.Provide(func() Clock { return SystemClock{} }),
)

// DateOf returns the civil date of t as observed in loc, encoded as UTC midnight.
// Calendar columns (period start/end, enrollment date) are stored in this form.
func DateOf(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}

// Today is DateOf(c.Now(), loc).
func Today(c Clock, loc *time.Location) time.Time {
	return DateOf(c.Now(), loc)
}

// DaysBetween returns the number of whole days from a to b. Both must be civil dates.
func DaysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}
