package orders

import (
	"time"

	"barstock/internal/core/types"
)

// DefaultCutoff closes every generation window.
const DefaultCutoff = time.Wednesday

// Window returns the inclusive generation window starting at start: it ends
// on the first cutoff weekday on or after start, so a start that already
// falls on the cutoff yields a one-day window.
func Window(start time.Time, cutoff time.Weekday) (time.Time, time.Time) {
	start = types.DateOf(start)
	return start, types.NextWeekday(start, cutoff)
}
