package types

import "time"

// DateOf strips the clock from t, keeping the calendar date in UTC.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Today returns the current UTC calendar date.
func Today() time.Time {
	return DateOf(time.Now().UTC())
}

// NextWeekday returns the first date on or after from that falls on wd.
func NextWeekday(from time.Time, wd time.Weekday) time.Time {
	from = DateOf(from)
	delta := (int(wd) - int(from.Weekday()) + 7) % 7
	return from.AddDate(0, 0, delta)
}
