package dateutil

import "time"

func BeginningOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}

func NextDay(t time.Time) time.Time {
	return BeginningOfDay(t).AddDate(0, 0, 1)
}

func BeginningOfHour(t time.Time) time.Time {
	return t.Truncate(time.Hour)
}

func NextHour(t time.Time) time.Time {
	return BeginningOfHour(t).Add(time.Hour)
}
