package domain

import "time"

// Operations exports record local wall-clock times without a zone. All SLA
// arithmetic runs on those wall-clock values held in UTC, so a duration of 24h
// is always one calendar day even across daylight saving changes.

// WallClock returns the wall-clock reading of t in loc, held in UTC.
func WallClock(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

// InZone places a wall-clock time on the timeline of loc for display.
func InZone(t time.Time, loc *time.Location) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), loc)
}
