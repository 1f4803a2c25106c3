package services

import (
	"sla-attribution-service/internal/domain"
	"time"
)

// EffectiveStart returns the instant the SLA clock starts for s under rule.
// Rules with a late handover hour treat scans at or after that hour as
// happening at midnight of the following day.
func EffectiveStart(s domain.Shipment, rule domain.Rule) (time.Time, bool) {
	start, ok := s.At(rule.Start)
	if !ok {
		return time.Time{}, false
	}

	if rule.LateHandoverHour != nil && start.Hour() >= *rule.LateHandoverHour {
		start = startOfDay(start).AddDate(0, 0, 1)
	}

	return start, true
}

// ComputeDue returns the contractual due time, or nil when the start scan is missing.
func ComputeDue(s domain.Shipment, rule domain.Rule) *time.Time {
	start, ok := EffectiveStart(s, rule)
	if !ok || rule.Duration == nil {
		return nil
	}

	due := domain.InZone(wallClock(start).Add(rule.Duration.For(s.ZoneHub()).Duration()), start.Location())
	if rule.RoundToEndOfDay {
		due = EndOfDay(due)
	}

	return &due
}

// EndOfDay returns 23:59:59 on the calendar day of t, in t's location.
func EndOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, 0, t.Location())
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// wallClock drops the zone of t so durations count wall-clock hours, never
// the extra or missing hour of a daylight saving change.
func wallClock(t time.Time) time.Time { return domain.WallClock(t, t.Location()) }

// hoursBetween returns end-start in fractional wall-clock hours.
func hoursBetween(start, end time.Time) float64 {
	return wallClock(end).Sub(wallClock(start)).Hours()
}
