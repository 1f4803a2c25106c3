package domain

import (
	"fmt"
	"time"
)

// DueWindow restricts an analysis to shipments due inside it. From is optional;
// without it the window is every due time up to and including To.
type DueWindow struct {
	From *time.Time
	To   time.Time
}

func NewDueRange(from, to time.Time) (DueWindow, error) {
	if to.Before(from) {
		return DueWindow{}, fmt.Errorf("due window: end %s before start %s", to.Format(time.RFC3339), from.Format(time.RFC3339))
	}
	return DueWindow{From: &from, To: to}, nil
}

func NewDueBefore(at time.Time) DueWindow { return DueWindow{To: at} }

// Includes reports whether a shipment with the given due time stays in the
// analysis. A shipment with no due time cannot be judged and is always kept.
func (w DueWindow) Includes(due *time.Time) bool {
	if due == nil {
		return true
	}
	if w.From != nil && due.Before(*w.From) {
		return false
	}
	return !due.After(w.To)
}
