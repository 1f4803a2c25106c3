package domain

import (
	"fmt"
	"strings"
	"time"
)

// Milestone names one operational scan recorded against a shipment.
type Milestone int

const (
	Handover Milestone = iota
	HubInbound
	HubAutoSort
	HubManualSort
	HubOutbound
	StationInbound
	CourierPickup
	FirstDelivery
	Receipt
	ExceptionReported
	ExceptionReleased
	StationReturn

	milestoneCount
)

var milestoneNames = [milestoneCount]string{
	Handover:          "handover",
	HubInbound:        "hub_inbound",
	HubAutoSort:       "hub_auto_sort",
	HubManualSort:     "hub_manual_sort",
	HubOutbound:       "hub_outbound",
	StationInbound:    "station_inbound",
	CourierPickup:     "courier_pickup",
	FirstDelivery:     "first_delivery",
	Receipt:           "receipt",
	ExceptionReported: "exception_reported",
	ExceptionReleased: "exception_released",
	StationReturn:     "station_return",
}

// Milestones lists every milestone in scan order.
func Milestones() []Milestone {
	out := make([]Milestone, 0, milestoneCount)
	for m := Milestone(0); m < milestoneCount; m++ {
		out = append(out, m)
	}
	return out
}

func (m Milestone) String() string {
	if m < 0 || m >= milestoneCount {
		return fmt.Sprintf("milestone(%d)", int(m))
	}
	return milestoneNames[m]
}

func (m Milestone) Valid() bool { return m >= 0 && m < milestoneCount }

// ParseMilestone resolves the snake_case name used in rule files.
func ParseMilestone(name string) (Milestone, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for m, s := range milestoneNames {
		if s == n {
			return Milestone(m), nil
		}
	}
	return 0, fmt.Errorf("parse milestone: unknown milestone %q", name)
}

// Timestamps holds one optional instant per milestone. The zero time means
// the scan never happened (or could not be read).
type Timestamps [milestoneCount]time.Time

func (ts *Timestamps) Set(m Milestone, t time.Time) {
	if m.Valid() {
		ts[m] = t
	}
}

func (ts Timestamps) At(m Milestone) (time.Time, bool) {
	if !m.Valid() || ts[m].IsZero() {
		return time.Time{}, false
	}
	return ts[m], true
}

// Ptr returns the milestone as a nullable value for reporting.
func (ts Timestamps) Ptr(m Milestone) *time.Time {
	t, ok := ts.At(m)
	if !ok {
		return nil
	}
	return &t
}
