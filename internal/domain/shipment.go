package domain

import (
	"strings"
	"time"
)

// Shipment is one parcel row as read from an operations export.
// Tracking numbers are not unique across merged batches; each row stands on its own.
type Shipment struct {
	TrackingNumber  string
	Client          string
	Hub             string
	Station         string
	OriginalHub     string
	OriginalStation string
	SegmentCode     string
	PostalCode      string
	BagID           string
	Driver          string
	FailureReason   string
	MisSorted       bool
	Times           Timestamps
}

// At returns the timestamp recorded for m, if any.
func (s Shipment) At(m Milestone) (time.Time, bool) { return s.Times.At(m) }

// ZoneHub is the facility code used for zone selection.
func (s Shipment) ZoneHub() string { return strings.TrimSpace(s.Hub) }

// SortedAt returns the hub sort completion time. A parcel is either machine or
// hand sorted, so the later of the two scans is taken.
func (s Shipment) SortedAt() (time.Time, bool) {
	auto, okAuto := s.At(HubAutoSort)
	manual, okManual := s.At(HubManualSort)
	switch {
	case okAuto && okManual:
		if manual.After(auto) {
			return manual, true
		}
		return auto, true
	case okAuto:
		return auto, true
	case okManual:
		return manual, true
	}
	return time.Time{}, false
}
