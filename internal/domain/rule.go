package domain

import (
	"fmt"
	"strings"
	"time"
)

// CompletionMode says which scan counts as the end of delivery.
type CompletionMode string

const (
	// CompletionBroad accepts any terminal delivery attempt.
	CompletionBroad CompletionMode = "broad"
	// CompletionNarrow requires a confirmed receipt.
	CompletionNarrow CompletionMode = "narrow"
)

func (m CompletionMode) Valid() bool { return m == CompletionBroad || m == CompletionNarrow }

// Allotment is a contractual SLA length. Hours drive the due time; Days drive
// the hub outbound allowance used during attribution.
type Allotment struct {
	Hours float64
	Days  int
}

func (a Allotment) Duration() time.Duration {
	return time.Duration(a.Hours * float64(time.Hour))
}

func (a Allotment) valid() bool { return a.Hours > 0 && a.Days > 0 }

// DurationPolicy is the closed set of duration shapes a rule can carry:
// FlatDuration or ZonedDuration.
type DurationPolicy interface {
	// For returns the allotment that applies to a shipment handled by hub.
	For(hub string) Allotment
	durationPolicy()
}

// FlatDuration applies the same allotment everywhere.
type FlatDuration struct {
	Allotment Allotment
}

func (d FlatDuration) For(string) Allotment { return d.Allotment }
func (FlatDuration) durationPolicy()        {}

// ZonedDuration picks Inside when the hub belongs to Zone and Outside otherwise.
// Hubs missing from the zone set, blanks included, always get Outside.
type ZonedDuration struct {
	Zone    ZoneSet
	Inside  Allotment
	Outside Allotment
}

func (d ZonedDuration) For(hub string) Allotment {
	if d.Zone.Contains(hub) {
		return d.Inside
	}
	return d.Outside
}

func (ZonedDuration) durationPolicy() {}

// Rule is the SLA contract for one client.
type Rule struct {
	Client     string
	Start      Milestone
	End        Milestone
	Duration   DurationPolicy
	TargetRate float64
	Mode       CompletionMode

	// RoundToEndOfDay moves the due time to 23:59:59 of the day it falls on,
	// for contracts stated in whole days.
	RoundToEndOfDay bool

	// LateHandoverHour, when set, pushes a start scan at or after this hour to
	// midnight of the following day.
	LateHandoverHour *int

	// CheckInboundLatency enables the handover to hub inbound check during attribution.
	CheckInboundLatency bool
}

// Validate rejects rules that cannot produce a due time.
func (r Rule) Validate() error {
	if strings.TrimSpace(r.Client) == "" {
		return fmt.Errorf("%w: client code is empty", ErrInvalidRule)
	}
	if !r.Start.Valid() || !r.End.Valid() {
		return fmt.Errorf("%w: client %s: invalid start or end milestone", ErrInvalidRule, r.Client)
	}
	switch d := r.Duration.(type) {
	case FlatDuration:
		if !d.Allotment.valid() {
			return fmt.Errorf("%w: client %s: flat duration needs positive hours and days", ErrInvalidRule, r.Client)
		}
	case ZonedDuration:
		if d.Zone.Name() == "" {
			return fmt.Errorf("%w: client %s: zoned duration has no zone set", ErrInvalidRule, r.Client)
		}
		if !d.Inside.valid() || !d.Outside.valid() {
			return fmt.Errorf("%w: client %s: zoned duration needs positive hours and days", ErrInvalidRule, r.Client)
		}
	case nil:
		return fmt.Errorf("%w: client %s: no duration configured", ErrInvalidRule, r.Client)
	default:
		return fmt.Errorf("%w: client %s: unsupported duration %T", ErrInvalidRule, r.Client, d)
	}
	if r.TargetRate <= 0 || r.TargetRate > 1 {
		return fmt.Errorf("%w: client %s: target rate %v outside (0,1]", ErrInvalidRule, r.Client, r.TargetRate)
	}
	if !r.Mode.Valid() {
		return fmt.Errorf("%w: client %s: unknown completion mode %q", ErrInvalidRule, r.Client, r.Mode)
	}
	if r.LateHandoverHour != nil && (*r.LateHandoverHour < 0 || *r.LateHandoverHour > 23) {
		return fmt.Errorf("%w: client %s: late handover hour %d outside 0-23", ErrInvalidRule, r.Client, *r.LateHandoverHour)
	}
	return nil
}
