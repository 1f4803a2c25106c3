package services

import (
	"sla-attribution-service/internal/domain"
	"time"
)

// Thresholds of the attribution policy, in hours. They are part of the
// reporting contract and are not configurable.
const (
	lateInboundHours        = 24.0
	outboundBaseHours       = 12.0
	instantTransferHours    = 0.25
	slowTransferHours       = 12.0
	exceptionGraceHours     = 12.0
	handoffOverdueHours     = 96.0
	stationLostHours        = 96.0
	pickupBacklogHours      = 8.0
	pickupSevereHours       = 32.0
	highVolumeBacklogHours  = 12.0
	highVolumeSevereHours   = 36.0
	deliveryLateHours       = 16.0
	deliverySevereHours     = 42.0
	undeliveredWarningHours = 48.0
	receiptOverdueHours     = 16.0
)

// facts is everything a decision node may look at for one failed shipment.
type facts struct {
	shipment domain.Shipment
	rule     domain.Rule
	hasRule  bool
	stages   domain.StageHours
	cutoff   time.Time
}

func (f *facts) has(m domain.Milestone) bool {
	_, ok := f.shipment.At(m)
	return ok
}

// sinceCutoff returns the hours from milestone m to the cutoff; false when m is missing.
func (f *facts) sinceCutoff(m domain.Milestone) (float64, bool) {
	t, ok := f.shipment.At(m)
	if !ok {
		return 0, false
	}
	return hoursBetween(t, f.cutoff), true
}

// pendingOver reports whether m happened more than limit hours before the cutoff.
func (f *facts) pendingOver(m domain.Milestone, limit float64) bool {
	h, ok := f.sinceCutoff(m)
	return ok && h > limit
}

// outboundAllowance is the time the hub may hold a parcel before dispatch.
// Without a rule there is no allowance to test against.
func (f *facts) outboundAllowance() (float64, bool) {
	if !f.hasRule {
		return 0, false
	}
	days := f.rule.Duration.For(f.shipment.ZoneHub()).Days
	return outboundBaseHours + 24*float64(days-2), true
}

// exceeds is false for a missing measurement.
func exceeds(h *float64, limit float64) bool {
	return h != nil && *h > limit
}

type verdict struct {
	cause domain.Cause
	party domain.Party
}

// node is one step of the decision tree.
type node interface {
	decide(f *facts) verdict
}

func (v verdict) decide(*facts) verdict { return v }

// guard pairs a named predicate with the node taken when it holds.
type guard struct {
	name string
	when func(f *facts) bool
	then node
}

// branch tries its guards in order; the first that holds wins.
// Every branch ends with an otherwise guard, so decide always returns.
type branch struct {
	name   string
	guards []guard
}

func (b *branch) decide(f *facts) verdict {
	for _, g := range b.guards {
		if g.when(f) {
			return g.then.decide(f)
		}
	}
	panic("attribution: branch " + b.name + " has no matching guard")
}

func otherwise(n node) guard {
	return guard{name: "otherwise", when: func(*facts) bool { return true }, then: n}
}

var (
	notReceived        = verdict{domain.CauseNotReceivedAtHub, domain.PartySortingHub}
	lateInbound        = verdict{domain.CauseLateHubInbound, domain.PartySortingHub}
	notSorted          = verdict{domain.CauseNotSorted, domain.PartySortingHub}
	notDispatched      = verdict{domain.CauseNotDispatched, domain.PartySortingHub}
	handoffDiscrepancy = verdict{domain.CauseHandoffDiscrepancy, domain.PartySortingHub}
	misSorted          = verdict{domain.CauseMisSort, domain.PartySortingHub}
	transferUnverified = verdict{domain.CauseTransferUnverified, domain.PartyUnconfirmed}
	lostAtStation      = verdict{domain.CauseLostAtStation, domain.PartyLastMile}
	severeBacklog      = verdict{domain.CauseSevereBacklog, domain.PartyLastMile}
	courierBacklog     = verdict{domain.CauseCourierBacklog, domain.PartyLastMile}
	noDeliveryTwoDays  = verdict{domain.CauseNoDeliveryTwoDays, domain.PartyLastMile}
	pickupDelay        = verdict{domain.CausePickupDelay, domain.PartyLastMile}
	notCompleted       = verdict{domain.CauseNotCompleted, domain.PartyLastMile}
	overdueDelivery    = verdict{domain.CauseOverdueDelivery, domain.PartyLastMile}
	marginalDelay      = verdict{domain.CauseMarginalDelay, domain.PartyUnconfirmed}
	clientOnTarget     = verdict{domain.CauseClientOnTarget, domain.PartyNone}
)

var misSortStage = &branch{
	name: "mis-sort",
	guards: []guard{
		{"flagged mis-sort", func(f *facts) bool { return f.shipment.MisSorted }, misSorted},
		otherwise(transferUnverified),
	},
}

var receiptStage = &branch{
	name: "receipt",
	guards: []guard{
		{"no receipt", func(f *facts) bool { return !f.has(domain.Receipt) }, notCompleted},
		{"receipt overdue", func(f *facts) bool { return exceeds(f.stages.PickupToReceipt, receiptOverdueHours) }, overdueDelivery},
		otherwise(marginalDelay),
	},
}

var deliveryStage = &branch{
	name: "delivery",
	guards: []guard{
		{"no pickup, lost at station", func(f *facts) bool {
			return f.stages.StationInboundToPickup == nil && f.pendingOver(domain.StationInbound, stationLostHours)
		}, lostAtStation},
		{"no pickup", func(f *facts) bool { return f.stages.StationInboundToPickup == nil }, severeBacklog},
		{"high-volume station backlog", func(f *facts) bool {
			return f.shipment.Station == domain.HighVolumeFacility &&
				exceeds(f.stages.StationInboundToPickup, highVolumeBacklogHours)
		}, &branch{
			name: "high-volume backlog",
			guards: []guard{
				{"severe", func(f *facts) bool { return exceeds(f.stages.StationInboundToPickup, highVolumeSevereHours) }, severeBacklog},
				otherwise(courierBacklog),
			},
		}},
		{"courier backlog", func(f *facts) bool { return exceeds(f.stages.StationInboundToPickup, pickupBacklogHours) }, &branch{
			name: "backlog",
			guards: []guard{
				{"severe", func(f *facts) bool { return exceeds(f.stages.StationInboundToPickup, pickupSevereHours) }, severeBacklog},
				otherwise(courierBacklog),
			},
		}},
		{"no delivery attempt", func(f *facts) bool { return f.stages.PickupToFirstDelivery == nil }, &branch{
			name: "undelivered",
			guards: []guard{
				{"two days since pickup", func(f *facts) bool {
					return f.pendingOver(domain.CourierPickup, undeliveredWarningHours)
				}, noDeliveryTwoDays},
				otherwise(pickupDelay),
			},
		}},
		{"late delivery attempt", func(f *facts) bool { return exceeds(f.stages.PickupToFirstDelivery, deliveryLateHours) }, &branch{
			name: "late attempt",
			guards: []guard{
				{"severe", func(f *facts) bool { return exceeds(f.stages.PickupToFirstDelivery, deliverySevereHours) }, noDeliveryTwoDays},
				otherwise(pickupDelay),
			},
		}},
		{"narrow completion", func(f *facts) bool {
			return f.hasRule && f.rule.Mode == domain.CompletionNarrow
		}, receiptStage},
		otherwise(marginalDelay),
	},
}

var stationMissingStage = &branch{
	name: "station inbound missing",
	guards: []guard{
		{"no exception, handoff overdue", func(f *facts) bool {
			return !f.has(domain.ExceptionReported) && f.pendingOver(domain.HubOutbound, handoffOverdueHours)
		}, handoffDiscrepancy},
		{"no exception", func(f *facts) bool { return !f.has(domain.ExceptionReported) }, misSortStage},
		{"exception after handoff window", func(f *facts) bool {
			return exceeds(f.stages.OutboundToException, handoffOverdueHours)
		}, handoffDiscrepancy},
		{"late exception", func(f *facts) bool { return exceeds(f.stages.OutboundToException, exceptionGraceHours) }, misSortStage},
		otherwise(deliveryStage),
	},
}

var sortStage = &branch{
	name: "sort",
	guards: []guard{
		{"not sorted", func(f *facts) bool {
			_, ok := f.shipment.SortedAt()
			return !ok
		}, notSorted},
		{"not dispatched", func(f *facts) bool { return !f.has(domain.HubOutbound) }, notDispatched},
		{"outbound allowance exceeded", func(f *facts) bool {
			limit, ok := f.outboundAllowance()
			return ok && exceeds(f.stages.HubInboundToOutbound, limit)
		}, notDispatched},
		{"station inbound missing", func(f *facts) bool { return !f.has(domain.StationInbound) }, stationMissingStage},
		{"immediate station scan", func(f *facts) bool {
			return !exceeds(f.stages.OutboundToStationInbound, instantTransferHours)
		}, deliveryStage},
		{"high-volume hub", func(f *facts) bool { return f.shipment.Hub == domain.HighVolumeFacility }, misSortStage},
		{"slow transfer", func(f *facts) bool { return exceeds(f.stages.OutboundToStationInbound, slowTransferHours) }, misSortStage},
		otherwise(deliveryStage),
	},
}

var attributionTree = &branch{
	name: "root",
	guards: []guard{
		{"not received at hub", func(f *facts) bool { return !f.has(domain.HubInbound) }, notReceived},
		{"late hub inbound", func(f *facts) bool {
			return f.hasRule && f.rule.CheckInboundLatency && exceeds(f.stages.HandoverToHubInbound, lateInboundHours)
		}, lateInbound},
		otherwise(sortStage),
	},
}

// StageDurations measures the elapsed hours between consecutive milestones.
// The handover leg uses the raw handover scan, not the SLA-adjusted start.
func StageDurations(s domain.Shipment) domain.StageHours {
	between := func(from, to domain.Milestone) *float64 {
		a, okA := s.At(from)
		b, okB := s.At(to)
		if !okA || !okB {
			return nil
		}
		h := hoursBetween(a, b)
		return &h
	}

	var sortHours *float64
	if inbound, ok := s.At(domain.HubInbound); ok {
		if sorted, ok := s.SortedAt(); ok {
			h := hoursBetween(inbound, sorted)
			sortHours = &h
		}
	}

	return domain.StageHours{
		HandoverToHubInbound:     between(domain.Handover, domain.HubInbound),
		HubInboundToSort:         sortHours,
		HubInboundToOutbound:     between(domain.HubInbound, domain.HubOutbound),
		OutboundToStationInbound: between(domain.HubOutbound, domain.StationInbound),
		OutboundToException:      between(domain.HubOutbound, domain.ExceptionReported),
		StationInboundToPickup:   between(domain.StationInbound, domain.CourierPickup),
		PickupToFirstDelivery:    between(domain.CourierPickup, domain.FirstDelivery),
		PickupToReceipt:          between(domain.CourierPickup, domain.Receipt),
	}
}

// Attribute assigns a root cause to a shipment that missed its SLA. It
// returns nil for compliant shipments. rule may be the zero Rule when hasRule
// is false; rule-dependent checks are then skipped.
func Attribute(s domain.Shipment, c domain.Compliance, rule domain.Rule, hasRule bool, cutoff time.Time) *domain.Attribution {
	if c.MetSLA {
		return nil
	}

	f := &facts{
		shipment: s,
		rule:     rule,
		hasRule:  hasRule && rule.Duration != nil,
		stages:   StageDurations(s),
		cutoff:   cutoff,
	}

	v := attributionTree.decide(f)
	return &domain.Attribution{Cause: v.cause, Party: v.party, Stages: f.stages}
}

// waived is the attribution given to misses of clients that met their target
// when the run is configured not to pursue them.
func waived(s domain.Shipment) *domain.Attribution {
	return &domain.Attribution{
		Cause:  clientOnTarget.cause,
		Party:  clientOnTarget.party,
		Stages: StageDurations(s),
	}
}
