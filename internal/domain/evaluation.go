package domain

import "time"

// Party is the operation held responsible for a missed SLA.
type Party string

const (
	PartySortingHub  Party = "sorting-hub"
	PartyLastMile    Party = "last-mile-delivery"
	PartyUnconfirmed Party = "unconfirmed"
	PartyNone        Party = "none"
)

// Cause is a root-cause label. The set is closed; see Causes.
type Cause string

const (
	CauseNotReceivedAtHub   Cause = "not yet received at hub"
	CauseLateHubInbound     Cause = "late hub inbound"
	CauseNotSorted          Cause = "not sorted at hub"
	CauseNotDispatched      Cause = "not dispatched from hub in time"
	CauseHandoffDiscrepancy Cause = "warehouse-to-delivery handoff discrepancy"
	CauseMisSort            Cause = "mis-sort"
	CauseTransferUnverified Cause = "truck delay / load discrepancy / missing scan / unflagged mis-sort / possible system defect — needs confirmation"
	CauseLostAtStation      Cause = "parcel lost / missing at station"
	CauseSevereBacklog      Cause = "severe courier backlog — warning"
	CauseCourierBacklog     Cause = "courier backlog"
	CauseNoDeliveryTwoDays  Cause = "no delivery within two days of pickup — warning"
	CausePickupDelay        Cause = "pickup-to-delivery delay"
	CauseNotCompleted       Cause = "delivery not completed — needs confirmation"
	CauseOverdueDelivery    Cause = "delivery requirement met but overdue"
	CauseMarginalDelay      Cause = "delivery requirement met but marginally late — possible latent issue"
	CauseClientOnTarget     Cause = "client met target — not pursued"
)

// Causes lists every label attribution can produce.
func Causes() []Cause {
	return []Cause{
		CauseNotReceivedAtHub,
		CauseLateHubInbound,
		CauseNotSorted,
		CauseNotDispatched,
		CauseHandoffDiscrepancy,
		CauseMisSort,
		CauseTransferUnverified,
		CauseLostAtStation,
		CauseSevereBacklog,
		CauseCourierBacklog,
		CauseNoDeliveryTwoDays,
		CausePickupDelay,
		CauseNotCompleted,
		CauseOverdueDelivery,
		CauseMarginalDelay,
		CauseClientOnTarget,
	}
}

// Compliance is the SLA verdict for one shipment. Nil pointers mean the value
// could not be computed.
type Compliance struct {
	LimitHours  *float64
	DueAt       *time.Time
	ActualHours *float64
	MetSLA      bool
}

// StageHours are the elapsed hours between consecutive milestones. A nil
// entry means one of its two scans is missing.
type StageHours struct {
	HandoverToHubInbound     *float64
	HubInboundToSort         *float64
	HubInboundToOutbound     *float64
	OutboundToStationInbound *float64
	OutboundToException      *float64
	StationInboundToPickup   *float64
	PickupToFirstDelivery    *float64
	PickupToReceipt          *float64
}

// Attribution is the root cause assigned to a failed shipment.
type Attribution struct {
	Cause  Cause
	Party  Party
	Stages StageHours
}

// Evaluation is a shipment with everything derived from it in one run.
// Attribution is set only when Compliance.MetSLA is false.
type Evaluation struct {
	Shipment    Shipment
	Compliance  Compliance
	Attribution *Attribution
}

func (e Evaluation) Failed() bool { return !e.Compliance.MetSLA }

// Analysis is the output of one engine run.
type Analysis struct {
	Cutoff      time.Time
	Window      *DueWindow
	Evaluations []Evaluation
}

// Failures returns the failed evaluations in input order.
func (a *Analysis) Failures() []Evaluation {
	out := make([]Evaluation, 0)
	for _, e := range a.Evaluations {
		if e.Failed() {
			out = append(out, e)
		}
	}
	return out
}
