package rules

import "sla-attribution-service/internal/domain"

// lateHandoverHour is the customs handover cut-off after which the SLA clock
// starts at the next midnight.
const lateHandoverHour = 21

func hour(h int) *int { return &h }

func flat(hours float64, days int) domain.FlatDuration {
	return domain.FlatDuration{Allotment: domain.Allotment{Hours: hours, Days: days}}
}

// outOfState selects the out-of-state allotment for LAS/PHX hubs and the
// in-state one everywhere else.
func outOfState(inStateHours float64, inStateDays int, outHours float64, outDays int) domain.ZonedDuration {
	return domain.ZonedDuration{
		Zone:    domain.OutOfStateHubs,
		Inside:  domain.Allotment{Hours: outHours, Days: outDays},
		Outside: domain.Allotment{Hours: inStateHours, Days: inStateDays},
	}
}

// DefaultRules are the contracted clients.
func DefaultRules() []domain.Rule {
	return []domain.Rule{
		{
			Client:              "AE",
			Start:               domain.Handover,
			End:                 domain.FirstDelivery,
			Duration:            outOfState(48, 2, 96, 4),
			TargetRate:          0.95,
			Mode:                domain.CompletionBroad,
			RoundToEndOfDay:     true,
			LateHandoverHour:    hour(lateHandoverHour),
			CheckInboundLatency: true,
		},
		{
			Client:     "CBO",
			Start:      domain.HubInbound,
			End:        domain.FirstDelivery,
			Duration:   outOfState(72, 3, 96, 4),
			TargetRate: 0.95,
			Mode:       domain.CompletionBroad,
		},
		{
			Client:          "FBT",
			Start:           domain.HubInbound,
			End:             domain.Receipt,
			Duration:        flat(48, 2),
			TargetRate:      0.95,
			Mode:            domain.CompletionNarrow,
			RoundToEndOfDay: true,
		},
		{
			// Completes on the first delivery attempt, so it is scored as broad.
			Client:          "CBT",
			Start:           domain.HubInbound,
			End:             domain.FirstDelivery,
			Duration:        flat(72, 3),
			TargetRate:      0.95,
			Mode:            domain.CompletionBroad,
			RoundToEndOfDay: true,
		},
		{
			Client:              "SKA2",
			Start:               domain.Handover,
			End:                 domain.Receipt,
			Duration:            flat(120, 5),
			TargetRate:          0.98,
			Mode:                domain.CompletionNarrow,
			CheckInboundLatency: true,
		},
		{
			Client: "TE",
			Start:  domain.HubInbound,
			End:    domain.Receipt,
			Duration: domain.ZonedDuration{
				Zone:    domain.ZoneOneTwoHubs,
				Inside:  domain.Allotment{Hours: 72, Days: 3},
				Outside: domain.Allotment{Hours: 120, Days: 5},
			},
			TargetRate: 0.95,
			Mode:       domain.CompletionNarrow,
		},
		{
			Client:     "YW",
			Start:      domain.HubInbound,
			End:        domain.Receipt,
			Duration:   flat(84, 3),
			TargetRate: 0.95,
			Mode:       domain.CompletionNarrow,
		},
		{
			Client:          "HTE",
			Start:           domain.HubInbound,
			End:             domain.FirstDelivery,
			Duration:        outOfState(72, 3, 120, 5),
			TargetRate:      0.95,
			Mode:            domain.CompletionBroad,
			RoundToEndOfDay: true,
		},
		{
			Client:          "WHUS",
			Start:           domain.HubInbound,
			End:             domain.Receipt,
			Duration:        flat(120, 5),
			TargetRate:      0.96,
			Mode:            domain.CompletionNarrow,
			RoundToEndOfDay: true,
		},
		{
			Client:          "WHUS-4PX",
			Start:           domain.HubInbound,
			End:             domain.Receipt,
			Duration:        flat(120, 5),
			TargetRate:      0.96,
			Mode:            domain.CompletionNarrow,
			RoundToEndOfDay: true,
		},
	}
}

// Default returns the registry built from DefaultRules.
func Default() *Registry {
	reg, err := New(DefaultRules()...)
	if err != nil {
		panic("rules: invalid default registry: " + err.Error())
	}
	return reg
}
