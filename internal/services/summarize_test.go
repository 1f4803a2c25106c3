package services

import (
	"sla-attribution-service/internal/domain"
	"sla-attribution-service/internal/rules"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func eval(client, hub, station string, cause domain.Cause, party domain.Party) domain.Evaluation {
	e := domain.Evaluation{
		Shipment: domain.Shipment{Client: client, Hub: hub, Station: station},
	}
	if cause == "" {
		e.Compliance.MetSLA = true
		return e
	}
	e.Attribution = &domain.Attribution{Cause: cause, Party: party}
	return e
}

func TestSummarize(t *testing.T) {
	a := &domain.Analysis{Evaluations: []domain.Evaluation{
		eval("FBT", "HUB_A", "ST_1", "", ""),
		eval("FBT", "HUB_A", "ST_1", "", ""),
		eval("FBT", "HUB_A", "ST_2", "", ""),
		eval("FBT", "HUB_A", "ST_1", domain.CauseCourierBacklog, domain.PartyLastMile),
		eval("FBT", "HUB_A", "", domain.CauseNotSorted, domain.PartySortingHub),
		eval("ZZ", "HUB_B", "ST_3", domain.CauseCourierBacklog, domain.PartyLastMile),
		eval("ZZ", "  ", "", domain.CauseNotReceivedAtHub, domain.PartySortingHub),
	}}

	s := Summarize(a, rules.Default())

	assert.Equal(t, 7, s.Total)
	assert.Equal(t, 4, s.Failed)
	assert.InDelta(t, 4.0/7.0, s.FailRate, 1e-12)

	require.Len(t, s.Causes, 3)
	assert.Equal(t, domain.CauseCourierBacklog, s.Causes[0].Cause)
	assert.Equal(t, 2, s.Causes[0].Count)
	assert.InDelta(t, 2.0/7.0, s.Causes[0].Share, 1e-12)

	require.Len(t, s.Clients, 2)
	fbt := s.Clients[0]
	assert.Equal(t, "FBT", fbt.Client)
	assert.Equal(t, 5, fbt.Total)
	assert.Equal(t, 3, fbt.OK)
	assert.Equal(t, 2, fbt.Failed)
	assert.InDelta(t, 0.6, fbt.SuccessRate, 1e-12)
	require.NotNil(t, fbt.TargetRate)
	assert.Equal(t, 0.95, *fbt.TargetRate)
	assert.False(t, fbt.MeetsTarget)

	zz := s.Clients[1]
	assert.Equal(t, "ZZ", zz.Client)
	assert.Nil(t, zz.TargetRate)
	assert.False(t, zz.MeetsTarget)

	// The blank hub is left out of the hub view.
	require.Len(t, s.Hubs, 2)
	hubA := s.Hubs[0]
	assert.Equal(t, "HUB_A", hubA.Hub)
	assert.Equal(t, 5, hubA.Total)
	assert.Equal(t, 2, hubA.Failed)
	assert.InDelta(t, 0.4, hubA.FailRate, 1e-12)

	// ST_2 has no failures; the blank station sorts last.
	require.Len(t, hubA.Stations, 2)
	assert.Equal(t, "ST_1", hubA.Stations[0].Station)
	assert.Equal(t, 3, hubA.Stations[0].Total)
	assert.Equal(t, "", hubA.Stations[1].Station)
	assert.Equal(t, domain.CauseNotSorted, hubA.Stations[1].Causes[0].Cause)
	assert.Equal(t, 1.0, hubA.Stations[1].Causes[0].Share)

	assert.Equal(t, "HUB_B", s.Hubs[1].Hub)
}

func TestSummarizeMeetsTarget(t *testing.T) {
	var evals []domain.Evaluation
	for j := 0; j < 24; j++ {
		evals = append(evals, eval("WHUS", "HUB_A", "ST_1", "", ""))
	}
	evals = append(evals, eval("WHUS", "HUB_A", "ST_1", domain.CauseMarginalDelay, domain.PartyUnconfirmed))

	s := Summarize(&domain.Analysis{Evaluations: evals}, rules.Default())
	require.Len(t, s.Clients, 1)
	assert.InDelta(t, 0.96, s.Clients[0].SuccessRate, 1e-12)
	assert.True(t, s.Clients[0].MeetsTarget)
}

func TestCauseBreakdownOrdering(t *testing.T) {
	tally := causeTally{
		{domain.CauseMisSort, domain.PartySortingHub}:         1,
		{domain.CauseCourierBacklog, domain.PartyLastMile}:    3,
		{domain.CauseLateHubInbound, domain.PartySortingHub}:  1,
		{domain.CauseMarginalDelay, domain.PartyUnconfirmed}: 2,
	}

	got := tally.breakdown(10)
	causes := make([]domain.Cause, len(got))
	for i, c := range got {
		causes[i] = c.Cause
	}
	assert.Equal(t, []domain.Cause{
		domain.CauseCourierBacklog,
		domain.CauseMarginalDelay,
		domain.CauseLateHubInbound,
		domain.CauseMisSort,
	}, causes)
	assert.InDelta(t, 0.3, got[0].Share, 1e-12)

	assert.Empty(t, causeTally{}.breakdown(0))
}
