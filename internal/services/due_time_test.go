package services

import (
	"sla-attribution-service/internal/domain"
	"sla-attribution-service/internal/rules"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeDueLateHandoverRollsToNextDay(t *testing.T) {
	reg := rules.Default()
	ae, _ := reg.Lookup("AE")

	handover := time.Date(2025, 3, 3, 22, 0, 0, 0, time.UTC)
	s := domain.Shipment{Client: "AE", Hub: domain.HubLAS}
	s.Times.Set(domain.Handover, handover)
	s.Times.Set(domain.HubInbound, handover.Add(time.Hour))

	start, ok := EffectiveStart(s, ae)
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC), start)

	due := ComputeDue(s, ae)
	require.NotNil(t, due)
	assert.Equal(t, time.Date(2025, 3, 8, 23, 59, 59, 0, time.UTC), *due)
}

func TestComputeDueBeforeCutoffHourKeepsDay(t *testing.T) {
	reg := rules.Default()
	ae, _ := reg.Lookup("AE")

	s := domain.Shipment{Client: "AE", Hub: "HUB_LAX_ONT"}
	s.Times.Set(domain.Handover, time.Date(2025, 3, 3, 20, 59, 0, 0, time.UTC))

	due := ComputeDue(s, ae)
	require.NotNil(t, due)
	// In-state allotment is 48h: 3/5 20:59 rounded to end of day.
	assert.Equal(t, time.Date(2025, 3, 5, 23, 59, 59, 0, time.UTC), *due)
}

func TestComputeDueWallClockClients(t *testing.T) {
	reg := rules.Default()

	cases := []struct {
		client string
		hub    string
		want   time.Duration
	}{
		{"CBO", "HUB_LAX_ONT", 72 * time.Hour},
		{"CBO", domain.HubPHX, 96 * time.Hour},
		{"TE", domain.HubSFO, 72 * time.Hour},
		{"TE", "HUB_LAX_ONT", 120 * time.Hour},
		{"TE", "", 120 * time.Hour},
		{"YW", domain.HubSFO, 84 * time.Hour},
		{"SKA2", domain.HubLAS, 120 * time.Hour},
	}

	for _, tc := range cases {
		t.Run(tc.client+"/"+tc.hub, func(t *testing.T) {
			rule, ok := reg.Lookup(tc.client)
			require.True(t, ok)

			s := shipment(tc.client, tc.hub, "", scans{domain.Handover: 2.5, domain.HubInbound: 2.5})
			due := ComputeDue(s, rule)
			require.NotNil(t, due)
			assert.Equal(t, at(2.5).Add(tc.want), *due)
		})
	}
}

func TestComputeDueMissingStart(t *testing.T) {
	rule, _ := rules.Default().Lookup("FBT")
	s := shipment("FBT", "", "", scans{domain.Handover: 0})

	assert.Nil(t, ComputeDue(s, rule))
}

func TestEndOfDayKeepsLocation(t *testing.T) {
	loc, err := time.LoadLocation("America/Los_Angeles")
	require.NoError(t, err)

	got := EndOfDay(time.Date(2025, 11, 2, 1, 30, 0, 0, loc))
	assert.Equal(t, time.Date(2025, 11, 2, 23, 59, 59, 0, loc), got)
	assert.Equal(t, loc, got.Location())
}

func TestDayRoundedDueTimeOfDay(t *testing.T) {
	reg := rules.Default()
	rounded := []string{"FBT", "CBT", "AE", "HTE", "WHUS", "WHUS-4PX"}
	hubs := []string{domain.HubLAS, domain.HubSFO, domain.HighVolumeFacility, ""}

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("rounded clients are due at 23:59:59", prop.ForAll(
		func(minutes int64, clientIdx int, hubIdx int) bool {
			client := rounded[clientIdx]
			rule, _ := reg.Lookup(client)

			start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(minutes) * time.Minute)
			s := domain.Shipment{Client: client, Hub: hubs[hubIdx]}
			s.Times.Set(rule.Start, start)

			due := ComputeDue(s, rule)
			if due == nil {
				return false
			}
			h, m, sec := due.Clock()
			return h == 23 && m == 59 && sec == 59 && !due.Before(start)
		},
		gen.Int64Range(0, 2*365*24*60),
		gen.IntRange(0, len(rounded)-1),
		gen.IntRange(0, len(hubs)-1),
	))

	properties.TestingRun(t)
}

func TestZoneSelectionIsTotal(t *testing.T) {
	reg := rules.Default()

	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)

	properties.Property("every hub maps to exactly one allotment", prop.ForAll(
		func(hub string) bool {
			for _, client := range reg.Clients() {
				rule, _ := reg.Lookup(client)
				a := rule.Duration.For(hub)
				if a != rule.Duration.For(hub) || a.Hours <= 0 || a.Days <= 0 {
					return false
				}
				if z, ok := rule.Duration.(domain.ZonedDuration); ok {
					if a != z.Inside && a != z.Outside {
						return false
					}
				}
			}
			return true
		},
		gen.OneGenOf(
			gen.AlphaString(),
			gen.OneConstOf(domain.HubLAS, domain.HubPHX, domain.HubBAK, domain.HubSAC, domain.HubSFO, domain.HubUIC, domain.HighVolumeFacility, ""),
		),
	))

	properties.TestingRun(t)
}

func TestDueTimeCountsWallClockHours(t *testing.T) {
	loc, err := time.LoadLocation("America/Los_Angeles")
	require.NoError(t, err)
	reg := rules.Default()
	ska2, _ := reg.Lookup("SKA2")

	// Spring forward happens between handover and due.
	s := domain.Shipment{Client: "SKA2"}
	s.Times.Set(domain.Handover, time.Date(2024, 3, 9, 12, 0, 0, 0, loc))
	s.Times.Set(domain.Receipt, time.Date(2024, 3, 14, 12, 30, 0, 0, loc))

	due := ComputeDue(s, ska2)
	require.NotNil(t, due)
	assert.Equal(t, time.Date(2024, 3, 14, 12, 0, 0, 0, loc), *due)

	c := Classify(s, ska2, due)
	require.NotNil(t, c.ActualHours)
	assert.Equal(t, 120.5, *c.ActualHours)
	assert.False(t, c.MetSLA)
}
