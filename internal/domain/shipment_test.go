package domain

import (
	"errors"
	"testing"
	"time"
)

func TestSortedAtTakesLaterScan(t *testing.T) {
	auto := time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)
	manual := auto.Add(2 * time.Hour)

	var s Shipment
	if _, ok := s.SortedAt(); ok {
		t.Fatal("unsorted shipment reported a sort time")
	}

	s.Times.Set(HubAutoSort, auto)
	if got, _ := s.SortedAt(); !got.Equal(auto) {
		t.Errorf("auto only: SortedAt = %v, want %v", got, auto)
	}

	s.Times.Set(HubManualSort, manual)
	if got, _ := s.SortedAt(); !got.Equal(manual) {
		t.Errorf("both: SortedAt = %v, want %v", got, manual)
	}
}

func TestZoneMembership(t *testing.T) {
	if !OutOfStateHubs.Contains(" " + HubLAS + " ") {
		t.Errorf("padded %s should be in %s", HubLAS, OutOfStateHubs.Name())
	}
	if OutOfStateHubs.Contains(HubSFO) {
		t.Errorf("%s should not be in %s", HubSFO, OutOfStateHubs.Name())
	}
	if OutOfStateHubs.Contains("") || ZoneOneTwoHubs.Contains("") {
		t.Error("blank hub should be outside every zone")
	}
	if got := len(ZoneOneTwoHubs.Hubs()); got != 6 {
		t.Errorf("zone-1-2 has %d hubs, want 6", got)
	}

	policy := ZonedDuration{
		Zone:    OutOfStateHubs,
		Inside:  Allotment{Hours: 96, Days: 4},
		Outside: Allotment{Hours: 48, Days: 2},
	}
	if got := policy.For("HUB_UNKNOWN"); got.Hours != 48 {
		t.Errorf("unknown hub got %v hours, want 48", got.Hours)
	}
	if got := policy.For(HubPHX); got.Hours != 96 {
		t.Errorf("%s got %v hours, want 96", HubPHX, got.Hours)
	}

	if _, ok := ZoneByName("zone-9"); ok {
		t.Error("unknown zone name resolved")
	}
}

func TestRuleValidate(t *testing.T) {
	valid := Rule{
		Client:     "FBT",
		Start:      HubInbound,
		End:        Receipt,
		Duration:   FlatDuration{Allotment: Allotment{Hours: 48, Days: 2}},
		TargetRate: 0.95,
		Mode:       CompletionNarrow,
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	hour := 24
	broken := map[string]func(r *Rule){
		"blank client":       func(r *Rule) { r.Client = " " },
		"no duration":        func(r *Rule) { r.Duration = nil },
		"zero hours":         func(r *Rule) { r.Duration = FlatDuration{Allotment: Allotment{Days: 2}} },
		"zone without set":   func(r *Rule) { r.Duration = ZonedDuration{Inside: Allotment{1, 1}, Outside: Allotment{1, 1}} },
		"target above one":   func(r *Rule) { r.TargetRate = 1.2 },
		"unknown mode":       func(r *Rule) { r.Mode = "strict" },
		"bad milestone":      func(r *Rule) { r.End = Milestone(99) },
		"late hour too high": func(r *Rule) { r.LateHandoverHour = &hour },
	}

	for name, mutate := range broken {
		r := valid
		mutate(&r)
		err := r.Validate()
		if !errors.Is(err, ErrInvalidRule) {
			t.Errorf("%s: err = %v, want ErrInvalidRule", name, err)
		}
	}
}

func TestParseMilestone(t *testing.T) {
	for _, m := range Milestones() {
		got, err := ParseMilestone(" " + m.String() + " ")
		if err != nil || got != m {
			t.Errorf("ParseMilestone(%q) = %v, %v", m.String(), got, err)
		}
	}
	if _, err := ParseMilestone("teleported"); err == nil {
		t.Error("expected error for unknown milestone")
	}
}
