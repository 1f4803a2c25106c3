package services

import (
	"sla-attribution-service/internal/domain"
	"sla-attribution-service/internal/ports"
	"time"
)

// Classify compares the end scan of s against due. A missing end scan or due
// time is a miss with no measured duration.
func Classify(s domain.Shipment, rule domain.Rule, due *time.Time) domain.Compliance {
	if rule.Duration == nil {
		return domain.Compliance{}
	}

	limit := rule.Duration.For(s.ZoneHub()).Hours
	c := domain.Compliance{
		LimitHours: &limit,
		DueAt:      due,
	}

	start, okStart := EffectiveStart(s, rule)
	end, okEnd := s.At(rule.End)
	if due == nil || !okStart || !okEnd {
		return c
	}

	actual := hoursBetween(start, end)
	c.ActualHours = &actual
	c.MetSLA = !wallClock(end).After(wallClock(*due))
	return c
}

// Evaluate runs due time and compliance for one shipment. Clients without a
// rule get an empty verdict that counts as a miss.
func Evaluate(s domain.Shipment, registry ports.RuleRegistry) domain.Compliance {
	rule, ok := registry.Lookup(s.Client)
	if !ok {
		return domain.Compliance{}
	}
	return Classify(s, rule, ComputeDue(s, rule))
}
