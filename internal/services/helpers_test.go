package services

import (
	"sla-attribution-service/internal/domain"
	"time"
)

// t0 is the reference start scan used across the tests.
var t0 = time.Date(2025, 3, 3, 8, 0, 0, 0, time.UTC)

func at(h float64) time.Time {
	return t0.Add(time.Duration(h * float64(time.Hour)))
}

type scans map[domain.Milestone]float64

// shipment builds a shipment whose milestones are hour offsets from t0.
func shipment(client, hub, station string, s scans) domain.Shipment {
	sh := domain.Shipment{
		TrackingNumber: "TN-1",
		Client:         client,
		Hub:            hub,
		Station:        station,
	}
	for m, h := range s {
		sh.Times.Set(m, at(h))
	}
	return sh
}

func f64(v float64) *float64 { return &v }
