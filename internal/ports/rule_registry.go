package ports

import "sla-attribution-service/internal/domain"

// Port: read-only access to the per-client SLA contracts of a run.
type RuleRegistry interface {
	// Return the rule for a client code; false when the client has no contract.
	Lookup(client string) (domain.Rule, bool)
	// Stable digest of the registry contents, used to key cached reports.
	Fingerprint() string
}
