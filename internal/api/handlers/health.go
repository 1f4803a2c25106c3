package handlers

import (
	"net/http"
	"sla-attribution-service/internal/ports"
)

// HealthHandler is the liveness probe. It reports which rule set is loaded so a
// rollout can be checked against the expected registry.
type HealthHandler struct {
	Registry ports.RuleRegistry
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	res := map[string]string{
		"status": "ok",
		"rules":  h.Registry.Fingerprint(),
	}
	writeJSON(w, r, http.StatusOK, res)
}
