package services

import (
	"context"
	"log"
	"sla-attribution-service/internal/domain"
	"sla-attribution-service/internal/platform/obs"
	"sla-attribution-service/internal/ports"
	"slices"
	"strings"
)

type causeKey struct {
	cause domain.Cause
	party domain.Party
}

// causeTally counts attributed failures and renders them as a breakdown.
type causeTally map[causeKey]int

func (t causeTally) add(e domain.Evaluation) {
	if e.Attribution == nil {
		return
	}
	t[causeKey{e.Attribution.Cause, e.Attribution.Party}]++
}

// breakdown returns the counts sorted by share, largest first. Ties fall back
// to label order so repeated runs render identically.
func (t causeTally) breakdown(population int) []domain.CauseCount {
	out := make([]domain.CauseCount, 0, len(t))
	for k, n := range t {
		share := 0.0
		if population > 0 {
			share = float64(n) / float64(population)
		}
		out = append(out, domain.CauseCount{Cause: k.cause, Party: k.party, Count: n, Share: share})
	}

	slices.SortFunc(out, func(a, b domain.CauseCount) int {
		if a.Count != b.Count {
			return b.Count - a.Count
		}
		if c := strings.Compare(string(a.Cause), string(b.Cause)); c != 0 {
			return c
		}
		return strings.Compare(string(a.Party), string(b.Party))
	})
	return out
}

type group struct {
	total  int
	failed int
	causes causeTally
}

func (g *group) add(e domain.Evaluation) {
	g.total++
	if e.Failed() {
		g.failed++
		g.causes.add(e)
	}
}

func newGroup() *group { return &group{causes: causeTally{}} }

func rate(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total)
}

// Summarize aggregates an analysis into overall, per-client and per-hub
// breakdowns. Shipments without a hub code are left out of the hub view.
func Summarize(a *domain.Analysis, registry ports.RuleRegistry) domain.Summary {
	overall := newGroup()
	clients := map[string]*group{}
	hubs := map[string]*group{}
	stations := map[string]map[string]*group{}

	for _, e := range a.Evaluations {
		overall.add(e)

		client := e.Shipment.Client
		if clients[client] == nil {
			clients[client] = newGroup()
		}
		clients[client].add(e)

		hub := strings.TrimSpace(e.Shipment.Hub)
		if hub == "" {
			continue
		}
		if hubs[hub] == nil {
			hubs[hub] = newGroup()
			stations[hub] = map[string]*group{}
		}
		hubs[hub].add(e)

		station := strings.TrimSpace(e.Shipment.Station)
		if stations[hub][station] == nil {
			stations[hub][station] = newGroup()
		}
		stations[hub][station].add(e)
	}

	s := domain.Summary{
		Total:    overall.total,
		Failed:   overall.failed,
		FailRate: rate(overall.failed, overall.total),
		Causes:   overall.causes.breakdown(overall.total),
	}

	for _, client := range sortedKeys(clients) {
		g := clients[client]
		cs := domain.ClientSummary{
			Client:      client,
			Total:       g.total,
			OK:          g.total - g.failed,
			Failed:      g.failed,
			SuccessRate: rate(g.total-g.failed, g.total),
			FailRate:    rate(g.failed, g.total),
			Causes:      g.causes.breakdown(g.total),
		}
		if rule, ok := registry.Lookup(client); ok {
			target := rule.TargetRate
			cs.TargetRate = &target
			cs.MeetsTarget = cs.SuccessRate >= target
		}
		s.Clients = append(s.Clients, cs)
	}

	for _, hub := range sortedKeys(hubs) {
		g := hubs[hub]
		hs := domain.HubSummary{
			Hub:      hub,
			Total:    g.total,
			OK:       g.total - g.failed,
			Failed:   g.failed,
			FailRate: rate(g.failed, g.total),
			Causes:   g.causes.breakdown(g.total),
		}
		for _, station := range stationOrder(stations[hub]) {
			sg := stations[hub][station]
			if sg.failed == 0 {
				continue
			}
			hs.Stations = append(hs.Stations, domain.StationSummary{
				Station: station,
				Total:   sg.total,
				Causes:  sg.causes.breakdown(sg.total),
			})
		}
		s.Hubs = append(s.Hubs, hs)
	}

	return s
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// stationOrder sorts station codes with the blank bucket last.
func stationOrder(m map[string]*group) []string {
	keys := sortedKeys(m)
	if len(keys) > 0 && keys[0] == "" {
		keys = append(keys[1:], "")
	}
	return keys
}

// LogSummary writes one progress line per client, naming the completion
// semantics the client is scored on.
func LogSummary(ctx context.Context, s domain.Summary, registry ports.RuleRegistry) {
	reqID, _ := ctx.Value(obs.RequestIDKey).(string)
	for _, c := range s.Clients {
		mode := "unknown"
		if rule, ok := registry.Lookup(c.Client); ok {
			mode = string(rule.Mode)
		}
		log.Printf(
			"req_id=%s client=%s mode=%s total=%d failed=%d fail_rate=%.2f%%",
			reqID, c.Client, mode, c.Total, c.Failed, c.FailRate*100,
		)
	}
	log.Printf("req_id=%s total=%d failed=%d fail_rate=%.2f%%", reqID, s.Total, s.Failed, s.FailRate*100)
}
