package rules

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sla-attribution-service/internal/domain"
	"sort"
	"strings"
)

// Registry holds the immutable SLA contracts for a run. It is safe for
// concurrent reads.
type Registry struct {
	rules       map[string]domain.Rule
	fingerprint string
}

// New validates each rule and builds a registry. Duplicate client codes are rejected.
func New(rules ...domain.Rule) (*Registry, error) {
	m := make(map[string]domain.Rule, len(rules))
	for _, r := range rules {
		if err := r.Validate(); err != nil {
			return nil, fmt.Errorf("new registry: %w", err)
		}
		code := strings.TrimSpace(r.Client)
		if _, dup := m[code]; dup {
			return nil, fmt.Errorf("new registry: %w: duplicate client %q", domain.ErrInvalidRule, code)
		}
		r.Client = code
		m[code] = r
	}

	reg := &Registry{rules: m}
	reg.fingerprint = reg.digest()
	return reg, nil
}

func (r *Registry) Lookup(client string) (domain.Rule, bool) {
	rule, ok := r.rules[strings.TrimSpace(client)]
	return rule, ok
}

// Clients returns the configured client codes in sorted order.
func (r *Registry) Clients() []string {
	out := make([]string, 0, len(r.rules))
	for c := range r.rules {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

func (r *Registry) Fingerprint() string { return r.fingerprint }

func (r *Registry) digest() string {
	h := sha256.New()
	for _, c := range r.Clients() {
		rule := r.rules[c]
		fmt.Fprintf(h, "%s|%s|%s|%v|%s|%t|", c, rule.Start, rule.End, rule.TargetRate, rule.Mode, rule.RoundToEndOfDay)
		switch d := rule.Duration.(type) {
		case domain.FlatDuration:
			fmt.Fprintf(h, "flat:%v/%d|", d.Allotment.Hours, d.Allotment.Days)
		case domain.ZonedDuration:
			fmt.Fprintf(h, "zoned:%s:%s:%v/%d:%v/%d|", d.Zone.Name(), strings.Join(d.Zone.Hubs(), ","),
				d.Inside.Hours, d.Inside.Days, d.Outside.Hours, d.Outside.Days)
		}
		if rule.LateHandoverHour != nil {
			fmt.Fprintf(h, "late:%d|", *rule.LateHandoverHour)
		}
		fmt.Fprintf(h, "inbound:%t\n", rule.CheckInboundLatency)
	}
	return hex.EncodeToString(h.Sum(nil))
}
