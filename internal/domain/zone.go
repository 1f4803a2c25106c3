package domain

import (
	"sort"
	"strings"
)

// Facility codes with special handling in the SLA contracts.
const (
	HubLAS = "HUB_LAX_LAS"
	HubPHX = "HUB_LAX_PHX"
	HubBAK = "HUB_LAX_BAK"
	HubSAC = "HUB_LAX_SAC"
	HubSFO = "HUB_LAX_SFO"
	HubUIC = "HUB_LAX_UIC"

	// HighVolumeFacility is the consolidation site whose transfer and pickup
	// timings get their own thresholds.
	HighVolumeFacility = "HUB_LAX_COM"
)

// Zone set names accepted in rule files.
const (
	ZoneOutOfState = "out-of-state"
	ZoneOneTwo     = "zone-1-2"
)

// ZoneSet is a named partition of hub codes. Membership is total: any code
// not listed, including blanks, is outside the set.
type ZoneSet struct {
	name string
	hubs map[string]struct{}
}

func NewZoneSet(name string, hubs ...string) ZoneSet {
	m := make(map[string]struct{}, len(hubs))
	for _, h := range hubs {
		h = strings.TrimSpace(h)
		if h != "" {
			m[h] = struct{}{}
		}
	}
	return ZoneSet{name: name, hubs: m}
}

func (z ZoneSet) Name() string { return z.name }

func (z ZoneSet) Contains(hub string) bool {
	_, ok := z.hubs[strings.TrimSpace(hub)]
	return ok
}

// Hubs returns the members in sorted order.
func (z ZoneSet) Hubs() []string {
	out := make([]string, 0, len(z.hubs))
	for h := range z.hubs {
		out = append(out, h)
	}
	sort.Strings(out)
	return out
}

// OutOfStateHubs are the hubs serving addresses outside California.
var OutOfStateHubs = NewZoneSet(ZoneOutOfState, HubLAS, HubPHX)

// ZoneOneTwoHubs are the hubs whose deliveries fall in contract zones 1 and 2.
var ZoneOneTwoHubs = NewZoneSet(ZoneOneTwo, HubLAS, HubPHX, HubBAK, HubSAC, HubSFO, HubUIC)

// ZoneByName resolves a named zone set.
func ZoneByName(name string) (ZoneSet, bool) {
	switch strings.TrimSpace(name) {
	case ZoneOutOfState:
		return OutOfStateHubs, true
	case ZoneOneTwo:
		return ZoneOneTwoHubs, true
	}
	return ZoneSet{}, false
}
