package domain

// CauseCount is one row of a cause breakdown. Share is Count divided by the
// population the breakdown belongs to.
type CauseCount struct {
	Cause Cause
	Party Party
	Count int
	Share float64
}

// ClientSummary is the SLA scorecard of one client.
type ClientSummary struct {
	Client      string
	Total       int
	OK          int
	Failed      int
	SuccessRate float64
	FailRate    float64
	// TargetRate is nil for clients without a rule.
	TargetRate  *float64
	MeetsTarget bool
	Causes      []CauseCount
}

// StationSummary breaks a hub's failures down by delivery station.
// An empty Station collects rows without a station scan.
type StationSummary struct {
	Station string
	Total   int
	Causes  []CauseCount
}

type HubSummary struct {
	Hub      string
	Total    int
	OK       int
	Failed   int
	FailRate float64
	Causes   []CauseCount
	Stations []StationSummary
}

// Summary is the aggregated view handed to report writers.
type Summary struct {
	Total    int
	Failed   int
	FailRate float64
	Causes   []CauseCount
	Clients  []ClientSummary
	Hubs     []HubSummary
}
