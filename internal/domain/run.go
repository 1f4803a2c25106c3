package domain

import "time"

// Run is the persisted record of one analysis.
type Run struct {
	ID          string
	CreatedAt   time.Time
	Cutoff      time.Time
	WindowFrom  *time.Time
	WindowTo    *time.Time
	InputDigest string
	Total       int
	Failed      int
	Clients     []RunClient
}

type RunClient struct {
	Client      string
	Total       int
	Failed      int
	TargetRate  *float64
	MeetsTarget bool
}

// CachedReport is a rendered report workbook together with the run that produced it.
type CachedReport struct {
	RunID    string
	Workbook []byte
}
