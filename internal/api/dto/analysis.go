package dto

import "time"

type CauseCountResponse struct {
	Cause string  `json:"cause"`
	Party string  `json:"party"`
	Count int     `json:"count"`
	Share float64 `json:"share"`
}

type ClientSummaryResponse struct {
	Client      string               `json:"client"`
	Total       int                  `json:"total"`
	OK          int                  `json:"ok"`
	Failed      int                  `json:"failed"`
	SuccessRate float64              `json:"success_rate"`
	FailRate    float64              `json:"fail_rate"`
	TargetRate  *float64             `json:"target_rate"`
	MeetsTarget bool                 `json:"meets_target"`
	Causes      []CauseCountResponse `json:"causes"`
}

type StationSummaryResponse struct {
	Station string               `json:"station"`
	Total   int                  `json:"total"`
	Causes  []CauseCountResponse `json:"causes"`
}

type HubSummaryResponse struct {
	Hub      string                   `json:"hub"`
	Total    int                      `json:"total"`
	OK       int                      `json:"ok"`
	Failed   int                      `json:"failed"`
	FailRate float64                  `json:"fail_rate"`
	Causes   []CauseCountResponse     `json:"causes"`
	Stations []StationSummaryResponse `json:"stations"`
}

type AnalysisResponse struct {
	RunID     string                  `json:"run_id"`
	CreatedAt time.Time               `json:"created_at"`
	Cutoff    time.Time               `json:"cutoff"`
	DueFrom   *time.Time              `json:"due_from"`
	DueTo     *time.Time              `json:"due_to"`
	Total     int                     `json:"total"`
	Failed    int                     `json:"failed"`
	FailRate  float64                 `json:"fail_rate"`
	Causes    []CauseCountResponse    `json:"causes"`
	Clients   []ClientSummaryResponse `json:"clients"`
	Hubs      []HubSummaryResponse    `json:"hubs"`
}

type RunClientResponse struct {
	Client      string   `json:"client"`
	Total       int      `json:"total"`
	Failed      int      `json:"failed"`
	TargetRate  *float64 `json:"target_rate"`
	MeetsTarget bool     `json:"meets_target"`
}

type RunResponse struct {
	ID          string              `json:"id"`
	CreatedAt   time.Time           `json:"created_at"`
	Cutoff      time.Time           `json:"cutoff"`
	DueFrom     *time.Time          `json:"due_from"`
	DueTo       *time.Time          `json:"due_to"`
	InputDigest string              `json:"input_digest"`
	Total       int                 `json:"total"`
	Failed      int                 `json:"failed"`
	Clients     []RunClientResponse `json:"clients,omitempty"`
}

type ListRunsResponse struct {
	Runs []RunResponse `json:"runs"`
}
