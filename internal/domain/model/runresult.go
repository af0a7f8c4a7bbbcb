package model

import "time"

// RunResult summarizes one orchestration run. It is returned to callers and never persisted.
type RunResult struct {
	RunID     string
	Success   bool
	Message   string
	NewBids   int
	TotalBids int
	Errors    []string
	Bids      []Bid
	StartedAt time.Time
	Duration  time.Duration
}

// SchedulerStatus reports whether a run is in progress and how often runs fire.
type SchedulerStatus struct {
	IsRunning bool
	Schedule  string
}
