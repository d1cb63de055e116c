package domain

import "time"

// IngestStats holds per-source statistics for one ingestion pass.
type IngestStats struct {
	SourceID string
	Fetched  int
	Inserted int
	Skipped  int
	Errors   int
}

// FetchStats holds the outcome counts of one media fetch pass.
type FetchStats struct {
	Pending         int
	Downloaded      int
	Reused          int
	SkippedTooLarge int
	Failed          int
}

// RunStats summarizes a full run: ingestion across all subscriptions
// followed by the media fetch pass. Produced even when parts of the run
// failed, so partial success stays visible.
type RunStats struct {
	Sources  []IngestStats
	Fetch    FetchStats
	Duration time.Duration
}

// TotalInserted sums inserted counts across all sources.
func (r *RunStats) TotalInserted() int {
	total := 0
	for _, s := range r.Sources {
		total += s.Inserted
	}
	return total
}
