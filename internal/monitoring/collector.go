// Package monitoring summarizes recorded runs and raises alerts when they
// degrade.
package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/finmetrics/internal/model"
	"github.com/sells-group/finmetrics/internal/store"
)

// maxRuns caps how many runs one snapshot reads.
const maxRuns = 10000

// Snapshot holds a point-in-time view of run health.
type Snapshot struct {
	RunsTotal    int     `json:"runs_total"`
	RunsComplete int     `json:"runs_complete"`
	RunsFailed   int     `json:"runs_failed"`
	RunsInFlight int     `json:"runs_in_flight"`
	FailRate     float64 `json:"fail_rate"`

	// Rows and Skeletons are summed over finished runs. SkeletonRate is the
	// share of rows that had no upstream data.
	Rows         int     `json:"rows"`
	Skeletons    int     `json:"skeletons"`
	SkeletonRate float64 `json:"skeleton_rate"`

	AvgDurationSecs float64 `json:"avg_duration_secs"`

	LookbackHours int       `json:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at"`
}

// Finished returns the number of runs that reached a terminal status.
func (s *Snapshot) Finished() int {
	return s.RunsComplete + s.RunsFailed
}

// RunLister is the store subset the collector reads.
type RunLister interface {
	ListRuns(ctx context.Context, filter store.RunFilter) ([]model.Run, error)
}

// Collector gathers snapshots from the run log.
type Collector struct {
	runs RunLister
}

// NewCollector creates a new snapshot collector.
func NewCollector(runs RunLister) *Collector {
	return &Collector{runs: runs}
}

// Collect summarizes runs created within the lookback window. A
// non-positive lookback covers every stored run.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*Snapshot, error) {
	now := time.Now().UTC()
	filter := store.RunFilter{Limit: maxRuns}
	if lookbackHours > 0 {
		filter.CreatedAfter = now.Add(-time.Duration(lookbackHours) * time.Hour)
	}

	runs, err := c.runs.ListRuns(ctx, filter)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list runs")
	}

	snap := Summarize(runs)
	snap.LookbackHours = lookbackHours
	snap.CollectedAt = now
	return snap, nil
}

// Summarize aggregates runs into a Snapshot.
func Summarize(runs []model.Run) *Snapshot {
	snap := &Snapshot{RunsTotal: len(runs)}

	var totalDur time.Duration
	for _, r := range runs {
		switch r.Status {
		case model.RunStatusComplete:
			snap.RunsComplete++
			totalDur += r.UpdatedAt.Sub(r.CreatedAt)
		case model.RunStatusFailed:
			snap.RunsFailed++
		default:
			snap.RunsInFlight++
			continue
		}
		if r.Result != nil {
			snap.Rows += r.Result.Rows
			snap.Skeletons += r.Result.Skeletons
		}
	}

	if finished := snap.Finished(); finished > 0 {
		snap.FailRate = float64(snap.RunsFailed) / float64(finished)
	}
	if snap.Rows > 0 {
		snap.SkeletonRate = float64(snap.Skeletons) / float64(snap.Rows)
	}
	if snap.RunsComplete > 0 {
		snap.AvgDurationSecs = totalDur.Seconds() / float64(snap.RunsComplete)
	}
	return snap
}
