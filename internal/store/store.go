// Package store persists pipeline runs and cached upstream responses.
package store

import (
	"context"
	"time"

	"github.com/sells-group/finmetrics/internal/model"
)

// Store defines the persistence interface for the pipeline.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, q model.Query) (*model.Run, error)
	UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error
	UpdateRunResult(ctx context.Context, runID string, result *model.RunResult) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Phases
	CreatePhase(ctx context.Context, runID string, name string) (*model.RunPhase, error)
	CompletePhase(ctx context.Context, phaseID string, result *model.PhaseResult) error

	// Upstream response cache
	GetCachedResponse(ctx context.Context, key string) ([]byte, error)
	SetCachedResponse(ctx context.Context, key string, body []byte, ttl time.Duration) error
	DeleteExpiredResponses(ctx context.Context) (int, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status       model.RunStatus `json:"status,omitempty"`
	Company      string          `json:"company,omitempty"`
	CreatedAfter time.Time       `json:"created_after,omitempty"`
	Limit        int             `json:"limit,omitempty"`
	Offset       int             `json:"offset,omitempty"`
}
