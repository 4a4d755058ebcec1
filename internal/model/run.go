package model

import "time"

// RunStatus represents the current state of a pipeline run.
type RunStatus string

const (
	RunStatusQueued     RunStatus = "queued"
	RunStatusCollecting RunStatus = "collecting"
	RunStatusComputing  RunStatus = "computing"
	RunStatusExporting  RunStatus = "exporting"
	RunStatusComplete   RunStatus = "complete"
	RunStatusFailed     RunStatus = "failed"
)

// Run is one recorded execution of the pipeline.
type Run struct {
	ID        string     `json:"id"`
	Query     Query      `json:"query"`
	Status    RunStatus  `json:"status"`
	Result    *RunResult `json:"result,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// RunResult holds the final outcome of a run.
type RunResult struct {
	Rows       int           `json:"rows"`
	Skeletons  int           `json:"skeletons"`
	ExportFile string        `json:"export_file,omitempty"`
	Phases     []PhaseResult `json:"phases"`
	Error      string        `json:"error,omitempty"`
}

// RunPhase represents a phase within a run.
type RunPhase struct {
	ID        string       `json:"id"`
	RunID     string       `json:"run_id"`
	Name      string       `json:"name"`
	Status    PhaseStatus  `json:"status"`
	Result    *PhaseResult `json:"result,omitempty"`
	StartedAt time.Time    `json:"started_at"`
}

// PhaseStatus represents the current state of a pipeline phase.
type PhaseStatus string

const (
	PhaseStatusRunning  PhaseStatus = "running"
	PhaseStatusComplete PhaseStatus = "complete"
	PhaseStatusFailed   PhaseStatus = "failed"
	PhaseStatusSkipped  PhaseStatus = "skipped"
)

// PhaseResult holds the outcome of a pipeline phase.
type PhaseResult struct {
	Name     string         `json:"name" yaml:"name"`
	Status   PhaseStatus    `json:"status" yaml:"status"`
	Duration int64          `json:"duration_ms" yaml:"duration_ms"`
	Error    string         `json:"error,omitempty" yaml:"error,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}
