package stores

import (
	"context"
	"time"
)

// RunStatus represents the status of a matrix run.
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// ConfigStatus represents the status of a single configuration within a
// matrix run.
type ConfigStatus string

const (
	ConfigStatusPending ConfigStatus = "pending"
	ConfigStatusRunning ConfigStatus = "running"
	ConfigStatusPassed  ConfigStatus = "passed"
	ConfigStatusFailed  ConfigStatus = "failed"
	ConfigStatusSkipped ConfigStatus = "skipped"
)

// MatrixRun represents one invocation of the validation matrix.
type MatrixRun struct {
	ID           string     `json:"id"`
	Blueprint    string     `json:"blueprint"`
	SampleSize   int        `json:"sample_size"`
	TotalConfigs int        `json:"total_configs"`
	Status       RunStatus  `json:"status"`
	StartedAt    time.Time  `json:"started_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	Error        *string    `json:"error,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// ConfigResult represents the outcome of one sampled configuration.
type ConfigResult struct {
	ID          string       `json:"id"`
	RunID       string       `json:"run_id"`
	EnvName     string       `json:"env_name"`
	Selection   string       `json:"selection"` // JSON blob of option name to value
	Status      ConfigStatus `json:"status"`
	FailedStage *string      `json:"failed_stage,omitempty"` // scaffold, checks, policy, env, precommit
	Error       *string      `json:"error,omitempty"`
	StartedAt   *time.Time   `json:"started_at,omitempty"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// Store defines the persistence interface for matrix run history.
type Store interface {
	// Init opens the underlying database.
	Init(ctx context.Context) error

	// Migrate applies pending schema migrations.
	Migrate(ctx context.Context) error

	// Close releases the database connection.
	Close() error

	// CreateRun records a new matrix run.
	CreateRun(ctx context.Context, run *MatrixRun) error

	// GetRun retrieves a run by ID.
	GetRun(ctx context.Context, id string) (*MatrixRun, error)

	// UpdateRunStatus transitions a run, recording the completion time for
	// terminal statuses.
	UpdateRunStatus(ctx context.Context, id string, status RunStatus, errMsg *string) error

	// ListRuns lists runs newest first.
	ListRuns(ctx context.Context, limit, offset int) ([]*MatrixRun, error)

	// CreateConfigResult records a configuration picked for a run.
	CreateConfigResult(ctx context.Context, result *ConfigResult) error

	// UpdateConfigResult updates the outcome of a configuration.
	UpdateConfigResult(ctx context.Context, id string, status ConfigStatus, failedStage, errMsg *string) error

	// ListConfigResults lists the configuration results of a run in
	// insertion order.
	ListConfigResults(ctx context.Context, runID string) ([]*ConfigResult, error)
}
