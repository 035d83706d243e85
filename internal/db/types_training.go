package db

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// RunStatus constants
const (
	RunStatusRunning       = "running"
	RunStatusPendingReview = "pending_review"
	RunStatusSucceeded     = "succeeded"
	RunStatusFailed        = "failed"
)

// TriggerAuto is the trigger source of scheduler-created runs; manual runs
// use "manual:<actor>".
const TriggerAuto = "auto"

// Flag keys in system_flags
const (
	FlagAutoTrainThreshold = "auto_train_threshold"
	FlagColdStart          = "cold_start"
)

// Sentinel errors for training run writes
var (
	// ErrRunInFlight is returned when an idle-only insert finds a non-terminal run.
	ErrRunInFlight = errors.New("a training run is already in progress")
	// ErrRunStateChanged is returned when a guarded status update matched no row.
	ErrRunStateChanged = errors.New("training run status changed concurrently")
	// ErrVersionTaken is returned when a model version label already exists.
	ErrVersionTaken = errors.New("model version already registered")
)

// TrainingRun represents one retraining attempt
type TrainingRun struct {
	ID            uuid.UUID      `json:"id"`
	Status        string         `json:"status"`
	TriggerSource string         `json:"trigger_source"`
	SampleCount   int            `json:"sample_count"`
	Params        map[string]any `json:"params"`
	Metrics       map[string]any `json:"metrics,omitempty"`
	Artifacts     map[string]any `json:"artifacts,omitempty"`
	ErrorMessage  *string        `json:"error_message,omitempty"`
	StartedAt     time.Time      `json:"started_at"`
	FinishedAt    *time.Time     `json:"finished_at,omitempty"`
	ApprovedAt    *time.Time     `json:"approved_at,omitempty"`
	ApprovedBy    *string        `json:"approved_by,omitempty"`
}

// IsTerminal reports whether the run can no longer change state.
func (r *TrainingRun) IsTerminal() bool {
	return r.Status == RunStatusSucceeded || r.Status == RunStatusFailed
}

// TrainingRunInput holds the fields supplied when creating a run
type TrainingRunInput struct {
	TriggerSource string
	SampleCount   int
	Params        map[string]any
	// RequireIdle makes the insert fail with ErrRunInFlight while any run is
	// running or pending review.
	RequireIdle bool
}

// ModelRegistryEntry is one approved model promotion
type ModelRegistryEntry struct {
	ID         uuid.UUID      `json:"id"`
	ModelName  string         `json:"model_name"`
	RunID      uuid.UUID      `json:"run_id"`
	Version    string         `json:"version"`
	Metrics    map[string]any `json:"metrics"`
	Artifacts  map[string]any `json:"artifacts"`
	ApprovedBy string         `json:"approved_by"`
	CreatedAt  time.Time      `json:"created_at"`
}

// ApprovalInput holds the operator-supplied fields for an approval
type ApprovalInput struct {
	ModelName  string
	Version    string
	ApprovedBy string
}

// TrainingThresholds is the auto_train_threshold flag value
type TrainingThresholds struct {
	MinNewSamples int     `json:"min_new_samples"`
	MinLabelRatio float64 `json:"min_label_ratio"`
}

// DefaultTrainingThresholds is used when the flag row is absent.
func DefaultTrainingThresholds() TrainingThresholds {
	return TrainingThresholds{MinNewSamples: 200, MinLabelRatio: 0.7}
}

// ColdStartFlag is the cold_start flag value
type ColdStartFlag struct {
	Enabled    bool `json:"enabled"`
	MinSamples int  `json:"min_samples"`
}

// DefaultColdStartFlag is used when the flag row is absent.
func DefaultColdStartFlag() ColdStartFlag {
	return ColdStartFlag{Enabled: true, MinSamples: 50}
}
