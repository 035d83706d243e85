package training

import (
	"fmt"

	"github.com/google/uuid"
)

// RunNotFoundError is returned when a run ID does not exist
type RunNotFoundError struct {
	RunID uuid.UUID
}

func (e *RunNotFoundError) Error() string {
	return fmt.Sprintf("training run %s not found", e.RunID)
}

// RunStateError is returned when an operation is not allowed in the run's
// current status. Status is the status observed when the operation was refused.
type RunStateError struct {
	RunID  uuid.UUID
	Status string
	Action string
}

func (e *RunStateError) Error() string {
	return fmt.Sprintf("cannot %s training run %s: status is %s", e.Action, e.RunID, e.Status)
}

// InsufficientSamplesError rejects a cold start. It carries the counts so the
// caller can show what is missing.
type InsufficientSamplesError struct {
	Have int
	Need int
	// Ratio gate fields are set when the cold-start flag has been cleared and
	// the label ratio is below the automatic threshold.
	RatioGate bool
	Ratio     float64
	MinRatio  float64
}

func (e *InsufficientSamplesError) Error() string {
	if e.RatioGate {
		return fmt.Sprintf("cold start disabled and label ratio %.2f is below %.2f", e.Ratio, e.MinRatio)
	}
	return fmt.Sprintf("need at least %d labeled samples for cold start, have %d", e.Need, e.Have)
}

// VersionConflictError is returned when an approval reuses a model version label
type VersionConflictError struct {
	ModelName string
	Version   string
}

func (e *VersionConflictError) Error() string {
	return fmt.Sprintf("model %s already has version %s", e.ModelName, e.Version)
}
