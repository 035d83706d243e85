package training

import (
	"context"
	"errors"
	"fmt"

	"github.com/looplab/fsm"
	"go.uber.org/zap"

	"github.com/jonathan/footwear-triage/internal/db"
	"github.com/jonathan/footwear-triage/internal/metrics"
)

// Run lifecycle events
const (
	EventComplete = "complete"
	EventFail     = "fail"
	EventApprove  = "approve"
	EventReject   = "reject"
)

// runMachine drives one persisted run through its lifecycle. Each transition
// is written to the store before the in-memory state changes; a failed write
// cancels the transition.
type runMachine struct {
	run    *db.TrainingRun
	store  Store
	logger *zap.Logger
	fsm    *fsm.FSM

	// entry is set by a successful approve transition.
	entry *db.ModelRegistryEntry
}

func newRunMachine(run *db.TrainingRun, store Store, logger *zap.Logger) *runMachine {
	m := &runMachine{run: run, store: store, logger: logger}
	m.fsm = fsm.NewFSM(
		run.Status,
		fsm.Events{
			{Name: EventComplete, Src: []string{db.RunStatusRunning}, Dst: db.RunStatusPendingReview},
			{Name: EventFail, Src: []string{db.RunStatusRunning}, Dst: db.RunStatusFailed},
			{Name: EventApprove, Src: []string{db.RunStatusPendingReview}, Dst: db.RunStatusSucceeded},
			{Name: EventReject, Src: []string{db.RunStatusPendingReview}, Dst: db.RunStatusFailed},
		},
		fsm.Callbacks{
			"before_event": func(ctx context.Context, e *fsm.Event) {
				if err := m.persist(ctx, e); err != nil {
					e.Cancel(err)
				}
			},
			"enter_state": func(_ context.Context, e *fsm.Event) {
				m.run.Status = e.Dst
				metrics.TrainingTransitionCount.WithLabelValues(e.Event, e.Dst).Inc()
				m.logger.Info("training run transitioned",
					zap.String("run_id", m.run.ID.String()),
					zap.String("event", e.Event),
					zap.String("from", e.Src),
					zap.String("to", e.Dst),
				)
			},
		},
	)
	return m
}

// can reports whether event is allowed from the current state.
func (m *runMachine) can(event string) bool {
	return m.fsm.Can(event)
}

// fire performs a transition. Invalid transitions become *RunStateError;
// store failures are returned unwrapped.
func (m *runMachine) fire(ctx context.Context, event string, args ...any) error {
	err := m.fsm.Event(ctx, event, args...)
	if err == nil {
		return nil
	}

	var invalid fsm.InvalidEventError
	if errors.As(err, &invalid) {
		return &RunStateError{RunID: m.run.ID, Status: m.run.Status, Action: event}
	}
	var canceled fsm.CanceledError
	if errors.As(err, &canceled) && canceled.Err != nil {
		return canceled.Err
	}
	return err
}

func (m *runMachine) persist(ctx context.Context, e *fsm.Event) error {
	id := m.run.ID
	switch e.Event {
	case EventComplete:
		metricsArg, _ := argAt[map[string]any](e.Args, 0)
		artifactsArg, _ := argAt[map[string]any](e.Args, 1)
		if err := m.store.CompleteTrainingRun(ctx, id, metricsArg, artifactsArg); err != nil {
			return err
		}
		m.run.Metrics, m.run.Artifacts = metricsArg, artifactsArg
	case EventFail, EventReject:
		msg, _ := argAt[string](e.Args, 0)
		var err error
		if e.Event == EventFail {
			err = m.store.FailTrainingRun(ctx, id, msg)
		} else {
			err = m.store.RejectTrainingRun(ctx, id, msg)
		}
		if err != nil {
			return err
		}
		m.run.ErrorMessage = &msg
	case EventApprove:
		in, ok := argAt[*db.ApprovalInput](e.Args, 0)
		if !ok {
			return fmt.Errorf("approve requires approval input")
		}
		entry, err := m.store.ApproveTrainingRun(ctx, id, in)
		if err != nil {
			return err
		}
		m.entry = entry
		m.run.ApprovedBy = &in.ApprovedBy
	default:
		return fmt.Errorf("unhandled training run event %q", e.Event)
	}
	return nil
}

func argAt[T any](args []any, i int) (T, bool) {
	var zero T
	if i >= len(args) {
		return zero, false
	}
	v, ok := args[i].(T)
	return v, ok
}
