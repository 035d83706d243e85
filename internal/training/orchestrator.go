// Package training decides when to retrain the classifiers, runs the
// training capability, and gates model promotion behind human approval.
package training

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/footwear-triage/internal/db"
	"github.com/jonathan/footwear-triage/internal/metrics"
)

// Run listing bounds
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// DefaultActor is recorded when an operator does not identify themselves.
const DefaultActor = "admin"

// Store is the persistence the orchestrator needs. *db.DB implements it.
type Store interface {
	GetSampleStats(ctx context.Context) (db.SampleStats, error)
	GetTrainingThresholds(ctx context.Context) (db.TrainingThresholds, error)
	GetColdStartFlag(ctx context.Context) (db.ColdStartFlag, error)

	CreateTrainingRun(ctx context.Context, in *db.TrainingRunInput) (*db.TrainingRun, error)
	GetTrainingRun(ctx context.Context, id uuid.UUID) (*db.TrainingRun, error)
	ListTrainingRuns(ctx context.Context, limit int) ([]db.TrainingRun, error)

	CompleteTrainingRun(ctx context.Context, id uuid.UUID, metrics, artifacts map[string]any) error
	FailTrainingRun(ctx context.Context, id uuid.UUID, msg string) error
	RejectTrainingRun(ctx context.Context, id uuid.UUID, msg string) error
	ApproveTrainingRun(ctx context.Context, id uuid.UUID, in *db.ApprovalInput) (*db.ModelRegistryEntry, error)
}

// Decision reasons for the automatic trigger
const (
	ReasonCreated         = "created"
	ReasonBelowMinSamples = "below_min_samples"
	ReasonBelowLabelRatio = "below_label_ratio"
	ReasonRunInFlight     = "run_in_flight"
)

// TriggerDecision reports what an automatic trigger evaluation did. Run is
// nil unless Reason is ReasonCreated.
type TriggerDecision struct {
	Run        *db.TrainingRun       `json:"run,omitempty"`
	Reason     string                `json:"reason"`
	Stats      db.SampleStats        `json:"stats"`
	Thresholds db.TrainingThresholds `json:"thresholds"`
}

// Created reports whether a new run was started.
func (d *TriggerDecision) Created() bool {
	return d.Run != nil
}

// Orchestrator owns the training run lifecycle.
type Orchestrator struct {
	store   Store
	trainer Trainer
	logger  *zap.Logger
	now     func() time.Time

	wg sync.WaitGroup
}

// NewOrchestrator creates an orchestrator.
func NewOrchestrator(store Store, trainer Trainer, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		store:   store,
		trainer: trainer,
		logger:  logger,
		now:     time.Now,
	}
}

// TriggerAuto evaluates the thresholds against the dataset and creates a run
// when both are met and no run is running or pending review. Not meeting the
// thresholds is a normal outcome, reported through the decision.
func (o *Orchestrator) TriggerAuto(ctx context.Context) (*TriggerDecision, error) {
	stats, err := o.store.GetSampleStats(ctx)
	if err != nil {
		return nil, err
	}
	thresholds, err := o.store.GetTrainingThresholds(ctx)
	if err != nil {
		return nil, err
	}

	d := &TriggerDecision{Stats: stats, Thresholds: thresholds}
	switch {
	case stats.Labeled < thresholds.MinNewSamples:
		d.Reason = ReasonBelowMinSamples
	case stats.LabelRatio() < thresholds.MinLabelRatio:
		d.Reason = ReasonBelowLabelRatio
	default:
		run, err := o.store.CreateTrainingRun(ctx, &db.TrainingRunInput{
			TriggerSource: db.TriggerAuto,
			SampleCount:   stats.Labeled,
			Params:        DefaultParams(),
			RequireIdle:   true,
		})
		switch {
		case errors.Is(err, db.ErrRunInFlight):
			d.Reason = ReasonRunInFlight
		case err != nil:
			return nil, err
		default:
			d.Run = run
			d.Reason = ReasonCreated
		}
	}

	metrics.TrainingTriggerCount.WithLabelValues(db.TriggerAuto, d.Reason).Inc()
	o.logger.Info("automatic training trigger evaluated",
		zap.String("decision", d.Reason),
		zap.Int("labeled", stats.Labeled),
		zap.Int("total", stats.Total),
		zap.Float64("label_ratio", stats.LabelRatio()),
		zap.Int("min_new_samples", thresholds.MinNewSamples),
		zap.Float64("min_label_ratio", thresholds.MinLabelRatio),
	)
	return d, nil
}

// ColdStart creates a run on operator request, bypassing the ratio gate as
// long as the cold-start flag is set. The labeled count must reach the
// cold-start minimum either way.
func (o *Orchestrator) ColdStart(ctx context.Context, actor string) (*db.TrainingRun, error) {
	actor = actorOrDefault(actor)

	flag, err := o.store.GetColdStartFlag(ctx)
	if err != nil {
		return nil, err
	}
	stats, err := o.store.GetSampleStats(ctx)
	if err != nil {
		return nil, err
	}

	if stats.Labeled < flag.MinSamples {
		metrics.TrainingTriggerCount.WithLabelValues("manual", ReasonBelowMinSamples).Inc()
		return nil, &InsufficientSamplesError{Have: stats.Labeled, Need: flag.MinSamples}
	}
	if !flag.Enabled {
		thresholds, err := o.store.GetTrainingThresholds(ctx)
		if err != nil {
			return nil, err
		}
		if ratio := stats.LabelRatio(); ratio < thresholds.MinLabelRatio {
			metrics.TrainingTriggerCount.WithLabelValues("manual", ReasonBelowLabelRatio).Inc()
			return nil, &InsufficientSamplesError{
				Have:      stats.Labeled,
				Need:      flag.MinSamples,
				RatioGate: true,
				Ratio:     ratio,
				MinRatio:  thresholds.MinLabelRatio,
			}
		}
	}

	run, err := o.store.CreateTrainingRun(ctx, &db.TrainingRunInput{
		TriggerSource: "manual:" + actor,
		SampleCount:   stats.Labeled,
		Params:        DefaultParams(),
	})
	if err != nil {
		return nil, err
	}

	metrics.TrainingTriggerCount.WithLabelValues("manual", ReasonCreated).Inc()
	o.logger.Info("cold start training run created",
		zap.String("run_id", run.ID.String()),
		zap.String("actor", actor),
		zap.Int("labeled", stats.Labeled),
	)
	return run, nil
}

// Execute hands a running run to the trainer and records the outcome: results
// move it to pending_review, any trainer error moves it to failed with the
// message verbatim. There is no retry. The returned error covers only
// lookup and persistence problems.
func (o *Orchestrator) Execute(ctx context.Context, runID uuid.UUID) (*db.TrainingRun, error) {
	run, err := o.loadRun(ctx, runID)
	if err != nil {
		return nil, err
	}

	m := newRunMachine(run, o.store, o.logger)
	if !m.can(EventComplete) {
		return nil, &RunStateError{RunID: run.ID, Status: run.Status, Action: "execute"}
	}

	start := o.now()
	trainMetrics, artifacts, trainErr := o.trainer.Train(ctx, run.SampleCount, run.Params)
	metrics.TrainingDuration.Observe(o.now().Sub(start).Seconds())

	if trainErr != nil {
		o.logger.Warn("training failed",
			zap.String("run_id", run.ID.String()),
			zap.Error(trainErr),
		)
		err = m.fire(ctx, EventFail, trainErr.Error())
	} else {
		if trainMetrics == nil {
			trainMetrics = map[string]any{}
		}
		if artifacts == nil {
			artifacts = map[string]any{}
		}
		err = m.fire(ctx, EventComplete, trainMetrics, artifacts)
	}
	if err != nil {
		return nil, o.stateChanged(ctx, run.ID, "record result of", err)
	}
	return m.run, nil
}

// Launch executes a run in the background. The execution outlives ctx's
// cancellation; use Wait to drain launched runs on shutdown.
func (o *Orchestrator) Launch(ctx context.Context, runID uuid.UUID) {
	bg := context.WithoutCancel(ctx)
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		if _, err := o.Execute(bg, runID); err != nil {
			o.logger.Error("background training run failed",
				zap.String("run_id", runID.String()),
				zap.Error(err),
			)
		}
	}()
}

// Wait blocks until all launched runs finish.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// ApproveRequest holds the operator input for an approval
type ApproveRequest struct {
	ModelName  string
	Version    string
	ApprovedBy string
}

// Approve promotes a pending_review run. Any other status is refused with a
// *RunStateError naming it, and nothing changes.
func (o *Orchestrator) Approve(ctx context.Context, runID uuid.UUID, req ApproveRequest) (*db.ModelRegistryEntry, error) {
	if strings.TrimSpace(req.ModelName) == "" {
		return nil, fmt.Errorf("model name is required")
	}
	run, err := o.loadRun(ctx, runID)
	if err != nil {
		return nil, err
	}

	version := req.Version
	if version == "" {
		version = DefaultVersion(o.now())
	}
	in := &db.ApprovalInput{
		ModelName:  req.ModelName,
		Version:    version,
		ApprovedBy: actorOrDefault(req.ApprovedBy),
	}

	m := newRunMachine(run, o.store, o.logger)
	if err := m.fire(ctx, EventApprove, in); err != nil {
		if errors.Is(err, db.ErrVersionTaken) {
			return nil, &VersionConflictError{ModelName: in.ModelName, Version: in.Version}
		}
		return nil, o.stateChanged(ctx, run.ID, EventApprove, err)
	}

	o.logger.Info("model promoted",
		zap.String("run_id", run.ID.String()),
		zap.String("model_name", in.ModelName),
		zap.String("version", in.Version),
		zap.String("approved_by", in.ApprovedBy),
	)
	return m.entry, nil
}

// Reject closes a pending_review run as failed without promoting it.
func (o *Orchestrator) Reject(ctx context.Context, runID uuid.UUID, reason, actor string) (*db.TrainingRun, error) {
	run, err := o.loadRun(ctx, runID)
	if err != nil {
		return nil, err
	}

	msg := fmt.Sprintf("rejected by %s: %s", actorOrDefault(actor), reason)
	m := newRunMachine(run, o.store, o.logger)
	if err := m.fire(ctx, EventReject, msg); err != nil {
		return nil, o.stateChanged(ctx, run.ID, EventReject, err)
	}
	return m.run, nil
}

// ListRuns returns the most recent runs, newest first. limit is clamped to
// [1, MaxListLimit]; zero or negative uses DefaultListLimit.
func (o *Orchestrator) ListRuns(ctx context.Context, limit int) ([]db.TrainingRun, error) {
	return o.store.ListTrainingRuns(ctx, ClampLimit(limit))
}

// GetRun returns a single run.
func (o *Orchestrator) GetRun(ctx context.Context, runID uuid.UUID) (*db.TrainingRun, error) {
	return o.loadRun(ctx, runID)
}

// ClampLimit normalizes a requested page size.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultListLimit
	case limit > MaxListLimit:
		return MaxListLimit
	}
	return limit
}

// DefaultVersion derives a version label from the approval time.
func DefaultVersion(t time.Time) string {
	return "v" + t.UTC().Format("20060102150405")
}

func (o *Orchestrator) loadRun(ctx context.Context, runID uuid.UUID) (*db.TrainingRun, error) {
	run, err := o.store.GetTrainingRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, &RunNotFoundError{RunID: runID}
	}
	return run, nil
}

// stateChanged turns a lost status race into a *RunStateError carrying the
// status another writer left behind.
func (o *Orchestrator) stateChanged(ctx context.Context, runID uuid.UUID, action string, err error) error {
	if !errors.Is(err, db.ErrRunStateChanged) {
		return err
	}
	current, getErr := o.store.GetTrainingRun(ctx, runID)
	if getErr != nil || current == nil {
		return err
	}
	return &RunStateError{RunID: runID, Status: current.Status, Action: action}
}

func actorOrDefault(actor string) string {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return DefaultActor
	}
	return actor
}
