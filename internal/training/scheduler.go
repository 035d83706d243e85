package training

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler evaluates the automatic trigger on a cron schedule and executes
// any run it creates. Overlapping ticks are skipped.
type Scheduler struct {
	orchestrator *Orchestrator
	logger       *zap.Logger
	cron         *cron.Cron
}

// NewScheduler parses schedule (standard 5-field cron syntax or descriptors such
// as "@hourly") and prepares the job. Call Start to begin.
func NewScheduler(o *Orchestrator, schedule string, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Scheduler{
		orchestrator: o,
		logger:       logger,
		cron: cron.New(cron.WithChain(
			cron.SkipIfStillRunning(cron.DiscardLogger),
		)),
	}
	if _, err := s.cron.AddFunc(schedule, s.tick); err != nil {
		return nil, fmt.Errorf("invalid training schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Start runs the scheduler in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop prevents further ticks and returns a context that is done when the
// running tick, if any, has finished.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

func (s *Scheduler) tick() {
	ctx := context.Background()
	decision, err := s.orchestrator.TriggerAuto(ctx)
	if err != nil {
		s.logger.Error("scheduled training trigger failed", zap.Error(err))
		return
	}
	if !decision.Created() {
		return
	}

	run, err := s.orchestrator.Execute(ctx, decision.Run.ID)
	if err != nil {
		s.logger.Error("scheduled training run failed",
			zap.String("run_id", decision.Run.ID.String()),
			zap.Error(err),
		)
		return
	}
	s.logger.Info("scheduled training run finished",
		zap.String("run_id", run.ID.String()),
		zap.String("status", run.Status),
	)
}
