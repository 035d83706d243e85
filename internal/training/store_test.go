package training

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/footwear-triage/internal/db"
)

// memStore is an in-memory Store with the same status guards as the database.
type memStore struct {
	mu         sync.Mutex
	stats      db.SampleStats
	thresholds db.TrainingThresholds
	coldStart  db.ColdStartFlag
	runs       map[uuid.UUID]*db.TrainingRun
	registry   []db.ModelRegistryEntry
	clock      time.Time

	// failNext makes the next Complete/Fail/Approve write return this error.
	failNext error
}

func newMemStore() *memStore {
	return &memStore{
		thresholds: db.DefaultTrainingThresholds(),
		coldStart:  db.DefaultColdStartFlag(),
		runs:       map[uuid.UUID]*db.TrainingRun{},
		clock:      time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (s *memStore) GetSampleStats(context.Context) (db.SampleStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats, nil
}

func (s *memStore) GetTrainingThresholds(context.Context) (db.TrainingThresholds, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.thresholds, nil
}

func (s *memStore) GetColdStartFlag(context.Context) (db.ColdStartFlag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.coldStart, nil
}

func (s *memStore) CreateTrainingRun(_ context.Context, in *db.TrainingRunInput) (*db.TrainingRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if in.RequireIdle {
		for _, r := range s.runs {
			if !r.IsTerminal() {
				return nil, db.ErrRunInFlight
			}
		}
	}

	s.clock = s.clock.Add(time.Second)
	run := &db.TrainingRun{
		ID:            uuid.New(),
		Status:        db.RunStatusRunning,
		TriggerSource: in.TriggerSource,
		SampleCount:   in.SampleCount,
		Params:        in.Params,
		StartedAt:     s.clock,
	}
	s.runs[run.ID] = run
	cp := *run
	return &cp, nil
}

func (s *memStore) GetTrainingRun(_ context.Context, id uuid.UUID) (*db.TrainingRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.runs[id]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (s *memStore) ListTrainingRuns(_ context.Context, limit int) ([]db.TrainingRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	runs := make([]db.TrainingRun, 0, len(s.runs))
	for _, r := range s.runs {
		runs = append(runs, *r)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].StartedAt.After(runs[j].StartedAt) })
	if len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

func (s *memStore) takeFailure() error {
	err := s.failNext
	s.failNext = nil
	return err
}

func (s *memStore) guarded(id uuid.UUID, from string, apply func(r *db.TrainingRun)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return err
	}
	r, ok := s.runs[id]
	if !ok || r.Status != from {
		return db.ErrRunStateChanged
	}
	apply(r)
	return nil
}

func (s *memStore) CompleteTrainingRun(_ context.Context, id uuid.UUID, metrics, artifacts map[string]any) error {
	return s.guarded(id, db.RunStatusRunning, func(r *db.TrainingRun) {
		r.Status = db.RunStatusPendingReview
		r.Metrics, r.Artifacts = metrics, artifacts
	})
}

func (s *memStore) FailTrainingRun(_ context.Context, id uuid.UUID, msg string) error {
	return s.guarded(id, db.RunStatusRunning, func(r *db.TrainingRun) {
		r.Status = db.RunStatusFailed
		r.ErrorMessage = &msg
	})
}

func (s *memStore) RejectTrainingRun(_ context.Context, id uuid.UUID, msg string) error {
	return s.guarded(id, db.RunStatusPendingReview, func(r *db.TrainingRun) {
		r.Status = db.RunStatusFailed
		r.ErrorMessage = &msg
	})
}

func (s *memStore) ApproveTrainingRun(_ context.Context, id uuid.UUID, in *db.ApprovalInput) (*db.ModelRegistryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return nil, err
	}
	r, ok := s.runs[id]
	if !ok || r.Status != db.RunStatusPendingReview {
		return nil, db.ErrRunStateChanged
	}
	for _, e := range s.registry {
		if e.ModelName == in.ModelName && e.Version == in.Version {
			return nil, db.ErrVersionTaken
		}
	}

	r.Status = db.RunStatusSucceeded
	by := in.ApprovedBy
	r.ApprovedBy = &by
	entry := db.ModelRegistryEntry{
		ID:         uuid.New(),
		ModelName:  in.ModelName,
		RunID:      id,
		Version:    in.Version,
		Metrics:    r.Metrics,
		Artifacts:  r.Artifacts,
		ApprovedBy: in.ApprovedBy,
	}
	s.registry = append(s.registry, entry)
	s.coldStart.Enabled = false
	return &entry, nil
}

func (s *memStore) registryFor(runID uuid.UUID) []db.ModelRegistryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []db.ModelRegistryEntry
	for _, e := range s.registry {
		if e.RunID == runID {
			out = append(out, e)
		}
	}
	return out
}

func (s *memStore) status(id uuid.UUID) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs[id].Status
}
