package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// -----------------------------------------------------------------------------
// Training Run Methods
// -----------------------------------------------------------------------------

// trainingRunLockKey serializes run creation across processes.
const trainingRunLockKey = 0x7472_6169_6e73

const trainingRunColumns = `id, status, trigger_source, sample_count, params, metrics, artifacts,
	error_message, started_at, finished_at, approved_at, approved_by`

// CreateTrainingRun inserts a run in status "running". With RequireIdle it
// returns ErrRunInFlight instead when a running or pending_review run exists.
func (db *DB) CreateTrainingRun(ctx context.Context, in *TrainingRunInput) (*TrainingRun, error) {
	params := in.Params
	if params == nil {
		params = map[string]any{}
	}
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal params: %w", err)
	}

	var run *TrainingRun
	err = db.withTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(trainingRunLockKey)); err != nil {
			return fmt.Errorf("failed to lock training runs: %w", err)
		}

		if in.RequireIdle {
			var active bool
			if err := tx.QueryRow(ctx,
				`SELECT EXISTS (SELECT 1 FROM training_runs WHERE status IN ($1, $2))`,
				RunStatusRunning, RunStatusPendingReview,
			).Scan(&active); err != nil {
				return fmt.Errorf("failed to check active runs: %w", err)
			}
			if active {
				return ErrRunInFlight
			}
		}

		var scanErr error
		run, scanErr = scanTrainingRun(tx.QueryRow(ctx,
			`INSERT INTO training_runs (status, trigger_source, sample_count, params)
			 VALUES ($1, $2, $3, $4)
			 RETURNING `+trainingRunColumns,
			RunStatusRunning, in.TriggerSource, in.SampleCount, paramsJSON,
		))
		return scanErr
	})
	if err != nil {
		if errors.Is(err, ErrRunInFlight) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create training run: %w", err)
	}
	return run, nil
}

// GetTrainingRun retrieves a run by ID, or nil if it does not exist
func (db *DB) GetTrainingRun(ctx context.Context, id uuid.UUID) (*TrainingRun, error) {
	run, err := scanTrainingRun(db.pool.QueryRow(ctx,
		`SELECT `+trainingRunColumns+` FROM training_runs WHERE id = $1`, id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get training run: %w", err)
	}
	return run, nil
}

// ListTrainingRuns returns the most recent runs, newest first
func (db *DB) ListTrainingRuns(ctx context.Context, limit int) ([]TrainingRun, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+trainingRunColumns+` FROM training_runs ORDER BY started_at DESC, id DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list training runs: %w", err)
	}
	defer rows.Close()

	runs := []TrainingRun{}
	for rows.Next() {
		run, err := scanTrainingRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// CompleteTrainingRun moves a running run to pending_review with its results
func (db *DB) CompleteTrainingRun(ctx context.Context, id uuid.UUID, metrics, artifacts map[string]any) error {
	metricsJSON, err := json.Marshal(metrics)
	if err != nil {
		return fmt.Errorf("failed to marshal metrics: %w", err)
	}
	artifactsJSON, err := json.Marshal(artifacts)
	if err != nil {
		return fmt.Errorf("failed to marshal artifacts: %w", err)
	}

	return db.guardedUpdate(ctx,
		`UPDATE training_runs
		 SET status = $2, metrics = $3, artifacts = $4, finished_at = NOW()
		 WHERE id = $1 AND status = $5`,
		id, RunStatusPendingReview, metricsJSON, artifactsJSON, RunStatusRunning,
	)
}

// FailTrainingRun moves a running run to failed, recording msg verbatim
func (db *DB) FailTrainingRun(ctx context.Context, id uuid.UUID, msg string) error {
	return db.guardedUpdate(ctx,
		`UPDATE training_runs
		 SET status = $2, error_message = $3, finished_at = NOW()
		 WHERE id = $1 AND status = $4`,
		id, RunStatusFailed, msg, RunStatusRunning,
	)
}

// RejectTrainingRun moves a pending_review run to failed
func (db *DB) RejectTrainingRun(ctx context.Context, id uuid.UUID, msg string) error {
	return db.guardedUpdate(ctx,
		`UPDATE training_runs
		 SET status = $2, error_message = $3
		 WHERE id = $1 AND status = $4`,
		id, RunStatusFailed, msg, RunStatusPendingReview,
	)
}

// ApproveTrainingRun promotes a pending_review run in one transaction: the
// run becomes succeeded, a registry entry snapshots its metrics and
// artifacts, and the cold-start flag is cleared.
func (db *DB) ApproveTrainingRun(ctx context.Context, id uuid.UUID, in *ApprovalInput) (*ModelRegistryEntry, error) {
	entry := &ModelRegistryEntry{
		ModelName:  in.ModelName,
		RunID:      id,
		Version:    in.Version,
		ApprovedBy: in.ApprovedBy,
	}

	err := db.withTx(ctx, func(tx pgx.Tx) error {
		var metricsJSON, artifactsJSON []byte
		err := tx.QueryRow(ctx,
			`UPDATE training_runs
			 SET status = $2, approved_at = NOW(), approved_by = $3
			 WHERE id = $1 AND status = $4
			 RETURNING COALESCE(metrics, '{}'::jsonb), COALESCE(artifacts, '{}'::jsonb)`,
			id, RunStatusSucceeded, in.ApprovedBy, RunStatusPendingReview,
		).Scan(&metricsJSON, &artifactsJSON)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrRunStateChanged
			}
			return fmt.Errorf("failed to update run: %w", err)
		}

		err = tx.QueryRow(ctx,
			`INSERT INTO model_registry (model_name, run_id, version, metrics, artifacts, approved_by)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 RETURNING id, created_at`,
			in.ModelName, id, in.Version, metricsJSON, artifactsJSON, in.ApprovedBy,
		).Scan(&entry.ID, &entry.CreatedAt)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return ErrVersionTaken
			}
			return fmt.Errorf("failed to create registry entry: %w", err)
		}

		if err := json.Unmarshal(metricsJSON, &entry.Metrics); err != nil {
			return fmt.Errorf("failed to unmarshal metrics: %w", err)
		}
		if err := json.Unmarshal(artifactsJSON, &entry.Artifacts); err != nil {
			return fmt.Errorf("failed to unmarshal artifacts: %w", err)
		}

		return clearColdStart(ctx, tx)
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// guardedUpdate runs a status-guarded UPDATE and maps "no row" to ErrRunStateChanged.
func (db *DB) guardedUpdate(ctx context.Context, sql string, args ...any) error {
	tag, err := db.pool.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("failed to update training run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRunStateChanged
	}
	return nil
}

func scanTrainingRun(row pgx.Row) (*TrainingRun, error) {
	var run TrainingRun
	var paramsJSON, metricsJSON, artifactsJSON []byte

	if err := row.Scan(&run.ID, &run.Status, &run.TriggerSource, &run.SampleCount,
		&paramsJSON, &metricsJSON, &artifactsJSON, &run.ErrorMessage,
		&run.StartedAt, &run.FinishedAt, &run.ApprovedAt, &run.ApprovedBy); err != nil {
		return nil, err
	}

	if err := decodeJSONColumn("params", paramsJSON, &run.Params); err != nil {
		return nil, fmt.Errorf("training run %s: %w", run.ID, err)
	}
	if err := decodeJSONColumn("metrics", metricsJSON, &run.Metrics); err != nil {
		return nil, fmt.Errorf("training run %s: %w", run.ID, err)
	}
	if err := decodeJSONColumn("artifacts", artifactsJSON, &run.Artifacts); err != nil {
		return nil, fmt.Errorf("training run %s: %w", run.ID, err)
	}
	return &run, nil
}

// decodeJSONColumn unmarshals a JSONB column. SQL NULL leaves dst untouched.
func decodeJSONColumn(column string, raw []byte, dst any) error {
	if raw == nil {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("failed to decode %s: %w", column, err)
	}
	return nil
}
