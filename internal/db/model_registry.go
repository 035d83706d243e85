package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// -----------------------------------------------------------------------------
// Model Registry Methods
// -----------------------------------------------------------------------------

// GetModelRegistryEntryByRun returns the registry entry created from a run, or nil
func (db *DB) GetModelRegistryEntryByRun(ctx context.Context, runID uuid.UUID) (*ModelRegistryEntry, error) {
	entry, err := scanRegistryEntry(db.pool.QueryRow(ctx,
		`SELECT id, model_name, run_id, version, metrics, artifacts, approved_by, created_at
		 FROM model_registry WHERE run_id = $1`,
		runID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get registry entry: %w", err)
	}
	return entry, nil
}

// ListModelRegistry returns the promotions of a model, newest first
func (db *DB) ListModelRegistry(ctx context.Context, modelName string, limit int) ([]ModelRegistryEntry, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, model_name, run_id, version, metrics, artifacts, approved_by, created_at
		 FROM model_registry WHERE model_name = $1
		 ORDER BY created_at DESC LIMIT $2`,
		modelName, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list registry entries: %w", err)
	}
	defer rows.Close()

	var entries []ModelRegistryEntry
	for rows.Next() {
		entry, err := scanRegistryEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	return entries, rows.Err()
}

func scanRegistryEntry(row pgx.Row) (*ModelRegistryEntry, error) {
	var e ModelRegistryEntry
	var metricsJSON, artifactsJSON []byte
	if err := row.Scan(&e.ID, &e.ModelName, &e.RunID, &e.Version, &metricsJSON, &artifactsJSON,
		&e.ApprovedBy, &e.CreatedAt); err != nil {
		return nil, err
	}
	if err := decodeJSONColumn("metrics", metricsJSON, &e.Metrics); err != nil {
		return nil, fmt.Errorf("model registry entry %s: %w", e.ID, err)
	}
	if err := decodeJSONColumn("artifacts", artifactsJSON, &e.Artifacts); err != nil {
		return nil, fmt.Errorf("model registry entry %s: %w", e.ID, err)
	}
	return &e, nil
}
