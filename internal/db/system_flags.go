package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// -----------------------------------------------------------------------------
// System Flag Methods
// -----------------------------------------------------------------------------

// GetFlag decodes the JSON value of a flag into dst. It reports false when
// the flag does not exist, leaving dst untouched.
func (db *DB) GetFlag(ctx context.Context, key string, dst any) (bool, error) {
	var raw []byte
	err := db.pool.QueryRow(ctx, `SELECT value FROM system_flags WHERE key = $1`, key).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get flag %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("failed to decode flag %s: %w", key, err)
	}
	return true, nil
}

// SetFlag upserts a flag value
func (db *DB) SetFlag(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal flag %s: %w", key, err)
	}
	_, err = db.pool.Exec(ctx,
		`INSERT INTO system_flags (key, value) VALUES ($1, $2)
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`,
		key, raw,
	)
	if err != nil {
		return fmt.Errorf("failed to set flag %s: %w", key, err)
	}
	return nil
}

// GetTrainingThresholds returns the automatic trigger thresholds, falling back
// to defaults when the flag is absent
func (db *DB) GetTrainingThresholds(ctx context.Context) (TrainingThresholds, error) {
	t := DefaultTrainingThresholds()
	if _, err := db.GetFlag(ctx, FlagAutoTrainThreshold, &t); err != nil {
		return TrainingThresholds{}, err
	}
	return t, nil
}

// GetColdStartFlag returns the cold-start flag, falling back to defaults when absent
func (db *DB) GetColdStartFlag(ctx context.Context) (ColdStartFlag, error) {
	f := DefaultColdStartFlag()
	if _, err := db.GetFlag(ctx, FlagColdStart, &f); err != nil {
		return ColdStartFlag{}, err
	}
	return f, nil
}

// clearColdStart sets cold_start.enabled to false inside tx, creating the
// flag with defaults if it is missing.
func clearColdStart(ctx context.Context, tx pgx.Tx) error {
	def := DefaultColdStartFlag()
	def.Enabled = false
	raw, err := json.Marshal(def)
	if err != nil {
		return fmt.Errorf("failed to marshal cold start flag: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO system_flags (key, value) VALUES ($1, $2)
		 ON CONFLICT (key) DO UPDATE
		 SET value = jsonb_set(system_flags.value, '{enabled}', 'false'::jsonb), updated_at = NOW()`,
		FlagColdStart, raw,
	)
	if err != nil {
		return fmt.Errorf("failed to clear cold start flag: %w", err)
	}
	return nil
}
