package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// -----------------------------------------------------------------------------
// Dataset Sample Methods
// -----------------------------------------------------------------------------

// CreateDatasetSample inserts the curation record for an intake and returns its ID.
// The candidate flag is stored as computed and never recomputed.
func (db *DB) CreateDatasetSample(ctx context.Context, in *DatasetSampleInput) (uuid.UUID, error) {
	var id uuid.UUID
	err := db.pool.QueryRow(ctx,
		`INSERT INTO dataset_samples (intake_id, phash, blur_score, s1_label, s1_conf, s2_label, s2_conf,
		                              suggestion, is_candidate, candidate_rule)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING id`,
		in.IntakeID, in.PHash, in.BlurScore, in.S1Label, in.S1Conf, in.S2Label, in.S2Conf,
		string(in.Suggestion), in.IsCandidate, in.CandidateRule,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create dataset sample: %w", err)
	}
	return id, nil
}

// GetDatasetSampleByIntake retrieves the sample recorded for an intake
func (db *DB) GetDatasetSampleByIntake(ctx context.Context, intakeID uuid.UUID) (*DatasetSample, error) {
	var s DatasetSample
	err := db.pool.QueryRow(ctx,
		`SELECT id, intake_id, phash, blur_score, s1_label, s1_conf, s2_label, s2_conf,
		        suggestion, is_candidate, candidate_rule, is_labeled, created_at
		 FROM dataset_samples WHERE intake_id = $1`,
		intakeID,
	).Scan(&s.ID, &s.IntakeID, &s.PHash, &s.BlurScore, &s.S1Label, &s.S1Conf, &s.S2Label, &s.S2Conf,
		&s.Suggestion, &s.IsCandidate, &s.CandidateRule, &s.IsLabeled, &s.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get dataset sample: %w", err)
	}
	return &s, nil
}

// GetSampleStats counts all samples and labeled samples
func (db *DB) GetSampleStats(ctx context.Context) (SampleStats, error) {
	var stats SampleStats
	err := db.pool.QueryRow(ctx,
		`SELECT COUNT(*), COUNT(*) FILTER (WHERE is_labeled) FROM dataset_samples`,
	).Scan(&stats.Total, &stats.Labeled)
	if err != nil {
		return SampleStats{}, fmt.Errorf("failed to count dataset samples: %w", err)
	}
	return stats, nil
}

// SetSampleLabeled marks a sample as labeled or unlabeled. Labeling itself
// happens outside this service.
func (db *DB) SetSampleLabeled(ctx context.Context, id uuid.UUID, labeled bool) error {
	tag, err := db.pool.Exec(ctx,
		`UPDATE dataset_samples SET is_labeled = $2 WHERE id = $1`,
		id, labeled,
	)
	if err != nil {
		return fmt.Errorf("failed to update dataset sample: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("dataset sample not found: %s", id)
	}
	return nil
}

// ListRecentHashes returns the perceptual hashes of the most recent samples,
// newest first, for near-duplicate checks.
func (db *DB) ListRecentHashes(ctx context.Context, limit int) ([]string, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT phash FROM dataset_samples ORDER BY created_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list sample hashes: %w", err)
	}
	defer rows.Close()

	var hashes []string
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, err
		}
		hashes = append(hashes, h)
	}
	return hashes, rows.Err()
}
