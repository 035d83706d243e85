package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/footwear-triage/internal/types"
)

// -----------------------------------------------------------------------------
// Intake Record Methods
// -----------------------------------------------------------------------------

// CreateIntakeRecord inserts an analyzed item with status "created" and returns its ID
func (db *DB) CreateIntakeRecord(ctx context.Context, in *IntakeRecordInput) (uuid.UUID, error) {
	defects := in.Defects
	if defects == nil {
		defects = []string{}
	}
	defectsJSON, err := json.Marshal(defects)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to marshal defects: %w", err)
	}
	scores := in.ClassScores
	if scores == nil {
		scores = map[string]float64{}
	}
	scoresJSON, err := json.Marshal(scores)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to marshal class scores: %w", err)
	}
	pricesJSON, err := json.Marshal(in.Assessment.Prices)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to marshal prices: %w", err)
	}

	outcome := in.AssessmentOutcome
	if outcome == "" {
		outcome = "ok"
	}

	var id uuid.UUID
	err = db.pool.QueryRow(ctx,
		`INSERT INTO intake_records (contact, brand_hint, model_hint, is_target, defects, class_scores,
		                             suggestion, prices, title_zh, title_en, description, summary,
		                             assessment_outcome, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		 RETURNING id`,
		nullIfEmpty(in.Contact), nullIfEmpty(in.BrandHint), nullIfEmpty(in.ModelHint), in.IsTarget,
		defectsJSON, scoresJSON, string(in.Assessment.Suggestion), pricesJSON,
		in.Assessment.TitleZH, in.Assessment.TitleEN, in.Assessment.Description, in.Assessment.Summary,
		outcome, IntakeStatusCreated,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create intake record: %w", err)
	}
	return id, nil
}

// GetIntakeRecord retrieves an intake record by ID
func (db *DB) GetIntakeRecord(ctx context.Context, id uuid.UUID) (*IntakeRecord, error) {
	var rec IntakeRecord
	var defectsJSON, scoresJSON, pricesJSON []byte
	var suggestion string

	err := db.pool.QueryRow(ctx,
		`SELECT id, contact, brand_hint, model_hint, is_target, defects, class_scores,
		        suggestion, prices, title_zh, title_en, description, summary,
		        assessment_outcome, status, created_at
		 FROM intake_records WHERE id = $1`,
		id,
	).Scan(&rec.ID, &rec.Contact, &rec.BrandHint, &rec.ModelHint, &rec.IsTarget,
		&defectsJSON, &scoresJSON, &suggestion, &pricesJSON,
		&rec.TitleZH, &rec.TitleEN, &rec.Description, &rec.Summary,
		&rec.AssessmentOutcome, &rec.Status, &rec.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get intake record: %w", err)
	}

	rec.Suggestion = types.Suggestion(suggestion)
	if err := json.Unmarshal(defectsJSON, &rec.Defects); err != nil {
		return nil, fmt.Errorf("failed to unmarshal defects: %w", err)
	}
	if err := json.Unmarshal(scoresJSON, &rec.ClassScores); err != nil {
		return nil, fmt.Errorf("failed to unmarshal class scores: %w", err)
	}
	if err := json.Unmarshal(pricesJSON, &rec.Prices); err != nil {
		return nil, fmt.Errorf("failed to unmarshal prices: %w", err)
	}
	return &rec, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
