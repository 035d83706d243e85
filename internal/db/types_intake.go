package db

import (
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/footwear-triage/internal/types"
)

// IntakeStatusCreated is the status of a freshly analyzed item.
const IntakeStatusCreated = "created"

// IntakeRecord is one analyzed image and its assessment
type IntakeRecord struct {
	ID                uuid.UUID          `json:"id"`
	Contact           *string            `json:"contact,omitempty"`
	BrandHint         *string            `json:"brand_hint,omitempty"`
	ModelHint         *string            `json:"model_hint,omitempty"`
	IsTarget          bool               `json:"is_target"`
	Defects           []string           `json:"defects"`
	ClassScores       map[string]float64 `json:"class_scores"`
	Suggestion        types.Suggestion   `json:"suggestion"`
	Prices            types.PriceTable   `json:"prices"`
	TitleZH           string             `json:"title_zh"`
	TitleEN           string             `json:"title_en"`
	Description       string             `json:"description"`
	Summary           string             `json:"summary"`
	AssessmentOutcome string             `json:"assessment_outcome"`
	Status            string             `json:"status"`
	CreatedAt         time.Time          `json:"created_at"`
}

// IntakeRecordInput holds the fields supplied when creating an intake record
type IntakeRecordInput struct {
	Contact           string
	BrandHint         string
	ModelHint         string
	IsTarget          bool
	Defects           []string
	ClassScores       map[string]float64
	Assessment        types.Assessment
	AssessmentOutcome string
}

// DatasetSample is the curation record kept for one analyzed image
type DatasetSample struct {
	ID            uuid.UUID `json:"id"`
	IntakeID      uuid.UUID `json:"intake_id"`
	PHash         string    `json:"phash"`
	BlurScore     float64   `json:"blur_score"`
	S1Label       string    `json:"s1_label"`
	S1Conf        float64   `json:"s1_conf"`
	S2Label       *string   `json:"s2_label,omitempty"`
	S2Conf        *float64  `json:"s2_conf,omitempty"`
	Suggestion    string    `json:"suggestion"`
	IsCandidate   bool      `json:"is_candidate"`
	CandidateRule string    `json:"candidate_rule,omitempty"`
	IsLabeled     bool      `json:"is_labeled"`
	CreatedAt     time.Time `json:"created_at"`
}

// DatasetSampleInput holds the fields supplied when creating a dataset sample
type DatasetSampleInput struct {
	IntakeID      uuid.UUID
	PHash         string
	BlurScore     float64
	S1Label       string
	S1Conf        float64
	S2Label       *string
	S2Conf        *float64
	Suggestion    types.Suggestion
	IsCandidate   bool
	CandidateRule string
}

// SampleStats summarizes the dataset for trigger evaluation
type SampleStats struct {
	Total   int `json:"total"`
	Labeled int `json:"labeled"`
}

// LabelRatio returns Labeled/Total, or 0 when the dataset is empty.
func (s SampleStats) LabelRatio() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Labeled) / float64(s.Total)
}

// LogisticsRecord is a routing payload persisted for a donated or recycled item
type LogisticsRecord struct {
	ID        uuid.UUID `json:"id"`
	ItemID    uuid.UUID `json:"item_id"`
	Route     string    `json:"route"`
	QRPayload []byte    `json:"qr_payload"`
	CreatedAt time.Time `json:"created_at"`
}
