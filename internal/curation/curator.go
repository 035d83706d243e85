// Package curation computes per-image quality signals and decides whether an
// analyzed image is worth labeling for the next training round.
package curation

import (
	"fmt"
	"image"

	"go.uber.org/zap"

	"github.com/jonathan/footwear-triage/internal/types"
)

// Confidence thresholds below which the cascade is considered uncertain.
const (
	Stage1Threshold = 0.70
	Stage2Threshold = 0.60
)

// Rule names the candidate rule that fired.
type Rule string

// Rule values, in evaluation order
const (
	RuleNone              Rule = ""
	RuleStage1Uncertain   Rule = "stage1_uncertain"
	RuleStage2Uncertain   Rule = "stage2_uncertain"
	RuleConditionConflict Rule = "condition_conflict"
)

// IsCandidate applies the ordered candidate rules. A nil confidence means the
// stage did not run and counts as fully confident.
func IsCandidate(stage1, stage2 *float64, defects []string, suggestion types.Suggestion) (bool, Rule) {
	if confidenceOrMax(stage1) < Stage1Threshold {
		return true, RuleStage1Uncertain
	}
	if confidenceOrMax(stage2) < Stage2Threshold {
		return true, RuleStage2Uncertain
	}
	if suggestion.NeedsRouting() && contains(defects, types.LabelGood) {
		return true, RuleConditionConflict
	}
	return false, RuleNone
}

func confidenceOrMax(c *float64) float64 {
	if c == nil {
		return 1.0
	}
	return *c
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Signals are the curation outputs stored with a dataset sample.
type Signals struct {
	PHash     string
	BlurScore float64
	Candidate bool
	Rule      Rule
}

// Curator computes Signals for analyzed images.
type Curator struct {
	logger *zap.Logger
}

// NewCurator creates a curator. A nil logger disables logging.
func NewCurator(logger *zap.Logger) *Curator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Curator{logger: logger}
}

// Curate fingerprints img, scores its sharpness and evaluates the candidate rules.
func (c *Curator) Curate(img image.Image, stage1, stage2 *float64, defects []string, suggestion types.Suggestion) (*Signals, error) {
	hash, err := PerceptualHash(img)
	if err != nil {
		return nil, fmt.Errorf("failed to hash image: %w", err)
	}

	candidate, rule := IsCandidate(stage1, stage2, defects, suggestion)
	s := &Signals{
		PHash:     hash,
		BlurScore: BlurScore(img),
		Candidate: candidate,
		Rule:      rule,
	}

	if candidate {
		c.logger.Debug("training candidate",
			zap.String("rule", string(rule)),
			zap.String("phash", hash),
		)
	}
	return s, nil
}
