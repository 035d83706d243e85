package classify

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jonathan/footwear-triage/internal/types"
)

// DefaultTargetLabel is the stage-1 class that admits an image to stage 2.
const DefaultTargetLabel = "sneaker"

// Cascade runs the category classifier and, only for accepted images, the
// condition classifier.
type Cascade struct {
	stage1      Classifier
	stage2      Classifier
	targetLabel string
	logger      *zap.Logger
}

// NewCascade builds a cascade. An empty targetLabel uses DefaultTargetLabel.
func NewCascade(stage1, stage2 Classifier, targetLabel string, logger *zap.Logger) *Cascade {
	if targetLabel == "" {
		targetLabel = DefaultTargetLabel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cascade{
		stage1:      stage1,
		stage2:      stage2,
		targetLabel: targetLabel,
		logger:      logger,
	}
}

// TargetLabel returns the stage-1 label that counts as the target category.
func (c *Cascade) TargetLabel() string {
	return c.targetLabel
}

// Run classifies one image. An empty distribution from either stage is not
// an error; its top label degrades to "unknown". Transport failures are.
func (c *Cascade) Run(ctx context.Context, image []byte) (*types.CascadeResult, error) {
	s1, err := c.stage1.Classify(ctx, image)
	if err != nil {
		return nil, fmt.Errorf("stage 1: %w", err)
	}
	top1, ok := s1.Top()
	if !ok {
		c.logger.Warn("stage 1 returned no distribution")
	}

	result := &types.CascadeResult{
		TargetLabel: c.targetLabel,
		IsTarget:    ok && top1.Label == c.targetLabel,
		Stage1:      s1,
		Stage1Top:   top1,
		Defects:     []string{},
	}
	if !result.IsTarget {
		return result, nil
	}

	s2, err := c.stage2.Classify(ctx, image)
	if err != nil {
		return nil, fmt.Errorf("stage 2: %w", err)
	}
	top2, ok := s2.Top()
	if !ok {
		c.logger.Warn("stage 2 returned no distribution")
	}
	result.Stage2 = s2
	result.Stage2Top = &top2
	result.Defects = DefectsFrom(top2.Label)

	return result, nil
}

// DefectsFrom maps a stage-2 top label to the defect list. The no-signal
// sentinels yield an empty list.
func DefectsFrom(label string) []string {
	switch label {
	case types.LabelGood, types.LabelUnknown, "":
		return []string{}
	}
	return []string{label}
}
