package assessment

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/footwear-triage/internal/llm"
	"github.com/jonathan/footwear-triage/internal/types"
)

// Generator produces an assessment for one image using the vision model.
type Generator struct {
	client    llm.VisionClient
	validator *Validator
	logger    *zap.Logger
}

// NewGenerator creates a generator backed by client.
func NewGenerator(client llm.VisionClient, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{
		client:    client,
		validator: NewValidator(logger),
		logger:    logger,
	}
}

// Assess calls the model exactly once and validates its output. A model error
// is handled like unusable output: the fallback is returned, never the error.
func (g *Generator) Assess(ctx context.Context, image []byte, mimeType string, cascade *types.CascadeResult, hints Hints) Result {
	prompt := BuildPrompt(cascade.TargetLabel, cascade.IsTarget, hints, cascade.Defects)

	start := time.Now()
	raw, err := g.client.GenerateFromImage(ctx, prompt, image, mimeType)
	if err != nil {
		g.logger.Warn("vision model call failed, using fallback",
			zap.String("model", g.client.ModelName()),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return Result{Assessment: Fallback(), Outcome: OutcomeFallback, Reason: err.Error(), Kind: KindModelError}
	}

	g.logger.Debug("vision model responded",
		zap.String("model", g.client.ModelName()),
		zap.Duration("elapsed", time.Since(start)),
	)
	return g.validator.Validate(raw)
}
