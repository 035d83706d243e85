// Package intake runs the analyze flow for one uploaded photo: classify,
// assess, curate, persist and route.
package intake

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/footwear-triage/internal/assessment"
	"github.com/jonathan/footwear-triage/internal/curation"
	"github.com/jonathan/footwear-triage/internal/db"
	"github.com/jonathan/footwear-triage/internal/imaging"
	"github.com/jonathan/footwear-triage/internal/metrics"
	"github.com/jonathan/footwear-triage/internal/routing"
	"github.com/jonathan/footwear-triage/internal/types"
)

// Near-duplicate detection window
const (
	DuplicateDistance  = 4
	recentHashesWindow = 500
)

// Store persists intake records and dataset samples. *db.DB implements it.
type Store interface {
	CreateIntakeRecord(ctx context.Context, in *db.IntakeRecordInput) (uuid.UUID, error)
	CreateDatasetSample(ctx context.Context, in *db.DatasetSampleInput) (uuid.UUID, error)
	ListRecentHashes(ctx context.Context, limit int) ([]string, error)
}

// Cascade classifies an image. *classify.Cascade implements it.
type Cascade interface {
	Run(ctx context.Context, image []byte) (*types.CascadeResult, error)
}

// Assessor produces an assessment. *assessment.Generator implements it.
type Assessor interface {
	Assess(ctx context.Context, image []byte, mimeType string, cascade *types.CascadeResult, hints assessment.Hints) assessment.Result
}

// Router records logistics for donated and recycled items. *routing.Engine implements it.
type Router interface {
	Route(ctx context.Context, itemID uuid.UUID, suggestion types.Suggestion) (*types.RoutingPayload, error)
}

// Limits bounds accepted uploads.
type Limits struct {
	MaxBytes int64
	MaxSide  int
}

// Request is one analyze call.
type Request struct {
	Image   []byte
	Contact string
	Brand   string
	Model   string
}

// Response is returned to the submitter. QRBase64 is nil for resale.
type Response struct {
	ItemID     uuid.UUID        `json:"item_id"`
	IsTarget   bool             `json:"is_sneaker"`
	Defects    []string         `json:"defects"`
	Assessment types.Assessment `json:"vlm"`
	QRBase64   *string          `json:"qr_b64"`
}

// Service wires the analyze flow together.
type Service struct {
	store    Store
	cascade  Cascade
	assessor Assessor
	curator  *curation.Curator
	router   Router
	limits   Limits
	logger   *zap.Logger
}

// NewService creates an intake service.
func NewService(store Store, cascade Cascade, assessor Assessor, router Router, limits Limits, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if limits.MaxBytes <= 0 {
		limits.MaxBytes = DefaultMaxUploadBytes
	}
	if limits.MaxSide <= 0 {
		limits.MaxSide = imaging.DefaultMaxSide
	}
	return &Service{
		store:    store,
		cascade:  cascade,
		assessor: assessor,
		curator:  curation.NewCurator(logger),
		router:   router,
		limits:   limits,
		logger:   logger,
	}
}

// Analyze processes one image. Upload problems are returned as *UploadError
// before anything is written. Once the intake record exists, a routing
// failure fails the request without rolling the record back, and a dataset
// sample failure is only logged.
func (s *Service) Analyze(ctx context.Context, req *Request) (resp *Response, err error) {
	start := time.Now()
	defer func() {
		result := "ok"
		if err != nil {
			result = "error"
		}
		metrics.AnalyzeCount.WithLabelValues(result).Inc()
		metrics.AnalyzeDuration.Observe(time.Since(start).Seconds())
	}()

	mimeType, err := CheckUpload(req.Image, s.limits.MaxBytes)
	if err != nil {
		return nil, err
	}
	prepared, err := imaging.Prepare(req.Image, mimeType, s.limits.MaxSide)
	if errors.Is(err, imaging.ErrTooLarge) {
		return nil, &UploadError{Kind: UploadTooLarge, Reason: err.Error()}
	}
	if err != nil {
		return nil, &UploadError{Kind: UploadUndecodable, Reason: err.Error()}
	}
	if prepared.Downscaled {
		s.logger.Debug("image downscaled",
			zap.Int("width", prepared.Width),
			zap.Int("height", prepared.Height),
		)
	}

	stageStart := time.Now()
	cascade, err := s.cascade.Run(ctx, prepared.Data)
	if err != nil {
		return nil, &ClassificationError{Err: err}
	}
	metrics.InferenceDuration.WithLabelValues("cascade").Observe(time.Since(stageStart).Seconds())

	stageStart = time.Now()
	result := s.assessor.Assess(ctx, prepared.Data, prepared.MIMEType, cascade, assessment.Hints{
		Brand: req.Brand,
		Model: req.Model,
	})
	metrics.InferenceDuration.WithLabelValues("assessment").Observe(time.Since(stageStart).Seconds())
	if result.IsFallback() {
		metrics.AssessmentFallbackCount.WithLabelValues(string(result.Kind)).Inc()
	}
	a := result.Assessment

	stage1, stage2 := confidences(cascade)
	signals, err := s.curator.Curate(prepared.Image, stage1, stage2, curationDefects(cascade, a), a.Suggestion)
	if err != nil {
		return nil, err
	}

	itemID, err := s.store.CreateIntakeRecord(ctx, &db.IntakeRecordInput{
		Contact:           req.Contact,
		BrandHint:         req.Brand,
		ModelHint:         req.Model,
		IsTarget:          cascade.IsTarget,
		Defects:           cascade.Defects,
		ClassScores:       cascade.RawScores(),
		Assessment:        a,
		AssessmentOutcome: string(result.Outcome),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create intake record: %w", err)
	}

	resp = &Response{
		ItemID:     itemID,
		IsTarget:   cascade.IsTarget,
		Defects:    cascade.Defects,
		Assessment: a,
	}

	payload, err := s.router.Route(ctx, itemID, a.Suggestion)
	if err != nil {
		s.logger.Error("routing failed after intake record was created",
			zap.String("item_id", itemID.String()),
			zap.String("suggestion", string(a.Suggestion)),
			zap.Error(err),
		)
		return nil, err
	}
	metrics.RouteCount.WithLabelValues(string(a.Suggestion)).Inc()
	if payload != nil {
		qr, err := routing.EncodeQR(payload)
		if err != nil {
			return nil, err
		}
		resp.QRBase64 = &qr
	}

	s.recordSample(ctx, itemID, cascade, a.Suggestion, signals)

	s.logger.Info("item analyzed",
		zap.String("item_id", itemID.String()),
		zap.Bool("is_target", cascade.IsTarget),
		zap.Strings("defects", cascade.Defects),
		zap.String("suggestion", string(a.Suggestion)),
		zap.String("assessment_outcome", string(result.Outcome)),
		zap.Bool("candidate", signals.Candidate),
	)
	return resp, nil
}

// recordSample writes the dataset sample. Failures do not fail the request.
func (s *Service) recordSample(ctx context.Context, itemID uuid.UUID, cascade *types.CascadeResult, suggestion types.Suggestion, signals *curation.Signals) {
	if signals.Candidate {
		metrics.CandidateCount.WithLabelValues(string(signals.Rule)).Inc()
	}
	s.checkDuplicate(ctx, itemID, signals.PHash)

	in := &db.DatasetSampleInput{
		IntakeID:      itemID,
		PHash:         signals.PHash,
		BlurScore:     signals.BlurScore,
		S1Label:       cascade.Stage1Top.Label,
		S1Conf:        cascade.Stage1Top.Confidence,
		Suggestion:    suggestion,
		IsCandidate:   signals.Candidate,
		CandidateRule: string(signals.Rule),
	}
	if cascade.Stage2Ran() {
		label, conf := cascade.Stage2Top.Label, cascade.Stage2Top.Confidence
		in.S2Label, in.S2Conf = &label, &conf
	}

	if _, err := s.store.CreateDatasetSample(ctx, in); err != nil {
		metrics.SampleWriteFailureCount.Inc()
		s.logger.Warn("failed to record dataset sample",
			zap.String("item_id", itemID.String()),
			zap.Error(err),
		)
	}
}

// checkDuplicate logs when the hash is close to a recently stored sample.
func (s *Service) checkDuplicate(ctx context.Context, itemID uuid.UUID, hash string) {
	recent, err := s.store.ListRecentHashes(ctx, recentHashesWindow)
	if err != nil {
		s.logger.Debug("near-duplicate check skipped", zap.Error(err))
		return
	}
	for _, other := range recent {
		d, err := curation.HammingDistance(hash, other)
		if err != nil || d > DuplicateDistance {
			continue
		}
		metrics.NearDuplicateCount.Inc()
		s.logger.Info("near-duplicate image",
			zap.String("item_id", itemID.String()),
			zap.String("phash", hash),
			zap.String("matches", other),
			zap.Int("distance", d),
		)
		return
	}
}

// confidences returns the stage confidences the curator sees. Stage 2 is nil
// when it did not run.
func confidences(c *types.CascadeResult) (*float64, *float64) {
	s1 := c.Stage1Top.Confidence
	if !c.Stage2Ran() {
		return &s1, nil
	}
	s2 := c.Stage2Top.Confidence
	return &s1, &s2
}

// curationDefects combines the stage-2 top label with the assessed defects.
// The cascade's own list drops "good", which the conflict rule needs.
func curationDefects(c *types.CascadeResult, a types.Assessment) []string {
	var out []string
	if c.Stage2Ran() {
		out = append(out, c.Stage2Top.Label)
	}
	return append(out, a.Defects...)
}
