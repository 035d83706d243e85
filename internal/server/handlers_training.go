package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/jonathan/footwear-triage/internal/db"
	"github.com/jonathan/footwear-triage/internal/training"
	"github.com/jonathan/footwear-triage/internal/types"
)

// ColdStartResponse is returned when a cold-start run is created
type ColdStartResponse struct {
	RunID       uuid.UUID `json:"run_id"`
	Status      string    `json:"status"`
	SampleCount int       `json:"sample_count"`
}

// ListRunsResponse wraps a page of runs
type ListRunsResponse struct {
	Runs  []db.TrainingRun `json:"runs"`
	Count int              `json:"count"`
}

// ApproveRunResponse confirms a promotion
type ApproveRunResponse struct {
	RunID  uuid.UUID              `json:"run_id"`
	Status string                 `json:"status"`
	Model  *db.ModelRegistryEntry `json:"model"`
}

// handleTrigger evaluates the automatic trigger now. A created run is
// executed in the background.
func (s *Server) handleTrigger(w http.ResponseWriter, r *http.Request) {
	decision, err := s.training.TriggerAuto(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if !decision.Created() {
		s.jsonResponse(w, http.StatusOK, decision)
		return
	}
	s.training.Launch(r.Context(), decision.Run.ID)
	s.jsonResponse(w, http.StatusAccepted, decision)
}

// handleColdStart forces a run when the labeled count allows it.
func (s *Server) handleColdStart(w http.ResponseWriter, r *http.Request) {
	var req types.ColdStartRequest
	if err := decodeOptionalBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		s.writeError(w, r, validationError(err))
		return
	}

	run, err := s.training.ColdStart(r.Context(), req.Actor)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.training.Launch(r.Context(), run.ID)

	s.jsonResponse(w, http.StatusAccepted, ColdStartResponse{
		RunID:       run.ID,
		Status:      run.Status,
		SampleCount: run.SampleCount,
	})
}

// handleListRuns returns the most recent runs, newest first.
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := s.listLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			s.writeError(w, r, &ErrValidation{Field: "limit", Message: "must be a positive integer"})
			return
		}
		limit = n
	}

	runs, err := s.training.ListRuns(r.Context(), training.ClampLimit(limit))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if runs == nil {
		runs = []db.TrainingRun{}
	}
	s.jsonResponse(w, http.StatusOK, ListRunsResponse{Runs: runs, Count: len(runs)})
}

// handleApproveRun promotes a run awaiting review.
func (s *Server) handleApproveRun(w http.ResponseWriter, r *http.Request) {
	runID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, &ErrValidation{Field: "id", Message: "invalid run ID"})
		return
	}

	var req types.ApproveRunRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		s.writeError(w, r, validationError(err))
		return
	}

	entry, err := s.training.Approve(r.Context(), runID, training.ApproveRequest{
		ModelName:  req.ModelName,
		Version:    req.Version,
		ApprovedBy: req.ApprovedBy,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, ApproveRunResponse{
		RunID:  runID,
		Status: db.RunStatusSucceeded,
		Model:  entry,
	})
}

// handleRejectRun closes a run awaiting review without promoting it.
func (s *Server) handleRejectRun(w http.ResponseWriter, r *http.Request) {
	runID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, &ErrValidation{Field: "id", Message: "invalid run ID"})
		return
	}

	var req types.RejectRunRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		s.writeError(w, r, validationError(err))
		return
	}

	run, err := s.training.Reject(r.Context(), runID, req.Reason, req.RejectedBy)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, run)
}

func decodeBody(r *http.Request, dst any) error {
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return &ErrValidation{Message: "request body is required"}
		}
		return &ErrValidation{Message: "invalid request body: " + err.Error()}
	}
	return nil
}

// decodeOptionalBody accepts an empty body as the zero value.
func decodeOptionalBody(r *http.Request, dst any) error {
	err := decodeBody(r, dst)
	var v *ErrValidation
	if errors.As(err, &v) && v.Message == "request body is required" {
		return nil
	}
	return err
}

// validationError reports the first failing field.
func validationError(err error) error {
	var fields validator.ValidationErrors
	if errors.As(err, &fields) && len(fields) > 0 {
		f := fields[0]
		return &ErrValidation{Field: f.Field(), Message: "failed " + f.Tag() + " check"}
	}
	return &ErrValidation{Message: err.Error()}
}
