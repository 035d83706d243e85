// Package server provides the HTTP API for intake analysis and training
// administration.
package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jonathan/footwear-triage/internal/intake"
	"github.com/jonathan/footwear-triage/internal/training"
)

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation error: %s", e.Message)
	}
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		upload       *intake.UploadError
		classify     *intake.ClassificationError
		validation   *ErrValidation
		notFound     *training.RunNotFoundError
		state        *training.RunStateError
		conflict     *training.VersionConflictError
		insufficient *training.InsufficientSamplesError
	)
	switch {
	case errors.As(err, &upload):
		switch upload.Kind {
		case intake.UploadTooLarge:
			return http.StatusRequestEntityTooLarge
		case intake.UploadUnsupported:
			return http.StatusUnsupportedMediaType
		default:
			return http.StatusBadRequest
		}
	case errors.As(err, &classify):
		return http.StatusBadGateway
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &state), errors.As(err, &conflict):
		return http.StatusConflict
	case errors.As(err, &insufficient):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// errorBody builds the JSON error payload. Typed errors add the fields a
// caller needs to act on the rejection.
func errorBody(err error, status int) map[string]any {
	if status == http.StatusInternalServerError {
		return map[string]any{"error": "internal error"}
	}

	body := map[string]any{"error": err.Error()}

	var (
		upload       *intake.UploadError
		state        *training.RunStateError
		insufficient *training.InsufficientSamplesError
	)
	switch {
	case errors.As(err, &upload):
		body["reason"] = string(upload.Kind)
	case errors.As(err, &state):
		body["run_id"] = state.RunID
		body["status"] = state.Status
	case errors.As(err, &insufficient):
		body["labeled"] = insufficient.Have
		body["required"] = insufficient.Need
		if insufficient.RatioGate {
			body["label_ratio"] = insufficient.Ratio
			body["min_label_ratio"] = insufficient.MinRatio
		}
	}
	return body
}
