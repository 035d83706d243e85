package server

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/jonathan/footwear-triage/internal/intake"
	"github.com/jonathan/footwear-triage/internal/training"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"upload missing", &intake.UploadError{Kind: intake.UploadMissing}, http.StatusBadRequest},
		{"upload too large", &intake.UploadError{Kind: intake.UploadTooLarge}, http.StatusRequestEntityTooLarge},
		{"upload over pixel cap", &intake.UploadError{Kind: intake.UploadTooLarge, Reason: "image dimensions exceed decoder limit: 10000x9000"}, http.StatusRequestEntityTooLarge},
		{"upload unsupported", &intake.UploadError{Kind: intake.UploadUnsupported}, http.StatusUnsupportedMediaType},
		{"classification", &intake.ClassificationError{Err: errors.New("x")}, http.StatusBadGateway},
		{"validation", &ErrValidation{Field: "limit"}, http.StatusBadRequest},
		{"run not found", &training.RunNotFoundError{RunID: uuid.New()}, http.StatusNotFound},
		{"run state", &training.RunStateError{Status: "running"}, http.StatusConflict},
		{"version conflict", &training.VersionConflictError{}, http.StatusConflict},
		{"insufficient", &training.InsufficientSamplesError{Have: 1, Need: 50}, http.StatusUnprocessableEntity},
		{"wrapped", fmt.Errorf("approve: %w", &training.RunStateError{}), http.StatusConflict},
		{"plain", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

func TestErrorBody(t *testing.T) {
	body := errorBody(&training.InsufficientSamplesError{RatioGate: true, Have: 60, Need: 50, Ratio: 0.06, MinRatio: 0.7}, http.StatusUnprocessableEntity)
	assert.Equal(t, 60, body["labeled"])
	assert.Equal(t, 0.7, body["min_label_ratio"])

	body = errorBody(errors.New("secret dsn in message"), http.StatusInternalServerError)
	assert.Equal(t, map[string]any{"error": "internal error"}, body)
}

func TestErrValidation(t *testing.T) {
	assert.Equal(t, "validation error: limit - too big", (&ErrValidation{Field: "limit", Message: "too big"}).Error())
	assert.Equal(t, "validation error: body missing", (&ErrValidation{Message: "body missing"}).Error())
}
