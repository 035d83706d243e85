// Package assessment turns generative model output into a validated item
// assessment, falling back to a fixed assessment when the output is unusable.
package assessment

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/jonathan/footwear-triage/internal/llm"
	"github.com/jonathan/footwear-triage/internal/schemas"
	"github.com/jonathan/footwear-triage/internal/types"
)

// Outcome records which branch produced an assessment.
type Outcome string

// Outcome values
const (
	// OutcomeOK means the model output passed the contract.
	OutcomeOK Outcome = "ok"
	// OutcomeFallback means the fixed fallback assessment was substituted.
	OutcomeFallback Outcome = "fallback"
)

// FallbackKind is the bounded reason a fallback was used. It doubles as the
// reason label on the fallback counter.
type FallbackKind string

// FallbackKind values
const (
	KindNone         FallbackKind = ""
	KindModelError   FallbackKind = "model_error"
	KindEmpty        FallbackKind = "empty"
	KindMalformed    FallbackKind = "malformed"
	KindSchema       FallbackKind = "schema"
	KindTrailingData FallbackKind = "trailing_data"
	KindDecode       FallbackKind = "decode"
	KindSuggestion   FallbackKind = "invalid_suggestion"
)

// parseError tags a rejection with its FallbackKind.
type parseError struct {
	kind FallbackKind
	err  error
}

func (e *parseError) Error() string { return e.err.Error() }
func (e *parseError) Unwrap() error { return e.err }

func rejected(kind FallbackKind, err error) error {
	return &parseError{kind: kind, err: err}
}

// Result is the outcome of validating one model response. Assessment is always
// complete and well-typed regardless of Outcome.
type Result struct {
	Assessment types.Assessment
	Outcome    Outcome
	// Reason explains a fallback; empty when Outcome is OutcomeOK.
	Reason string
	// Kind classifies a fallback; KindNone when Outcome is OutcomeOK.
	Kind FallbackKind
}

// IsFallback reports whether the fallback assessment was used.
func (r Result) IsFallback() bool {
	return r.Outcome == OutcomeFallback
}

// Fallback returns the fixed assessment used when model output is unusable.
func Fallback() types.Assessment {
	return types.Assessment{
		Summary:     "鞋況中等",
		Defects:     []string{},
		Suggestion:  types.SuggestionDonate,
		TitleZH:     "運動鞋",
		TitleEN:     "Sneakers",
		Description: "一般使用痕跡，清潔後可再用。",
		Prices: types.PriceTable{
			Confidence90: types.PriceRange{Low: 1000, High: 1500},
			Confidence70: types.PriceRange{Low: 700, High: 1000},
			Confidence50: types.PriceRange{Low: 400, High: 700},
		},
	}
}

// Validator checks raw model text against the assessment contract.
type Validator struct {
	logger *zap.Logger
}

// NewValidator creates a validator. A nil logger disables logging.
func NewValidator(logger *zap.Logger) *Validator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Validator{logger: logger}
}

// Validate parses raw model output. It never fails: any problem with the
// output yields the fallback assessment with OutcomeFallback.
func (v *Validator) Validate(raw string) Result {
	a, err := parse(raw)
	if err != nil {
		kind := KindMalformed
		var pe *parseError
		if errors.As(err, &pe) {
			kind = pe.kind
		}
		v.logger.Warn("assessment output rejected, using fallback",
			zap.Error(err),
			zap.String("kind", string(kind)),
			zap.Int("raw_len", len(raw)),
		)
		return Result{Assessment: Fallback(), Outcome: OutcomeFallback, Reason: err.Error(), Kind: kind}
	}

	if n := utf8.RuneCountInString(a.Description); n > types.DescriptionSoftLimit {
		v.logger.Info("assessment description exceeds soft limit",
			zap.Int("chars", n),
			zap.Int("limit", types.DescriptionSoftLimit),
		)
	}
	return Result{Assessment: a, Outcome: OutcomeOK}
}

// parse runs repair, schema validation and strict decoding in that order.
func parse(raw string) (types.Assessment, error) {
	cleaned := llm.ExtractJSONObject(raw)
	if cleaned == "" {
		return types.Assessment{}, rejected(KindEmpty, errors.New("empty model output"))
	}

	if err := schemas.ValidateAssessmentJSON(cleaned); err != nil {
		var ve *schemas.ValidationError
		if errors.As(err, &ve) {
			return types.Assessment{}, rejected(KindSchema, err)
		}
		return types.Assessment{}, rejected(KindMalformed, err)
	}

	var a types.Assessment
	dec := json.NewDecoder(bytes.NewReader([]byte(cleaned)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&a); err != nil {
		return types.Assessment{}, rejected(KindDecode, fmt.Errorf("failed to decode assessment: %w", err))
	}
	// The schema loader and Decode both stop after the first value.
	if _, err := dec.Token(); err != io.EOF {
		return types.Assessment{}, rejected(KindTrailingData, errors.New("unexpected data after assessment object"))
	}
	if !a.Suggestion.Valid() {
		return types.Assessment{}, rejected(KindSuggestion, fmt.Errorf("invalid suggestion %q", a.Suggestion))
	}
	if a.Defects == nil {
		a.Defects = []string{}
	}
	return a, nil
}
