// Package schemas holds the JSON Schema contracts that structured model output
// must satisfy.
package schemas

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed assessment.schema.json
var assessmentSchema string

var compileAssessment = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewStringLoader(assessmentSchema))
})

// FieldError is one contract violation. Field is a dotted path, or "(root)"
// for violations on the document itself such as a missing key.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError lists every contract violation found in a document, sorted
// by field.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, f := range e.Errors {
		parts[i] = f.Field + ": " + f.Message
	}
	return "assessment contract violated: " + strings.Join(parts, "; ")
}

// Fields returns the distinct offending field paths.
func (e *ValidationError) Fields() []string {
	seen := make(map[string]bool, len(e.Errors))
	var fields []string
	for _, f := range e.Errors {
		if !seen[f.Field] {
			seen[f.Field] = true
			fields = append(fields, f.Field)
		}
	}
	return fields
}

// MalformedError is returned when the document is not parseable JSON at all.
type MalformedError struct {
	Cause error
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("model output is not valid JSON: %v", e.Cause)
}

func (e *MalformedError) Unwrap() error {
	return e.Cause
}

// AssessmentSchema returns the raw JSON Schema of the assessment contract.
func AssessmentSchema() string {
	return assessmentSchema
}

// ValidateAssessmentJSON checks doc against the assessment contract. It
// returns nil, a *MalformedError, or a *ValidationError.
func ValidateAssessmentJSON(doc string) error {
	schema, err := compileAssessment()
	if err != nil {
		return fmt.Errorf("assessment schema does not compile: %w", err)
	}

	result, err := schema.Validate(gojsonschema.NewStringLoader(doc))
	if err != nil {
		return &MalformedError{Cause: err}
	}
	if result.Valid() {
		return nil
	}

	verr := &ValidationError{Errors: make([]FieldError, 0, len(result.Errors()))}
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		verr.Errors = append(verr.Errors, FieldError{Field: field, Message: desc.Description()})
	}
	sort.SliceStable(verr.Errors, func(i, j int) bool {
		return verr.Errors[i].Field < verr.Errors[j].Field
	})
	return verr
}
