package schemas

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validAssessment = `{
	"summary": "Light creasing on the toe box",
	"defects": ["crease"],
	"suggestion": "resale",
	"title_zh": "運動鞋",
	"title_en": "Sneakers",
	"desc": "Gently used, cleaned.",
	"prices": {"90": [1000, 1500], "70": [700, 1000], "50": [400, 700]}
}`

func TestAssessmentSchema_IsValidJSON(t *testing.T) {
	var schema map[string]any
	require.NoError(t, json.Unmarshal([]byte(AssessmentSchema()), &schema))
	assert.Equal(t, "object", schema["type"])
}

func TestValidateAssessmentJSON_Valid(t *testing.T) {
	assert.NoError(t, ValidateAssessmentJSON(validAssessment))
}

func TestValidateAssessmentJSON_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{
			name:  "missing suggestion",
			input: `{"summary":"s","defects":[],"title_zh":"z","title_en":"e","desc":"d","prices":{"90":[1,2],"70":[1,2],"50":[1,2]}}`,
		},
		{
			name:  "unknown suggestion",
			input: `{"summary":"s","defects":[],"suggestion":"sell","title_zh":"z","title_en":"e","desc":"d","prices":{"90":[1,2],"70":[1,2],"50":[1,2]}}`,
		},
		{
			name:  "extra key",
			input: `{"summary":"s","defects":[],"suggestion":"donate","title_zh":"z","title_en":"e","desc":"d","prices":{"90":[1,2],"70":[1,2],"50":[1,2]},"brand":"x"}`,
		},
		{
			name:  "missing tier",
			input: `{"summary":"s","defects":[],"suggestion":"donate","title_zh":"z","title_en":"e","desc":"d","prices":{"90":[1,2],"70":[1,2]}}`,
		},
		{
			name:  "defects wrong type",
			input: `{"summary":"s","defects":"none","suggestion":"donate","title_zh":"z","title_en":"e","desc":"d","prices":{"90":[1,2],"70":[1,2],"50":[1,2]}}`,
		},
		{
			name:  "fractional price",
			input: `{"summary":"s","defects":[],"suggestion":"donate","title_zh":"z","title_en":"e","desc":"d","prices":{"90":[1.5,2],"70":[1,2],"50":[1,2]}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAssessmentJSON(tt.input)
			require.Error(t, err)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.NotEmpty(t, verr.Errors)
		})
	}
}

func TestValidateAssessmentJSON_MalformedDocument(t *testing.T) {
	for _, input := range []string{"", "{", `{"summary": "trunc`, "not json"} {
		err := ValidateAssessmentJSON(input)
		require.Error(t, err, "input %q", input)

		var malformed *MalformedError
		assert.ErrorAs(t, err, &malformed, "input %q", input)
		assert.Contains(t, err.Error(), "not valid JSON")
	}
}

func TestValidateAssessmentJSON_ReportsEveryViolation(t *testing.T) {
	doc := `{"summary":"s","defects":"none","suggestion":"sell","title_zh":"z","title_en":"e","desc":"d","prices":{"90":[1,2],"70":[1,2],"50":[1,2]}}`
	err := ValidateAssessmentJSON(doc)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"defects", "suggestion"}, verr.Fields())
	assert.Contains(t, err.Error(), "assessment contract violated: defects: ")
}

func TestValidationError_Error(t *testing.T) {
	err := &ValidationError{
		Errors: []FieldError{
			{Field: "(root)", Message: "prices is required"},
			{Field: "suggestion", Message: "must be one of the following"},
			{Field: "suggestion", Message: "invalid type"},
		},
	}
	assert.Equal(t,
		"assessment contract violated: (root): prices is required; suggestion: must be one of the following; suggestion: invalid type",
		err.Error())
	assert.Equal(t, []string{"(root)", "suggestion"}, err.Fields())
}
