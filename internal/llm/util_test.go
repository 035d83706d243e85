package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractJSONObject(t *testing.T) {
	const doc = `{"summary":"white leather runner","suggestion":"donate"}`

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"bare object", doc, doc},
		{"surrounding whitespace", "\n\t " + doc + " \n", doc},
		{"json fence", "```json\n" + doc + "\n```", doc},
		{"untagged fence", "```\n" + doc + "\n```", doc},
		{"fence with object on first line", "```" + doc + "```", doc},
		{"lead-in line", "Here is the assessment for the photo:\n" + doc, doc},
		{"lead-in inside fence", "```json\nSure!\n" + doc + "\n```", doc},
		{
			"braces inside strings",
			`{"desc":"logo reads {AIR}","defects":["sole }{ split"]}`,
			`{"desc":"logo reads {AIR}","defects":["sole }{ split"]}`,
		},
		{
			"escaped quotes",
			`{"desc":"the \"tongue\" tab {torn"}`,
			`{"desc":"the \"tongue\" tab {torn"}`,
		},
		{
			"nested prices after lead-in",
			`x {"prices":{"90":[10,20],"50":[5,8]}}`,
			`{"prices":{"90":[10,20],"50":[5,8]}}`,
		},
		{"no object", "I cannot assess this image.", "I cannot assess this image."},
		{"unbalanced object", `{"summary":"cut off`, `{"summary":"cut off`},
		{"empty fence", "```json\n```", ""},
		{"empty", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractJSONObject(tt.input))
		})
	}
}

func TestExtractJSONObject_KeepsTextAfterObject(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{`{"suggestion":"recycle"} {"suggestion":"donate"} trailing`, `{"suggestion":"recycle"} {"suggestion":"donate"} trailing`},
		{`{"a":1} {"b":2}`, `{"a":1} {"b":2}`},
		{"{\"a\":1}\n\nLet me know if the sole needs a closer look.", "{\"a\":1}\n\nLet me know if the sole needs a closer look."},
		{"```json\n{\"a\":1}\nDone.\n```", "{\"a\":1}\nDone."},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ExtractJSONObject(tt.input))
	}
}

func TestObjectEnd(t *testing.T) {
	assert.Equal(t, 2, objectEnd("{}"))
	assert.Equal(t, 8, objectEnd(`{"a":{}} `))
	assert.Equal(t, 0, objectEnd(`{"a":"}"`))
}
