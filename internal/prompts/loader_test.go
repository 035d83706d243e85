package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet(t *testing.T) {
	tmpl, err := Get("assessment.json", "assess-item")
	require.NoError(t, err)
	assert.Contains(t, tmpl, "STRICT JSON")

	_, err = Get("assessment.json", "missing")
	assert.ErrorContains(t, err, `prompt key "missing" not found`)

	_, err = Get("nope.json", "assess-item")
	assert.ErrorContains(t, err, "prompt file nope.json not found")
}

func TestMustGet(t *testing.T) {
	assert.Equal(t, "{{.Label}}", MustGet("assessment.json", "type-target"))
	assert.Panics(t, func() { MustGet("assessment.json", "missing") })
}

func TestKeys(t *testing.T) {
	keys, err := Keys("assessment.json")
	require.NoError(t, err)
	assert.Equal(t, []string{"assess-item", "type-other", "type-target"}, keys)

	_, err = Keys("nope.json")
	assert.Error(t, err)
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t,
		[]string{"Brand", "Defects", "Model", "Type"},
		Placeholders(MustGet("assessment.json", "assess-item")))
	assert.Equal(t, []string{"A"}, Placeholders("{{.A}} and {{.A}} but not {{ .B }} or {{.}}"))
	assert.Empty(t, Placeholders("no placeholders"))
}

func TestFormat(t *testing.T) {
	tests := []struct {
		name string
		tmpl string
		data map[string]string
		want string
	}{
		{"fills values", "Brand:{{.Brand}} Model:{{.Model}}", map[string]string{"Brand": "Nike", "Model": "AF1"}, "Brand:Nike Model:AF1"},
		{"repeated placeholder", "{{.X}}-{{.X}}", map[string]string{"X": "a"}, "a-a"},
		{"missing value kept", "Type: {{.Type}}", nil, "Type: {{.Type}}"},
		{"value not re-expanded", "{{.A}} {{.B}}", map[string]string{"A": "{{.B}}", "B": "b"}, "{{.B}} b"},
		{"empty value", "[{{.Defects}}]", map[string]string{"Defects": ""}, "[]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Format(tt.tmpl, tt.data))
		})
	}
}

func TestRender(t *testing.T) {
	out, err := Render("assessment.json", "assess-item", map[string]string{
		"Type": "sneaker", "Brand": "Nike", "Model": "unknown", "Defects": "none",
	})
	require.NoError(t, err)
	assert.Contains(t, out, "Type: sneaker")
	assert.Contains(t, out, "Brand:Nike")
	assert.NotContains(t, out, "{{.")

	_, err = Render("assessment.json", "assess-item", map[string]string{"Type": "sneaker"})
	assert.ErrorContains(t, err, "no value for Brand, Defects, Model")

	_, err = Render("assessment.json", "missing", nil)
	assert.Error(t, err)
}
