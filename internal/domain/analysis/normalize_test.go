package analysis

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeFillsDefaults(t *testing.T) {
	got := Normalize(`{"summary": "ok"}`)

	assert.Equal(t, "ok", got.Summary)
	assert.Equal(t, map[string]string{}, got.TraceabilityMatrix)
	assert.Equal(t, []string{}, got.MissingRequirements)
	assert.Equal(t, []string{}, got.Suggestions)
	assert.Equal(t, "", got.DetailedAnalysis)
}

func TestNormalizeWellFormedIsIdempotent(t *testing.T) {
	raw := `{
		"summary": "Two of three implemented.",
		"traceability_matrix": {"R-1": "IMPLEMENTED", "R-2": "PARTIALLY_IMPLEMENTED", "R-3": "NOT_IMPLEMENTED"},
		"missing_requirements": ["R-3"],
		"suggestions": ["Add tests for R-2."],
		"detailed_analysis": "R-1 in main.go."
	}`

	first := Normalize(raw)
	b, err := json.Marshal(first)
	require.NoError(t, err)
	assert.JSONEq(t, raw, string(b))

	second := Normalize(string(b))
	assert.Equal(t, first, second)
}

func TestNormalizeNonStructuredOutput(t *testing.T) {
	got := Normalize("not json at all")

	assert.Equal(t, "not json at all", got.DetailedAnalysis)
	assert.Equal(t, DegradedSummary, got.Summary)
	require.NotEmpty(t, got.Suggestions)
	assert.Contains(t, strings.ToLower(got.Suggestions[0]), "json")
	assert.Empty(t, got.TraceabilityMatrix)
	assert.Empty(t, got.MissingRequirements)
}

func TestNormalizeNeverFails(t *testing.T) {
	deep := strings.Repeat("[", 20000) + strings.Repeat("]", 20000)
	deepObject := `{"a":` + strings.Repeat(`{"a":`, 500) + `1` + strings.Repeat(`}`, 501)

	tests := []struct {
		name     string
		input    string
		degraded bool
	}{
		{"empty string", "", true},
		{"whitespace", "   \n", true},
		{"binary garbage", "\x00\xff\xfe{\x01", true},
		{"array", `[1, 2, 3]`, true},
		{"bare number", `42`, true},
		{"bare string", `"summary"`, true},
		{"null", `null`, true},
		{"deeply nested array", deep, true},
		{"truncated object", `{"summary": "ok"`, true},
		{"fenced json", "```json\n{\"summary\":\"ok\"}\n```", true},
		{"deeply nested object", deepObject, false},
		{"empty object", `{}`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got Result
			require.NotPanics(t, func() { got = Normalize(tt.input) })

			assert.NotNil(t, got.TraceabilityMatrix)
			assert.NotNil(t, got.MissingRequirements)
			assert.NotNil(t, got.Suggestions)
			if tt.degraded {
				assert.Equal(t, DegradedSummary, got.Summary)
				assert.Equal(t, tt.input, got.DetailedAnalysis)
			} else {
				assert.NotEqual(t, DegradedSummary, got.Summary)
			}

			b, err := json.Marshal(got)
			require.NoError(t, err)
			var keys map[string]json.RawMessage
			require.NoError(t, json.Unmarshal(b, &keys))
			for _, k := range []string{"summary", "traceability_matrix", "missing_requirements", "suggestions", "detailed_analysis"} {
				assert.Contains(t, keys, k)
			}
		})
	}
}

func TestNormalizePreservesMistypedFields(t *testing.T) {
	raw := `{"summary": "ok", "traceability_matrix": "see below", "suggestions": [1, 2], "confidence": 0.8}`

	got := Normalize(raw)
	assert.Equal(t, "ok", got.Summary)
	assert.Empty(t, got.TraceabilityMatrix)

	v, ok := got.Passthrough("traceability_matrix")
	require.True(t, ok)
	assert.JSONEq(t, `"see below"`, string(v))

	b, err := json.Marshal(got)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"summary": "ok",
		"traceability_matrix": "see below",
		"missing_requirements": [],
		"suggestions": [1, 2],
		"detailed_analysis": "",
		"confidence": 0.8
	}`, string(b))
}

func TestNormalizeAcceptsAnyStatusLabel(t *testing.T) {
	got := Normalize(`{"traceability_matrix": {"REQ-7": "UNKNOWN"}}`)
	assert.Equal(t, map[string]string{"REQ-7": "UNKNOWN"}, got.TraceabilityMatrix)
}

func TestNormalizeNullFieldsBecomeDefaults(t *testing.T) {
	got := Normalize(`{"summary": null, "traceability_matrix": null, "suggestions": null}`)

	assert.Equal(t, "", got.Summary)
	assert.Equal(t, map[string]string{}, got.TraceabilityMatrix)
	assert.Equal(t, []string{}, got.Suggestions)
	_, kept := got.Passthrough("summary")
	assert.False(t, kept)
}

func TestDecodeReportsNotStructured(t *testing.T) {
	_, err := Decode(`[]`)
	assert.ErrorIs(t, err, ErrNotStructured)

	_, err = Decode(`nope`)
	assert.ErrorIs(t, err, ErrNotStructured)

	_, err = Decode(`{"summary":"fine"}`)
	assert.NoError(t, err)
}

func TestNewPaginatedResult(t *testing.T) {
	p := NewPaginatedResult(nil, 2, 10, 25)
	assert.Equal(t, 3, p.TotalPages)
	assert.NotNil(t, p.Data)

	p = NewPaginatedResult(nil, 1, 0, 5)
	assert.Equal(t, 0, p.TotalPages)
}

func TestResultCloneIsDeep(t *testing.T) {
	orig := Normalize(`{"traceability_matrix": {"R-1": "IMPLEMENTED"}, "suggestions": ["a"], "confidence": 0.5}`)
	c := orig.Clone()
	c.TraceabilityMatrix["R-1"] = "x"
	c.Suggestions[0] = "x"

	assert.Equal(t, "IMPLEMENTED", orig.TraceabilityMatrix["R-1"])
	assert.Equal(t, "a", orig.Suggestions[0])
	assert.Equal(t, orig, orig.Clone())
}
