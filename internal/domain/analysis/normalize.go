package analysis

import (
	"encoding/json"
	"errors"
	"fmt"
)

const (
	keySummary             = "summary"
	keyTraceabilityMatrix  = "traceability_matrix"
	keyMissingRequirements = "missing_requirements"
	keySuggestions         = "suggestions"
	keyDetailedAnalysis    = "detailed_analysis"
)

// Text placed in a degraded result when the model ignored the JSON contract.
const (
	DegradedSummary    = "Model returned non-JSON output."
	DegradedSuggestion = "Ensure the model is instructed to output strict JSON."
)

// ErrNotStructured is returned by Decode when the text is not a JSON object.
var ErrNotStructured = errors.New("model output is not a JSON object")

// Decode strictly parses raw model output. Absent fields get their defaults;
// present fields are kept as they are.
func Decode(raw string) (Result, error) {
	var r Result
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		if errors.Is(err, ErrNotStructured) {
			return Result{}, err
		}
		return Result{}, fmt.Errorf("%w: %v", ErrNotStructured, err)
	}
	return r, nil
}

// Normalize never fails: unparsable or non-object output becomes a degraded
// result that carries the raw text in DetailedAnalysis.
func Normalize(raw string) Result {
	r, err := Decode(raw)
	if err != nil {
		return Degraded(raw)
	}
	return r
}

// Degraded builds the canned result used when the output has no structure.
func Degraded(raw string) Result {
	return Result{
		Summary:             DegradedSummary,
		TraceabilityMatrix:  map[string]string{},
		MissingRequirements: []string{},
		Suggestions:         []string{DegradedSuggestion},
		DetailedAnalysis:    raw,
	}
}

// WithDefaults returns r with nil collections replaced by empty ones.
func (r Result) WithDefaults() Result {
	if r.TraceabilityMatrix == nil {
		r.TraceabilityMatrix = map[string]string{}
	}
	if r.MissingRequirements == nil {
		r.MissingRequirements = []string{}
	}
	if r.Suggestions == nil {
		r.Suggestions = []string{}
	}
	return r
}

// Clone returns a deep copy of r.
func (r Result) Clone() Result {
	out := r
	if r.TraceabilityMatrix != nil {
		out.TraceabilityMatrix = make(map[string]string, len(r.TraceabilityMatrix))
		for k, v := range r.TraceabilityMatrix {
			out.TraceabilityMatrix[k] = v
		}
	}
	if r.MissingRequirements != nil {
		out.MissingRequirements = append([]string{}, r.MissingRequirements...)
	}
	if r.Suggestions != nil {
		out.Suggestions = append([]string{}, r.Suggestions...)
	}
	if r.passthrough != nil {
		out.passthrough = make(map[string]json.RawMessage, len(r.passthrough))
		for k, v := range r.passthrough {
			out.passthrough[k] = append(json.RawMessage(nil), v...)
		}
	}
	return out
}

// Passthrough returns the raw value of a key that was not decoded into a
// typed field (unknown key, or known key with an unexpected JSON type).
func (r Result) Passthrough(key string) (json.RawMessage, bool) {
	v, ok := r.passthrough[key]
	return v, ok
}

func (r *Result) keep(key string, raw json.RawMessage) {
	if r.passthrough == nil {
		r.passthrough = make(map[string]json.RawMessage)
	}
	r.passthrough[key] = raw
}

// UnmarshalJSON accepts only JSON objects.
func (r *Result) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("%w: %v", ErrNotStructured, err)
	}
	if fields == nil {
		return ErrNotStructured
	}

	var out Result
	for key, raw := range fields {
		switch key {
		case keySummary:
			var v string
			if decodeField(raw, &v) {
				out.Summary = v
				continue
			}
		case keyTraceabilityMatrix:
			var v map[string]string
			if decodeField(raw, &v) {
				out.TraceabilityMatrix = v
				continue
			}
		case keyMissingRequirements:
			var v []string
			if decodeField(raw, &v) {
				out.MissingRequirements = v
				continue
			}
		case keySuggestions:
			var v []string
			if decodeField(raw, &v) {
				out.Suggestions = v
				continue
			}
		case keyDetailedAnalysis:
			var v string
			if decodeField(raw, &v) {
				out.DetailedAnalysis = v
				continue
			}
		}
		out.keep(key, raw)
	}
	*r = out.WithDefaults()
	return nil
}

// decodeField reports whether raw fits the typed field. A partially decoded
// value is discarded so the raw value survives untouched.
func decodeField(raw json.RawMessage, v any) bool {
	return json.Unmarshal(raw, v) == nil
}

// MarshalJSON always emits the five schema keys plus any passthrough keys.
func (r Result) MarshalJSON() ([]byte, error) {
	r = r.WithDefaults()
	out := make(map[string]any, len(r.passthrough)+5)
	for k, v := range r.passthrough {
		out[k] = v
	}
	typed := map[string]any{
		keySummary:             r.Summary,
		keyTraceabilityMatrix:  r.TraceabilityMatrix,
		keyMissingRequirements: r.MissingRequirements,
		keySuggestions:         r.Suggestions,
		keyDetailedAnalysis:    r.DetailedAnalysis,
	}
	for k, v := range typed {
		if _, kept := r.passthrough[k]; !kept {
			out[k] = v
		}
	}
	return json.Marshal(out)
}
