// Package nutrition defines the analysis result record and its on-disk store.
package nutrition

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Unknown is the sentinel for a field the analysis could not determine.
const Unknown = "unknown"

var (
	// ErrNotFound indicates no result artifact is present.
	ErrNotFound = errors.New("result not found")

	// ErrInvalidResult indicates the artifact does not match the result schema.
	ErrInvalidResult = errors.New("invalid result")
)

// Result is the analysis record written by the external analysis step.
//
// NOTE: the JSON field names are the analysis step's output contract.
type Result struct {
	Food          string `json:"food"`
	Weight        string `json:"weight"`
	Calories      string `json:"calories"`
	Carbohydrates string `json:"carbohydrates"`
	Protein       string `json:"protein"`
	Fat           string `json:"fat"`
	Advice        string `json:"advice"`
}

// Normalized returns a copy with blank fields set to Unknown.
func (r Result) Normalized() Result {
	for _, f := range r.fields() {
		if strings.TrimSpace(*f) == "" {
			*f = Unknown
		} else {
			*f = strings.TrimSpace(*f)
		}
	}
	return r
}

func (r *Result) fields() []*string {
	return []*string{&r.Food, &r.Weight, &r.Calories, &r.Carbohydrates, &r.Protein, &r.Fat, &r.Advice}
}

// Decode parses a result artifact.
//
// The artifact must be a single JSON object. Every known field is optional
// but, when present, must be a string or null. Unknown fields are ignored.
// Anything else is ErrInvalidResult: there is no attempt to salvage free
// text or nested payloads.
func Decode(b []byte) (Result, error) {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) == 0 {
		return Result{}, fmt.Errorf("%w: artifact is empty", ErrInvalidResult)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrInvalidResult, err)
	}
	if raw == nil {
		return Result{}, fmt.Errorf("%w: artifact is not an object", ErrInvalidResult)
	}

	var r Result
	set := map[string]*string{
		"food":          &r.Food,
		"weight":        &r.Weight,
		"calories":      &r.Calories,
		"carbohydrates": &r.Carbohydrates,
		"protein":       &r.Protein,
		"fat":           &r.Fat,
		"advice":        &r.Advice,
	}
	for key, dst := range set {
		v, ok := raw[key]
		if !ok {
			continue
		}
		var s *string
		if err := json.Unmarshal(v, &s); err != nil {
			return Result{}, fmt.Errorf("%w: field %q must be a string", ErrInvalidResult, key)
		}
		if s != nil {
			*dst = *s
		}
	}
	return r.Normalized(), nil
}
