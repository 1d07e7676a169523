package timeline

import (
	"encoding/json"
	"fmt"
)

// Result is the document produced by the module's parse entry point.
// The bridge does not inspect it; its shape belongs to the module.
type Result []byte

// Decode unmarshals the result into v.
func (r Result) Decode(v any) error {
	if len(r) == 0 {
		return fmt.Errorf("empty result")
	}
	if err := json.Unmarshal(r, v); err != nil {
		return fmt.Errorf("failed to decode result: %w", err)
	}
	return nil
}

// MarshalJSON emits the result unchanged so it can be embedded in other documents.
func (r Result) MarshalJSON() ([]byte, error) {
	if len(r) == 0 {
		return []byte("null"), nil
	}
	return r, nil
}

// Record is a single timeline entry as emitted by the reference parser module.
type Record struct {
	Timestamp int64  `json:"timestamp"`
	Value     string `json:"value"`
}

// Records decodes the result as a list of records. Both a bare array and an
// object with an "events" array are accepted.
func (r Result) Records() ([]Record, error) {
	var records []Record
	if err := json.Unmarshal(r, &records); err == nil {
		return records, nil
	}

	var wrapped struct {
		Events *[]Record `json:"events"`
	}
	if err := json.Unmarshal(r, &wrapped); err != nil || wrapped.Events == nil {
		return nil, fmt.Errorf("result is not a list of records")
	}
	return *wrapped.Events, nil
}
