package entity

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var ErrMissingFields = errors.New("research record is missing required fields")

// RecordFields lists the keys of a research record in output order.
var RecordFields = []string{"topic", "summary", "sources", "tools_used"}

type ResearchRecord struct {
	Topic     string   `json:"topic" describe:"the topic being researched"`
	Summary   string   `json:"summary" describe:"a detailed summary of findings"`
	Sources   []string `json:"sources" describe:"source URLs or references"`
	ToolsUsed []string `json:"tools_used" describe:"names of the tools used"`
}

// DecodeResearchRecord decodes a JSON object and checks that every record
// field is present. Unknown keys are ignored.
func DecodeResearchRecord(data []byte) (*ResearchRecord, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	if err := checkFields(raw); err != nil {
		return nil, err
	}

	var record ResearchRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, err
	}
	record.normalize()
	return &record, nil
}

// Validate checks a record that was decoded by other means.
func (r *ResearchRecord) Validate(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if err := checkFields(raw); err != nil {
		return err
	}
	r.normalize()
	return nil
}

func (r *ResearchRecord) normalize() {
	if r.Sources == nil {
		r.Sources = []string{}
	}
	if r.ToolsUsed == nil {
		r.ToolsUsed = []string{}
	}
}

func checkFields(raw map[string]json.RawMessage) error {
	var missing []string
	for _, field := range RecordFields {
		value, ok := raw[field]
		if !ok || string(value) == "null" {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingFields, strings.Join(missing, ", "))
	}
	return nil
}
