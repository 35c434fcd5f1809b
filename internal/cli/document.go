package cli

import (
	"fmt"
	"os"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/noah-isme/sma-timetable/internal/dto"
	"github.com/noah-isme/sma-timetable/internal/timetable"
)

// loadDocument reads a YAML or JSON problem file.
func loadDocument(path string) (*dto.ProblemDocument, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return decodeDocument(raw)
}

// decodeDocument goes through a generic map so day names and "HH:MM" times are parsed
// by the model types themselves.
func decodeDocument(raw []byte) (*dto.ProblemDocument, error) {
	var generic map[string]interface{}
	if err := yaml.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("parse problem file: %w", err)
	}

	var doc dto.ProblemDocument
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.TextUnmarshallerHookFunc(),
			mapstructure.StringToTimeDurationHookFunc(),
		),
		Result:  &doc,
		TagName: "mapstructure",
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(generic); err != nil {
		return nil, fmt.Errorf("decode problem file: %w", err)
	}
	return &doc, nil
}

// availability builds the index for the document. closedWorld forces the closed-world policy.
func availability(doc *dto.ProblemDocument, closedWorld bool) (*timetable.AvailabilityIndex, error) {
	policy := timetable.OpenWorld
	if closedWorld || (doc.ClosedWorld != nil && *doc.ClosedWorld) {
		policy = timetable.ClosedWorld
	}
	return timetable.NewAvailabilityIndex(doc.Availability, policy)
}
