package scenario

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/AltairaLabs/DialogKit/scenario/schema"
	"github.com/AltairaLabs/DialogKit/types"
)

// DefaultAutoNextDelay applies when a step sets auto_next without a delay.
const DefaultAutoNextDelay = 1500 * time.Millisecond

// Errors returned by the loader and by step lookups.
var (
	// ErrStepNotFound is returned when a referenced step id is absent.
	ErrStepNotFound = errors.New("step not found in scenario")
	// ErrInvalidDocument is returned when a scenario document fails schema
	// or reference validation.
	ErrInvalidDocument = errors.New("invalid scenario document")
	// ErrUnknownStepType is returned for step types outside the closed set.
	ErrUnknownStepType = errors.New("unknown step type")
)

// scenarioDoc mirrors the external JSON document shape.
type scenarioDoc struct {
	Name        string              `json:"name"`
	Version     string              `json:"version"`
	Description string              `json:"description"`
	StartStep   string              `json:"start_step"`
	Steps       map[string]*stepDoc `json:"steps"`
}

type stepDoc struct {
	ID            string             `json:"id"`
	Type          string             `json:"type"`
	Message       messageDoc         `json:"message"`
	Buttons       []types.Button     `json:"buttons"`
	ExpectedInput *expectedInputDoc  `json:"expected_input"`
	NextStep      *nextStepDoc       `json:"next_step"`
	AutoNext      bool               `json:"auto_next"`
	AutoNextDelay float64            `json:"auto_next_delay"`
}

type messageDoc struct {
	Text  string            `json:"text"`
	Media []types.MediaItem `json:"media"`
}

type expectedInputDoc struct {
	Type       string    `json:"type"`
	Variable   string    `json:"variable"`
	Validation rulesDoc  `json:"validation"`
}

type rulesDoc struct {
	MinValue     *float64 `json:"min_value"`
	MaxValue     *float64 `json:"max_value"`
	MinLength    int      `json:"min_length"`
	MaxLength    int      `json:"max_length"`
	Pattern      string   `json:"pattern"`
	MimeTypes    []string `json:"mime_types"`
	MaxSizeBytes int64    `json:"max_size_bytes"`
	MinDate      string   `json:"min_date"`
	MaxDate      string   `json:"max_date"`
}

// nextStepDoc accepts either a literal step id string or a conditional
// transition object.
type nextStepDoc struct {
	StepID     string
	Conditions []ConditionalTarget
	Default    string
}

// UnmarshalJSON resolves the string-or-object polymorphism of next_step.
func (n *nextStepDoc) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	if data[0] == '"' {
		return json.Unmarshal(data, &n.StepID)
	}

	var obj struct {
		Type       string `json:"type"`
		Conditions []struct {
			If   string `json:"if"`
			Then string `json:"then"`
		} `json:"conditions"`
		Default string `json:"default"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	if obj.Type != "conditional" {
		return fmt.Errorf("next_step object type must be \"conditional\", got %q", obj.Type)
	}
	for _, c := range obj.Conditions {
		n.Conditions = append(n.Conditions, ConditionalTarget{If: c.If, Then: c.Then})
	}
	n.Default = obj.Default
	return nil
}

// Load parses, schema-validates, and resolves a scenario document into the
// typed model. Blocking validation problems (unresolved references, unknown
// step types, auto-advance cycles) are returned as an error; non-blocking
// warnings are available through Validate for callers that want them.
func Load(data []byte) (*Scenario, error) {
	schemaResult, err := schema.ValidateJSON(data)
	if err != nil {
		return nil, err
	}
	if !schemaResult.Valid {
		msgs := make([]string, 0, len(schemaResult.Errors))
		for _, e := range schemaResult.Errors {
			msgs = append(msgs, e.Error())
		}
		return nil, fmt.Errorf("%w: %s", ErrInvalidDocument, strings.Join(msgs, "; "))
	}

	var doc scenarioDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	sc, err := resolve(&doc)
	if err != nil {
		return nil, err
	}

	result := Validate(sc)
	if result.HasErrors() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidDocument, strings.Join(result.Errors, "; "))
	}
	return sc, nil
}

// resolve converts the document into the typed representation, rejecting
// unknown variants.
func resolve(doc *scenarioDoc) (*Scenario, error) {
	sc := &Scenario{
		Name:        doc.Name,
		Version:     doc.Version,
		Description: doc.Description,
		StartStep:   doc.StartStep,
		Steps:       make(map[string]*Step, len(doc.Steps)),
	}

	for id, sd := range doc.Steps {
		step, err := resolveStep(id, sd)
		if err != nil {
			return nil, err
		}
		sc.Steps[id] = step
	}
	return sc, nil
}

func resolveStep(id string, sd *stepDoc) (*Step, error) {
	stepType := StepType(sd.Type)
	switch stepType {
	case StepMessage, StepConditionalMessage:
	default:
		return nil, fmt.Errorf("%w: step %q has type %q", ErrUnknownStepType, id, sd.Type)
	}

	step := &Step{
		ID:       id,
		Type:     stepType,
		Message:  MessageSpec{Text: sd.Message.Text, Media: sd.Message.Media},
		Buttons:  sd.Buttons,
		AutoNext: sd.AutoNext,
	}
	if sd.ID != "" && sd.ID != id {
		return nil, fmt.Errorf("%w: step key %q disagrees with declared id %q",
			ErrInvalidDocument, id, sd.ID)
	}

	if sd.AutoNext {
		step.AutoNextDelay = DefaultAutoNextDelay
		if sd.AutoNextDelay > 0 {
			step.AutoNextDelay = time.Duration(sd.AutoNextDelay * float64(time.Second))
		}
	}

	if sd.ExpectedInput != nil {
		kind := types.InputKind(sd.ExpectedInput.Type)
		if !kind.Valid() {
			return nil, fmt.Errorf("%w: step %q expects unknown input kind %q",
				ErrInvalidDocument, id, sd.ExpectedInput.Type)
		}
		r := sd.ExpectedInput.Validation
		step.ExpectedInput = &ExpectedInput{
			Kind:     kind,
			Variable: sd.ExpectedInput.Variable,
			Validation: ValidationRules{
				MinValue:     r.MinValue,
				MaxValue:     r.MaxValue,
				MinLength:    r.MinLength,
				MaxLength:    r.MaxLength,
				Pattern:      r.Pattern,
				MimeTypes:    r.MimeTypes,
				MaxSizeBytes: r.MaxSizeBytes,
				MinDate:      r.MinDate,
				MaxDate:      r.MaxDate,
			},
		}
	}

	if sd.NextStep != nil {
		step.Next = &NextStep{
			StepID:     sd.NextStep.StepID,
			Conditions: sd.NextStep.Conditions,
			Default:    sd.NextStep.Default,
		}
	}
	return step, nil
}
