package processor

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/AltairaLabs/DialogKit/scenario"
	"github.com/AltairaLabs/DialogKit/types"
)

// Input rejection reasons reported to callers for user-facing corrections.
const (
	ReasonWrongType     = "wrong_input_type"
	ReasonInvalidButton = "invalid_button"
	ReasonOutOfRange    = "out_of_range"
	ReasonTooShort      = "too_short"
	ReasonTooLong       = "too_long"
	ReasonPatternFail   = "pattern_mismatch"
	ReasonBadFormat     = "bad_format"
	ReasonFileType      = "file_type"
	ReasonFileSize      = "file_size"
)

// InputError describes why a user input was rejected against a step's
// expected-input rules. It is a user-facing condition, not a system fault.
type InputError struct {
	Reason  string
	Message string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("input rejected (%s): %s", e.Reason, e.Message)
}

// dateLayout is the wire format for date inputs.
const dateLayout = "2006-01-02"

var (
	phoneRe = regexp.MustCompile(`^\+?[0-9]{7,15}$`)
	emailRe = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
)

// ValidateInput checks a raw user input against the step's expected-input
// rules and returns the normalized value to store under the step's variable.
// Rejections come back as *InputError; a step without expected input accepts
// nothing.
func (p *Processor) ValidateInput(step *scenario.Step, in types.UserInput) (any, error) {
	exp := step.ExpectedInput
	if exp == nil {
		return nil, &InputError{Reason: ReasonWrongType, Message: "step does not accept input"}
	}
	if in.Kind != exp.Kind {
		return nil, &InputError{
			Reason:  ReasonWrongType,
			Message: fmt.Sprintf("expected %s input, got %s", exp.Kind, in.Kind),
		}
	}

	rules := exp.Validation
	switch exp.Kind {
	case types.InputText:
		return validateText(in.Value, rules)
	case types.InputNumber:
		return validateNumber(in.Value, rules)
	case types.InputButton:
		return validateButton(step, in.Value)
	case types.InputFile:
		return validateFile(in.File, rules)
	case types.InputPhone:
		return validatePhone(in.Value)
	case types.InputEmail:
		return validateEmail(in.Value)
	case types.InputDate:
		return validateDate(in.Value, rules)
	case types.InputLocation:
		return validateLocation(in.Location)
	default:
		return nil, &InputError{Reason: ReasonWrongType, Message: fmt.Sprintf("unsupported input kind %q", exp.Kind)}
	}
}

func validateText(value string, rules scenario.ValidationRules) (any, error) {
	if rules.MinLength > 0 && len([]rune(value)) < rules.MinLength {
		return nil, &InputError{
			Reason:  ReasonTooShort,
			Message: fmt.Sprintf("must be at least %d characters", rules.MinLength),
		}
	}
	if rules.MaxLength > 0 && len([]rune(value)) > rules.MaxLength {
		return nil, &InputError{
			Reason:  ReasonTooLong,
			Message: fmt.Sprintf("must be at most %d characters", rules.MaxLength),
		}
	}
	if rules.Pattern != "" {
		re, err := regexp.Compile(rules.Pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid validation pattern %q: %w", rules.Pattern, err)
		}
		if !re.MatchString(value) {
			return nil, &InputError{Reason: ReasonPatternFail, Message: "does not match the expected format"}
		}
	}
	return value, nil
}

func validateNumber(value string, rules scenario.ValidationRules) (any, error) {
	n, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return nil, &InputError{Reason: ReasonBadFormat, Message: "not a number"}
	}
	if rules.MinValue != nil && n < *rules.MinValue {
		return nil, &InputError{
			Reason:  ReasonOutOfRange,
			Message: fmt.Sprintf("must be at least %v", *rules.MinValue),
		}
	}
	if rules.MaxValue != nil && n > *rules.MaxValue {
		return nil, &InputError{
			Reason:  ReasonOutOfRange,
			Message: fmt.Sprintf("must be at most %v", *rules.MaxValue),
		}
	}
	return n, nil
}

func validateButton(step *scenario.Step, value string) (any, error) {
	if len(step.Buttons) > 0 && !step.HasButtonValue(value) {
		return nil, &InputError{
			Reason:  ReasonInvalidButton,
			Message: fmt.Sprintf("%q is not one of the offered buttons", value),
		}
	}
	return value, nil
}

func validateFile(file *types.FileMeta, rules scenario.ValidationRules) (any, error) {
	if file == nil {
		return nil, &InputError{Reason: ReasonBadFormat, Message: "missing file attachment"}
	}
	if len(rules.MimeTypes) > 0 {
		allowed := false
		for _, mt := range rules.MimeTypes {
			if strings.EqualFold(mt, file.MimeType) {
				allowed = true
				break
			}
		}
		if !allowed {
			return nil, &InputError{
				Reason:  ReasonFileType,
				Message: fmt.Sprintf("file type %s is not accepted", file.MimeType),
			}
		}
	}
	if rules.MaxSizeBytes > 0 && file.SizeBytes > rules.MaxSizeBytes {
		return nil, &InputError{
			Reason:  ReasonFileSize,
			Message: fmt.Sprintf("file exceeds %d bytes", rules.MaxSizeBytes),
		}
	}
	return file, nil
}

func validatePhone(value string) (any, error) {
	normalized := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '(', ')', '.':
			return -1
		}
		return r
	}, strings.TrimSpace(value))

	if !phoneRe.MatchString(normalized) {
		return nil, &InputError{Reason: ReasonBadFormat, Message: "not a valid phone number"}
	}
	return normalized, nil
}

func validateEmail(value string) (any, error) {
	trimmed := strings.TrimSpace(value)
	if !emailRe.MatchString(trimmed) {
		return nil, &InputError{Reason: ReasonBadFormat, Message: "not a valid email address"}
	}
	return strings.ToLower(trimmed), nil
}

func validateDate(value string, rules scenario.ValidationRules) (any, error) {
	d, err := time.Parse(dateLayout, strings.TrimSpace(value))
	if err != nil {
		return nil, &InputError{Reason: ReasonBadFormat, Message: "date must be YYYY-MM-DD"}
	}
	if rules.MinDate != "" {
		min, err := time.Parse(dateLayout, rules.MinDate)
		if err == nil && d.Before(min) {
			return nil, &InputError{
				Reason:  ReasonOutOfRange,
				Message: fmt.Sprintf("date must not be before %s", rules.MinDate),
			}
		}
	}
	if rules.MaxDate != "" {
		max, err := time.Parse(dateLayout, rules.MaxDate)
		if err == nil && d.After(max) {
			return nil, &InputError{
				Reason:  ReasonOutOfRange,
				Message: fmt.Sprintf("date must not be after %s", rules.MaxDate),
			}
		}
	}
	return d.Format(dateLayout), nil
}

func validateLocation(loc *types.Location) (any, error) {
	if loc == nil {
		return nil, &InputError{Reason: ReasonBadFormat, Message: "missing location"}
	}
	if loc.Latitude < -90 || loc.Latitude > 90 || loc.Longitude < -180 || loc.Longitude > 180 {
		return nil, &InputError{Reason: ReasonOutOfRange, Message: "coordinates out of range"}
	}
	return loc, nil
}
