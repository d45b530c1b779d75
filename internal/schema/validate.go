package schema

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/xeipuuv/gojsonschema"

	"resumeseo/internal/errors"
	"resumeseo/internal/types"
)

// FieldError is a single violation at a field path
type FieldError struct {
	Field   string
	Message string
}

func (f FieldError) String() string {
	return f.Field + ": " + f.Message
}

var (
	structValidator     *validator.Validate
	structValidatorOnce sync.Once

	compiled sync.Map // field set name -> *gojsonschema.Schema
)

func getStructValidator() *validator.Validate {
	structValidatorOnce.Do(func() {
		v := validator.New()
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
		structValidator = v
	})
	return structValidator
}

func compiledSchema(fs types.FieldSet) (*gojsonschema.Schema, error) {
	if s, ok := compiled.Load(fs.Name); ok {
		return s.(*gojsonschema.Schema), nil
	}
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(JSONSchema(fs)))
	if err != nil {
		return nil, fmt.Errorf("compile schema for field set %s: %w", fs.Name, err)
	}
	actual, _ := compiled.LoadOrStore(fs.Name, s)
	return actual.(*gojsonschema.Schema), nil
}

// Validate checks a raw JSON payload against the analysis schema for fs and
// decodes it. Every failure is reported as a schema violation.
func Validate(raw []byte, fs types.FieldSet) (*types.ResumeAnalysis, error) {
	s, err := compiledSchema(fs)
	if err != nil {
		return nil, errors.NewInternalError(errors.ErrCodeInternal, "analysis schema could not be compiled", err)
	}

	result, err := s.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, errors.NewSchemaViolation(errors.ErrCodeSchemaViolation, "payload is not valid JSON", err)
	}
	if !result.Valid() {
		fieldErrors := make([]FieldError, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			field := desc.Field()
			if field == "" {
				field = "(root)"
			}
			fieldErrors = append(fieldErrors, FieldError{Field: field, Message: desc.Description()})
		}
		return nil, violation(fieldErrors)
	}

	var analysis types.ResumeAnalysis
	if err := json.Unmarshal(raw, &analysis); err != nil {
		return nil, errors.NewSchemaViolation(errors.ErrCodeSchemaViolation, "payload could not be decoded into an analysis", err)
	}

	if err := Check(&analysis, fs); err != nil {
		return nil, err
	}
	return &analysis, nil
}

// Check enforces the record-level invariants on an already decoded analysis
func Check(analysis *types.ResumeAnalysis, fs types.FieldSet) error {
	if analysis == nil {
		return violation([]FieldError{{Field: "(root)", Message: "analysis is missing"}})
	}

	var fieldErrors []FieldError
	if err := getStructValidator().Struct(analysis); err != nil {
		validationErrors, ok := err.(validator.ValidationErrors)
		if !ok {
			return errors.NewSchemaViolation(errors.ErrCodeSchemaViolation, "analysis could not be validated", err)
		}
		for _, fe := range validationErrors {
			fieldErrors = append(fieldErrors, FieldError{
				Field:   trimRoot(fe.Namespace()),
				Message: describeTag(fe),
			})
		}
	}

	for _, v := range fs.Violations(analysis.ScoreBreakdown) {
		fieldErrors = append(fieldErrors, FieldError{Field: v.Path, Message: v.Message})
	}

	if len(fieldErrors) > 0 {
		return violation(fieldErrors)
	}
	return nil
}

func trimRoot(namespace string) string {
	if _, rest, ok := strings.Cut(namespace, "."); ok {
		return rest
	}
	return namespace
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

func violation(fieldErrors []FieldError) *errors.AppError {
	parts := make([]string, len(fieldErrors))
	for i, fe := range fieldErrors {
		parts[i] = fe.String()
	}
	return errors.NewSchemaViolation(
		errors.ErrCodeSchemaViolation,
		"analysis does not match the expected schema: "+strings.Join(parts, "; "),
		nil,
	).WithContext("violations", parts)
}
