package core

import (
	"log/slog"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"qrfeedback/internal/types"
)

// ValidationError describes a single field-level validation failure.
type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationResult aggregates validation errors and non-blocking warnings.
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []string
}

// IsValid reports whether the result contains no errors. Warnings alone do
// not invalidate a request.
func (r ValidationResult) IsValid() bool {
	return len(r.Errors) == 0
}

// Validator wraps go-playground/validator with domain-specific rules and
// AppError translation.
type Validator struct {
	validate *validator.Validate
	logger   *slog.Logger
}

// NewValidator creates a new Validator and registers custom validation tags.
func NewValidator(logger *slog.Logger) *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report field names from their json tags so error details match the
	// wire contract rather than Go identifiers.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	// question_type restricts a string field to the supported question variants.
	_ = v.RegisterValidation("question_type", func(fl validator.FieldLevel) bool {
		return types.QuestionType(fl.Field().String()).Valid()
	})

	return &Validator{
		validate: v,
		logger:   logger,
	}
}

// ValidateStruct validates s and returns nil on success, or a *types.AppError
// (400) whose Details carry the full list of field failures under the
// "validation_errors" key. The AppError code reflects the first failure.
func (v *Validator) ValidateStruct(s interface{}) error {
	result := v.ValidateStructWithWarnings(s)
	if result.IsValid() {
		return nil
	}

	first := result.Errors[0]
	return types.NewAppErrorWithDetails(
		types.ErrorCode(first.Code),
		first.Message,
		nil,
		map[string]any{"validation_errors": result.Errors},
	)
}

// ValidateStructWithWarnings validates s and returns the full result instead
// of collapsing it into an error. Callers that surface every field failure at
// once use this form.
func (v *Validator) ValidateStructWithWarnings(s interface{}) ValidationResult {
	var result ValidationResult

	err := v.validate.Struct(s)
	if err == nil {
		return result
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		// Non-field error (e.g., passing a non-struct). Treat as a single
		// generic validation failure.
		v.logger.Warn("validator returned non-field error", "error", err)
		result.Errors = append(result.Errors, ValidationError{
			Field:   "",
			Code:    string(types.ErrCodeValidationMissingField),
			Message: "request failed validation",
		})
		return result
	}

	for _, fe := range verrs {
		result.Errors = append(result.Errors, ValidationError{
			Field:   fe.Field(),
			Code:    string(codeForTag(fe.Tag())),
			Message: messageForFieldError(fe),
		})
	}
	return result
}

// codeForTag maps a validator tag to the application error code it represents.
func codeForTag(tag string) types.ErrorCode {
	switch tag {
	case "required":
		return types.ErrCodeValidationMissingField
	case "question_type":
		return types.ErrCodeValidationQuestionType
	case "min":
		return types.ErrCodeValidationQuestionOptions
	default:
		return types.ErrCodeValidationMissingField
	}
}

// messageForFieldError renders a human-readable message for a field failure.
func messageForFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "question_type":
		return fe.Field() + " must be one of: rating, text, multiple"
	case "min":
		return fe.Field() + " must have at least " + fe.Param() + " entries"
	case "max":
		return fe.Field() + " must have at most " + fe.Param() + " entries"
	case "email":
		return fe.Field() + " must be a valid email address"
	default:
		return fe.Field() + " failed " + fe.Tag() + " validation"
	}
}
