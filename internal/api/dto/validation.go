package dto

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/spec-kit/campus-helpdesk/internal/domain"
	apperrors "github.com/spec-kit/campus-helpdesk/pkg/util"
)

// Validator wraps go-playground validator with helpdesk rules.
type Validator struct {
	validate *validator.Validate
}

// NewValidator registers the custom tags:
//
//	notblank         non-empty after trimming
//	ticket_status    a known status or the "solved" alias
//	ticket_priority  low, medium or high
//	issue_type       a known issue type
func NewValidator() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = v.RegisterValidation("ticket_status", func(fl validator.FieldLevel) bool {
		_, ok := domain.ParseTicketStatus(fl.Field().String())
		return ok
	})
	_ = v.RegisterValidation("ticket_priority", func(fl validator.FieldLevel) bool {
		_, ok := domain.ParseTicketPriority(fl.Field().String())
		return ok
	})
	_ = v.RegisterValidation("issue_type", func(fl validator.FieldLevel) bool {
		_, ok := domain.ParseIssueType(fl.Field().String())
		return ok
	})
	return &Validator{validate: v}
}

// Validate checks a request struct and reports failures as VALIDATION_FAILED
// with one detail entry per field.
func (v *Validator) Validate(req any) error {
	err := v.validate.Struct(req)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	details := make(map[string]any, len(fieldErrs))
	for _, fe := range fieldErrs {
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		details[fe.Field()] = rule
	}
	return apperrors.NewValidationError("request validation failed", details)
}
