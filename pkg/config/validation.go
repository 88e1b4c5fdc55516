package config

import (
	"fmt"
	"strings"
	"time"
)

// ValidationError is a single invalid configuration field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors collects every invalid field found by Validate.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	switch len(e) {
	case 0:
		return ""
	case 1:
		return e[0].Error()
	}
	var b strings.Builder
	b.WriteString("configuration validation failed:")
	for _, err := range e {
		b.WriteString("\n  - ")
		b.WriteString(err.Error())
	}
	return b.String()
}

// Validator checks one configuration block.
type Validator func() ValidationErrors

// Validate runs validators and returns their combined errors, or nil.
func Validate(validators ...Validator) error {
	var all ValidationErrors
	for _, v := range validators {
		all = append(all, v()...)
	}
	if len(all) > 0 {
		return all
	}
	return nil
}

func RequireNonEmpty(field, value string) *ValidationError {
	if value == "" {
		return &ValidationError{Field: field, Message: "is required"}
	}
	return nil
}

func RequirePositive(field string, value int) *ValidationError {
	if value <= 0 {
		return &ValidationError{Field: field, Message: fmt.Sprintf("must be positive, got %d", value)}
	}
	return nil
}

func RequirePositiveDuration(field string, value time.Duration) *ValidationError {
	if value <= 0 {
		return &ValidationError{Field: field, Message: fmt.Sprintf("must be positive, got %v", value)}
	}
	return nil
}

func RequireOneOf(field, value string, allowed []string) *ValidationError {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return &ValidationError{Field: field, Message: fmt.Sprintf("must be one of %v, got %q", allowed, value)}
}

// RequirePathPrefix checks that an API prefix starts with "/" and has no trailing slash.
func RequirePathPrefix(field, value string) *ValidationError {
	if value == "" {
		return &ValidationError{Field: field, Message: "is required"}
	}
	if !strings.HasPrefix(value, "/") {
		return &ValidationError{Field: field, Message: fmt.Sprintf("must start with '/', got %q", value)}
	}
	if len(value) > 1 && strings.HasSuffix(value, "/") {
		return &ValidationError{Field: field, Message: fmt.Sprintf("must not end with '/', got %q", value)}
	}
	return nil
}

// CollectErrors drops nil entries.
func CollectErrors(errs ...*ValidationError) ValidationErrors {
	var result ValidationErrors
	for _, err := range errs {
		if err != nil {
			result = append(result, *err)
		}
	}
	return result
}
