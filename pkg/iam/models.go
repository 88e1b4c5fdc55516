package iam

import (
	"errors"
	"fmt"

	"github.com/tendant/tg-identity/pkg/store"
)

const (
	maxNameLength         = 255
	maxLanguageCodeLength = 16
)

var (
	ErrInvalidUser  = errors.New("invalid user")
	ErrUserNotFound = store.ErrUserNotFound
)

// FieldError reports one invalid input field.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *FieldError) Unwrap() error {
	return ErrInvalidUser
}

// DuplicateError reports which natural key collided on create.
type DuplicateError struct {
	Field string
	Value interface{}
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("user with this %s already exists", e.Field)
}

func (e *DuplicateError) Unwrap() error {
	return store.ErrDuplicateKey
}

// CreateUserParams is the caller-supplied part of a new user.
type CreateUserParams struct {
	TelegramID   int64
	Username     *string
	FirstName    *string
	LastName     *string
	IsBot        bool
	LanguageCode string
}
