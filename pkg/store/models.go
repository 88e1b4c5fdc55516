package store

import (
	"errors"
	"fmt"
	"time"
)

const (
	DefaultLanguageCode = "ru"

	DefaultLimit = 100
	MaxLimit     = 1000
)

var (
	ErrNotFound         = errors.New("not found")
	ErrUserNotFound     = fmt.Errorf("user %w", ErrNotFound)
	ErrRoleNotFound     = fmt.Errorf("role %w", ErrNotFound)
	ErrDuplicateKey     = errors.New("duplicate key")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrInvalidPage      = errors.New("invalid page")
)

// Unique constraints named in DuplicateKeyError.
const (
	ConstraintUserTelegramID = "users_telegram_id_key"
	ConstraintUserUsername   = "users_username_key"
	ConstraintRoleName       = "roles_name_key"
)

// DuplicateKeyError is a unique constraint violation. It matches ErrDuplicateKey.
type DuplicateKeyError struct {
	Op         string
	Constraint string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("%s: %v on %s", e.Op, ErrDuplicateKey, e.Constraint)
}

func (e *DuplicateKeyError) Unwrap() error {
	return ErrDuplicateKey
}

type Role struct {
	ID   int64
	Name string
}

// User is a Telegram account known to the service. Roles is always loaded.
type User struct {
	ID           int64
	TelegramID   int64
	Username     *string
	FirstName    *string
	LastName     *string
	IsBot        bool
	LanguageCode string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Roles        []Role
}

// HasRole reports whether u holds the role with the given id.
func (u User) HasRole(roleID int64) bool {
	for _, r := range u.Roles {
		if r.ID == roleID {
			return true
		}
	}
	return false
}

type NewUser struct {
	TelegramID   int64
	Username     *string
	FirstName    *string
	LastName     *string
	IsBot        bool
	LanguageCode string
}

// languageCode returns the language to persist, defaulting to DefaultLanguageCode.
func (n NewUser) languageCode() string {
	if n.LanguageCode == "" {
		return DefaultLanguageCode
	}
	return n.LanguageCode
}

// Page is a normalised offset/limit window.
type Page struct {
	Offset int
	Limit  int
}

// NewPage validates offset and limit. Limits above MaxLimit are clamped. A zero
// limit is an empty window; callers apply DefaultLimit when none was given.
func NewPage(offset, limit int) (Page, error) {
	if offset < 0 {
		return Page{}, fmt.Errorf("%w: skip must be non-negative, got %d", ErrInvalidPage, offset)
	}
	if limit < 0 {
		return Page{}, fmt.Errorf("%w: limit must be non-negative, got %d", ErrInvalidPage, limit)
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return Page{Offset: offset, Limit: limit}, nil
}

// bounds returns the slice indexes of the window over n ordered items.
func (p Page) bounds(n int) (start, end int) {
	if p.Offset >= n {
		return n, n
	}
	end = p.Offset + p.Limit
	if end > n {
		end = n
	}
	return p.Offset, end
}
