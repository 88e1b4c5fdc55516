package iam

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tendant/tg-identity/pkg/store"
)

// UserService manages Telegram users and their role membership.
type UserService struct {
	store store.Store
}

func NewUserService(s store.Store) *UserService {
	return &UserService{store: s}
}

// normalize trims optional text fields and checks their bounds. Empty
// optional strings are treated as absent.
func (p CreateUserParams) normalize() (CreateUserParams, error) {
	if p.TelegramID <= 0 {
		return p, &FieldError{Field: "telegram_id", Reason: "must be a positive integer"}
	}

	var err error
	if p.Username, err = optionalText("username", p.Username); err != nil {
		return p, err
	}
	if p.FirstName, err = optionalText("first_name", p.FirstName); err != nil {
		return p, err
	}
	if p.LastName, err = optionalText("last_name", p.LastName); err != nil {
		return p, err
	}

	p.LanguageCode = strings.TrimSpace(p.LanguageCode)
	if p.LanguageCode == "" {
		p.LanguageCode = store.DefaultLanguageCode
	}
	if len(p.LanguageCode) > maxLanguageCodeLength {
		return p, &FieldError{Field: "language_code", Reason: fmt.Sprintf("must be at most %d characters", maxLanguageCodeLength)}
	}
	return p, nil
}

func optionalText(field string, v *string) (*string, error) {
	if v == nil {
		return nil, nil
	}
	s := strings.TrimSpace(*v)
	if s == "" {
		return nil, nil
	}
	if len(s) > maxNameLength {
		return nil, &FieldError{Field: field, Reason: fmt.Sprintf("must be at most %d characters", maxNameLength)}
	}
	return &s, nil
}

// CreateUser validates params, rejects an existing telegram_id or username,
// and inserts the user in one transaction. Concurrent creates of the same
// key lose with a *DuplicateError.
func (s *UserService) CreateUser(ctx context.Context, params CreateUserParams) (store.User, error) {
	params, err := params.normalize()
	if err != nil {
		return store.User{}, err
	}

	var created store.User
	err = s.store.WithTx(ctx, func(q store.Queries) error {
		if err := checkAbsent(q.FindUserByTelegramID(ctx, params.TelegramID)); err != nil {
			return duplicateOr(err, "telegram_id", params.TelegramID)
		}
		if params.Username != nil {
			if err := checkAbsent(q.FindUserByUsername(ctx, *params.Username)); err != nil {
				return duplicateOr(err, "username", *params.Username)
			}
		}

		created, err = q.CreateUser(ctx, store.NewUser{
			TelegramID:   params.TelegramID,
			Username:     params.Username,
			FirstName:    params.FirstName,
			LastName:     params.LastName,
			IsBot:        params.IsBot,
			LanguageCode: params.LanguageCode,
		})
		return err
	})
	if err != nil {
		var dup *DuplicateError
		if errors.Is(err, store.ErrDuplicateKey) && !errors.As(err, &dup) {
			return store.User{}, raceDuplicate(err, params)
		}
		return store.User{}, err
	}

	slog.Info("User created", "user_id", created.ID, "telegram_id", created.TelegramID)
	return created, nil
}

var errExists = errors.New("exists")

// checkAbsent turns a lookup result into errExists, nil (absent) or the
// lookup failure.
func checkAbsent(_ store.User, err error) error {
	switch {
	case err == nil:
		return errExists
	case errors.Is(err, store.ErrNotFound):
		return nil
	default:
		return err
	}
}

func duplicateOr(err error, field string, value interface{}) error {
	if errors.Is(err, errExists) {
		return &DuplicateError{Field: field, Value: value}
	}
	return err
}

// raceDuplicate names the field of a unique violation that slipped past
// the pre-check.
func raceDuplicate(err error, params CreateUserParams) error {
	var keyErr *store.DuplicateKeyError
	if errors.As(err, &keyErr) && keyErr.Constraint == store.ConstraintUserUsername && params.Username != nil {
		return fmt.Errorf("%w: %w", &DuplicateError{Field: "username", Value: *params.Username}, err)
	}
	return fmt.Errorf("%w: %w", &DuplicateError{Field: "telegram_id", Value: params.TelegramID}, err)
}

func (s *UserService) FindUserByID(ctx context.Context, id int64) (store.User, error) {
	return s.store.FindUserByID(ctx, id)
}

// FindUserByTelegramID returns the user and whether one exists.
func (s *UserService) FindUserByTelegramID(ctx context.Context, telegramID int64) (store.User, bool, error) {
	u, err := s.store.FindUserByTelegramID(ctx, telegramID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.User{}, false, nil
		}
		return store.User{}, false, err
	}
	return u, true, nil
}

// ListUsers returns a window of users ordered by id. skip and limit follow
// store.NewPage.
func (s *UserService) ListUsers(ctx context.Context, skip, limit int) ([]store.User, error) {
	page, err := store.NewPage(skip, limit)
	if err != nil {
		return nil, err
	}

	var users []store.User
	err = s.store.ReadTx(ctx, func(q store.Queries) error {
		users, err = q.ListUsers(ctx, page)
		return err
	})
	if err != nil {
		return nil, err
	}
	return users, nil
}

// AssignRole adds the role to the user. Holding the role already is not an
// error.
func (s *UserService) AssignRole(ctx context.Context, userID, roleID int64) (store.User, error) {
	var updated store.User
	err := s.store.WithTx(ctx, func(q store.Queries) error {
		var err error
		updated, err = q.AssignRole(ctx, userID, roleID)
		return err
	})
	if err != nil {
		return store.User{}, err
	}
	slog.Info("Role assigned", "user_id", userID, "role_id", roleID)
	return updated, nil
}
