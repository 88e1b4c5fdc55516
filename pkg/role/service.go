package role

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/tendant/tg-identity/pkg/store"
)

const maxRoleNameLength = 255

var (
	ErrEmptyRoleName   = errors.New("role name cannot be empty")
	ErrRoleNameTooLong = fmt.Errorf("role name cannot exceed %d characters", maxRoleNameLength)
	ErrRoleExists      = fmt.Errorf("role %w", store.ErrDuplicateKey)
	ErrRoleNotFound    = store.ErrRoleNotFound
)

// RoleService manages roles. Lookups by id and name are served from an
// expiring LRU cache; roles are never renamed, so entries cannot go stale.
type RoleService struct {
	store    store.Store
	byID     *expirable.LRU[int64, store.Role]
	byName   *expirable.LRU[string, store.Role]
	onLookup func(hit bool)
}

type Option func(*RoleService)

// WithCache sizes the lookup caches. Sizes below 1 disable caching.
func WithCache(size int, ttl time.Duration) Option {
	return func(s *RoleService) {
		if size < 1 {
			s.byID, s.byName = nil, nil
			return
		}
		s.byID = expirable.NewLRU[int64, store.Role](size, nil, ttl)
		s.byName = expirable.NewLRU[string, store.Role](size, nil, ttl)
	}
}

// WithCacheObserver is called with the outcome of every cache lookup.
func WithCacheObserver(fn func(hit bool)) Option {
	return func(s *RoleService) {
		s.onLookup = fn
	}
}

func NewRoleService(s store.Store, opts ...Option) *RoleService {
	svc := &RoleService{store: s}
	WithCache(256, 10*time.Minute)(svc)
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// NormalizeName trims name and checks it against the naming rules.
func NormalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrEmptyRoleName
	}
	if len(name) > maxRoleNameLength {
		return "", ErrRoleNameTooLong
	}
	return name, nil
}

// CreateRole checks for an existing role with the same name and creates it
// in one transaction. A concurrent create of the same name also yields
// ErrRoleExists.
func (s *RoleService) CreateRole(ctx context.Context, name string) (store.Role, error) {
	name, err := NormalizeName(name)
	if err != nil {
		return store.Role{}, err
	}

	var created store.Role
	err = s.store.WithTx(ctx, func(q store.Queries) error {
		if _, err := q.FindRoleByName(ctx, name); err == nil {
			return ErrRoleExists
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}
		created, err = q.CreateRole(ctx, name)
		return err
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicateKey) && !errors.Is(err, ErrRoleExists) {
			return store.Role{}, fmt.Errorf("%w: %w", ErrRoleExists, err)
		}
		return store.Role{}, err
	}

	slog.Info("Role created", "role_id", created.ID, "name", created.Name)
	s.remember(created)
	return created, nil
}

// FindRoles returns a window of roles ordered by id. skip and limit follow
// store.NewPage.
func (s *RoleService) FindRoles(ctx context.Context, skip, limit int) ([]store.Role, error) {
	page, err := store.NewPage(skip, limit)
	if err != nil {
		return nil, err
	}
	return s.store.ListRoles(ctx, page)
}

// GetRole returns the role with the given id.
func (s *RoleService) GetRole(ctx context.Context, id int64) (store.Role, error) {
	if s.byID != nil {
		if r, ok := s.byID.Get(id); ok {
			s.observe(true)
			return r, nil
		}
		s.observe(false)
	}
	r, err := s.store.FindRoleByID(ctx, id)
	if err != nil {
		return store.Role{}, err
	}
	s.remember(r)
	return r, nil
}

// FindRoleByName returns the role with the given name.
func (s *RoleService) FindRoleByName(ctx context.Context, name string) (store.Role, error) {
	if s.byName != nil {
		if r, ok := s.byName.Get(name); ok {
			s.observe(true)
			return r, nil
		}
		s.observe(false)
	}
	r, err := s.store.FindRoleByName(ctx, name)
	if err != nil {
		return store.Role{}, err
	}
	s.remember(r)
	return r, nil
}

func (s *RoleService) remember(r store.Role) {
	if s.byID == nil {
		return
	}
	s.byID.Add(r.ID, r)
	s.byName.Add(r.Name, r)
}

func (s *RoleService) observe(hit bool) {
	if s.onLookup != nil {
		s.onLookup(hit)
	}
}
