package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// InMemoryStore implements Store with mutex-guarded maps. Write transactions
// are serialised and operate on a copy of the state that replaces the live
// state only when the callback succeeds.
type InMemoryStore struct {
	mu    sync.RWMutex
	state *memState
	now   func() time.Time
}

type memState struct {
	users      map[int64]User // Roles is not stored here
	roles      map[int64]Role
	userRoles  map[int64]map[int64]struct{}
	nextUserID int64
	nextRoleID int64
}

func newMemState() *memState {
	return &memState{
		users:      make(map[int64]User),
		roles:      make(map[int64]Role),
		userRoles:  make(map[int64]map[int64]struct{}),
		nextUserID: 1,
		nextRoleID: 1,
	}
}

func (s *memState) clone() *memState {
	c := &memState{
		users:      make(map[int64]User, len(s.users)),
		roles:      make(map[int64]Role, len(s.roles)),
		userRoles:  make(map[int64]map[int64]struct{}, len(s.userRoles)),
		nextUserID: s.nextUserID,
		nextRoleID: s.nextRoleID,
	}
	for id, u := range s.users {
		c.users[id] = u
	}
	for id, r := range s.roles {
		c.roles[id] = r
	}
	for uid, set := range s.userRoles {
		cs := make(map[int64]struct{}, len(set))
		for rid := range set {
			cs[rid] = struct{}{}
		}
		c.userRoles[uid] = cs
	}
	return c
}

type InMemoryOption func(*InMemoryStore)

// WithClock overrides the time source used for created_at and updated_at.
func WithClock(now func() time.Time) InMemoryOption {
	return func(s *InMemoryStore) {
		s.now = now
	}
}

func NewInMemoryStore(opts ...InMemoryOption) *InMemoryStore {
	s := &InMemoryStore{
		state: newMemState(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *InMemoryStore) WithTx(ctx context.Context, fn func(q Queries) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	working := s.state.clone()
	if err := fn(&memQueries{state: working, now: s.now}); err != nil {
		return err
	}
	s.state = working
	return nil
}

func (s *InMemoryStore) ReadTx(ctx context.Context, fn func(q Queries) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(&memQueries{state: s.state, now: s.now, readOnly: true})
}

// single runs one operation as its own transaction.
func (s *InMemoryStore) single(ctx context.Context, write bool, fn func(q Queries) error) error {
	if write {
		return s.WithTx(ctx, fn)
	}
	return s.ReadTx(ctx, fn)
}

func (s *InMemoryStore) Ping(ctx context.Context) error { return nil }

func (s *InMemoryStore) Close() {}

func (s *InMemoryStore) FindUserByTelegramID(ctx context.Context, telegramID int64) (u User, err error) {
	err = s.single(ctx, false, func(q Queries) error {
		u, err = q.FindUserByTelegramID(ctx, telegramID)
		return err
	})
	return u, err
}

func (s *InMemoryStore) FindUserByID(ctx context.Context, id int64) (u User, err error) {
	err = s.single(ctx, false, func(q Queries) error {
		u, err = q.FindUserByID(ctx, id)
		return err
	})
	return u, err
}

func (s *InMemoryStore) FindUserByUsername(ctx context.Context, username string) (u User, err error) {
	err = s.single(ctx, false, func(q Queries) error {
		u, err = q.FindUserByUsername(ctx, username)
		return err
	})
	return u, err
}

func (s *InMemoryStore) CreateUser(ctx context.Context, params NewUser) (u User, err error) {
	err = s.single(ctx, true, func(q Queries) error {
		u, err = q.CreateUser(ctx, params)
		return err
	})
	return u, err
}

func (s *InMemoryStore) ListUsers(ctx context.Context, page Page) (users []User, err error) {
	err = s.single(ctx, false, func(q Queries) error {
		users, err = q.ListUsers(ctx, page)
		return err
	})
	return users, err
}

func (s *InMemoryStore) FindRoleByName(ctx context.Context, name string) (r Role, err error) {
	err = s.single(ctx, false, func(q Queries) error {
		r, err = q.FindRoleByName(ctx, name)
		return err
	})
	return r, err
}

func (s *InMemoryStore) FindRoleByID(ctx context.Context, id int64) (r Role, err error) {
	err = s.single(ctx, false, func(q Queries) error {
		r, err = q.FindRoleByID(ctx, id)
		return err
	})
	return r, err
}

func (s *InMemoryStore) CreateRole(ctx context.Context, name string) (r Role, err error) {
	err = s.single(ctx, true, func(q Queries) error {
		r, err = q.CreateRole(ctx, name)
		return err
	})
	return r, err
}

func (s *InMemoryStore) ListRoles(ctx context.Context, page Page) (roles []Role, err error) {
	err = s.single(ctx, false, func(q Queries) error {
		roles, err = q.ListRoles(ctx, page)
		return err
	})
	return roles, err
}

func (s *InMemoryStore) AssignRole(ctx context.Context, userID, roleID int64) (u User, err error) {
	err = s.single(ctx, true, func(q Queries) error {
		u, err = q.AssignRole(ctx, userID, roleID)
		return err
	})
	return u, err
}

// memQueries operates on one state snapshot. The owning InMemoryStore holds
// the lock for its whole lifetime.
type memQueries struct {
	state    *memState
	now      func() time.Time
	readOnly bool
}

func (q *memQueries) withRoles(u User) User {
	roles := make([]Role, 0, len(q.state.userRoles[u.ID]))
	for rid := range q.state.userRoles[u.ID] {
		if r, ok := q.state.roles[rid]; ok {
			roles = append(roles, r)
		}
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i].ID < roles[j].ID })
	u.Roles = roles
	return u
}

func (q *memQueries) FindUserByTelegramID(ctx context.Context, telegramID int64) (User, error) {
	for _, u := range q.state.users {
		if u.TelegramID == telegramID {
			return q.withRoles(u), nil
		}
	}
	return User{}, fmt.Errorf("find user by telegram id: %w", ErrUserNotFound)
}

func (q *memQueries) FindUserByID(ctx context.Context, id int64) (User, error) {
	u, ok := q.state.users[id]
	if !ok {
		return User{}, fmt.Errorf("find user by id: %w", ErrUserNotFound)
	}
	return q.withRoles(u), nil
}

func (q *memQueries) FindUserByUsername(ctx context.Context, username string) (User, error) {
	for _, u := range q.state.users {
		if u.Username != nil && *u.Username == username {
			return q.withRoles(u), nil
		}
	}
	return User{}, fmt.Errorf("find user by username: %w", ErrUserNotFound)
}

func (q *memQueries) CreateUser(ctx context.Context, params NewUser) (User, error) {
	if q.readOnly {
		return User{}, fmt.Errorf("create user: read-only transaction")
	}
	for _, u := range q.state.users {
		if u.TelegramID == params.TelegramID {
			return User{}, &DuplicateKeyError{Op: "create user", Constraint: ConstraintUserTelegramID}
		}
		if params.Username != nil && u.Username != nil && *u.Username == *params.Username {
			return User{}, &DuplicateKeyError{Op: "create user", Constraint: ConstraintUserUsername}
		}
	}

	now := q.now().UTC()
	u := User{
		ID:           q.state.nextUserID,
		TelegramID:   params.TelegramID,
		Username:     params.Username,
		FirstName:    params.FirstName,
		LastName:     params.LastName,
		IsBot:        params.IsBot,
		LanguageCode: params.languageCode(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	q.state.nextUserID++
	q.state.users[u.ID] = u
	u.Roles = []Role{}
	return u, nil
}

func (q *memQueries) ListUsers(ctx context.Context, page Page) ([]User, error) {
	ids := make([]int64, 0, len(q.state.users))
	for id := range q.state.users {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	users := []User{}
	start, end := page.bounds(len(ids))
	for _, id := range ids[start:end] {
		users = append(users, q.withRoles(q.state.users[id]))
	}
	return users, nil
}

func (q *memQueries) FindRoleByName(ctx context.Context, name string) (Role, error) {
	for _, r := range q.state.roles {
		if r.Name == name {
			return r, nil
		}
	}
	return Role{}, fmt.Errorf("find role by name: %w", ErrRoleNotFound)
}

func (q *memQueries) FindRoleByID(ctx context.Context, id int64) (Role, error) {
	r, ok := q.state.roles[id]
	if !ok {
		return Role{}, fmt.Errorf("find role by id: %w", ErrRoleNotFound)
	}
	return r, nil
}

func (q *memQueries) CreateRole(ctx context.Context, name string) (Role, error) {
	if q.readOnly {
		return Role{}, fmt.Errorf("create role: read-only transaction")
	}
	for _, r := range q.state.roles {
		if r.Name == name {
			return Role{}, &DuplicateKeyError{Op: "create role", Constraint: ConstraintRoleName}
		}
	}
	r := Role{ID: q.state.nextRoleID, Name: name}
	q.state.nextRoleID++
	q.state.roles[r.ID] = r
	return r, nil
}

func (q *memQueries) ListRoles(ctx context.Context, page Page) ([]Role, error) {
	roles := make([]Role, 0, len(q.state.roles))
	for _, r := range q.state.roles {
		roles = append(roles, r)
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i].ID < roles[j].ID })
	start, end := page.bounds(len(roles))
	return append([]Role{}, roles[start:end]...), nil
}

func (q *memQueries) AssignRole(ctx context.Context, userID, roleID int64) (User, error) {
	if q.readOnly {
		return User{}, fmt.Errorf("assign role: read-only transaction")
	}
	u, ok := q.state.users[userID]
	if !ok {
		return User{}, fmt.Errorf("assign role: %w", ErrUserNotFound)
	}
	if _, ok := q.state.roles[roleID]; !ok {
		return User{}, fmt.Errorf("assign role: %w", ErrRoleNotFound)
	}

	set, ok := q.state.userRoles[userID]
	if !ok {
		set = make(map[int64]struct{})
		q.state.userRoles[userID] = set
	}
	if _, held := set[roleID]; !held {
		set[roleID] = struct{}{}
		u.UpdatedAt = q.now().UTC()
		q.state.users[userID] = u
	}
	return q.withRoles(u), nil
}
