package role

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/tg-identity/pkg/store"
)

// countingStore counts role lookups that reach the backing store.
type countingStore struct {
	*store.InMemoryStore
	mu      sync.Mutex
	lookups int
}

func (s *countingStore) FindRoleByID(ctx context.Context, id int64) (store.Role, error) {
	s.mu.Lock()
	s.lookups++
	s.mu.Unlock()
	return s.InMemoryStore.FindRoleByID(ctx, id)
}

func (s *countingStore) FindRoleByName(ctx context.Context, name string) (store.Role, error) {
	s.mu.Lock()
	s.lookups++
	s.mu.Unlock()
	return s.InMemoryStore.FindRoleByName(ctx, name)
}

func TestCreateRole(t *testing.T) {
	ctx := context.Background()
	svc := NewRoleService(store.NewInMemoryStore())

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr error
	}{
		{name: "valid", input: "admin", want: "admin"},
		{name: "trimmed", input: "  editor ", want: "editor"},
		{name: "empty", input: "", wantErr: ErrEmptyRoleName},
		{name: "blank", input: "   ", wantErr: ErrEmptyRoleName},
		{name: "too long", input: strings.Repeat("r", 256), wantErr: ErrRoleNameTooLong},
		{name: "duplicate", input: "admin", wantErr: ErrRoleExists},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			role, err := svc.CreateRole(ctx, tt.input)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, role.Name)
			assert.NotZero(t, role.ID)
		})
	}
}

func TestCreateRoleDuplicateIsDuplicateKey(t *testing.T) {
	ctx := context.Background()
	svc := NewRoleService(store.NewInMemoryStore())

	_, err := svc.CreateRole(ctx, "admin")
	require.NoError(t, err)
	_, err = svc.CreateRole(ctx, "admin")
	assert.ErrorIs(t, err, store.ErrDuplicateKey)
}

func TestCreateRoleConcurrent(t *testing.T) {
	ctx := context.Background()
	svc := NewRoleService(store.NewInMemoryStore())

	var wg sync.WaitGroup
	results := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.CreateRole(ctx, "moderator")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var ok, dup int
	for err := range results {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrRoleExists):
			dup++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 9, dup)

	roles, err := svc.FindRoles(ctx, 0, store.DefaultLimit)
	require.NoError(t, err)
	assert.Len(t, roles, 1)
}

func TestFindRolesPagination(t *testing.T) {
	ctx := context.Background()
	svc := NewRoleService(store.NewInMemoryStore())
	for _, name := range []string{"r0", "r1", "r2", "r3", "r4"} {
		_, err := svc.CreateRole(ctx, name)
		require.NoError(t, err)
	}

	roles, err := svc.FindRoles(ctx, 1, 2)
	require.NoError(t, err)
	require.Len(t, roles, 2)
	assert.Equal(t, "r1", roles[0].Name)
	assert.Equal(t, "r2", roles[1].Name)

	roles, err = svc.FindRoles(ctx, 0, 5000)
	require.NoError(t, err)
	assert.Len(t, roles, 5)

	_, err = svc.FindRoles(ctx, 0, -1)
	assert.ErrorIs(t, err, store.ErrInvalidPage)
}

func TestGetRoleUsesCache(t *testing.T) {
	ctx := context.Background()
	backing := &countingStore{InMemoryStore: store.NewInMemoryStore()}
	created, err := backing.CreateRole(ctx, "viewer")
	require.NoError(t, err)

	var hits, misses int
	svc := NewRoleService(backing,
		WithCache(16, time.Minute),
		WithCacheObserver(func(hit bool) {
			if hit {
				hits++
			} else {
				misses++
			}
		}),
	)

	for i := 0; i < 3; i++ {
		got, err := svc.GetRole(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, created, got)
	}
	byName, err := svc.FindRoleByName(ctx, "viewer")
	require.NoError(t, err)
	assert.Equal(t, created, byName)

	assert.Equal(t, 1, backing.lookups)
	assert.Equal(t, 3, hits)
	assert.Equal(t, 1, misses)
}

func TestGetRoleNotFoundIsNotCached(t *testing.T) {
	ctx := context.Background()
	backing := &countingStore{InMemoryStore: store.NewInMemoryStore()}
	svc := NewRoleService(backing)

	_, err := svc.GetRole(ctx, 99)
	assert.ErrorIs(t, err, ErrRoleNotFound)
	_, err = svc.GetRole(ctx, 99)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Equal(t, 2, backing.lookups)
}

func TestCacheDisabled(t *testing.T) {
	ctx := context.Background()
	backing := &countingStore{InMemoryStore: store.NewInMemoryStore()}
	created, err := backing.CreateRole(ctx, "viewer")
	require.NoError(t, err)

	svc := NewRoleService(backing, WithCache(0, time.Minute))
	for i := 0; i < 2; i++ {
		_, err := svc.GetRole(ctx, created.ID)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, backing.lookups)
}
