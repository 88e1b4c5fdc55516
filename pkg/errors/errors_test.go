package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/tg-identity/pkg/store"
	"github.com/tendant/tg-identity/pkg/tokengenerator"
)

func TestFromDomain(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		code   ErrorCode
		status int
	}{
		{name: "user not found", err: fmt.Errorf("find: %w", store.ErrUserNotFound), code: ErrCodeUserNotFound, status: http.StatusNotFound},
		{name: "role not found", err: store.ErrRoleNotFound, code: ErrCodeRoleNotFound, status: http.StatusNotFound},
		{name: "generic not found", err: store.ErrNotFound, code: ErrCodeNotFound, status: http.StatusNotFound},
		{name: "duplicate", err: store.ErrDuplicateKey, code: ErrCodeDuplicateKey, status: http.StatusBadRequest},
		{name: "invalid page", err: store.ErrInvalidPage, code: ErrCodeValidationFailed, status: http.StatusBadRequest},
		{name: "store unavailable", err: store.ErrStoreUnavailable, code: ErrCodeStoreUnavailable, status: http.StatusServiceUnavailable},
		{name: "signing", err: tokengenerator.ErrSigning, code: ErrCodeSigning, status: http.StatusInternalServerError},
		{name: "unknown", err: errors.New("boom"), code: ErrCodeInternal, status: http.StatusInternalServerError},
		{name: "already coded", err: New(ErrCodeInvalidInput, "bad"), code: ErrCodeInvalidInput, status: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := FromDomain(tt.err, "operation failed")
			require.NotNil(t, e)
			assert.Equal(t, tt.code, e.Code)
			assert.Equal(t, tt.status, e.HTTPStatusCode())
			assert.ErrorIs(t, e, tt.err)
		})
	}
	assert.Nil(t, FromDomain(nil, "unused"))
}

func TestHelpers(t *testing.T) {
	dup := Duplicate("user", "telegram_id", int64(123))
	assert.Equal(t, "user with this telegram_id already exists", dup.Message)
	assert.Equal(t, "telegram_id", dup.Details["field"])
	assert.Equal(t, int64(123), dup.Details["value"])

	wrapped := fmt.Errorf("handler: %w", InvalidInput("user_id", "must be positive"))
	assert.True(t, IsCode(wrapped, ErrCodeInvalidInput))
	assert.Equal(t, ErrCodeInvalidInput, GetCode(wrapped))
	assert.Equal(t, ErrCodeInternal, GetCode(errors.New("plain")))
}

func TestRenderHidesCause(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	Render(rec, req, InternalWrap(errors.New("password=hunter2"), "failed to list users"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body Body
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, ErrCodeInternal, body.Code)
	assert.Equal(t, "failed to list users", body.Message)
	assert.NotContains(t, rec.Body.String(), "hunter2")
}
