package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/tendant/tg-identity/pkg/errors"
	"github.com/tendant/tg-identity/pkg/store"
	"github.com/tendant/tg-identity/pkg/tokengenerator"
)

const testSecret = "test-secret-key-for-testing-only"

func setup(t *testing.T, issuer *tokengenerator.Issuer, opts ...Option) (*httptest.Server, store.User) {
	t.Helper()
	s := store.NewInMemoryStore()
	u, err := s.CreateUser(context.Background(), store.NewUser{TelegramID: 123})
	require.NoError(t, err)

	srv := httptest.NewServer(Handler(NewHandle(s, issuer, opts...)))
	t.Cleanup(srv.Close)
	return srv, u
}

func post(t *testing.T, srv *httptest.Server, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(srv.URL+"/dummy-token", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestPostDummyToken(t *testing.T) {
	observed := make(chan bool, 1)
	srv, user := setup(t, tokengenerator.NewIssuer(testSecret, time.Hour),
		WithIssueObserver(func(ok bool) { observed <- ok }))

	resp := post(t, srv, `{"user_id":1}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var tok tokengenerator.Token
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&tok))
	assert.Equal(t, "bearer", tok.TokenType)

	verified, err := jwtauth.VerifyToken(jwtauth.New("HS256", []byte(testSecret), nil), tok.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "1", verified.Subject())
	assert.Equal(t, int64(1), user.ID)
	assert.True(t, <-observed)
}

func TestPostDummyTokenErrors(t *testing.T) {
	srv, _ := setup(t, tokengenerator.NewIssuer(testSecret, time.Hour))

	tests := []struct {
		name   string
		body   string
		status int
		code   apperrors.ErrorCode
	}{
		{name: "unknown user", body: `{"user_id":99}`, status: http.StatusNotFound, code: apperrors.ErrCodeUserNotFound},
		{name: "missing user id", body: `{}`, status: http.StatusBadRequest, code: apperrors.ErrCodeInvalidInput},
		{name: "malformed", body: `not json`, status: http.StatusBadRequest, code: apperrors.ErrCodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := post(t, srv, tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)

			var body apperrors.Body
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, tt.code, body.Code)
		})
	}
}

func TestPostDummyTokenSigningFailure(t *testing.T) {
	observed := make(chan bool, 1)
	srv, _ := setup(t, tokengenerator.NewIssuer("", time.Hour),
		WithIssueObserver(func(ok bool) { observed <- ok }))

	resp := post(t, srv, `{"user_id":1}`)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	var body apperrors.Body
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, apperrors.ErrCodeSigning, body.Code)
	assert.False(t, <-observed)
}
