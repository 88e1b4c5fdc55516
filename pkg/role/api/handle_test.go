package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/tendant/tg-identity/pkg/errors"
	rolepkg "github.com/tendant/tg-identity/pkg/role"
	"github.com/tendant/tg-identity/pkg/store"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	h := NewHandle(rolepkg.NewRoleService(store.NewInMemoryStore()))
	srv := httptest.NewServer(Handler(h))
	t.Cleanup(srv.Close)
	return srv
}

func postRole(t *testing.T, srv *httptest.Server, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(srv.URL+"/", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestCreateAndListRoles(t *testing.T) {
	srv := newTestServer(t)

	resp := postRole(t, srv, `{"name":"admin"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created RoleResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.Equal(t, "admin", created.Name)
	assert.NotZero(t, created.ID)

	listResp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	defer listResp.Body.Close()
	require.Equal(t, http.StatusOK, listResp.StatusCode)

	var roles []RoleResponse
	require.NoError(t, json.NewDecoder(listResp.Body).Decode(&roles))
	assert.Contains(t, roles, created)
}

func TestCreateRoleDuplicate(t *testing.T) {
	srv := newTestServer(t)

	require.Equal(t, http.StatusCreated, postRole(t, srv, `{"name":"admin"}`).StatusCode)

	resp := postRole(t, srv, `{"name":"admin"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body apperrors.Body
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, apperrors.ErrCodeDuplicateKey, body.Code)
	assert.Equal(t, "name", body.Details["field"])
}

func TestCreateRoleValidation(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name string
		body string
	}{
		{name: "empty name", body: `{"name":""}`},
		{name: "missing name", body: `{}`},
		{name: "malformed", body: `{"name":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postRole(t, srv, tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

			var body apperrors.Body
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, apperrors.ErrCodeInvalidInput, body.Code)
		})
	}
}

func TestGetRoleByID(t *testing.T) {
	srv := newTestServer(t)

	resp := postRole(t, srv, `{"name":"viewer"}`)
	var created RoleResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))

	tests := []struct {
		name   string
		path   string
		status int
	}{
		{name: "found", path: "/1", status: http.StatusOK},
		{name: "missing", path: "/999", status: http.StatusNotFound},
		{name: "not a number", path: "/abc", status: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Get(srv.URL + tt.path)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestListRolesPagination(t *testing.T) {
	srv := newTestServer(t)
	for _, name := range []string{"r0", "r1", "r2", "r3", "r4"} {
		require.Equal(t, http.StatusCreated, postRole(t, srv, `{"name":"`+name+`"}`).StatusCode)
	}

	tests := []struct {
		name      string
		query     string
		status    int
		wantNames []string
	}{
		{name: "defaults", query: "", status: http.StatusOK, wantNames: []string{"r0", "r1", "r2", "r3", "r4"}},
		{name: "window", query: "?skip=1&limit=2", status: http.StatusOK, wantNames: []string{"r1", "r2"}},
		{name: "past end", query: "?skip=10", status: http.StatusOK, wantNames: []string{}},
		{name: "zero limit", query: "?limit=0", status: http.StatusOK, wantNames: []string{}},
		{name: "limit above max", query: "?limit=5000", status: http.StatusOK, wantNames: []string{"r0", "r1", "r2", "r3", "r4"}},
		{name: "negative skip", query: "?skip=-1", status: http.StatusBadRequest},
		{name: "negative limit", query: "?limit=-1", status: http.StatusBadRequest},
		{name: "not a number", query: "?skip=abc", status: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Get(srv.URL + "/" + tt.query)
			require.NoError(t, err)
			defer resp.Body.Close()
			require.Equal(t, tt.status, resp.StatusCode)

			if tt.status != http.StatusOK {
				var body apperrors.Body
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
				assert.Equal(t, apperrors.ErrCodeValidationFailed, body.Code)
				return
			}
			var roles []RoleResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&roles))
			got := make([]string, 0, len(roles))
			for _, r := range roles {
				got = append(got, r.Name)
			}
			assert.Equal(t, tt.wantNames, got)
		})
	}
}
