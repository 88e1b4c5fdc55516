// Package auth serves the development token endpoint.
package auth

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	apperrors "github.com/tendant/tg-identity/pkg/errors"
	"github.com/tendant/tg-identity/pkg/store"
	"github.com/tendant/tg-identity/pkg/tokengenerator"
)

// UserFinder resolves the subject of a token request.
type UserFinder interface {
	FindUserByID(ctx context.Context, id int64) (store.User, error)
}

type DummyTokenRequest struct {
	UserID int64 `json:"user_id"`
}

type Handle struct {
	users    UserFinder
	issuer   *tokengenerator.Issuer
	onIssued func(ok bool)
}

type Option func(*Handle)

// WithIssueObserver is called after every signing attempt.
func WithIssueObserver(fn func(ok bool)) Option {
	return func(h *Handle) {
		h.onIssued = fn
	}
}

func NewHandle(users UserFinder, issuer *tokengenerator.Issuer, opts ...Option) *Handle {
	h := &Handle{users: users, issuer: issuer}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Handler returns the auth routes, to be mounted under the auth prefix.
// It must only be mounted in non-production deployments.
func Handler(h *Handle) http.Handler {
	r := chi.NewRouter()
	r.Post("/dummy-token", h.PostDummyToken)
	return r
}

// PostDummyToken issues a bearer token for an existing user without any
// credential check.
// (POST /auth/dummy-token)
func (h *Handle) PostDummyToken(w http.ResponseWriter, r *http.Request) {
	var req DummyTokenRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		apperrors.Render(w, r, apperrors.InvalidInput("body", "malformed JSON"))
		return
	}
	if req.UserID <= 0 {
		apperrors.Render(w, r, apperrors.InvalidInput("user_id", "must be a positive integer"))
		return
	}

	if _, err := h.users.FindUserByID(r.Context(), req.UserID); err != nil {
		apperrors.Render(w, r, apperrors.FromDomain(err, "failed to find user"))
		return
	}

	token, err := h.issuer.Issue(req.UserID)
	h.observe(err == nil)
	if err != nil {
		apperrors.Render(w, r, apperrors.FromDomain(err, "failed to issue token"))
		return
	}

	slog.Warn("Issued development token", "user_id", req.UserID)
	render.JSON(w, r, token)
}

func (h *Handle) observe(ok bool) {
	if h.onIssued != nil {
		h.onIssued(ok)
	}
}
