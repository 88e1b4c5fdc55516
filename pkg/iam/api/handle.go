package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/ggicci/httpin"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/jinzhu/copier"
	apperrors "github.com/tendant/tg-identity/pkg/errors"
	"github.com/tendant/tg-identity/pkg/iam"
	"github.com/tendant/tg-identity/pkg/store"
)

type RoleResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type UserResponse struct {
	ID           int64          `json:"id"`
	TelegramID   int64          `json:"telegram_id"`
	Username     *string        `json:"username"`
	FirstName    *string        `json:"first_name"`
	LastName     *string        `json:"last_name"`
	IsBot        bool           `json:"is_bot"`
	LanguageCode string         `json:"language_code"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	Roles        []RoleResponse `json:"roles"`
}

type CreateUserRequest struct {
	TelegramID   int64   `json:"telegram_id"`
	Username     *string `json:"username"`
	FirstName    *string `json:"first_name"`
	LastName     *string `json:"last_name"`
	IsBot        bool    `json:"is_bot"`
	LanguageCode string  `json:"language_code"`
}

type AssignRoleRequest struct {
	RoleID int64 `json:"role_id"`
}

// ListUsersInput binds the pagination query of GET /users.
type ListUsersInput struct {
	Skip  int `in:"query=skip;default=0"`
	Limit int `in:"query=limit;default=100"`
}

type Handle struct {
	userService *iam.UserService
}

func NewHandle(userService *iam.UserService) *Handle {
	return &Handle{userService: userService}
}

// Handler returns the user routes, to be mounted under the users prefix.
func Handler(h *Handle) http.Handler {
	r := chi.NewRouter()
	r.Post("/", h.Post)
	r.With(httpin.NewInput(ListUsersInput{}, httpin.WithErrorHandler(inputErrorHandler))).Get("/", h.Get)
	r.Get("/by-telegram/{telegram_id}", h.GetByTelegramID)
	r.Get("/{user_id}", h.GetID)
	r.Post("/{user_id}/roles", h.PostRoles)
	return r
}

func inputErrorHandler(w http.ResponseWriter, r *http.Request, err error) {
	apperrors.Render(w, r, apperrors.Wrap(err, apperrors.ErrCodeValidationFailed, "invalid query parameters"))
}

// toUserResponse copies a store user into its wire shape. Roles is never null.
func toUserResponse(u store.User) UserResponse {
	var resp UserResponse
	if err := copier.Copy(&resp, &u); err != nil {
		slog.Error("Failed to copy user", "user_id", u.ID, "err", err)
	}
	if resp.Roles == nil {
		resp.Roles = []RoleResponse{}
	}
	return resp
}

func pathID(r *http.Request, name string) (int64, *apperrors.Error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.InvalidInput(name, "must be a positive integer")
	}
	return id, nil
}

// Post creates a user.
// (POST /users)
func (h *Handle) Post(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		apperrors.Render(w, r, apperrors.InvalidInput("body", "malformed JSON"))
		return
	}

	var params iam.CreateUserParams
	if err := copier.Copy(&params, &req); err != nil {
		apperrors.Render(w, r, apperrors.InternalWrap(err, "failed to read request"))
		return
	}

	user, err := h.userService.CreateUser(r.Context(), params)
	if err != nil {
		var fieldErr *iam.FieldError
		var dupErr *iam.DuplicateError
		switch {
		case errors.As(err, &fieldErr):
			apperrors.Render(w, r, apperrors.InvalidInput(fieldErr.Field, fieldErr.Reason))
		case errors.As(err, &dupErr):
			apperrors.Render(w, r, apperrors.Duplicate("user", dupErr.Field, dupErr.Value))
		default:
			apperrors.Render(w, r, apperrors.FromDomain(err, "failed to create user"))
		}
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, toUserResponse(user))
}

// Get lists users ordered by id.
// (GET /users?skip=&limit=)
func (h *Handle) Get(w http.ResponseWriter, r *http.Request) {
	input := r.Context().Value(httpin.Input).(*ListUsersInput)

	users, err := h.userService.ListUsers(r.Context(), input.Skip, input.Limit)
	if err != nil {
		apperrors.Render(w, r, apperrors.FromDomain(err, "failed to list users"))
		return
	}

	resp := make([]UserResponse, 0, len(users))
	for _, u := range users {
		resp = append(resp, toUserResponse(u))
	}
	render.JSON(w, r, resp)
}

// GetID returns one user with roles.
// (GET /users/{user_id})
func (h *Handle) GetID(w http.ResponseWriter, r *http.Request) {
	id, perr := pathID(r, "user_id")
	if perr != nil {
		apperrors.Render(w, r, perr)
		return
	}

	user, err := h.userService.FindUserByID(r.Context(), id)
	if err != nil {
		apperrors.Render(w, r, apperrors.FromDomain(err, "failed to find user"))
		return
	}
	render.JSON(w, r, toUserResponse(user))
}

// GetByTelegramID returns the user registered for a Telegram account.
// (GET /users/by-telegram/{telegram_id})
func (h *Handle) GetByTelegramID(w http.ResponseWriter, r *http.Request) {
	tgID, perr := pathID(r, "telegram_id")
	if perr != nil {
		apperrors.Render(w, r, perr)
		return
	}

	user, found, err := h.userService.FindUserByTelegramID(r.Context(), tgID)
	if err != nil {
		apperrors.Render(w, r, apperrors.FromDomain(err, "failed to find user"))
		return
	}
	if !found {
		apperrors.Render(w, r, apperrors.NotFound(apperrors.ErrCodeUserNotFound, "user", tgID))
		return
	}
	render.JSON(w, r, toUserResponse(user))
}

// PostRoles assigns a role to a user.
// (POST /users/{user_id}/roles)
func (h *Handle) PostRoles(w http.ResponseWriter, r *http.Request) {
	userID, perr := pathID(r, "user_id")
	if perr != nil {
		apperrors.Render(w, r, perr)
		return
	}

	var req AssignRoleRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		apperrors.Render(w, r, apperrors.InvalidInput("body", "malformed JSON"))
		return
	}
	if req.RoleID <= 0 {
		apperrors.Render(w, r, apperrors.InvalidInput("role_id", "must be a positive integer"))
		return
	}

	user, err := h.userService.AssignRole(r.Context(), userID, req.RoleID)
	if err != nil {
		apperrors.Render(w, r, apperrors.FromDomain(err, "failed to assign role"))
		return
	}
	render.JSON(w, r, toUserResponse(user))
}
