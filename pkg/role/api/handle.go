package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/ggicci/httpin"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	apperrors "github.com/tendant/tg-identity/pkg/errors"
	rolepkg "github.com/tendant/tg-identity/pkg/role"
	"github.com/tendant/tg-identity/pkg/store"
)

type RoleResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type CreateRoleRequest struct {
	Name string `json:"name"`
}

// ListRolesInput binds the pagination query of GET /roles.
type ListRolesInput struct {
	Skip  int `in:"query=skip;default=0"`
	Limit int `in:"query=limit;default=100"`
}

type Handle struct {
	roleService *rolepkg.RoleService
}

func NewHandle(roleService *rolepkg.RoleService) *Handle {
	return &Handle{roleService: roleService}
}

// Handler returns the role routes, to be mounted under the roles prefix.
func Handler(h *Handle) http.Handler {
	r := chi.NewRouter()
	r.With(httpin.NewInput(ListRolesInput{}, httpin.WithErrorHandler(inputErrorHandler))).Get("/", h.Get)
	r.Post("/", h.Post)
	r.Get("/{role_id}", h.GetID)
	return r
}

func inputErrorHandler(w http.ResponseWriter, r *http.Request, err error) {
	apperrors.Render(w, r, apperrors.Wrap(err, apperrors.ErrCodeValidationFailed, "invalid query parameters"))
}

func toResponse(r store.Role) RoleResponse {
	return RoleResponse{ID: r.ID, Name: r.Name}
}

// Post creates a role.
// (POST /roles)
func (h *Handle) Post(w http.ResponseWriter, r *http.Request) {
	var req CreateRoleRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		apperrors.Render(w, r, apperrors.InvalidInput("body", "malformed JSON"))
		return
	}

	role, err := h.roleService.CreateRole(r.Context(), req.Name)
	if err != nil {
		switch {
		case errors.Is(err, rolepkg.ErrEmptyRoleName), errors.Is(err, rolepkg.ErrRoleNameTooLong):
			apperrors.Render(w, r, apperrors.InvalidInput("name", err.Error()))
		case errors.Is(err, rolepkg.ErrRoleExists):
			apperrors.Render(w, r, apperrors.Duplicate("role", "name", req.Name))
		default:
			apperrors.Render(w, r, apperrors.FromDomain(err, "failed to create role"))
		}
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, toResponse(role))
}

// Get lists roles ordered by id.
// (GET /roles?skip=&limit=)
func (h *Handle) Get(w http.ResponseWriter, r *http.Request) {
	input := r.Context().Value(httpin.Input).(*ListRolesInput)

	roles, err := h.roleService.FindRoles(r.Context(), input.Skip, input.Limit)
	if err != nil {
		apperrors.Render(w, r, apperrors.FromDomain(err, "failed to find roles"))
		return
	}

	resp := make([]RoleResponse, 0, len(roles))
	for _, role := range roles {
		resp = append(resp, toResponse(role))
	}
	render.JSON(w, r, resp)
}

// GetID returns one role.
// (GET /roles/{role_id})
func (h *Handle) GetID(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "role_id"), 10, 64)
	if err != nil || id <= 0 {
		apperrors.Render(w, r, apperrors.InvalidInput("role_id", "must be a positive integer"))
		return
	}

	role, err := h.roleService.GetRole(r.Context(), id)
	if err != nil {
		apperrors.Render(w, r, apperrors.FromDomain(err, "failed to find role"))
		return
	}
	render.JSON(w, r, toResponse(role))
}
