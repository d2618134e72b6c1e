package http

import (
	"net/http"

	"github.com/decorly/decorly/internal/auth/domain"
	"github.com/decorly/decorly/internal/auth/service"
	"github.com/decorly/decorly/pkg/httpx"
)

// UsersHandler serves the admin account-management endpoints.
type UsersHandler struct {
	UserService *service.UserService

	Verbose bool
}

func (h *UsersHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	users, err := h.UserService.ListUsers(r.Context())
	if err != nil {
		writeServiceError(w, r.Context(), h.Verbose, err)
		return
	}

	profiles := make([]domain.Profile, 0, len(users))
	for _, u := range users {
		profiles = append(profiles, u.Profile())
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"users": profiles,
		"count": len(profiles),
	})
}

func (h *UsersHandler) HandleDeactivate(w http.ResponseWriter, r *http.Request) {
	if err := h.UserService.Deactivate(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, r.Context(), h.Verbose, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *UsersHandler) HandleActivate(w http.ResponseWriter, r *http.Request) {
	if err := h.UserService.Activate(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, r.Context(), h.Verbose, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *UsersHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.UserService.SoftDelete(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, r.Context(), h.Verbose, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
