package http

import (
	"net/http"

	"github.com/decorly/decorly/internal/auth/service"
	"github.com/decorly/decorly/pkg/httpx"
	"github.com/decorly/decorly/pkg/slogx"
)

// MeHandler returns the authenticated user's own profile.
type MeHandler struct {
	UserService *service.UserService
}

func (h *MeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID := httpx.UserIDFromCtx(ctx)
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "token_invalid", "")
		return
	}

	user, err := h.UserService.GetUserByID(ctx, userID)
	if err != nil {
		slogx.FromContext(ctx).Warn("loading own profile", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "server_error", "")
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, user.Profile())
}
