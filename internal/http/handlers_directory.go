package httpx

import (
	"net/http"

	"github.com/peoplehub/portal-api/internal/domain/model"
	"github.com/peoplehub/portal-api/internal/service"
)

// DirectoryHandlers provides the admin HTTP handlers for directory users.
type DirectoryHandlers struct {
	Svc *service.DirectoryService
}

// List returns directory users, optionally filtered by status and role.
// GET /api/users?status=<status>&role=<role>&limit=<n>&offset=<n>.
func (h *DirectoryHandlers) List(w http.ResponseWriter, r *http.Request) {
	q := model.ListUsersQuery{
		Status: model.UserStatus(r.URL.Query().Get("status")),
		Role:   model.Role(r.URL.Query().Get("role")),
		Limit:  queryInt(r, "limit", 50),
		Offset: queryInt(r, "offset", 0),
	}

	users, err := h.Svc.List(r.Context(), q)
	if err != nil {
		WriteAppError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"users": users})
}

// Activate transitions a pending user to active.
// POST /api/users/{id}/activate.
func (h *DirectoryHandlers) Activate(w http.ResponseWriter, r *http.Request) {
	session, _ := GetSessionFromContext(r.Context())
	user, err := h.Svc.Activate(r.Context(), r.PathValue("id"), session.Email)
	if err != nil {
		WriteAppError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, user)
}

// Deactivate transitions a user to inactive. Deactivated users are
// refused new sessions at login.
// POST /api/users/{id}/deactivate.
func (h *DirectoryHandlers) Deactivate(w http.ResponseWriter, r *http.Request) {
	session, _ := GetSessionFromContext(r.Context())
	user, err := h.Svc.Deactivate(r.Context(), r.PathValue("id"), session.Email)
	if err != nil {
		WriteAppError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, user)
}
