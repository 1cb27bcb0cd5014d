package httpx

import (
	"net/http"
	"strconv"

	"github.com/peoplehub/portal-api/internal/domain/model"
	"github.com/peoplehub/portal-api/internal/service"
)

// InvitationHandlers provides the admin HTTP handlers for invitations.
type InvitationHandlers struct {
	Svc *service.InvitationService
}

// Create issues a new invitation.
// POST /api/invitations.
func (h *InvitationHandlers) Create(w http.ResponseWriter, r *http.Request) {
	var req model.CreateInvitationRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	session, _ := GetSessionFromContext(r.Context())
	inv, err := h.Svc.Create(r.Context(), req, session.Email)
	if err != nil {
		WriteAppError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, inv)
}

// List returns invitations newest-first.
// GET /api/invitations?limit=<n>&offset=<n>.
func (h *InvitationHandlers) List(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	invs, err := h.Svc.List(r.Context(), limit, offset)
	if err != nil {
		WriteAppError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"invitations": invs})
}

// Revoke withdraws an unused invitation.
// DELETE /api/invitations/{id}.
func (h *InvitationHandlers) Revoke(w http.ResponseWriter, r *http.Request) {
	session, _ := GetSessionFromContext(r.Context())
	if err := h.Svc.Revoke(r.Context(), r.PathValue("id"), session.Email); err != nil {
		WriteAppError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// queryInt reads an integer query parameter, falling back to def when
// absent or malformed.
func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}
