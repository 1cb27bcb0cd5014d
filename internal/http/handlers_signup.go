package httpx

import (
	"net/http"

	"github.com/peoplehub/portal-api/internal/domain/model"
	"github.com/peoplehub/portal-api/internal/domain/signup"
	"github.com/peoplehub/portal-api/internal/service"
)

// SignupHandlers provides HTTP handlers for the invitation-gated signup
// flow. All three endpoints are unauthenticated: the invitation token is
// the only credential a prospective user has.
type SignupHandlers struct {
	Svc          *service.SignupService
	CookieDomain string
}

// flowView is the wire shape of a signup flow. The stored credential
// never leaves the server.
type flowView struct {
	Stage      signup.Stage `json:"stage"`
	GateFailed bool         `json:"gate_failed"`
	GateReason string       `json:"gate_reason,omitempty"`
	LastError  string       `json:"last_error,omitempty"`

	// Profile holds the locked form fields once the invitation has
	// validated.
	Profile *model.Profile `json:"profile,omitempty"`

	// CodeSentTo is the masked destination of the confirmation code.
	CodeSentTo string `json:"code_sent_to,omitempty"`
}

func viewOf(f signup.Flow) flowView {
	v := flowView{
		Stage:      f.Stage,
		GateFailed: f.GateFailed,
		GateReason: f.GateReason,
		LastError:  f.LastError,
		CodeSentTo: f.Destination,
	}
	if f.Stage == signup.StageSignup || f.Stage == signup.StageVerify {
		profile := f.Profile
		v.Profile = &profile
	}
	return v
}

// Session resolves the signup flow for an invitation token.
// GET /api/signup/session?token=<token>.
//
// Gate failures are part of the flow state, not HTTP errors: a missing
// or unusable token still answers 200 with the terminal flow.
func (h *SignupHandlers) Session(w http.ResponseWriter, r *http.Request) {
	flow, err := h.Svc.StartOrResume(r.Context(), r.URL.Query().Get("token"))
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"flow": viewOf(flow)})
}

type registerRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// Register submits the signup form.
// POST /api/signup/register.
//
// The body carries only the token and the chosen password; identity
// fields and the role come from the invitation on the server.
func (h *SignupHandlers) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	result, err := h.Svc.Register(r.Context(), service.RegisterInput{
		Token:    req.Token,
		Password: req.Password,
	})
	if err != nil {
		WriteAppError(w, err)
		return
	}

	if result.Completed {
		if result.Session != nil {
			SetSessionCookie(w, r, h.CookieDomain, *result.Session)
		}
		WriteJSON(w, http.StatusOK, map[string]any{
			"flow":        viewOf(result.Flow),
			"completed":   true,
			"redirect_to": result.RedirectTo,
		})
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"flow":      viewOf(result.Flow),
		"completed": false,
	})
}

type confirmRequest struct {
	Token string `json:"token"`
	Code  string `json:"code"`
}

// Confirm submits the emailed confirmation code.
// POST /api/signup/confirm.
//
// On success the session cookie is set when the auto-sign-in worked,
// and redirect_to tells the client where to land ("/" with a session,
// "/login" without one).
func (h *SignupHandlers) Confirm(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	result, err := h.Svc.Confirm(r.Context(), service.ConfirmInput{
		Token: req.Token,
		Code:  req.Code,
	})
	if err != nil {
		WriteAppError(w, err)
		return
	}

	if result.Session != nil {
		SetSessionCookie(w, r, h.CookieDomain, *result.Session)
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"flow":        viewOf(result.Flow),
		"completed":   true,
		"redirect_to": result.RedirectTo,
	})
}
