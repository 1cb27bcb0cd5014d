package httpx

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/peoplehub/portal-api/internal/adapters/devidentity"
	"github.com/peoplehub/portal-api/internal/core"
	"github.com/peoplehub/portal-api/internal/domain/model"
	"github.com/peoplehub/portal-api/internal/domain/signup"
	apperrors "github.com/peoplehub/portal-api/internal/errors"
	"github.com/peoplehub/portal-api/internal/mocks"
	mockauth "github.com/peoplehub/portal-api/internal/mocks/auth"
	"github.com/peoplehub/portal-api/internal/service"
)

const (
	signupToken    = "tok-abc123"
	signupPassword = "Sup3r-secret!"
	signupCode     = "482913"
)

// memFlowStore is an in-memory FlowStore for handler tests, so a full
// signup can run end to end without Redis.
type memFlowStore struct {
	mu    sync.Mutex
	flows map[string]signup.Flow
}

func newMemFlowStore() *memFlowStore {
	return &memFlowStore{flows: make(map[string]signup.Flow)}
}

func (s *memFlowStore) Save(_ context.Context, f signup.Flow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flows[f.Token] = f
	return nil
}

func (s *memFlowStore) Get(_ context.Context, token string) (signup.Flow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.flows[token]
	if !ok {
		return signup.Flow{}, apperrors.NotFound("signup flow not found")
	}
	return f, nil
}

func (s *memFlowStore) Delete(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.flows, token)
	return nil
}

type signupHarness struct {
	server      *httptest.Server
	invitations *mocks.MockInvitationRepository
	users       *mocks.MockUserRepository
	flows       *memFlowStore
}

func newSignupHarness(t *testing.T) *signupHarness {
	t.Helper()
	ctrl := gomock.NewController(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	h := &signupHarness{
		invitations: mocks.NewMockInvitationRepository(ctrl),
		users:       mocks.NewMockUserRepository(ctrl),
		flows:       newMemFlowStore(),
	}

	auth := service.NewAuthService(service.AuthServiceOptions{
		Sessions: mockauth.NewMemorySessionStore(),
		Logger:   logger,
	})
	signupSvc := service.NewSignupService(service.SignupServiceOptions{
		Invitations: h.invitations,
		Users:       h.users,
		Flows:       h.flows,
		Identity:    devidentity.NewProvider(logger, devidentity.WithFixedCode(signupCode)),
		Auth:        auth,
		Logger:      logger,
	})

	router := NewRouter(RouterServices{
		Signup: signupSvc,
		Auth:   auth,
		Logger: logger,
	})
	h.server = httptest.NewServer(router)
	t.Cleanup(h.server.Close)
	return h
}

func (h *signupHarness) invitation() *model.Invitation {
	return &model.Invitation{
		ID:        "inv-1",
		Token:     signupToken,
		Email:     "jane@co.com",
		FirstName: "Jane",
		LastName:  "Doe",
		Role:      model.RoleIntern,
		ExpiresAt: time.Now().Add(24 * time.Hour),
	}
}

func (h *signupHarness) getSession(t *testing.T, token string) (int, map[string]any) {
	t.Helper()
	url := h.server.URL + "/api/signup/session"
	if token != "" {
		url += "?token=" + token
	}
	resp, err := http.Get(url)
	require.NoError(t, err)
	return readBody(t, resp)
}

func (h *signupHarness) postJSON(t *testing.T, path, body string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Post(h.server.URL+path, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	resp.Body.Close()
	return resp, decoded
}

func readBody(t *testing.T, resp *http.Response) (int, map[string]any) {
	t.Helper()
	defer resp.Body.Close()
	var decoded map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp.StatusCode, decoded
}

func flowOf(t *testing.T, body map[string]any) map[string]any {
	t.Helper()
	flow, ok := body["flow"].(map[string]any)
	require.True(t, ok, "response has no flow: %v", body)
	return flow
}

func TestSignupSession_MissingToken(t *testing.T) {
	h := newSignupHarness(t)
	// No repository expectations: a missing token never hits the store.

	status, body := h.getSession(t, "")
	assert.Equal(t, http.StatusOK, status)

	flow := flowOf(t, body)
	assert.Equal(t, "invitation_check", flow["stage"])
	assert.Equal(t, true, flow["gate_failed"])
	assert.Equal(t, signup.MsgInvitationRequired, flow["gate_reason"])
}

func TestSignupSession_ValidToken(t *testing.T) {
	h := newSignupHarness(t)
	h.invitations.EXPECT().GetByToken(gomock.Any(), signupToken).Return(h.invitation(), nil)

	status, body := h.getSession(t, signupToken)
	assert.Equal(t, http.StatusOK, status)

	flow := flowOf(t, body)
	assert.Equal(t, "signup", flow["stage"])
	profile, ok := flow["profile"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "jane@co.com", profile["email"])
	assert.Equal(t, "intern", profile["role"])
}

func TestSignupSession_ExpiredToken(t *testing.T) {
	h := newSignupHarness(t)
	h.invitations.EXPECT().GetByToken(gomock.Any(), signupToken).
		Return(nil, apperrors.Expired("this invitation has expired"))

	status, body := h.getSession(t, signupToken)
	assert.Equal(t, http.StatusOK, status, "gate outcomes are flow state, not HTTP errors")

	flow := flowOf(t, body)
	assert.Equal(t, true, flow["gate_failed"])
	assert.Equal(t, "this invitation has expired", flow["gate_reason"])
}

func TestSignupRegister_MovesToVerify(t *testing.T) {
	h := newSignupHarness(t)
	inv := h.invitation()
	h.invitations.EXPECT().GetByToken(gomock.Any(), signupToken).Return(inv, nil).Times(2)
	h.users.EXPECT().CreateFromInvitation(gomock.Any(), gomock.Any()).
		Return(&model.User{Status: model.UserStatusPending}, nil)

	status, _ := h.getSession(t, signupToken)
	require.Equal(t, http.StatusOK, status)

	resp, body := h.postJSON(t, "/api/signup/register",
		`{"token":"`+signupToken+`","password":"`+signupPassword+`"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["completed"])

	flow := flowOf(t, body)
	assert.Equal(t, "verify", flow["stage"])
	assert.NotEmpty(t, flow["code_sent_to"])
	// The held credential must never appear on the wire.
	assert.NotContains(t, flow, "credential")
}

func TestSignupRegister_RejectsUnknownFields(t *testing.T) {
	h := newSignupHarness(t)

	// Client-supplied identity fields are not part of the contract.
	resp, body := h.postJSON(t, "/api/signup/register",
		`{"token":"`+signupToken+`","password":"x","role":"admin"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_json", body["error"])
}

func TestSignupConfirm_WrongCode(t *testing.T) {
	h := newSignupHarness(t)
	inv := h.invitation()
	h.invitations.EXPECT().GetByToken(gomock.Any(), signupToken).Return(inv, nil).Times(2)
	h.users.EXPECT().CreateFromInvitation(gomock.Any(), gomock.Any()).
		Return(&model.User{}, nil)

	h.getSession(t, signupToken)
	h.postJSON(t, "/api/signup/register",
		`{"token":"`+signupToken+`","password":"`+signupPassword+`"}`)

	resp, body := h.postJSON(t, "/api/signup/confirm",
		`{"token":"`+signupToken+`","code":"000000"}`)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "unauthorized", body["error"])
}

func TestSignupConfirm_CompletesAndSignsIn(t *testing.T) {
	h := newSignupHarness(t)
	inv := h.invitation()
	h.invitations.EXPECT().GetByToken(gomock.Any(), signupToken).Return(inv, nil).Times(2)
	h.users.EXPECT().CreateFromInvitation(gomock.Any(), gomock.Any()).
		Return(&model.User{}, nil)
	h.invitations.EXPECT().Accept(gomock.Any(), core.AcceptInvitationParams{
		Token: signupToken,
		Email: "jane@co.com",
	}).Return(&core.AcceptResult{Consumed: true, User: &model.User{}}, nil)

	h.getSession(t, signupToken)
	h.postJSON(t, "/api/signup/register",
		`{"token":"`+signupToken+`","password":"`+signupPassword+`"}`)

	resp, body := h.postJSON(t, "/api/signup/confirm",
		`{"token":"`+signupToken+`","code":"`+signupCode+`"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["completed"])
	assert.Equal(t, "/", body["redirect_to"])

	var sessionCookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == "session_id" {
			sessionCookie = c
		}
	}
	require.NotNil(t, sessionCookie, "auto sign-in sets the session cookie")
	assert.NotEmpty(t, sessionCookie.Value)
	assert.True(t, sessionCookie.HttpOnly)

	// Repeating the accept for the same token is not possible anymore:
	// the flow record is gone.
	resp, _ = h.postJSON(t, "/api/signup/confirm",
		`{"token":"`+signupToken+`","code":"`+signupCode+`"}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSignupConfirm_AcceptFailureStillRedirects(t *testing.T) {
	h := newSignupHarness(t)
	inv := h.invitation()
	h.invitations.EXPECT().GetByToken(gomock.Any(), signupToken).Return(inv, nil).Times(2)
	h.users.EXPECT().CreateFromInvitation(gomock.Any(), gomock.Any()).
		Return(&model.User{}, nil)
	h.invitations.EXPECT().Accept(gomock.Any(), gomock.Any()).
		Return(nil, apperrors.Internalf("accept failed"))

	h.getSession(t, signupToken)
	h.postJSON(t, "/api/signup/register",
		`{"token":"`+signupToken+`","password":"`+signupPassword+`"}`)

	resp, body := h.postJSON(t, "/api/signup/confirm",
		`{"token":"`+signupToken+`","code":"`+signupCode+`"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "/", body["redirect_to"])
}
