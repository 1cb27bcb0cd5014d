package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"golang.org/x/time/rate"

	"github.com/peoplehub/portal-api/internal/core"
	"github.com/peoplehub/portal-api/internal/data/cryptoutil"
	domainauth "github.com/peoplehub/portal-api/internal/domain/auth"
	"github.com/peoplehub/portal-api/internal/domain/model"
	"github.com/peoplehub/portal-api/internal/domain/signup"
	apperrors "github.com/peoplehub/portal-api/internal/errors"
	"github.com/peoplehub/portal-api/internal/mocks"
	mockauth "github.com/peoplehub/portal-api/internal/mocks/auth"
	"github.com/peoplehub/portal-api/internal/ports"
)

const (
	testToken    = "abc123"
	testPassword = "Passw0rd!"
)

var signupTestNow = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

type signupFixture struct {
	svc         *SignupService
	invitations *mocks.MockInvitationRepository
	users       *mocks.MockUserRepository
	flows       *mocks.MockFlowStore
	identity    *mocks.MockIdentityProvider
	sessions    *mockauth.MemorySessionStore
}

func newSignupFixture(t *testing.T, opts ...func(*SignupServiceOptions)) *signupFixture {
	t.Helper()
	ctrl := gomock.NewController(t)

	f := &signupFixture{
		invitations: mocks.NewMockInvitationRepository(ctrl),
		users:       mocks.NewMockUserRepository(ctrl),
		flows:       mocks.NewMockFlowStore(ctrl),
		identity:    mocks.NewMockIdentityProvider(ctrl),
		sessions:    mockauth.NewMemorySessionStore(),
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	auth := NewAuthService(AuthServiceOptions{
		Sessions: f.sessions,
		Logger:   logger,
	})

	serviceOpts := SignupServiceOptions{
		Invitations: f.invitations,
		Users:       f.users,
		Flows:       f.flows,
		Identity:    f.identity,
		Auth:        auth,
		Encryptor:   cryptoutil.NoopEncryptor{},
		Logger:      logger,
		Now:         func() time.Time { return signupTestNow },
	}
	for _, opt := range opts {
		opt(&serviceOpts)
	}
	f.svc = NewSignupService(serviceOpts)
	return f
}

func testInvitation() *model.Invitation {
	return &model.Invitation{
		ID:        "inv-1",
		Token:     testToken,
		Email:     "jane@co.com",
		FirstName: "Jane",
		LastName:  "Doe",
		Role:      model.RoleIntern,
		CreatedBy: "admin@co.com",
		ExpiresAt: signupTestNow.Add(24 * time.Hour),
	}
}

func signupStageFlow() signup.Flow {
	f := signup.New(testToken, signupTestNow)
	f, _ = signup.Validated(f, testInvitation().Profile(), signupTestNow)
	return f
}

func verifyStageFlow(t *testing.T) signup.Flow {
	t.Helper()
	credential, err := cryptoutil.NoopEncryptor{}.Encrypt([]byte(testPassword))
	require.NoError(t, err)
	f, err := signup.AwaitConfirmation(signupStageFlow(), credential, "j***@co.com", signupTestNow)
	require.NoError(t, err)
	return f
}

func notFoundFlow() (signup.Flow, error) {
	return signup.Flow{}, apperrors.NotFound("signup flow not found")
}

func TestSignupService_StartOrResume_MissingToken(t *testing.T) {
	f := newSignupFixture(t)
	// No expectations on flows or invitations: a missing token must not
	// touch either store.

	flow, err := f.svc.StartOrResume(context.Background(), "")
	require.NoError(t, err)
	assert.True(t, flow.Terminal())
	assert.Equal(t, signup.StageInvitationCheck, flow.Stage)
	assert.Equal(t, signup.MsgInvitationRequired, flow.GateReason)
}

func TestSignupService_StartOrResume_ValidToken(t *testing.T) {
	f := newSignupFixture(t)
	ctx := context.Background()

	f.flows.EXPECT().Get(ctx, testToken).Return(notFoundFlow())
	f.invitations.EXPECT().GetByToken(ctx, testToken).Return(testInvitation(), nil)
	f.flows.EXPECT().Save(ctx, gomock.Any()).Return(nil)

	flow, err := f.svc.StartOrResume(ctx, testToken)
	require.NoError(t, err)
	assert.Equal(t, signup.StageSignup, flow.Stage)
	assert.Equal(t, "jane@co.com", flow.Profile.Email)
	assert.Equal(t, "Jane", flow.Profile.FirstName)
	assert.Equal(t, model.RoleIntern, flow.Profile.Role)
}

func TestSignupService_StartOrResume_ResumesStoredFlow(t *testing.T) {
	f := newSignupFixture(t)
	ctx := context.Background()

	stored := signupStageFlow()
	// A stored flow means the token was already validated once; the
	// invitation store must not be consulted again.
	f.flows.EXPECT().Get(ctx, testToken).Return(stored, nil)

	flow, err := f.svc.StartOrResume(ctx, testToken)
	require.NoError(t, err)
	assert.Equal(t, stored, flow)
}

func TestSignupService_StartOrResume_UnusableToken(t *testing.T) {
	tests := []struct {
		name      string
		lookupErr error
	}{
		{"unknown", apperrors.NotFound("this invitation could not be found")},
		{"expired", apperrors.Expired("this invitation has expired")},
		{"consumed", apperrors.Consumed("this invitation has already been used")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newSignupFixture(t)
			ctx := context.Background()

			f.flows.EXPECT().Get(ctx, testToken).Return(notFoundFlow())
			f.invitations.EXPECT().GetByToken(ctx, testToken).Return(nil, tt.lookupErr)
			// No Save expectation: gate failures are never stored.

			flow, err := f.svc.StartOrResume(ctx, testToken)
			require.NoError(t, err)
			// Never proceeds to signup; the reason surfaces as-is.
			assert.True(t, flow.Terminal())
			assert.Equal(t, apperrors.UserMessage(tt.lookupErr), flow.GateReason)
		})
	}
}

func TestSignupService_StartOrResume_TransportErrorCollapsesToInvalid(t *testing.T) {
	f := newSignupFixture(t)
	ctx := context.Background()

	f.flows.EXPECT().Get(ctx, testToken).Return(notFoundFlow())
	f.invitations.EXPECT().GetByToken(ctx, testToken).Return(nil, errors.New("connection refused"))

	flow, err := f.svc.StartOrResume(ctx, testToken)
	require.NoError(t, err)
	assert.True(t, flow.Terminal())
	assert.Equal(t, msgValidationUnavailable, flow.GateReason)
	assert.NotContains(t, flow.GateReason, "connection refused")
}

func TestSignupService_StartOrResume_OutageDoesNotStickToToken(t *testing.T) {
	f := newSignupFixture(t)
	ctx := context.Background()

	// First load hits an invitation-store outage and gates the flow.
	f.flows.EXPECT().Get(ctx, testToken).Return(notFoundFlow())
	f.invitations.EXPECT().GetByToken(ctx, testToken).Return(nil, errors.New("connection refused"))

	flow, err := f.svc.StartOrResume(ctx, testToken)
	require.NoError(t, err)
	require.True(t, flow.Terminal())

	// The failure was not cached: the retry re-validates and a healthy
	// store lets the same token through.
	f.flows.EXPECT().Get(ctx, testToken).Return(notFoundFlow())
	f.invitations.EXPECT().GetByToken(ctx, testToken).Return(testInvitation(), nil)
	f.flows.EXPECT().Save(ctx, gomock.Any()).Return(nil)

	flow, err = f.svc.StartOrResume(ctx, testToken)
	require.NoError(t, err)
	assert.Equal(t, signup.StageSignup, flow.Stage)
	assert.Equal(t, "jane@co.com", flow.Profile.Email)
}

func TestSignupService_Register_ConfirmationRequired(t *testing.T) {
	f := newSignupFixture(t)
	ctx := context.Background()
	inv := testInvitation()

	f.flows.EXPECT().Get(ctx, testToken).Return(signupStageFlow(), nil)
	f.invitations.EXPECT().GetByToken(ctx, testToken).Return(inv, nil)
	f.identity.EXPECT().Register(ctx, ports.RegisterInput{
		Username:   "jane@co.com",
		Password:   testPassword,
		Email:      "jane@co.com",
		GivenName:  "Jane",
		FamilyName: "Doe",
	}).Return(ports.RegisterResult{
		ConfirmationRequired: true,
		Destination:          "j***@co.com",
	}, nil)
	f.users.EXPECT().CreateFromInvitation(ctx, inv).Return(&model.User{
		ID:     "user-1",
		Email:  "jane@co.com",
		Role:   model.RoleIntern,
		Status: model.UserStatusPending,
	}, nil)
	f.flows.EXPECT().Save(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, saved signup.Flow) error {
			assert.Equal(t, signup.StageVerify, saved.Stage)
			assert.NotEmpty(t, saved.Credential)
			assert.Equal(t, "j***@co.com", saved.Destination)
			return nil
		})

	result, err := f.svc.Register(ctx, RegisterInput{Token: testToken, Password: testPassword})
	require.NoError(t, err)
	assert.False(t, result.Completed)
	assert.Equal(t, signup.StageVerify, result.Flow.Stage)
}

func TestSignupService_Register_LockedFieldsComeFromInvitation(t *testing.T) {
	// The register input carries only token and password. Whatever the
	// client claims about identity or role can never reach the provider
	// or the directory: both are fed from the invitation row.
	f := newSignupFixture(t)
	ctx := context.Background()
	inv := testInvitation()

	f.flows.EXPECT().Get(ctx, testToken).Return(signupStageFlow(), nil)
	f.invitations.EXPECT().GetByToken(ctx, testToken).Return(inv, nil)
	f.identity.EXPECT().Register(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, in ports.RegisterInput) (ports.RegisterResult, error) {
			assert.Equal(t, inv.Email, in.Username)
			assert.Equal(t, inv.FirstName, in.GivenName)
			assert.Equal(t, inv.LastName, in.FamilyName)
			return ports.RegisterResult{ConfirmationRequired: true}, nil
		})
	f.users.EXPECT().CreateFromInvitation(ctx, inv).Return(&model.User{Role: inv.Role}, nil)
	f.flows.EXPECT().Save(ctx, gomock.Any()).Return(nil)

	_, err := f.svc.Register(ctx, RegisterInput{Token: testToken, Password: testPassword})
	require.NoError(t, err)
}

func TestSignupService_Register_ProviderConflict(t *testing.T) {
	f := newSignupFixture(t)
	ctx := context.Background()

	conflict := apperrors.Conflict("an account with this email already exists")

	f.flows.EXPECT().Get(ctx, testToken).Return(signupStageFlow(), nil)
	f.invitations.EXPECT().GetByToken(ctx, testToken).Return(testInvitation(), nil)
	f.identity.EXPECT().Register(ctx, gomock.Any()).Return(ports.RegisterResult{}, conflict)
	f.flows.EXPECT().Save(ctx, gomock.Any()).Return(nil)

	result, err := f.svc.Register(ctx, RegisterInput{Token: testToken, Password: testPassword})
	require.Error(t, err)
	assert.True(t, apperrors.IsConflict(err))
	// The flow stays on the signup stage for a corrected resubmission.
	assert.Equal(t, signup.StageSignup, result.Flow.Stage)
	assert.Equal(t, "an account with this email already exists", result.Flow.LastError)
}

func TestSignupService_Register_WeakPassword(t *testing.T) {
	f := newSignupFixture(t)
	ctx := context.Background()

	weak := apperrors.Validation("the password does not meet the security requirements")

	f.flows.EXPECT().Get(ctx, testToken).Return(signupStageFlow(), nil)
	f.invitations.EXPECT().GetByToken(ctx, testToken).Return(testInvitation(), nil)
	f.identity.EXPECT().Register(ctx, gomock.Any()).Return(ports.RegisterResult{}, weak)
	f.flows.EXPECT().Save(ctx, gomock.Any()).Return(nil)

	result, err := f.svc.Register(ctx, RegisterInput{Token: testToken, Password: "weak"})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
	assert.Equal(t, signup.StageSignup, result.Flow.Stage)
}

func TestSignupService_Register_SessionGone(t *testing.T) {
	f := newSignupFixture(t)
	ctx := context.Background()

	f.flows.EXPECT().Get(ctx, testToken).Return(notFoundFlow())

	_, err := f.svc.Register(ctx, RegisterInput{Token: testToken, Password: testPassword})
	assert.True(t, apperrors.IsNotFound(err))
}

func TestSignupService_Register_PendingUserFailureDoesNotBlock(t *testing.T) {
	f := newSignupFixture(t)
	ctx := context.Background()
	inv := testInvitation()

	f.flows.EXPECT().Get(ctx, testToken).Return(signupStageFlow(), nil)
	f.invitations.EXPECT().GetByToken(ctx, testToken).Return(inv, nil)
	f.identity.EXPECT().Register(ctx, gomock.Any()).
		Return(ports.RegisterResult{ConfirmationRequired: true}, nil)
	f.users.EXPECT().CreateFromInvitation(ctx, inv).Return(nil, errors.New("db down"))
	f.flows.EXPECT().Save(ctx, gomock.Any()).Return(nil)

	result, err := f.svc.Register(ctx, RegisterInput{Token: testToken, Password: testPassword})
	require.NoError(t, err)
	assert.Equal(t, signup.StageVerify, result.Flow.Stage)
}

func TestSignupService_Register_ProviderSkipsConfirmation(t *testing.T) {
	f := newSignupFixture(t)
	ctx := context.Background()
	inv := testInvitation()

	f.flows.EXPECT().Get(ctx, testToken).Return(signupStageFlow(), nil)
	f.invitations.EXPECT().GetByToken(ctx, testToken).Return(inv, nil)
	f.identity.EXPECT().Register(ctx, gomock.Any()).Return(ports.RegisterResult{}, nil)
	f.users.EXPECT().CreateFromInvitation(ctx, inv).Return(&model.User{Role: inv.Role}, nil)
	f.invitations.EXPECT().Accept(ctx, core.AcceptInvitationParams{
		Token: testToken,
		Email: "jane@co.com",
	}).Return(&core.AcceptResult{Consumed: true, User: &model.User{Role: model.RoleIntern}}, nil)
	f.flows.EXPECT().Delete(ctx, testToken).Return(nil)
	f.identity.EXPECT().SignIn(ctx, ports.SignInInput{
		Username: "jane@co.com",
		Password: testPassword,
	}).Return(domainauth.Identity{
		UserID:    "pool-1",
		Email:     "jane@co.com",
		ExpiresAt: signupTestNow.Add(time.Hour),
	}, nil)

	result, err := f.svc.Register(ctx, RegisterInput{Token: testToken, Password: testPassword})
	require.NoError(t, err)
	assert.True(t, result.Completed)
	assert.Equal(t, RedirectHome, result.RedirectTo)
	require.NotNil(t, result.Session)
	assert.Equal(t, model.RoleIntern, result.Session.Role)
}

func TestSignupService_Confirm_Success(t *testing.T) {
	f := newSignupFixture(t)
	ctx := context.Background()

	f.flows.EXPECT().Get(ctx, testToken).Return(verifyStageFlow(t), nil)
	f.identity.EXPECT().Confirm(ctx, ports.ConfirmInput{
		Username: "jane@co.com",
		Code:     "482913",
	}).Return(nil)
	f.invitations.EXPECT().Accept(ctx, core.AcceptInvitationParams{
		Token: testToken,
		Email: "jane@co.com",
	}).Return(&core.AcceptResult{Consumed: true, User: &model.User{Role: model.RoleIntern}}, nil)
	f.flows.EXPECT().Delete(ctx, testToken).Return(nil)
	f.identity.EXPECT().SignIn(ctx, ports.SignInInput{
		Username: "jane@co.com",
		Password: testPassword,
	}).Return(domainauth.Identity{
		UserID:    "pool-1",
		Email:     "jane@co.com",
		ExpiresAt: signupTestNow.Add(time.Hour),
	}, nil)

	result, err := f.svc.Confirm(ctx, ConfirmInput{Token: testToken, Code: "482913"})
	require.NoError(t, err)
	assert.Equal(t, RedirectHome, result.RedirectTo)
	require.NotNil(t, result.Session)
	// Role comes from the invitation profile, not the identity provider.
	assert.Equal(t, model.RoleIntern, result.Session.Role)

	// The session was actually persisted.
	stored, err := f.sessions.Get(ctx, result.Session.ID)
	require.NoError(t, err)
	assert.Equal(t, "jane@co.com", stored.Email)
}

func TestSignupService_Confirm_WrongCodeStaysOnVerify(t *testing.T) {
	f := newSignupFixture(t)
	ctx := context.Background()

	wrong := apperrors.Unauthorized("the confirmation code is incorrect")

	f.flows.EXPECT().Get(ctx, testToken).Return(verifyStageFlow(t), nil)
	f.identity.EXPECT().Confirm(ctx, gomock.Any()).Return(wrong)
	f.flows.EXPECT().Save(ctx, gomock.Any()).Return(nil)

	result, err := f.svc.Confirm(ctx, ConfirmInput{Token: testToken, Code: "000000"})
	require.Error(t, err)
	assert.True(t, apperrors.IsUnauthorized(err))
	assert.Equal(t, signup.StageVerify, result.Flow.Stage)
	assert.Equal(t, "the confirmation code is incorrect", result.Flow.LastError)
	assert.True(t, result.Flow.CanConfirm(), "resubmission stays possible")
}

func TestSignupService_Confirm_AcceptFailureNeverSurfaces(t *testing.T) {
	f := newSignupFixture(t)
	ctx := context.Background()

	f.flows.EXPECT().Get(ctx, testToken).Return(verifyStageFlow(t), nil)
	f.identity.EXPECT().Confirm(ctx, gomock.Any()).Return(nil)
	f.invitations.EXPECT().Accept(ctx, gomock.Any()).Return(nil, errors.New("db down"))
	f.flows.EXPECT().Delete(ctx, testToken).Return(nil)
	f.identity.EXPECT().SignIn(ctx, gomock.Any()).Return(domainauth.Identity{
		UserID:    "pool-1",
		Email:     "jane@co.com",
		ExpiresAt: signupTestNow.Add(time.Hour),
	}, nil)

	result, err := f.svc.Confirm(ctx, ConfirmInput{Token: testToken, Code: "482913"})
	require.NoError(t, err)
	assert.Equal(t, RedirectHome, result.RedirectTo)
}

func TestSignupService_Confirm_AutoSignInFailureRedirectsToLogin(t *testing.T) {
	f := newSignupFixture(t)
	ctx := context.Background()

	f.flows.EXPECT().Get(ctx, testToken).Return(verifyStageFlow(t), nil)
	f.identity.EXPECT().Confirm(ctx, gomock.Any()).Return(nil)
	f.invitations.EXPECT().Accept(ctx, gomock.Any()).
		Return(&core.AcceptResult{Consumed: true}, nil)
	f.flows.EXPECT().Delete(ctx, testToken).Return(nil)
	f.identity.EXPECT().SignIn(ctx, gomock.Any()).
		Return(domainauth.Identity{}, apperrors.Unauthorized("invalid email or password"))

	result, err := f.svc.Confirm(ctx, ConfirmInput{Token: testToken, Code: "482913"})
	require.NoError(t, err, "sign-in failure is not an error outcome")
	assert.Equal(t, RedirectLogin, result.RedirectTo)
	assert.Nil(t, result.Session)
}

func TestSignupService_Confirm_NoAuthServiceRedirectsToLogin(t *testing.T) {
	// Auth is nil when sessions are unavailable (no redis, or an
	// incomplete SSO config); confirmation must still complete and fall
	// back to manual login instead of panicking.
	f := newSignupFixture(t, func(opts *SignupServiceOptions) {
		opts.Auth = nil
	})
	ctx := context.Background()

	f.flows.EXPECT().Get(ctx, testToken).Return(verifyStageFlow(t), nil)
	f.identity.EXPECT().Confirm(ctx, gomock.Any()).Return(nil)
	f.invitations.EXPECT().Accept(ctx, gomock.Any()).
		Return(&core.AcceptResult{Consumed: true}, nil)
	f.flows.EXPECT().Delete(ctx, testToken).Return(nil)
	// No SignIn expectation: with no session backend there is nothing to
	// establish.

	result, err := f.svc.Confirm(ctx, ConfirmInput{Token: testToken, Code: "482913"})
	require.NoError(t, err)
	assert.Equal(t, RedirectLogin, result.RedirectTo)
	assert.Nil(t, result.Session)
}

func TestSignupService_Confirm_MissingCredentialRedirectsToLogin(t *testing.T) {
	f := newSignupFixture(t)
	ctx := context.Background()

	flow, err := signup.AwaitConfirmation(signupStageFlow(), "", "", signupTestNow)
	require.NoError(t, err)

	f.flows.EXPECT().Get(ctx, testToken).Return(flow, nil)
	f.identity.EXPECT().Confirm(ctx, gomock.Any()).Return(nil)
	f.invitations.EXPECT().Accept(ctx, gomock.Any()).
		Return(&core.AcceptResult{Consumed: true}, nil)
	f.flows.EXPECT().Delete(ctx, testToken).Return(nil)
	// No SignIn expectation: without a credential there is nothing to
	// sign in with.

	result, err := f.svc.Confirm(ctx, ConfirmInput{Token: testToken, Code: "482913"})
	require.NoError(t, err)
	assert.Equal(t, RedirectLogin, result.RedirectTo)
}

func TestSignupService_Confirm_NotOnVerifyStage(t *testing.T) {
	f := newSignupFixture(t)
	ctx := context.Background()

	f.flows.EXPECT().Get(ctx, testToken).Return(signupStageFlow(), nil)

	_, err := f.svc.Confirm(ctx, ConfirmInput{Token: testToken, Code: "482913"})
	assert.True(t, apperrors.IsValidation(err))
}

func TestSignupService_Confirm_RateLimited(t *testing.T) {
	f := newSignupFixture(t, func(opts *SignupServiceOptions) {
		opts.ConfirmRate = rate.Limit(1.0 / 3600.0)
		opts.ConfirmBurst = 1
	})
	ctx := context.Background()

	wrong := apperrors.Unauthorized("the confirmation code is incorrect")

	f.flows.EXPECT().Get(ctx, testToken).Return(verifyStageFlow(t), nil).Times(2)
	// Only the first submission reaches the provider.
	f.identity.EXPECT().Confirm(ctx, gomock.Any()).Return(wrong).Times(1)
	f.flows.EXPECT().Save(ctx, gomock.Any()).Return(nil).Times(1)

	_, err := f.svc.Confirm(ctx, ConfirmInput{Token: testToken, Code: "000000"})
	require.Error(t, err)
	assert.True(t, apperrors.IsUnauthorized(err))

	_, err = f.svc.Confirm(ctx, ConfirmInput{Token: testToken, Code: "000001"})
	require.Error(t, err)
	assert.True(t, apperrors.IsRateLimited(err))
}
