package service

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/peoplehub/portal-api/internal/core"
	"github.com/peoplehub/portal-api/internal/data/cryptoutil"
	domainauth "github.com/peoplehub/portal-api/internal/domain/auth"
	"github.com/peoplehub/portal-api/internal/domain/signup"
	apperrors "github.com/peoplehub/portal-api/internal/errors"
	"github.com/peoplehub/portal-api/internal/observability/metrics"
	"github.com/peoplehub/portal-api/internal/ports"
)

// Messages surfaced verbatim on the signup form.
const (
	// msgValidationUnavailable collapses transport failures during the
	// gate check into an invalid-with-retry-suggestion outcome.
	msgValidationUnavailable = "we could not verify this invitation right now, please try again"

	msgTooManyAttempts = "too many attempts, please wait a moment and try again"

	msgNotReadyToRegister = "this signup is not ready for registration"
	msgNotReadyToConfirm  = "there is no confirmation pending for this signup"
	msgSessionGone        = "this signup session has expired, please reopen your invitation link"
)

// Redirect targets handed back after confirmation. Auto-sign-in failure
// lands on the login route, never an error screen.
const (
	RedirectHome  = "/"
	RedirectLogin = "/login"
)

// SignupServiceOptions groups dependencies for SignupService.
type SignupServiceOptions struct {
	Invitations core.InvitationRepository
	Users       core.UserRepository
	Flows       core.FlowStore
	Identity    ports.IdentityProvider
	Auth        *AuthService
	// Encryptor protects the registration credential held in the flow
	// store between the register and confirm steps.
	Encryptor cryptoutil.Encryptor
	Metrics   *metrics.Collector
	Logger    *slog.Logger

	// ConfirmRate / ConfirmBurst bound confirmation-code submissions per
	// email. Defaults: 5 attempts burst, refilling one every 12 seconds.
	ConfirmRate  rate.Limit
	ConfirmBurst int

	// Now overrides the clock in tests.
	Now func() time.Time
}

// SignupService drives the invitation-gated signup flow: gate check,
// registration against the identity provider, confirmation, invitation
// acceptance, and the final auto-sign-in.
type SignupService struct {
	invitations core.InvitationRepository
	users       core.UserRepository
	flows       core.FlowStore
	identity    ports.IdentityProvider
	auth        *AuthService
	encryptor   cryptoutil.Encryptor
	metrics     *metrics.Collector
	logger      *slog.Logger
	limiter     *keyedLimiter
	now         func() time.Time
}

// NewSignupService constructs a SignupService.
func NewSignupService(opts SignupServiceOptions) *SignupService {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	encryptor := opts.Encryptor
	if encryptor == nil {
		encryptor = cryptoutil.NoopEncryptor{}
	}
	confirmRate := opts.ConfirmRate
	if confirmRate == 0 {
		confirmRate = rate.Limit(5.0 / 60.0)
	}
	confirmBurst := opts.ConfirmBurst
	if confirmBurst == 0 {
		confirmBurst = 5
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &SignupService{
		invitations: opts.Invitations,
		users:       opts.Users,
		flows:       opts.Flows,
		identity:    opts.Identity,
		auth:        opts.Auth,
		encryptor:   encryptor,
		metrics:     opts.Metrics,
		logger:      logger,
		limiter:     newKeyedLimiter(confirmRate, confirmBurst),
		now:         now,
	}
}

// StartOrResume resolves the flow for a token. A missing token is the
// terminal gate failure with the fixed invitation-required message and
// performs no store lookup at all. A token seen before resumes its
// stored flow; a new token is validated and, when usable, the flow is
// recorded so later steps resume it without a second validation. Gate
// failures are never stored.
func (s *SignupService) StartOrResume(ctx context.Context, token string) (signup.Flow, error) {
	nowT := s.now()

	if token == "" {
		s.metrics.RecordGateCheck(metrics.OutcomeMissing)
		return signup.New("", nowT), nil
	}

	existing, err := s.flows.Get(ctx, token)
	if err == nil {
		return existing, nil
	}
	if !apperrors.IsNotFound(err) {
		return signup.Flow{}, err
	}

	flow := signup.New(token, nowT)
	inv, lookupErr := s.invitations.GetByToken(ctx, token)
	switch {
	case lookupErr == nil:
		s.metrics.RecordGateCheck(metrics.OutcomeValid)
		flow, err = signup.Validated(flow, inv.Profile(), nowT)
	case apperrors.IsNotFound(lookupErr),
		apperrors.IsExpired(lookupErr),
		apperrors.IsConsumed(lookupErr):
		s.metrics.RecordGateCheck(gateOutcome(lookupErr))
		flow, err = signup.GateFail(flow, apperrors.UserMessage(lookupErr), nowT)
	default:
		s.metrics.RecordGateCheck(metrics.OutcomeError)
		s.logger.Error("invitation gate check failed",
			"error", lookupErr)
		flow, err = signup.GateFail(flow, msgValidationUnavailable, nowT)
	}
	if err != nil {
		return signup.Flow{}, err
	}

	if flow.GateFailed {
		// Terminal gate outcomes are recomputed on every load. Caching
		// one would pin a transient store outage onto a valid
		// invitation for the whole flow TTL.
		return flow, nil
	}

	if saveErr := s.flows.Save(ctx, flow); saveErr != nil {
		// The flow is recomputed on the next request; losing it costs a
		// second validation, not correctness.
		s.logger.Warn("could not persist signup flow",
			"stage", flow.Stage,
			"error", saveErr)
	}
	return flow, nil
}

// RegisterInput carries a registration submission. Identity fields and
// the role come from the invitation, never from the client.
type RegisterInput struct {
	Token    string
	Password string
}

// RegisterResult reports where the flow stands after a registration
// submission.
type RegisterResult struct {
	Flow signup.Flow

	// Completed is true when the provider required no confirmation step
	// and the signup finished in this call.
	Completed bool

	// RedirectTo and Session are set when Completed.
	RedirectTo string
	Session    *domainauth.Session
}

// Register submits the registration to the identity provider using the
// invitation's locked identity fields, and creates the pending
// directory user. Provider policy violations surface as step errors on
// the signup stage; the flow stays put for a corrected resubmission.
func (s *SignupService) Register(ctx context.Context, in RegisterInput) (*RegisterResult, error) {
	nowT := s.now()

	flow, err := s.flows.Get(ctx, in.Token)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NotFound(msgSessionGone)
		}
		return nil, err
	}
	if !flow.CanRegister() {
		return nil, apperrors.Validation(msgNotReadyToRegister)
	}

	// Re-resolve the invitation: it is the authoritative source of the
	// identity fields, and a token that expired mid-flow fails here.
	inv, err := s.invitations.GetByToken(ctx, in.Token)
	if err != nil {
		s.metrics.RecordRegistration("error")
		return s.registerFailed(ctx, flow, err, nowT)
	}

	result, err := s.identity.Register(ctx, ports.RegisterInput{
		Username:   inv.Email,
		Password:   in.Password,
		Email:      inv.Email,
		GivenName:  inv.FirstName,
		FamilyName: inv.LastName,
	})
	if err != nil {
		s.metrics.RecordRegistration("error")
		return s.registerFailed(ctx, flow, err, nowT)
	}
	s.metrics.RecordRegistration("success")

	// The pending directory row exists from this point on, even if the
	// confirmation is abandoned. Failure here must not block: the accept
	// path performs the same guarded insert.
	if _, userErr := s.users.CreateFromInvitation(ctx, inv); userErr != nil {
		s.logger.Error("could not create pending directory user",
			"email", inv.Email,
			"error", userErr)
	}

	if !result.ConfirmationRequired {
		// Provider completed without a confirmation step: accept and
		// sign in right away.
		redirect, session := s.finalize(ctx, flow, in.Password)
		return &RegisterResult{
			Flow:       flow,
			Completed:  true,
			RedirectTo: redirect,
			Session:    session,
		}, nil
	}

	credential, encErr := s.encryptor.Encrypt([]byte(in.Password))
	if encErr != nil {
		// Without the stored credential the confirm step still works;
		// only the auto-sign-in falls back to the login route.
		s.logger.Error("could not protect signup credential",
			"error", encErr)
		credential = ""
	}

	flow, err = signup.AwaitConfirmation(flow, credential, result.Destination, nowT)
	if err != nil {
		return nil, err
	}
	if saveErr := s.flows.Save(ctx, flow); saveErr != nil {
		return nil, saveErr
	}
	return &RegisterResult{Flow: flow}, nil
}

// registerFailed records a recoverable registration error on the flow
// and returns it alongside the original error.
func (s *SignupService) registerFailed(
	ctx context.Context,
	flow signup.Flow,
	cause error,
	nowT time.Time,
) (*RegisterResult, error) {
	failed, err := signup.StepFailed(flow, apperrors.UserMessage(cause), nowT)
	if err != nil {
		return nil, err
	}
	if saveErr := s.flows.Save(ctx, failed); saveErr != nil {
		s.logger.Warn("could not persist signup flow", "error", saveErr)
	}
	return &RegisterResult{Flow: failed}, cause
}

// ConfirmInput carries a confirmation-code submission.
type ConfirmInput struct {
	Token string
	Code  string
}

// ConfirmResult reports the outcome of a confirmation submission.
type ConfirmResult struct {
	Flow signup.Flow

	// RedirectTo is "/" when the auto-sign-in succeeded and "/login"
	// when it did not; set only on confirmation success.
	RedirectTo string

	// Session is the established session on auto-sign-in success.
	Session *domainauth.Session
}

// Confirm submits the emailed code to the identity provider. On
// success the invitation is accepted (idempotently; failures are logged
// and never surfaced) and an auto-sign-in attempted. A wrong or expired
// code keeps the flow on the verify stage for resubmission.
func (s *SignupService) Confirm(ctx context.Context, in ConfirmInput) (*ConfirmResult, error) {
	nowT := s.now()

	flow, err := s.flows.Get(ctx, in.Token)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NotFound(msgSessionGone)
		}
		return nil, err
	}
	if !flow.CanConfirm() {
		return nil, apperrors.Validation(msgNotReadyToConfirm)
	}

	email := flow.Profile.Email
	if !s.limiter.Allow(email) {
		s.metrics.RecordConfirmation("rate_limited")
		return nil, apperrors.RateLimited(msgTooManyAttempts)
	}

	if confirmErr := s.identity.Confirm(ctx, ports.ConfirmInput{
		Username: email,
		Code:     in.Code,
	}); confirmErr != nil {
		s.metrics.RecordConfirmation("error")
		failed, stepErr := signup.StepFailed(flow, apperrors.UserMessage(confirmErr), nowT)
		if stepErr != nil {
			return nil, stepErr
		}
		if saveErr := s.flows.Save(ctx, failed); saveErr != nil {
			s.logger.Warn("could not persist signup flow", "error", saveErr)
		}
		return &ConfirmResult{Flow: failed}, confirmErr
	}
	s.metrics.RecordConfirmation("success")

	password := s.recoverCredential(flow)
	redirect, session := s.finalize(ctx, flow, password)
	return &ConfirmResult{
		Flow:       flow,
		RedirectTo: redirect,
		Session:    session,
	}, nil
}

// finalize runs the post-confirmation bookkeeping: accept the
// invitation (idempotent, never blocking), attempt the auto-sign-in,
// and drop the flow record. The returned redirect is "/" on sign-in
// success and "/login" otherwise.
func (s *SignupService) finalize(
	ctx context.Context,
	flow signup.Flow,
	password string,
) (string, *domainauth.Session) {
	email := flow.Profile.Email

	accept, acceptErr := s.invitations.Accept(ctx, core.AcceptInvitationParams{
		Token: flow.Token,
		Email: email,
	})
	switch {
	case acceptErr != nil:
		// The account is confirmed and usable; acceptance bookkeeping
		// must not take that away. Operators chase this via the log and
		// the failure counter.
		s.metrics.RecordAcceptFailure()
		s.logger.Error("invitation accept failed after confirmation",
			"token", flow.Token,
			"email", email,
			"error", acceptErr)
	case accept.Consumed:
		s.metrics.RecordSignupCompleted()
	}

	if deleteErr := s.flows.Delete(ctx, flow.Token); deleteErr != nil {
		s.logger.Warn("could not delete signup flow", "error", deleteErr)
	}

	if s.auth == nil {
		// No session backend wired (auth can be disabled when redis or
		// the SSO provider is unconfigured). The account is confirmed
		// and usable; manual login covers it.
		s.logger.Warn("auto sign-in skipped, no auth service wired", "email", email)
		return RedirectLogin, nil
	}

	if password == "" {
		return RedirectLogin, nil
	}

	identity, signInErr := s.identity.SignIn(ctx, ports.SignInInput{
		Username: email,
		Password: password,
	})
	if signInErr != nil {
		s.logger.Warn("auto sign-in failed after confirmation",
			"email", email,
			"error", signInErr)
		return RedirectLogin, nil
	}

	session, sessErr := s.auth.EstablishSession(ctx, identity, flow.Profile.Role)
	if sessErr != nil {
		s.logger.Warn("could not establish session after confirmation",
			"email", email,
			"error", sessErr)
		return RedirectLogin, nil
	}
	return RedirectHome, session
}

// recoverCredential decrypts the held registration password, returning
// "" when it is absent or unreadable.
func (s *SignupService) recoverCredential(flow signup.Flow) string {
	if flow.Credential == "" {
		return ""
	}
	plain, err := s.encryptor.Decrypt(flow.Credential)
	if err != nil {
		s.logger.Warn("could not recover signup credential", "error", err)
		return ""
	}
	return string(plain)
}

func gateOutcome(err error) string {
	switch {
	case apperrors.IsExpired(err):
		return metrics.OutcomeExpired
	case apperrors.IsConsumed(err):
		return metrics.OutcomeConsumed
	case apperrors.IsNotFound(err):
		return metrics.OutcomeNotFound
	default:
		return metrics.OutcomeError
	}
}
