package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	domainauth "github.com/peoplehub/portal-api/internal/domain/auth"
	"github.com/peoplehub/portal-api/internal/domain/model"
	apperrors "github.com/peoplehub/portal-api/internal/errors"
	"github.com/peoplehub/portal-api/internal/ports"
)

// AuthServiceOptions groups dependencies for AuthService.
type AuthServiceOptions struct {
	Provider ports.AuthProvider
	Sessions ports.SessionStore
	Roles    ports.RoleMapper
	// Directory is consulted on login; a deactivated directory user is
	// refused a session, and a directory role wins over the group
	// mapping. Optional: nil skips both checks.
	Directory DirectoryLookup
	Logger    *slog.Logger
}

// DirectoryLookup is the slice of the user repository login needs.
type DirectoryLookup interface {
	GetByEmail(ctx context.Context, email string) (*model.User, error)
}

// AuthService orchestrates SSO login by coordinating the provider, role
// mapping, the directory, and session persistence.
type AuthService struct {
	provider  ports.AuthProvider
	sessions  ports.SessionStore
	roles     ports.RoleMapper
	directory DirectoryLookup
	logger    *slog.Logger
}

var errSessionExpired = errors.New("session expired")

// NewAuthService constructs a new AuthService.
func NewAuthService(opts AuthServiceOptions) *AuthService {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		provider:  opts.Provider,
		sessions:  opts.Sessions,
		roles:     opts.Roles,
		directory: opts.Directory,
		logger:    logger,
	}
}

// BeginLoginResult contains the result of beginning a login flow.
type BeginLoginResult struct {
	AuthURL string
	State   string
	Nonce   string
}

// BeginLogin initiates an authentication flow and returns the provider auth URL with state and nonce.
func (s *AuthService) BeginLogin(ctx context.Context, redirectURL string) (*BeginLoginResult, error) {
	if redirectURL == "" {
		return nil, errors.New("redirect URL is required")
	}

	authURL, state, nonce, err := s.provider.Begin(ctx, ports.BeginInput{RedirectURL: redirectURL})
	if err != nil {
		return nil, fmt.Errorf("begin auth flow: %w", err)
	}

	return &BeginLoginResult{
		AuthURL: authURL,
		State:   state,
		Nonce:   nonce,
	}, nil
}

// CompleteLoginInput groups parameters for completing a login flow.
type CompleteLoginInput struct {
	Code  string
	State string
	Nonce string
}

// CompleteLoginResult contains the result of completing a login flow.
type CompleteLoginResult struct {
	Session domainauth.Session
}

// CompleteLogin exchanges the authorization code for an identity,
// resolves the role, and persists a session.
func (s *AuthService) CompleteLogin(ctx context.Context, input CompleteLoginInput) (*CompleteLoginResult, error) {
	if input.Code == "" {
		return nil, errors.New("authorization code is required")
	}
	if input.State == "" {
		return nil, errors.New("state parameter is required")
	}
	if input.Nonce == "" {
		return nil, errors.New("nonce parameter is required")
	}

	identity, err := s.provider.Exchange(ctx, ports.ExchangeInput{
		Code:  input.Code,
		State: input.State,
		Nonce: input.Nonce,
	})
	if err != nil {
		return nil, fmt.Errorf("exchange authorization code: %w", err)
	}

	role, err := s.resolveRole(ctx, identity)
	if err != nil {
		return nil, err
	}

	session := domainauth.Session{
		ID:        uuid.New().String(),
		UserID:    identity.UserID,
		FirstName: identity.FirstName,
		LastName:  identity.LastName,
		Email:     identity.Email,
		Role:      role,
		ExpiresAt: identity.ExpiresAt,
	}

	if saveErr := s.sessions.Save(ctx, session); saveErr != nil {
		return nil, fmt.Errorf("save session: %w", saveErr)
	}

	return &CompleteLoginResult{Session: session}, nil
}

// EstablishSession persists a session for an identity obtained outside
// the SSO flow (the signup auto-sign-in path). The role is taken from
// the caller, who sourced it from the invitation.
func (s *AuthService) EstablishSession(
	ctx context.Context,
	identity domainauth.Identity,
	role model.Role,
) (*domainauth.Session, error) {
	session := domainauth.Session{
		ID:        uuid.New().String(),
		UserID:    identity.UserID,
		FirstName: identity.FirstName,
		LastName:  identity.LastName,
		Email:     identity.Email,
		Role:      role,
		ExpiresAt: identity.ExpiresAt,
	}
	if session.ExpiresAt.IsZero() {
		session.ExpiresAt = time.Now().Add(8 * time.Hour)
	}

	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return &session, nil
}

// resolveRole prefers the directory row (invitation-sourced role) over
// the IdP group mapping, and refuses deactivated users.
func (s *AuthService) resolveRole(ctx context.Context, identity domainauth.Identity) (model.Role, error) {
	mapped := s.roles.Map(identity.Groups)
	if s.directory == nil {
		return mapped, nil
	}

	user, err := s.directory.GetByEmail(ctx, identity.Email)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return mapped, nil
		}
		// Directory trouble should not lock staff out; the group
		// mapping still applies.
		s.logger.Warn("directory lookup failed during login",
			"email", identity.Email,
			"error", err)
		return mapped, nil
	}

	if user.Status == model.UserStatusInactive {
		return "", apperrors.Unauthorized("this account has been deactivated")
	}
	return user.Role, nil
}

// GetSession retrieves a session by ID.
func (s *AuthService) GetSession(ctx context.Context, sessionID string) (*domainauth.Session, error) {
	if sessionID == "" {
		return nil, errors.New("session ID is required")
	}

	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	if time.Now().After(session.ExpiresAt) {
		// Clean up expired session
		if deleteErr := s.sessions.Delete(ctx, sessionID); deleteErr != nil {
			return nil, errors.Join(errSessionExpired, fmt.Errorf("delete session: %w", deleteErr))
		}
		return nil, errSessionExpired
	}

	return &session, nil
}

// Logout removes a session.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil // Nothing to logout
	}

	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}

	return nil
}
