package ports

import (
	"context"

	domainauth "github.com/peoplehub/portal-api/internal/domain/auth"
)

// RegisterInput carries the identity-provider signup call parameters.
// Username is always the invitation email; the provider owns the
// password complexity policy and reports violations itself.
type RegisterInput struct {
	Username   string
	Password   string
	Email      string
	GivenName  string
	FamilyName string
}

// RegisterResult reports whether the provider requires an out-of-band
// confirmation step. Some provider configurations complete signup
// immediately; callers must handle both.
type RegisterResult struct {
	ConfirmationRequired bool

	// Destination hints where the confirmation code was delivered
	// (e.g. a masked email). Optional.
	Destination string
}

// ConfirmInput carries the confirmation-code submission.
type ConfirmInput struct {
	Username string
	Code     string
}

// SignInInput carries a username/password credential check.
type SignInInput struct {
	Username string
	Password string
}

// IdentityProvider owns credential storage, email-verification-code
// issuance and checking, and credential-based session identity. It is
// an external collaborator; the known provider error kinds are
// surfaced as AppError codes by adapters:
//   - conflict: an account already exists for this email
//   - validation: password does not meet the provider policy
//   - expired / unauthorized: bad or expired confirmation code
type IdentityProvider interface {
	Register(ctx context.Context, in RegisterInput) (RegisterResult, error)
	Confirm(ctx context.Context, in ConfirmInput) error
	SignIn(ctx context.Context, in SignInInput) (domainauth.Identity, error)
}
