package devidentity

// Package devidentity provides an in-memory IdentityProvider for local
// development. Accounts live for the process lifetime and confirmation
// codes are logged instead of emailed.

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"sync"
	"time"

	domainauth "github.com/peoplehub/portal-api/internal/domain/auth"
	apperrors "github.com/peoplehub/portal-api/internal/errors"
	"github.com/peoplehub/portal-api/internal/ports"
)

const (
	minPasswordLength = 8
	codeLength        = 6
	codeLifetime      = 15 * time.Minute
)

type account struct {
	password   string
	email      string
	givenName  string
	familyName string
	confirmed  bool

	code          string
	codeExpiresAt time.Time
}

// Provider implements ports.IdentityProvider backed by process memory.
type Provider struct {
	logger *slog.Logger

	// AutoConfirm skips the confirmation step entirely, which exercises
	// the caller path where registration completes immediately.
	autoConfirm bool

	// FixedCode, when set, replaces the random confirmation code so
	// local flows can be driven without reading logs.
	fixedCode string

	mu       sync.Mutex
	accounts map[string]*account
}

// Option configures the dev provider.
type Option func(*Provider)

// WithAutoConfirm makes every registration complete without a
// confirmation step.
func WithAutoConfirm() Option {
	return func(p *Provider) { p.autoConfirm = true }
}

// WithFixedCode pins the confirmation code for every account.
func WithFixedCode(code string) Option {
	return func(p *Provider) { p.fixedCode = code }
}

// NewProvider constructs an in-memory identity provider.
func NewProvider(logger *slog.Logger, opts ...Option) *Provider {
	p := &Provider{
		logger:   logger,
		accounts: make(map[string]*account),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Provider) Register(_ context.Context, in ports.RegisterInput) (ports.RegisterResult, error) {
	if len(in.Password) < minPasswordLength {
		return ports.RegisterResult{}, apperrors.Validationf(
			"password must be at least %d characters", minPasswordLength)
	}

	username := normalize(in.Username)
	if username == "" {
		return ports.RegisterResult{}, apperrors.Validation("username is required")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if existing, ok := p.accounts[username]; ok && existing.confirmed {
		return ports.RegisterResult{}, apperrors.Conflict("an account with this email already exists")
	}

	acct := &account{
		password:   in.Password,
		email:      normalize(in.Email),
		givenName:  in.GivenName,
		familyName: in.FamilyName,
		confirmed:  p.autoConfirm,
	}

	if !p.autoConfirm {
		code, err := p.newCode()
		if err != nil {
			return ports.RegisterResult{}, fmt.Errorf("generate confirmation code: %w", err)
		}
		acct.code = code
		acct.codeExpiresAt = time.Now().Add(codeLifetime)
		p.logger.Info("dev identity confirmation code issued",
			"username", username,
			"code", code)
	}

	p.accounts[username] = acct

	return ports.RegisterResult{
		ConfirmationRequired: !p.autoConfirm,
		Destination:          maskEmail(acct.email),
	}, nil
}

func (p *Provider) Confirm(_ context.Context, in ports.ConfirmInput) error {
	username := normalize(in.Username)

	p.mu.Lock()
	defer p.mu.Unlock()

	acct, ok := p.accounts[username]
	if !ok {
		return apperrors.NotFound("no pending registration for this email")
	}
	if acct.confirmed {
		return nil // already confirmed, idempotent
	}
	if time.Now().After(acct.codeExpiresAt) {
		return apperrors.Expired("this confirmation code has expired")
	}
	if in.Code == "" || in.Code != acct.code {
		return apperrors.Unauthorized("the confirmation code is incorrect")
	}

	acct.confirmed = true
	acct.code = ""
	return nil
}

func (p *Provider) SignIn(_ context.Context, in ports.SignInInput) (domainauth.Identity, error) {
	username := normalize(in.Username)

	p.mu.Lock()
	defer p.mu.Unlock()

	acct, ok := p.accounts[username]
	if !ok || !acct.confirmed || acct.password != in.Password {
		return domainauth.Identity{}, apperrors.Unauthorized("invalid email or password")
	}

	return domainauth.Identity{
		UserID:    "dev-" + username,
		FirstName: acct.givenName,
		LastName:  acct.familyName,
		Email:     acct.email,
		ExpiresAt: time.Now().Add(8 * time.Hour),
	}, nil
}

func (p *Provider) newCode() (string, error) {
	if p.fixedCode != "" {
		return p.fixedCode, nil
	}
	var b strings.Builder
	for i := 0; i < codeLength; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + n.Int64()))
	}
	return b.String(), nil
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// maskEmail renders an email like "n***@example.com" for display.
func maskEmail(email string) string {
	at := strings.IndexByte(email, '@')
	if at <= 0 {
		return email
	}
	return email[:1] + "***" + email[at:]
}
