package devidentity

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/peoplehub/portal-api/internal/errors"
	"github.com/peoplehub/portal-api/internal/ports"
)

func newTestProvider(opts ...Option) *Provider {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewProvider(logger, opts...)
}

func TestProvider_RegisterConfirmSignIn(t *testing.T) {
	p := newTestProvider(WithFixedCode("123456"))
	ctx := context.Background()

	result, err := p.Register(ctx, ports.RegisterInput{
		Username:   "New.Hire@Example.com",
		Password:   "correct horse battery",
		Email:      "new.hire@example.com",
		GivenName:  "New",
		FamilyName: "Hire",
	})
	require.NoError(t, err)
	assert.True(t, result.ConfirmationRequired)
	assert.Equal(t, "n***@example.com", result.Destination)

	// Sign-in before confirmation is rejected.
	_, err = p.SignIn(ctx, ports.SignInInput{
		Username: "new.hire@example.com",
		Password: "correct horse battery",
	})
	assert.True(t, apperrors.IsUnauthorized(err))

	// Wrong code is rejected without consuming the registration.
	err = p.Confirm(ctx, ports.ConfirmInput{Username: "new.hire@example.com", Code: "000000"})
	assert.True(t, apperrors.IsUnauthorized(err))

	err = p.Confirm(ctx, ports.ConfirmInput{Username: "new.hire@example.com", Code: "123456"})
	require.NoError(t, err)

	// Confirming again is a no-op.
	err = p.Confirm(ctx, ports.ConfirmInput{Username: "new.hire@example.com", Code: "123456"})
	require.NoError(t, err)

	identity, err := p.SignIn(ctx, ports.SignInInput{
		Username: "NEW.HIRE@example.com",
		Password: "correct horse battery",
	})
	require.NoError(t, err)
	assert.Equal(t, "new.hire@example.com", identity.Email)
	assert.Equal(t, "New", identity.FirstName)
	assert.Equal(t, "Hire", identity.LastName)
	assert.False(t, identity.ExpiresAt.IsZero())
}

func TestProvider_RegisterShortPassword(t *testing.T) {
	p := newTestProvider()

	_, err := p.Register(context.Background(), ports.RegisterInput{
		Username: "a@example.com",
		Password: "short",
	})
	assert.True(t, apperrors.IsValidation(err))
}

func TestProvider_RegisterDuplicateConfirmed(t *testing.T) {
	p := newTestProvider(WithAutoConfirm())
	ctx := context.Background()

	result, err := p.Register(ctx, ports.RegisterInput{
		Username: "a@example.com",
		Password: "long enough password",
		Email:    "a@example.com",
	})
	require.NoError(t, err)
	assert.False(t, result.ConfirmationRequired)

	_, err = p.Register(ctx, ports.RegisterInput{
		Username: "a@example.com",
		Password: "another long password",
		Email:    "a@example.com",
	})
	assert.True(t, apperrors.IsConflict(err))
}

func TestProvider_RegisterReplacesUnconfirmed(t *testing.T) {
	p := newTestProvider(WithFixedCode("111111"))
	ctx := context.Background()

	_, err := p.Register(ctx, ports.RegisterInput{
		Username: "a@example.com",
		Password: "first password attempt",
		Email:    "a@example.com",
	})
	require.NoError(t, err)

	// Re-registering an unconfirmed account starts over with the new password.
	_, err = p.Register(ctx, ports.RegisterInput{
		Username: "a@example.com",
		Password: "second password attempt",
		Email:    "a@example.com",
	})
	require.NoError(t, err)

	require.NoError(t, p.Confirm(ctx, ports.ConfirmInput{Username: "a@example.com", Code: "111111"}))

	_, err = p.SignIn(ctx, ports.SignInInput{Username: "a@example.com", Password: "first password attempt"})
	assert.True(t, apperrors.IsUnauthorized(err))

	_, err = p.SignIn(ctx, ports.SignInInput{Username: "a@example.com", Password: "second password attempt"})
	assert.NoError(t, err)
}

func TestProvider_ConfirmUnknownUsername(t *testing.T) {
	p := newTestProvider()

	err := p.Confirm(context.Background(), ports.ConfirmInput{
		Username: "ghost@example.com",
		Code:     "123456",
	})
	assert.True(t, apperrors.IsNotFound(err))
}

func TestProvider_AutoConfirmSkipsCode(t *testing.T) {
	p := newTestProvider(WithAutoConfirm())
	ctx := context.Background()

	result, err := p.Register(ctx, ports.RegisterInput{
		Username: "fast@example.com",
		Password: "long enough password",
		Email:    "fast@example.com",
	})
	require.NoError(t, err)
	assert.False(t, result.ConfirmationRequired)

	_, err = p.SignIn(ctx, ports.SignInInput{
		Username: "fast@example.com",
		Password: "long enough password",
	})
	assert.NoError(t, err)
}
