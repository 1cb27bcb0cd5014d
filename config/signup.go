package config

import "time"

// SignupConfig contains signup flow configuration.
type SignupConfig struct {
	// FlowTTL is how long an in-progress signup flow survives in Redis
	// without completing.
	FlowTTL time.Duration `env:"SIGNUP_FLOW_TTL" envDefault:"1h"`

	// InvitationTTL is the default validity window for new invitations
	// when the creating admin sets none.
	InvitationTTL time.Duration `env:"SIGNUP_INVITATION_TTL" envDefault:"168h"`

	// ConfirmAttempts / ConfirmWindow bound confirmation-code
	// submissions per email: ConfirmAttempts per ConfirmWindow, with a
	// burst of ConfirmAttempts.
	ConfirmAttempts int           `env:"SIGNUP_CONFIRM_ATTEMPTS" envDefault:"5"`
	ConfirmWindow   time.Duration `env:"SIGNUP_CONFIRM_WINDOW"   envDefault:"1m"`

	// CredentialKey is the hex-encoded AES key protecting the
	// registration credential held in Redis between the register and
	// confirm steps. Empty disables encryption (development only).
	CredentialKey string `env:"SIGNUP_CREDENTIAL_KEY"`
}

// Sanitize applies guardrails to signup configuration values.
func (c *SignupConfig) Sanitize() {
	if c.FlowTTL <= 0 {
		c.FlowTTL = time.Hour
	}
	if c.InvitationTTL <= 0 {
		c.InvitationTTL = 168 * time.Hour
	}
	if c.ConfirmAttempts <= 0 {
		c.ConfirmAttempts = 5
	}
	if c.ConfirmWindow <= 0 {
		c.ConfirmWindow = time.Minute
	}
}
