package config

import (
	"fmt"
	"strings"
)

// AuthMode represents the SSO authentication mode for staff logins.
type AuthMode string

const (
	// AuthModeOAuth uses OAuth/OIDC for authentication.
	AuthModeOAuth AuthMode = "oauth"
	// AuthModeMock uses mock/dev authentication (for development only).
	AuthModeMock AuthMode = "mock"
)

// UnmarshalText implements encoding.TextUnmarshaler for AuthMode.
func (a *AuthMode) UnmarshalText(text []byte) error {
	v := strings.ToLower(string(text))
	switch v {
	case "oauth", "mock":
		*a = AuthMode(v)
		return nil
	default:
		return fmt.Errorf("invalid AuthMode: %q (valid options: oauth, mock)", v)
	}
}

// IdentityMode selects the identity provider the signup flow registers
// accounts against.
type IdentityMode string

const (
	// IdentityModeUserPool talks to the hosted user-pool service.
	IdentityModeUserPool IdentityMode = "userpool"
	// IdentityModeDev keeps accounts in memory and logs confirmation
	// codes (for development only).
	IdentityModeDev IdentityMode = "dev"
)

// UnmarshalText implements encoding.TextUnmarshaler for IdentityMode.
func (m *IdentityMode) UnmarshalText(text []byte) error {
	v := strings.ToLower(string(text))
	switch v {
	case "userpool", "dev":
		*m = IdentityMode(v)
		return nil
	default:
		return fmt.Errorf("invalid IdentityMode: %q (valid options: userpool, dev)", v)
	}
}

// OAuthConfig contains OAuth/OIDC configuration.
type OAuthConfig struct {
	ClientID     string `env:"CLIENT_ID"     envDefault:"portal"`
	ClientSecret string `env:"CLIENT_SECRET" envDefault:"portal"`
	RedirectURL  string `env:"REDIRECT_URL"  envDefault:"http://localhost:8080/auth/callback"`
	Scope        string `env:"SCOPE"         envDefault:"openid profile email groups"`
	DiscoveryURL string `env:"DISCOVERY_URL"`
}

// DevAuthConfig controls mock/dev SSO identity.
// Used when AUTH_MODE=mock for development and testing.
type DevAuthConfig struct {
	UserID    string   `env:"USER_ID"    envDefault:"dev-user"`
	Email     string   `env:"EMAIL"      envDefault:"dev@example.com"`
	FirstName string   `env:"FIRST_NAME" envDefault:"Dev"`
	LastName  string   `env:"LAST_NAME"  envDefault:"User"`
	Groups    []string `env:"GROUPS"     envDefault:"admins"          envSeparator:";"`
}

// UserPoolConfig contains the hosted user-pool service connection.
// Used when IDENTITY_MODE=userpool.
type UserPoolConfig struct {
	BaseURL string `env:"BASE_URL"`
	APIKey  string `env:"API_KEY"`
}

// AuthConfig groups all authentication-related configuration.
type AuthConfig struct {
	// Mode determines which SSO provider staff logins use.
	Mode AuthMode `env:"AUTH_MODE" envDefault:"oauth"`

	// OAuth configuration (used when Mode=oauth).
	OAuth OAuthConfig `envPrefix:"OAUTH_"`

	// DevAuth configuration (used when Mode=mock).
	DevAuth DevAuthConfig `envPrefix:"DEV_AUTH_"`

	// Identity determines which provider the signup flow registers
	// accounts against.
	Identity IdentityMode `env:"IDENTITY_MODE" envDefault:"dev"`

	// UserPool configuration (used when Identity=userpool).
	UserPool UserPoolConfig `envPrefix:"USERPOOL_"`

	// AdminGroup is the IdP group for admin users.
	AdminGroup string `env:"ADMIN_GROUP,required"`

	// MentorGroup and TeamLeadGroup map IdP groups onto portal roles.
	MentorGroup   string `env:"MENTOR_GROUP"    envDefault:""`
	TeamLeadGroup string `env:"TEAM_LEAD_GROUP" envDefault:""`
}
