package bootstrap

import (
	"io"
	"log/slog"
	"testing"

	"github.com/peoplehub/portal-api/config"
)

func TestBuildAuthServiceReturnsNilWithoutRedis(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name string
		auth config.AuthConfig
	}{
		{
			name: "dev auth mode",
			auth: config.AuthConfig{
				Mode:       config.AuthModeMock,
				AdminGroup: "portal-admins",
				DevAuth: config.DevAuthConfig{
					UserID: "dev",
					Email:  "dev@example.com",
					Groups: []string{"portal-admins"},
				},
			},
		},
		{
			name: "oauth mode",
			auth: config.AuthConfig{
				Mode:       config.AuthModeOAuth,
				AdminGroup: "portal-admins",
				OAuth: config.OAuthConfig{
					ClientID:     "client-id",
					ClientSecret: "client-secret",
					DiscoveryURL: "https://issuer.example.com",
					RedirectURL:  "https://portal.example.com/auth/callback",
					Scope:        "openid",
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := AuthConfig{
				Auth:        tt.auth,
				RedisClient: nil,
				Logger:      logger,
			}

			if svc := BuildAuthService(cfg); svc != nil {
				t.Fatalf("BuildAuthService() = %v, want nil", svc)
			}
		})
	}
}

func TestBuildIdentityProviderDefaultsToDev(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	prov, err := buildIdentityProvider(config.AuthConfig{Identity: config.IdentityModeDev}, logger)
	if err != nil {
		t.Fatalf("buildIdentityProvider() error = %v", err)
	}
	if prov == nil {
		t.Fatal("buildIdentityProvider() = nil, want dev provider")
	}
}

func TestBuildIdentityProviderUserPoolRequiresBaseURL(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	_, err := buildIdentityProvider(config.AuthConfig{Identity: config.IdentityModeUserPool}, logger)
	if err == nil {
		t.Fatal("buildIdentityProvider() error = nil, want error for missing base URL")
	}
}
