package bootstrap

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/peoplehub/portal-api/config"
	"github.com/peoplehub/portal-api/internal/adapters/devidentity"
	redisadapter "github.com/peoplehub/portal-api/internal/adapters/redis"
	"github.com/peoplehub/portal-api/internal/adapters/userpool"
	"github.com/peoplehub/portal-api/internal/data"
	"github.com/peoplehub/portal-api/internal/observability/metrics"
	"github.com/peoplehub/portal-api/internal/ports"
	"github.com/peoplehub/portal-api/internal/service"
)

// ServiceContainer holds the wired application services.
type ServiceContainer struct {
	Auth        *service.AuthService
	Signup      *service.SignupService
	Invitations *service.InvitationService
	Directory   *service.DirectoryService

	// Metrics is the Prometheus registry backing the /metrics endpoint,
	// nil when metrics are disabled.
	Metrics *prometheus.Registry
}

// ServicesConfig contains the dependencies for BuildServices.
type ServicesConfig struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// BuildServices wires repositories, adapters, and services from loaded
// configuration and open connections.
func BuildServices(cfg ServicesConfig) (ServiceContainer, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	invitationRepo := data.NewInvitationRepo(cfg.DB)
	userRepo := data.NewUserRepo(cfg.DB)

	var (
		registry  *prometheus.Registry
		collector *metrics.Collector
	)
	if cfg.Config.Observability.MetricsEnabled {
		registry = prometheus.NewRegistry()
		collector = metrics.NewCollector(registry)
	}

	auth := BuildAuthService(AuthConfig{
		Auth:        cfg.Config.Auth,
		RedisClient: cfg.RedisClient,
		Users:       userRepo,
		Logger:      logger,
	})

	identity, err := buildIdentityProvider(cfg.Config.Auth, logger)
	if err != nil {
		return ServiceContainer{}, err
	}

	signupCfg := cfg.Config.Signup
	flowStore := redisadapter.NewFlowStore(cfg.RedisClient, signupCfg.FlowTTL)
	encryptor := CreateEncryptor(signupCfg.CredentialKey, logger)

	confirmRate := rate.Limit(float64(signupCfg.ConfirmAttempts) / signupCfg.ConfirmWindow.Seconds())

	signup := service.NewSignupService(service.SignupServiceOptions{
		Invitations:  invitationRepo,
		Users:        userRepo,
		Flows:        flowStore,
		Identity:     identity,
		Auth:         auth,
		Encryptor:    encryptor,
		Metrics:      collector,
		Logger:       logger,
		ConfirmRate:  confirmRate,
		ConfirmBurst: signupCfg.ConfirmAttempts,
	})

	invitations := service.NewInvitationService(service.InvitationServiceOptions{
		Invitations: invitationRepo,
		Metrics:     collector,
		Logger:      logger,
		DefaultTTL:  signupCfg.InvitationTTL,
	})

	directory := service.NewDirectoryService(service.DirectoryServiceOptions{
		Users:  userRepo,
		Logger: logger,
	})

	return ServiceContainer{
		Auth:        auth,
		Signup:      signup,
		Invitations: invitations,
		Directory:   directory,
		Metrics:     registry,
	}, nil
}

// buildIdentityProvider selects the identity provider the signup flow
// registers accounts against.
//
//nolint:ireturn // provider selection is the point of this function.
func buildIdentityProvider(cfg config.AuthConfig, logger *slog.Logger) (ports.IdentityProvider, error) {
	switch cfg.Identity {
	case config.IdentityModeUserPool:
		client, err := userpool.NewClient(userpool.Config{
			BaseURL: cfg.UserPool.BaseURL,
			APIKey:  cfg.UserPool.APIKey,
			Timeout: 10 * time.Second,
		}, logger)
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		logger.Info("using in-memory identity provider; confirmation codes are logged")
		return devidentity.NewProvider(logger), nil
	}
}
