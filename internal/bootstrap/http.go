package bootstrap

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/peoplehub/portal-api/config"
	httpx "github.com/peoplehub/portal-api/internal/http"
	"github.com/peoplehub/portal-api/internal/observability/metrics"
)

// HTTPServerConfig contains configuration for the HTTP server.
type HTTPServerConfig struct {
	Config   *config.AppConfig
	Services ServiceContainer
	Logger   *slog.Logger
}

// NewHTTPServer builds the HTTP server with routes and timeouts
// configured. The caller is responsible for running ListenAndServe and
// for graceful shutdown.
func NewHTTPServer(cfg *HTTPServerConfig) *http.Server {
	if cfg == nil {
		return nil
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	appCfg := cfg.Config
	if appCfg == nil {
		appCfg = &config.AppConfig{}
	}

	var metricsHandler http.Handler
	if cfg.Services.Metrics != nil {
		metricsHandler = metrics.Handler(cfg.Services.Metrics)
	}

	var auth httpx.AuthServiceInterface
	if cfg.Services.Auth != nil {
		auth = cfg.Services.Auth
	}

	handler := httpx.NewRouter(httpx.RouterServices{
		Signup:       cfg.Services.Signup,
		Invitations:  cfg.Services.Invitations,
		Directory:    cfg.Services.Directory,
		Auth:         auth,
		CookieDomain: appCfg.HTTP.CookieDomain,
		Metrics:      metricsHandler,
		Logger:       logger,
	})

	return newServer(handler, appCfg.HTTP.Addr)
}

func newServer(handler http.Handler, addr string) *http.Server {
	// Guard against empty addr to avoid listening on Go default
	if addr == "" {
		addr = ":8080"
	}

	return &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
}

// ShutdownHTTPServer gracefully shuts down the HTTP server.
func ShutdownHTTPServer(ctx context.Context, server *http.Server, logger *slog.Logger) error {
	if server == nil {
		return nil
	}

	if logger != nil {
		logger.Info("shutting down HTTP server")
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}

	if logger != nil {
		logger.Info("HTTP server stopped")
	}

	return nil
}
