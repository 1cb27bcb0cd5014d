package config

// ObservabilityConfig groups configuration that controls metrics.
type ObservabilityConfig struct {
	// MetricsEnabled exposes the Prometheus scrape endpoint on /metrics.
	MetricsEnabled bool `env:"OBSERVABILITY_METRICS_ENABLED" envDefault:"true"`
}
