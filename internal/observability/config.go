package observability

import (
	"strings"

	"github.com/smallbiznis/chargeengine/internal/config"
	"github.com/smallbiznis/chargeengine/internal/observability/logger"
	"github.com/smallbiznis/chargeengine/internal/observability/metrics"
	"github.com/smallbiznis/chargeengine/internal/observability/tracing"
)

// Config is the telemetry view of the engine configuration.
type Config struct {
	ServiceName string
	Environment string
	Version     string

	LogLevel  string
	LogFormat string

	OtelEnabled   bool
	OtelEndpoint  string
	OtelProtocol  string
	SamplingRatio float64

	// Engine settings, reported once at startup.
	GroupWorkers     int
	ChargeConfigPath string
}

func LoadConfig(cfg config.Config) Config {
	serviceName := strings.TrimSpace(cfg.AppName)
	if serviceName == "" {
		serviceName = "chargeengine"
	}

	return Config{
		ServiceName:      serviceName,
		Environment:      strings.TrimSpace(cfg.Environment),
		Version:          strings.TrimSpace(cfg.AppVersion),
		LogLevel:         cfg.LogLevel,
		LogFormat:        cfg.LogFormat,
		OtelEnabled:      cfg.OtelEnabled,
		OtelEndpoint:     strings.TrimSpace(cfg.OTLPEndpoint),
		OtelProtocol:     cfg.OTLPProtocol,
		SamplingRatio:    cfg.OtelSamplingRatio,
		GroupWorkers:     cfg.GroupWorkers,
		ChargeConfigPath: cfg.ChargeConfigPath,
	}
}

// Debug is on for debug logging and for local environments.
func (c Config) Debug() bool {
	if c.LogLevel == "debug" {
		return true
	}
	switch strings.ToLower(c.Environment) {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}

func (c Config) Logger() logger.Config {
	return logger.Config{
		ServiceName: c.ServiceName,
		Environment: c.Environment,
		Version:     c.Version,
		Level:       c.LogLevel,
		Format:      c.LogFormat,
		Debug:       c.Debug(),
	}
}

func (c Config) Tracing() tracing.Config {
	return tracing.Config{
		Enabled:          c.OtelEnabled,
		ServiceName:      c.ServiceName,
		ServiceVersion:   c.Version,
		Environment:      c.Environment,
		ExporterEndpoint: c.OtelEndpoint,
		ExporterProtocol: c.OtelProtocol,
		SamplingRatio:    c.SamplingRatio,
	}
}

func (c Config) Metrics() metrics.Config {
	return metrics.Config{
		Enabled:          c.OtelEnabled,
		ExporterEndpoint: c.OtelEndpoint,
		ExporterProtocol: c.OtelProtocol,
		ServiceName:      c.ServiceName,
		Environment:      c.Environment,
	}
}
