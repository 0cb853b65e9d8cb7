package observability

import (
	"github.com/smallbiznis/chargeengine/internal/observability/logger"
	"github.com/smallbiznis/chargeengine/internal/observability/metrics"
	"github.com/smallbiznis/chargeengine/internal/observability/tracing"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("observability",
	fx.Provide(
		LoadConfig,
		Config.Logger,
		Config.Tracing,
		Config.Metrics,
		logger.New,
		tracing.NewProvider,
		tracing.NewTracer,
		metrics.NewProvider,
		metrics.New,
		metrics.EngineWithConfig,
	),
	fx.Invoke(logStartup),
)

func logStartup(cfg Config, log *zap.Logger) {
	log.Debug("charge engine configured",
		zap.Int("group_workers", cfg.GroupWorkers),
		zap.String("charge_config_path", cfg.ChargeConfigPath),
		zap.Bool("otel_enabled", cfg.OtelEnabled),
		zap.String("otel_protocol", cfg.OtelProtocol),
	)
}
