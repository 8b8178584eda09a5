package observability

import (
	"strings"

	"github.com/smallbiznis/signbilling/internal/observability/logger"
	"github.com/smallbiznis/signbilling/internal/observability/metrics"
	"github.com/smallbiznis/signbilling/internal/observability/tracing"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

var Module = fx.Module("observability",
	fx.Provide(
		LoadConfig,
		provideLoggerConfig,
		logger.New,
		provideGormLogger,
		provideTracingConfig,
		tracing.NewProvider,
		provideMetricsConfig,
		metrics.NewProvider,
		metrics.New,
	),
	fx.Invoke(ensureTracingProvider),
)

func ensureTracingProvider(_ *sdktrace.TracerProvider) {}

func provideLoggerConfig(cfg Config) logger.Config {
	return logger.Config{
		ServiceName:         cfg.ServiceName,
		Environment:         cfg.Environment,
		Version:             cfg.Version,
		NodeID:              cfg.NodeID,
		Level:               cfg.LogLevel,
		Format:              cfg.LogFormat,
		Debug:               cfg.Debug(),
		IncludeCaller:       true,
		IncludeStackOnError: cfg.Debug(),
	}
}

// provideGormLogger depends on the zap logger so globals are replaced first.
func provideGormLogger(cfg Config, _ *zap.Logger) gormlogger.Interface {
	gcfg := logger.DefaultGormLoggerConfig()
	gcfg.IgnoreRecordNotFound = true
	if cfg.GormSlowThreshold > 0 {
		gcfg.SlowThreshold = cfg.GormSlowThreshold
	}
	switch strings.ToLower(cfg.GormLogLevel) {
	case "silent":
		gcfg.Level = gormlogger.Silent
	case "error":
		gcfg.Level = gormlogger.Error
	case "info":
		gcfg.Level = gormlogger.Info
	}
	return logger.NewGormLogger(gcfg)
}

func provideTracingConfig(cfg Config) tracing.Config {
	return tracing.Config{
		Enabled:          cfg.OtelEnabled,
		ServiceName:      cfg.ServiceName,
		ServiceVersion:   cfg.Version,
		Environment:      cfg.Environment,
		ExporterEndpoint: cfg.OtelExporterEndpoint,
		ExporterProtocol: cfg.OtelExporterProtocol,
		SamplingRatio:    cfg.OtelSamplingRatio,
	}
}

func provideMetricsConfig(cfg Config) metrics.Config {
	return metrics.Config{
		Enabled:          cfg.OtelEnabled,
		ExporterEndpoint: cfg.OtelExporterEndpoint,
		ExporterProtocol: cfg.OtelExporterProtocol,
		ServiceName:      cfg.ServiceName,
		Environment:      cfg.Environment,
	}
}
