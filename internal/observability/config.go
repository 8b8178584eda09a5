package observability

import (
	"strings"
	"time"

	"github.com/smallbiznis/signbilling/internal/config"
)

// Config is the observability slice of the application config.
type Config struct {
	ServiceName string
	Environment string
	Version     string
	NodeID      int64

	LogLevel  string
	LogFormat string

	GormLogLevel      string
	GormSlowThreshold time.Duration

	OtelEnabled          bool
	OtelExporterEndpoint string
	OtelExporterProtocol string
	OtelSamplingRatio    float64
}

func LoadConfig(cfg config.Config) Config {
	name := strings.TrimSpace(cfg.AppName)
	if name == "" {
		name = "signbilling"
	}
	return Config{
		ServiceName:          name,
		Environment:          strings.TrimSpace(cfg.Environment),
		Version:              strings.TrimSpace(cfg.AppVersion),
		NodeID:               cfg.NodeID,
		LogLevel:             cfg.LogLevel,
		LogFormat:            cfg.LogFormat,
		GormLogLevel:         cfg.GormLogLevel,
		GormSlowThreshold:    cfg.GormSlowThreshold,
		OtelEnabled:          cfg.OtelEnabled,
		OtelExporterEndpoint: strings.TrimSpace(cfg.OTLPEndpoint),
		OtelExporterProtocol: cfg.OtelProtocol,
		OtelSamplingRatio:    cfg.OtelSamplingRatio,
	}
}

// Debug reports whether verbose logging applies: an explicit debug level or
// a non-production environment.
func (c Config) Debug() bool {
	if strings.EqualFold(c.LogLevel, "debug") {
		return true
	}
	switch strings.ToLower(c.Environment) {
	case "dev", "development", "local", "test":
		return true
	}
	return false
}
