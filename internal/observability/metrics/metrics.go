package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes rating instruments.
type Metrics struct {
	ratingRuns            metric.Int64Counter
	ratingDuration        metric.Float64Histogram
	transactionsProcessed metric.Int64Counter
	transactionsSkipped   metric.Int64Counter
	rowsWritten           metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the rating instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "signbilling"
	}
	meter := provider.Meter(name)

	ratingRuns, err := meter.Int64Counter("signbilling_rating_runs_total")
	if err != nil {
		return nil, err
	}
	ratingDuration, err := meter.Float64Histogram("signbilling_rating_run_duration_seconds", metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}
	processed, err := meter.Int64Counter("signbilling_transactions_processed_total")
	if err != nil {
		return nil, err
	}
	skipped, err := meter.Int64Counter("signbilling_transactions_skipped_total")
	if err != nil {
		return nil, err
	}
	rowsWritten, err := meter.Int64Counter("signbilling_rows_written_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		ratingRuns:            ratingRuns,
		ratingDuration:        ratingDuration,
		transactionsProcessed: processed,
		transactionsSkipped:   skipped,
		rowsWritten:           rowsWritten,
	}, nil
}

// RecordRun counts a finished rating run by its outcome.
func (m *Metrics) RecordRun(ctx context.Context, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("outcome", strings.TrimSpace(outcome)))
	m.ratingRuns.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.ratingDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attrs...))
}

// RecordTransactions counts rated and skipped transactions per payment type.
func (m *Metrics) RecordTransactions(ctx context.Context, paymentType string, processed, skipped int) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("payment_type", strings.TrimSpace(paymentType)))
	if processed > 0 {
		m.transactionsProcessed.Add(ctx, int64(processed), metric.WithAttributes(attrs...))
	}
	if skipped > 0 {
		m.transactionsSkipped.Add(ctx, int64(skipped))
	}
}

// RecordRowsWritten counts persisted rows per table.
func (m *Metrics) RecordRowsWritten(ctx context.Context, table string, rows int) {
	if m == nil || rows <= 0 {
		return
	}
	attrs := FilterAttributes(attribute.String("table", strings.TrimSpace(table)))
	m.rowsWritten.Add(ctx, int64(rows), metric.WithAttributes(attrs...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"outcome":      {},
	"payment_type": {},
	"table":        {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
