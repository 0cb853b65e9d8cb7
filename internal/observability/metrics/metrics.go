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

// Metrics exposes application-level instruments.
type Metrics struct {
	feesComputed metric.Int64Counter
	feeErrors    metric.Int64Counter
	feeAmount    metric.Int64Histogram
	groupsPriced metric.Int64Counter
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

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "chargeengine"
	}
	meter := provider.Meter(name)

	feesComputed, err := meter.Int64Counter("chargeengine_fees_computed_total")
	if err != nil {
		return nil, err
	}
	feeErrors, err := meter.Int64Counter("chargeengine_fee_errors_total")
	if err != nil {
		return nil, err
	}
	feeAmount, err := meter.Int64Histogram("chargeengine_fee_amount_cents",
		metric.WithDescription("Fee amounts in the currency's minor unit."),
	)
	if err != nil {
		return nil, err
	}
	groupsPriced, err := meter.Int64Counter("chargeengine_groups_priced_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		feesComputed: feesComputed,
		feeErrors:    feeErrors,
		feeAmount:    feeAmount,
		groupsPriced: groupsPriced,
	}, nil
}

// RecordFee counts one computed fee and its amount.
func (m *Metrics) RecordFee(ctx context.Context, chargeModel, currency string, amountCents int64) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("charge_model", strings.TrimSpace(chargeModel)),
		attribute.String("currency", strings.TrimSpace(currency)),
	)
	m.feesComputed.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.feeAmount.Record(ctx, amountCents, metric.WithAttributes(attrs...))
}

// RecordGroups counts groups priced through the fan-out.
func (m *Metrics) RecordGroups(ctx context.Context, chargeModel string, groups int) {
	if m == nil || groups <= 0 {
		return
	}
	attrs := FilterAttributes(attribute.String("charge_model", strings.TrimSpace(chargeModel)))
	m.groupsPriced.Add(ctx, int64(groups), metric.WithAttributes(attrs...))
}

// RecordFeeError increments fee error counts.
func (m *Metrics) RecordFeeError(ctx context.Context, chargeModel, reason string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("charge_model", strings.TrimSpace(chargeModel)),
		attribute.String("reason", strings.TrimSpace(reason)),
	)
	m.feeErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
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
	"charge_model": {},
	"currency":     {},
	"grouped":      {},
	"reason":       {},
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
