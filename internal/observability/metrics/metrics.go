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

// Metrics exposes domain-level instruments.
type Metrics struct {
	memberships  metric.Int64Counter
	sales        metric.Int64Counter
	saleRejected metric.Int64Counter
	stockAdjust  metric.Int64Counter
	checkIns     metric.Int64Counter
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
				log.Info("shutting down meter provider")
				return provider.Shutdown(ctx)
			},
		})
	}

	log.Info("metrics initialized",
		zap.String("endpoint", cfg.ExporterEndpoint),
		zap.String("protocol", cfg.ExporterProtocol),
	)
	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "gymdesk"
	}
	meter := provider.Meter(name)

	memberships, err := meter.Int64Counter("gymdesk_membership_payments_total")
	if err != nil {
		return nil, err
	}
	sales, err := meter.Int64Counter("gymdesk_sales_total")
	if err != nil {
		return nil, err
	}
	saleRejected, err := meter.Int64Counter("gymdesk_sales_rejected_total")
	if err != nil {
		return nil, err
	}
	stockAdjust, err := meter.Int64Counter("gymdesk_stock_adjustments_total")
	if err != nil {
		return nil, err
	}
	checkIns, err := meter.Int64Counter("gymdesk_check_ins_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		memberships:  memberships,
		sales:        sales,
		saleRejected: saleRejected,
		stockAdjust:  stockAdjust,
		checkIns:     checkIns,
	}, nil
}

// NewNop returns instruments backed by the noop provider, for tests.
func NewNop() *Metrics {
	m, _ := New(Config{}, noop.NewMeterProvider())
	return m
}

// RecordMembershipPayment counts enrollments, initial payments and renewals.
func (m *Metrics) RecordMembershipPayment(ctx context.Context, kind, membershipTag string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("kind", strings.TrimSpace(kind)),
		attribute.String("membership_type", strings.TrimSpace(membershipTag)),
	)
	m.memberships.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordSale counts committed and cancelled sales.
func (m *Metrics) RecordSale(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.sales.Add(ctx, 1, metric.WithAttributes(FilterAttributes(attribute.String("outcome", outcome))...))
}

// RecordSaleRejected counts sales rejected by validation.
func (m *Metrics) RecordSaleRejected(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	m.saleRejected.Add(ctx, 1, metric.WithAttributes(FilterAttributes(attribute.String("reason", reason))...))
}

func (m *Metrics) RecordStockAdjustment(ctx context.Context, source string) {
	if m == nil {
		return
	}
	m.stockAdjust.Add(ctx, 1, metric.WithAttributes(FilterAttributes(attribute.String("source", source))...))
}

func (m *Metrics) RecordCheckIn(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.checkIns.Add(ctx, 1, metric.WithAttributes(FilterAttributes(attribute.String("outcome", outcome))...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{otlpmetrichttp.WithInsecure()}
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
	"kind":            {},
	"membership_type": {},
	"outcome":         {},
	"reason":          {},
	"source":          {},
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
