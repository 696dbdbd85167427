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

// Metrics exposes library domain instruments.
type Metrics struct {
	finesAssessed     metric.Int64Counter
	fineCents         metric.Int64Counter
	invoicesIssued    metric.Int64Counter
	paymentsRecorded  metric.Int64Counter
	stockAdjustments  metric.Int64Counter
	overdueNotices    metric.Int64Counter
	importRows        metric.Int64Counter
	circulationEvents metric.Int64Counter
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
		name = "shelfwise"
	}
	meter := provider.Meter(name)

	var (
		m   Metrics
		err error
	)
	counters := []struct {
		dst  *metric.Int64Counter
		name string
		unit string
	}{
		{&m.finesAssessed, "shelfwise_fines_assessed_total", "{fine}"},
		{&m.fineCents, "shelfwise_fines_assessed_cents_total", "{cent}"},
		{&m.invoicesIssued, "shelfwise_invoices_issued_total", "{invoice}"},
		{&m.paymentsRecorded, "shelfwise_payments_recorded_total", "{payment}"},
		{&m.stockAdjustments, "shelfwise_stock_adjustments_total", "{adjustment}"},
		{&m.overdueNotices, "shelfwise_overdue_notices_total", "{notice}"},
		{&m.importRows, "shelfwise_import_rows_total", "{row}"},
		{&m.circulationEvents, "shelfwise_circulation_events_total", "{event}"},
	}
	for _, c := range counters {
		*c.dst, err = meter.Int64Counter(c.name, metric.WithUnit(c.unit))
		if err != nil {
			return nil, err
		}
	}
	return &m, nil
}

// RecordFine counts a non-zero fine by kind (overdue, lost, damage).
func (m *Metrics) RecordFine(ctx context.Context, kind string, cents int64) {
	if m == nil || cents <= 0 {
		return
	}
	attrs := metric.WithAttributes(FilterAttributes(attribute.String("kind", strings.TrimSpace(kind)))...)
	m.finesAssessed.Add(ctx, 1, attrs)
	m.fineCents.Add(ctx, cents, attrs)
}

func (m *Metrics) RecordInvoiceIssued(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	m.invoicesIssued.Add(ctx, 1, metric.WithAttributes(FilterAttributes(attribute.String("kind", strings.TrimSpace(kind)))...))
}

func (m *Metrics) RecordPayment(ctx context.Context, status string) {
	if m == nil {
		return
	}
	m.paymentsRecorded.Add(ctx, 1, metric.WithAttributes(FilterAttributes(attribute.String("status", strings.TrimSpace(status)))...))
}

// RecordStockAdjustment counts adjustment items by type and outcome (applied, rejected).
func (m *Metrics) RecordStockAdjustment(ctx context.Context, adjustmentType, outcome string, count int) {
	if m == nil || count <= 0 {
		return
	}
	attrs := FilterAttributes(
		attribute.String("type", strings.TrimSpace(adjustmentType)),
		attribute.String("outcome", strings.TrimSpace(outcome)),
	)
	m.stockAdjustments.Add(ctx, int64(count), metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordOverdueNotice(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.overdueNotices.Add(ctx, 1, metric.WithAttributes(FilterAttributes(attribute.String("outcome", strings.TrimSpace(outcome)))...))
}

func (m *Metrics) RecordImportRows(ctx context.Context, entity, outcome string, count int) {
	if m == nil || count <= 0 {
		return
	}
	attrs := FilterAttributes(
		attribute.String("entity", strings.TrimSpace(entity)),
		attribute.String("outcome", strings.TrimSpace(outcome)),
	)
	m.importRows.Add(ctx, int64(count), metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordCirculationEvent(ctx context.Context, eventType string) {
	if m == nil {
		return
	}
	m.circulationEvents.Add(ctx, 1, metric.WithAttributes(FilterAttributes(attribute.String("event_type", strings.TrimSpace(eventType)))...))
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

// Member, book and invoice identifiers never become labels.
var allowedLabelKeys = map[attribute.Key]struct{}{
	"kind":        {},
	"type":        {},
	"status":      {},
	"outcome":     {},
	"entity":      {},
	"event_type":  {},
	"endpoint":    {},
	"status_code": {},
	"reason":      {},
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
