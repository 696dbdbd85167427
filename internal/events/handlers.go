package events

import (
	"context"

	auditdomain "github.com/smallbiznis/shelfwise/internal/audit/domain"
	"github.com/smallbiznis/shelfwise/internal/observability/logger"
	"github.com/smallbiznis/shelfwise/internal/observability/metrics"
	"go.uber.org/zap"
)

type AuditHandler struct {
	audit auditdomain.Service
}

func NewAuditHandler(audit auditdomain.Service) *AuditHandler {
	return &AuditHandler{audit: audit}
}

func (h *AuditHandler) Name() string { return "audit" }

func (h *AuditHandler) Handle(ctx context.Context, evt Event) error {
	var targetID *string
	if evt.TargetID != "" {
		id := evt.TargetID
		targetID = &id
	}
	return h.audit.AuditLog(ctx, "", nil, string(evt.Type), evt.TargetType, targetID, evt.Attributes)
}

type MetricsHandler struct {
	metrics *metrics.Metrics
}

func NewMetricsHandler(m *metrics.Metrics) *MetricsHandler {
	return &MetricsHandler{metrics: m}
}

func (h *MetricsHandler) Name() string { return "metrics" }

func (h *MetricsHandler) Handle(ctx context.Context, evt Event) error {
	switch evt.Type {
	case FineAssessed:
		h.metrics.RecordFine(ctx, evt.String(AttrKind), evt.Int64(AttrAmount))
	case InvoiceIssued:
		h.metrics.RecordInvoiceIssued(ctx, evt.String(AttrKind))
	case PaymentRecorded, InvoiceWaived:
		h.metrics.RecordPayment(ctx, evt.String(AttrStatus))
	case StockAdjusted:
		h.metrics.RecordStockAdjustment(ctx, evt.String(AttrType), "applied", 1)
	case OverdueNoticeSent:
		h.metrics.RecordOverdueNotice(ctx, "sent")
	case OverdueNoticeFailed:
		h.metrics.RecordOverdueNotice(ctx, "failed")
	case BooksImported:
		h.metrics.RecordImportRows(ctx, "book", "created", int(evt.Int64(AttrCreated)))
		h.metrics.RecordImportRows(ctx, "book", "updated", int(evt.Int64(AttrUpdated)))
		h.metrics.RecordImportRows(ctx, "book", "skipped", int(evt.Int64(AttrSkipped)))
	case TransactionOpened, TransactionReturned, TransactionCancelled, TransactionArchived, TransactionDelayed:
		h.metrics.RecordCirculationEvent(ctx, string(evt.Type))
	}
	return nil
}

type LogHandler struct {
	log *zap.Logger
}

func NewLogHandler(log *zap.Logger) *LogHandler {
	return &LogHandler{log: log.Named("events")}
}

func (h *LogHandler) Name() string { return "log" }

func (h *LogHandler) Handle(ctx context.Context, evt Event) error {
	logger.WithContext(ctx, h.log).Info("domain event",
		zap.String("event", string(evt.Type)),
		zap.String("target_type", evt.TargetType),
		zap.String("target_id", evt.TargetID),
		zap.Time("occurred_at", evt.OccurredAt),
	)
	return nil
}
