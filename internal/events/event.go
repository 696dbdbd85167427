// Package events carries domain events returned by service operations.
// Services never publish on save; the caller dispatches what it received
// once the database transaction has committed.
package events

import (
	"time"
)

type Type string

const (
	TransactionOpened    Type = "transaction.opened"
	TransactionReturned  Type = "transaction.returned"
	TransactionCancelled Type = "transaction.cancelled"
	TransactionArchived  Type = "transaction.archived"
	TransactionDelayed   Type = "transaction.delayed"
	FineAssessed         Type = "fine.assessed"
	InvoiceIssued        Type = "invoice.issued"
	PaymentRecorded      Type = "invoice.payment_recorded"
	InvoiceWaived        Type = "invoice.waived"
	MembershipAssigned   Type = "membership.assigned"
	StockAdjusted        Type = "stock.adjusted"
	OverdueNoticeSent    Type = "notice.overdue_sent"
	OverdueNoticeFailed  Type = "notice.overdue_failed"
	BooksImported        Type = "catalog.books_imported"
)

// Attribute keys shared by producers and handlers.
const (
	AttrKind     = "kind"
	AttrType     = "type"
	AttrStatus   = "status"
	AttrAmount   = "amount_cents"
	AttrQuantity = "quantity"
	AttrOldStock = "old_stock"
	AttrNewStock = "new_stock"
	AttrMemberID = "member_id"
	AttrCreated  = "created"
	AttrUpdated  = "updated"
	AttrSkipped  = "skipped"
)

type Event struct {
	Type       Type
	OccurredAt time.Time
	TargetType string
	TargetID   string
	Attributes map[string]any
}

func New(t Type, at time.Time, targetType, targetID string, attrs map[string]any) Event {
	if attrs == nil {
		attrs = map[string]any{}
	}
	return Event{
		Type:       t,
		OccurredAt: at.UTC(),
		TargetType: targetType,
		TargetID:   targetID,
		Attributes: attrs,
	}
}

func (e Event) String(key string) string {
	v, _ := e.Attributes[key].(string)
	return v
}

func (e Event) Int64(key string) int64 {
	switch v := e.Attributes[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	default:
		return 0
	}
}
