// Package domain contains persistence models for member invoices.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/shelfwise/pkg/money"
)

type InvoiceStatus string

const (
	InvoiceStatusUnpaid        InvoiceStatus = "unpaid"
	InvoiceStatusPartiallyPaid InvoiceStatus = "partially_paid"
	InvoiceStatusPaid          InvoiceStatus = "paid"
	InvoiceStatusWaived        InvoiceStatus = "waived"
)

func (s InvoiceStatus) Valid() bool {
	switch s {
	case InvoiceStatusUnpaid, InvoiceStatusPartiallyPaid, InvoiceStatusPaid, InvoiceStatusWaived:
		return true
	}
	return false
}

// Closed reports whether the invoice no longer accepts payments.
func (s InvoiceStatus) Closed() bool {
	return s == InvoiceStatusPaid || s == InvoiceStatusWaived
}

type InvoiceKind string

const (
	InvoiceKindTransaction InvoiceKind = "transaction"
	InvoiceKindMembership  InvoiceKind = "membership"
)

type LineKind string

const (
	LineKindOverdue    LineKind = "overdue"
	LineKindLost       LineKind = "lost"
	LineKindDamage     LineKind = "damage"
	LineKindMembership LineKind = "membership"
)

type Invoice struct {
	ID            snowflake.ID  `gorm:"primaryKey" json:"id"`
	InvoiceNumber string        `gorm:"type:varchar(64);not null;uniqueIndex" json:"invoice_number"`
	MemberID      snowflake.ID  `gorm:"not null;index" json:"member_id"`
	TransactionID *snowflake.ID `gorm:"index" json:"transaction_id,omitempty"`
	Kind          InvoiceKind   `gorm:"type:varchar(16);not null" json:"kind"`
	Status        InvoiceStatus `gorm:"type:varchar(16);not null;index" json:"status"`
	OverdueTotal  money.Amount  `gorm:"column:overdue_total_cents;not null;default:0" json:"overdue_total"`
	LostTotal     money.Amount  `gorm:"column:lost_total_cents;not null;default:0" json:"lost_total"`
	DamageTotal   money.Amount  `gorm:"column:damage_total_cents;not null;default:0" json:"damage_total"`
	TotalAmount   money.Amount  `gorm:"column:total_amount_cents;not null;default:0" json:"total_amount"`
	AmountPaid    money.Amount  `gorm:"column:amount_paid_cents;not null;default:0" json:"amount_paid"`
	AmountDue     money.Amount  `gorm:"column:amount_due_cents;not null;default:0" json:"amount_due"`
	CurrencyCode  string        `gorm:"type:varchar(3);not null" json:"currency_code"`
	IssuedAt      time.Time     `gorm:"not null;index" json:"issued_at"`
	DueDate       time.Time     `gorm:"not null" json:"due_date"`
	WaivedAt      *time.Time    `json:"waived_at,omitempty"`
	Notes         string        `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt     time.Time     `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time     `gorm:"not null" json:"updated_at"`

	Lines    []InvoiceLine `gorm:"-" json:"lines,omitempty"`
	Payments []Payment     `gorm:"-" json:"payments,omitempty"`
	// Overdue is derived on read from DueDate and AmountDue.
	Overdue bool `gorm:"-" json:"overdue"`
}

func (Invoice) TableName() string { return "invoices" }

type InvoiceLine struct {
	ID                snowflake.ID  `gorm:"primaryKey" json:"id"`
	InvoiceID         snowflake.ID  `gorm:"not null;index" json:"invoice_id"`
	Position          int           `gorm:"not null" json:"position"`
	Kind              LineKind      `gorm:"type:varchar(16);not null" json:"kind"`
	Description       string        `gorm:"type:text;not null" json:"description"`
	BookID            *snowflake.ID `json:"book_id,omitempty"`
	TransactionItemID *snowflake.ID `json:"transaction_item_id,omitempty"`
	Amount            money.Amount  `gorm:"column:amount_cents;not null" json:"amount"`
}

func (InvoiceLine) TableName() string { return "invoice_lines" }

type Payment struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	InvoiceID  snowflake.ID `gorm:"not null;index" json:"invoice_id"`
	Amount     money.Amount `gorm:"column:amount_cents;not null" json:"amount"`
	Method     string       `gorm:"type:varchar(32);not null" json:"method"`
	Reference  string       `gorm:"type:varchar(128)" json:"reference,omitempty"`
	Actor      string       `gorm:"type:varchar(128)" json:"actor,omitempty"`
	RecordedAt time.Time    `gorm:"not null" json:"recorded_at"`
}

func (Payment) TableName() string { return "invoice_payments" }

func Models() []any {
	return []any{&Invoice{}, &InvoiceLine{}, &Payment{}}
}
