package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/shelfwise/internal/events"
	"github.com/smallbiznis/shelfwise/pkg/db/pagination"
	"github.com/smallbiznis/shelfwise/pkg/money"
	"gorm.io/gorm"
)

// ItemFine is the assessed fine breakdown for one returned item.
type ItemFine struct {
	ItemID   snowflake.ID
	BookID   snowflake.ID
	Title    string
	DaysLate int
	Overdue  money.Amount
	Lost     money.Amount
	Damage   money.Amount
}

type TransactionInput struct {
	TransactionID snowflake.ID
	MemberID      snowflake.ID
	DueDate       time.Time
	Items         []ItemFine
}

type MembershipInput struct {
	MemberID   snowflake.ID
	MemberName string
	TypeName   string
	Fee        money.Amount
}

type ListInvoicesRequest struct {
	pagination.Pagination
	MemberID string `form:"member_id"`
	Status   string `form:"status"`
}

type ListInvoicesResponse struct {
	pagination.PageInfo
	Invoices []Invoice `json:"invoices"`
}

type RecordPaymentRequest struct {
	InvoiceID string       `json:"-"`
	Amount    money.Amount `json:"amount"`
	Method    string       `json:"method"`
	Reference string       `json:"reference"`
}

type WaiveRequest struct {
	InvoiceID string `json:"-"`
	Reason    string `json:"reason"`
}

type Service interface {
	// GenerateForTransaction runs inside the caller's transaction and returns
	// nil when the fines total zero.
	GenerateForTransaction(ctx context.Context, tx *gorm.DB, in TransactionInput) (*Invoice, []events.Event, error)
	// GenerateForMembership returns nil when the fee is not positive.
	GenerateForMembership(ctx context.Context, tx *gorm.DB, in MembershipInput) (*Invoice, []events.Event, error)
	Get(ctx context.Context, id string) (Invoice, error)
	List(ctx context.Context, req ListInvoicesRequest) (ListInvoicesResponse, error)
	RecordPayment(ctx context.Context, req RecordPaymentRequest) (Invoice, []events.Event, error)
	Waive(ctx context.Context, req WaiveRequest) (Invoice, []events.Event, error)
	RenderPDF(ctx context.Context, id string) ([]byte, Invoice, error)
	RenderReceipt(ctx context.Context, id string) ([]byte, Invoice, error)
}

var (
	ErrNotFound                 = errors.New("invoice_not_found")
	ErrInvalidID                = errors.New("invalid_invoice_id")
	ErrInvalidMember            = errors.New("invalid_member_id")
	ErrInvalidStatus            = errors.New("invalid_invoice_status")
	ErrInvalidAmount            = errors.New("invalid_payment_amount")
	ErrInvalidMethod            = errors.New("invalid_payment_method")
	ErrPartialPaymentNotAllowed = errors.New("partial_payment_not_allowed")
	ErrOverpayment              = errors.New("payment_exceeds_amount_due")
	ErrInvoiceClosed            = errors.New("invoice_closed")
	ErrConcurrentUpdate         = errors.New("invoice_concurrent_update")
)
