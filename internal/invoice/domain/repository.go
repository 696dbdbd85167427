package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/shelfwise/pkg/money"
	"gorm.io/gorm"
)

type InvoiceCursor struct {
	ID       snowflake.ID
	IssuedAt time.Time
}

type ListFilter struct {
	MemberID *snowflake.ID
	Status   InvoiceStatus
	Cursor   *InvoiceCursor
	Limit    int
}

// BillTo is the member an invoice is addressed to.
type BillTo struct {
	Name  string
	Email string
}

type LoanDates struct {
	BorrowedDate time.Time
	DueDate      time.Time
	ReturnedDate *time.Time
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, invoice *Invoice) error
	InsertLines(ctx context.Context, db *gorm.DB, lines []InvoiceLine) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Invoice, error)
	ListLines(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID) ([]InvoiceLine, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*Invoice, error)
	CountIssuedBetween(ctx context.Context, db *gorm.DB, start, end time.Time) (int64, error)
	// UpdateSettlement applies new payment totals only if amount_paid still
	// equals expectedPaid. It reports whether the row was updated.
	UpdateSettlement(ctx context.Context, db *gorm.DB, invoice *Invoice, expectedPaid money.Amount) (bool, error)

	InsertPayment(ctx context.Context, db *gorm.DB, payment *Payment) error
	ListPayments(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID) ([]Payment, error)

	FindBillTo(ctx context.Context, db *gorm.DB, memberID snowflake.ID) (*BillTo, error)
	FindLoanDates(ctx context.Context, db *gorm.DB, transactionID snowflake.ID) (*LoanDates, error)
	FindBookTitles(ctx context.Context, db *gorm.DB, bookIDs []snowflake.ID) (map[snowflake.ID]string, error)
}
