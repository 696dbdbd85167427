package domain

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/shelfwise/internal/events"
	invoicedomain "github.com/smallbiznis/shelfwise/internal/invoice/domain"
)

type BorrowRequest struct {
	MemberID   string     `json:"member_id"`
	BookIDs    []string   `json:"book_ids"`
	BorrowedAt *time.Time `json:"borrowed_at"`
	Notes      string     `json:"notes"`
}

type ReturnItem struct {
	ItemID   string `json:"item_id"`
	Outcome  string `json:"outcome"`
	Severity string `json:"severity"`
}

// ReturnRequest closes a transaction. Items not listed are returned intact.
type ReturnRequest struct {
	TransactionID string       `json:"-"`
	ReturnedAt    *time.Time   `json:"returned_at"`
	Items         []ReturnItem `json:"items"`
}

type ReturnResult struct {
	Transaction Transaction            `json:"transaction"`
	Invoice     *invoicedomain.Invoice `json:"invoice,omitempty"`
}

type Service interface {
	Borrow(ctx context.Context, req BorrowRequest) (Transaction, []events.Event, error)
	Get(ctx context.Context, id string) (Transaction, error)
	Return(ctx context.Context, req ReturnRequest) (ReturnResult, []events.Event, error)
	Cancel(ctx context.Context, id string) (Transaction, []events.Event, error)
	Archive(ctx context.Context, id string) (Transaction, []events.Event, error)
	UpdateNotes(ctx context.Context, id, notes string) (Transaction, error)
	Delete(ctx context.Context, id string) error
	ListOverdue(ctx context.Context, now time.Time) ([]MemberOverdue, error)
	MarkDelayed(ctx context.Context, now time.Time) (int, []events.Event, error)
}

var (
	ErrInvalidID          = errors.New("invalid_transaction_id")
	ErrInvalidMember      = errors.New("invalid_member_id")
	ErrInvalidBook        = errors.New("invalid_book_id")
	ErrInvalidItem        = errors.New("invalid_transaction_item")
	ErrInvalidOutcome     = errors.New("invalid_return_outcome")
	ErrNoBooks            = errors.New("no_books_requested")
	ErrDuplicateBook      = errors.New("duplicate_book_in_request")
	ErrDuplicateItem      = errors.New("duplicate_item_in_request")
	ErrTooManyBooks       = errors.New("max_books_exceeded")
	ErrMemberNotFound     = errors.New("member_not_found")
	ErrBookNotFound       = errors.New("book_not_found")
	ErrNoActiveMembership = errors.New("no_active_membership")
	ErrNotFound           = errors.New("transaction_not_found")
	ErrTransactionLocked  = errors.New("transaction_locked")
	ErrInvalidTransition  = errors.New("invalid_lifecycle_transition")
	ErrReturnBeforeBorrow = errors.New("return_before_borrow")
	ErrNotesTooLong       = errors.New("notes_too_long")
)
