package domain

import (
	"context"
	"errors"

	"github.com/smallbiznis/shelfwise/internal/events"
	invoicedomain "github.com/smallbiznis/shelfwise/internal/invoice/domain"
	"github.com/smallbiznis/shelfwise/pkg/money"
)

type CreateTypeRequest struct {
	Name          string       `json:"name" validate:"required,max=100"`
	MaxBorrowDays int          `json:"max_borrow_days" validate:"gte=1,lte=365"`
	MaxBooks      int          `json:"max_books" validate:"gte=1,lte=100"`
	Fee           money.Amount `json:"fee" validate:"gte=0"`
	Active        *bool        `json:"active"`
}

type CreateMemberRequest struct {
	Name             string `json:"name" validate:"required,max=255"`
	Email            string `json:"email" validate:"required,email,max=255"`
	MembershipTypeID string `json:"membership_type_id"`
}

type AssignMembershipRequest struct {
	MemberID         string `json:"-"`
	MembershipTypeID string `json:"membership_type_id"`
}

// AssignResult carries the fee invoice when the membership type charges one.
type AssignResult struct {
	Member  Member                 `json:"member"`
	Invoice *invoicedomain.Invoice `json:"invoice,omitempty"`
}

type Service interface {
	CreateType(ctx context.Context, req CreateTypeRequest) (MembershipType, error)
	ListTypes(ctx context.Context, activeOnly bool) ([]MembershipType, error)
	CreateMember(ctx context.Context, req CreateMemberRequest) (AssignResult, []events.Event, error)
	GetMember(ctx context.Context, id string) (Member, error)
	AssignMembership(ctx context.Context, req AssignMembershipRequest) (AssignResult, []events.Event, error)
}

var (
	ErrInvalidID          = errors.New("invalid_member_id")
	ErrInvalidName        = errors.New("invalid_name")
	ErrInvalidEmail       = errors.New("invalid_email")
	ErrInvalidBorrowDays  = errors.New("invalid_max_borrow_days")
	ErrInvalidMaxBooks    = errors.New("invalid_max_books")
	ErrInvalidFee         = errors.New("invalid_fee")
	ErrInvalidType        = errors.New("invalid_membership_type")
	ErrInactiveType       = errors.New("membership_type_inactive")
	ErrDuplicateTypeName  = errors.New("membership_type_exists")
	ErrDuplicateEmail     = errors.New("member_email_exists")
	ErrNotFound           = errors.New("member_not_found")
	ErrTypeNotFound       = errors.New("membership_type_not_found")
	ErrNoActiveMembership = errors.New("no_active_membership")
)
