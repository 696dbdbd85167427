package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/smallbiznis/shelfwise/internal/events"
	"gorm.io/gorm"
)

type AdjustItem struct {
	BookID   string `json:"book_id"`
	Quantity int    `json:"quantity"`
}

type AdjustRequest struct {
	Type   string       `json:"type"`
	Actor  string       `json:"actor"`
	Reason string       `json:"reason"`
	Items  []AdjustItem `json:"items"`
}

type Service interface {
	// Adjust applies every item or none of them.
	Adjust(ctx context.Context, req AdjustRequest) (StockTransaction, []events.Event, error)
	// AdjustInTx applies the adjustment inside the caller's transaction
	// without retrying on a version conflict.
	AdjustInTx(ctx context.Context, tx *gorm.DB, req AdjustRequest) (StockTransaction, []events.Event, error)
	List(ctx context.Context, bookID string) ([]StockTransaction, error)
}

var (
	ErrValidation       = errors.New("invalid_stock_adjustment")
	ErrNoItems          = errors.New("no_adjustment_items")
	ErrInvalidBookID    = errors.New("invalid_book_id")
	ErrConcurrentUpdate = errors.New("stock_concurrent_update")
)

type ItemError struct {
	Index   int    `json:"index"`
	BookID  string `json:"book_id,omitempty"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors collects every rejected item of one submission.
type ValidationErrors []ItemError

func (v ValidationErrors) Error() string {
	parts := make([]string, 0, len(v))
	for _, e := range v {
		parts = append(parts, fmt.Sprintf("items[%d].%s: %s", e.Index, e.Field, e.Message))
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

func (v ValidationErrors) Is(target error) bool {
	return target == ErrValidation
}
