package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	FindBooks(ctx context.Context, db *gorm.DB, ids []snowflake.ID) (map[snowflake.ID]BookStock, error)
	// UpdateStock writes stock only when the row still has the given version.
	UpdateStock(ctx context.Context, db *gorm.DB, book BookStock, stock int, at time.Time) (bool, error)
	InsertTransaction(ctx context.Context, db *gorm.DB, txn *StockTransaction) error
	ListByBook(ctx context.Context, db *gorm.DB, bookID snowflake.ID, limit int) ([]StockTransaction, error)
}
