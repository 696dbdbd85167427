package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, txn *Transaction) error
	// FindByID loads the transaction with its items and book titles.
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Transaction, error)
	SaveReturn(ctx context.Context, db *gorm.DB, txn *Transaction) error
	// UpdateLifecycle moves the lifecycle only if it is still from.
	UpdateLifecycle(ctx context.Context, db *gorm.DB, id snowflake.ID, from, to Lifecycle, at time.Time) (bool, error)
	UpdateNotes(ctx context.Context, db *gorm.DB, id snowflake.ID, notes string, at time.Time) (bool, error)
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error)

	ListOverdue(ctx context.Context, db *gorm.DB, now time.Time, after OverdueCursor, limit int) ([]OverdueLoan, error)
	// MarkDelayed flags active borrowed transactions due before now and
	// returns their ids.
	MarkDelayed(ctx context.Context, db *gorm.DB, now time.Time, limit int) ([]snowflake.ID, error)
}
