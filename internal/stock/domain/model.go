package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type StockTransaction struct {
	ID        snowflake.ID   `gorm:"primaryKey" json:"id"`
	Type      AdjustmentType `gorm:"type:varchar(16);not null" json:"type"`
	Actor     string         `gorm:"type:varchar(128)" json:"actor,omitempty"`
	Reason    string         `gorm:"type:text" json:"reason,omitempty"`
	CreatedAt time.Time      `gorm:"not null;index" json:"created_at"`

	Items []StockTransactionItem `gorm:"-" json:"items"`
}

func (StockTransaction) TableName() string { return "stock_transactions" }

type StockTransactionItem struct {
	ID                 snowflake.ID `gorm:"primaryKey" json:"id"`
	StockTransactionID snowflake.ID `gorm:"not null;index" json:"stock_transaction_id"`
	BookID             snowflake.ID `gorm:"not null;index" json:"book_id"`
	Quantity           int          `gorm:"not null" json:"quantity"`
	OldStock           int          `gorm:"not null" json:"old_stock"`
	NewStock           int          `gorm:"not null" json:"new_stock"`
}

func (StockTransactionItem) TableName() string { return "stock_transaction_items" }

// BookStock is the slice of a book row the adjuster reads and writes.
type BookStock struct {
	ID      snowflake.ID
	Title   string
	Stock   int
	Version int64
}

func Models() []any {
	return []any{&StockTransaction{}, &StockTransactionItem{}}
}
