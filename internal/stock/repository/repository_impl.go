package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/shelfwise/internal/stock/domain"
	"github.com/smallbiznis/shelfwise/pkg/repository"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindBooks(ctx context.Context, db *gorm.DB, ids []snowflake.ID) (map[snowflake.ID]domain.BookStock, error) {
	out := make(map[snowflake.ID]domain.BookStock, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []domain.BookStock
	err := db.WithContext(ctx).Raw(
		`SELECT id, title, stock, version FROM books WHERE id IN ?`,
		ids,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ID] = row
	}
	return out, nil
}

func (r *repo) UpdateStock(ctx context.Context, db *gorm.DB, book domain.BookStock, stock int, at time.Time) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE books SET stock = ?, version = version + 1, updated_at = ? WHERE id = ? AND version = ?`,
		stock,
		at,
		book.ID,
		book.Version,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repo) InsertTransaction(ctx context.Context, db *gorm.DB, txn *domain.StockTransaction) error {
	err := db.WithContext(ctx).Exec(
		`INSERT INTO stock_transactions (id, type, actor, reason, created_at) VALUES (?, ?, ?, ?, ?)`,
		txn.ID,
		txn.Type,
		txn.Actor,
		txn.Reason,
		txn.CreatedAt,
	).Error
	if err != nil {
		return err
	}

	items := make([]*domain.StockTransactionItem, 0, len(txn.Items))
	for i := range txn.Items {
		items = append(items, &txn.Items[i])
	}
	return repository.ProvideStore[domain.StockTransactionItem](db).BatchCreate(ctx, items)
}

func (r *repo) ListByBook(ctx context.Context, db *gorm.DB, bookID snowflake.ID, limit int) ([]domain.StockTransaction, error) {
	var rows []struct {
		domain.StockTransactionItem
		Type      domain.AdjustmentType
		Actor     string
		Reason    string
		CreatedAt time.Time
	}
	err := db.WithContext(ctx).Raw(
		`SELECT i.id, i.stock_transaction_id, i.book_id, i.quantity, i.old_stock, i.new_stock,
			t.type, t.actor, t.reason, t.created_at
		 FROM stock_transaction_items i
		 JOIN stock_transactions t ON t.id = i.stock_transaction_id
		 WHERE i.book_id = ?
		 ORDER BY t.created_at DESC, t.id DESC
		 LIMIT ?`,
		bookID,
		limit,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]domain.StockTransaction, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.StockTransaction{
			ID:        row.StockTransactionID,
			Type:      row.Type,
			Actor:     row.Actor,
			Reason:    row.Reason,
			CreatedAt: row.CreatedAt,
			Items:     []domain.StockTransactionItem{row.StockTransactionItem},
		})
	}
	return out, nil
}
