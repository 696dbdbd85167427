package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/shelfwise/internal/circulation/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, txn *domain.Transaction) error {
	err := db.WithContext(ctx).Exec(
		`INSERT INTO transactions (id, member_id, borrowed_date, due_date, returned_date, status, lifecycle_status, notes, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		txn.ID,
		txn.MemberID,
		txn.BorrowedDate,
		txn.DueDate,
		txn.ReturnedDate,
		txn.Status,
		txn.LifecycleStatus,
		txn.Notes,
		txn.CreatedAt,
		txn.UpdatedAt,
	).Error
	if err != nil {
		return err
	}

	for _, item := range txn.Items {
		err := db.WithContext(ctx).Exec(
			`INSERT INTO transaction_items (id, transaction_id, book_id, borrowed_for, item_status, damage_severity,
				overdue_fine_cents, lost_fine_cents, damage_fine_cents, total_fine_cents)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			item.ID,
			item.TransactionID,
			item.BookID,
			item.BorrowedFor,
			item.ItemStatus,
			item.DamageSeverity,
			item.OverdueFine,
			item.LostFine,
			item.DamageFine,
			item.TotalFine,
		).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Transaction, error) {
	var txn domain.Transaction
	err := db.WithContext(ctx).Raw(
		`SELECT id, member_id, borrowed_date, due_date, returned_date, status, lifecycle_status, notes, created_at, updated_at
		 FROM transactions WHERE id = ?`,
		id,
	).Scan(&txn).Error
	if err != nil {
		return nil, err
	}
	if txn.ID == 0 {
		return nil, nil
	}

	var rows []struct {
		domain.TransactionItem
		BookTitle string
	}
	err = db.WithContext(ctx).Raw(
		`SELECT i.id, i.transaction_id, i.book_id, i.borrowed_for, i.item_status, i.damage_severity,
			i.overdue_fine_cents, i.lost_fine_cents, i.damage_fine_cents, i.total_fine_cents, b.title AS book_title
		 FROM transaction_items i
		 LEFT JOIN books b ON b.id = i.book_id
		 WHERE i.transaction_id = ?
		 ORDER BY i.id`,
		id,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	txn.Items = make([]domain.TransactionItem, 0, len(rows))
	for _, row := range rows {
		item := row.TransactionItem
		item.Title = row.BookTitle
		txn.Items = append(txn.Items, item)
	}
	return &txn, nil
}

func (r *repo) SaveReturn(ctx context.Context, db *gorm.DB, txn *domain.Transaction) error {
	result := db.WithContext(ctx).Exec(
		`UPDATE transactions SET returned_date = ?, status = ?, lifecycle_status = ?, updated_at = ?
		 WHERE id = ? AND returned_date IS NULL`,
		txn.ReturnedDate,
		txn.Status,
		txn.LifecycleStatus,
		txn.UpdatedAt,
		txn.ID,
	)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrTransactionLocked
	}

	for _, item := range txn.Items {
		err := db.WithContext(ctx).Exec(
			`UPDATE transaction_items SET item_status = ?, damage_severity = ?,
				overdue_fine_cents = ?, lost_fine_cents = ?, damage_fine_cents = ?, total_fine_cents = ?
			 WHERE id = ?`,
			item.ItemStatus,
			item.DamageSeverity,
			item.OverdueFine,
			item.LostFine,
			item.DamageFine,
			item.TotalFine,
			item.ID,
		).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *repo) UpdateLifecycle(ctx context.Context, db *gorm.DB, id snowflake.ID, from, to domain.Lifecycle, at time.Time) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE transactions SET lifecycle_status = ?, updated_at = ? WHERE id = ? AND lifecycle_status = ?`,
		to,
		at,
		id,
		from,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repo) UpdateNotes(ctx context.Context, db *gorm.DB, id snowflake.ID, notes string, at time.Time) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE transactions SET notes = ?, updated_at = ? WHERE id = ? AND returned_date IS NULL`,
		notes,
		at,
		id,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`DELETE FROM transactions WHERE id = ? AND returned_date IS NULL`,
		id,
	)
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected == 0 {
		return false, nil
	}
	err := db.WithContext(ctx).Exec(
		`DELETE FROM transaction_items WHERE transaction_id = ?`,
		id,
	).Error
	return err == nil, err
}

func (r *repo) ListOverdue(ctx context.Context, db *gorm.DB, now time.Time, after domain.OverdueCursor, limit int) ([]domain.OverdueLoan, error) {
	var loans []domain.OverdueLoan
	err := db.WithContext(ctx).Raw(
		`SELECT t.id AS transaction_id, i.id AS item_id, t.member_id, m.name AS member_name, m.email AS member_email,
			t.due_date, i.book_id, b.title, b.price_cents AS price
		 FROM transactions t
		 JOIN transaction_items i ON i.transaction_id = t.id
		 JOIN members m ON m.id = t.member_id
		 JOIN books b ON b.id = i.book_id
		 WHERE t.lifecycle_status = ? AND t.due_date < ? AND i.item_status = ?
		   AND (t.member_id > ? OR (t.member_id = ? AND i.id > ?))
		 ORDER BY t.member_id, i.id
		 LIMIT ?`,
		domain.LifecycleActive,
		now,
		domain.ItemBorrowed,
		after.MemberID,
		after.MemberID,
		after.ItemID,
		limit,
	).Scan(&loans).Error
	if err != nil {
		return nil, err
	}
	return loans, nil
}

func (r *repo) MarkDelayed(ctx context.Context, db *gorm.DB, now time.Time, limit int) ([]snowflake.ID, error) {
	var ids []snowflake.ID
	err := db.WithContext(ctx).Raw(
		`SELECT id FROM transactions
		 WHERE lifecycle_status = ? AND status = ? AND due_date < ?
		 ORDER BY due_date, id
		 LIMIT ?`,
		domain.LifecycleActive,
		domain.StatusBorrowed,
		now,
		limit,
	).Scan(&ids).Error
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	err = db.WithContext(ctx).Exec(
		`UPDATE transactions SET status = ?, updated_at = ? WHERE id IN ? AND status = ?`,
		domain.StatusDelayed,
		now,
		ids,
		domain.StatusBorrowed,
	).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
