package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/shelfwise/internal/invoice/domain"
	"github.com/smallbiznis/shelfwise/pkg/money"
	"github.com/smallbiznis/shelfwise/pkg/repository"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

const invoiceColumns = `id, invoice_number, member_id, transaction_id, kind, status,
	overdue_total_cents, lost_total_cents, damage_total_cents, total_amount_cents,
	amount_paid_cents, amount_due_cents, currency_code, issued_at, due_date, waived_at, notes,
	created_at, updated_at`

func (r *repo) Insert(ctx context.Context, db *gorm.DB, inv *domain.Invoice) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO invoices (`+invoiceColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.ID,
		inv.InvoiceNumber,
		inv.MemberID,
		inv.TransactionID,
		inv.Kind,
		inv.Status,
		inv.OverdueTotal,
		inv.LostTotal,
		inv.DamageTotal,
		inv.TotalAmount,
		inv.AmountPaid,
		inv.AmountDue,
		inv.CurrencyCode,
		inv.IssuedAt,
		inv.DueDate,
		inv.WaivedAt,
		inv.Notes,
		inv.CreatedAt,
		inv.UpdatedAt,
	).Error
}

func (r *repo) InsertLines(ctx context.Context, db *gorm.DB, lines []domain.InvoiceLine) error {
	for _, line := range lines {
		err := db.WithContext(ctx).Exec(
			`INSERT INTO invoice_lines (id, invoice_id, position, kind, description, book_id, transaction_item_id, amount_cents)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			line.ID,
			line.InvoiceID,
			line.Position,
			line.Kind,
			line.Description,
			line.BookID,
			line.TransactionItemID,
			line.Amount,
		).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Invoice, error) {
	var inv domain.Invoice
	err := db.WithContext(ctx).Raw(
		`SELECT `+invoiceColumns+` FROM invoices WHERE id = ?`,
		id,
	).Scan(&inv).Error
	if err != nil {
		return nil, err
	}
	if inv.ID == 0 {
		return nil, nil
	}
	return &inv, nil
}

func (r *repo) ListLines(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID) ([]domain.InvoiceLine, error) {
	var lines []domain.InvoiceLine
	err := db.WithContext(ctx).Raw(
		`SELECT id, invoice_id, position, kind, description, book_id, transaction_item_id, amount_cents
		 FROM invoice_lines WHERE invoice_id = ? ORDER BY position`,
		invoiceID,
	).Scan(&lines).Error
	if err != nil {
		return nil, err
	}
	return lines, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]*domain.Invoice, error) {
	var invoices []*domain.Invoice
	stmt := db.WithContext(ctx).Model(&domain.Invoice{})

	if filter.MemberID != nil {
		stmt = stmt.Where("member_id = ?", *filter.MemberID)
	}
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.Cursor != nil {
		stmt = stmt.Where("(issued_at < ?) OR (issued_at = ? AND id < ?)",
			filter.Cursor.IssuedAt,
			filter.Cursor.IssuedAt,
			filter.Cursor.ID,
		)
	}

	stmt = stmt.Order("issued_at desc, id desc")
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit + 1)
	}

	if err := stmt.Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

func (r *repo) CountIssuedBetween(ctx context.Context, db *gorm.DB, start, end time.Time) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM invoices WHERE issued_at >= ? AND issued_at < ?`,
		start,
		end,
	).Scan(&count).Error
	return count, err
}

func (r *repo) UpdateSettlement(ctx context.Context, db *gorm.DB, inv *domain.Invoice, expectedPaid money.Amount) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE invoices SET amount_paid_cents = ?, amount_due_cents = ?, status = ?, waived_at = ?, notes = ?, updated_at = ?
		 WHERE id = ? AND amount_paid_cents = ?`,
		inv.AmountPaid,
		inv.AmountDue,
		inv.Status,
		inv.WaivedAt,
		inv.Notes,
		inv.UpdatedAt,
		inv.ID,
		expectedPaid,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repo) InsertPayment(ctx context.Context, db *gorm.DB, payment *domain.Payment) error {
	return repository.ProvideStore[domain.Payment](db).Create(ctx, payment)
}

func (r *repo) ListPayments(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID) ([]domain.Payment, error) {
	rows, err := repository.ProvideStore[domain.Payment](db).Find(ctx,
		&domain.Payment{InvoiceID: invoiceID},
		repository.OrderBy("recorded_at asc, id asc"),
	)
	if err != nil {
		return nil, err
	}
	payments := make([]domain.Payment, 0, len(rows))
	for _, p := range rows {
		payments = append(payments, *p)
	}
	return payments, nil
}

func (r *repo) FindBillTo(ctx context.Context, db *gorm.DB, memberID snowflake.ID) (*domain.BillTo, error) {
	var row struct {
		Name  string
		Email string
	}
	err := db.WithContext(ctx).Raw(
		`SELECT name, email FROM members WHERE id = ?`,
		memberID,
	).Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.Name == "" && row.Email == "" {
		return nil, nil
	}
	return &domain.BillTo{Name: row.Name, Email: row.Email}, nil
}

func (r *repo) FindLoanDates(ctx context.Context, db *gorm.DB, transactionID snowflake.ID) (*domain.LoanDates, error) {
	var row struct {
		BorrowedDate time.Time
		DueDate      time.Time
		ReturnedDate *time.Time
	}
	err := db.WithContext(ctx).Raw(
		`SELECT borrowed_date, due_date, returned_date FROM transactions WHERE id = ?`,
		transactionID,
	).Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.BorrowedDate.IsZero() {
		return nil, nil
	}
	return &domain.LoanDates{
		BorrowedDate: row.BorrowedDate,
		DueDate:      row.DueDate,
		ReturnedDate: row.ReturnedDate,
	}, nil
}

func (r *repo) FindBookTitles(ctx context.Context, db *gorm.DB, bookIDs []snowflake.ID) (map[snowflake.ID]string, error) {
	titles := make(map[snowflake.ID]string, len(bookIDs))
	if len(bookIDs) == 0 {
		return titles, nil
	}
	var rows []struct {
		ID    snowflake.ID
		Title string
	}
	err := db.WithContext(ctx).Raw(
		`SELECT id, title FROM books WHERE id IN ?`,
		bookIDs,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		titles[row.ID] = row.Title
	}
	return titles, nil
}
