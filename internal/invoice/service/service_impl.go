package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/shelfwise/internal/clock"
	"github.com/smallbiznis/shelfwise/internal/config"
	"github.com/smallbiznis/shelfwise/internal/events"
	feedomain "github.com/smallbiznis/shelfwise/internal/fee/domain"
	"github.com/smallbiznis/shelfwise/internal/invoice/assembler"
	"github.com/smallbiznis/shelfwise/internal/invoice/domain"
	"github.com/smallbiznis/shelfwise/internal/invoice/format"
	obscontext "github.com/smallbiznis/shelfwise/internal/observability/context"
	"github.com/smallbiznis/shelfwise/internal/providers/pdf"
	"github.com/smallbiznis/shelfwise/pkg/db/pagination"
	"github.com/smallbiznis/shelfwise/pkg/money"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const dateLayout = "2006-01-02"

var paymentMethods = map[string]struct{}{
	"cash":     {},
	"card":     {},
	"transfer": {},
	"other":    {},
}

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Repo     domain.Repository
	Settings feedomain.SettingsProvider
	Clock    clock.Clock
	PDF      pdf.Provider
	Config   config.Config
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	repo     domain.Repository
	settings feedomain.SettingsProvider
	clock    clock.Clock
	pdf      pdf.Provider
	library  pdf.Library
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("invoice.service"),
		genID:    p.GenID,
		repo:     p.Repo,
		settings: p.Settings,
		clock:    p.Clock,
		pdf:      p.PDF,
		library: pdf.Library{
			Name:    p.Config.LibraryName,
			Address: p.Config.LibraryAddress,
			Email:   p.Config.LibraryEmail,
		},
	}
}

func (s *Service) GenerateForTransaction(ctx context.Context, tx *gorm.DB, in domain.TransactionInput) (*domain.Invoice, []events.Event, error) {
	now := s.clock.Now()
	a := assembler.ForTransaction(in, 0, now)
	if a.TotalAmount <= 0 {
		return nil, nil, nil
	}
	return s.issue(ctx, tx, a, now)
}

func (s *Service) GenerateForMembership(ctx context.Context, tx *gorm.DB, in domain.MembershipInput) (*domain.Invoice, []events.Event, error) {
	now := s.clock.Now()
	a, ok := assembler.ForMembership(in, now)
	if !ok {
		return nil, nil, nil
	}
	return s.issue(ctx, tx, a, now)
}

func (s *Service) issue(ctx context.Context, tx *gorm.DB, a assembler.Assembly, now time.Time) (*domain.Invoice, []events.Event, error) {
	start, end := format.DayBounds(now)
	count, err := s.repo.CountIssuedBetween(ctx, tx, start, end)
	if err != nil {
		return nil, nil, err
	}
	number, err := format.FormatInvoiceNumber(format.DefaultInvoiceNumberTemplate, now, count+1)
	if err != nil {
		return nil, nil, err
	}

	inv := &domain.Invoice{
		ID:            s.genID.Generate(),
		InvoiceNumber: number,
		MemberID:      a.MemberID,
		TransactionID: a.TransactionID,
		Kind:          a.Kind,
		Status:        a.Status,
		OverdueTotal:  a.OverdueTotal,
		LostTotal:     a.LostTotal,
		DamageTotal:   a.DamageTotal,
		TotalAmount:   a.TotalAmount,
		AmountPaid:    a.AmountPaid,
		AmountDue:     a.AmountDue,
		CurrencyCode:  s.currencyCode(),
		IssuedAt:      now,
		DueDate:       a.DueDate,
		CreatedAt:     now,
		UpdatedAt:     now,
		Overdue:       a.Overdue,
	}
	if err := s.repo.Insert(ctx, tx, inv); err != nil {
		return nil, nil, err
	}

	lines := make([]domain.InvoiceLine, 0, len(a.Lines))
	for i, l := range a.Lines {
		lines = append(lines, domain.InvoiceLine{
			ID:                s.genID.Generate(),
			InvoiceID:         inv.ID,
			Position:          i + 1,
			Kind:              l.Kind,
			Description:       l.Description,
			BookID:            l.BookID,
			TransactionItemID: l.ItemID,
			Amount:            l.Amount,
		})
	}
	if err := s.repo.InsertLines(ctx, tx, lines); err != nil {
		return nil, nil, err
	}
	inv.Lines = lines

	s.log.Info("invoice issued",
		zap.String("invoice_id", inv.ID.String()),
		zap.String("invoice_number", inv.InvoiceNumber),
		zap.String("kind", string(inv.Kind)),
		zap.Int64("total_cents", inv.TotalAmount.Cents()),
	)

	evt := events.New(events.InvoiceIssued, now, "invoice", inv.ID.String(), map[string]any{
		events.AttrKind:     string(inv.Kind),
		events.AttrAmount:   inv.TotalAmount.Cents(),
		events.AttrMemberID: inv.MemberID.String(),
	})
	return inv, []events.Event{evt}, nil
}

func (s *Service) currencyCode() string {
	code := strings.ToUpper(strings.TrimSpace(s.settings.Get().CurrencyCode))
	if code == "" {
		return "USD"
	}
	return code
}

func (s *Service) Get(ctx context.Context, id string) (domain.Invoice, error) {
	invoiceID, err := parseID(id)
	if err != nil {
		return domain.Invoice{}, err
	}
	return s.load(ctx, s.db, invoiceID)
}

func (s *Service) load(ctx context.Context, db *gorm.DB, id snowflake.ID) (domain.Invoice, error) {
	inv, err := s.repo.FindByID(ctx, db, id)
	if err != nil {
		return domain.Invoice{}, err
	}
	if inv == nil {
		return domain.Invoice{}, domain.ErrNotFound
	}

	lines, err := s.repo.ListLines(ctx, db, id)
	if err != nil {
		return domain.Invoice{}, err
	}
	payments, err := s.repo.ListPayments(ctx, db, id)
	if err != nil {
		return domain.Invoice{}, err
	}

	inv.Lines = lines
	inv.Payments = payments
	inv.Overdue = assembler.IsOverdue(inv.DueDate, inv.AmountDue, s.clock.Now())
	return *inv, nil
}

func (s *Service) List(ctx context.Context, req domain.ListInvoicesRequest) (domain.ListInvoicesResponse, error) {
	filter := domain.ListFilter{Limit: req.Limit()}

	if memberID := strings.TrimSpace(req.MemberID); memberID != "" {
		id, err := snowflake.ParseString(memberID)
		if err != nil || id <= 0 {
			return domain.ListInvoicesResponse{}, domain.ErrInvalidMember
		}
		filter.MemberID = &id
	}
	if status := strings.TrimSpace(req.Status); status != "" {
		st := domain.InvoiceStatus(strings.ToLower(status))
		if !st.Valid() {
			return domain.ListInvoicesResponse{}, domain.ErrInvalidStatus
		}
		filter.Status = st
	}
	if strings.TrimSpace(req.PageToken) != "" {
		decoded, err := pagination.DecodeCursor(req.PageToken)
		if err != nil {
			return domain.ListInvoicesResponse{}, err
		}
		issuedAt, err := time.Parse(time.RFC3339Nano, decoded.CreatedAt)
		if err != nil {
			return domain.ListInvoicesResponse{}, pagination.ErrInvalidPageToken
		}
		id, err := snowflake.ParseString(decoded.ID)
		if err != nil {
			return domain.ListInvoicesResponse{}, pagination.ErrInvalidPageToken
		}
		filter.Cursor = &domain.InvoiceCursor{ID: id, IssuedAt: issuedAt}
	}

	items, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return domain.ListInvoicesResponse{}, err
	}

	page, pageInfo, err := pagination.BuildCursorPage(items, filter.Limit, func(inv *domain.Invoice) pagination.Cursor {
		return pagination.Cursor{ID: inv.ID.String(), CreatedAt: inv.IssuedAt.UTC().Format(time.RFC3339Nano)}
	})
	if err != nil {
		return domain.ListInvoicesResponse{}, err
	}

	now := s.clock.Now()
	invoices := make([]domain.Invoice, 0, len(page))
	for _, inv := range page {
		inv.Overdue = assembler.IsOverdue(inv.DueDate, inv.AmountDue, now)
		invoices = append(invoices, *inv)
	}

	return domain.ListInvoicesResponse{
		PageInfo: pageInfo,
		Invoices: invoices,
	}, nil
}

func (s *Service) RecordPayment(ctx context.Context, req domain.RecordPaymentRequest) (domain.Invoice, []events.Event, error) {
	invoiceID, err := parseID(req.InvoiceID)
	if err != nil {
		return domain.Invoice{}, nil, err
	}
	if req.Amount <= 0 {
		return domain.Invoice{}, nil, domain.ErrInvalidAmount
	}
	method := strings.ToLower(strings.TrimSpace(req.Method))
	if method == "" {
		method = "cash"
	}
	if _, ok := paymentMethods[method]; !ok {
		return domain.Invoice{}, nil, domain.ErrInvalidMethod
	}

	settings := s.settings.Get()
	now := s.clock.Now()
	_, actorID := obscontext.ActorFromContext(ctx)

	var result domain.Invoice
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inv, err := s.repo.FindByID(ctx, tx, invoiceID)
		if err != nil {
			return err
		}
		if inv == nil {
			return domain.ErrNotFound
		}
		if inv.Status.Closed() {
			return domain.ErrInvoiceClosed
		}
		if req.Amount > inv.AmountDue {
			return domain.ErrOverpayment
		}
		if !settings.AllowPartialPayment && req.Amount != inv.AmountDue {
			return domain.ErrPartialPaymentNotAllowed
		}

		expectedPaid := inv.AmountPaid
		inv.AmountPaid += req.Amount
		inv.AmountDue = assembler.AmountDue(inv.TotalAmount, inv.AmountPaid)
		inv.Status = assembler.StatusFor(inv.TotalAmount, inv.AmountPaid)
		inv.UpdatedAt = now

		updated, err := s.repo.UpdateSettlement(ctx, tx, inv, expectedPaid)
		if err != nil {
			return err
		}
		if !updated {
			return domain.ErrConcurrentUpdate
		}

		if err := s.repo.InsertPayment(ctx, tx, &domain.Payment{
			ID:         s.genID.Generate(),
			InvoiceID:  inv.ID,
			Amount:     req.Amount,
			Method:     method,
			Reference:  strings.TrimSpace(req.Reference),
			Actor:      actorID,
			RecordedAt: now,
		}); err != nil {
			return err
		}

		result, err = s.load(ctx, tx, inv.ID)
		return err
	})
	if err != nil {
		return domain.Invoice{}, nil, err
	}

	s.log.Info("payment recorded",
		zap.String("invoice_id", result.ID.String()),
		zap.Int64("amount_cents", req.Amount.Cents()),
		zap.String("status", string(result.Status)),
	)

	evt := events.New(events.PaymentRecorded, now, "invoice", result.ID.String(), map[string]any{
		events.AttrStatus:   string(result.Status),
		events.AttrAmount:   req.Amount.Cents(),
		events.AttrMemberID: result.MemberID.String(),
	})
	return result, []events.Event{evt}, nil
}

func (s *Service) Waive(ctx context.Context, req domain.WaiveRequest) (domain.Invoice, []events.Event, error) {
	invoiceID, err := parseID(req.InvoiceID)
	if err != nil {
		return domain.Invoice{}, nil, err
	}

	now := s.clock.Now()
	var result domain.Invoice
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inv, err := s.repo.FindByID(ctx, tx, invoiceID)
		if err != nil {
			return err
		}
		if inv == nil {
			return domain.ErrNotFound
		}
		if inv.Status.Closed() {
			return domain.ErrInvoiceClosed
		}

		inv.Status = domain.InvoiceStatusWaived
		inv.AmountDue = 0
		inv.WaivedAt = &now
		inv.UpdatedAt = now
		if reason := strings.TrimSpace(req.Reason); reason != "" {
			inv.Notes = reason
		}

		updated, err := s.repo.UpdateSettlement(ctx, tx, inv, inv.AmountPaid)
		if err != nil {
			return err
		}
		if !updated {
			return domain.ErrConcurrentUpdate
		}

		result, err = s.load(ctx, tx, inv.ID)
		return err
	})
	if err != nil {
		return domain.Invoice{}, nil, err
	}

	s.log.Info("invoice waived", zap.String("invoice_id", result.ID.String()))

	evt := events.New(events.InvoiceWaived, now, "invoice", result.ID.String(), map[string]any{
		events.AttrAmount:   result.TotalAmount.Cents() - result.AmountPaid.Cents(),
		events.AttrMemberID: result.MemberID.String(),
	})
	return result, []events.Event{evt}, nil
}

func (s *Service) RenderPDF(ctx context.Context, id string) ([]byte, domain.Invoice, error) {
	inv, err := s.Get(ctx, id)
	if err != nil {
		return nil, domain.Invoice{}, err
	}

	symbol := s.settings.Get().CurrencySymbol
	fmtAmount := func(a money.Amount) string { return a.Format(symbol) }

	billTo, err := s.repo.FindBillTo(ctx, s.db, inv.MemberID)
	if err != nil {
		return nil, domain.Invoice{}, err
	}

	doc := pdf.InvoiceDocument{
		Library:       s.library,
		InvoiceNumber: inv.InvoiceNumber,
		IssueDate:     inv.IssuedAt.UTC().Format(dateLayout),
		DueDate:       inv.DueDate.UTC().Format(dateLayout),
		Status:        string(inv.Status),
		Total:         fmtAmount(inv.TotalAmount),
		Paid:          fmtAmount(inv.AmountPaid),
		AmountDue:     fmtAmount(inv.AmountDue),
		Overdue:       inv.Overdue,
		Notes:         inv.Notes,
	}
	if billTo != nil {
		doc.BillToName = billTo.Name
		doc.BillToEmail = billTo.Email
	}

	if inv.TransactionID != nil {
		dates, err := s.repo.FindLoanDates(ctx, s.db, *inv.TransactionID)
		if err != nil {
			return nil, domain.Invoice{}, err
		}
		if dates != nil {
			box := &pdf.TransactionBox{
				BorrowedDate: dates.BorrowedDate.UTC().Format(dateLayout),
				DueDate:      dates.DueDate.UTC().Format(dateLayout),
			}
			if dates.ReturnedDate != nil {
				box.ReturnedDate = dates.ReturnedDate.UTC().Format(dateLayout)
			}
			doc.Transaction = box
		}
		rows, err := s.itemRows(ctx, inv.Lines, fmtAmount)
		if err != nil {
			return nil, domain.Invoice{}, err
		}
		doc.Items = rows
	} else {
		for _, l := range inv.Lines {
			doc.Items = append(doc.Items, pdf.ItemRow{
				Book:    l.Description,
				Overdue: fmtAmount(0),
				Lost:    fmtAmount(0),
				Damage:  fmtAmount(0),
				Total:   fmtAmount(l.Amount),
			})
		}
	}

	out, err := s.pdf.RenderInvoice(ctx, doc)
	if err != nil {
		return nil, domain.Invoice{}, err
	}
	return out, inv, nil
}

type itemTotals struct {
	bookID  snowflake.ID
	overdue money.Amount
	lost    money.Amount
	damage  money.Amount
	first   int
}

// itemRows folds invoice lines back into one row per borrowed item.
func (s *Service) itemRows(ctx context.Context, lines []domain.InvoiceLine, fmtAmount func(money.Amount) string) ([]pdf.ItemRow, error) {
	byItem := map[snowflake.ID]*itemTotals{}
	var bookIDs []snowflake.ID
	for _, l := range lines {
		if l.TransactionItemID == nil || l.BookID == nil {
			continue
		}
		t, ok := byItem[*l.TransactionItemID]
		if !ok {
			t = &itemTotals{bookID: *l.BookID, first: l.Position}
			byItem[*l.TransactionItemID] = t
			bookIDs = append(bookIDs, *l.BookID)
		}
		switch l.Kind {
		case domain.LineKindOverdue:
			t.overdue += l.Amount
		case domain.LineKindLost:
			t.lost += l.Amount
		case domain.LineKindDamage:
			t.damage += l.Amount
		}
	}

	titles, err := s.repo.FindBookTitles(ctx, s.db, bookIDs)
	if err != nil {
		return nil, err
	}

	totals := make([]*itemTotals, 0, len(byItem))
	for _, t := range byItem {
		totals = append(totals, t)
	}
	sort.Slice(totals, func(i, j int) bool { return totals[i].first < totals[j].first })

	rows := make([]pdf.ItemRow, 0, len(totals))
	for _, t := range totals {
		rows = append(rows, pdf.ItemRow{
			Book:    titles[t.bookID],
			Overdue: fmtAmount(t.overdue),
			Lost:    fmtAmount(t.lost),
			Damage:  fmtAmount(t.damage),
			Total:   fmtAmount(t.overdue + t.lost + t.damage),
		})
	}
	return rows, nil
}

func (s *Service) RenderReceipt(ctx context.Context, id string) ([]byte, domain.Invoice, error) {
	inv, err := s.Get(ctx, id)
	if err != nil {
		return nil, domain.Invoice{}, err
	}

	symbol := s.settings.Get().CurrencySymbol
	billTo, err := s.repo.FindBillTo(ctx, s.db, inv.MemberID)
	if err != nil {
		return nil, domain.Invoice{}, err
	}

	doc := pdf.ReceiptDocument{
		Library:       s.library,
		InvoiceNumber: inv.InvoiceNumber,
		Total:         inv.TotalAmount.Format(symbol),
		Paid:          inv.AmountPaid.Format(symbol),
		AmountDue:     inv.AmountDue.Format(symbol),
		Status:        string(inv.Status),
	}
	if billTo != nil {
		doc.BillToName = billTo.Name
	}
	for _, p := range inv.Payments {
		doc.Payments = append(doc.Payments, pdf.PaymentRow{
			Date:      p.RecordedAt.UTC().Format(dateLayout),
			Method:    p.Method,
			Reference: p.Reference,
			Amount:    p.Amount.Format(symbol),
		})
	}

	out, err := s.pdf.RenderReceipt(ctx, doc)
	if err != nil {
		return nil, domain.Invoice{}, err
	}
	return out, inv, nil
}

func parseID(value string) (snowflake.ID, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, domain.ErrInvalidID
	}
	id, err := snowflake.ParseString(trimmed)
	if err != nil || id <= 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
