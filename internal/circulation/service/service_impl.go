package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	catalogdomain "github.com/smallbiznis/shelfwise/internal/catalog/domain"
	"github.com/smallbiznis/shelfwise/internal/circulation/domain"
	"github.com/smallbiznis/shelfwise/internal/clock"
	"github.com/smallbiznis/shelfwise/internal/events"
	"github.com/smallbiznis/shelfwise/internal/fee/calculator"
	feedomain "github.com/smallbiznis/shelfwise/internal/fee/domain"
	invoicedomain "github.com/smallbiznis/shelfwise/internal/invoice/domain"
	membershipdomain "github.com/smallbiznis/shelfwise/internal/membership/domain"
	"github.com/smallbiznis/shelfwise/pkg/money"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	maxNotesLength   = 2000
	overdueBatchSize = 500
	delayBatchLimit  = 1000
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Repo     domain.Repository
	Members  membershipdomain.Repository
	Books    catalogdomain.Repository
	Invoices invoicedomain.Service
	Settings feedomain.SettingsProvider
	Clock    clock.Clock
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	repo     domain.Repository
	members  membershipdomain.Repository
	books    catalogdomain.Repository
	invoices invoicedomain.Service
	settings feedomain.SettingsProvider
	clock    clock.Clock

	overdueBatch int
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("circulation.service"),
		genID:    p.GenID,
		repo:     p.Repo,
		members:  p.Members,
		books:    p.Books,
		invoices: p.Invoices,
		settings: p.Settings,
		clock:    p.Clock,

		overdueBatch: overdueBatchSize,
	}
}

func (s *Service) Borrow(ctx context.Context, req domain.BorrowRequest) (domain.Transaction, []events.Event, error) {
	memberID, err := parseID(req.MemberID, domain.ErrInvalidMember)
	if err != nil {
		return domain.Transaction{}, nil, err
	}
	if len(req.BookIDs) == 0 {
		return domain.Transaction{}, nil, domain.ErrNoBooks
	}
	bookIDs := make([]snowflake.ID, 0, len(req.BookIDs))
	seen := make(map[snowflake.ID]struct{}, len(req.BookIDs))
	for _, raw := range req.BookIDs {
		id, err := parseID(raw, domain.ErrInvalidBook)
		if err != nil {
			return domain.Transaction{}, nil, err
		}
		if _, dup := seen[id]; dup {
			return domain.Transaction{}, nil, domain.ErrDuplicateBook
		}
		seen[id] = struct{}{}
		bookIDs = append(bookIDs, id)
	}
	notes := strings.TrimSpace(req.Notes)
	if len(notes) > maxNotesLength {
		return domain.Transaction{}, nil, domain.ErrNotesTooLong
	}

	now := s.clock.Now()
	borrowedAt := now
	if req.BorrowedAt != nil {
		borrowedAt = req.BorrowedAt.UTC()
	}

	var txn domain.Transaction
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		member, err := s.members.FindMemberByID(ctx, tx, memberID)
		if err != nil {
			return err
		}
		if member == nil {
			return domain.ErrMemberNotFound
		}
		if !member.HasActiveMembership() {
			return domain.ErrNoActiveMembership
		}
		plan := member.MembershipType
		if len(bookIDs) > plan.MaxBooks {
			return domain.ErrTooManyBooks
		}

		books, err := s.books.FindBooksByIDs(ctx, tx, bookIDs)
		if err != nil {
			return err
		}
		titles := make(map[snowflake.ID]string, len(books))
		for _, b := range books {
			titles[b.ID] = b.Title
		}

		txn = domain.Transaction{
			ID:              s.genID.Generate(),
			MemberID:        member.ID,
			BorrowedDate:    borrowedAt,
			DueDate:         borrowedAt.AddDate(0, 0, plan.MaxBorrowDays),
			Status:          domain.StatusBorrowed,
			LifecycleStatus: domain.LifecycleActive,
			Notes:           notes,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		for _, id := range bookIDs {
			title, ok := titles[id]
			if !ok {
				return domain.ErrBookNotFound
			}
			txn.Items = append(txn.Items, domain.TransactionItem{
				ID:            s.genID.Generate(),
				TransactionID: txn.ID,
				BookID:        id,
				BorrowedFor:   plan.MaxBorrowDays,
				ItemStatus:    domain.ItemBorrowed,
				Title:         title,
			})
		}
		return s.repo.Insert(ctx, tx, &txn)
	})
	if err != nil {
		return domain.Transaction{}, nil, err
	}

	s.log.Info("transaction opened",
		zap.String("transaction_id", txn.ID.String()),
		zap.String("member_id", txn.MemberID.String()),
		zap.Int("items", len(txn.Items)),
	)
	evt := events.New(events.TransactionOpened, now, "transaction", txn.ID.String(), map[string]any{
		events.AttrMemberID: txn.MemberID.String(),
		events.AttrQuantity: len(txn.Items),
	})
	return txn, []events.Event{evt}, nil
}

func (s *Service) Get(ctx context.Context, id string) (domain.Transaction, error) {
	txnID, err := parseID(id, domain.ErrInvalidID)
	if err != nil {
		return domain.Transaction{}, err
	}
	txn, err := s.repo.FindByID(ctx, s.db, txnID)
	if err != nil {
		return domain.Transaction{}, err
	}
	if txn == nil {
		return domain.Transaction{}, domain.ErrNotFound
	}
	return *txn, nil
}

type outcome struct {
	kind     calculator.Outcome
	severity feedomain.Severity
}

func parseOutcomes(items []domain.ReturnItem) (map[snowflake.ID]outcome, error) {
	out := make(map[snowflake.ID]outcome, len(items))
	for _, item := range items {
		id, err := parseID(item.ItemID, domain.ErrInvalidItem)
		if err != nil {
			return nil, err
		}
		if _, dup := out[id]; dup {
			return nil, domain.ErrDuplicateItem
		}
		var o outcome
		switch strings.ToLower(strings.TrimSpace(item.Outcome)) {
		case "", "returned":
			o.kind = calculator.OutcomeReturned
		case "lost":
			o.kind = calculator.OutcomeLost
		case "damaged":
			o.kind = calculator.OutcomeDamaged
			sev, err := feedomain.ParseSeverity(item.Severity)
			if err != nil {
				return nil, err
			}
			o.severity = sev
		default:
			return nil, domain.ErrInvalidOutcome
		}
		out[id] = o
	}
	return out, nil
}

func (s *Service) Return(ctx context.Context, req domain.ReturnRequest) (domain.ReturnResult, []events.Event, error) {
	txnID, err := parseID(req.TransactionID, domain.ErrInvalidID)
	if err != nil {
		return domain.ReturnResult{}, nil, err
	}
	outcomes, err := parseOutcomes(req.Items)
	if err != nil {
		return domain.ReturnResult{}, nil, err
	}

	calc, err := calculator.New(s.settings.Get())
	if err != nil {
		return domain.ReturnResult{}, nil, err
	}

	now := s.clock.Now()
	returnedAt := now
	if req.ReturnedAt != nil {
		returnedAt = req.ReturnedAt.UTC()
	}

	var (
		result domain.ReturnResult
		evts   []events.Event
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txn, err := s.repo.FindByID(ctx, tx, txnID)
		if err != nil {
			return err
		}
		if txn == nil {
			return domain.ErrNotFound
		}
		if txn.Locked() {
			return domain.ErrTransactionLocked
		}
		if !txn.LifecycleStatus.CanMoveTo(domain.LifecycleCompleted) {
			return domain.ErrInvalidTransition
		}
		if returnedAt.Before(txn.BorrowedDate) {
			return domain.ErrReturnBeforeBorrow
		}

		known := make(map[snowflake.ID]struct{}, len(txn.Items))
		bookIDs := make([]snowflake.ID, 0, len(txn.Items))
		for _, item := range txn.Items {
			known[item.ID] = struct{}{}
			bookIDs = append(bookIDs, item.BookID)
		}
		for id := range outcomes {
			if _, ok := known[id]; !ok {
				return domain.ErrInvalidItem
			}
		}

		books, err := s.books.FindBooksByIDs(ctx, tx, bookIDs)
		if err != nil {
			return err
		}
		prices := make(map[snowflake.ID]money.Amount, len(books))
		for _, b := range books {
			prices[b.ID] = b.Price
		}

		fines := make([]invoicedomain.ItemFine, 0, len(txn.Items))
		for i := range txn.Items {
			item := &txn.Items[i]
			o, ok := outcomes[item.ID]
			if !ok {
				o = outcome{kind: calculator.OutcomeReturned}
			}
			f := calc.ItemFines(calculator.ItemInput{
				DueDate:    txn.DueDate,
				ReturnDate: returnedAt,
				Price:      prices[item.BookID],
				Outcome:    o.kind,
				Severity:   o.severity,
			})

			switch o.kind {
			case calculator.OutcomeLost:
				item.ItemStatus = domain.ItemLost
			case calculator.OutcomeDamaged:
				item.ItemStatus = domain.ItemDamaged
				sev := string(o.severity)
				item.DamageSeverity = &sev
			default:
				item.ItemStatus = domain.ItemReturned
			}
			item.OverdueFine = f.Overdue
			item.LostFine = f.Lost
			item.DamageFine = f.Damage
			item.TotalFine = f.Total

			fines = append(fines, invoicedomain.ItemFine{
				ItemID:   item.ID,
				BookID:   item.BookID,
				Title:    item.Title,
				DaysLate: f.DaysLate,
				Overdue:  f.Overdue,
				Lost:     f.Lost,
				Damage:   f.Damage,
			})
			evts = append(evts, fineEvents(now, item)...)
		}

		late := calculator.DaysLate(txn.DueDate, returnedAt) > 0
		txn.ReturnedDate = &returnedAt
		txn.Status = domain.StatusFor(txn.Items, late)
		txn.LifecycleStatus = domain.LifecycleCompleted
		txn.UpdatedAt = now
		if err := s.repo.SaveReturn(ctx, tx, txn); err != nil {
			return err
		}

		inv, invEvts, err := s.invoices.GenerateForTransaction(ctx, tx, invoicedomain.TransactionInput{
			TransactionID: txn.ID,
			MemberID:      txn.MemberID,
			DueDate:       txn.DueDate,
			Items:         fines,
		})
		if err != nil {
			return err
		}

		evts = append([]events.Event{
			events.New(events.TransactionReturned, now, "transaction", txn.ID.String(), map[string]any{
				events.AttrStatus:   string(txn.Status),
				events.AttrAmount:   txn.TotalFine().Cents(),
				events.AttrMemberID: txn.MemberID.String(),
			}),
		}, evts...)
		evts = append(evts, invEvts...)
		result = domain.ReturnResult{Transaction: *txn, Invoice: inv}
		return nil
	})
	if err != nil {
		return domain.ReturnResult{}, nil, err
	}

	s.log.Info("transaction returned",
		zap.String("transaction_id", result.Transaction.ID.String()),
		zap.String("status", string(result.Transaction.Status)),
		zap.Int64("total_fine_cents", result.Transaction.TotalFine().Cents()),
	)
	return result, evts, nil
}

func fineEvents(at time.Time, item *domain.TransactionItem) []events.Event {
	var out []events.Event
	for _, f := range []struct {
		kind   string
		amount money.Amount
	}{
		{"overdue", item.OverdueFine},
		{"lost", item.LostFine},
		{"damage", item.DamageFine},
	} {
		if f.amount <= 0 {
			continue
		}
		out = append(out, events.New(events.FineAssessed, at, "transaction_item", item.ID.String(), map[string]any{
			events.AttrKind:   f.kind,
			events.AttrAmount: f.amount.Cents(),
		}))
	}
	return out
}

func (s *Service) Cancel(ctx context.Context, id string) (domain.Transaction, []events.Event, error) {
	return s.transition(ctx, id, domain.LifecycleCancelled, events.TransactionCancelled)
}

func (s *Service) Archive(ctx context.Context, id string) (domain.Transaction, []events.Event, error) {
	return s.transition(ctx, id, domain.LifecycleArchived, events.TransactionArchived)
}

func (s *Service) transition(ctx context.Context, id string, to domain.Lifecycle, evtType events.Type) (domain.Transaction, []events.Event, error) {
	txnID, err := parseID(id, domain.ErrInvalidID)
	if err != nil {
		return domain.Transaction{}, nil, err
	}

	now := s.clock.Now()
	var txn *domain.Transaction
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txn, err = s.repo.FindByID(ctx, tx, txnID)
		if err != nil {
			return err
		}
		if txn == nil {
			return domain.ErrNotFound
		}
		from := txn.LifecycleStatus
		if !from.CanMoveTo(to) {
			return domain.ErrInvalidTransition
		}
		ok, err := s.repo.UpdateLifecycle(ctx, tx, txn.ID, from, to, now)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrInvalidTransition
		}
		txn.LifecycleStatus = to
		txn.UpdatedAt = now
		return nil
	})
	if err != nil {
		return domain.Transaction{}, nil, err
	}

	s.log.Info("transaction lifecycle changed",
		zap.String("transaction_id", txn.ID.String()),
		zap.String("lifecycle_status", string(to)),
	)
	evt := events.New(evtType, now, "transaction", txn.ID.String(), map[string]any{
		events.AttrStatus: string(to),
	})
	return *txn, []events.Event{evt}, nil
}

func (s *Service) UpdateNotes(ctx context.Context, id, notes string) (domain.Transaction, error) {
	txnID, err := parseID(id, domain.ErrInvalidID)
	if err != nil {
		return domain.Transaction{}, err
	}
	notes = strings.TrimSpace(notes)
	if len(notes) > maxNotesLength {
		return domain.Transaction{}, domain.ErrNotesTooLong
	}

	now := s.clock.Now()
	var txn *domain.Transaction
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txn, err = s.repo.FindByID(ctx, tx, txnID)
		if err != nil {
			return err
		}
		if txn == nil {
			return domain.ErrNotFound
		}
		if txn.Locked() {
			return domain.ErrTransactionLocked
		}
		ok, err := s.repo.UpdateNotes(ctx, tx, txn.ID, notes, now)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrTransactionLocked
		}
		txn.Notes = notes
		txn.UpdatedAt = now
		return nil
	})
	if err != nil {
		return domain.Transaction{}, err
	}
	return *txn, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	txnID, err := parseID(id, domain.ErrInvalidID)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txn, err := s.repo.FindByID(ctx, tx, txnID)
		if err != nil {
			return err
		}
		if txn == nil {
			return domain.ErrNotFound
		}
		if txn.Locked() {
			return domain.ErrTransactionLocked
		}
		ok, err := s.repo.Delete(ctx, tx, txn.ID)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrTransactionLocked
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Info("transaction deleted", zap.String("transaction_id", txnID.String()))
	return nil
}

func (s *Service) ListOverdue(ctx context.Context, now time.Time) ([]domain.MemberOverdue, error) {
	var (
		loans  []domain.OverdueLoan
		cursor domain.OverdueCursor
	)
	for {
		page, err := s.repo.ListOverdue(ctx, s.db, now.UTC(), cursor, s.overdueBatch)
		if err != nil {
			return nil, err
		}
		loans = append(loans, page...)
		if len(page) < s.overdueBatch {
			break
		}
		last := page[len(page)-1]
		cursor = domain.OverdueCursor{MemberID: last.MemberID, ItemID: last.ItemID}
	}

	var groups []domain.MemberOverdue
	index := map[snowflake.ID]int{}
	for _, loan := range loans {
		i, ok := index[loan.MemberID]
		if !ok {
			i = len(groups)
			index[loan.MemberID] = i
			groups = append(groups, domain.MemberOverdue{
				MemberID:    loan.MemberID,
				MemberName:  loan.MemberName,
				MemberEmail: loan.MemberEmail,
			})
		}
		groups[i].Loans = append(groups[i].Loans, loan)
	}
	for _, g := range groups {
		sort.SliceStable(g.Loans, func(a, b int) bool {
			return g.Loans[a].DueDate.Before(g.Loans[b].DueDate)
		})
	}
	return groups, nil
}

func (s *Service) MarkDelayed(ctx context.Context, now time.Time) (int, []events.Event, error) {
	now = now.UTC()
	var ids []snowflake.ID
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		ids, err = s.repo.MarkDelayed(ctx, tx, now, delayBatchLimit)
		return err
	})
	if err != nil {
		return 0, nil, err
	}

	evts := make([]events.Event, 0, len(ids))
	for _, id := range ids {
		evts = append(evts, events.New(events.TransactionDelayed, now, "transaction", id.String(), map[string]any{
			events.AttrStatus: string(domain.StatusDelayed),
		}))
	}
	if len(ids) > 0 {
		s.log.Info("transactions marked delayed", zap.Int("count", len(ids)))
	}
	return len(ids), evts, nil
}

func parseID(value string, invalid error) (snowflake.ID, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, invalid
	}
	id, err := snowflake.ParseString(trimmed)
	if err != nil || id <= 0 {
		return 0, invalid
	}
	return id, nil
}
