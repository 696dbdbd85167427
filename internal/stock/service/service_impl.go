package service

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/shelfwise/internal/clock"
	"github.com/smallbiznis/shelfwise/internal/events"
	obscontext "github.com/smallbiznis/shelfwise/internal/observability/context"
	"github.com/smallbiznis/shelfwise/internal/stock/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultMaxAttempts = 3
	maxReasonLength    = 1000
	historyLimit       = 100
)

var errStale = errors.New("stale stock version")

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
	Clock clock.Clock
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	repo        domain.Repository
	clock       clock.Clock
	maxAttempts int
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("stock.service"),
		genID:       p.GenID,
		repo:        p.Repo,
		clock:       p.Clock,
		maxAttempts: defaultMaxAttempts,
	}
}

type line struct {
	index    int
	raw      string
	bookID   snowflake.ID
	quantity int
}

func (s *Service) Adjust(ctx context.Context, req domain.AdjustRequest) (domain.StockTransaction, []events.Event, error) {
	adjType, lines, err := s.validate(req)
	if err != nil {
		return domain.StockTransaction{}, nil, err
	}

	actor := strings.TrimSpace(req.Actor)
	if actor == "" {
		_, actor = obscontext.ActorFromContext(ctx)
	}

	var (
		txn  domain.StockTransaction
		evts []events.Event
	)
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		txn, evts, err = s.apply(ctx, adjType, actor, strings.TrimSpace(req.Reason), lines)
		if !errors.Is(err, errStale) {
			break
		}
		s.log.Warn("stock version changed, retrying adjustment",
			zap.Int("attempt", attempt),
			zap.String("type", string(adjType)),
		)
	}
	if errors.Is(err, errStale) {
		return domain.StockTransaction{}, nil, domain.ErrConcurrentUpdate
	}
	if err != nil {
		return domain.StockTransaction{}, nil, err
	}

	s.log.Info("stock adjusted",
		zap.String("stock_transaction_id", txn.ID.String()),
		zap.String("type", string(adjType)),
		zap.Int("items", len(txn.Items)),
	)
	return txn, evts, nil
}

func (s *Service) AdjustInTx(ctx context.Context, tx *gorm.DB, req domain.AdjustRequest) (domain.StockTransaction, []events.Event, error) {
	adjType, lines, err := s.validate(req)
	if err != nil {
		return domain.StockTransaction{}, nil, err
	}

	actor := strings.TrimSpace(req.Actor)
	if actor == "" {
		_, actor = obscontext.ActorFromContext(ctx)
	}

	txn := s.newTransaction(adjType, actor, strings.TrimSpace(req.Reason))
	if err := s.applyTx(ctx, tx, &txn, lines); err != nil {
		if errors.Is(err, errStale) {
			return domain.StockTransaction{}, nil, domain.ErrConcurrentUpdate
		}
		return domain.StockTransaction{}, nil, err
	}
	return txn, adjustedEvents(txn), nil
}

// validate checks everything that does not need the database.
func (s *Service) validate(req domain.AdjustRequest) (domain.AdjustmentType, []line, error) {
	adjType, err := domain.ParseAdjustmentType(req.Type)
	if err != nil {
		return "", nil, err
	}
	if len(req.Items) == 0 {
		return "", nil, domain.ErrNoItems
	}

	var verrs domain.ValidationErrors
	if len(req.Reason) > maxReasonLength {
		verrs = append(verrs, domain.ItemError{Index: -1, Field: "reason", Message: "is too long"})
	}

	seen := map[snowflake.ID]int{}
	lines := make([]line, 0, len(req.Items))
	for i, item := range req.Items {
		raw := strings.TrimSpace(item.BookID)
		id, err := snowflake.ParseString(raw)
		if err != nil || id <= 0 {
			verrs = append(verrs, domain.ItemError{Index: i, BookID: raw, Field: "book_id", Message: "is not a valid id"})
			continue
		}
		if item.Quantity < 0 {
			verrs = append(verrs, domain.ItemError{Index: i, BookID: raw, Field: "quantity", Message: "must not be negative"})
			continue
		}
		if prev, dup := seen[id]; dup {
			verrs = append(verrs, domain.ItemError{Index: i, BookID: raw, Field: "book_id", Message: "duplicates item " + strconv.Itoa(prev)})
			continue
		}
		seen[id] = i
		lines = append(lines, line{index: i, raw: raw, bookID: id, quantity: item.Quantity})
	}
	if len(verrs) > 0 {
		return "", nil, verrs
	}
	return adjType, lines, nil
}

func (s *Service) apply(ctx context.Context, adjType domain.AdjustmentType, actor, reason string, lines []line) (domain.StockTransaction, []events.Event, error) {
	txn := s.newTransaction(adjType, actor, reason)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.applyTx(ctx, tx, &txn, lines)
	})
	if err != nil {
		return domain.StockTransaction{}, nil, err
	}
	return txn, adjustedEvents(txn), nil
}

func (s *Service) newTransaction(adjType domain.AdjustmentType, actor, reason string) domain.StockTransaction {
	return domain.StockTransaction{
		ID:        s.genID.Generate(),
		Type:      adjType,
		Actor:     actor,
		Reason:    reason,
		CreatedAt: s.clock.Now(),
	}
}

func (s *Service) applyTx(ctx context.Context, tx *gorm.DB, txn *domain.StockTransaction, lines []line) error {
	ids := make([]snowflake.ID, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.bookID)
	}
	books, err := s.repo.FindBooks(ctx, tx, ids)
	if err != nil {
		return err
	}

	var verrs domain.ValidationErrors
	for _, l := range lines {
		if _, ok := books[l.bookID]; !ok {
			verrs = append(verrs, domain.ItemError{Index: l.index, BookID: l.raw, Field: "book_id", Message: "book not found"})
		}
	}
	if len(verrs) > 0 {
		return verrs
	}

	items := make([]domain.StockTransactionItem, 0, len(lines))
	for _, l := range lines {
		book := books[l.bookID]
		next, err := domain.NewStock(txn.Type, book.Stock, l.quantity)
		if err != nil {
			return err
		}
		ok, err := s.repo.UpdateStock(ctx, tx, book, next, txn.CreatedAt)
		if err != nil {
			return err
		}
		if !ok {
			return errStale
		}
		items = append(items, domain.StockTransactionItem{
			ID:                 s.genID.Generate(),
			StockTransactionID: txn.ID,
			BookID:             book.ID,
			Quantity:           l.quantity,
			OldStock:           book.Stock,
			NewStock:           next,
		})
	}
	txn.Items = items
	return s.repo.InsertTransaction(ctx, tx, txn)
}

func adjustedEvents(txn domain.StockTransaction) []events.Event {
	evts := make([]events.Event, 0, len(txn.Items))
	for _, item := range txn.Items {
		evts = append(evts, events.New(events.StockAdjusted, txn.CreatedAt, "book", item.BookID.String(), map[string]any{
			events.AttrType:     string(txn.Type),
			events.AttrQuantity: item.Quantity,
			events.AttrOldStock: item.OldStock,
			events.AttrNewStock: item.NewStock,
		}))
	}
	return evts
}

func (s *Service) List(ctx context.Context, bookID string) ([]domain.StockTransaction, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(bookID))
	if err != nil || id <= 0 {
		return nil, domain.ErrInvalidBookID
	}
	return s.repo.ListByBook(ctx, s.db, id, historyLimit)
}
