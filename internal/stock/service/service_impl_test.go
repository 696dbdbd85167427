package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	catalogdomain "github.com/smallbiznis/shelfwise/internal/catalog/domain"
	"github.com/smallbiznis/shelfwise/internal/clock"
	"github.com/smallbiznis/shelfwise/internal/events"
	obscontext "github.com/smallbiznis/shelfwise/internal/observability/context"
	"github.com/smallbiznis/shelfwise/internal/stock/domain"
	"github.com/smallbiznis/shelfwise/internal/stock/repository"
	"github.com/smallbiznis/shelfwise/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var now = time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)

// staleRepo reports a lost version race for the first n stock writes.
type staleRepo struct {
	domain.Repository
	n     int
	calls int
}

func (r *staleRepo) UpdateStock(ctx context.Context, db *gorm.DB, book domain.BookStock, stock int, at time.Time) (bool, error) {
	r.calls++
	if r.calls <= r.n {
		return false, nil
	}
	return r.Repository.UpdateStock(ctx, db, book, stock, at)
}

func setup(t *testing.T, repo domain.Repository) (domain.Service, *gorm.DB) {
	t.Helper()
	models := append(catalogdomain.Models(), domain.Models()...)
	db := dbtest.Open(t, models...)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	svc := New(Params{DB: db, Log: zap.NewNop(), GenID: node, Repo: repo, Clock: clock.NewFakeClock(now)})
	return svc, db
}

func seedBook(t *testing.T, db *gorm.DB, id snowflake.ID, stock int) {
	t.Helper()
	require.NoError(t, db.Create(&catalogdomain.Book{
		ID:        id,
		ISBN:      "978000000" + id.String(),
		Title:     "Book " + id.String(),
		Stock:     stock,
		CreatedAt: now,
		UpdatedAt: now,
	}).Error)
}

func stockOf(t *testing.T, db *gorm.DB, id snowflake.ID) (int, int64) {
	t.Helper()
	var b catalogdomain.Book
	require.NoError(t, db.First(&b, "id = ?", id).Error)
	return b.Stock, b.Version
}

func TestAdjustAppliesAllItems(t *testing.T) {
	svc, db := setup(t, repository.Provide())
	seedBook(t, db, 1001, 5)
	seedBook(t, db, 1002, 2)

	ctx := obscontext.WithActor(context.Background(), "staff", "clerk-7")
	txn, evts, err := svc.Adjust(ctx, domain.AdjustRequest{
		Type:   "damage",
		Reason: "water damage",
		Items: []domain.AdjustItem{
			{BookID: "1001", Quantity: 2},
			{BookID: "1002", Quantity: 5},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "clerk-7", txn.Actor)
	require.Len(t, txn.Items, 2)
	require.Len(t, evts, 2)
	assert.Equal(t, events.StockAdjusted, evts[0].Type)
	assert.Equal(t, int64(3), evts[0].Int64(events.AttrNewStock))

	stock, version := stockOf(t, db, 1001)
	assert.Equal(t, 3, stock)
	assert.Equal(t, int64(1), version)
	stock, _ = stockOf(t, db, 1002)
	assert.Equal(t, 0, stock)

	history, err := svc.List(context.Background(), "1002")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, domain.AdjustmentDamage, history[0].Type)
	assert.Equal(t, 2, history[0].Items[0].OldStock)
	assert.Equal(t, 0, history[0].Items[0].NewStock)
}

func TestAdjustIsAllOrNothing(t *testing.T) {
	svc, db := setup(t, repository.Provide())
	seedBook(t, db, 1001, 5)

	_, _, err := svc.Adjust(context.Background(), domain.AdjustRequest{
		Type: "purchase",
		Items: []domain.AdjustItem{
			{BookID: "1001", Quantity: 2},
			{BookID: "4040", Quantity: 1},
		},
	})
	require.ErrorIs(t, err, domain.ErrValidation)

	var verrs domain.ValidationErrors
	require.True(t, errors.As(err, &verrs))
	require.Len(t, verrs, 1)
	assert.Equal(t, 1, verrs[0].Index)

	stock, version := stockOf(t, db, 1001)
	assert.Equal(t, 5, stock)
	assert.Equal(t, int64(0), version)

	var n int64
	require.NoError(t, db.Model(&domain.StockTransaction{}).Count(&n).Error)
	assert.Equal(t, int64(0), n)
}

func TestAdjustReportsEveryInvalidItem(t *testing.T) {
	svc, _ := setup(t, repository.Provide())

	_, _, err := svc.Adjust(context.Background(), domain.AdjustRequest{
		Type: "purchase",
		Items: []domain.AdjustItem{
			{BookID: "abc", Quantity: 1},
			{BookID: "1001", Quantity: -3},
			{BookID: "1002", Quantity: 1},
			{BookID: "1002", Quantity: 1},
		},
	})
	var verrs domain.ValidationErrors
	require.True(t, errors.As(err, &verrs))
	require.Len(t, verrs, 3)
	assert.Equal(t, "book_id", verrs[0].Field)
	assert.Equal(t, "quantity", verrs[1].Field)
	assert.Equal(t, 3, verrs[2].Index)
}

func TestAdjustRejectsTypeAndEmpty(t *testing.T) {
	svc, _ := setup(t, repository.Provide())

	_, _, err := svc.Adjust(context.Background(), domain.AdjustRequest{Type: "theft", Items: []domain.AdjustItem{{BookID: "1", Quantity: 1}}})
	assert.ErrorIs(t, err, domain.ErrInvalidType)

	_, _, err = svc.Adjust(context.Background(), domain.AdjustRequest{Type: "purchase"})
	assert.ErrorIs(t, err, domain.ErrNoItems)
}

func TestAdjustRetriesStaleVersion(t *testing.T) {
	repo := &staleRepo{Repository: repository.Provide(), n: 1}
	svc, db := setup(t, repo)
	seedBook(t, db, 1001, 5)

	_, _, err := svc.Adjust(context.Background(), domain.AdjustRequest{
		Type:  "purchase",
		Items: []domain.AdjustItem{{BookID: "1001", Quantity: 1}},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, repo.calls)

	stock, _ := stockOf(t, db, 1001)
	assert.Equal(t, 6, stock)
}

func TestAdjustGivesUpAfterRetries(t *testing.T) {
	repo := &staleRepo{Repository: repository.Provide(), n: 100}
	svc, db := setup(t, repo)
	seedBook(t, db, 1001, 5)

	_, _, err := svc.Adjust(context.Background(), domain.AdjustRequest{
		Type:  "purchase",
		Items: []domain.AdjustItem{{BookID: "1001", Quantity: 1}},
	})
	require.ErrorIs(t, err, domain.ErrConcurrentUpdate)
	assert.Equal(t, defaultMaxAttempts, repo.calls)

	stock, _ := stockOf(t, db, 1001)
	assert.Equal(t, 5, stock)
}

func TestAdjustInTxFollowsCallerTransaction(t *testing.T) {
	svc, db := setup(t, repository.Provide())
	seedBook(t, db, 1001, 5)
	req := domain.AdjustRequest{
		Type:   "correction",
		Reason: "recount",
		Items:  []domain.AdjustItem{{BookID: "1001", Quantity: 9}},
	}

	rollback := errors.New("rollback")
	err := db.Transaction(func(tx *gorm.DB) error {
		_, _, err := svc.AdjustInTx(context.Background(), tx, req)
		require.NoError(t, err)
		return rollback
	})
	require.ErrorIs(t, err, rollback)
	stock, _ := stockOf(t, db, 1001)
	assert.Equal(t, 5, stock)

	var txn domain.StockTransaction
	var evts []events.Event
	err = db.Transaction(func(tx *gorm.DB) error {
		var err error
		txn, evts, err = svc.AdjustInTx(context.Background(), tx, req)
		return err
	})
	require.NoError(t, err)
	stock, _ = stockOf(t, db, 1001)
	assert.Equal(t, 9, stock)
	require.Len(t, txn.Items, 1)
	assert.Equal(t, 5, txn.Items[0].OldStock)
	require.Len(t, evts, 1)
	assert.Equal(t, events.StockAdjusted, evts[0].Type)

	history, err := svc.List(context.Background(), "1001")
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestAdjustInTxDoesNotRetry(t *testing.T) {
	repo := &staleRepo{Repository: repository.Provide(), n: 1}
	svc, db := setup(t, repo)
	seedBook(t, db, 1001, 5)

	err := db.Transaction(func(tx *gorm.DB) error {
		_, _, err := svc.AdjustInTx(context.Background(), tx, domain.AdjustRequest{
			Type:  "purchase",
			Items: []domain.AdjustItem{{BookID: "1001", Quantity: 1}},
		})
		return err
	})
	require.ErrorIs(t, err, domain.ErrConcurrentUpdate)
	assert.Equal(t, 1, repo.calls)
}

func TestListRejectsBadBookID(t *testing.T) {
	svc, _ := setup(t, repository.Provide())
	_, err := svc.List(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrInvalidBookID)
}
