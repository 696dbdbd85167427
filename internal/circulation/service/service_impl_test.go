package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	catalogdomain "github.com/smallbiznis/shelfwise/internal/catalog/domain"
	catalogrepo "github.com/smallbiznis/shelfwise/internal/catalog/repository"
	"github.com/smallbiznis/shelfwise/internal/circulation/domain"
	"github.com/smallbiznis/shelfwise/internal/circulation/repository"
	"github.com/smallbiznis/shelfwise/internal/clock"
	"github.com/smallbiznis/shelfwise/internal/config"
	"github.com/smallbiznis/shelfwise/internal/events"
	feedomain "github.com/smallbiznis/shelfwise/internal/fee/domain"
	invoicedomain "github.com/smallbiznis/shelfwise/internal/invoice/domain"
	invoicerepo "github.com/smallbiznis/shelfwise/internal/invoice/repository"
	invoicesvc "github.com/smallbiznis/shelfwise/internal/invoice/service"
	membershipdomain "github.com/smallbiznis/shelfwise/internal/membership/domain"
	membershiprepo "github.com/smallbiznis/shelfwise/internal/membership/repository"
	"github.com/smallbiznis/shelfwise/internal/providers/pdf"
	"github.com/smallbiznis/shelfwise/pkg/db/dbtest"
	"github.com/smallbiznis/shelfwise/pkg/money"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var today = time.Date(2024, 4, 30, 15, 0, 0, 0, time.UTC)

type fixture struct {
	svc   domain.Service
	db    *gorm.DB
	clock *clock.FakeClock
	ctx   context.Context
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	var models []any
	models = append(models, catalogdomain.Models()...)
	models = append(models, membershipdomain.Models()...)
	models = append(models, invoicedomain.Models()...)
	models = append(models, domain.Models()...)
	db := dbtest.Open(t, models...)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	settings := feedomain.DefaultSettings()
	perDay := 10.0
	settings.Overdue.PerDay = &perDay
	settings.GracePeriodDays = 2
	provider := feedomain.StaticSettings(settings)
	fc := clock.NewFakeClock(today)

	invoices := invoicesvc.New(invoicesvc.Params{
		DB:       db,
		Log:      zap.NewNop(),
		GenID:    node,
		Repo:     invoicerepo.Provide(),
		Settings: provider,
		Clock:    fc,
		PDF:      pdf.New(),
		Config:   config.Config{LibraryName: "Test Library"},
	})
	svc := New(Params{
		DB:       db,
		Log:      zap.NewNop(),
		GenID:    node,
		Repo:     repository.Provide(),
		Members:  membershiprepo.Provide(),
		Books:    catalogrepo.Provide(),
		Invoices: invoices,
		Settings: provider,
		Clock:    fc,
	})
	return fixture{svc: svc, db: db, clock: fc, ctx: context.Background()}
}

func (f fixture) seedMember(t *testing.T, id snowflake.ID, loanDays, maxBooks int, active bool) {
	t.Helper()
	members := membershiprepo.Provide()
	typeID := id + 1000
	require.NoError(t, members.InsertType(f.ctx, f.db, &membershipdomain.MembershipType{
		ID:            typeID,
		Name:          "plan-" + id.String(),
		MaxBorrowDays: loanDays,
		MaxBooks:      maxBooks,
		Active:        active,
		CreatedAt:     today,
		UpdatedAt:     today,
	}))
	require.NoError(t, members.InsertMember(f.ctx, f.db, &membershipdomain.Member{
		ID:               id,
		Name:             "Member " + id.String(),
		Email:            id.String() + "@example.org",
		MembershipTypeID: &typeID,
		CreatedAt:        today,
		UpdatedAt:        today,
	}))
}

func (f fixture) seedBook(t *testing.T, id snowflake.ID, title string, price money.Amount) {
	t.Helper()
	require.NoError(t, f.db.Create(&catalogdomain.Book{
		ID:        id,
		ISBN:      "97800000" + id.String(),
		Title:     title,
		Price:     price,
		Stock:     1,
		CreatedAt: today,
		UpdatedAt: today,
	}).Error)
}

func (f fixture) borrow(t *testing.T, memberID snowflake.ID, at time.Time, books ...string) domain.Transaction {
	t.Helper()
	txn, _, err := f.svc.Borrow(f.ctx, domain.BorrowRequest{
		MemberID:   memberID.String(),
		BookIDs:    books,
		BorrowedAt: &at,
	})
	require.NoError(t, err)
	return txn
}

func eventTypes(evts []events.Event) []events.Type {
	out := make([]events.Type, 0, len(evts))
	for _, e := range evts {
		out = append(out, e.Type)
	}
	return out
}

func TestReturnScenarioFortyDollarFine(t *testing.T) {
	f := newFixture(t)
	f.seedMember(t, 1, 14, 3, true)
	f.seedBook(t, 10001, "Dune", money.FromDollars(20))

	txn := f.borrow(t, 1, today.AddDate(0, 0, -20), "10001")
	assert.True(t, txn.DueDate.Equal(today.AddDate(0, 0, -6)))
	require.Len(t, txn.Items, 1)
	assert.Equal(t, 14, txn.Items[0].BorrowedFor)

	result, evts, err := f.svc.Return(f.ctx, domain.ReturnRequest{TransactionID: txn.ID.String()})
	require.NoError(t, err)

	got := result.Transaction
	assert.Equal(t, domain.StatusDelayed, got.Status)
	assert.Equal(t, domain.LifecycleCompleted, got.LifecycleStatus)
	require.NotNil(t, got.ReturnedDate)
	assert.Equal(t, money.FromDollars(40), got.Items[0].OverdueFine)
	assert.Equal(t, money.FromDollars(40), got.Items[0].TotalFine)

	require.NotNil(t, result.Invoice)
	assert.Equal(t, "$40.00", result.Invoice.TotalAmount.Format("$"))
	assert.Equal(t, invoicedomain.InvoiceStatusUnpaid, result.Invoice.Status)
	assert.Equal(t,
		[]events.Type{events.TransactionReturned, events.FineAssessed, events.InvoiceIssued},
		eventTypes(evts),
	)

	stored, err := f.svc.Get(f.ctx, txn.ID.String())
	require.NoError(t, err)
	assert.Equal(t, money.FromDollars(40), stored.Items[0].TotalFine)
	assert.Equal(t, "Dune", stored.Items[0].Title)
}

func TestReturnOnTimeCreatesNoInvoice(t *testing.T) {
	f := newFixture(t)
	f.seedMember(t, 1, 14, 3, true)
	f.seedBook(t, 10001, "Dune", money.FromDollars(20))

	txn := f.borrow(t, 1, today.AddDate(0, 0, -3), "10001")
	result, evts, err := f.svc.Return(f.ctx, domain.ReturnRequest{TransactionID: txn.ID.String()})
	require.NoError(t, err)
	assert.Nil(t, result.Invoice)
	assert.Equal(t, domain.StatusReturned, result.Transaction.Status)
	assert.Equal(t, []events.Type{events.TransactionReturned}, eventTypes(evts))

	var n int64
	require.NoError(t, f.db.Model(&invoicedomain.Invoice{}).Count(&n).Error)
	assert.Equal(t, int64(0), n)
}

func TestReturnLostAndDamagedItems(t *testing.T) {
	f := newFixture(t)
	f.seedMember(t, 1, 14, 3, true)
	f.seedBook(t, 10001, "Dune", money.FromDollars(20))
	f.seedBook(t, 10002, "Emma", money.FromDollars(12))
	f.seedBook(t, 10003, "Ulysses", money.FromDollars(30))

	txn := f.borrow(t, 1, today.AddDate(0, 0, -5), "10001", "10002", "10003")
	items := map[snowflake.ID]string{}
	for _, item := range txn.Items {
		items[item.BookID] = item.ID.String()
	}

	result, _, err := f.svc.Return(f.ctx, domain.ReturnRequest{
		TransactionID: txn.ID.String(),
		Items: []domain.ReturnItem{
			{ItemID: items[10001], Outcome: "lost"},
			{ItemID: items[10002], Outcome: "damaged", Severity: "severe"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusLost, result.Transaction.Status)

	byBook := map[snowflake.ID]domain.TransactionItem{}
	for _, item := range result.Transaction.Items {
		byBook[item.BookID] = item
	}
	assert.Equal(t, domain.ItemLost, byBook[10001].ItemStatus)
	assert.Equal(t, money.FromDollars(20), byBook[10001].LostFine)
	assert.Equal(t, domain.ItemDamaged, byBook[10002].ItemStatus)
	// 50% of $12 scaled by the severe multiplier.
	assert.Equal(t, money.FromDollars(9), byBook[10002].DamageFine)
	require.NotNil(t, byBook[10002].DamageSeverity)
	assert.Equal(t, "severe", *byBook[10002].DamageSeverity)
	assert.Equal(t, domain.ItemReturned, byBook[10003].ItemStatus)
	assert.Equal(t, money.Amount(0), byBook[10003].TotalFine)

	require.NotNil(t, result.Invoice)
	assert.Equal(t, money.FromDollars(29), result.Invoice.TotalAmount)
}

func TestReturnRejections(t *testing.T) {
	f := newFixture(t)
	f.seedMember(t, 1, 14, 3, true)
	f.seedBook(t, 10001, "Dune", money.FromDollars(20))
	txn := f.borrow(t, 1, today.AddDate(0, 0, -1), "10001")

	_, _, err := f.svc.Return(f.ctx, domain.ReturnRequest{TransactionID: txn.ID.String(), Items: []domain.ReturnItem{{ItemID: "42", Outcome: "lost"}}})
	assert.ErrorIs(t, err, domain.ErrInvalidItem)

	_, _, err = f.svc.Return(f.ctx, domain.ReturnRequest{TransactionID: txn.ID.String(), Items: []domain.ReturnItem{{ItemID: txn.Items[0].ID.String(), Outcome: "stolen"}}})
	assert.ErrorIs(t, err, domain.ErrInvalidOutcome)

	itemID := txn.Items[0].ID.String()
	_, _, err = f.svc.Return(f.ctx, domain.ReturnRequest{TransactionID: txn.ID.String(), Items: []domain.ReturnItem{
		{ItemID: itemID, Outcome: "lost"},
		{ItemID: itemID, Outcome: "returned"},
	}})
	assert.ErrorIs(t, err, domain.ErrDuplicateItem)

	early := today.AddDate(0, 0, -2)
	_, _, err = f.svc.Return(f.ctx, domain.ReturnRequest{TransactionID: txn.ID.String(), ReturnedAt: &early})
	assert.ErrorIs(t, err, domain.ErrReturnBeforeBorrow)

	_, _, err = f.svc.Return(f.ctx, domain.ReturnRequest{TransactionID: txn.ID.String()})
	require.NoError(t, err)
	_, _, err = f.svc.Return(f.ctx, domain.ReturnRequest{TransactionID: txn.ID.String()})
	assert.ErrorIs(t, err, domain.ErrTransactionLocked)
}

func TestBorrowRejections(t *testing.T) {
	f := newFixture(t)
	f.seedMember(t, 1, 14, 1, true)
	f.seedMember(t, 2, 14, 5, false)
	f.seedBook(t, 10001, "Dune", money.FromDollars(20))
	f.seedBook(t, 10002, "Emma", money.FromDollars(12))

	cases := []struct {
		name string
		req  domain.BorrowRequest
		want error
	}{
		{"too many books", domain.BorrowRequest{MemberID: "1", BookIDs: []string{"10001", "10002"}}, domain.ErrTooManyBooks},
		{"inactive membership", domain.BorrowRequest{MemberID: "2", BookIDs: []string{"10001"}}, domain.ErrNoActiveMembership},
		{"unknown member", domain.BorrowRequest{MemberID: "77", BookIDs: []string{"10001"}}, domain.ErrMemberNotFound},
		{"unknown book", domain.BorrowRequest{MemberID: "1", BookIDs: []string{"99999"}}, domain.ErrBookNotFound},
		{"no books", domain.BorrowRequest{MemberID: "1"}, domain.ErrNoBooks},
		{"duplicate book", domain.BorrowRequest{MemberID: "1", BookIDs: []string{"10001", "10001"}}, domain.ErrDuplicateBook},
		{"bad member id", domain.BorrowRequest{MemberID: "abc", BookIDs: []string{"10001"}}, domain.ErrInvalidMember},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := f.svc.Borrow(f.ctx, tc.req)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestEditingLockedOnceReturned(t *testing.T) {
	f := newFixture(t)
	f.seedMember(t, 1, 14, 3, true)
	f.seedBook(t, 10001, "Dune", money.FromDollars(20))
	txn := f.borrow(t, 1, today, "10001")

	updated, err := f.svc.UpdateNotes(f.ctx, txn.ID.String(), " spine cracked ")
	require.NoError(t, err)
	assert.Equal(t, "spine cracked", updated.Notes)

	_, _, err = f.svc.Return(f.ctx, domain.ReturnRequest{TransactionID: txn.ID.String()})
	require.NoError(t, err)

	_, err = f.svc.UpdateNotes(f.ctx, txn.ID.String(), "later")
	assert.ErrorIs(t, err, domain.ErrTransactionLocked)
	assert.ErrorIs(t, f.svc.Delete(f.ctx, txn.ID.String()), domain.ErrTransactionLocked)

	archived, evts, err := f.svc.Archive(f.ctx, txn.ID.String())
	require.NoError(t, err)
	assert.Equal(t, domain.LifecycleArchived, archived.LifecycleStatus)
	assert.Equal(t, []events.Type{events.TransactionArchived}, eventTypes(evts))

	_, _, err = f.svc.Cancel(f.ctx, txn.ID.String())
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestCancelAndDeleteActiveTransaction(t *testing.T) {
	f := newFixture(t)
	f.seedMember(t, 1, 14, 3, true)
	f.seedBook(t, 10001, "Dune", money.FromDollars(20))

	first := f.borrow(t, 1, today, "10001")
	cancelled, _, err := f.svc.Cancel(f.ctx, first.ID.String())
	require.NoError(t, err)
	assert.Equal(t, domain.LifecycleCancelled, cancelled.LifecycleStatus)

	_, _, err = f.svc.Archive(f.ctx, first.ID.String())
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	_, _, err = f.svc.Return(f.ctx, domain.ReturnRequest{TransactionID: first.ID.String()})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	second := f.borrow(t, 1, today, "10001")
	require.NoError(t, f.svc.Delete(f.ctx, second.ID.String()))
	_, err = f.svc.Get(f.ctx, second.ID.String())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestOverdueListingAndMarkDelayed(t *testing.T) {
	f := newFixture(t)
	f.seedMember(t, 1, 7, 3, true)
	f.seedMember(t, 2, 7, 3, true)
	f.seedBook(t, 10001, "Dune", money.FromDollars(20))
	f.seedBook(t, 10002, "Emma", money.FromDollars(12))
	f.seedBook(t, 10003, "Ulysses", money.FromDollars(30))

	f.borrow(t, 1, today.AddDate(0, 0, -10), "10001", "10002")
	f.borrow(t, 2, today.AddDate(0, 0, -9), "10003")
	f.borrow(t, 2, today.AddDate(0, 0, -1), "10001")

	groups, err := f.svc.ListOverdue(f.ctx, today)
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, snowflake.ID(1), groups[0].MemberID)
	assert.Len(t, groups[0].Loans, 2)
	assert.Equal(t, "1@example.org", groups[0].MemberEmail)
	require.Len(t, groups[1].Loans, 1)
	assert.Equal(t, "Ulysses", groups[1].Loans[0].Title)
	assert.Equal(t, money.FromDollars(30), groups[1].Loans[0].Price)

	count, evts, err := f.svc.MarkDelayed(f.ctx, today)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Len(t, evts, 2)

	count, _, err = f.svc.MarkDelayed(f.ctx, today)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestOverdueListingPagesThroughEveryLoan(t *testing.T) {
	f := newFixture(t)
	f.seedMember(t, 1, 7, 3, true)
	f.seedMember(t, 2, 7, 3, true)
	f.seedBook(t, 10001, "Dune", money.FromDollars(20))
	f.seedBook(t, 10002, "Emma", money.FromDollars(12))
	f.seedBook(t, 10003, "Ulysses", money.FromDollars(30))

	f.borrow(t, 1, today.AddDate(0, 0, -10), "10001", "10002")
	f.borrow(t, 2, today.AddDate(0, 0, -12), "10003")
	f.borrow(t, 2, today.AddDate(0, 0, -20), "10001")

	want, err := f.svc.ListOverdue(f.ctx, today)
	require.NoError(t, err)

	for _, size := range []int{1, 2, 3} {
		f.svc.(*Service).overdueBatch = size
		got, err := f.svc.ListOverdue(f.ctx, today)
		require.NoError(t, err)
		assert.Equal(t, want, got, "batch size %d", size)
	}

	require.Len(t, want, 2)
	assert.Len(t, want[0].Loans, 2)
	require.Len(t, want[1].Loans, 2)
	assert.Equal(t, "Dune", want[1].Loans[0].Title)
	assert.Equal(t, "Ulysses", want[1].Loans[1].Title)
}
