package assembler

import (
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/shelfwise/internal/invoice/domain"
	"github.com/smallbiznis/shelfwise/pkg/money"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

var now = time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC)

func TestForTransactionSumsAndLines(t *testing.T) {
	a := ForTransaction(domain.TransactionInput{
		TransactionID: 10,
		MemberID:      20,
		DueDate:       now.AddDate(0, 0, -6),
		Items: []domain.ItemFine{
			{ItemID: 1, BookID: 100, Title: "Dune", DaysLate: 6, Overdue: money.Cents(4000)},
			{ItemID: 2, BookID: 101, Title: "Emma", Lost: money.Cents(1500)},
			{ItemID: 3, BookID: 102, Title: "Ulysses", DaysLate: 6, Overdue: money.Cents(4000), Damage: money.Cents(750)},
			{ItemID: 4, BookID: 103, Title: "Clean"},
		},
	}, money.Cents(2000), now)

	assert.Equal(t, domain.InvoiceKindTransaction, a.Kind)
	require.NotNil(t, a.TransactionID)
	assert.Equal(t, snowflake.ID(10), *a.TransactionID)
	assert.Equal(t, money.Cents(8000), a.OverdueTotal)
	assert.Equal(t, money.Cents(1500), a.LostTotal)
	assert.Equal(t, money.Cents(750), a.DamageTotal)
	assert.Equal(t, money.Cents(10250), a.TotalAmount)
	assert.Equal(t, money.Cents(8250), a.AmountDue)
	assert.Equal(t, domain.InvoiceStatusPartiallyPaid, a.Status)
	assert.True(t, a.Overdue)

	require.Len(t, a.Lines, 4)
	assert.Equal(t, "Overdue fine: Dune (6 days late)", a.Lines[0].Description)
	assert.Equal(t, domain.LineKindLost, a.Lines[1].Kind)
	assert.Equal(t, domain.LineKindDamage, a.Lines[3].Kind)
	assert.Equal(t, snowflake.ID(102), *a.Lines[3].BookID)
}

func TestForTransactionOverpaidClampsDue(t *testing.T) {
	a := ForTransaction(domain.TransactionInput{
		DueDate: now.AddDate(0, 0, 1),
		Items:   []domain.ItemFine{{Overdue: money.Cents(100)}},
	}, money.Cents(500), now)
	assert.Equal(t, money.Zero, a.AmountDue)
	assert.Equal(t, domain.InvoiceStatusPaid, a.Status)
	assert.False(t, a.Overdue)
}

func TestForMembership(t *testing.T) {
	_, ok := ForMembership(domain.MembershipInput{MemberID: 1, TypeName: "Basic", Fee: 0}, now)
	assert.False(t, ok)

	a, ok := ForMembership(domain.MembershipInput{MemberID: 1, TypeName: "Gold", Fee: money.Cents(5000)}, now)
	require.True(t, ok)
	assert.Equal(t, money.Cents(5000), a.TotalAmount)
	assert.Equal(t, money.Cents(5000), a.AmountDue)
	assert.Equal(t, domain.InvoiceStatusUnpaid, a.Status)
	assert.Nil(t, a.TransactionID)
	require.Len(t, a.Lines, 1)
	assert.Equal(t, "Membership fee: Gold", a.Lines[0].Description)
	assert.Equal(t, now.Add(MembershipPaymentTerm), a.DueDate)
	assert.False(t, a.Overdue)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, domain.InvoiceStatusUnpaid, StatusFor(money.Cents(100), 0))
	assert.Equal(t, domain.InvoiceStatusPartiallyPaid, StatusFor(money.Cents(100), money.Cents(1)))
	assert.Equal(t, domain.InvoiceStatusPaid, StatusFor(money.Cents(100), money.Cents(100)))
	assert.Equal(t, domain.InvoiceStatusPaid, StatusFor(money.Cents(100), money.Cents(101)))
	assert.Equal(t, domain.InvoiceStatusPaid, StatusFor(0, 0))
}

func TestAmountDueInvariant(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		total := money.Cents(rapid.Int64Range(0, 1_000_000).Draw(t, "total"))
		paid := money.Cents(rapid.Int64Range(0, 1_000_000).Draw(t, "paid"))

		due := AmountDue(total, paid)
		if due < 0 {
			t.Fatalf("amount due %d is negative", due)
		}
		if paid <= total && due != total-paid {
			t.Fatalf("amount due %d != %d - %d", due, total, paid)
		}

		status := StatusFor(total, paid)
		if (due == 0) != (status == domain.InvoiceStatusPaid) {
			t.Fatalf("status %s inconsistent with amount due %d", status, due)
		}
	})
}
