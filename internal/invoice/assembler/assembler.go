// Package assembler folds per-item fines or a membership fee into the
// amounts, lines and status of an invoice. It performs no I/O.
package assembler

import (
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/shelfwise/internal/invoice/domain"
	"github.com/smallbiznis/shelfwise/pkg/money"
)

// MembershipPaymentTerm is how long a member has to pay a membership fee.
const MembershipPaymentTerm = 14 * 24 * time.Hour

type Line struct {
	Kind        domain.LineKind
	Description string
	BookID      *snowflake.ID
	ItemID      *snowflake.ID
	Amount      money.Amount
}

type Assembly struct {
	Kind          domain.InvoiceKind
	MemberID      snowflake.ID
	TransactionID *snowflake.ID
	Lines         []Line
	OverdueTotal  money.Amount
	LostTotal     money.Amount
	DamageTotal   money.Amount
	TotalAmount   money.Amount
	AmountPaid    money.Amount
	AmountDue     money.Amount
	Status        domain.InvoiceStatus
	DueDate       time.Time
	Overdue       bool
}

// ForTransaction builds one line per non-zero fine kind per item. The
// invoice is due on the loan due date.
func ForTransaction(in domain.TransactionInput, amountPaid money.Amount, now time.Time) Assembly {
	txID := in.TransactionID
	a := Assembly{
		Kind:          domain.InvoiceKindTransaction,
		MemberID:      in.MemberID,
		TransactionID: &txID,
		DueDate:       in.DueDate.UTC(),
	}

	for _, item := range in.Items {
		bookID, itemID := item.BookID, item.ItemID
		add := func(kind domain.LineKind, amount money.Amount, description string) {
			if amount <= 0 {
				return
			}
			a.Lines = append(a.Lines, Line{
				Kind:        kind,
				Description: description,
				BookID:      &bookID,
				ItemID:      &itemID,
				Amount:      amount,
			})
		}
		add(domain.LineKindOverdue, item.Overdue, fmt.Sprintf("Overdue fine: %s (%d days late)", item.Title, item.DaysLate))
		add(domain.LineKindLost, item.Lost, fmt.Sprintf("Lost book: %s", item.Title))
		add(domain.LineKindDamage, item.Damage, fmt.Sprintf("Damaged book: %s", item.Title))

		a.OverdueTotal += item.Overdue
		a.LostTotal += item.Lost
		a.DamageTotal += item.Damage
	}

	a.TotalAmount = a.OverdueTotal + a.LostTotal + a.DamageTotal
	settle(&a, amountPaid, now)
	return a
}

// ForMembership returns false when the fee is not strictly positive; no
// invoice should exist for such an assignment.
func ForMembership(in domain.MembershipInput, now time.Time) (Assembly, bool) {
	if in.Fee <= 0 {
		return Assembly{}, false
	}
	a := Assembly{
		Kind:     domain.InvoiceKindMembership,
		MemberID: in.MemberID,
		Lines: []Line{{
			Kind:        domain.LineKindMembership,
			Description: fmt.Sprintf("Membership fee: %s", in.TypeName),
			Amount:      in.Fee,
		}},
		TotalAmount: in.Fee,
		DueDate:     now.UTC().Add(MembershipPaymentTerm),
	}
	settle(&a, 0, now)
	return a, true
}

func settle(a *Assembly, paid money.Amount, now time.Time) {
	a.AmountPaid = paid
	a.AmountDue = AmountDue(a.TotalAmount, paid)
	a.Status = StatusFor(a.TotalAmount, paid)
	a.Overdue = IsOverdue(a.DueDate, a.AmountDue, now)
}

// StatusFor derives the payment status. Waived is never derived.
func StatusFor(total, paid money.Amount) domain.InvoiceStatus {
	switch {
	case paid <= 0 && total > 0:
		return domain.InvoiceStatusUnpaid
	case paid < total:
		return domain.InvoiceStatusPartiallyPaid
	default:
		return domain.InvoiceStatusPaid
	}
}

// AmountDue is total minus paid, never below zero.
func AmountDue(total, paid money.Amount) money.Amount {
	return money.Max(total-paid, 0)
}

func IsOverdue(dueDate time.Time, amountDue money.Amount, now time.Time) bool {
	return amountDue > 0 && dueDate.Before(now)
}
