package calculator

import (
	"time"

	"github.com/smallbiznis/shelfwise/internal/fee/domain"
	"github.com/smallbiznis/shelfwise/pkg/money"
)

type Outcome string

const (
	OutcomeReturned Outcome = "returned"
	OutcomeLost     Outcome = "lost"
	OutcomeDamaged  Outcome = "damaged"
)

type ItemInput struct {
	DueDate    time.Time
	ReturnDate time.Time
	Price      money.Amount
	Outcome    Outcome
	Severity   domain.Severity
}

type ItemFines struct {
	DaysLate int
	Overdue  money.Amount
	Lost     money.Amount
	Damage   money.Amount
	Total    money.Amount
}

// ItemFines prices one returned item. A lost item is charged the lost-book
// fine only; returned and damaged items accrue overdue fines.
func (c *Calculator) ItemFines(in ItemInput) ItemFines {
	out := ItemFines{DaysLate: DaysLate(in.DueDate, in.ReturnDate)}
	switch in.Outcome {
	case OutcomeLost:
		out.Lost = c.LostBookFine(in.Price)
	case OutcomeDamaged:
		out.Overdue = c.OverdueFineForDays(out.DaysLate)
		out.Damage = c.DamageFine(in.Price, in.Severity)
	default:
		out.Overdue = c.OverdueFineForDays(out.DaysLate)
	}
	out.Total = out.Overdue + out.Lost + out.Damage
	return out
}
