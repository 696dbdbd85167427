// Package calculator computes overdue, lost-book and damage fines from a
// validated fee settings snapshot. It has no side effects.
package calculator

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/shelfwise/internal/fee/domain"
	"github.com/smallbiznis/shelfwise/pkg/money"
)

var hundred = decimal.NewFromInt(100)

type Calculator struct {
	rates domain.Rates
}

// New validates settings and returns a calculator bound to that snapshot.
func New(settings domain.Settings) (*Calculator, error) {
	rates, err := settings.Rates()
	if err != nil {
		return nil, err
	}
	return &Calculator{rates: rates}, nil
}

func (c *Calculator) Rates() domain.Rates { return c.rates }

// DaysLate counts whole calendar days (UTC) from due to returned, floored at zero.
func DaysLate(dueDate, returnDate time.Time) int {
	due := truncateDay(dueDate)
	ret := truncateDay(returnDate)
	if !ret.After(due) {
		return 0
	}
	return int(ret.Sub(due).Hours() / 24)
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ChargeableDays applies the grace period and the optional max-days cap.
func (c *Calculator) ChargeableDays(daysLate int) int {
	if daysLate < 0 {
		daysLate = 0
	}
	days := daysLate - c.rates.GracePeriodDays
	if days < 0 {
		days = 0
	}
	if c.rates.OverdueMaxDays != nil && days > *c.rates.OverdueMaxDays {
		days = *c.rates.OverdueMaxDays
	}
	return days
}

// OverdueFineForDays is OverdueFine with the late day count already known.
func (c *Calculator) OverdueFineForDays(daysLate int) money.Amount {
	if !c.rates.OverdueEnabled {
		return money.Zero
	}
	fine := c.rates.OverduePerDay.Times(int64(c.ChargeableDays(daysLate)))
	if c.rates.OverdueMaxAmount != nil {
		fine = money.Min(fine, *c.rates.OverdueMaxAmount)
	}
	if c.rates.WaiveSmallAmounts && fine < c.rates.SmallAmountLimit {
		return money.Zero
	}
	return fine
}

func (c *Calculator) OverdueFine(dueDate, returnDate time.Time) money.Amount {
	return c.OverdueFineForDays(DaysLate(dueDate, returnDate))
}

func (c *Calculator) LostBookFine(price money.Amount) money.Amount {
	return Clamp(base(c.rates.LostBook, price), c.rates.LostBook.Minimum, c.rates.LostBook.Maximum)
}

// DamageFine scales the unclamped damage charge by the severity multiplier.
// An empty severity is treated as moderate.
func (c *Calculator) DamageFine(price money.Amount, severity domain.Severity) money.Amount {
	if severity == "" {
		severity = domain.SeverityModerate
	}
	fine := base(c.rates.Damage, price)
	if mult, ok := c.rates.DamageSeverity[severity]; ok {
		fine = fine.MulRatio(mult)
	}
	return Clamp(fine, c.rates.Damage.Minimum, c.rates.Damage.Maximum)
}

func (c *Calculator) FormatFine(amount money.Amount) string {
	return amount.Format(c.rates.CurrencySymbol)
}

func base(rule domain.Rule, price money.Amount) money.Amount {
	switch rule.Type {
	case domain.FineTypePercentage:
		return price.MulRatio(rule.Percent.Div(hundred))
	default:
		return rule.Fixed
	}
}

// Clamp bounds v to [min, max]; a nil bound leaves that side open.
func Clamp(v money.Amount, min, max *money.Amount) money.Amount {
	if min != nil && v < *min {
		v = *min
	}
	if max != nil && v > *max {
		v = *max
	}
	return v
}
