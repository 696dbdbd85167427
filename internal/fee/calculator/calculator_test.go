package calculator

import (
	"testing"
	"time"

	"github.com/smallbiznis/shelfwise/internal/fee/domain"
	"github.com/smallbiznis/shelfwise/pkg/money"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f(v float64) *float64 { return &v }
func i(v int) *int         { return &v }

func baseSettings() domain.Settings {
	return domain.Settings{
		Overdue: domain.OverdueRule{
			Enabled: true,
			PerDay:  f(10),
		},
		LostBook: domain.FineRule{
			Type: domain.FineTypePercentage,
			Rate: f(100),
		},
		Damage: domain.FineRule{
			Type: domain.FineTypeFixed,
			Rate: f(15),
		},
		GracePeriodDays: 2,
		CurrencySymbol:  "$",
		CurrencyCode:    "USD",
	}
}

func mustCalc(t *testing.T, s domain.Settings) *Calculator {
	t.Helper()
	c, err := New(s)
	require.NoError(t, err)
	return c
}

func TestOverdueFineScenarioFortyDollars(t *testing.T) {
	now := time.Date(2026, 3, 20, 15, 0, 0, 0, time.UTC)
	borrowed := now.AddDate(0, 0, -20)
	due := borrowed.AddDate(0, 0, 14)
	require.Equal(t, now.AddDate(0, 0, -6), due)

	c := mustCalc(t, baseSettings())
	fine := c.OverdueFine(due, now)
	assert.Equal(t, money.Amount(4000), fine)
	assert.Equal(t, "$40.00", c.FormatFine(fine))
}

func TestOverdueFineWithinGrace(t *testing.T) {
	now := time.Date(2026, 3, 20, 9, 0, 0, 0, time.UTC)
	c := mustCalc(t, baseSettings())
	fine := c.OverdueFine(now.AddDate(0, 0, -1), now)
	assert.Equal(t, money.Zero, fine)
	assert.Equal(t, "$0.00", c.FormatFine(fine))
}

func TestOverdueFineDisabled(t *testing.T) {
	s := baseSettings()
	s.Overdue.Enabled = false
	c := mustCalc(t, s)
	now := time.Now()
	assert.Equal(t, money.Zero, c.OverdueFine(now.AddDate(0, 0, -30), now))
}

func TestOverdueFineReturnedEarly(t *testing.T) {
	c := mustCalc(t, baseSettings())
	now := time.Now()
	assert.Equal(t, money.Zero, c.OverdueFine(now.AddDate(0, 0, 5), now))
}

func TestOverdueFineGraceBeforeMaxDays(t *testing.T) {
	s := baseSettings()
	s.Overdue.MaxDays = i(5)
	c := mustCalc(t, s)
	// 10 days late, minus 2 grace = 8, capped at 5.
	assert.Equal(t, money.Amount(5000), c.OverdueFineForDays(10))
	// 6 days late, minus 2 grace = 4, below the cap.
	assert.Equal(t, money.Amount(4000), c.OverdueFineForDays(6))
}

func TestOverdueFineMaxAmount(t *testing.T) {
	s := baseSettings()
	s.Overdue.MaxAmount = f(25)
	c := mustCalc(t, s)
	assert.Equal(t, money.Amount(2500), c.OverdueFineForDays(30))
}

func TestWaiverEvaluatedAfterMaxAmount(t *testing.T) {
	s := baseSettings()
	s.Overdue.PerDay = f(1)
	s.Overdue.MaxAmount = f(2)
	s.WaiveSmallAmounts = true
	s.SmallAmountLimit = 3
	c := mustCalc(t, s)
	// 12 chargeable days = $12 before the cap; the cap brings it to $2 which is then waived.
	assert.Equal(t, money.Zero, c.OverdueFineForDays(14))

	s.SmallAmountLimit = 2
	c = mustCalc(t, s)
	assert.Equal(t, money.Amount(200), c.OverdueFineForDays(14))
}

func TestLostBookFine(t *testing.T) {
	s := baseSettings()
	c := mustCalc(t, s)
	assert.Equal(t, money.Amount(2599), c.LostBookFine(2599))

	s.LostBook = domain.FineRule{Type: domain.FineTypePercentage, Rate: f(50), Minimum: f(5), Maximum: f(20)}
	c = mustCalc(t, s)
	assert.Equal(t, money.Amount(500), c.LostBookFine(400))
	assert.Equal(t, money.Amount(1000), c.LostBookFine(2000))
	assert.Equal(t, money.Amount(2000), c.LostBookFine(10000))

	s.LostBook = domain.FineRule{Type: domain.FineTypeFixed, Rate: f(12.5)}
	c = mustCalc(t, s)
	assert.Equal(t, money.Amount(1250), c.LostBookFine(99999))
}

func TestDamageFineSeverity(t *testing.T) {
	s := baseSettings()
	s.Damage = domain.FineRule{Type: domain.FineTypePercentage, Rate: f(40), Maximum: f(15)}
	c := mustCalc(t, s)

	assert.Equal(t, money.Amount(400), c.DamageFine(2000, domain.SeverityMinor))
	assert.Equal(t, money.Amount(800), c.DamageFine(2000, ""))
	assert.Equal(t, money.Amount(1200), c.DamageFine(2000, domain.SeveritySevere))
	assert.Equal(t, money.Amount(1500), c.DamageFine(5000, domain.SeveritySevere))
}

func TestItemFines(t *testing.T) {
	c := mustCalc(t, baseSettings())
	due := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	ret := due.AddDate(0, 0, 5)

	returned := c.ItemFines(ItemInput{DueDate: due, ReturnDate: ret, Price: 2000, Outcome: OutcomeReturned})
	assert.Equal(t, 5, returned.DaysLate)
	assert.Equal(t, money.Amount(3000), returned.Overdue)
	assert.Equal(t, money.Amount(3000), returned.Total)

	lost := c.ItemFines(ItemInput{DueDate: due, ReturnDate: ret, Price: 2000, Outcome: OutcomeLost})
	assert.Equal(t, money.Zero, lost.Overdue)
	assert.Equal(t, money.Amount(2000), lost.Lost)
	assert.Equal(t, money.Amount(2000), lost.Total)

	damaged := c.ItemFines(ItemInput{DueDate: due, ReturnDate: ret, Price: 2000, Outcome: OutcomeDamaged})
	assert.Equal(t, money.Amount(3000), damaged.Overdue)
	assert.Equal(t, money.Amount(1500), damaged.Damage)
	assert.Equal(t, money.Amount(4500), damaged.Total)
}

func TestDaysLateUsesCalendarDays(t *testing.T) {
	due := time.Date(2026, 1, 10, 23, 0, 0, 0, time.UTC)
	assert.Equal(t, 0, DaysLate(due, due.Add(30*time.Minute)))
	assert.Equal(t, 1, DaysLate(due, due.Add(2*time.Hour)))
}

func TestNewRejectsMalformedSettings(t *testing.T) {
	cases := map[string]func(*domain.Settings){
		"missing per day":     func(s *domain.Settings) { s.Overdue.PerDay = nil },
		"negative per day":    func(s *domain.Settings) { s.Overdue.PerDay = f(-1) },
		"unknown fine type":   func(s *domain.Settings) { s.LostBook.Type = "weird" },
		"missing lost rate":   func(s *domain.Settings) { s.LostBook.Rate = nil },
		"min above max":       func(s *domain.Settings) { s.Damage.Minimum = f(10); s.Damage.Maximum = f(5) },
		"negative grace":      func(s *domain.Settings) { s.GracePeriodDays = -1 },
		"missing symbol":      func(s *domain.Settings) { s.CurrencySymbol = "" },
		"bad currency code":   func(s *domain.Settings) { s.CurrencyCode = "DOLLARS" },
		"unknown severity":    func(s *domain.Settings) { s.DamageSeverity = map[domain.Severity]float64{"total": 2} },
		"negative max amount": func(s *domain.Settings) { s.Overdue.MaxAmount = f(-5) },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			s := baseSettings()
			mutate(&s)
			_, err := New(s)
			require.ErrorIs(t, err, domain.ErrInvalidSettings)
		})
	}
}
