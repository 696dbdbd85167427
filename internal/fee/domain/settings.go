package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/shelfwise/pkg/money"
)

type FineType string

const (
	FineTypePercentage FineType = "percentage"
	FineTypeFixed      FineType = "fixed"
)

type Severity string

const (
	SeverityMinor    Severity = "minor"
	SeverityModerate Severity = "moderate"
	SeveritySevere   Severity = "severe"
)

var ErrInvalidSettings = errors.New("invalid_fee_settings")

// FineRule is a percentage-of-price or fixed charge clamped to optional bounds.
// Rate is a percent for FineTypePercentage and dollars for FineTypeFixed.
type FineRule struct {
	Type    FineType `mapstructure:"type" json:"type"`
	Rate    *float64 `mapstructure:"rate" json:"rate"`
	Minimum *float64 `mapstructure:"minimum" json:"minimum,omitempty"`
	Maximum *float64 `mapstructure:"maximum" json:"maximum,omitempty"`
}

type OverdueRule struct {
	Enabled   bool     `mapstructure:"enabled" json:"enabled"`
	PerDay    *float64 `mapstructure:"per_day" json:"per_day"`
	MaxDays   *int     `mapstructure:"max_days" json:"max_days,omitempty"`
	MaxAmount *float64 `mapstructure:"max_amount" json:"max_amount,omitempty"`
}

// Settings is the fee configuration as read from fees.yml. Values are dollars.
type Settings struct {
	Overdue             OverdueRule          `mapstructure:"overdue" json:"overdue"`
	LostBook            FineRule             `mapstructure:"lost_book" json:"lost_book"`
	Damage              FineRule             `mapstructure:"damage" json:"damage"`
	DamageSeverity      map[Severity]float64 `mapstructure:"damage_severity" json:"damage_severity"`
	GracePeriodDays     int                  `mapstructure:"grace_period_days" json:"grace_period_days"`
	AllowPartialPayment bool                 `mapstructure:"allow_partial_payment" json:"allow_partial_payment"`
	WaiveSmallAmounts   bool                 `mapstructure:"waive_small_amounts" json:"waive_small_amounts"`
	SmallAmountLimit    float64              `mapstructure:"small_amount_threshold" json:"small_amount_threshold"`
	CurrencySymbol      string               `mapstructure:"currency_symbol" json:"currency_symbol"`
	CurrencyCode        string               `mapstructure:"currency_code" json:"currency_code"`
	OverdueNotices      bool                 `mapstructure:"overdue_notices_enabled" json:"overdue_notices_enabled"`
}

// Rates is the validated, cent-denominated form of Settings used by the calculator.
type Rates struct {
	OverdueEnabled      bool
	OverduePerDay       money.Amount
	OverdueMaxDays      *int
	OverdueMaxAmount    *money.Amount
	LostBook            Rule
	Damage              Rule
	DamageSeverity      map[Severity]decimal.Decimal
	GracePeriodDays     int
	AllowPartialPayment bool
	WaiveSmallAmounts   bool
	SmallAmountLimit    money.Amount
	CurrencySymbol      string
	CurrencyCode        string
	OverdueNotices      bool
}

type Rule struct {
	Type    FineType
	Percent decimal.Decimal
	Fixed   money.Amount
	Minimum *money.Amount
	Maximum *money.Amount
}

func settingsError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidSettings, fmt.Sprintf(format, args...))
}

// Rates validates the settings and converts dollar values to cents.
func (s Settings) Rates() (Rates, error) {
	r := Rates{
		OverdueEnabled:      s.Overdue.Enabled,
		GracePeriodDays:     s.GracePeriodDays,
		AllowPartialPayment: s.AllowPartialPayment,
		WaiveSmallAmounts:   s.WaiveSmallAmounts,
		CurrencySymbol:      s.CurrencySymbol,
		CurrencyCode:        strings.ToUpper(strings.TrimSpace(s.CurrencyCode)),
		OverdueNotices:      s.OverdueNotices,
	}

	if s.Overdue.PerDay == nil {
		return Rates{}, settingsError("overdue.per_day is required")
	}
	if *s.Overdue.PerDay < 0 {
		return Rates{}, settingsError("overdue.per_day must be >= 0")
	}
	r.OverduePerDay = money.FromDollars(*s.Overdue.PerDay)

	if s.Overdue.MaxDays != nil {
		if *s.Overdue.MaxDays < 0 {
			return Rates{}, settingsError("overdue.max_days must be >= 0")
		}
		v := *s.Overdue.MaxDays
		r.OverdueMaxDays = &v
	}
	if s.Overdue.MaxAmount != nil {
		if *s.Overdue.MaxAmount < 0 {
			return Rates{}, settingsError("overdue.max_amount must be >= 0")
		}
		v := money.FromDollars(*s.Overdue.MaxAmount)
		r.OverdueMaxAmount = &v
	}
	if s.GracePeriodDays < 0 {
		return Rates{}, settingsError("grace_period_days must be >= 0")
	}
	if s.SmallAmountLimit < 0 {
		return Rates{}, settingsError("small_amount_threshold must be >= 0")
	}
	r.SmallAmountLimit = money.FromDollars(s.SmallAmountLimit)

	if strings.TrimSpace(s.CurrencySymbol) == "" {
		return Rates{}, settingsError("currency_symbol is required")
	}
	if len(r.CurrencyCode) != 3 {
		return Rates{}, settingsError("currency_code must be a 3-letter ISO code")
	}

	lost, err := s.LostBook.rule("lost_book")
	if err != nil {
		return Rates{}, err
	}
	r.LostBook = lost

	damage, err := s.Damage.rule("damage")
	if err != nil {
		return Rates{}, err
	}
	r.Damage = damage

	r.DamageSeverity = map[Severity]decimal.Decimal{
		SeverityMinor:    decimal.NewFromFloat(0.5),
		SeverityModerate: decimal.NewFromInt(1),
		SeveritySevere:   decimal.NewFromFloat(1.5),
	}
	for sev, mult := range s.DamageSeverity {
		if !sev.Valid() {
			return Rates{}, settingsError("damage_severity.%s is not a known severity", sev)
		}
		if mult < 0 {
			return Rates{}, settingsError("damage_severity.%s must be >= 0", sev)
		}
		r.DamageSeverity[sev] = decimal.NewFromFloat(mult)
	}

	return r, nil
}

// Validate reports the first configuration problem, if any.
func (s Settings) Validate() error {
	_, err := s.Rates()
	return err
}

func (f FineRule) rule(key string) (Rule, error) {
	if f.Rate == nil {
		return Rule{}, settingsError("%s.rate is required", key)
	}
	if *f.Rate < 0 {
		return Rule{}, settingsError("%s.rate must be >= 0", key)
	}
	r := Rule{Type: f.Type}
	switch f.Type {
	case FineTypePercentage:
		r.Percent = decimal.NewFromFloat(*f.Rate)
	case FineTypeFixed:
		r.Fixed = money.FromDollars(*f.Rate)
	default:
		return Rule{}, settingsError("%s.type must be percentage or fixed, got %q", key, f.Type)
	}
	if f.Minimum != nil {
		if *f.Minimum < 0 {
			return Rule{}, settingsError("%s.minimum must be >= 0", key)
		}
		v := money.FromDollars(*f.Minimum)
		r.Minimum = &v
	}
	if f.Maximum != nil {
		if *f.Maximum < 0 {
			return Rule{}, settingsError("%s.maximum must be >= 0", key)
		}
		v := money.FromDollars(*f.Maximum)
		r.Maximum = &v
	}
	if r.Minimum != nil && r.Maximum != nil && *r.Minimum > *r.Maximum {
		return Rule{}, settingsError("%s.minimum must not exceed %s.maximum", key, key)
	}
	return r, nil
}

func (s Severity) Valid() bool {
	switch s {
	case SeverityMinor, SeverityModerate, SeveritySevere:
		return true
	default:
		return false
	}
}

func ParseSeverity(raw string) (Severity, error) {
	s := Severity(strings.ToLower(strings.TrimSpace(raw)))
	if s == "" {
		return SeverityModerate, nil
	}
	if !s.Valid() {
		return "", ErrInvalidSeverity
	}
	return s, nil
}

var ErrInvalidSeverity = errors.New("invalid_severity")

func floatPtr(v float64) *float64 { return &v }

// DefaultSettings is used when no fees.yml is present.
func DefaultSettings() Settings {
	return Settings{
		Overdue: OverdueRule{
			Enabled: true,
			PerDay:  floatPtr(0.25),
		},
		LostBook: FineRule{
			Type:    FineTypePercentage,
			Rate:    floatPtr(100),
			Minimum: floatPtr(5),
		},
		Damage: FineRule{
			Type: FineTypePercentage,
			Rate: floatPtr(50),
		},
		GracePeriodDays:     0,
		AllowPartialPayment: true,
		WaiveSmallAmounts:   false,
		SmallAmountLimit:    0,
		CurrencySymbol:      "$",
		CurrencyCode:        "USD",
		OverdueNotices:      true,
	}
}

// SettingsProvider hands out the current settings snapshot. Callers read it
// once per operation and pass the value down.
type SettingsProvider interface {
	Get() Settings
}

// StaticSettings is a fixed SettingsProvider.
type StaticSettings Settings

func (s StaticSettings) Get() Settings { return Settings(s) }
