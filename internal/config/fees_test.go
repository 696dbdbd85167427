package config

import (
	"os"
	"path/filepath"
	"testing"

	feedomain "github.com/smallbiznis/shelfwise/internal/fee/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeFees(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fees.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestFeeSettingsHolderLoadsFile(t *testing.T) {
	path := writeFees(t, `
fees:
  overdue:
    enabled: true
    per_day: 10
    max_days: 7
  lost_book:
    type: fixed
    rate: 25
  damage:
    type: percentage
    rate: 30
    maximum: 12.5
  grace_period_days: 2
  waive_small_amounts: true
  small_amount_threshold: 1
  currency_symbol: "€"
  currency_code: eur
`)
	holder, err := NewFeeSettingsHolder(Config{FeesConfigPath: path}, zap.NewNop())
	require.NoError(t, err)

	s := holder.Get()
	require.NotNil(t, s.Overdue.PerDay)
	assert.Equal(t, 10.0, *s.Overdue.PerDay)
	require.NotNil(t, s.Overdue.MaxDays)
	assert.Equal(t, 7, *s.Overdue.MaxDays)
	assert.Nil(t, s.Overdue.MaxAmount)
	assert.Equal(t, feedomain.FineTypeFixed, s.LostBook.Type)
	assert.Equal(t, 2, s.GracePeriodDays)
	assert.Equal(t, "€", s.CurrencySymbol)
	assert.Equal(t, path, holder.Source())

	rates, err := s.Rates()
	require.NoError(t, err)
	assert.Equal(t, "EUR", rates.CurrencyCode)
}

func TestFeeSettingsHolderRejectsMalformedFile(t *testing.T) {
	path := writeFees(t, `
fees:
  overdue:
    enabled: true
  lost_book:
    type: percentage
    rate: 100
  damage:
    type: fixed
    rate: 5
  currency_symbol: "$"
  currency_code: USD
`)
	_, err := NewFeeSettingsHolder(Config{FeesConfigPath: path}, zap.NewNop())
	require.ErrorIs(t, err, feedomain.ErrInvalidSettings)
}

func TestFeeSettingsHolderMissingExplicitFile(t *testing.T) {
	_, err := NewFeeSettingsHolder(Config{FeesConfigPath: filepath.Join(t.TempDir(), "nope.yml")}, zap.NewNop())
	require.ErrorIs(t, err, feedomain.ErrInvalidSettings)
}

func TestFeeSettingsHolderMissingFeesKey(t *testing.T) {
	path := writeFees(t, "other: 1\n")
	_, err := NewFeeSettingsHolder(Config{FeesConfigPath: path}, zap.NewNop())
	require.ErrorIs(t, err, feedomain.ErrInvalidSettings)
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SCHEDULER_JOBS", "overdue_notices, mark_delayed")
	t.Setenv("SUPPORTED_LOCALES", "")
	cfg := Load()
	assert.Equal(t, []string{"overdue_notices", "mark_delayed"}, cfg.Scheduler.EnabledJobs)
	assert.Equal(t, []string{"en", "es", "fr", "de", "id"}, cfg.Locale.Supported)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
}
