package format

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatInvoiceNumber(t *testing.T) {
	issued := time.Date(2024, 2, 9, 23, 30, 0, 0, time.UTC)

	got, err := FormatInvoiceNumber(DefaultInvoiceNumberTemplate, issued, 42)
	require.NoError(t, err)
	assert.Equal(t, "INV-20240209-000042", got)

	got, err = FormatInvoiceNumber("LIB/{YY}/{SEQ}", issued, 7)
	require.NoError(t, err)
	assert.Equal(t, "LIB/24/7", got)
}

func TestFormatInvoiceNumberUsesUTC(t *testing.T) {
	jakarta := time.FixedZone("WIB", 7*60*60)
	issued := time.Date(2024, 2, 10, 3, 0, 0, 0, jakarta)

	got, err := FormatInvoiceNumber(DefaultInvoiceNumberTemplate, issued, 1)
	require.NoError(t, err)
	assert.Equal(t, "INV-20240209-000001", got)
}

func TestFormatInvoiceNumberErrors(t *testing.T) {
	_, err := FormatInvoiceNumber("", time.Now(), 1)
	assert.Error(t, err)
	_, err = FormatInvoiceNumber(DefaultInvoiceNumberTemplate, time.Now(), 0)
	assert.Error(t, err)
	_, err = FormatInvoiceNumber("INV-{QQ}-{SEQ}", time.Now(), 1)
	assert.Error(t, err)
}

func TestDayBounds(t *testing.T) {
	start, end := DayBounds(time.Date(2024, 2, 9, 23, 30, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2024, 2, 9, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC), end)
}
