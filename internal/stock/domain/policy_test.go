package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestNewStock(t *testing.T) {
	cases := []struct {
		name     string
		typ      AdjustmentType
		old, qty int
		want     int
	}{
		{"purchase adds", AdjustmentPurchase, 5, 3, 8},
		{"donation adds", AdjustmentDonation, 0, 2, 2},
		{"damage subtracts", AdjustmentDamage, 5, 2, 3},
		{"lost floors at zero", AdjustmentLost, 3, 10, 0},
		{"correction sets", AdjustmentCorrection, 7, 4, 4},
		{"correction to zero", AdjustmentCorrection, 7, 0, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NewStock(tc.typ, tc.old, tc.qty)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestNewStockRejects(t *testing.T) {
	_, err := NewStock(AdjustmentPurchase, 1, -1)
	assert.ErrorIs(t, err, ErrNegativeQuantity)

	_, err = NewStock("theft", 1, 1)
	assert.ErrorIs(t, err, ErrInvalidType)

	_, err = ParseAdjustmentType("Gift")
	assert.ErrorIs(t, err, ErrInvalidType)

	typ, err := ParseAdjustmentType(" Purchase ")
	require.NoError(t, err)
	assert.Equal(t, AdjustmentPurchase, typ)
}

func TestPropertyStockNeverNegative(t *testing.T) {
	types := []AdjustmentType{AdjustmentPurchase, AdjustmentDamage, AdjustmentLost, AdjustmentDonation, AdjustmentCorrection}
	rapid.Check(t, func(t *rapid.T) {
		typ := rapid.SampledFrom(types).Draw(t, "type")
		old := rapid.IntRange(0, 10000).Draw(t, "old")
		qty := rapid.IntRange(0, 10000).Draw(t, "qty")

		got, err := NewStock(typ, old, qty)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got < 0 {
			t.Fatalf("stock went negative: %d", got)
		}
		switch typ {
		case AdjustmentPurchase, AdjustmentDonation:
			if got != old+qty {
				t.Fatalf("additive adjustment: got %d want %d", got, old+qty)
			}
		case AdjustmentCorrection:
			if got != qty {
				t.Fatalf("correction: got %d want %d", got, qty)
			}
		default:
			if got > old {
				t.Fatalf("subtractive adjustment increased stock: %d > %d", got, old)
			}
		}
	})
}
