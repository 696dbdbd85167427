package domain

import (
	"errors"
	"strings"
)

type AdjustmentType string

const (
	AdjustmentPurchase   AdjustmentType = "purchase"
	AdjustmentDamage     AdjustmentType = "damage"
	AdjustmentLost       AdjustmentType = "lost"
	AdjustmentDonation   AdjustmentType = "donation"
	AdjustmentCorrection AdjustmentType = "correction"
)

var (
	ErrInvalidType      = errors.New("invalid_adjustment_type")
	ErrNegativeQuantity = errors.New("negative_quantity")
)

func ParseAdjustmentType(raw string) (AdjustmentType, error) {
	t := AdjustmentType(strings.ToLower(strings.TrimSpace(raw)))
	switch t {
	case AdjustmentPurchase, AdjustmentDamage, AdjustmentLost, AdjustmentDonation, AdjustmentCorrection:
		return t, nil
	default:
		return "", ErrInvalidType
	}
}

// NewStock applies one adjustment to a stock level. Purchases and donations
// add; damage and loss subtract, never below zero; a correction sets the
// level outright.
func NewStock(t AdjustmentType, old, quantity int) (int, error) {
	if quantity < 0 {
		return 0, ErrNegativeQuantity
	}
	switch t {
	case AdjustmentPurchase, AdjustmentDonation:
		return old + quantity, nil
	case AdjustmentDamage, AdjustmentLost:
		if quantity >= old {
			return 0, nil
		}
		return old - quantity, nil
	case AdjustmentCorrection:
		return quantity, nil
	default:
		return 0, ErrInvalidType
	}
}
