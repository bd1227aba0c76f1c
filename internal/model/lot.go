package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Lot is a quantity of an asset acquired at a USD unit cost.
type Lot struct {
	Asset    string
	Amount   decimal.Decimal // remaining, always > 0 while held
	UnitCost decimal.Decimal
	Acquired time.Time
}

// CostBasis returns the total USD cost of the remaining amount.
func (l Lot) CostBasis() decimal.Decimal {
	return l.UnitCost.Mul(l.Amount)
}

// SaleRecord is a realized disposal of (part of) one lot.
type SaleRecord struct {
	Asset    string
	Amount   decimal.Decimal
	Proceeds decimal.Decimal
	Cost     decimal.Decimal
	Date     time.Time
	Acquired time.Time // acquisition date of the consumed lot
}

// Gain returns proceeds minus cost.
func (s SaleRecord) Gain() decimal.Decimal {
	return s.Proceeds.Sub(s.Cost)
}

// Exchange is one lot portion swapped under like-kind deferral. No gain is
// realized; CarriedCost moves to the acquired asset.
type Exchange struct {
	SoldAsset      string
	SoldAmount     decimal.Decimal
	AcquiredAsset  string
	AcquiredAmount decimal.Decimal
	CarriedCost    decimal.Decimal
	Date           time.Time
}
