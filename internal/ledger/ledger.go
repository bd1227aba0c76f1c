// Package ledger keeps per-asset FIFO queues of cost-basis lots.
package ledger

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/costbasis/internal/model"
)

// NoAvailablePurchaseError is returned when a disposal needs more of an asset
// than the ledger holds. The ledger is left unchanged.
type NoAvailablePurchaseError struct {
	Asset     string
	Requested decimal.Decimal
	Available decimal.Decimal
	Date      time.Time
}

func (e *NoAvailablePurchaseError) Error() string {
	return fmt.Sprintf("no available purchase: selling %s %s on %s but only %s held",
		e.Requested, e.Asset, e.Date.Format(model.DayFormat), e.Available)
}

// Disposal describes one dispose-and-acquire event.
type Disposal struct {
	SellAmount    decimal.Decimal
	SellAsset     string
	AcquireAmount decimal.Decimal
	AcquireAsset  string
	Date          time.Time
	// AcquirePrice is the USD unit price of AcquireAsset. Ignored for USD.
	AcquirePrice decimal.Decimal
	// Deferred applies like-kind treatment: no gain is realized and the
	// acquired lots inherit the cost of the consumed lots.
	Deferred bool
}

// Outcome is what a disposal produced.
type Outcome struct {
	Sales     []model.SaleRecord
	Exchanges []model.Exchange
}

// Ledger holds lots keyed by asset. It is not safe for concurrent use.
type Ledger struct {
	lots map[string][]model.Lot
}

// New creates an empty Ledger.
func New() *Ledger {
	return &Ledger{lots: make(map[string][]model.Lot)}
}

// Deposit appends a lot of amount units of asset with the given total cost
// basis. Non-positive amounts create no lot.
func (l *Ledger) Deposit(amount decimal.Decimal, asset string, costBasis decimal.Decimal, date time.Time) {
	if !amount.IsPositive() {
		return
	}
	l.lots[asset] = append(l.lots[asset], model.Lot{
		Asset:    asset,
		Amount:   amount,
		UnitCost: costBasis.Div(amount),
		Acquired: date,
	})
}

// DisposeAndAcquire consumes d.SellAmount of d.SellAsset oldest lot first and
// books the acquisition of d.AcquireAmount of d.AcquireAsset. A zero (or
// negative) SellAmount consumes nothing; the acquisition is still booked,
// at zero carried cost when deferred.
func (l *Ledger) DisposeAndAcquire(d Disposal) (Outcome, error) {
	available := l.Total(d.SellAsset)
	if available.LessThan(d.SellAmount) {
		return Outcome{}, &NoAvailablePurchaseError{
			Asset:     d.SellAsset,
			Requested: d.SellAmount,
			Available: available,
			Date:      d.Date,
		}
	}

	price := d.AcquirePrice
	if d.AcquireAsset == model.USD {
		price = decimal.NewFromInt(1)
	}
	proceedsBasis := d.AcquireAmount.Mul(price)

	var out Outcome
	queue := l.lots[d.SellAsset]
	remaining := d.SellAmount
	// The last portion takes whatever is left so portions sum exactly.
	acquiredLeft, proceedsLeft := d.AcquireAmount, proceedsBasis
	consumed := 0
	for i := range queue {
		if !remaining.IsPositive() {
			break
		}
		lot := &queue[i]
		use := decimal.Min(lot.Amount, remaining)
		cost := lot.UnitCost.Mul(use)

		acquired, proceeds := acquiredLeft, proceedsLeft
		if use.LessThan(remaining) {
			share := use.Div(d.SellAmount)
			acquired = d.AcquireAmount.Mul(share)
			proceeds = proceedsBasis.Mul(share)
		}
		acquiredLeft = acquiredLeft.Sub(acquired)
		proceedsLeft = proceedsLeft.Sub(proceeds)

		if d.Deferred {
			out.Exchanges = append(out.Exchanges, model.Exchange{
				SoldAsset:      d.SellAsset,
				SoldAmount:     use,
				AcquiredAsset:  d.AcquireAsset,
				AcquiredAmount: acquired,
				CarriedCost:    cost,
				Date:           d.Date,
			})
		} else {
			out.Sales = append(out.Sales, model.SaleRecord{
				Asset:    d.SellAsset,
				Amount:   use,
				Proceeds: proceeds,
				Cost:     cost,
				Date:     d.Date,
				Acquired: lot.Acquired,
			})
		}

		lot.Amount = lot.Amount.Sub(use)
		remaining = remaining.Sub(use)
		if lot.Amount.IsZero() {
			consumed++
		}
	}
	l.setQueue(d.SellAsset, queue[consumed:])

	if d.AcquireAsset == model.USD {
		return out, nil
	}
	if d.Deferred {
		if len(out.Exchanges) == 0 {
			l.Deposit(d.AcquireAmount, d.AcquireAsset, decimal.Zero, d.Date)
		}
		for _, x := range out.Exchanges {
			l.Deposit(x.AcquiredAmount, d.AcquireAsset, x.CarriedCost, d.Date)
		}
		return out, nil
	}
	l.Deposit(d.AcquireAmount, d.AcquireAsset, proceedsBasis, d.Date)
	return out, nil
}

// Lots returns a copy of the asset's queue, oldest first.
func (l *Ledger) Lots(asset string) []model.Lot {
	q := l.lots[asset]
	if len(q) == 0 {
		return nil
	}
	out := make([]model.Lot, len(q))
	copy(out, q)
	return out
}

// Total returns the remaining amount held of asset.
func (l *Ledger) Total(asset string) decimal.Decimal {
	total := decimal.Zero
	for _, lot := range l.lots[asset] {
		total = total.Add(lot.Amount)
	}
	return total
}

// Assets returns every asset with at least one lot, sorted.
func (l *Ledger) Assets() []string {
	var assets []string
	for a, q := range l.lots {
		if len(q) > 0 {
			assets = append(assets, a)
		}
	}
	sort.Strings(assets)
	return assets
}

func (l *Ledger) setQueue(asset string, q []model.Lot) {
	if len(q) == 0 {
		delete(l.lots, asset)
		return
	}
	l.lots[asset] = q
}
