package classify

import (
	"github.com/shopspring/decimal"

	"github.com/cleared-dev/costbasis/internal/ledger"
	"github.com/cleared-dev/costbasis/internal/model"
)

// Failure is a recoverable problem with one transaction.
type Failure struct {
	Tx  model.Transaction
	Err error
}

// Result is everything a classification run produced.
type Result struct {
	Input   int
	Buckets map[model.Category][]model.Transaction

	Sales             []model.SaleRecord
	LikeKindExchanges []model.Exchange

	NoAvailablePurchases  []Failure
	NoMatchingWithdrawals []model.Transaction
	PriceErrors           []Failure

	// Ledger holds the lots remaining after the run.
	Ledger *ledger.Ledger
}

func newResult(input int) *Result {
	return &Result{
		Input:   input,
		Buckets: make(map[model.Category][]model.Transaction, len(model.Categories)),
		Ledger:  ledger.New(),
	}
}

func (r *Result) add(c model.Category, tx model.Transaction) {
	r.Buckets[c] = append(r.Buckets[c], tx)
}

// Count returns the size of one bucket.
func (r *Result) Count(c model.Category) int {
	return len(r.Buckets[c])
}

// Classified returns the total number of transactions across all buckets.
func (r *Result) Classified() int {
	n := 0
	for _, txs := range r.Buckets {
		n += len(txs)
	}
	return n
}

// TotalGain sums the gain of every realized sale.
func (r *Result) TotalGain() decimal.Decimal {
	total := decimal.Zero
	for _, s := range r.Sales {
		total = total.Add(s.Gain())
	}
	return total
}
