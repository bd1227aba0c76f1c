// Package classify assigns each transaction to exactly one category and
// drives the cost-basis ledger while doing so.
package classify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/costbasis/internal/ledger"
	"github.com/cleared-dev/costbasis/internal/model"
	"github.com/cleared-dev/costbasis/internal/price"
)

// UnknownTypeError aborts a run: the transaction fits no category.
type UnknownTypeError struct {
	Tx model.Transaction
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("cannot classify transaction of type %q: %s", e.Tx.Type, e.Tx)
}

const costBasisComment = "Cost Basis"

// Classifier runs the ordered category rules over a transaction history.
type Classifier struct {
	prices   price.Provider
	airdrops map[string]bool
	log      *slog.Logger
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithLogger sets the logger used for recoverable diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(c *Classifier) { c.log = l }
}

// New creates a Classifier. Deposits of any asset in airdropSymbols get a
// zero cost basis.
func New(prices price.Provider, airdropSymbols []string, opts ...Option) *Classifier {
	c := &Classifier{
		prices:   prices,
		airdrops: make(map[string]bool, len(airdropSymbols)),
		log:      slog.Default(),
	}
	for _, s := range airdropSymbols {
		c.airdrops[s] = true
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run classifies txs day by day, in input order within each day. It returns
// an error only for transactions no rule accepts; in that case there is no
// result.
func (c *Classifier) Run(ctx context.Context, txs []model.Transaction) (*Result, error) {
	r := newResult(len(txs))
	for _, g := range GroupByDay(txs) {
		for _, tx := range g.Transactions {
			if err := c.classify(ctx, r, g.Transactions, tx); err != nil {
				return nil, err
			}
		}
	}
	c.log.Info("classification finished",
		"transactions", r.Input,
		"sales", len(r.Sales),
		"like_kind", len(r.LikeKindExchanges),
		"no_available_purchase", len(r.NoAvailablePurchases),
		"unmatched_deposits", len(r.NoMatchingWithdrawals),
		"price_errors", len(r.PriceErrors))
	return r, nil
}

func (c *Classifier) classify(ctx context.Context, r *Result, group []model.Transaction, tx model.Transaction) error {
	switch {
	// Lending and margin rows are often typed Trade, so they go first.
	case tx.Mentions("lending"):
		r.add(model.CategoryLending, tx)
	case tx.Mentions("margin"):
		r.add(model.CategoryMargin, tx)

	// Must go ahead of Trade and Withdrawal.
	case IsUsdBuy(tx):
		r.add(model.CategoryUsdBuy, tx)
		return c.usdBuy(ctx, r, tx)

	case tx.Type == model.TypeTrade:
		r.add(model.CategoryTrade, tx)
		return c.trade(ctx, r, tx)

	case tx.Type == model.TypeIncome:
		r.add(model.CategoryIncome, tx)
		p := c.lookup(ctx, r, tx, tx.CurBuy, "")
		r.Ledger.Deposit(tx.Buy, tx.CurBuy, tx.Buy.Mul(p), tx.TradeDate)

	case tx.Type == model.TypeDeposit:
		c.deposit(ctx, r, group, tx)

	case tx.Type == model.TypeWithdrawal:
		r.add(model.CategoryWithdrawal, tx)
	case tx.Type == model.TypeLost:
		r.add(model.CategoryLost, tx)
	case tx.Type == model.TypeSpend:
		r.add(model.CategorySpend, tx)

	default:
		return &UnknownTypeError{Tx: tx}
	}
	return nil
}

func (c *Classifier) usdBuy(ctx context.Context, r *Result, tx model.Transaction) error {
	received := tx.Buy
	if tx.Type != model.TypeTrade {
		// Card spends only report the token amount; value it at the day's price.
		p := c.lookup(ctx, r, tx, tx.CurSell, shiftVenue)
		received = tx.Sell.Mul(p)
	}
	out, err := c.dispose(r, tx, ledger.Disposal{
		SellAmount:    tx.Sell,
		SellAsset:     tx.CurSell,
		AcquireAmount: received,
		AcquireAsset:  model.USD,
		Date:          tx.TradeDate,
	})
	if err != nil {
		return err
	}
	r.Sales = append(r.Sales, out.Sales...)
	return nil
}

func (c *Classifier) trade(ctx context.Context, r *Result, tx model.Transaction) error {
	d := ledger.Disposal{
		SellAmount:    tx.Sell,
		SellAsset:     tx.CurSell,
		AcquireAmount: tx.Buy,
		AcquireAsset:  tx.CurBuy,
		Date:          tx.TradeDate,
		Deferred:      IsLikeKind(tx),
	}
	if !d.Deferred && tx.CurBuy != model.USD {
		d.AcquirePrice = c.lookup(ctx, r, tx, tx.CurBuy, "")
	}
	out, err := c.dispose(r, tx, d)
	if err != nil {
		return err
	}
	r.Sales = append(r.Sales, out.Sales...)
	r.LikeKindExchanges = append(r.LikeKindExchanges, out.Exchanges...)
	return nil
}

func (c *Classifier) deposit(ctx context.Context, r *Result, group []model.Transaction, tx model.Transaction) {
	switch {
	case tx.CurBuy == model.USD:
		r.add(model.CategoryUsdDeposit, tx)
		r.Ledger.Deposit(tx.Buy, model.USD, tx.Buy, tx.TradeDate)

	case c.airdrops[tx.CurBuy]:
		r.add(model.CategoryAirdrop, tx)
		r.Ledger.Deposit(tx.Buy, tx.CurBuy, decimal.Zero, tx.TradeDate)

	default:
		if w, ok := FindMatchingWithdrawal(tx, group); ok {
			c.log.Debug("deposit matched withdrawal", "deposit_row", tx.Row, "withdrawal_row", w.Row)
			r.add(model.CategoryMatchedDeposit, tx)
			return
		}

		c.log.Warn("no matching withdrawal for deposit, using historical price",
			"row", tx.Row, "amount", tx.Buy.String(), "asset", tx.CurBuy, "date", tx.DayKey())
		r.NoMatchingWithdrawals = append(r.NoMatchingWithdrawals, tx)

		p := c.lookup(ctx, r, tx, tx.CurBuy, "")
		basis := tx
		basis.Type = model.TypeIncome
		basis.Comment = costBasisComment
		basis.Price = p
		r.add(model.CategoryUnmatchedDeposit, basis)
		r.Ledger.Deposit(tx.Buy, tx.CurBuy, tx.Buy.Mul(p), tx.TradeDate)
	}
}

// dispose applies d to the ledger. A shortfall is recorded and swallowed;
// anything else is returned with the row.
func (c *Classifier) dispose(r *Result, tx model.Transaction, d ledger.Disposal) (ledger.Outcome, error) {
	out, err := r.Ledger.DisposeAndAcquire(d)
	if err == nil {
		return out, nil
	}
	var napErr *ledger.NoAvailablePurchaseError
	if errors.As(err, &napErr) {
		c.log.Warn("skipping disposal", "row", tx.Row, "error", err)
		r.NoAvailablePurchases = append(r.NoAvailablePurchases, Failure{Tx: tx, Err: err})
		return ledger.Outcome{}, nil
	}
	return ledger.Outcome{}, fmt.Errorf("row %d: %w", tx.Row, err)
}

// lookup returns the USD price of asset on the trade day, or zero after
// recording the failure.
func (c *Classifier) lookup(ctx context.Context, r *Result, tx model.Transaction, asset, venue string) decimal.Decimal {
	p, err := c.prices.Price(ctx, asset, model.USD, tx.Day(), venue)
	if err != nil {
		c.log.Warn("error fetching price", "row", tx.Row, "asset", asset, "date", tx.DayKey(), "error", err)
		r.PriceErrors = append(r.PriceErrors, Failure{Tx: tx, Err: err})
		return decimal.Zero
	}
	return p
}
