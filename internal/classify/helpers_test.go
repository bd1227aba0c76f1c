package classify

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/cleared-dev/costbasis/internal/model"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func at(s string) time.Time {
	t, err := time.Parse(model.TradeDateFormat, s)
	if err != nil {
		panic(err)
	}
	return t
}

func day(s string) time.Time {
	t := at(s)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func assertDec(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	w := dec(want)
	if got.Sub(w).Abs().GreaterThan(dec("0.000000001")) {
		assert.Fail(t, fmt.Sprintf("want %s, got %s", w, got), msgAndArgs...)
	}
}

type txOpt func(*model.Transaction)

func buy(amount, cur string) txOpt {
	return func(tx *model.Transaction) { tx.Buy, tx.CurBuy = dec(amount), cur }
}

func sell(amount, cur string) txOpt {
	return func(tx *model.Transaction) { tx.Sell, tx.CurSell = dec(amount), cur }
}

func fee(amount, cur string) txOpt {
	return func(tx *model.Transaction) { tx.Fee, tx.CurFee = dec(amount), cur }
}

func exchange(name string) txOpt {
	return func(tx *model.Transaction) { tx.Exchange = name }
}

func group(name string) txOpt {
	return func(tx *model.Transaction) { tx.TradeGroup = name }
}

func comment(text string) txOpt {
	return func(tx *model.Transaction) { tx.Comment = text }
}

func newTx(row int, typ model.TxType, when string, opts ...txOpt) model.Transaction {
	tx := model.Transaction{Row: row, Type: typ, TradeDate: at(when), Exchange: "Bittrex"}
	for _, opt := range opts {
		opt(&tx)
	}
	return tx
}
