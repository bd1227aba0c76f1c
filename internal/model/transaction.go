package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TxType is the kind of row in a transaction export.
type TxType string

const (
	TypeTrade      TxType = "Trade"
	TypeDeposit    TxType = "Deposit"
	TypeWithdrawal TxType = "Withdrawal"
	TypeIncome     TxType = "Income"
	TypeLost       TxType = "Lost"
	TypeSpend      TxType = "Spend"
)

// USD is the fiat asset code all cost basis is measured in.
const USD = "USD"

// TradeDateFormat is the layout of the Trade Date column, e.g. "18.06.2016 15:14".
const TradeDateFormat = "02.01.2006 15:04"

// DayFormat is the layout used for day keys and price lookups.
const DayFormat = "2006-01-02"

// Transaction represents one parsed row of a transaction export.
type Transaction struct {
	Row        int // 1-based data row in the source file, 0 if synthesized
	Type       TxType
	Buy        decimal.Decimal // amount received, zero when "-"
	CurBuy     string
	Sell       decimal.Decimal // amount given, zero when "-"
	CurSell    string
	Fee        decimal.Decimal
	CurFee     string
	Exchange   string
	TradeGroup string
	Comment    string
	TradeDate  time.Time
	Price      decimal.Decimal // USD unit price attached to synthesized cost-basis records
}

// Day returns the calendar day of the trade at midnight UTC.
func (t Transaction) Day() time.Time {
	y, m, d := t.TradeDate.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DayKey returns the trade day as "YYYY-MM-DD".
func (t Transaction) DayKey() string {
	return t.TradeDate.Format(DayFormat)
}

// HasFee reports whether a non-zero fee was charged.
func (t Transaction) HasFee() bool {
	return !t.Fee.IsZero()
}

// Mentions reports whether the trade group or comment contains word, ignoring case.
func (t Transaction) Mentions(word string) bool {
	w := strings.ToLower(word)
	return strings.Contains(strings.ToLower(t.TradeGroup), w) ||
		strings.Contains(strings.ToLower(t.Comment), w)
}

func (t Transaction) String() string {
	return fmt.Sprintf("row %d %s buy=%s %s sell=%s %s on %s (%s)",
		t.Row, t.Type, t.Buy, t.CurBuy, t.Sell, t.CurSell, t.TradeDate.Format(TradeDateFormat), t.Exchange)
}

// ParseAmount parses an amount column. "-" and "" mean no amount.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "-" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

// FormatAmount is the inverse of ParseAmount.
func FormatAmount(d decimal.Decimal) string {
	if d.IsZero() {
		return "-"
	}
	return d.String()
}
