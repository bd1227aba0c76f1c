package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/costbasis/internal/model"
)

// CoinTrackingParser parses CoinTracking "Trade List" CSV exports.
type CoinTrackingParser struct{}

const (
	colType       = "Type"
	colBuy        = "Buy"
	colCurBuy     = "CurBuy"
	colSell       = "Sell"
	colCurSell    = "CurSell"
	colFee        = "Fee"
	colCurFee     = "CurFee"
	colExchange   = "Exchange"
	colTradeGroup = "Trade Group"
	colComment    = "Comment"
	colTradeDate  = "Trade Date"

	// curHeader is the name CoinTracking gives all three currency columns.
	curHeader = "Cur."
)

// curColumns are the names the repeated "Cur." headers take, in order.
var curColumns = []string{colCurBuy, colCurSell, colCurFee}

var requiredColumns = []string{colType, colBuy, colCurBuy, colSell, colCurSell, colTradeDate}

// exportColumns is the column order WriteTransactions emits, before the
// currency headers are folded back into "Cur.".
var exportColumns = []string{
	colType, colBuy, colCurBuy, colSell, colCurSell, colFee, colCurFee,
	colExchange, colTradeGroup, colComment, colTradeDate,
}

// Format returns the parser name.
func (p *CoinTrackingParser) Format() string { return "cointracking" }

// Parse reads a CoinTracking CSV. Rows are numbered from 1 after the header.
func (p *CoinTrackingParser) Parse(r io.Reader) ([]model.Transaction, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading cointracking header: %w", err)
	}
	cols, err := indexColumns(FixHeader(header))
	if err != nil {
		return nil, err
	}

	var txs []model.Transaction
	for row := 1; ; row++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}
		tx, err := parseRow(cols, rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}
		tx.Row = row
		txs = append(txs, tx)
	}
	return txs, nil
}

// FixHeader renames the repeated "Cur." headers positionally to CurBuy,
// CurSell and CurFee. Other headers are trimmed and otherwise untouched.
func FixHeader(header []string) []string {
	out := make([]string, len(header))
	n := 0
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if h == curHeader && n < len(curColumns) {
			h = curColumns[n]
			n++
		}
		out[i] = h
	}
	return out
}

// UnfixHeader is the inverse of FixHeader.
func UnfixHeader(header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		for _, c := range curColumns {
			if h == c {
				h = curHeader
				break
			}
		}
		out[i] = h
	}
	return out
}

type columns map[string]int

func indexColumns(header []string) (columns, error) {
	cols := make(columns, len(header))
	for i, h := range header {
		if _, dup := cols[h]; !dup {
			cols[h] = i
		}
	}
	var missing []string
	for _, c := range requiredColumns {
		if _, ok := cols[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("cointracking header missing columns: %s", strings.Join(missing, ", "))
	}
	return cols, nil
}

func (c columns) get(rec []string, name string) string {
	i, ok := c[name]
	if !ok || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func parseRow(cols columns, rec []string) (model.Transaction, error) {
	tx := model.Transaction{
		Type:       model.TxType(cols.get(rec, colType)),
		CurBuy:     cols.get(rec, colCurBuy),
		CurSell:    cols.get(rec, colCurSell),
		CurFee:     cols.get(rec, colCurFee),
		Exchange:   cols.get(rec, colExchange),
		TradeGroup: cols.get(rec, colTradeGroup),
		Comment:    cols.get(rec, colComment),
	}

	var err error
	if tx.Buy, err = parseAmount(cols, rec, colBuy); err != nil {
		return model.Transaction{}, err
	}
	if tx.Sell, err = parseAmount(cols, rec, colSell); err != nil {
		return model.Transaction{}, err
	}
	if tx.Fee, err = parseAmount(cols, rec, colFee); err != nil {
		return model.Transaction{}, err
	}

	raw := cols.get(rec, colTradeDate)
	tx.TradeDate, err = time.Parse(model.TradeDateFormat, raw)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("parsing trade date %q: %w", raw, err)
	}
	return tx, nil
}

func parseAmount(cols columns, rec []string, name string) (decimal.Decimal, error) {
	raw := cols.get(rec, name)
	d, err := model.ParseAmount(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parsing %s %q: %w", strings.ToLower(name), raw, err)
	}
	return d, nil
}

// WriteTransactions writes txs as a CoinTracking CSV that Parse can read back.
func WriteTransactions(w io.Writer, txs []model.Transaction) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(UnfixHeader(exportColumns)); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, tx := range txs {
		rec := []string{
			string(tx.Type),
			model.FormatAmount(tx.Buy),
			tx.CurBuy,
			model.FormatAmount(tx.Sell),
			tx.CurSell,
			model.FormatAmount(tx.Fee),
			tx.CurFee,
			tx.Exchange,
			tx.TradeGroup,
			tx.Comment,
			tx.TradeDate.Format(model.TradeDateFormat),
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("writing row %d: %w", tx.Row, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
