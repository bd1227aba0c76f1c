// Package export writes run results as CSV files.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/cleared-dev/costbasis/internal/ledger"
	"github.com/cleared-dev/costbasis/internal/model"
)

// SalesHeader is the CSV header for the sales export.
const SalesHeader = "kind,asset,amount,acquired,disposed,proceeds,cost,gain,acquired_asset,acquired_amount"

// HoldingsHeader is the CSV header for the holdings export.
const HoldingsHeader = "asset,amount,unit_cost,cost_basis,acquired"

// Row kinds in the sales export.
const (
	KindSale     = "sale"
	KindLikeKind = "like_kind"
)

const (
	numSalesFields    = 10
	numHoldingsFields = 5
	usdPlaces         = 2
)

// WriteSales writes realized sales followed by like-kind exchanges
// (including header). Like-kind rows carry no proceeds or gain.
func WriteSales(w io.Writer, sales []model.SaleRecord, exchanges []model.Exchange) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(strings.Split(SalesHeader, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, s := range sales {
		if err := cw.Write(MarshalSale(s)); err != nil {
			return fmt.Errorf("writing sale %d: %w", i, err)
		}
	}
	for i, x := range exchanges {
		if err := cw.Write(MarshalExchange(x)); err != nil {
			return fmt.Errorf("writing exchange %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// MarshalSale converts a SaleRecord to a CSV row.
func MarshalSale(s model.SaleRecord) []string {
	row := make([]string, numSalesFields)
	row[0] = KindSale
	row[1] = s.Asset
	row[2] = s.Amount.String()
	row[3] = s.Acquired.Format(model.DayFormat)
	row[4] = s.Date.Format(model.DayFormat)
	row[5] = s.Proceeds.StringFixed(usdPlaces)
	row[6] = s.Cost.StringFixed(usdPlaces)
	row[7] = s.Gain().StringFixed(usdPlaces)
	return row
}

// MarshalExchange converts a like-kind Exchange to a CSV row.
func MarshalExchange(x model.Exchange) []string {
	row := make([]string, numSalesFields)
	row[0] = KindLikeKind
	row[1] = x.SoldAsset
	row[2] = x.SoldAmount.String()
	row[4] = x.Date.Format(model.DayFormat)
	row[6] = x.CarriedCost.StringFixed(usdPlaces)
	row[8] = x.AcquiredAsset
	row[9] = x.AcquiredAmount.String()
	return row
}

// WriteHoldings writes every remaining lot in l, assets sorted and lots
// oldest first (including header).
func WriteHoldings(w io.Writer, l *ledger.Ledger) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(strings.Split(HoldingsHeader, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, asset := range l.Assets() {
		for i, lot := range l.Lots(asset) {
			row := make([]string, numHoldingsFields)
			row[0] = lot.Asset
			row[1] = lot.Amount.String()
			row[2] = lot.UnitCost.String()
			row[3] = lot.CostBasis().StringFixed(usdPlaces)
			row[4] = lot.Acquired.Format(model.DayFormat)
			if err := cw.Write(row); err != nil {
				return fmt.Errorf("writing %s lot %d: %w", asset, i, err)
			}
		}
	}
	cw.Flush()
	return cw.Error()
}
