// Package report renders the human-readable run summary.
package report

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/cleared-dev/costbasis/internal/classify"
	"github.com/cleared-dev/costbasis/internal/model"
)

// bucketLabels is the print order and wording of the bucket counts.
var bucketLabels = []struct {
	cat   model.Category
	label string
}{
	{model.CategoryWithdrawal, "Withdrawals"},
	{model.CategoryMatchedDeposit, "Matched Deposits"},
	{model.CategoryUnmatchedDeposit, "Unmatched Deposits"},
	{model.CategoryUsdBuy, "USD Buys"},
	{model.CategoryUsdDeposit, "USD Deposits"},
	{model.CategoryAirdrop, "Airdrops"},
	{model.CategoryIncome, "Income"},
	{model.CategoryTrade, "Trades"},
	{model.CategoryMargin, "Margin Trades"},
	{model.CategoryLending, "Lending"},
	{model.CategoryLost, "Lost"},
	{model.CategorySpend, "Spend"},
}

var (
	okColor  = color.New(color.FgGreen, color.Bold)
	badColor = color.New(color.FgRed, color.Bold)
)

// Summary writes bucket counts, the total check, error counts and the
// aggregate realized gain.
func Summary(w io.Writer, r *classify.Result) {
	fmt.Fprintln(w)
	for _, b := range bucketLabels {
		fmt.Fprintf(w, "%s: %d\n", b.label, r.Count(b.cat))
	}
	if sum := r.Classified(); sum == r.Input {
		okColor.Fprintf(w, "TOTAL: %d ✓\n", sum)
	} else {
		badColor.Fprintf(w, "✗ TOTAL: %d, TXS: %d\n", sum, r.Input)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "ERRORS")
	fmt.Fprintf(w, "No available purchase: %d\n", len(r.NoAvailablePurchases))
	fmt.Fprintf(w, "No matching withdrawals: %d\n", len(r.NoMatchingWithdrawals))
	fmt.Fprintf(w, "Price errors: %d\n", len(r.PriceErrors))
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Like-Kind Exchanges: %d\n", len(r.LikeKindExchanges))
	fmt.Fprintf(w, "Sales: %d\n", len(r.Sales))
	fmt.Fprintf(w, "Total Gains from Sales: %s\n", r.TotalGain().StringFixed(2))
	fmt.Fprintln(w)
}
