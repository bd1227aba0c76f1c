package classify

import (
	"github.com/shopspring/decimal"

	"github.com/cleared-dev/costbasis/internal/model"
)

const (
	// shiftExchange is the venue whose small fee-less withdrawals are card
	// spends, i.e. crypto sold for USD.
	shiftExchange = "Coinbase"
	shiftVenue    = "coinbase"
	tether        = "USDT"

	// likeKindCutoffYear is the first year crypto-to-crypto trades realize gains.
	likeKindCutoffYear = 2018
)

var shiftMaxSell = decimal.NewFromInt(4)

// IsUsdBuy reports whether tx converts crypto into USD: either a trade into
// USD or a small fee-less Coinbase withdrawal (card spend). Tether sales are
// never USD buys.
func IsUsdBuy(tx model.Transaction) bool {
	if tx.CurSell == tether {
		return false
	}
	return isShiftSpend(tx) || (tx.Type == model.TypeTrade && tx.CurBuy == model.USD)
}

func isShiftSpend(tx model.Transaction) bool {
	return tx.Type == model.TypeWithdrawal &&
		tx.Exchange == shiftExchange &&
		!tx.HasFee() &&
		tx.Sell.LessThan(shiftMaxSell)
}

// IsLikeKind reports whether a trade falls under like-kind deferral.
func IsLikeKind(tx model.Transaction) bool {
	return tx.TradeDate.Year() < likeKindCutoffYear
}
