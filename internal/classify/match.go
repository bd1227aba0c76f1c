package classify

import (
	"github.com/shopspring/decimal"

	"github.com/cleared-dev/costbasis/internal/model"
)

// MatchTolerance is the largest amount difference still treated as the same transfer.
var MatchTolerance = decimal.RequireFromString("0.02")

// Match reports whether candidate is the withdrawal side of the same
// transfer as deposit: currencies mirror each other and both cross
// amounts agree within MatchTolerance.
func Match(deposit, candidate model.Transaction) bool {
	return candidate.Type == model.TypeWithdrawal &&
		candidate.CurSell == deposit.CurBuy &&
		candidate.CurBuy == deposit.CurSell &&
		closeEnough(deposit, candidate)
}

func closeEnough(a, b model.Transaction) bool {
	return a.Buy.Sub(b.Sell).Abs().LessThanOrEqual(MatchTolerance) &&
		a.Sell.Sub(b.Buy).Abs().LessThanOrEqual(MatchTolerance)
}

// FindMatchingWithdrawal returns the first transaction in group that Match
// accepts for deposit. Later candidates are not considered.
func FindMatchingWithdrawal(deposit model.Transaction, group []model.Transaction) (model.Transaction, bool) {
	for _, tx := range group {
		if Match(deposit, tx) {
			return tx, true
		}
	}
	return model.Transaction{}, false
}
