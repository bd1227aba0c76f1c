package classify

import "github.com/cleared-dev/costbasis/internal/model"

// DayGroup holds the transactions of one calendar day in input order.
type DayGroup struct {
	Day          string // "YYYY-MM-DD"
	Transactions []model.Transaction
}

// GroupByDay partitions txs by trade day. Groups appear in the order their
// day is first seen, which is chronological for chronologically sorted input.
func GroupByDay(txs []model.Transaction) []DayGroup {
	var groups []DayGroup
	index := make(map[string]int)
	for _, tx := range txs {
		key := tx.DayKey()
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, DayGroup{Day: key})
		}
		groups[i].Transactions = append(groups[i].Transactions, tx)
	}
	return groups
}
