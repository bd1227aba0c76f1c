package model

// Category is the bucket a transaction is classified into.
type Category string

const (
	CategoryLending          Category = "Lending"
	CategoryMargin           Category = "Margin"
	CategoryUsdBuy           Category = "UsdBuy"
	CategoryTrade            Category = "Trade"
	CategoryIncome           Category = "Income"
	CategoryUsdDeposit       Category = "UsdDeposit"
	CategoryAirdrop          Category = "Airdrop"
	CategoryMatchedDeposit   Category = "MatchedDeposit"
	CategoryUnmatchedDeposit Category = "UnmatchedDeposit"
	CategoryWithdrawal       Category = "Withdrawal"
	CategoryLost             Category = "Lost"
	CategorySpend            Category = "Spend"
)

// Categories lists every bucket in classification priority order.
var Categories = []Category{
	CategoryLending,
	CategoryMargin,
	CategoryUsdBuy,
	CategoryTrade,
	CategoryIncome,
	CategoryUsdDeposit,
	CategoryAirdrop,
	CategoryMatchedDeposit,
	CategoryUnmatchedDeposit,
	CategoryWithdrawal,
	CategoryLost,
	CategorySpend,
}
