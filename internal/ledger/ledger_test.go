package ledger

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/costbasis/internal/model"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func assertDec(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	w := dec(want)
	if got.Sub(w).Abs().GreaterThan(dec("0.000000001")) {
		assert.Fail(t, fmt.Sprintf("want %s, got %s", w, got), msgAndArgs...)
	}
}

func TestDeposit(t *testing.T) {
	l := New()
	l.Deposit(dec("10"), "BTC", dec("100"), date(2016, 1, 1))

	lots := l.Lots("BTC")
	require.Len(t, lots, 1)
	assertDec(t, "10", lots[0].Amount)
	assertDec(t, "10", lots[0].UnitCost)
	assert.Equal(t, date(2016, 1, 1), lots[0].Acquired)
	assert.Equal(t, "BTC", lots[0].Asset)
}

func TestDeposit_NonPositiveIgnored(t *testing.T) {
	l := New()
	l.Deposit(decimal.Zero, "BTC", dec("100"), date(2016, 1, 1))
	l.Deposit(dec("-1"), "BTC", dec("100"), date(2016, 1, 1))
	assert.Empty(t, l.Lots("BTC"))
	assert.Empty(t, l.Assets())
}

func TestDispose_Scenario(t *testing.T) {
	l := New()
	l.Deposit(dec("10"), "BTC", dec("100"), date(2018, 1, 1))

	out, err := l.DisposeAndAcquire(Disposal{
		SellAmount:    dec("4"),
		SellAsset:     "BTC",
		AcquireAmount: dec("80"),
		AcquireAsset:  model.USD,
		Date:          date(2018, 6, 1),
	})
	require.NoError(t, err)
	require.Len(t, out.Sales, 1)
	assert.Empty(t, out.Exchanges)

	sale := out.Sales[0]
	assertDec(t, "4", sale.Amount)
	assertDec(t, "40", sale.Cost)
	assertDec(t, "80", sale.Proceeds)
	assertDec(t, "40", sale.Gain())
	assert.Equal(t, date(2018, 1, 1), sale.Acquired)

	lots := l.Lots("BTC")
	require.Len(t, lots, 1)
	assertDec(t, "6", lots[0].Amount)
	assertDec(t, "10", lots[0].UnitCost)
	assert.Empty(t, l.Lots(model.USD), "selling to USD books no USD lot")
}

func TestDispose_FIFOAcrossLots(t *testing.T) {
	l := New()
	l.Deposit(dec("1"), "ETH", dec("10"), date(2018, 1, 1))
	l.Deposit(dec("2"), "ETH", dec("40"), date(2018, 2, 1))
	l.Deposit(dec("3"), "ETH", dec("90"), date(2018, 3, 1))

	out, err := l.DisposeAndAcquire(Disposal{
		SellAmount:    dec("2"),
		SellAsset:     "ETH",
		AcquireAmount: dec("100"),
		AcquireAsset:  model.USD,
		Date:          date(2018, 4, 1),
	})
	require.NoError(t, err)
	require.Len(t, out.Sales, 2)

	// Oldest lot fully consumed, second lot split.
	assertDec(t, "1", out.Sales[0].Amount)
	assertDec(t, "10", out.Sales[0].Cost)
	assertDec(t, "50", out.Sales[0].Proceeds)
	assert.Equal(t, date(2018, 1, 1), out.Sales[0].Acquired)

	assertDec(t, "1", out.Sales[1].Amount)
	assertDec(t, "20", out.Sales[1].Cost)
	assertDec(t, "50", out.Sales[1].Proceeds)
	assert.Equal(t, date(2018, 2, 1), out.Sales[1].Acquired)

	lots := l.Lots("ETH")
	require.Len(t, lots, 2)
	assertDec(t, "1", lots[0].Amount)
	assertDec(t, "20", lots[0].UnitCost, "split keeps unit cost")
	assert.Equal(t, date(2018, 2, 1), lots[0].Acquired, "split keeps acquisition date")
	assertDec(t, "3", lots[1].Amount)
}

func TestDispose_Conservation(t *testing.T) {
	l := New()
	l.Deposit(dec("0.3"), "BTC", dec("30"), date(2018, 1, 1))
	l.Deposit(dec("0.45"), "BTC", dec("50"), date(2018, 1, 2))
	l.Deposit(dec("1.125"), "BTC", dec("70"), date(2018, 1, 3))

	amounts := []string{"0.1", "0.333", "0.5", "0.017", "0.9"}
	for _, a := range amounts {
		before := l.Total("BTC")
		_, err := l.DisposeAndAcquire(Disposal{
			SellAmount:    dec(a),
			SellAsset:     "BTC",
			AcquireAmount: dec("1"),
			AcquireAsset:  model.USD,
			Date:          date(2018, 2, 1),
		})
		require.NoError(t, err)
		assertDec(t, a, before.Sub(l.Total("BTC")), "disposing %s", a)
	}
	for _, lot := range l.Lots("BTC") {
		assert.True(t, lot.Amount.IsPositive(), "no empty lots kept")
	}
}

func TestDispose_ExactlyAllRemovesQueue(t *testing.T) {
	l := New()
	l.Deposit(dec("2"), "LTC", dec("20"), date(2018, 1, 1))
	_, err := l.DisposeAndAcquire(Disposal{
		SellAmount:    dec("2"),
		SellAsset:     "LTC",
		AcquireAmount: dec("30"),
		AcquireAsset:  model.USD,
		Date:          date(2018, 2, 1),
	})
	require.NoError(t, err)
	assert.Empty(t, l.Lots("LTC"))
	assert.NotContains(t, l.Assets(), "LTC")
}

func TestDispose_InsufficientLeavesLedgerUnchanged(t *testing.T) {
	l := New()
	l.Deposit(dec("1"), "BTC", dec("100"), date(2018, 1, 1))
	l.Deposit(dec("0.5"), "BTC", dec("60"), date(2018, 1, 2))
	l.Deposit(dec("5"), "ETH", dec("50"), date(2018, 1, 3))
	beforeBTC := l.Lots("BTC")
	beforeETH := l.Lots("ETH")

	_, err := l.DisposeAndAcquire(Disposal{
		SellAmount:    dec("2"),
		SellAsset:     "BTC",
		AcquireAmount: dec("20"),
		AcquireAsset:  "ETH",
		Date:          date(2018, 2, 1),
		AcquirePrice:  dec("500"),
	})
	require.Error(t, err)

	var napErr *NoAvailablePurchaseError
	require.True(t, errors.As(err, &napErr))
	assert.Equal(t, "BTC", napErr.Asset)
	assertDec(t, "2", napErr.Requested)
	assertDec(t, "1.5", napErr.Available)
	assert.Contains(t, err.Error(), "no available purchase")

	assert.Equal(t, beforeBTC, l.Lots("BTC"))
	assert.Equal(t, beforeETH, l.Lots("ETH"))
}

func TestDispose_UnknownAsset(t *testing.T) {
	l := New()
	_, err := l.DisposeAndAcquire(Disposal{
		SellAmount:    dec("1"),
		SellAsset:     "XRP",
		AcquireAmount: dec("1"),
		AcquireAsset:  model.USD,
		Date:          date(2018, 2, 1),
	})
	var napErr *NoAvailablePurchaseError
	require.ErrorAs(t, err, &napErr)
	assert.Empty(t, l.Assets())
}

func TestDispose_ZeroAmountBooksAcquisitionOnly(t *testing.T) {
	l := New()
	l.Deposit(dec("1"), "BTC", dec("100"), date(2018, 1, 1))

	out, err := l.DisposeAndAcquire(Disposal{
		SellAmount:    decimal.Zero,
		SellAsset:     "BTC",
		AcquireAmount: dec("0.01"),
		AcquireAsset:  "ETH",
		AcquirePrice:  dec("500"),
		Date:          date(2018, 6, 17),
	})
	require.NoError(t, err)
	assert.Empty(t, out.Sales)
	assertDec(t, "1", l.Total("BTC"))

	eth := l.Lots("ETH")
	require.Len(t, eth, 1)
	assertDec(t, "0.01", eth[0].Amount)
	assertDec(t, "5", eth[0].CostBasis())
}

func TestDispose_ZeroAmountUnknownAsset(t *testing.T) {
	l := New()
	out, err := l.DisposeAndAcquire(Disposal{SellAsset: "XYZ", AcquireAmount: dec("3"), AcquireAsset: model.USD})
	require.NoError(t, err)
	assert.Empty(t, out.Sales)
	assert.Empty(t, l.Assets())
}

func TestDispose_ZeroAmountDeferredBooksZeroCostLot(t *testing.T) {
	l := New()
	out, err := l.DisposeAndAcquire(Disposal{
		SellAsset:     "BTC",
		AcquireAmount: dec("2"),
		AcquireAsset:  "ETH",
		Date:          date(2017, 3, 1),
		Deferred:      true,
	})
	require.NoError(t, err)
	assert.Empty(t, out.Exchanges)

	eth := l.Lots("ETH")
	require.Len(t, eth, 1)
	assertDec(t, "2", eth[0].Amount)
	assert.True(t, eth[0].UnitCost.IsZero())
}

func TestDispose_PortionsSumExactly(t *testing.T) {
	l := New()
	for i := 0; i < 3; i++ {
		l.Deposit(dec("1"), "TRX", decimal.Zero, date(2018, 1, 1+i))
	}

	out, err := l.DisposeAndAcquire(Disposal{
		SellAmount:    dec("3"),
		SellAsset:     "TRX",
		AcquireAmount: dec("1"),
		AcquireAsset:  model.USD,
		Date:          date(2018, 2, 1),
	})
	require.NoError(t, err)
	require.Len(t, out.Sales, 3)
	total := decimal.Zero
	for _, s := range out.Sales {
		total = total.Add(s.Proceeds)
	}
	assert.True(t, total.Equal(dec("1")), "proceeds sum to %s", total)

	l.Deposit(dec("1"), "BTC", dec("10"), date(2016, 1, 1))
	l.Deposit(dec("1"), "BTC", dec("20"), date(2016, 2, 1))
	l.Deposit(dec("1"), "BTC", dec("30"), date(2016, 3, 1))
	out, err = l.DisposeAndAcquire(Disposal{
		SellAmount:    dec("3"),
		SellAsset:     "BTC",
		AcquireAmount: dec("10"),
		AcquireAsset:  "ETH",
		Date:          date(2017, 6, 1),
		Deferred:      true,
	})
	require.NoError(t, err)
	require.Len(t, out.Exchanges, 3)
	assert.True(t, l.Total("ETH").Equal(dec("10")), "acquired lots sum to %s", l.Total("ETH"))
}

func TestDispose_LikeKindDeferral(t *testing.T) {
	l := New()
	l.Deposit(dec("1"), "BTC", dec("100"), date(2016, 1, 1))

	out, err := l.DisposeAndAcquire(Disposal{
		SellAmount:    dec("1"),
		SellAsset:     "BTC",
		AcquireAmount: dec("10"),
		AcquireAsset:  "ETH",
		Date:          date(2017, 6, 17),
		Deferred:      true,
	})
	require.NoError(t, err)
	assert.Empty(t, out.Sales)
	require.Len(t, out.Exchanges, 1)
	assertDec(t, "100", out.Exchanges[0].CarriedCost)
	assertDec(t, "10", out.Exchanges[0].AcquiredAmount)

	eth := l.Lots("ETH")
	require.Len(t, eth, 1)
	assertDec(t, "10", eth[0].Amount)
	assertDec(t, "100", eth[0].CostBasis())
	assert.Empty(t, l.Lots("BTC"))
}

func TestDispose_LikeKindProRatesAcrossLots(t *testing.T) {
	l := New()
	l.Deposit(dec("1"), "BTC", dec("100"), date(2016, 1, 1))
	l.Deposit(dec("1"), "BTC", dec("300"), date(2016, 2, 1))

	out, err := l.DisposeAndAcquire(Disposal{
		SellAmount:    dec("1.5"),
		SellAsset:     "BTC",
		AcquireAmount: dec("30"),
		AcquireAsset:  "ETH",
		Date:          date(2017, 3, 1),
		Deferred:      true,
	})
	require.NoError(t, err)
	require.Len(t, out.Exchanges, 2)

	eth := l.Lots("ETH")
	require.Len(t, eth, 2)
	assertDec(t, "20", eth[0].Amount)
	assertDec(t, "100", eth[0].CostBasis())
	assertDec(t, "10", eth[1].Amount)
	assertDec(t, "150", eth[1].CostBasis())
	assertDec(t, "30", l.Total("ETH"))
	assertDec(t, "0.5", l.Total("BTC"))
}

func TestDispose_LikeKindToUSDBooksNoLot(t *testing.T) {
	l := New()
	l.Deposit(dec("1"), "BTC", dec("100"), date(2016, 1, 1))
	out, err := l.DisposeAndAcquire(Disposal{
		SellAmount:    dec("1"),
		SellAsset:     "BTC",
		AcquireAmount: dec("500"),
		AcquireAsset:  model.USD,
		Date:          date(2017, 1, 1),
		Deferred:      true,
	})
	require.NoError(t, err)
	assert.Len(t, out.Exchanges, 1)
	assert.Empty(t, l.Lots(model.USD))
}

func TestDispose_RealizedTradeBooksFairValueLot(t *testing.T) {
	l := New()
	l.Deposit(dec("1"), "BTC", dec("100"), date(2018, 1, 1))

	out, err := l.DisposeAndAcquire(Disposal{
		SellAmount:    dec("1"),
		SellAsset:     "BTC",
		AcquireAmount: dec("10"),
		AcquireAsset:  "ETH",
		Date:          date(2018, 6, 17),
		AcquirePrice:  dec("50"),
	})
	require.NoError(t, err)
	require.Len(t, out.Sales, 1)
	assertDec(t, "500", out.Sales[0].Proceeds)
	assertDec(t, "100", out.Sales[0].Cost)

	eth := l.Lots("ETH")
	require.Len(t, eth, 1)
	assertDec(t, "10", eth[0].Amount)
	assertDec(t, "50", eth[0].UnitCost)
	assert.Equal(t, date(2018, 6, 17), eth[0].Acquired)
}

func TestDispose_AirdropZeroBasis(t *testing.T) {
	l := New()
	l.Deposit(dec("50"), "TRX", decimal.Zero, date(2018, 1, 1))
	lots := l.Lots("TRX")
	require.Len(t, lots, 1)
	assert.True(t, lots[0].UnitCost.IsZero())

	out, err := l.DisposeAndAcquire(Disposal{
		SellAmount:    dec("50"),
		SellAsset:     "TRX",
		AcquireAmount: dec("12.5"),
		AcquireAsset:  model.USD,
		Date:          date(2018, 3, 1),
	})
	require.NoError(t, err)
	require.Len(t, out.Sales, 1)
	assertDec(t, "12.5", out.Sales[0].Gain())
}

func TestLotsReturnsCopy(t *testing.T) {
	l := New()
	l.Deposit(dec("1"), "BTC", dec("100"), date(2018, 1, 1))
	lots := l.Lots("BTC")
	lots[0].Amount = dec("99")
	assertDec(t, "1", l.Total("BTC"))
}

func TestAssetsSorted(t *testing.T) {
	l := New()
	l.Deposit(dec("1"), "ETH", dec("1"), date(2018, 1, 1))
	l.Deposit(dec("1"), "BTC", dec("1"), date(2018, 1, 1))
	assert.Equal(t, []string{"BTC", "ETH"}, l.Assets())
}
