package accounting

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mktplane/tradecore/types"
)

var portfolioSecurity = types.Security{Symbol: "S", Market: "NSDQ", Country: "US"}

func fillReport(lastQuantity types.Quantity, lastPrice types.Money) types.ExecutionReport {
	return types.ExecutionReport{Status: types.StatusPartiallyFilled, LastQuantity: lastQuantity, LastPrice: lastPrice}
}

func TestPortfolioUpdateIgnoresZeroQuantity(t *testing.T) {
	p := NewPortfolio()
	fields := types.BuildLimitOrder("A", portfolioSecurity, "USD", types.SideBid, "ARCA", 100, types.MoneyFromFloat(10))
	p.Update(fields, types.ExecutionReport{Status: types.StatusNew, LastQuantity: 0})

	assert.True(t, p.GetRealizedProfitAndLoss("USD").IsZero())
	assert.True(t, p.GetUnrealizedProfitAndLoss("USD").IsZero())
}

func TestPortfolioUnrealizedTracksValuation(t *testing.T) {
	p := NewPortfolio()
	fields := types.BuildLimitOrder("A", portfolioSecurity, "USD", types.SideBid, "ARCA", 100, types.MoneyFromFloat(10))
	p.Update(fields, fillReport(100, types.MoneyFromFloat(10)))

	bid := types.MoneyFromFloat(11)
	p.UpdateBid(portfolioSecurity, "USD", bid)

	assert.True(t, p.GetUnrealizedProfitAndLoss("USD").Equal(types.MoneyFromFloat(100)))
}

func TestPortfolioUnrealizedUsesAskWhenShort(t *testing.T) {
	p := NewPortfolio()
	fields := types.BuildLimitOrder("A", portfolioSecurity, "USD", types.SideAsk, "ARCA", 100, types.MoneyFromFloat(10))
	p.Update(fields, fillReport(100, types.MoneyFromFloat(10)))

	p.UpdateBid(portfolioSecurity, "USD", types.MoneyFromFloat(9))
	// Bid valuation alone should not move a short position's unrealized P&L.
	assert.True(t, p.GetUnrealizedProfitAndLoss("USD").IsZero())

	p.UpdateAsk(portfolioSecurity, "USD", types.MoneyFromFloat(8))
	assert.True(t, p.GetUnrealizedProfitAndLoss("USD").Equal(types.MoneyFromFloat(200)))
}

func TestPortfolioRealizedAccumulatesAcrossFills(t *testing.T) {
	p := NewPortfolio()
	buy := types.BuildLimitOrder("A", portfolioSecurity, "USD", types.SideBid, "ARCA", 100, types.MoneyFromFloat(10))
	p.Update(buy, fillReport(100, types.MoneyFromFloat(10)))

	sell := types.BuildLimitOrder("A", portfolioSecurity, "USD", types.SideAsk, "ARCA", 100, types.MoneyFromFloat(12))
	p.Update(sell, fillReport(100, types.MoneyFromFloat(12)))

	assert.True(t, p.GetRealizedProfitAndLoss("USD").Equal(types.MoneyFromFloat(200)))
	assert.True(t, p.GetUnrealizedProfitAndLoss("USD").IsZero())
}

func TestPortfolioForEachPortfolioEntry(t *testing.T) {
	p := NewPortfolio()
	fields := types.BuildLimitOrder("A", portfolioSecurity, "USD", types.SideBid, "ARCA", 50, types.MoneyFromFloat(5))
	p.Update(fields, fillReport(50, types.MoneyFromFloat(5)))

	var seen int
	p.ForEachPortfolioEntry(func(entry PortfolioEntry) {
		seen++
		assert.Equal(t, portfolioSecurity, entry.Security)
		assert.Equal(t, types.Quantity(50), entry.Inventory.Quantity)
	})
	assert.Equal(t, 1, seen)
}
