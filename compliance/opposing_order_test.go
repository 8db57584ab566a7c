package compliance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mktplane/tradecore/internal/clock"
	"github.com/mktplane/tradecore/types"
)

func limitOrder(id types.OrderId, side types.Side, price float64) types.OrderInfo {
	return types.OrderInfo{
		Fields:  types.BuildLimitOrder("trader1", ruleSecurity, "USD", side, "NSDQ", 100, types.MoneyFromFloat(price)),
		OrderId: id,
	}
}

// cancelOrder drives a rule through Add then a CANCELED report, the shape
// every resting order that gets pulled goes through before this rule will
// factor it into its cancel-timing state.
func cancelOrder(t *testing.T, rule *OpposingOrderSubmissionComplianceRule, order types.OrderInfo, at time.Time) {
	t.Helper()
	require.NoError(t, rule.Add(order))
	rule.RecordExecutionReport(order, types.ExecutionReport{Status: types.StatusCanceled, Timestamp: at})
}

func TestOpposingOrderSubmissionBlocksSameSideResubmitWithinRangeAndTimeout(t *testing.T) {
	base := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	c := clock.NewIncrementalClock(base)
	rule := &OpposingOrderSubmissionComplianceRule{Clock: c, Timeout: time.Minute, Offset: types.Zero}

	cancelOrder(t, rule, limitOrder("bid1", types.SideBid, 10), base)
	c.Advance(time.Second)
	cancelOrder(t, rule, limitOrder("ask1", types.SideAsk, 5), c.Now())

	c.Advance(time.Second)
	ask := limitOrder("ask2", types.SideAsk, 8)
	err := rule.Submit(ask)
	require.Error(t, err, "a new ask within the canceled bid's price and submitted shortly after the ask's own cancel is blocked")
}

func TestOpposingOrderSubmissionAllowsOnceOwnSideTimeoutElapses(t *testing.T) {
	base := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	c := clock.NewIncrementalClock(base)
	rule := &OpposingOrderSubmissionComplianceRule{Clock: c, Timeout: time.Minute, Offset: types.Zero}

	cancelOrder(t, rule, limitOrder("bid1", types.SideBid, 10), base)
	cancelOrder(t, rule, limitOrder("ask1", types.SideAsk, 5), base)

	c.Advance(2 * time.Minute)
	ask := limitOrder("ask2", types.SideAsk, 8)
	assert.NoError(t, rule.Submit(ask), "the ask's own last cancel is stale once the timeout has elapsed")
}

func TestOpposingOrderSubmissionAllowsPriceOutsideRange(t *testing.T) {
	base := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	c := clock.NewIncrementalClock(base)
	rule := &OpposingOrderSubmissionComplianceRule{Clock: c, Timeout: time.Minute, Offset: types.Zero}

	cancelOrder(t, rule, limitOrder("bid1", types.SideBid, 10), base)
	cancelOrder(t, rule, limitOrder("ask1", types.SideAsk, 5), base)

	c.Advance(time.Second)
	ask := limitOrder("ask2", types.SideAsk, 12)
	assert.NoError(t, rule.Submit(ask), "an ask priced above the canceled bid plus offset is not in range")
}

func TestOpposingOrderSubmissionIgnoresNonLimitMarketOrderTypes(t *testing.T) {
	c := clock.NewIncrementalClock(time.Now())
	rule := &OpposingOrderSubmissionComplianceRule{Clock: c, Timeout: time.Minute, Offset: types.Zero}
	pegged := limitOrder("peg1", types.SideAsk, 10)
	pegged.Fields.Type = types.OrderTypePegged
	assert.NoError(t, rule.Submit(pegged))
}
