package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mktplane/tradecore/types"
)

var trackerSecurity = types.Security{Symbol: "S", Market: "NSDQ", Country: "US"}

type fakeExecutionClient struct {
	canceled  []types.OrderId
	submits   []types.OrderFields
	cancelErr error
	submitErr error
}

func (c *fakeExecutionClient) Submit(fields types.OrderFields) (types.OrderId, error) {
	c.submits = append(c.submits, fields)
	if c.submitErr != nil {
		return "", c.submitErr
	}
	return "flatten-1", nil
}

func (c *fakeExecutionClient) Cancel(id types.OrderId) error {
	c.canceled = append(c.canceled, id)
	return c.cancelErr
}

func testMarkets() MarketDatabase {
	return MarketDatabase{
		"NSDQ": {Currency: "USD", PreferredDestination: "NSDQ-DIRECT"},
	}
}

func TestRiskTransitionTrackerStaysAtS0WhileActive(t *testing.T) {
	client := &fakeExecutionClient{}
	tracker := NewRiskTransitionTracker("trader1", client, testMarkets())
	tracker.Update(RiskState{Type: StateActive})
	assert.Equal(t, 0, tracker.State())
}

func TestRiskTransitionTrackerCancelsOpeningsOnCloseOrders(t *testing.T) {
	client := &fakeExecutionClient{}
	tracker := NewRiskTransitionTracker("trader1", client, testMarkets())
	tracker.Add("o1", types.BuildLimitOrder("trader1", trackerSecurity, "USD", types.SideBid, "NSDQ", 100, types.MoneyFromFloat(10)))

	tracker.Update(RiskState{Type: StateCloseOrders})

	require.Len(t, client.canceled, 1)
	assert.Equal(t, types.OrderId("o1"), client.canceled[0])
	assert.Equal(t, 2, tracker.State(), "with no position and RiskState still CLOSE_ORDERS, S2 neither returns to S0 nor advances to S3")
}

func TestRiskTransitionTrackerReturnsToS0FromS2OnActive(t *testing.T) {
	client := &fakeExecutionClient{}
	tracker := NewRiskTransitionTracker("trader1", client, testMarkets())
	tracker.Update(RiskState{Type: StateCloseOrders})
	require.Equal(t, 2, tracker.State())

	tracker.Update(RiskState{Type: StateActive})
	assert.Equal(t, 0, tracker.State())
}

func TestRiskTransitionTrackerDrainsThenFlattensOnDisabled(t *testing.T) {
	client := &fakeExecutionClient{}
	tracker := NewRiskTransitionTracker("trader1", client, testMarkets())
	tracker.Add("o1", types.BuildLimitOrder("trader1", trackerSecurity, "USD", types.SideBid, "NSDQ", 100, types.MoneyFromFloat(10)))
	tracker.UpdateReport(types.ExecutionReport{Id: "o1", Status: types.StatusFilled, LastQuantity: 100, LastPrice: types.MoneyFromFloat(10)})

	tracker.Update(RiskState{Type: StateCloseOrders})
	tracker.Update(RiskState{Type: StateDisabled})

	require.Equal(t, 6, tracker.State(), "position fully filled with no live orders: S3 cancels nothing live, S4 sees C3 immediately, S5 flattens and always advances to S6")
	require.Len(t, client.submits, 1)
	assert.Equal(t, types.SideAsk, client.submits[0].Side, "a +100 position flattens with an opposite-side (ask) market order")
	assert.Equal(t, types.Quantity(100), client.submits[0].Quantity)
	assert.Equal(t, types.Destination("NSDQ-DIRECT"), client.submits[0].Destination)
	assert.Equal(t, types.CurrencyId("USD"), client.submits[0].Currency)
}

func TestRiskTransitionTrackerWaitsForLiveOrdersBeforeFlattening(t *testing.T) {
	client := &fakeExecutionClient{}
	tracker := NewRiskTransitionTracker("trader1", client, testMarkets())
	tracker.Add("o1", types.BuildLimitOrder("trader1", trackerSecurity, "USD", types.SideBid, "NSDQ", 100, types.MoneyFromFloat(10)))

	tracker.Update(RiskState{Type: StateCloseOrders})
	tracker.Update(RiskState{Type: StateDisabled})

	require.Equal(t, 4, tracker.State(), "o1 is still live: S4 can't advance to S5 until it terminates")
	assert.Empty(t, client.submits)

	tracker.UpdateReport(types.ExecutionReport{Id: "o1", Status: types.StatusCanceled})
	assert.Equal(t, 6, tracker.State())
}

func TestRiskTransitionTrackerSwallowsSubmissionErrorsDuringFlatten(t *testing.T) {
	client := &fakeExecutionClient{submitErr: assertError{}}
	tracker := NewRiskTransitionTracker("trader1", client, testMarkets())
	tracker.Add("o1", types.BuildLimitOrder("trader1", trackerSecurity, "USD", types.SideBid, "NSDQ", 100, types.MoneyFromFloat(10)))
	tracker.UpdateReport(types.ExecutionReport{Id: "o1", Status: types.StatusFilled, LastQuantity: 100, LastPrice: types.MoneyFromFloat(10)})

	tracker.Update(RiskState{Type: StateCloseOrders})
	assert.NotPanics(t, func() {
		tracker.Update(RiskState{Type: StateDisabled})
	})
	assert.Equal(t, 6, tracker.State(), "a failed flatten submission is logged and swallowed, not retried within the same transition")
}

type assertError struct{}

func (assertError) Error() string { return "submission failed" }
