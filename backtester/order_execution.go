package backtester

import (
	"strconv"
	"sync"
	"time"

	"github.com/mktplane/tradecore/risk"
	"github.com/mktplane/tradecore/types"
)

// ExecutionDriver decides what a submitted order does in a backtest: fill
// it, reject it, or leave it resting. It is called once per submission,
// at the logical time the submission event fires.
type ExecutionDriver interface {
	Decide(fields types.OrderFields) []DrivenReport
}

// DrivenReport is one execution report an ExecutionDriver wants delivered
// for an order, after a delay relative to the submission time.
type DrivenReport struct {
	Delay  time.Duration
	Status types.ExecutionStatus
	Price  types.Money
	Size   types.Quantity
}

// OrderExecutionClient is a backtester order-execution client whose
// submissions are scheduled as backtester events: a submission does not
// take effect, and no report is delivered, until its event dequeues at the
// handler's logical time. Cancel is not scheduled; it takes effect at once
// by suppressing reports not yet delivered.
type OrderExecutionClient struct {
	handler *EventHandler
	driver  ExecutionDriver
	seq     types.Sequencer

	mu       sync.Mutex
	nextID   int
	reports  func(types.OrderId, types.ExecutionReport)
	canceled map[types.OrderId]bool
}

var _ risk.OrderExecutionClient = (*OrderExecutionClient)(nil)

// NewOrderExecutionClient constructs a backtester order-execution client
// driven by driver, scheduled on handler. reportSink receives every
// execution report as it is delivered, in logical-time order.
func NewOrderExecutionClient(handler *EventHandler, driver ExecutionDriver, reportSink func(types.OrderId, types.ExecutionReport)) *OrderExecutionClient {
	return &OrderExecutionClient{
		handler:  handler,
		driver:   driver,
		reports:  reportSink,
		canceled: make(map[types.OrderId]bool),
	}
}

// Submit enqueues a submission event for fields and returns the order id
// the backtester assigned it; reports the driver produces are delivered
// as further events, each at the submission time plus the report's delay.
func (c *OrderExecutionClient) Submit(fields types.OrderFields) (types.OrderId, error) {
	c.mu.Lock()
	c.nextID++
	id := types.OrderId(strconv.Itoa(c.nextID))
	c.mu.Unlock()

	at := c.handler.GetTime()
	c.handler.Add(&submissionEvent{client: c, id: id, fields: fields, at: at})
	return id, nil
}

// Cancel marks id as canceled; any driven reports still pending for it at
// delivery time are suppressed.
func (c *OrderExecutionClient) Cancel(id types.OrderId) error {
	c.mu.Lock()
	c.canceled[id] = true
	c.mu.Unlock()
	return nil
}

type submissionEvent struct {
	client *OrderExecutionClient
	id     types.OrderId
	fields types.OrderFields
	at     time.Time
}

func (e *submissionEvent) Timestamp() time.Time { return e.at }

func (e *submissionEvent) Execute() {
	for _, driven := range e.client.driver.Decide(e.fields) {
		e.client.handler.Add(&reportEvent{
			client: e.client,
			id:     e.id,
			at:     e.at.Add(driven.Delay),
			report: driven,
		})
	}
}

type reportEvent struct {
	client *OrderExecutionClient
	id     types.OrderId
	at     time.Time
	report DrivenReport
}

func (e *reportEvent) Timestamp() time.Time { return e.at }

func (e *reportEvent) Execute() {
	e.client.mu.Lock()
	canceled := e.client.canceled[e.id]
	e.client.mu.Unlock()
	if canceled {
		return
	}
	report := types.ExecutionReport{
		Id:           e.id,
		Timestamp:    e.at,
		Sequence:     e.client.seq.IncrementNextSequence(e.at),
		Status:       e.report.Status,
		LastQuantity: e.report.Size,
		LastPrice:    e.report.Price,
	}
	e.client.reports(e.id, report)
}
