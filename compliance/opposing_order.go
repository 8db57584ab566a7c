package compliance

import (
	"time"

	"github.com/mktplane/tradecore/internal/clock"
	"github.com/mktplane/tradecore/types"
)

type cancelRecord struct {
	order  types.OrderInfo
	report types.ExecutionReport
}

// OpposingOrderSubmissionComplianceRule rejects a submission priced within
// offset of the opposite side's most recent cancel price while its own
// side's most recent cancel is still within the timeout: a trader can't
// cancel a passive order and immediately resubmit a more aggressive one to
// pick off the book. State is tracked independently per side: each side's own
// last-cancel time gates that side's own next submission, while the price
// comparison crosses sides against the opposite side's last cancel price.
type OpposingOrderSubmissionComplianceRule struct {
	Clock   clock.Clock
	Timeout time.Duration
	Offset  types.Money

	lastAskCancelTime time.Time
	askPrice          types.Money
	lastBidCancelTime time.Time
	bidPrice          types.Money

	initialized bool
	queue       []cancelRecord
}

func submissionPrice(order types.OrderInfo) types.Money {
	switch order.Fields.Type {
	case types.OrderTypeMarket:
		if order.Fields.Side == types.SideAsk {
			return types.Zero
		}
		return types.MaxMoney
	default:
		return order.Fields.Price
	}
}

func (r *OpposingOrderSubmissionComplianceRule) ensureInit() {
	if !r.initialized {
		r.askPrice = types.MaxMoney
		r.bidPrice = types.Zero
		r.initialized = true
	}
}

// Add is a no-op beyond initialization: resting orders reach this rule's
// cancel-timing state through RecordExecutionReport, not through Add.
func (r *OpposingOrderSubmissionComplianceRule) Add(order types.OrderInfo) error {
	r.ensureInit()
	return nil
}

// RecordExecutionReport feeds a tracked order's execution report into the
// rule; a CANCELED report is queued for the next Submit to drain. Callers
// wire this to whatever order-status feed they run.
func (r *OpposingOrderSubmissionComplianceRule) RecordExecutionReport(order types.OrderInfo, report types.ExecutionReport) {
	if report.Status != types.StatusCanceled {
		return
	}
	r.ensureInit()
	r.queue = append(r.queue, cancelRecord{order: order, report: report})
}

func (r *OpposingOrderSubmissionComplianceRule) drainCancels() {
	now := r.Clock.Now()
	for _, c := range r.queue {
		price := submissionPrice(c.order)
		switch c.order.Fields.Side {
		case types.SideAsk:
			if now.Sub(r.lastAskCancelTime) > r.Timeout {
				r.askPrice = types.MaxMoney
			}
			if !c.report.Timestamp.Before(r.lastAskCancelTime) && !price.GreaterThan(r.askPrice) {
				r.lastAskCancelTime = c.report.Timestamp
				r.askPrice = price
			}
		case types.SideBid:
			if now.Sub(r.lastBidCancelTime) > r.Timeout {
				r.bidPrice = types.Zero
			}
			if !c.report.Timestamp.Before(r.lastBidCancelTime) && !price.LessThan(r.bidPrice) {
				r.lastBidCancelTime = c.report.Timestamp
				r.bidPrice = price
			}
		}
	}
	r.queue = r.queue[:0]
}

func (r *OpposingOrderSubmissionComplianceRule) priceInRange(order types.OrderInfo) bool {
	price := submissionPrice(order)
	if order.Fields.Side == types.SideAsk {
		return !price.GreaterThan(r.bidPrice.Add(r.Offset))
	}
	return !price.LessThan(r.askPrice.Sub(r.Offset))
}

// Submit drains any queued cancels, then rejects the new order if its
// price is within offset of the opposite side's most recent cancel price
// and the same side's most recent cancel happened within the timeout.
func (r *OpposingOrderSubmissionComplianceRule) Submit(order types.OrderInfo) error {
	if order.Fields.Type != types.OrderTypeLimit && order.Fields.Type != types.OrderTypeMarket {
		return nil
	}
	r.ensureInit()
	r.drainCancels()

	var lastCancelTime time.Time
	if order.Fields.Side == types.SideBid {
		lastCancelTime = r.lastBidCancelTime
	} else {
		lastCancelTime = r.lastAskCancelTime
	}

	var violation error
	if r.priceInRange(order) && !lastCancelTime.Before(r.Clock.Now().Add(-r.Timeout)) {
		violation = NewComplianceCheckError("Opposing order can not be submitted yet.")
	}
	return violation
}

// Cancel performs no check; a resting order's own cancel is what feeds
// the timing state via RecordExecutionReport.
func (r *OpposingOrderSubmissionComplianceRule) Cancel(order types.OrderInfo) error {
	return nil
}
