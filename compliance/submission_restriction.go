package compliance

import (
	"time"

	"github.com/mktplane/tradecore/internal/clock"
	"github.com/mktplane/tradecore/types"
)

// SubmissionRestrictionPeriodComplianceRule rejects submissions of a fixed
// set of securities during a daily time-of-day window. Cancel and Add are
// unrestricted: only new submissions are blocked. Both window boundaries
// are inclusive; when Start > End the window wraps past midnight.
type SubmissionRestrictionPeriodComplianceRule struct {
	Securities map[types.Security]bool
	Start      time.Duration
	End        time.Duration
	Clock      clock.Clock
}

func (r *SubmissionRestrictionPeriodComplianceRule) Submit(order types.OrderInfo) error {
	if !r.Securities[order.Fields.Security] {
		return nil
	}
	now := timeOfDay(r.Clock.Now())
	var restricted bool
	if r.Start > r.End {
		restricted = now >= r.Start || now <= r.End
	} else {
		restricted = now >= r.Start && now <= r.End
	}
	if restricted {
		return NewComplianceCheckError("Submissions are restricted during this period.")
	}
	return nil
}

func (r *SubmissionRestrictionPeriodComplianceRule) Cancel(order types.OrderInfo) error {
	return nil
}

func (r *SubmissionRestrictionPeriodComplianceRule) Add(order types.OrderInfo) error {
	return nil
}
