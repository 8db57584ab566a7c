package compliance

import (
	"time"

	"github.com/mktplane/tradecore/internal/clock"
	"github.com/mktplane/tradecore/types"
)

// SecurityFilterComplianceRule wraps an inner rule so it only ever sees
// orders for a fixed set of securities; every other security is a silent
// no-op pass.
type SecurityFilterComplianceRule struct {
	Securities map[types.Security]bool
	Inner      ComplianceRule
}

func (r *SecurityFilterComplianceRule) applies(order types.OrderInfo) bool {
	return r.Securities[order.Fields.Security]
}

func (r *SecurityFilterComplianceRule) Submit(order types.OrderInfo) error {
	if !r.applies(order) {
		return nil
	}
	return r.Inner.Submit(order)
}

func (r *SecurityFilterComplianceRule) Cancel(order types.OrderInfo) error {
	if !r.applies(order) {
		return nil
	}
	return r.Inner.Cancel(order)
}

func (r *SecurityFilterComplianceRule) Add(order types.OrderInfo) error {
	if !r.applies(order) {
		return nil
	}
	return r.Inner.Add(order)
}

// TimeFilterComplianceRule wraps an inner rule so it only applies within a
// daily [start, end] window. When start > end the window wraps past
// midnight: (start, 24h] union [0, end].
type TimeFilterComplianceRule struct {
	Start time.Duration
	End   time.Duration
	Clock clock.Clock
	Inner ComplianceRule
}

func (r *TimeFilterComplianceRule) inWindow() bool {
	timeOfDay := timeOfDay(r.Clock.Now())
	if r.Start > r.End {
		return timeOfDay > r.Start || timeOfDay <= r.End
	}
	return timeOfDay >= r.Start && timeOfDay <= r.End
}

func timeOfDay(t time.Time) time.Duration {
	return time.Duration(t.Hour())*time.Hour +
		time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second +
		time.Duration(t.Nanosecond())
}

func (r *TimeFilterComplianceRule) Submit(order types.OrderInfo) error {
	if !r.inWindow() {
		return nil
	}
	return r.Inner.Submit(order)
}

func (r *TimeFilterComplianceRule) Cancel(order types.OrderInfo) error {
	if !r.inWindow() {
		return nil
	}
	return r.Inner.Cancel(order)
}

func (r *TimeFilterComplianceRule) Add(order types.OrderInfo) error {
	if !r.inWindow() {
		return nil
	}
	return r.Inner.Add(order)
}

// MapSecurityComplianceRule lazily constructs one inner rule instance per
// security the first time that security is encountered, dispatching every
// later call for that security to the same instance. This is how a rule
// that tracks per-security state (like OpposingOrderSubmissionComplianceRule)
// gets an independent tracker per security instead of sharing one across
// an entire account.
type MapSecurityComplianceRule struct {
	Factory func(security types.Security) ComplianceRule

	rules map[types.Security]ComplianceRule
}

func (r *MapSecurityComplianceRule) ruleFor(security types.Security) ComplianceRule {
	if r.rules == nil {
		r.rules = make(map[types.Security]ComplianceRule)
	}
	rule, ok := r.rules[security]
	if !ok {
		rule = r.Factory(security)
		r.rules[security] = rule
	}
	return rule
}

func (r *MapSecurityComplianceRule) Submit(order types.OrderInfo) error {
	return r.ruleFor(order.Fields.Security).Submit(order)
}

func (r *MapSecurityComplianceRule) Cancel(order types.OrderInfo) error {
	return r.ruleFor(order.Fields.Security).Cancel(order)
}

func (r *MapSecurityComplianceRule) Add(order types.OrderInfo) error {
	return r.ruleFor(order.Fields.Security).Add(order)
}
