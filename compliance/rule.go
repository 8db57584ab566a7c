// Package compliance implements the hierarchical compliance rule engine:
// schema-described rule entries bound to an account or group, a rule set
// that fans Submit/Cancel/Add out across an account and its ancestor
// groups, and the rule decorators and concrete rules built on top of it.
package compliance

import (
	"fmt"

	"github.com/mktplane/tradecore/types"
)

// ComplianceParameter is one named, typed argument to a ComplianceRuleSchema.
type ComplianceParameter struct {
	Name  string
	Value any
}

// ComplianceRuleSchema names a rule and enumerates its typed parameters.
type ComplianceRuleSchema struct {
	Name       string
	Parameters []ComplianceParameter
}

// ComplianceState is the lifecycle state of a rule entry.
type ComplianceState int

const (
	ComplianceStateActive ComplianceState = iota
	ComplianceStatePassive
	ComplianceStateDisabled
	ComplianceStateDeleted
)

// ComplianceRuleEntry binds a schema instance to a target directory entry
// (an account or group name), with a state governing enforcement.
type ComplianceRuleEntry struct {
	ID          string
	Target      string
	Schema      ComplianceRuleSchema
	State       ComplianceState
}

// ComplianceRule is the behavior a rule entry dispatches to: Submit is
// called for a new order submission, Cancel for a cancel request, and Add
// to replay an order that already passed every check (either at startup or
// when this rule is newly installed against a resting order).
type ComplianceRule interface {
	Submit(order types.OrderInfo) error
	Cancel(order types.OrderInfo) error
	Add(order types.OrderInfo) error
}

// ComplianceCheckError is the error kind a rule raises to reject an order;
// the engine converts it to a ComplianceReport and, for ACTIVE rules,
// surfaces it to the caller.
type ComplianceCheckError struct {
	Message string
}

func (e *ComplianceCheckError) Error() string { return e.Message }

// NewComplianceCheckError constructs a ComplianceCheckError.
func NewComplianceCheckError(format string, args ...any) *ComplianceCheckError {
	return &ComplianceCheckError{Message: fmt.Sprintf(format, args...)}
}

// ComplianceReport is what a violated ACTIVE or PASSIVE rule reports to the
// compliance service.
type ComplianceReport struct {
	SubmissionAccount string
	OrderId           types.OrderId
	RuleId            string
	SchemaName        string
	Message           string
}

// Reporter receives ComplianceReports raised by rule violations.
type Reporter interface {
	Report(report ComplianceReport)
}

// DirectoryService resolves the parent groups of an account or group, used
// to discover the ancestor chain a ComplianceRuleSet inherits rules from.
type DirectoryService interface {
	LoadParents(directoryEntry string) ([]string, error)
}
