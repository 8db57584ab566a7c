package compliance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mktplane/tradecore/types"
)

var ruleSecurity = types.Security{Symbol: "S", Market: "NSDQ", Country: "US"}

type staticDirectory struct {
	parents map[string][]string
}

func (d staticDirectory) LoadParents(entry string) ([]string, error) {
	return d.parents[entry], nil
}

type recordingReporter struct {
	reports []ComplianceReport
}

func (r *recordingReporter) Report(report ComplianceReport) {
	r.reports = append(r.reports, report)
}

// alwaysRejectRule rejects every Submit/Cancel with a ComplianceCheckError,
// and records every order it is asked to Add.
type alwaysRejectRule struct {
	added []types.OrderInfo
}

func (r *alwaysRejectRule) Submit(order types.OrderInfo) error {
	return NewComplianceCheckError("rejected")
}
func (r *alwaysRejectRule) Cancel(order types.OrderInfo) error {
	return NewComplianceCheckError("rejected")
}
func (r *alwaysRejectRule) Add(order types.OrderInfo) error {
	r.added = append(r.added, order)
	return nil
}

type passRule struct {
	added []types.OrderInfo
}

func (r *passRule) Submit(order types.OrderInfo) error { return nil }
func (r *passRule) Cancel(order types.OrderInfo) error { return nil }
func (r *passRule) Add(order types.OrderInfo) error {
	r.added = append(r.added, order)
	return nil
}

func testOrder(account string, orderId types.OrderId) types.OrderInfo {
	return types.OrderInfo{
		Fields:            types.BuildLimitOrder(account, ruleSecurity, "USD", types.SideBid, "NSDQ", 100, types.MoneyFromFloat(10)),
		SubmissionAccount: account,
		OrderId:           orderId,
	}
}

func TestComplianceRuleSetSubmitActiveViolationStopsOwnRulesAndParents(t *testing.T) {
	directory := staticDirectory{parents: map[string][]string{
		"trader1": {"traders"},
		"traders": nil,
	}}
	reporter := &recordingReporter{}
	set := NewComplianceRuleSet(directory, reporter)

	reject := &alwaysRejectRule{}
	second := &alwaysRejectRule{}
	set.InstallRule(ComplianceRuleEntry{ID: "r1", Target: "trader1", State: ComplianceStateActive, Schema: ComplianceRuleSchema{Name: "reject"}}, reject)
	set.InstallRule(ComplianceRuleEntry{ID: "r2", Target: "trader1", State: ComplianceStateActive, Schema: ComplianceRuleSchema{Name: "never-run"}}, second)
	parentReject := &alwaysRejectRule{}
	set.InstallRule(ComplianceRuleEntry{ID: "r3", Target: "traders", State: ComplianceStateActive, Schema: ComplianceRuleSchema{Name: "parent-reject"}}, parentReject)

	order := testOrder("trader1", "o1")
	err := set.Submit("trader1", order)

	require.Error(t, err)
	require.Len(t, reporter.reports, 1, "the second own-entry rule must not run once the first rejects")
	assert.Equal(t, "r1", reporter.reports[0].RuleId)
	assert.Empty(t, parentReject.added, "parent rule evaluation is skipped once a violation is captured")
}

func TestComplianceRuleSetSubmitPassiveViolationReportsButContinues(t *testing.T) {
	directory := staticDirectory{}
	reporter := &recordingReporter{}
	set := NewComplianceRuleSet(directory, reporter)

	passiveReject := &alwaysRejectRule{}
	pass := &passRule{}
	set.InstallRule(ComplianceRuleEntry{ID: "r1", Target: "trader1", State: ComplianceStatePassive, Schema: ComplianceRuleSchema{Name: "passive"}}, passiveReject)
	set.InstallRule(ComplianceRuleEntry{ID: "r2", Target: "trader1", State: ComplianceStateActive, Schema: ComplianceRuleSchema{Name: "pass"}}, pass)

	order := testOrder("trader1", "o1")
	err := set.Submit("trader1", order)

	assert.NoError(t, err)
	require.Len(t, reporter.reports, 1)
	assert.Len(t, pass.added, 0, "Submit on a passing rule does not route through Add")
}

func TestComplianceRuleSetSubmitSkipsDisabledRules(t *testing.T) {
	directory := staticDirectory{}
	reporter := &recordingReporter{}
	set := NewComplianceRuleSet(directory, reporter)

	reject := &alwaysRejectRule{}
	set.InstallRule(ComplianceRuleEntry{ID: "r1", Target: "trader1", State: ComplianceStateDisabled, Schema: ComplianceRuleSchema{Name: "disabled"}}, reject)

	err := set.Submit("trader1", testOrder("trader1", "o1"))
	assert.NoError(t, err)
	assert.Empty(t, reporter.reports)
}

func TestComplianceRuleSetCancelFailsFastWithoutCheckingParents(t *testing.T) {
	directory := staticDirectory{parents: map[string][]string{"trader1": {"traders"}}}
	reporter := &recordingReporter{}
	set := NewComplianceRuleSet(directory, reporter)

	reject := &alwaysRejectRule{}
	parentReject := &alwaysRejectRule{}
	set.InstallRule(ComplianceRuleEntry{ID: "r1", Target: "trader1", State: ComplianceStateActive}, reject)
	set.InstallRule(ComplianceRuleEntry{ID: "r2", Target: "traders", State: ComplianceStateActive}, parentReject)

	err := set.Cancel("trader1", testOrder("trader1", "o1"))
	require.Error(t, err)
	require.Len(t, reporter.reports, 1, "cancel returns immediately on the first violation, never reaching the parent rule")
}

func TestComplianceRuleSetAddFansOutUnconditionally(t *testing.T) {
	directory := staticDirectory{parents: map[string][]string{"trader1": {"traders"}}}
	reporter := &recordingReporter{}
	set := NewComplianceRuleSet(directory, reporter)

	own := &passRule{}
	parent := &passRule{}
	set.InstallRule(ComplianceRuleEntry{ID: "r1", Target: "trader1", State: ComplianceStateDisabled}, own)
	set.InstallRule(ComplianceRuleEntry{ID: "r2", Target: "traders", State: ComplianceStateDisabled}, parent)

	order := testOrder("trader1", "o1")
	set.Add("trader1", order)

	assert.Len(t, own.added, 1, "Add is dispatched even when the rule entry is disabled")
	assert.Len(t, parent.added, 1)
}

func TestComplianceRuleSetDiscoversAncestorsRestrictedToTradersOrManagersAtFirstHop(t *testing.T) {
	directory := staticDirectory{parents: map[string][]string{
		"trader1": {"traders", "desk-alpha"},
		"traders": {"all-traders"},
	}}
	reporter := &recordingReporter{}
	set := NewComplianceRuleSet(directory, reporter)

	entry := set.entryFor("trader1")
	assert.ElementsMatch(t, []string{"traders", "all-traders"}, entry.parents,
		"desk-alpha is not traders/managers and is excluded only at the first hop")
}

func TestComplianceRuleSetInstallRuleReplaysTrackedOrders(t *testing.T) {
	directory := staticDirectory{}
	reporter := &recordingReporter{}
	set := NewComplianceRuleSet(directory, reporter)

	order := testOrder("trader1", "o1")
	set.Add("trader1", order)

	late := &passRule{}
	set.InstallRule(ComplianceRuleEntry{ID: "late", Target: "trader1", State: ComplianceStateActive}, late)

	require.Len(t, late.added, 1, "a rule installed after an order was already tracked replays it via Add")
	assert.Equal(t, order.OrderId, late.added[0].OrderId)
}

func TestComplianceRuleSetInstallRuleDeletedStateOnlyRemoves(t *testing.T) {
	directory := staticDirectory{}
	reporter := &recordingReporter{}
	set := NewComplianceRuleSet(directory, reporter)

	reject := &alwaysRejectRule{}
	set.InstallRule(ComplianceRuleEntry{ID: "r1", Target: "trader1", State: ComplianceStateActive}, reject)
	set.InstallRule(ComplianceRuleEntry{ID: "r1", Target: "trader1", State: ComplianceStateDeleted}, nil)

	err := set.Submit("trader1", testOrder("trader1", "o1"))
	assert.NoError(t, err)
}
