package compliance

import (
	"sync"

	"github.com/mktplane/tradecore/types"
)

type ruleInstance struct {
	entry ComplianceRuleEntry
	rule  ComplianceRule
}

// accountEntry is one account or group's rule list plus the orders it has
// seen, guarded by its own mutex so unrelated accounts never contend.
type accountEntry struct {
	mu       sync.Mutex
	ancestry sync.Once
	parents  []string
	rules    []*ruleInstance
	orders   []types.OrderInfo
}

// ComplianceRuleSet evaluates an account's own compliance rules and every
// ancestor group's rules against order submissions, cancels and resting
// orders. Ancestor discovery walks the directory breadth-first from the
// account, but only the account's own direct parents are restricted to the
// "traders"/"managers" groups: once the walk has climbed past that first
// hop it follows every further parent regardless of name.
type ComplianceRuleSet struct {
	directory DirectoryService
	reporter  Reporter

	mu      sync.Mutex
	entries map[string]*accountEntry
}

// NewComplianceRuleSet constructs a rule set over a directory service and
// violation reporter.
func NewComplianceRuleSet(directory DirectoryService, reporter Reporter) *ComplianceRuleSet {
	return &ComplianceRuleSet{
		directory: directory,
		reporter:  reporter,
		entries:   make(map[string]*accountEntry),
	}
}

func (s *ComplianceRuleSet) entryFor(target string) *accountEntry {
	s.mu.Lock()
	entry, ok := s.entries[target]
	if !ok {
		entry = &accountEntry{}
		s.entries[target] = entry
	}
	s.mu.Unlock()
	entry.ancestry.Do(func() {
		entry.parents = s.discoverAncestors(target)
	})
	return entry
}

// discoverAncestors walks the directory breadth-first from target,
// restricting the first hop to "traders"/"managers" and every subsequent
// hop to whatever parents those groups report.
func (s *ComplianceRuleSet) discoverAncestors(target string) []string {
	seen := make(map[string]bool)
	var parents []string
	queue := []string{target}
	firstHop := true
	for len(queue) > 0 {
		front := queue[0]
		queue = queue[1:]
		directParents, err := s.directory.LoadParents(front)
		if err != nil {
			continue
		}
		for _, parent := range directParents {
			if firstHop && parent != "traders" && parent != "managers" {
				continue
			}
			if !seen[parent] {
				seen[parent] = true
				parents = append(parents, parent)
				queue = append(queue, parent)
			}
		}
		firstHop = false
	}
	return parents
}

// InstallRule binds a rule to its entry's target (an account or group),
// replacing any existing rule with the same entry ID. A DELETED entry only
// removes the prior rule. The new rule is replayed against every order
// already tracked for that target via Add, mirroring a rule that is
// installed against orders already resting.
func (s *ComplianceRuleSet) InstallRule(entry ComplianceRuleEntry, rule ComplianceRule) {
	target := s.entryFor(entry.Target)
	target.mu.Lock()
	defer target.mu.Unlock()
	filtered := target.rules[:0]
	for _, r := range target.rules {
		if r.entry.ID != entry.ID {
			filtered = append(filtered, r)
		}
	}
	target.rules = filtered
	if entry.State == ComplianceStateDeleted {
		return
	}
	instance := &ruleInstance{entry: entry, rule: rule}
	for _, order := range target.orders {
		instance.rule.Add(order)
	}
	target.rules = append(target.rules, instance)
}

func (s *ComplianceRuleSet) report(entry ComplianceRuleEntry, order types.OrderInfo, err error) {
	s.reporter.Report(ComplianceReport{
		SubmissionAccount: order.Fields.Account,
		OrderId:           order.OrderId,
		RuleId:            entry.ID,
		SchemaName:        entry.Schema.Name,
		Message:           err.Error(),
	})
}

// Submit evaluates an order against the account's own rules, then each
// ancestor group's rules in discovery order. A violation from an ACTIVE
// rule stops that entry's remaining rules immediately; ancestors after the
// violating entry still record the order but skip rule evaluation. The
// first captured violation is returned once every entry has been walked.
func (s *ComplianceRuleSet) Submit(account string, order types.OrderInfo) error {
	entry := s.entryFor(account)
	var violation error
	entry.mu.Lock()
	entry.orders = append(entry.orders, order)
	for _, r := range entry.rules {
		if r.entry.State == ComplianceStateDisabled {
			continue
		}
		if err := r.rule.Submit(order); err != nil {
			if cce, ok := err.(*ComplianceCheckError); ok {
				s.report(r.entry, order, cce)
				if r.entry.State == ComplianceStateActive {
					violation = err
					break
				}
				continue
			}
			entry.mu.Unlock()
			return err
		}
	}
	entry.mu.Unlock()

	for _, parentName := range entry.parents {
		parent := s.entryFor(parentName)
		parent.mu.Lock()
		parent.orders = append(parent.orders, order)
		if violation != nil {
			parent.mu.Unlock()
			continue
		}
		for _, r := range parent.rules {
			if r.entry.State == ComplianceStateDisabled {
				continue
			}
			if err := r.rule.Submit(order); err != nil {
				if cce, ok := err.(*ComplianceCheckError); ok {
					s.report(r.entry, order, cce)
					if r.entry.State == ComplianceStateActive {
						violation = err
						break
					}
					continue
				}
				parent.mu.Unlock()
				return err
			}
		}
		parent.mu.Unlock()
	}
	return violation
}

// Cancel evaluates a cancel against the account's own rules, then each
// ancestor's rules, failing fast: the first ACTIVE rule violation is
// returned immediately rather than deferred to the end of the walk. Unlike
// Submit, Cancel does not add the order to either entry's order list.
func (s *ComplianceRuleSet) Cancel(account string, order types.OrderInfo) error {
	entry := s.entryFor(account)
	if err := cancelAgainst(entry, order, s.report); err != nil {
		return err
	}
	for _, parentName := range entry.parents {
		parent := s.entryFor(parentName)
		if err := cancelAgainst(parent, order, s.report); err != nil {
			return err
		}
	}
	return nil
}

func cancelAgainst(entry *accountEntry, order types.OrderInfo, report func(ComplianceRuleEntry, types.OrderInfo, error)) error {
	entry.mu.Lock()
	defer entry.mu.Unlock()
	for _, r := range entry.rules {
		if r.entry.State == ComplianceStateDisabled {
			continue
		}
		if err := r.rule.Cancel(order); err != nil {
			if cce, ok := err.(*ComplianceCheckError); ok {
				report(r.entry, order, cce)
				if r.entry.State == ComplianceStateActive {
					return err
				}
				continue
			}
			return err
		}
	}
	return nil
}

// Add records an order as already accepted against the account's own
// entry and every ancestor, unconditionally invoking every rule's Add
// regardless of its state. Add raises no violations.
func (s *ComplianceRuleSet) Add(account string, order types.OrderInfo) {
	entry := s.entryFor(account)
	entry.mu.Lock()
	entry.orders = append(entry.orders, order)
	for _, r := range entry.rules {
		r.rule.Add(order)
	}
	entry.mu.Unlock()

	for _, parentName := range entry.parents {
		parent := s.entryFor(parentName)
		parent.mu.Lock()
		parent.orders = append(parent.orders, order)
		for _, r := range parent.rules {
			r.rule.Add(order)
		}
		parent.mu.Unlock()
	}
}
