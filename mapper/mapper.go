// mapper/mapper.go
package mapper

import (
	"sort"
	"sync"

	conformd_errors "github.com/conformd/conformd/errors"
	"github.com/conformd/conformd/model"
	"github.com/conformd/conformd/registry"
)

// Mapper resolves control identifiers to the policy rules that satisfy
// them. Every control a rule references must already exist in the
// registry; AddRule enforces that invariant at registration time, so
// Resolve never hands back a rule for an identifier the registry does
// not know.
type Mapper struct {
	registry  *registry.Registry
	mu        sync.RWMutex
	rules     map[string]model.PolicyRule
	byControl map[string][]string // control ID -> sorted rule IDs
}

func New(reg *registry.Registry) *Mapper {
	return &Mapper{
		registry:  reg,
		rules:     make(map[string]model.PolicyRule),
		byControl: make(map[string][]string),
	}
}

// AddRule registers a rule and indexes it under each control it
// satisfies. Fails with ErrRuleConflict on a duplicate rule ID and with
// ErrUnknownIdentifier if any referenced control is not registered.
func (m *Mapper) AddRule(rule model.PolicyRule) error {
	for _, controlID := range rule.Controls {
		if !m.registry.HasControl(controlID) {
			return conformd_errors.ErrUnknownIdentifier
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.rules[rule.ID]; exists {
		return conformd_errors.ErrRuleConflict
	}

	m.indexLocked(rule)
	return nil
}

// RemoveRule drops a rule from the index.
func (m *Mapper) RemoveRule(ruleID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rule, exists := m.rules[ruleID]
	if !exists {
		return conformd_errors.ErrRuleNotFound
	}

	m.unindexLocked(rule)
	return nil
}

// ReplaceRule swaps an existing revision of the rule for the new one.
// Validation runs before the old revision is touched: a replacement that
// references an unknown control fails and leaves the current revision
// indexed.
func (m *Mapper) ReplaceRule(rule model.PolicyRule) error {
	for _, controlID := range rule.Controls {
		if !m.registry.HasControl(controlID) {
			return conformd_errors.ErrUnknownIdentifier
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	old, exists := m.rules[rule.ID]
	if !exists {
		return conformd_errors.ErrRuleNotFound
	}

	m.unindexLocked(old)
	m.indexLocked(rule)
	return nil
}

func (m *Mapper) indexLocked(rule model.PolicyRule) {
	m.rules[rule.ID] = rule
	for _, controlID := range rule.Controls {
		ids := append(m.byControl[controlID], rule.ID)
		sort.Strings(ids)
		m.byControl[controlID] = ids
	}
}

func (m *Mapper) unindexLocked(rule model.PolicyRule) {
	delete(m.rules, rule.ID)
	for _, controlID := range rule.Controls {
		ids := m.byControl[controlID]
		for i, id := range ids {
			if id == rule.ID {
				m.byControl[controlID] = append(ids[:i], ids[i+1:]...)
				break
			}
		}
		if len(m.byControl[controlID]) == 0 {
			delete(m.byControl, controlID)
		}
	}
}

// Rule returns a registered rule by ID.
func (m *Mapper) Rule(ruleID string) (model.PolicyRule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rule, exists := m.rules[ruleID]
	if !exists {
		return model.PolicyRule{}, conformd_errors.ErrRuleNotFound
	}
	return rule, nil
}

// Resolve maps each requested identifier to the rules that satisfy it.
// Identifiers the registry does not know are reported per-item in the
// returned error map; one bad identifier never aborts the batch. An
// identifier that is registered but has no rules maps to an empty slice,
// which the evaluator aggregates to unknown. Resolution is deterministic:
// rules per control come back sorted by rule ID.
func (m *Mapper) Resolve(identifiers []string) (map[string][]model.PolicyRule, map[string]error) {
	mapping := make(map[string][]model.PolicyRule, len(identifiers))
	failures := make(map[string]error)

	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, controlID := range identifiers {
		if !m.registry.HasControl(controlID) {
			failures[controlID] = conformd_errors.ErrUnknownIdentifier
			continue
		}

		ruleIDs := m.byControl[controlID]
		rules := make([]model.PolicyRule, 0, len(ruleIDs))
		for _, ruleID := range ruleIDs {
			if rule := m.rules[ruleID]; rule.Active {
				rules = append(rules, rule)
			}
		}
		mapping[controlID] = rules
	}

	return mapping, failures
}

// ImplementedControls returns which of the given identifiers have at
// least one active rule bound to them. Used for gap analysis.
func (m *Mapper) ImplementedControls(identifiers []string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var implemented []string
	for _, controlID := range identifiers {
		for _, ruleID := range m.byControl[controlID] {
			if m.rules[ruleID].Active {
				implemented = append(implemented, controlID)
				break
			}
		}
	}
	sort.Strings(implemented)
	return implemented
}

// Rules returns all registered rules sorted by ID.
func (m *Mapper) Rules() []model.PolicyRule {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rules := make([]model.PolicyRule, 0, len(m.rules))
	for _, rule := range m.rules {
		rules = append(rules, rule)
	}
	sort.Slice(rules, func(i, j int) bool { return rules[i].ID < rules[j].ID })
	return rules
}
