// mapper/mapper_test.go
package mapper_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	conformd_errors "github.com/conformd/conformd/errors"
	"github.com/conformd/conformd/mapper"
	"github.com/conformd/conformd/model"
	"github.com/conformd/conformd/registry"
)

func seededRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg := registry.New()
	require.NoError(t, reg.RegisterStandard(model.Standard{
		ID: "CIS-AWS", Name: "CIS AWS Foundations", Version: "1.4",
		Controls: []model.Control{
			{ID: "CIS-AWS-1.4", Title: "Root account MFA"},
			{ID: "CIS-AWS-2.1", Title: "CloudTrail enabled"},
		},
	}))
	require.NoError(t, reg.RegisterStandard(model.Standard{
		ID: "NIST-800-53", Name: "NIST SP 800-53", Version: "rev5",
		Controls: []model.Control{
			{ID: "NIST-800-53-AC-3", Title: "Access Enforcement"},
		},
	}))
	return reg
}

func activeRule(id string, controls ...string) model.PolicyRule {
	return model.PolicyRule{
		ID:         id,
		Name:       id,
		Controls:   controls,
		Expression: "true",
		Active:     true,
	}
}

func TestAddRule(t *testing.T) {
	m := mapper.New(seededRegistry(t))

	assert.NoError(t, m.AddRule(activeRule("rule-mfa", "CIS-AWS-1.4")))

	rule, err := m.Rule("rule-mfa")
	assert.NoError(t, err)
	assert.Equal(t, []string{"CIS-AWS-1.4"}, rule.Controls)

	err = m.AddRule(activeRule("rule-mfa", "CIS-AWS-1.4"))
	assert.ErrorIs(t, err, conformd_errors.ErrRuleConflict)
}

func TestAddRule_UnknownControl(t *testing.T) {
	m := mapper.New(seededRegistry(t))

	err := m.AddRule(activeRule("rule-bad", "CIS-AWS-1.4", "PCI-1.1"))
	assert.ErrorIs(t, err, conformd_errors.ErrUnknownIdentifier)

	// Rejection must leave nothing behind.
	_, err = m.Rule("rule-bad")
	assert.ErrorIs(t, err, conformd_errors.ErrRuleNotFound)
}

func TestResolve(t *testing.T) {
	m := mapper.New(seededRegistry(t))
	require.NoError(t, m.AddRule(activeRule("rule-b", "CIS-AWS-1.4")))
	require.NoError(t, m.AddRule(activeRule("rule-a", "CIS-AWS-1.4", "NIST-800-53-AC-3")))

	mapping, failures := m.Resolve([]string{"CIS-AWS-1.4", "NIST-800-53-AC-3", "CIS-AWS-2.1"})
	assert.Empty(t, failures)
	assert.Len(t, mapping, 3)

	// Rules per identifier come back sorted by rule ID.
	assert.Equal(t, "rule-a", mapping["CIS-AWS-1.4"][0].ID)
	assert.Equal(t, "rule-b", mapping["CIS-AWS-1.4"][1].ID)

	// A known control with no rules maps to an empty slice, not an error.
	assert.Empty(t, mapping["CIS-AWS-2.1"])
}

func TestResolve_UnknownIdentifierIsPerItem(t *testing.T) {
	m := mapper.New(seededRegistry(t))
	require.NoError(t, m.AddRule(activeRule("rule-a", "CIS-AWS-1.4")))

	mapping, failures := m.Resolve([]string{"CIS-AWS-1.4", "NOPE-1"})

	// The bad identifier is reported without aborting the batch.
	assert.Len(t, mapping, 1)
	assert.Len(t, mapping["CIS-AWS-1.4"], 1)
	assert.ErrorIs(t, failures["NOPE-1"], conformd_errors.ErrUnknownIdentifier)
}

func TestResolve_EmptyInput(t *testing.T) {
	m := mapper.New(seededRegistry(t))

	mapping, failures := m.Resolve(nil)
	assert.Empty(t, mapping)
	assert.Empty(t, failures)
}

func TestResolve_SkipsInactiveRules(t *testing.T) {
	m := mapper.New(seededRegistry(t))

	inactive := activeRule("rule-off", "CIS-AWS-1.4")
	inactive.Active = false
	require.NoError(t, m.AddRule(inactive))

	mapping, failures := m.Resolve([]string{"CIS-AWS-1.4"})
	assert.Empty(t, failures)
	assert.Empty(t, mapping["CIS-AWS-1.4"])
}

func TestRemoveRule(t *testing.T) {
	m := mapper.New(seededRegistry(t))
	require.NoError(t, m.AddRule(activeRule("rule-a", "CIS-AWS-1.4")))

	assert.NoError(t, m.RemoveRule("rule-a"))
	assert.ErrorIs(t, m.RemoveRule("rule-a"), conformd_errors.ErrRuleNotFound)

	mapping, _ := m.Resolve([]string{"CIS-AWS-1.4"})
	assert.Empty(t, mapping["CIS-AWS-1.4"])
}

func TestReplaceRule(t *testing.T) {
	m := mapper.New(seededRegistry(t))
	require.NoError(t, m.AddRule(activeRule("rule-a", "CIS-AWS-1.4")))

	replacement := activeRule("rule-a", "NIST-800-53-AC-3")
	require.NoError(t, m.ReplaceRule(replacement))

	mapping, _ := m.Resolve([]string{"CIS-AWS-1.4", "NIST-800-53-AC-3"})
	assert.Empty(t, mapping["CIS-AWS-1.4"])
	assert.Len(t, mapping["NIST-800-53-AC-3"], 1)
}

func TestReplaceRule_UnknownControlKeepsExisting(t *testing.T) {
	m := mapper.New(seededRegistry(t))
	require.NoError(t, m.AddRule(activeRule("rule-a", "CIS-AWS-1.4")))

	replacement := activeRule("rule-a", "PCI-1.1")
	err := m.ReplaceRule(replacement)
	assert.ErrorIs(t, err, conformd_errors.ErrUnknownIdentifier)

	// The rejected replacement must not take the current revision with it.
	rule, err := m.Rule("rule-a")
	require.NoError(t, err)
	assert.Equal(t, []string{"CIS-AWS-1.4"}, rule.Controls)

	mapping, _ := m.Resolve([]string{"CIS-AWS-1.4"})
	assert.Len(t, mapping["CIS-AWS-1.4"], 1)
}

func TestReplaceRule_NotFound(t *testing.T) {
	m := mapper.New(seededRegistry(t))

	err := m.ReplaceRule(activeRule("rule-ghost", "CIS-AWS-1.4"))
	assert.ErrorIs(t, err, conformd_errors.ErrRuleNotFound)
}

func TestImplementedControls(t *testing.T) {
	m := mapper.New(seededRegistry(t))
	require.NoError(t, m.AddRule(activeRule("rule-a", "NIST-800-53-AC-3")))

	inactive := activeRule("rule-off", "CIS-AWS-1.4")
	inactive.Active = false
	require.NoError(t, m.AddRule(inactive))

	implemented := m.ImplementedControls([]string{"CIS-AWS-1.4", "CIS-AWS-2.1", "NIST-800-53-AC-3"})
	assert.Equal(t, []string{"NIST-800-53-AC-3"}, implemented)
}

func TestRules_SortedByID(t *testing.T) {
	m := mapper.New(seededRegistry(t))
	require.NoError(t, m.AddRule(activeRule("rule-b", "CIS-AWS-1.4")))
	require.NoError(t, m.AddRule(activeRule("rule-a", "CIS-AWS-2.1")))

	rules := m.Rules()
	require.Len(t, rules, 2)
	assert.Equal(t, "rule-a", rules[0].ID)
	assert.Equal(t, "rule-b", rules[1].ID)
}
