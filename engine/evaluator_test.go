// engine/evaluator_test.go
package engine_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conformd/conformd/engine"
	conformd_errors "github.com/conformd/conformd/errors"
	logger "github.com/conformd/conformd/logging"
	"github.com/conformd/conformd/model"
)

func newEvaluator(t *testing.T, workers int, ttl time.Duration) *engine.Evaluator {
	t.Helper()
	logger.InitLogger(t.TempDir())
	e, err := engine.NewEvaluator(workers, ttl)
	require.NoError(t, err)
	return e
}

func rule(id, expression string) model.PolicyRule {
	return model.PolicyRule{
		ID:         id,
		Name:       id,
		Expression: expression,
		Active:     true,
	}
}

func snapshotWith(attrs map[string]interface{}) model.Snapshot {
	return model.Snapshot{Attributes: attrs, TakenAt: time.Now(), Source: "static"}
}

func TestEvaluate_PassAndFail(t *testing.T) {
	e := newEvaluator(t, 4, 0)

	mapping := map[string][]model.PolicyRule{
		"CIS-AWS-1.4":      {rule("rule-root-mfa", "env.root_mfa_enabled == true")},
		"NIST-800-53-AC-3": {rule("rule-access-enforcement", "env.access_enforcement == true")},
	}
	snap := snapshotWith(map[string]interface{}{
		"root_mfa_enabled":   true,
		"access_enforcement": false,
	})

	results, err := e.Evaluate(context.Background(), mapping, snap)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, model.StatusPass, results["CIS-AWS-1.4"].Status)
	assert.Equal(t, []string{"rule-root-mfa"}, results["CIS-AWS-1.4"].RuleIDs)

	assert.Equal(t, model.StatusFail, results["NIST-800-53-AC-3"].Status)
	assert.NotEmpty(t, results["NIST-800-53-AC-3"].Reasons)
}

func TestEvaluate_MissingAttributeIsUnknown(t *testing.T) {
	e := newEvaluator(t, 4, 0)

	mapping := map[string][]model.PolicyRule{
		"CIS-AWS-1.4": {rule("rule-root-mfa", "env.root_mfa_enabled == true")},
		"CIS-AWS-2.1": {rule("rule-cloudtrail", "env.cloudtrail_enabled == true")},
	}
	// cloudtrail_enabled is absent from the snapshot.
	snap := snapshotWith(map[string]interface{}{"root_mfa_enabled": true})

	results, err := e.Evaluate(context.Background(), mapping, snap)
	require.NoError(t, err)

	// The faulting rule degrades to unknown; its sibling is unaffected.
	assert.Equal(t, model.StatusUnknown, results["CIS-AWS-2.1"].Status)
	require.NotEmpty(t, results["CIS-AWS-2.1"].Reasons)
	assert.Contains(t, results["CIS-AWS-2.1"].Reasons[0], conformd_errors.ErrRuleExecution.Error())
	assert.Equal(t, model.StatusPass, results["CIS-AWS-1.4"].Status)
}

func TestEvaluate_InvalidExpressionIsUnknown(t *testing.T) {
	e := newEvaluator(t, 4, 0)

	mapping := map[string][]model.PolicyRule{
		"CIS-AWS-1.4": {rule("rule-broken", "this is not ((valid")},
	}

	results, err := e.Evaluate(context.Background(), mapping, snapshotWith(nil))
	require.NoError(t, err)
	assert.Equal(t, model.StatusUnknown, results["CIS-AWS-1.4"].Status)
}

func TestEvaluate_NonBooleanPredicateIsUnknown(t *testing.T) {
	e := newEvaluator(t, 4, 0)

	mapping := map[string][]model.PolicyRule{
		"CIS-AWS-1.4": {rule("rule-non-bool", "env.instance_count")},
	}
	snap := snapshotWith(map[string]interface{}{"instance_count": 12})

	results, err := e.Evaluate(context.Background(), mapping, snap)
	require.NoError(t, err)
	assert.Equal(t, model.StatusUnknown, results["CIS-AWS-1.4"].Status)
}

func TestEvaluate_ControlWithNoRulesIsUnknown(t *testing.T) {
	e := newEvaluator(t, 4, 0)

	mapping := map[string][]model.PolicyRule{
		"CIS-AWS-2.1": {},
	}

	results, err := e.Evaluate(context.Background(), mapping, snapshotWith(nil))
	require.NoError(t, err)
	assert.Equal(t, model.StatusUnknown, results["CIS-AWS-2.1"].Status)
	assert.Equal(t, []string{"no policy rules registered for control"}, results["CIS-AWS-2.1"].Reasons)
}

func TestEvaluate_CancelledContextIsUnknown(t *testing.T) {
	e := newEvaluator(t, 4, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	mapping := map[string][]model.PolicyRule{
		"CIS-AWS-1.4": {rule("rule-root-mfa", "true")},
	}

	results, err := e.Evaluate(ctx, mapping, snapshotWith(nil))
	require.NoError(t, err)
	assert.Equal(t, model.StatusUnknown, results["CIS-AWS-1.4"].Status)
}

func TestEvaluate_DecisionCache(t *testing.T) {
	e := newEvaluator(t, 4, time.Minute)

	mapping := map[string][]model.PolicyRule{
		"CIS-AWS-1.4": {rule("rule-root-mfa", "env.root_mfa_enabled == true")},
	}
	snap := snapshotWith(map[string]interface{}{"root_mfa_enabled": true})

	first, err := e.Evaluate(context.Background(), mapping, snap)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPass, first["CIS-AWS-1.4"].Status)

	// Same controls, rule revisions and attributes hit the cache: the
	// predecessor's verdict comes back even though the expression behind
	// it changed without a revision bump.
	mapping["CIS-AWS-1.4"][0].Expression = "false"
	second, err := e.Evaluate(context.Background(), mapping, snap)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPass, second["CIS-AWS-1.4"].Status)

	// A new revision misses and re-evaluates.
	mapping["CIS-AWS-1.4"][0].Revision++
	third, err := e.Evaluate(context.Background(), mapping, snap)
	require.NoError(t, err)
	assert.Equal(t, model.StatusFail, third["CIS-AWS-1.4"].Status)

	// Different attributes miss it too.
	mapping["CIS-AWS-1.4"][0].Expression = "env.root_mfa_enabled == true"
	mapping["CIS-AWS-1.4"][0].Revision++
	other := snapshotWith(map[string]interface{}{"root_mfa_enabled": false})
	fourth, err := e.Evaluate(context.Background(), mapping, other)
	require.NoError(t, err)
	assert.Equal(t, model.StatusFail, fourth["CIS-AWS-1.4"].Status)
}

func TestEvaluate_CachedResultsAreIsolated(t *testing.T) {
	e := newEvaluator(t, 4, time.Minute)

	mapping := map[string][]model.PolicyRule{
		"CIS-AWS-1.4": {rule("rule-root-mfa", "env.root_mfa_enabled == true")},
	}
	snap := snapshotWith(map[string]interface{}{"root_mfa_enabled": true})

	first, err := e.Evaluate(context.Background(), mapping, snap)
	require.NoError(t, err)

	// Callers extend their result map with per-request entries, the way
	// unresolved identifiers are merged in. That must not bleed into the
	// cached copy served to the next request.
	first["NOT-A-CONTROL"] = model.EvaluationResult{
		ControlID: "NOT-A-CONTROL",
		Status:    model.StatusUnknown,
	}

	second, err := e.Evaluate(context.Background(), mapping, snap)
	require.NoError(t, err)
	assert.NotContains(t, second, "NOT-A-CONTROL")
	require.Len(t, second, 1)

	// Mutating a cache hit leaves later hits untouched as well.
	second["CIS-AWS-1.4"] = model.EvaluationResult{ControlID: "CIS-AWS-1.4", Status: model.StatusFail}
	third, err := e.Evaluate(context.Background(), mapping, snap)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPass, third["CIS-AWS-1.4"].Status)
}

func TestAggregate(t *testing.T) {
	passRule := rule("rule-pass", "true")
	failRule := rule("rule-fail", "false")
	unknownRule := rule("rule-unknown", "env.missing == true")

	mapping := map[string][]model.PolicyRule{
		"ctl-all-pass":     {passRule},
		"ctl-any-fail":     {passRule, failRule, unknownRule},
		"ctl-pass-unknown": {passRule, unknownRule},
		"ctl-empty":        {},
	}
	outcomes := map[string]model.RuleOutcome{
		"rule-pass":    {RuleID: "rule-pass", Status: model.StatusPass},
		"rule-fail":    {RuleID: "rule-fail", Status: model.StatusFail, Reason: "rule rule-fail did not hold"},
		"rule-unknown": {RuleID: "rule-unknown", Status: model.StatusUnknown, Reason: "rule execution failed: no such key"},
	}

	results := engine.Aggregate(mapping, outcomes)

	assert.Equal(t, model.StatusPass, results["ctl-all-pass"].Status)
	assert.Equal(t, model.StatusFail, results["ctl-any-fail"].Status)
	assert.Equal(t, model.StatusUnknown, results["ctl-pass-unknown"].Status)
	assert.Equal(t, model.StatusUnknown, results["ctl-empty"].Status)

	// Contributing rule IDs come back sorted.
	assert.Equal(t, []string{"rule-fail", "rule-pass", "rule-unknown"}, results["ctl-any-fail"].RuleIDs)
}

func TestEvaluateRules_SharedRuleRunsOnce(t *testing.T) {
	e := newEvaluator(t, 2, 0)

	shared := rule("rule-shared", "env.encrypted == true")
	mapping := map[string][]model.PolicyRule{
		"ctl-a": {shared},
		"ctl-b": {shared},
	}
	snap := snapshotWith(map[string]interface{}{"encrypted": true})

	results, err := e.Evaluate(context.Background(), mapping, snap)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPass, results["ctl-a"].Status)
	assert.Equal(t, model.StatusPass, results["ctl-b"].Status)
}
