// report/report_test.go
package report_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	conformd_errors "github.com/conformd/conformd/errors"
	"github.com/conformd/conformd/mapper"
	"github.com/conformd/conformd/model"
	"github.com/conformd/conformd/registry"
	"github.com/conformd/conformd/report"
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

func sampleResults() map[string]model.EvaluationResult {
	return map[string]model.EvaluationResult{
		"CIS-AWS-1.4": {
			ControlID: "CIS-AWS-1.4",
			Status:    model.StatusPass,
			RuleIDs:   []string{"rule-root-mfa"},
		},
		"NIST-800-53-AC-3": {
			ControlID: "NIST-800-53-AC-3",
			Status:    model.StatusFail,
			RuleIDs:   []string{"rule-access-enforcement"},
			Reasons:   []string{"rule rule-access-enforcement did not hold"},
		},
		"CIS-AWS-2.1": {
			ControlID: "CIS-AWS-2.1",
			Status:    model.StatusUnknown,
			Reasons:   []string{"no policy rules registered for control"},
		},
	}
}

func TestAssemble(t *testing.T) {
	builder := report.NewBuilder(seededRegistry(t))
	snap := model.Snapshot{
		Attributes: map[string]interface{}{"root_mfa_enabled": true},
		TakenAt:    time.Now(),
		Source:     "static",
	}

	rpt := builder.Assemble(snap, sampleResults())

	assert.NotEmpty(t, rpt.ID)
	assert.Equal(t, 3, rpt.Summary.TotalControls)
	assert.Equal(t, 2, rpt.Summary.TotalRules)
	assert.Equal(t, 1, rpt.Summary.Passed)
	assert.Equal(t, 1, rpt.Summary.Failed)
	assert.Equal(t, 1, rpt.Summary.Unknown)

	assert.Equal(t, []string{"CIS-AWS", "NIST-800-53"}, rpt.Summary.StandardsCovered)
	assert.Equal(t, []string{"CIS-AWS-1.4", "CIS-AWS-2.1"}, rpt.Summary.ControlsCovered["CIS-AWS"])
	assert.Equal(t, []string{"NIST-800-53-AC-3"}, rpt.Summary.ControlsCovered["NIST-800-53"])
}

func TestAssemble_UnregisteredControlStillCounted(t *testing.T) {
	builder := report.NewBuilder(seededRegistry(t))

	results := map[string]model.EvaluationResult{
		"NOPE-1": {
			ControlID: "NOPE-1",
			Status:    model.StatusUnknown,
			Reasons:   []string{"unknown control identifier"},
		},
	}
	rpt := builder.Assemble(model.Snapshot{}, results)

	assert.Equal(t, 1, rpt.Summary.TotalControls)
	assert.Equal(t, 1, rpt.Summary.Unknown)
	// An identifier the registry cannot attribute appears in Results but
	// under no standard.
	assert.Empty(t, rpt.Summary.StandardsCovered)
}

func TestReportJSONRoundTrip(t *testing.T) {
	builder := report.NewBuilder(seededRegistry(t))
	snap := model.Snapshot{
		Attributes: map[string]interface{}{"source_region": "us-east-1"},
		TakenAt:    time.Now().UTC(),
		Source:     "static",
	}
	rpt := builder.Assemble(snap, sampleResults())

	data, err := json.Marshal(rpt)
	require.NoError(t, err)

	var decoded model.ComplianceReport
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, rpt.ID, decoded.ID)
	assert.True(t, rpt.GeneratedAt.Equal(decoded.GeneratedAt))
	assert.True(t, rpt.Snapshot.TakenAt.Equal(decoded.Snapshot.TakenAt))
	assert.Equal(t, rpt.Snapshot.Attributes, decoded.Snapshot.Attributes)
	assert.Equal(t, rpt.Results, decoded.Results)
	assert.Equal(t, rpt.Summary, decoded.Summary)
}

func TestGap(t *testing.T) {
	reg := seededRegistry(t)
	builder := report.NewBuilder(reg)
	m := mapper.New(reg)
	require.NoError(t, m.AddRule(model.PolicyRule{
		ID: "rule-root-mfa", Name: "rule-root-mfa",
		Controls: []string{"CIS-AWS-1.4"}, Expression: "true", Active: true,
	}))

	gap, err := builder.Gap(m, "CIS-AWS", nil)
	require.NoError(t, err)

	assert.Equal(t, "CIS-AWS", gap.StandardID)
	assert.Equal(t, []string{"CIS-AWS-1.4", "CIS-AWS-2.1"}, gap.RequiredControls)
	assert.Equal(t, []string{"CIS-AWS-1.4"}, gap.ImplementedControls)
	assert.Equal(t, []string{"CIS-AWS-2.1"}, gap.MissingControls)
	assert.InDelta(t, 50.0, gap.CoveragePercent, 0.001)
}

func TestGap_ExplicitRequiredControls(t *testing.T) {
	reg := seededRegistry(t)
	builder := report.NewBuilder(reg)
	m := mapper.New(reg)

	gap, err := builder.Gap(m, "NIST-800-53", []string{"NIST-800-53-AC-3"})
	require.NoError(t, err)
	assert.Empty(t, gap.ImplementedControls)
	assert.Equal(t, []string{"NIST-800-53-AC-3"}, gap.MissingControls)
	assert.InDelta(t, 0.0, gap.CoveragePercent, 0.001)
}

func TestGap_UnknownStandard(t *testing.T) {
	reg := seededRegistry(t)
	builder := report.NewBuilder(reg)
	m := mapper.New(reg)

	_, err := builder.Gap(m, "PCI-DSS", nil)
	assert.ErrorIs(t, err, conformd_errors.ErrUnknownIdentifier)
}
