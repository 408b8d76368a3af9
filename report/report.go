// report/report.go
package report

import (
	"sort"
	"time"

	"github.com/google/uuid"

	conformd_errors "github.com/conformd/conformd/errors"
	"github.com/conformd/conformd/mapper"
	"github.com/conformd/conformd/model"
	"github.com/conformd/conformd/registry"
)

// Builder assembles compliance reports and gap analyses from evaluation
// results, using the registry to attribute controls to their standards.
type Builder struct {
	registry *registry.Registry
}

func NewBuilder(reg *registry.Registry) *Builder {
	return &Builder{registry: reg}
}

// Assemble produces an immutable compliance report for one evaluation
// run. The summary counts controls by status and groups covered controls
// under their standards.
func (b *Builder) Assemble(snapshot model.Snapshot, results map[string]model.EvaluationResult) model.ComplianceReport {
	summary := model.ReportSummary{
		TotalControls:   len(results),
		ControlsCovered: make(map[string][]string),
	}

	ruleIDs := make(map[string]bool)
	for controlID, result := range results {
		for _, ruleID := range result.RuleIDs {
			ruleIDs[ruleID] = true
		}

		switch result.Status {
		case model.StatusPass:
			summary.Passed++
		case model.StatusFail:
			summary.Failed++
		default:
			summary.Unknown++
		}

		control, err := b.registry.LookupControl(controlID)
		if err != nil {
			continue
		}
		summary.ControlsCovered[control.StandardID] = append(summary.ControlsCovered[control.StandardID], controlID)
	}

	summary.TotalRules = len(ruleIDs)
	for standardID, controls := range summary.ControlsCovered {
		sort.Strings(controls)
		summary.ControlsCovered[standardID] = controls
		summary.StandardsCovered = append(summary.StandardsCovered, standardID)
	}
	sort.Strings(summary.StandardsCovered)
	if summary.StandardsCovered == nil {
		summary.StandardsCovered = []string{}
	}

	return model.ComplianceReport{
		ID:          uuid.New().String(),
		GeneratedAt: time.Now(),
		Snapshot:    snapshot,
		Results:     results,
		Summary:     summary,
	}
}

// Gap reports which of a standard's required controls have at least one
// active rule bound. With an empty required list, every control of the
// standard is required.
func (b *Builder) Gap(m *mapper.Mapper, standardID string, required []string) (model.GapAnalysis, error) {
	if _, err := b.registry.LookupStandard(standardID); err != nil {
		return model.GapAnalysis{}, conformd_errors.ErrUnknownIdentifier
	}

	if len(required) == 0 {
		controls, err := b.registry.ControlsForStandard(standardID)
		if err != nil {
			return model.GapAnalysis{}, err
		}
		for _, control := range controls {
			required = append(required, control.ID)
		}
	}

	implemented := m.ImplementedControls(required)
	implementedSet := make(map[string]bool, len(implemented))
	for _, controlID := range implemented {
		implementedSet[controlID] = true
	}

	missing := make([]string, 0)
	for _, controlID := range required {
		if !implementedSet[controlID] {
			missing = append(missing, controlID)
		}
	}
	sort.Strings(missing)

	coverage := 0.0
	if len(required) > 0 {
		coverage = float64(len(implemented)) / float64(len(required)) * 100
	}

	sorted := append([]string(nil), required...)
	sort.Strings(sorted)

	return model.GapAnalysis{
		StandardID:          standardID,
		RequiredControls:    sorted,
		ImplementedControls: implemented,
		MissingControls:     missing,
		CoveragePercent:     coverage,
	}, nil
}
