// model/report.go
package model

import (
	"time"
)

// ReportSummary rolls an evaluation run up across standards.
type ReportSummary struct {
	TotalControls    int                 `json:"total_controls"`
	TotalRules       int                 `json:"total_rules"`
	Passed           int                 `json:"passed"`
	Failed           int                 `json:"failed"`
	Unknown          int                 `json:"unknown"`
	StandardsCovered []string            `json:"standards_covered"`
	ControlsCovered  map[string][]string `json:"controls_covered"` // standard ID -> control IDs
}

// ComplianceReport is the output of one evaluation run. Reports are
// immutable once assembled; round-tripping one through JSON yields an
// equal report.
type ComplianceReport struct {
	ID          string                      `json:"id"`
	GeneratedAt time.Time                   `json:"generated_at"`
	Snapshot    Snapshot                    `json:"snapshot"`
	Results     map[string]EvaluationResult `json:"results"` // keyed by control ID
	Summary     ReportSummary               `json:"summary"`
}

// GapAnalysis reports which of a standard's required controls are covered
// by at least one registered rule.
type GapAnalysis struct {
	StandardID          string   `json:"standard_id"`
	RequiredControls    []string `json:"required_controls"`
	ImplementedControls []string `json:"implemented_controls"`
	MissingControls     []string `json:"missing_controls"`
	CoveragePercent     float64  `json:"coverage_percent"`
}
