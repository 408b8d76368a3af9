// model/evaluation.go
package model

import (
	"time"
)

// Status is the outcome of a control or rule evaluation.
type Status string

const (
	StatusPass    Status = "pass"
	StatusFail    Status = "fail"
	StatusUnknown Status = "unknown"
)

// EvaluationRequest is the caller-supplied input: an ordered list of
// control identifiers to evaluate. The same shape is accepted as a JSON
// body and as a YAML profile file.
type EvaluationRequest struct {
	Identifiers []string               `json:"identifiers" yaml:"identifiers" binding:"required"`
	Attributes  map[string]interface{} `json:"attributes,omitempty" yaml:"attributes,omitempty"`
}

// RuleOutcome is the result of running a single rule's predicate.
// A predicate fault degrades the outcome to unknown, never to an error.
type RuleOutcome struct {
	RuleID   string        `json:"rule_id"`
	Status   Status        `json:"status"`
	Reason   string        `json:"reason,omitempty"`
	Duration time.Duration `json:"duration_ns,omitempty"`
}

// EvaluationResult is the aggregated per-control outcome. If Status is
// not unknown, RuleIDs carries at least one contributing rule.
// Results are created fresh per evaluation run and never mutated after.
type EvaluationResult struct {
	ControlID string   `json:"control_id"`
	Status    Status   `json:"status"`
	RuleIDs   []string `json:"rule_ids,omitempty"`
	Reasons   []string `json:"reasons,omitempty"`
}

// Snapshot is an immutable view of the target environment at a point in
// time. Rule predicates read it; nothing writes it after capture.
type Snapshot struct {
	Attributes map[string]interface{} `json:"attributes"`
	TakenAt    time.Time              `json:"taken_at"`
	Source     string                 `json:"source,omitempty"`
}
