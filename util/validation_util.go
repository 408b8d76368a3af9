// util/validation_util.go

package util

import (
	"fmt"

	"github.com/conformd/conformd/model"
)

var validSeverities = map[string]bool{
	"":         true, // optional on rules
	"low":      true,
	"medium":   true,
	"high":     true,
	"critical": true,
}

type ValidationUtil struct{}

func NewValidationUtil() *ValidationUtil {
	return &ValidationUtil{}
}

func (v *ValidationUtil) ValidateStandard(standard model.Standard) error {
	if standard.ID == "" {
		return fmt.Errorf("standard ID cannot be empty")
	}
	if standard.Name == "" {
		return fmt.Errorf("standard name cannot be empty")
	}
	if standard.Version == "" {
		return fmt.Errorf("standard version cannot be empty")
	}
	seen := make(map[string]bool, len(standard.Controls))
	for _, control := range standard.Controls {
		if err := v.ValidateControl(control); err != nil {
			return err
		}
		if seen[control.ID] {
			return fmt.Errorf("standard lists control %s more than once", control.ID)
		}
		seen[control.ID] = true
	}
	return nil
}

func (v *ValidationUtil) ValidateControl(control model.Control) error {
	if control.ID == "" {
		return fmt.Errorf("control ID cannot be empty")
	}
	if control.Title == "" {
		return fmt.Errorf("control title cannot be empty")
	}
	if !validSeverities[control.Severity] {
		return fmt.Errorf("control severity %q is not recognized", control.Severity)
	}
	return nil
}

func (v *ValidationUtil) ValidateRule(rule model.PolicyRule) error {
	if rule.Name == "" {
		return fmt.Errorf("rule name cannot be empty")
	}
	if rule.Expression == "" {
		return fmt.Errorf("rule expression cannot be empty")
	}
	if len(rule.Controls) == 0 {
		return fmt.Errorf("rule must satisfy at least one control")
	}
	if !validSeverities[rule.Severity] {
		return fmt.Errorf("rule severity %q is not recognized", rule.Severity)
	}
	return nil
}

func (v *ValidationUtil) ValidateEvaluationRequest(request model.EvaluationRequest) error {
	if len(request.Identifiers) == 0 {
		return fmt.Errorf("evaluation request must list at least one identifier")
	}
	for _, id := range request.Identifiers {
		if id == "" {
			return fmt.Errorf("evaluation request contains an empty identifier")
		}
	}
	return nil
}
