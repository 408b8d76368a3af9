// model/rule.go
package model

import (
	"time"
)

// PolicyRule is an automated check bound to one or more control
// identifiers. Expression is a CEL predicate over the environment
// snapshot, bound as the variable "env"; it must evaluate to a boolean.
// Rules are immutable after registration: updates create a new revision.
type PolicyRule struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Controls    []string  `json:"controls"` // control IDs this rule satisfies
	Expression  string    `json:"expression"`
	Severity    string    `json:"severity,omitempty"`
	Active      bool      `json:"active"`
	Revision    int       `json:"revision"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type RuleSearchCriteria struct {
	Name      string
	ControlID string
	Active    *bool
	Limit     int
}
