// errors/rule_errors.go
package errors

import "errors"

var (
	ErrRuleNotFound    = errors.New("policy rule not found")
	ErrRuleConflict    = errors.New("policy rule already exists")
	ErrInvalidRuleData = errors.New("invalid policy rule data")

	// ErrRuleExecution marks a predicate fault during evaluation. It is
	// reported per-rule and degrades that rule's outcome to unknown; it
	// never aborts a batch.
	ErrRuleExecution = errors.New("rule execution failed")
)
