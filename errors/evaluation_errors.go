// errors/evaluation_errors.go
package errors

import "errors"

var (
	ErrReportNotFound           = errors.New("compliance report not found")
	ErrSnapshotUnavailable      = errors.New("environment snapshot unavailable")
	ErrInvalidEvaluationRequest = errors.New("invalid evaluation request")
)
