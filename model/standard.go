// model/standard.go
package model

import (
	"time"
)

// Standard is a named compliance framework (e.g. ISO 27001, PCI-DSS).
type Standard struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Version     string    `json:"version"` // framework version, e.g. "1.4.0"
	Description string    `json:"description"`
	Controls    []Control `json:"controls,omitempty"`
	Revision    int       `json:"revision"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Control is a single checkable requirement within a standard. Its ID is
// the canonical identifier callers evaluate against, e.g. "CIS-AWS-1.4" or
// "ISO-27001-A.9.1.2". IDs are opaque tokens and never reinterpreted.
type Control struct {
	ID          string `json:"id"`
	StandardID  string `json:"standard_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Severity    string `json:"severity"` // "low", "medium", "high", "critical"
	Section     string `json:"section,omitempty"`
	Remediation string `json:"remediation,omitempty"`
}

type StandardSearchCriteria struct {
	Name     string
	Version  string
	Severity string
	FromDate time.Time
	ToDate   time.Time
	Limit    int
}
