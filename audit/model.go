// audit/model.go
package audit

import (
	"encoding/json"
	"time"
)

type Entry struct {
	Timestamp     time.Time       `json:"timestamp"`
	ActorID       string          `json:"actor_id"`
	Action        string          `json:"action"` // e.g. "evaluation.run", "standard.created", "rule.updated"
	TargetID      string          `json:"target_id"`
	ReportID      string          `json:"report_id,omitempty"`
	ControlCount  int             `json:"control_count,omitempty"`
	FailedCount   int             `json:"failed_count,omitempty"`
	ChangeDetails json.RawMessage `json:"change_details,omitempty"`
}
