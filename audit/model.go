// audit/model.go
package audit

import "time"

// TopicSecurityEvent is the event-bus topic audit events travel on.
// Business logic publishes here; the Dispatcher persists asynchronously
// so a persistence outage can never bleed into an authorization
// decision.
const TopicSecurityEvent = "audit.event"

// Severity grades an audit event. The values are part of the persisted
// record shape and must not be normalized.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "critical"
)

// Event is one append-only security/audit record.
type Event struct {
	UserID       string                 `json:"user_id"`
	UserEmail    string                 `json:"user_email,omitempty"`
	Action       string                 `json:"action"`
	ResourceType string                 `json:"resource_type"`
	ResourceID   string                 `json:"resource_id"`
	Details      map[string]interface{} `json:"details,omitempty"`
	Severity     Severity               `json:"severity"`
	Timestamp    time.Time              `json:"timestamp"`
}

// Valid reports whether the event carries the minimum required fields.
func (e Event) Valid() bool {
	return e.UserID != "" && e.Action != ""
}
