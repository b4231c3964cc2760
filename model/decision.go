package model

// Operation is an enterprise-facing operation validated by the
// subscription gate before it may proceed.
type Operation string

const (
	OpCreateTeam        Operation = "create_team"
	OpInviteMember      Operation = "invite_member"
	OpRemoveMember      Operation = "remove_member"
	OpUpdateMemberRole  Operation = "update_member_role"
	OpShareContacts     Operation = "share_contacts"
	OpBulkShareContacts Operation = "bulk_share_contacts"
	OpViewAuditLogs     Operation = "view_audit_logs"
)

// DecisionCode classifies why an operation was allowed or denied.
type DecisionCode string

const (
	CodeAllowed              DecisionCode = "ALLOWED"
	CodeSubscriptionRequired DecisionCode = "SUBSCRIPTION_REQUIRED"
	CodeTeamLimitReached     DecisionCode = "TEAM_LIMIT_REACHED"
	CodeMemberLimitReached   DecisionCode = "MEMBER_LIMIT_REACHED"
	CodeFeatureNotAvailable  DecisionCode = "FEATURE_NOT_AVAILABLE"
	CodeInsufficientRole     DecisionCode = "INSUFFICIENT_ROLE"
	CodeSelfAction           DecisionCode = "SELF_ACTION"
	CodeUserNotFound         DecisionCode = "USER_NOT_FOUND"
)

// OperationDecision is the structured outcome of a gate or permission
// evaluation. Produced fresh per evaluation and never mutated after
// return.
type OperationDecision struct {
	Allowed         bool              `json:"allowed"`
	Reason          string            `json:"reason,omitempty"`
	Code            DecisionCode      `json:"code"`
	UpgradeRequired bool              `json:"upgrade_required,omitempty"`
	LimitReached    bool              `json:"limit_reached,omitempty"`
	RequiredLevel   SubscriptionLevel `json:"required_level,omitempty"`
}

// Allow returns an allowed decision.
func Allow() OperationDecision {
	return OperationDecision{Allowed: true, Code: CodeAllowed}
}

// Deny returns a denied decision with a code and human-readable reason.
func Deny(code DecisionCode, reason string) OperationDecision {
	return OperationDecision{Allowed: false, Code: code, Reason: reason}
}

// OperationContext carries the caller-supplied facts a validator needs
// beyond the user record itself (current counts, targets).
type OperationContext struct {
	TeamID          string `json:"team_id,omitempty"`
	TargetUserID    string `json:"target_user_id,omitempty"`
	CurrentTeams    int    `json:"current_teams,omitempty"`
	CurrentTeamSize int    `json:"current_team_size,omitempty"`
	NewMembers      int    `json:"new_members,omitempty"`
}

// FieldWrite is one field mutation inside a transactional update
// supplied to the DataProvider. Writes that must be atomic across
// fields are passed as a single call, never composed from independent
// writes.
type FieldWrite struct {
	Collection string      `json:"collection"`
	DocumentID string      `json:"document_id"`
	Field      string      `json:"field"`
	Value      interface{} `json:"value"`
}
