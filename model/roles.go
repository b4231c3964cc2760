package model

// TeamRole is the closed set of roles a user can hold within a team.
// The hierarchy is total and strict: owner > manager > team_lead > employee.
type TeamRole string

const (
	RoleOwner    TeamRole = "owner"
	RoleManager  TeamRole = "manager"
	RoleTeamLead TeamRole = "team_lead"
	RoleEmployee TeamRole = "employee"
)

var roleRanks = map[TeamRole]int{
	RoleOwner:    4,
	RoleManager:  3,
	RoleTeamLead: 2,
	RoleEmployee: 1,
}

// Rank returns the position of the role in the hierarchy. Unknown roles
// rank below employee so they never gain access by accident.
func (r TeamRole) Rank() int {
	return roleRanks[r]
}

// Valid reports whether r is one of the four known roles.
func (r TeamRole) Valid() bool {
	_, ok := roleRanks[r]
	return ok
}

// ParseTeamRole maps a raw record value to a TeamRole, defaulting to
// employee for anything unrecognized.
func ParseTeamRole(s string) TeamRole {
	role := TeamRole(s)
	if !role.Valid() {
		return RoleEmployee
	}
	return role
}

// AllTeamRoles lists the roles from highest to lowest rank.
func AllTeamRoles() []TeamRole {
	return []TeamRole{RoleOwner, RoleManager, RoleTeamLead, RoleEmployee}
}

// Permission is a named capability checked against the role-default
// matrix and per-team overrides.
type Permission string

const (
	PermInviteTeamMembers  Permission = "CAN_INVITE_TEAM_MEMBERS"
	PermRemoveTeamMembers  Permission = "CAN_REMOVE_TEAM_MEMBERS"
	PermUpdateMemberRoles  Permission = "CAN_UPDATE_MEMBER_ROLES"
	PermManageTeamSettings Permission = "CAN_MANAGE_TEAM_SETTINGS"
	PermViewTeamAnalytics  Permission = "CAN_VIEW_TEAM_ANALYTICS"
	PermShareContacts      Permission = "CAN_SHARE_CONTACTS"
	PermExportContacts     Permission = "CAN_EXPORT_CONTACTS"
	PermViewAuditLogs      Permission = "CAN_VIEW_AUDIT_LOGS"
)

// TeamAction is a mutating or sensitive action taken against a team,
// validated through PermissionResolver.ValidateTeamAction.
type TeamAction string

const (
	ActionInviteMember   TeamAction = "invite_member"
	ActionRemoveMember   TeamAction = "remove_member"
	ActionUpdateRole     TeamAction = "update_role"
	ActionManageSettings TeamAction = "manage_settings"
	ActionViewAnalytics  TeamAction = "view_analytics"
)
