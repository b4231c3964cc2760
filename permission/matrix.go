// permission/matrix.go
package permission

import "github.com/cardlyhq/cardly/model"

// roleDefaults is the role-default permission matrix. Per-team
// overrides on a membership win over these values; unknown
// (role, permission) combinations resolve to false.
var roleDefaults = map[model.TeamRole]map[model.Permission]bool{
	model.RoleOwner: {
		model.PermInviteTeamMembers:  true,
		model.PermRemoveTeamMembers:  true,
		model.PermUpdateMemberRoles:  true,
		model.PermManageTeamSettings: true,
		model.PermViewTeamAnalytics:  true,
		model.PermShareContacts:      true,
		model.PermExportContacts:     true,
		model.PermViewAuditLogs:      true,
	},
	model.RoleManager: {
		model.PermInviteTeamMembers:  true,
		model.PermRemoveTeamMembers:  true,
		model.PermUpdateMemberRoles:  true,
		model.PermManageTeamSettings: true,
		model.PermViewTeamAnalytics:  true,
		model.PermShareContacts:      true,
		model.PermExportContacts:     true,
		model.PermViewAuditLogs:      false,
	},
	model.RoleTeamLead: {
		model.PermInviteTeamMembers:  true,
		model.PermRemoveTeamMembers:  false,
		model.PermUpdateMemberRoles:  false,
		model.PermManageTeamSettings: false,
		model.PermViewTeamAnalytics:  true,
		model.PermShareContacts:      true,
		model.PermExportContacts:     false,
		model.PermViewAuditLogs:      false,
	},
	model.RoleEmployee: {
		model.PermInviteTeamMembers:  false,
		model.PermRemoveTeamMembers:  false,
		model.PermUpdateMemberRoles:  false,
		model.PermManageTeamSettings: false,
		model.PermViewTeamAnalytics:  false,
		model.PermShareContacts:      true,
		model.PermExportContacts:     false,
		model.PermViewAuditLogs:      false,
	},
}

// DefaultFor returns the matrix value for (role, permission).
func DefaultFor(role model.TeamRole, perm model.Permission) bool {
	return roleDefaults[role][perm]
}

// actionPermissions maps a team action to the permission it requires.
var actionPermissions = map[model.TeamAction]model.Permission{
	model.ActionInviteMember:   model.PermInviteTeamMembers,
	model.ActionRemoveMember:   model.PermRemoveTeamMembers,
	model.ActionUpdateRole:     model.PermUpdateMemberRoles,
	model.ActionManageSettings: model.PermManageTeamSettings,
	model.ActionViewAnalytics:  model.PermViewTeamAnalytics,
}
