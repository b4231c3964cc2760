// permission/resolver.go
package permission

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/cardlyhq/cardly/dao"
	cardly_errors "github.com/cardlyhq/cardly/errors"
	logger "github.com/cardlyhq/cardly/logging"
	"github.com/cardlyhq/cardly/model"
)

// Resolver computes effective roles and capability checks from a
// freshly fetched user record. All checks are pure functions over the
// resolved context; the resolver holds no state beyond its provider.
type Resolver struct {
	provider dao.DataProvider
}

// NewResolver creates a Resolver backed by the given DataProvider.
func NewResolver(provider dao.DataProvider) *Resolver {
	return &Resolver{provider: provider}
}

// ResolveContext fetches the user record and builds the authorization
// view. The context is built fresh on every call; callers may cache
// decisions derived from it, never the context itself.
func (r *Resolver) ResolveContext(ctx context.Context, userID string) (*model.UserContext, error) {
	if userID == "" {
		return nil, cardly_errors.NewValidation("userID is required")
	}
	record, err := r.provider.GetUserRecord(ctx, userID)
	if err != nil {
		if errors.Is(err, cardly_errors.ErrUserNotFound) {
			return nil, cardly_errors.ErrUserNotFound
		}
		logger.Error("Failed to fetch user record", zap.Error(err), zap.String("userID", userID))
		return nil, err
	}
	return ContextFromRecord(record), nil
}

// ContextFromRecord derives the authorization view from an already
// fetched record, so callers holding one never pay a second read.
func ContextFromRecord(record *model.UserRecord) *model.UserContext {
	teams := make(map[string]model.TeamMembership, len(record.Teams))
	for teamID, membership := range record.Teams {
		teams[teamID] = membership
	}
	return &model.UserContext{
		UserID:           record.ID,
		Email:            record.Email,
		OrganizationID:   record.OrganizationID,
		OrganizationRole: record.OrganizationRole,
		Level:            model.ParseSubscriptionLevel(string(record.SubscriptionLevel)),
		Teams:            teams,
	}
}

// TeamRoleFor resolves the user's effective role within one team.
// Organization owners are implicit owners of every team. Non-members
// default to employee; callers performing destructive actions must
// verify membership separately before trusting this.
func TeamRoleFor(uc *model.UserContext, teamID string) model.TeamRole {
	if uc.OrganizationRole == model.RoleOwner {
		return model.RoleOwner
	}
	if membership, ok := uc.Membership(teamID); ok {
		return model.ParseTeamRole(string(membership.Role))
	}
	return model.RoleEmployee
}

// HighestRole returns the maximum-rank role the user holds across all
// teams, or employee when the user belongs to none.
func HighestRole(uc *model.UserContext) model.TeamRole {
	if uc.OrganizationRole == model.RoleOwner {
		return model.RoleOwner
	}
	highest := model.RoleEmployee
	for _, membership := range uc.Teams {
		role := model.ParseTeamRole(string(membership.Role))
		if role.Rank() > highest.Rank() {
			highest = role
		}
	}
	return highest
}

// HasPermission evaluates one capability. A per-team override wins
// verbatim when present; otherwise the role-default matrix decides,
// falling back to false for unknown combinations. An empty teamID
// checks against the user's highest role organization-wide.
func HasPermission(uc *model.UserContext, perm model.Permission, teamID string) bool {
	if teamID != "" {
		if membership, ok := uc.Membership(teamID); ok {
			if override, ok := membership.PermissionOverrides[perm]; ok {
				return override
			}
		}
		return DefaultFor(TeamRoleFor(uc, teamID), perm)
	}
	return DefaultFor(HighestRole(uc), perm)
}

// CanManageRole reports whether a manager-role user may act on a
// target-role user. The check is rank(manager) >= rank(target), so
// equals may manage equals.
func CanManageRole(manager, target model.TeamRole) bool {
	return manager.Rank() >= target.Rank()
}

// AssignableRoles lists the roles the user may hand out within a team:
// strictly below their own rank, never at or above it.
func AssignableRoles(uc *model.UserContext, teamID string) []model.TeamRole {
	own := TeamRoleFor(uc, teamID)
	var assignable []model.TeamRole
	for _, role := range model.AllTeamRoles() {
		if role.Rank() < own.Rank() {
			assignable = append(assignable, role)
		}
	}
	return assignable
}

// ValidateTeamAction decides whether the user may perform a team action,
// optionally against a target user. Acting on yourself is always denied
// for removal and role changes, regardless of rank.
func ValidateTeamAction(uc *model.UserContext, action model.TeamAction, teamID, targetUserID string) model.OperationDecision {
	if targetUserID != "" && targetUserID == uc.UserID &&
		(action == model.ActionRemoveMember || action == model.ActionUpdateRole) {
		return model.Deny(model.CodeSelfAction, "cannot act on yourself")
	}

	perm, ok := actionPermissions[action]
	if !ok {
		return model.Deny(model.CodeInsufficientRole, fmt.Sprintf("unknown team action: %s", action))
	}
	if !HasPermission(uc, perm, teamID) {
		return model.Deny(model.CodeInsufficientRole,
			fmt.Sprintf("role %s may not perform %s", TeamRoleFor(uc, teamID), action))
	}
	return model.Allow()
}
