// subscription/gate.go
package subscription

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cardlyhq/cardly/audit"
	"github.com/cardlyhq/cardly/dao"
	cardly_errors "github.com/cardlyhq/cardly/errors"
	logger "github.com/cardlyhq/cardly/logging"
	"github.com/cardlyhq/cardly/model"
	"github.com/cardlyhq/cardly/permission"
	"github.com/cardlyhq/cardly/util"
)

// enterpriseOperations are gated behind the enterprise tier outright:
// for any lower level the gate denies before per-operation validators
// run, regardless of role.
var enterpriseOperations = map[model.Operation]bool{
	model.OpCreateTeam: true,
}

// Gate validates enterprise-facing operations against subscription
// limits, feature flags, and the caller's effective role. Every
// evaluation reads the user record exactly once; all derived views come
// from that single record.
type Gate struct {
	provider dao.DataProvider
	events   *util.EventBus
}

// NewGate creates a Gate. The event bus carries denial audit events; a
// nil bus disables emission.
func NewGate(provider dao.DataProvider, events *util.EventBus) *Gate {
	return &Gate{provider: provider, events: events}
}

// ValidateOperation decides whether userID may perform op. A denial is
// returned as a structured decision, never an error; errors are
// reserved for fetch failures. Denials emit a MEDIUM audit event as a
// side effect, which never alters the decision.
func (g *Gate) ValidateOperation(ctx context.Context, userID string, op model.Operation, opCtx model.OperationContext) (model.OperationDecision, error) {
	record, err := g.provider.GetUserRecord(ctx, userID)
	if err != nil {
		if errors.Is(err, cardly_errors.ErrUserNotFound) {
			return model.Deny(model.CodeUserNotFound, "user record not found"), nil
		}
		return model.OperationDecision{}, err
	}

	uc := permission.ContextFromRecord(record)
	decision := validate(uc, op, opCtx)
	if !decision.Allowed {
		g.emitDenial(ctx, uc, op, decision)
	}
	return decision, nil
}

// ComprehensiveStatus is the single-read status view: subscription
// profile, feature access, and per-operation permissions, all derived
// from one fetched record. The permissions loop never re-reads the
// record and never emits audit events.
func (g *Gate) ComprehensiveStatus(ctx context.Context, userID string) (*Status, error) {
	record, err := g.provider.GetUserRecord(ctx, userID)
	if err != nil {
		if errors.Is(err, cardly_errors.ErrUserNotFound) {
			return nil, cardly_errors.ErrUserNotFound
		}
		return nil, err
	}

	uc := permission.ContextFromRecord(record)
	profile := ProfileFor(uc.Level)

	featureAccess := make(map[model.Feature]bool, len(profile.Features))
	for _, feature := range []model.Feature{
		model.FeatureTeams, model.FeatureContactSharing, model.FeatureBulkSharing,
		model.FeatureAnalytics, model.FeatureAuditLogs, model.FeatureCustomBranding,
		model.FeatureAPIAccess, model.FeaturePrioritySupport,
	} {
		featureAccess[feature] = profile.HasFeature(feature)
	}

	operations := []model.Operation{
		model.OpCreateTeam, model.OpInviteMember, model.OpRemoveMember,
		model.OpUpdateMemberRole, model.OpShareContacts,
		model.OpBulkShareContacts, model.OpViewAuditLogs,
	}
	operationPermissions := make(map[model.Operation]model.OperationDecision, len(operations))
	for _, op := range operations {
		operationPermissions[op] = validate(uc, op, model.OperationContext{})
	}

	return &Status{
		UserID:               uc.UserID,
		Subscription:         profile,
		HighestRole:          permission.HighestRole(uc),
		FeatureAccess:        featureAccess,
		OperationPermissions: operationPermissions,
	}, nil
}

// Status is the comprehensive subscription and permission view for one
// user.
type Status struct {
	UserID               string                                      `json:"user_id"`
	Subscription         model.SubscriptionProfile                   `json:"subscription_status"`
	HighestRole          model.TeamRole                              `json:"highest_role"`
	FeatureAccess        map[model.Feature]bool                      `json:"feature_access"`
	OperationPermissions map[model.Operation]model.OperationDecision `json:"operation_permissions"`
}

// validate is the pure decision core shared by ValidateOperation and
// the comprehensive status loop.
func validate(uc *model.UserContext, op model.Operation, opCtx model.OperationContext) model.OperationDecision {
	profile := ProfileFor(uc.Level)

	role := permission.HighestRole(uc)
	if opCtx.TeamID != "" {
		role = permission.TeamRoleFor(uc, opCtx.TeamID)
	}

	if enterpriseOperations[op] && uc.Level != model.LevelEnterprise {
		d := model.Deny(model.CodeSubscriptionRequired,
			fmt.Sprintf("%s requires an enterprise subscription", op))
		d.UpgradeRequired = true
		d.RequiredLevel = model.LevelEnterprise
		return d
	}

	switch op {
	case model.OpCreateTeam:
		if profile.MaxTeams != model.Unlimited && opCtx.CurrentTeams >= profile.MaxTeams {
			d := model.Deny(model.CodeTeamLimitReached,
				fmt.Sprintf("team limit of %d reached", profile.MaxTeams))
			d.LimitReached = true
			return d
		}
		if role != model.RoleOwner && role != model.RoleManager {
			return model.Deny(model.CodeInsufficientRole, "only owners and managers may create teams")
		}

	case model.OpInviteMember:
		newMembers := opCtx.NewMembers
		if newMembers == 0 {
			newMembers = 1
		}
		if profile.MaxMembers != model.Unlimited && opCtx.CurrentTeamSize+newMembers > profile.MaxMembers {
			d := model.Deny(model.CodeMemberLimitReached,
				fmt.Sprintf("member limit of %d reached", profile.MaxMembers))
			d.LimitReached = true
			return d
		}
		if role != model.RoleOwner && role != model.RoleManager && role != model.RoleTeamLead {
			return model.Deny(model.CodeInsufficientRole, "insufficient role to invite members")
		}

	case model.OpRemoveMember, model.OpUpdateMemberRole:
		if role != model.RoleOwner && role != model.RoleManager {
			return model.Deny(model.CodeInsufficientRole,
				fmt.Sprintf("only owners and managers may perform %s", op))
		}

	case model.OpShareContacts:
		if !profile.HasFeature(model.FeatureContactSharing) {
			return featureDenial(model.FeatureContactSharing)
		}

	case model.OpBulkShareContacts:
		if !profile.HasFeature(model.FeatureBulkSharing) {
			return featureDenial(model.FeatureBulkSharing)
		}

	case model.OpViewAuditLogs:
		if uc.Level.Rank() < model.LevelPremium.Rank() {
			d := model.Deny(model.CodeFeatureNotAvailable, "audit logs require the premium tier or higher")
			d.UpgradeRequired = true
			d.RequiredLevel = model.LevelPremium
			return d
		}

	default:
		// Unknown operations are allowed; gating is opt-in per operation.
	}

	return model.Allow()
}

func featureDenial(feature model.Feature) model.OperationDecision {
	d := model.Deny(model.CodeFeatureNotAvailable,
		fmt.Sprintf("feature %s is not available on the current plan", feature))
	d.UpgradeRequired = true
	d.RequiredLevel = MinimumLevelFor(feature)
	return d
}

func (g *Gate) emitDenial(ctx context.Context, uc *model.UserContext, op model.Operation, decision model.OperationDecision) {
	if g.events == nil {
		return
	}
	event := audit.Event{
		UserID:       uc.UserID,
		UserEmail:    uc.Email,
		Action:       "operation_denied",
		ResourceType: "operation",
		ResourceID:   string(op),
		Severity:     audit.SeverityMedium,
		Timestamp:    time.Now(),
		Details: map[string]interface{}{
			"operation": string(op),
			"reason":    decision.Reason,
			"code":      string(decision.Code),
			"level":     string(uc.Level),
			"role":      string(permission.HighestRole(uc)),
		},
	}
	g.events.Publish(ctx, audit.TopicSecurityEvent, event)
	logger.Debug("Operation denied",
		zap.String("userID", uc.UserID),
		zap.String("operation", string(op)),
		zap.String("code", string(decision.Code)))
}
