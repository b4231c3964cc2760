// service/access_service.go
package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cardlyhq/cardly/audit"
	"github.com/cardlyhq/cardly/cache"
	"github.com/cardlyhq/cardly/dao"
	"github.com/cardlyhq/cardly/db"
	cardly_errors "github.com/cardlyhq/cardly/errors"
	"github.com/cardlyhq/cardly/invoker"
	logger "github.com/cardlyhq/cardly/logging"
	"github.com/cardlyhq/cardly/model"
	"github.com/cardlyhq/cardly/permission"
	"github.com/cardlyhq/cardly/subscription"
	"github.com/cardlyhq/cardly/util"
)

// TopicUserUpdated announces a mutated user so dependent caches can be
// dropped. The payload is the user id.
const TopicUserUpdated = "user.updated"

// IAccessService defines the interface for access decisions
type IAccessService interface {
	CheckOperation(ctx context.Context, userID string, op model.Operation, opCtx model.OperationContext) (model.OperationDecision, error)
	CheckTeamAction(ctx context.Context, userID string, action model.TeamAction, teamID, targetUserID string) (model.OperationDecision, error)
	GetComprehensiveStatus(ctx context.Context, userID string) (*subscription.Status, error)
	GetTeamMembers(ctx context.Context, teamID string) ([]model.TeamMember, error)
	PerformOperation(ctx context.Context, userID string, op model.Operation, opCtx model.OperationContext, writes []model.FieldWrite) (model.OperationDecision, error)
	QueryAuditLogs(ctx context.Context, callerID string, from, to time.Time, userID, resourceID string, limit, offset int) ([]audit.Event, error)
	CacheStats() cache.Stats
	InvalidateCache(patterns ...string) int
}

// AccessService orchestrates the gate, the permission resolver, and the
// decision cache behind one surface. Mutations follow validate-then-
// execute: the gate decides, the provider applies, caches are dropped.
type AccessService struct {
	provider   dao.DataProvider
	resolver   *permission.Resolver
	gate       *subscription.Gate
	invoker    *invoker.ServiceInvoker
	enterprise *invoker.EnterpriseClient
	auditSvc   audit.Service
	eventBus   *util.EventBus
}

var _ IAccessService = &AccessService{}

// NewAccessService creates a new instance of AccessService
func NewAccessService(
	provider dao.DataProvider,
	resolver *permission.Resolver,
	gate *subscription.Gate,
	inv *invoker.ServiceInvoker,
	enterprise *invoker.EnterpriseClient,
	auditSvc audit.Service,
	eventBus *util.EventBus,
) *AccessService {
	service := &AccessService{
		provider:   provider,
		resolver:   resolver,
		gate:       gate,
		invoker:    inv,
		enterprise: enterprise,
		auditSvc:   auditSvc,
		eventBus:   eventBus,
	}

	// Set up event subscriptions
	eventBus.Subscribe(TopicUserUpdated, service.handleUserUpdated)

	return service
}

// handleUserUpdated drops the shared Redis copy of an announced user so
// other instances re-read the graph. Local decision caches are not
// touched here: PerformOperation owns those and drops them
// synchronously before it returns.
func (s *AccessService) handleUserUpdated(ctx context.Context, event util.Event) error {
	userID, ok := event.Payload.(string)
	if !ok {
		logger.Warn("Unexpected payload on user.updated", zap.String("eventType", event.Type))
		return nil
	}
	if db.RedisClient == nil {
		return nil
	}
	if err := db.DeleteCachedUserRecord(ctx, userID); err != nil {
		logger.Warn("Failed to drop shared user record",
			zap.Error(err),
			zap.String("userID", userID))
	}
	return nil
}

// CheckOperation validates one enterprise operation through the gate.
// Decisions are never cached here: operation context varies per call.
func (s *AccessService) CheckOperation(ctx context.Context, userID string, op model.Operation, opCtx model.OperationContext) (model.OperationDecision, error) {
	if userID == "" {
		return model.OperationDecision{}, cardly_errors.NewValidation("userID is required")
	}
	return s.gate.ValidateOperation(ctx, userID, op, opCtx)
}

// CheckTeamAction validates a team-scoped action against the caller's
// effective role and overrides. Denials are recorded as audit events.
func (s *AccessService) CheckTeamAction(ctx context.Context, userID string, action model.TeamAction, teamID, targetUserID string) (model.OperationDecision, error) {
	uc, err := s.resolver.ResolveContext(ctx, userID)
	if err != nil {
		return model.OperationDecision{}, err
	}

	decision := permission.ValidateTeamAction(uc, action, teamID, targetUserID)
	if !decision.Allowed {
		s.eventBus.Publish(ctx, audit.TopicSecurityEvent, audit.Event{
			UserID:       uc.UserID,
			UserEmail:    uc.Email,
			Action:       "team_action_denied",
			ResourceType: "team",
			ResourceID:   teamID,
			Severity:     audit.SeverityMedium,
			Timestamp:    time.Now(),
			Details: map[string]interface{}{
				"action": string(action),
				"target": targetUserID,
				"reason": decision.Reason,
				"code":   string(decision.Code),
			},
		})
	}
	return decision, nil
}

// GetComprehensiveStatus serves the cached status view. Concurrent
// requests for the same user collapse into one gate evaluation.
func (s *AccessService) GetComprehensiveStatus(ctx context.Context, userID string) (*subscription.Status, error) {
	params := invoker.Params{invoker.P("userID", userID)}
	if err := s.invoker.RequireParams(params, "userID"); err != nil {
		return nil, err
	}

	value, err := s.invoker.Invoke(ctx, "comprehensive_status", func(ctx context.Context) (interface{}, error) {
		return s.gate.ComprehensiveStatus(ctx, userID)
	}, cache.CategoryPermissions, params)
	if err != nil {
		return nil, err
	}

	status, ok := value.(*subscription.Status)
	if !ok {
		return nil, cardly_errors.NewServer(fmt.Sprintf("unexpected cached value for user %s", userID), nil)
	}
	return status, nil
}

// GetTeamMembers serves the team roster from the enterprise API behind
// the short-lived teamMembers cache category.
func (s *AccessService) GetTeamMembers(ctx context.Context, teamID string) ([]model.TeamMember, error) {
	params := invoker.Params{invoker.P("teamID", teamID)}
	if err := s.invoker.RequireParams(params, "teamID"); err != nil {
		return nil, err
	}

	value, err := s.invoker.Invoke(ctx, "get_members", func(ctx context.Context) (interface{}, error) {
		var out struct {
			Members []model.TeamMember `json:"members"`
		}
		if err := s.enterprise.Get(ctx, fmt.Sprintf("/teams/%s/members", teamID), &out); err != nil {
			return nil, err
		}
		return out.Members, nil
	}, cache.CategoryTeamMembers, params)
	if err != nil {
		return nil, err
	}

	members, ok := value.([]model.TeamMember)
	if !ok {
		return nil, cardly_errors.NewServer(fmt.Sprintf("unexpected cached value for team %s", teamID), nil)
	}
	return members, nil
}

// PerformOperation is validate-then-execute: the gate decides first and
// a denial returns without touching storage. On success the writes are
// applied atomically and every cache holding the affected user or team
// is dropped before the call returns.
func (s *AccessService) PerformOperation(ctx context.Context, userID string, op model.Operation, opCtx model.OperationContext, writes []model.FieldWrite) (model.OperationDecision, error) {
	decision, err := s.gate.ValidateOperation(ctx, userID, op, opCtx)
	if err != nil {
		return model.OperationDecision{}, err
	}
	if !decision.Allowed {
		return decision, nil
	}

	if len(writes) > 0 {
		if err := s.provider.TransactionalUpdate(ctx, writes); err != nil {
			logger.Error("Operation writes failed",
				zap.Error(err),
				zap.String("userID", userID),
				zap.String("operation", string(op)))
			return model.OperationDecision{}, cardly_errors.Translate(err)
		}
	}

	patterns := []string{userID}
	if opCtx.TeamID != "" {
		patterns = append(patterns, opCtx.TeamID)
	}
	if opCtx.TargetUserID != "" {
		patterns = append(patterns, opCtx.TargetUserID)
	}
	removed := s.invoker.Invalidate(patterns...)
	logger.Debug("Invalidated caches after operation",
		zap.String("operation", string(op)),
		zap.Int("removed", removed))

	s.eventBus.Publish(ctx, TopicUserUpdated, userID)
	if opCtx.TargetUserID != "" && opCtx.TargetUserID != userID {
		s.eventBus.Publish(ctx, TopicUserUpdated, opCtx.TargetUserID)
	}

	s.auditSvc.Record(ctx, audit.Event{
		UserID:       userID,
		Action:       string(op),
		ResourceType: "operation",
		ResourceID:   opCtx.TeamID,
		Severity:     audit.SeverityInfo,
		Details: map[string]interface{}{
			"target": opCtx.TargetUserID,
			"writes": len(writes),
		},
	})

	return decision, nil
}

// QueryAuditLogs gates access behind the view_audit_logs operation
// before reading the audit index.
func (s *AccessService) QueryAuditLogs(ctx context.Context, callerID string, from, to time.Time, userID, resourceID string, limit, offset int) ([]audit.Event, error) {
	decision, err := s.gate.ValidateOperation(ctx, callerID, model.OpViewAuditLogs, model.OperationContext{})
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return nil, cardly_errors.FromDecision(decision)
	}
	return s.auditSvc.QueryEvents(ctx, from, to, userID, resourceID, limit, offset)
}

// CacheStats exposes the decision cache counters.
func (s *AccessService) CacheStats() cache.Stats {
	return s.invoker.Stats()
}

// InvalidateCache drops cached entries matching the given patterns.
func (s *AccessService) InvalidateCache(patterns ...string) int {
	return s.invoker.Invalidate(patterns...)
}
