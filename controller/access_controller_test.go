// controller/access_controller_test.go
package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	stmock "github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cardlyhq/cardly/audit"
	"github.com/cardlyhq/cardly/cache"
	"github.com/cardlyhq/cardly/model"
	"github.com/cardlyhq/cardly/service"
	"github.com/cardlyhq/cardly/subscription"
)

type mockAccessService struct {
	stmock.Mock
}

var _ service.IAccessService = &mockAccessService{}

func (m *mockAccessService) CheckOperation(ctx context.Context, userID string, op model.Operation, opCtx model.OperationContext) (model.OperationDecision, error) {
	args := m.Called(ctx, userID, op, opCtx)
	return args.Get(0).(model.OperationDecision), args.Error(1)
}

func (m *mockAccessService) CheckTeamAction(ctx context.Context, userID string, action model.TeamAction, teamID, targetUserID string) (model.OperationDecision, error) {
	args := m.Called(ctx, userID, action, teamID, targetUserID)
	return args.Get(0).(model.OperationDecision), args.Error(1)
}

func (m *mockAccessService) GetComprehensiveStatus(ctx context.Context, userID string) (*subscription.Status, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*subscription.Status), args.Error(1)
}

func (m *mockAccessService) GetTeamMembers(ctx context.Context, teamID string) ([]model.TeamMember, error) {
	args := m.Called(ctx, teamID)
	return args.Get(0).([]model.TeamMember), args.Error(1)
}

func (m *mockAccessService) PerformOperation(ctx context.Context, userID string, op model.Operation, opCtx model.OperationContext, writes []model.FieldWrite) (model.OperationDecision, error) {
	args := m.Called(ctx, userID, op, opCtx, writes)
	return args.Get(0).(model.OperationDecision), args.Error(1)
}

func (m *mockAccessService) QueryAuditLogs(ctx context.Context, callerID string, from, to time.Time, userID, resourceID string, limit, offset int) ([]audit.Event, error) {
	args := m.Called(ctx, callerID, from, to, userID, resourceID, limit, offset)
	return args.Get(0).([]audit.Event), args.Error(1)
}

func (m *mockAccessService) CacheStats() cache.Stats {
	args := m.Called()
	return args.Get(0).(cache.Stats)
}

func (m *mockAccessService) InvalidateCache(patterns ...string) int {
	args := m.Called(patterns)
	return args.Int(0)
}

func routerFor(svc service.IAccessService, userID string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(func(c *gin.Context) {
		if userID != "" {
			c.Set("userID", userID)
		}
		c.Next()
	})
	api := engine.Group("/api/v1")
	NewAccessController(svc).RegisterRoutes(api)
	return engine
}

func TestCheckOperationEndpoint(t *testing.T) {
	svc := new(mockAccessService)
	svc.On("CheckOperation", stmock.Anything, "user-1", model.OpCreateTeam, stmock.AnythingOfType("model.OperationContext")).
		Return(model.Deny(model.CodeSubscriptionRequired, "create_team requires an enterprise subscription"), nil)

	body, _ := json.Marshal(map[string]interface{}{
		"user_id":   "user-1",
		"operation": "create_team",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/access/check", bytes.NewReader(body))
	w := httptest.NewRecorder()
	routerFor(svc, "user-1").ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var decision model.OperationDecision
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decision))
	assert.False(t, decision.Allowed)
	assert.Equal(t, model.CodeSubscriptionRequired, decision.Code)
}

func TestCheckOperationUsesCallerWhenBodyOmitsUser(t *testing.T) {
	svc := new(mockAccessService)
	svc.On("CheckOperation", stmock.Anything, "caller-7", model.OpShareContacts, stmock.AnythingOfType("model.OperationContext")).
		Return(model.Allow(), nil)

	body, _ := json.Marshal(map[string]interface{}{"operation": "share_contacts"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/access/check", bytes.NewReader(body))
	w := httptest.NewRecorder()
	routerFor(svc, "caller-7").ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestCheckOperationRejectsMissingOperation(t *testing.T) {
	svc := new(mockAccessService)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/access/check", bytes.NewReader([]byte(`{}`)))
	w := httptest.NewRecorder()
	routerFor(svc, "user-1").ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPerformOperationDeniedReturnsForbidden(t *testing.T) {
	svc := new(mockAccessService)
	svc.On("PerformOperation", stmock.Anything, "user-1", model.OpRemoveMember,
		stmock.AnythingOfType("model.OperationContext"), stmock.Anything).
		Return(model.Deny(model.CodeInsufficientRole, "only owners and managers may perform remove_member"), nil)

	body, _ := json.Marshal(map[string]interface{}{
		"operation": "remove_member",
		"context":   map[string]interface{}{"team_id": "team-1", "target_user_id": "user-2"},
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/access/perform", bytes.NewReader(body))
	w := httptest.NewRecorder()
	routerFor(svc, "user-1").ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestPerformOperationRequiresAuthenticatedCaller(t *testing.T) {
	svc := new(mockAccessService)
	body, _ := json.Marshal(map[string]interface{}{"operation": "invite_member"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/access/perform", bytes.NewReader(body))
	w := httptest.NewRecorder()
	routerFor(svc, "").ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestComprehensiveStatusEndpoint(t *testing.T) {
	svc := new(mockAccessService)
	svc.On("GetComprehensiveStatus", stmock.Anything, "user-1").Return(&subscription.Status{
		UserID:       "user-1",
		Subscription: model.SubscriptionProfile{Level: model.LevelPro, MaxTeams: 3},
		HighestRole:  model.RoleManager,
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/access/status/user-1", nil)
	w := httptest.NewRecorder()
	routerFor(svc, "user-1").ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var status subscription.Status
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, model.LevelPro, status.Subscription.Level)
	assert.Equal(t, model.RoleManager, status.HighestRole)
}

func TestTeamMembersEndpoint(t *testing.T) {
	svc := new(mockAccessService)
	svc.On("GetTeamMembers", stmock.Anything, "team-1").Return([]model.TeamMember{
		{UserID: "user-2", Name: "Ben", Role: model.RoleTeamLead},
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/access/teams/team-1/members", nil)
	w := httptest.NewRecorder()
	routerFor(svc, "user-1").ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Members []model.TeamMember `json:"members"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Members, 1)
	assert.Equal(t, model.RoleTeamLead, resp.Members[0].Role)
}

func TestCacheStatsEndpoint(t *testing.T) {
	svc := new(mockAccessService)
	svc.On("CacheStats").Return(cache.Stats{Hits: 8, Misses: 2, HitRate: 80})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cache/stats", nil)
	w := httptest.NewRecorder()
	routerFor(svc, "user-1").ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var stats cache.Stats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, uint64(8), stats.Hits)
	assert.InDelta(t, 80.0, stats.HitRate, 0.01)
}

func TestInvalidateCacheEndpoint(t *testing.T) {
	svc := new(mockAccessService)
	svc.On("InvalidateCache", []string{"team-1", "user-2"}).Return(3)

	body, _ := json.Marshal(map[string]interface{}{"patterns": []string{"team-1", "user-2"}})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/cache/invalidate", bytes.NewReader(body))
	w := httptest.NewRecorder()
	routerFor(svc, "user-1").ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]int
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp["removed"])
}

func TestQueryAuditLogsEndpoint(t *testing.T) {
	svc := new(mockAccessService)
	svc.On("QueryAuditLogs", stmock.Anything, "user-1",
		stmock.AnythingOfType("time.Time"), stmock.AnythingOfType("time.Time"),
		"user-2", "", 10, 0).
		Return([]audit.Event{{UserID: "user-2", Action: "operation_denied"}}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/audit/logs?user_id=user-2&limit=10", nil)
	w := httptest.NewRecorder()
	routerFor(svc, "user-1").ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Events []audit.Event `json:"events"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Events, 1)
	assert.Equal(t, "operation_denied", resp.Events[0].Action)
}
