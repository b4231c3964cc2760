// controller/access_controller.go
package controller

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	cardly_errors "github.com/cardlyhq/cardly/errors"
	"github.com/cardlyhq/cardly/model"
	"github.com/cardlyhq/cardly/service"
	"github.com/cardlyhq/cardly/util"
	helper_util "github.com/cardlyhq/cardly/util/helper"
)

// Controllers aggregates the HTTP surface for router wiring.
type Controllers struct {
	Access *AccessController
}

type AccessController struct {
	accessService service.IAccessService
}

func NewAccessController(accessService service.IAccessService) *AccessController {
	return &AccessController{
		accessService: accessService,
	}
}

// RegisterRoutes registers the API routes
func (ac *AccessController) RegisterRoutes(r *gin.RouterGroup) {
	access := r.Group("/access")
	{
		access.POST("/check", ac.CheckOperation)
		access.POST("/team-action", ac.CheckTeamAction)
		access.POST("/perform", ac.PerformOperation)
		access.GET("/status/:userID", ac.GetComprehensiveStatus)
		access.GET("/teams/:teamID/members", ac.GetTeamMembers)
	}
	cache := r.Group("/cache")
	{
		cache.GET("/stats", ac.CacheStats)
		cache.POST("/invalidate", ac.InvalidateCache)
	}
	audit := r.Group("/audit")
	{
		audit.GET("/logs", ac.QueryAuditLogs)
	}
}

type checkOperationRequest struct {
	UserID    string                 `json:"user_id"`
	Operation model.Operation        `json:"operation" binding:"required"`
	Context   model.OperationContext `json:"context"`
}

// CheckOperation endpoint
func (ac *AccessController) CheckOperation(c *gin.Context) {
	var req checkOperationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondWithStatus(c, http.StatusBadRequest, "Invalid check request")
		return
	}
	if req.UserID == "" {
		req.UserID = util.GetUserIDFromContext(c)
	}

	decision, err := ac.accessService.CheckOperation(c, req.UserID, req.Operation, req.Context)
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, decision)
}

type teamActionRequest struct {
	UserID       string           `json:"user_id"`
	Action       model.TeamAction `json:"action" binding:"required"`
	TeamID       string           `json:"team_id"`
	TargetUserID string           `json:"target_user_id"`
}

// CheckTeamAction endpoint
func (ac *AccessController) CheckTeamAction(c *gin.Context) {
	var req teamActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondWithStatus(c, http.StatusBadRequest, "Invalid team action request")
		return
	}
	if req.UserID == "" {
		req.UserID = util.GetUserIDFromContext(c)
	}

	decision, err := ac.accessService.CheckTeamAction(c, req.UserID, req.Action, req.TeamID, req.TargetUserID)
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, decision)
}

type performOperationRequest struct {
	Operation model.Operation        `json:"operation" binding:"required"`
	Context   model.OperationContext `json:"context"`
	Writes    []model.FieldWrite     `json:"writes"`
}

// PerformOperation endpoint: validate-then-execute for the caller.
func (ac *AccessController) PerformOperation(c *gin.Context) {
	var req performOperationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondWithStatus(c, http.StatusBadRequest, "Invalid operation request")
		return
	}
	userID := util.GetUserIDFromContext(c)
	if userID == "" {
		util.RespondWithStatus(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	decision, err := ac.accessService.PerformOperation(c, userID, req.Operation, req.Context, req.Writes)
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	if !decision.Allowed {
		c.JSON(http.StatusForbidden, decision)
		return
	}
	c.JSON(http.StatusOK, decision)
}

// GetComprehensiveStatus endpoint
func (ac *AccessController) GetComprehensiveStatus(c *gin.Context) {
	userID := c.Param("userID")

	status, err := ac.accessService.GetComprehensiveStatus(c, userID)
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// GetTeamMembers endpoint
func (ac *AccessController) GetTeamMembers(c *gin.Context) {
	members, err := ac.accessService.GetTeamMembers(c, c.Param("teamID"))
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"members": members})
}

// CacheStats endpoint
func (ac *AccessController) CacheStats(c *gin.Context) {
	c.JSON(http.StatusOK, ac.accessService.CacheStats())
}

type invalidateRequest struct {
	Patterns []string `json:"patterns"`
}

// InvalidateCache endpoint
func (ac *AccessController) InvalidateCache(c *gin.Context) {
	var req invalidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondWithStatus(c, http.StatusBadRequest, "Invalid invalidate request")
		return
	}

	removed := ac.accessService.InvalidateCache(req.Patterns...)
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}

// QueryAuditLogs endpoint
func (ac *AccessController) QueryAuditLogs(c *gin.Context) {
	callerID := util.GetUserIDFromContext(c)
	if callerID == "" {
		util.RespondWithStatus(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	from, to, err := parseTimeRange(c.Query("from"), c.Query("to"))
	if err != nil {
		util.RespondWithError(c, cardly_errors.NewValidation("invalid time range"))
		return
	}
	limit, offset, err := helper_util.GetPaginationParams(c)
	if err != nil {
		util.RespondWithError(c, cardly_errors.NewValidation("invalid pagination parameters"))
		return
	}

	events, err := ac.accessService.QueryAuditLogs(c, callerID, from, to, c.Query("user_id"), c.Query("resource_id"), limit, offset)
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

func parseTimeRange(fromStr, toStr string) (time.Time, time.Time, error) {
	from := time.Now().Add(-24 * time.Hour)
	to := time.Now()
	var err error
	if fromStr != "" {
		if from, err = time.Parse(time.RFC3339, fromStr); err != nil {
			return from, to, err
		}
	}
	if toStr != "" {
		if to, err = time.Parse(time.RFC3339, toStr); err != nil {
			return from, to, err
		}
	}
	return from, to, nil
}
