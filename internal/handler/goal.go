package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vitalsync/analytics/internal/service"
	"github.com/vitalsync/analytics/pkg/api"
	"github.com/vitalsync/analytics/pkg/model"
	"go.uber.org/zap"
)

// GoalHandler implements the health goal endpoints
type GoalHandler struct {
	goals  *service.GoalService
	logger *zap.Logger
}

// NewGoalHandler creates a new GoalHandler
func NewGoalHandler(goals *service.GoalService, logger *zap.Logger) *GoalHandler {
	return &GoalHandler{
		goals:  goals,
		logger: logger,
	}
}

// CreateGoal creates a health goal
func (h *GoalHandler) CreateGoal(c *gin.Context) {
	var req api.CreateGoalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("invalid request body", zap.Error(err))
		c.JSON(http.StatusBadRequest, api.ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "Invalid request body",
			Details: stringPtr(err.Error()),
		})
		return
	}

	goal := &model.HealthGoal{
		UserID:       req.UserID,
		GoalType:     req.GoalType,
		TargetValue:  req.TargetValue,
		TargetDate:   req.TargetDate,
		DeadlineDate: req.DeadlineDate,
		Priority:     req.Priority,
		Milestones:   req.Milestones,
	}

	created, err := h.goals.CreateGoal(c.Request.Context(), goal)
	if err != nil {
		h.logger.Error("failed to create goal",
			zap.Error(err),
			zap.String("user_id", req.UserID),
		)
		status, code := statusFor(err)
		c.JSON(status, api.ErrorResponse{
			Code:    code,
			Message: "Failed to create goal",
			Details: stringPtr(err.Error()),
		})
		return
	}

	c.JSON(http.StatusCreated, created)
}

// UpdateGoal applies caller-controlled updates to a goal
func (h *GoalHandler) UpdateGoal(c *gin.Context) {
	goalID := c.Param("id")

	var req api.UpdateGoalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("invalid request body", zap.Error(err))
		c.JSON(http.StatusBadRequest, api.ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "Invalid request body",
			Details: stringPtr(err.Error()),
		})
		return
	}

	var status *model.GoalStatus
	if req.Status != nil {
		s := model.GoalStatus(*req.Status)
		status = &s
	}

	goal, err := h.goals.UpdateGoal(c.Request.Context(), goalID, req.TargetValue, req.TargetDate, req.Priority, status)
	if err != nil {
		h.logger.Error("failed to update goal",
			zap.Error(err),
			zap.String("goal_id", goalID),
		)
		httpStatus, code := statusFor(err)
		c.JSON(httpStatus, api.ErrorResponse{
			Code:    code,
			Message: "Failed to update goal",
			Details: stringPtr(err.Error()),
		})
		return
	}

	c.JSON(http.StatusOK, goal)
}

// DeleteGoal removes a goal
func (h *GoalHandler) DeleteGoal(c *gin.Context) {
	goalID := c.Param("id")

	if err := h.goals.DeleteGoal(c.Request.Context(), goalID); err != nil {
		h.logger.Error("failed to delete goal",
			zap.Error(err),
			zap.String("goal_id", goalID),
		)
		status, code := statusFor(err)
		c.JSON(status, api.ErrorResponse{
			Code:    code,
			Message: "Failed to delete goal",
			Details: stringPtr(err.Error()),
		})
		return
	}

	c.Status(http.StatusNoContent)
}

// ListGoals returns a user's goals
func (h *GoalHandler) ListGoals(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "user_id is required",
		})
		return
	}

	activeOnly := c.DefaultQuery("active_only", "false") == "true"

	goals, err := h.goals.GetGoals(c.Request.Context(), userID, activeOnly)
	if err != nil {
		h.logger.Error("failed to list goals",
			zap.Error(err),
			zap.String("user_id", userID),
		)
		status, code := statusFor(err)
		c.JSON(status, api.ErrorResponse{
			Code:    code,
			Message: "Failed to list goals",
			Details: stringPtr(err.Error()),
		})
		return
	}

	c.JSON(http.StatusOK, goals)
}

// RecomputeProgress refreshes a goal's progress from the metric stream
func (h *GoalHandler) RecomputeProgress(c *gin.Context) {
	goalID := c.Param("id")

	goal, err := h.goals.RecomputeProgress(c.Request.Context(), goalID)
	if err != nil {
		h.logger.Error("failed to recompute goal progress",
			zap.Error(err),
			zap.String("goal_id", goalID),
		)
		status, code := statusFor(err)
		c.JSON(status, api.ErrorResponse{
			Code:    code,
			Message: "Failed to recompute goal progress",
			Details: stringPtr(err.Error()),
		})
		return
	}

	c.JSON(http.StatusOK, goal)
}
