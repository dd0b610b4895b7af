package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"animehub/internal/microservices/http-api/dto"
	"animehub/internal/microservices/http-api/service"

	"github.com/gin-gonic/gin"
)

// fan-out touches every recipient, so it gets more time than a single request
const fanoutTimeout = 60 * time.Second

// AdminHandler exposes the server-side notification producers.
type AdminHandler struct {
	svc service.NotificationService
}

func NewAdminHandler(svc service.NotificationService) *AdminHandler {
	return &AdminHandler{svc: svc}
}

// RegisterRoutes expects rg to be behind AuthMiddleware and RequireAdmin.
func (h *AdminHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/notifications/system", h.SendSystem)
	rg.POST("/notifications/bulk", h.SendBulk)
	rg.POST("/badges/:badge_id/award", h.AwardBadge)
	rg.POST("/tasks/:task_id/complete", h.CompleteTask)
}

// POST /api/admin/notifications/system
func (h *AdminHandler) SendSystem(c *gin.Context) {
	var req dto.SystemNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request body", Detail: err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), fanoutTimeout)
	defer cancel()

	results, err := h.svc.SendSystem(ctx, req.Title, req.Message, req.Data)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.NewFanoutResponse(results))
}

// SendBulk creates each notification independently; failed entries come back null
// POST /api/admin/notifications/bulk
func (h *AdminHandler) SendBulk(c *gin.Context) {
	var req dto.BulkNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request body", Detail: err.Error()})
		return
	}

	inputs := make([]service.NotificationInput, 0, len(req.Notifications))
	for _, n := range req.Notifications {
		inputs = append(inputs, service.NotificationInput{
			Type:     n.Type,
			Title:    n.Title,
			Message:  n.Message,
			UserID:   n.UserID,
			SenderID: n.SenderID,
			AnimeID:  n.AnimeID,
			Link:     n.Link,
			Data:     n.Data,
		})
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), fanoutTimeout)
	defer cancel()

	results := h.svc.SendBulk(ctx, inputs)
	c.JSON(http.StatusCreated, dto.NewFanoutResponse(results))
}

// POST /api/admin/badges/:badge_id/award
func (h *AdminHandler) AwardBadge(c *gin.Context) {
	badgeID, err := strconv.ParseInt(c.Param("badge_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid badge id"})
		return
	}

	var req dto.AwardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request body", Detail: err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	notification, err := h.svc.SendBadgeNotification(ctx, req.UserID, badgeID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.FromModelToNotificationResponse(notification))
}

// POST /api/admin/tasks/:task_id/complete
func (h *AdminHandler) CompleteTask(c *gin.Context) {
	taskID, err := strconv.ParseInt(c.Param("task_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid task id"})
		return
	}

	var req dto.AwardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request body", Detail: err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	notification, err := h.svc.SendTaskCompletionNotification(ctx, req.UserID, taskID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.FromModelToNotificationResponse(notification))
}
