package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/nevar-bot/nevar-v6-sub000/internal/common/errors"
	"github.com/nevar-bot/nevar-v6-sub000/internal/domain/member"
	"github.com/nevar-bot/nevar-v6-sub000/internal/features/reminder/models"
)

type ReminderService interface {
	Add(ctx context.Context, key member.Key, in models.AddInput) (*models.Reminder, error)
	Remove(ctx context.Context, key member.Key, label string) (bool, error)
	List(ctx context.Context, key member.Key) ([]models.Reminder, error)
}

type ReminderHandler struct {
	service ReminderService
}

func NewReminderHandler(service ReminderService) *ReminderHandler {
	return &ReminderHandler{service: service}
}

func (h *ReminderHandler) RegisterRoutes(router *gin.RouterGroup) {
	reminders := router.Group("/guilds/:guild_id/members/:member_id/reminders")
	{
		reminders.POST("", h.add)
		reminders.GET("", h.list)
		reminders.DELETE("/:label", h.remove)
	}
}

type AddReminderRequest struct {
	Label     string `json:"label" binding:"required"`
	Duration  string `json:"duration" binding:"required"`
	ChannelID string `json:"channel_id" binding:"required"`
}

func ownerKey(c *gin.Context) member.Key {
	return member.NewKey(c.Param("member_id"), c.Param("guild_id"))
}

// @Summary Add a reminder
// @Tags reminders
// @Accept json
// @Produce json
// @Param guild_id path string true "Guild ID"
// @Param member_id path string true "Member ID"
// @Param input body AddReminderRequest true "Reminder"
// @Success 201 {object} models.Reminder
// @Failure 400 {object} middleware.ErrorResponse "Validation error"
// @Failure 409 {object} middleware.ErrorResponse "Label already used"
// @Failure 500 {object} middleware.ErrorResponse "Internal server error"
// @Router /guilds/{guild_id}/members/{member_id}/reminders [post]
func (h *ReminderHandler) add(c *gin.Context) {
	var req AddReminderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(err).SetType(gin.ErrorTypeBind)
		return
	}
	duration, err := time.ParseDuration(req.Duration)
	if err != nil {
		_ = c.Error(apperrors.NewValidationError("duration", err.Error()))
		return
	}

	rem, err := h.service.Add(c.Request.Context(), ownerKey(c), models.AddInput{
		Label:     req.Label,
		Duration:  duration,
		ChannelID: req.ChannelID,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, rem)
}

// @Summary List a member's reminders
// @Tags reminders
// @Produce json
// @Param guild_id path string true "Guild ID"
// @Param member_id path string true "Member ID"
// @Success 200 {object} map[string][]models.Reminder
// @Failure 500 {object} middleware.ErrorResponse "Internal server error"
// @Router /guilds/{guild_id}/members/{member_id}/reminders [get]
func (h *ReminderHandler) list(c *gin.Context) {
	reminders, err := h.service.List(c.Request.Context(), ownerKey(c))
	if err != nil {
		_ = c.Error(err)
		return
	}
	if reminders == nil {
		reminders = []models.Reminder{}
	}
	c.JSON(http.StatusOK, gin.H{"reminders": reminders})
}

// @Summary Remove a reminder
// @Tags reminders
// @Param guild_id path string true "Guild ID"
// @Param member_id path string true "Member ID"
// @Param label path string true "Reminder label"
// @Success 204
// @Failure 404 {object} middleware.ErrorResponse "Reminder not found"
// @Failure 500 {object} middleware.ErrorResponse "Internal server error"
// @Router /guilds/{guild_id}/members/{member_id}/reminders/{label} [delete]
func (h *ReminderHandler) remove(c *gin.Context) {
	label := c.Param("label")
	ok, err := h.service.Remove(c.Request.Context(), ownerKey(c), label)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if !ok {
		_ = c.Error(apperrors.NewNotFoundError("reminder", label))
		return
	}
	c.Status(http.StatusNoContent)
}
