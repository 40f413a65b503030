package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/nevar-bot/nevar-v6-sub000/internal/common/errors"
	"github.com/nevar-bot/nevar-v6-sub000/internal/domain/member"
	"github.com/nevar-bot/nevar-v6-sub000/internal/features/ban/models"
)

type BanService interface {
	Issue(ctx context.Context, in models.IssueInput) (*models.MemberBan, error)
	Revoke(ctx context.Context, key member.Key) (bool, error)
	Get(ctx context.Context, key member.Key) (*models.MemberBan, error)
}

type BanHandler struct {
	service BanService
}

func NewBanHandler(service BanService) *BanHandler {
	return &BanHandler{service: service}
}

func (h *BanHandler) RegisterRoutes(router *gin.RouterGroup) {
	bans := router.Group("/guilds/:guild_id/bans")
	{
		bans.POST("", h.issue)
		bans.GET("/:member_id", h.get)
		bans.DELETE("/:member_id", h.revoke)
	}
}

type IssueBanRequest struct {
	MemberID    string `json:"member_id" binding:"required"`
	ModeratorID string `json:"moderator_id" binding:"required"`
	Reason      string `json:"reason"`
	Duration    string `json:"duration" binding:"required"`
}

// @Summary Issue a temporary ban
// @Tags bans
// @Accept json
// @Produce json
// @Param guild_id path string true "Guild ID"
// @Param input body IssueBanRequest true "Ban parameters"
// @Success 201 {object} models.MemberBan
// @Failure 400 {object} middleware.ErrorResponse "Validation error"
// @Failure 502 {object} middleware.ErrorResponse "Platform ban failed"
// @Failure 500 {object} middleware.ErrorResponse "Internal server error"
// @Router /guilds/{guild_id}/bans [post]
func (h *BanHandler) issue(c *gin.Context) {
	var req IssueBanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(err).SetType(gin.ErrorTypeBind)
		return
	}
	duration, err := time.ParseDuration(req.Duration)
	if err != nil {
		_ = c.Error(apperrors.NewValidationError("duration", err.Error()))
		return
	}

	ban, err := h.service.Issue(c.Request.Context(), models.IssueInput{
		GuildID:     c.Param("guild_id"),
		MemberID:    req.MemberID,
		ModeratorID: req.ModeratorID,
		Reason:      req.Reason,
		Duration:    duration,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, ban)
}

// @Summary Get a member's active ban
// @Tags bans
// @Produce json
// @Param guild_id path string true "Guild ID"
// @Param member_id path string true "Member ID"
// @Success 200 {object} models.MemberBan
// @Failure 404 {object} middleware.ErrorResponse "No active ban"
// @Failure 500 {object} middleware.ErrorResponse "Internal server error"
// @Router /guilds/{guild_id}/bans/{member_id} [get]
func (h *BanHandler) get(c *gin.Context) {
	key := member.NewKey(c.Param("member_id"), c.Param("guild_id"))
	ban, err := h.service.Get(c.Request.Context(), key)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if ban == nil || !ban.Ban.Active {
		_ = c.Error(apperrors.NewNotFoundError("ban", key.String()))
		return
	}
	c.JSON(http.StatusOK, ban)
}

// @Summary Revoke a ban before it expires
// @Tags bans
// @Param guild_id path string true "Guild ID"
// @Param member_id path string true "Member ID"
// @Success 204
// @Failure 409 {object} middleware.ErrorResponse "No active ban"
// @Failure 502 {object} middleware.ErrorResponse "Platform unban failed"
// @Failure 500 {object} middleware.ErrorResponse "Internal server error"
// @Router /guilds/{guild_id}/bans/{member_id} [delete]
func (h *BanHandler) revoke(c *gin.Context) {
	key := member.NewKey(c.Param("member_id"), c.Param("guild_id"))
	ok, err := h.service.Revoke(c.Request.Context(), key)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if !ok {
		_ = c.Error(apperrors.New(apperrors.ErrCodeBanNotActive, "Member has no active ban").
			WithDetail("member_id", key.MemberID))
		return
	}
	c.Status(http.StatusNoContent)
}
