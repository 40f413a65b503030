package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/nevar-bot/nevar-v6-sub000/internal/common/errors"
	"github.com/nevar-bot/nevar-v6-sub000/internal/features/giveaway/models"
)

// GiveawayService is the part of the giveaway manager exposed over HTTP.
type GiveawayService interface {
	Create(ctx context.Context, in models.CreateInput) (*models.Giveaway, error)
	Get(ctx context.Context, messageID string) (*models.Giveaway, error)
	List(ctx context.Context) ([]*models.Giveaway, error)
	ListActive(ctx context.Context) ([]*models.Giveaway, error)
	AddEntrant(ctx context.Context, messageID, memberID string) (bool, error)
	RemoveEntrant(ctx context.Context, messageID, memberID string) (bool, error)
	ToggleEntry(ctx context.Context, messageID, memberID string) (models.EntryOutcome, error)
	End(ctx context.Context, messageID string) (*models.Giveaway, bool, error)
	Reroll(ctx context.Context, messageID string) (*models.Giveaway, bool, error)
	Edit(ctx context.Context, messageID string, in models.EditInput) (*models.Giveaway, bool, error)
	Delete(ctx context.Context, messageID string) (bool, error)
}

type GiveawayHandler struct {
	service GiveawayService
}

func NewGiveawayHandler(service GiveawayService) *GiveawayHandler {
	return &GiveawayHandler{service: service}
}

func (h *GiveawayHandler) RegisterRoutes(router *gin.RouterGroup) {
	giveaways := router.Group("/giveaways")
	{
		giveaways.POST("", h.create)
		giveaways.GET("", h.list)
		giveaways.GET("/:id", h.get)
		giveaways.PATCH("/:id", h.edit)
		giveaways.DELETE("/:id", h.delete)
		giveaways.POST("/:id/end", h.end)
		giveaways.POST("/:id/reroll", h.reroll)
		giveaways.POST("/:id/entrants", h.addEntrant)
		giveaways.DELETE("/:id/entrants/:member_id", h.removeEntrant)
		giveaways.POST("/:id/entrants/toggle", h.toggleEntry)
	}
}

type CreateGiveawayRequest struct {
	ChannelID       string                `json:"channel_id" binding:"required"`
	GuildID         string                `json:"guild_id" binding:"required"`
	HostedBy        string                `json:"hosted_by" binding:"required"`
	Prize           string                `json:"prize" binding:"required"`
	WinnerCount     int                   `json:"winner_count" binding:"required,min=1"`
	Duration        string                `json:"duration" binding:"required"`
	ExemptMemberIDs []string              `json:"exempt_member_ids"`
	Requirements    models.RequirementSet `json:"requirements"`
}

type EditGiveawayRequest struct {
	Prize       *string `json:"prize"`
	WinnerCount *int    `json:"winner_count"`
	Extend      string  `json:"extend"`
}

type EntrantRequest struct {
	MemberID string `json:"member_id" binding:"required"`
}

// @Summary Create a giveaway
// @Description Posts the giveaway message in the channel and schedules its end
// @Tags giveaways
// @Accept json
// @Produce json
// @Param input body CreateGiveawayRequest true "Giveaway parameters"
// @Success 201 {object} models.Giveaway
// @Failure 400 {object} middleware.ErrorResponse "Validation error"
// @Failure 502 {object} middleware.ErrorResponse "Message could not be posted"
// @Failure 500 {object} middleware.ErrorResponse "Internal server error"
// @Router /giveaways [post]
func (h *GiveawayHandler) create(c *gin.Context) {
	var req CreateGiveawayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(err).SetType(gin.ErrorTypeBind)
		return
	}
	duration, err := time.ParseDuration(req.Duration)
	if err != nil {
		_ = c.Error(apperrors.NewValidationError("duration", err.Error()))
		return
	}

	g, err := h.service.Create(c.Request.Context(), models.CreateInput{
		ChannelID:       req.ChannelID,
		GuildID:         req.GuildID,
		HostedBy:        req.HostedBy,
		Prize:           req.Prize,
		WinnerCount:     req.WinnerCount,
		Duration:        duration,
		ExemptMemberIDs: req.ExemptMemberIDs,
		Requirements:    req.Requirements,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, g)
}

// @Summary List giveaways
// @Tags giveaways
// @Produce json
// @Param active query bool false "Only giveaways that have not ended"
// @Success 200 {object} map[string][]models.Giveaway
// @Failure 500 {object} middleware.ErrorResponse "Internal server error"
// @Router /giveaways [get]
func (h *GiveawayHandler) list(c *gin.Context) {
	var (
		out []*models.Giveaway
		err error
	)
	if c.Query("active") == "true" {
		out, err = h.service.ListActive(c.Request.Context())
	} else {
		out, err = h.service.List(c.Request.Context())
	}
	if err != nil {
		_ = c.Error(err)
		return
	}
	if out == nil {
		out = []*models.Giveaway{}
	}
	c.JSON(http.StatusOK, gin.H{"giveaways": out})
}

// @Summary Get a giveaway
// @Tags giveaways
// @Produce json
// @Param id path string true "Giveaway message ID"
// @Success 200 {object} models.Giveaway
// @Failure 404 {object} middleware.ErrorResponse "Giveaway not found"
// @Failure 500 {object} middleware.ErrorResponse "Internal server error"
// @Router /giveaways/{id} [get]
func (h *GiveawayHandler) get(c *gin.Context) {
	g, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, g)
}

// @Summary Edit a running giveaway
// @Description Changes the prize or winner count, or extends the end time
// @Tags giveaways
// @Accept json
// @Produce json
// @Param id path string true "Giveaway message ID"
// @Param input body EditGiveawayRequest true "Fields to change"
// @Success 200 {object} models.Giveaway
// @Failure 400 {object} middleware.ErrorResponse "Validation error"
// @Failure 404 {object} middleware.ErrorResponse "Giveaway not found"
// @Failure 409 {object} middleware.ErrorResponse "Giveaway has ended"
// @Failure 500 {object} middleware.ErrorResponse "Internal server error"
// @Router /giveaways/{id} [patch]
func (h *GiveawayHandler) edit(c *gin.Context) {
	var req EditGiveawayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(err).SetType(gin.ErrorTypeBind)
		return
	}
	in := models.EditInput{Prize: req.Prize, WinnerCount: req.WinnerCount}
	if req.Extend != "" {
		extend, err := time.ParseDuration(req.Extend)
		if err != nil {
			_ = c.Error(apperrors.NewValidationError("extend", err.Error()))
			return
		}
		in.Extend = extend
	}

	id := c.Param("id")
	g, ok, err := h.service.Edit(c.Request.Context(), id, in)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if !ok {
		_ = c.Error(stateError(id, g, apperrors.ErrCodeGiveawayEnded, "Giveaway has already ended"))
		return
	}
	c.JSON(http.StatusOK, g)
}

// @Summary Delete a giveaway
// @Tags giveaways
// @Param id path string true "Giveaway message ID"
// @Success 204
// @Failure 404 {object} middleware.ErrorResponse "Giveaway not found"
// @Failure 500 {object} middleware.ErrorResponse "Internal server error"
// @Router /giveaways/{id} [delete]
func (h *GiveawayHandler) delete(c *gin.Context) {
	id := c.Param("id")
	ok, err := h.service.Delete(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if !ok {
		_ = c.Error(apperrors.NewGiveawayNotFoundError(id))
		return
	}
	c.Status(http.StatusNoContent)
}

// @Summary End a giveaway now
// @Description Draws the winners and announces them
// @Tags giveaways
// @Produce json
// @Param id path string true "Giveaway message ID"
// @Success 200 {object} models.Giveaway
// @Failure 404 {object} middleware.ErrorResponse "Giveaway not found"
// @Failure 409 {object} middleware.ErrorResponse "Giveaway has already ended"
// @Failure 500 {object} middleware.ErrorResponse "Internal server error"
// @Router /giveaways/{id}/end [post]
func (h *GiveawayHandler) end(c *gin.Context) {
	id := c.Param("id")
	g, ok, err := h.service.End(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if !ok {
		_ = c.Error(stateError(id, g, apperrors.ErrCodeGiveawayEnded, "Giveaway has already ended"))
		return
	}
	c.JSON(http.StatusOK, g)
}

// @Summary Reroll the winners
// @Tags giveaways
// @Produce json
// @Param id path string true "Giveaway message ID"
// @Success 200 {object} models.Giveaway
// @Failure 404 {object} middleware.ErrorResponse "Giveaway not found"
// @Failure 409 {object} middleware.ErrorResponse "Giveaway has not ended"
// @Failure 500 {object} middleware.ErrorResponse "Internal server error"
// @Router /giveaways/{id}/reroll [post]
func (h *GiveawayHandler) reroll(c *gin.Context) {
	id := c.Param("id")
	g, ok, err := h.service.Reroll(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if !ok {
		_ = c.Error(stateError(id, g, apperrors.ErrCodeGiveawayNotEnded, "Giveaway has not ended yet"))
		return
	}
	c.JSON(http.StatusOK, g)
}

// @Summary Enter a member
// @Tags giveaways
// @Accept json
// @Produce json
// @Param id path string true "Giveaway message ID"
// @Param input body EntrantRequest true "Member"
// @Success 200 {object} map[string]bool
// @Failure 400 {object} middleware.ErrorResponse "Validation error"
// @Failure 500 {object} middleware.ErrorResponse "Internal server error"
// @Router /giveaways/{id}/entrants [post]
func (h *GiveawayHandler) addEntrant(c *gin.Context) {
	var req EntrantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(err).SetType(gin.ErrorTypeBind)
		return
	}
	added, err := h.service.AddEntrant(c.Request.Context(), c.Param("id"), req.MemberID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"added": added})
}

// @Summary Withdraw a member
// @Tags giveaways
// @Produce json
// @Param id path string true "Giveaway message ID"
// @Param member_id path string true "Member ID"
// @Success 200 {object} map[string]bool
// @Failure 500 {object} middleware.ErrorResponse "Internal server error"
// @Router /giveaways/{id}/entrants/{member_id} [delete]
func (h *GiveawayHandler) removeEntrant(c *gin.Context) {
	removed, err := h.service.RemoveEntrant(c.Request.Context(), c.Param("id"), c.Param("member_id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}

// @Summary Toggle a member's entry
// @Description Same action as the participate button
// @Tags giveaways
// @Accept json
// @Produce json
// @Param id path string true "Giveaway message ID"
// @Param input body EntrantRequest true "Member"
// @Success 200 {object} map[string]string
// @Failure 400 {object} middleware.ErrorResponse "Validation error"
// @Failure 500 {object} middleware.ErrorResponse "Internal server error"
// @Router /giveaways/{id}/entrants/toggle [post]
func (h *GiveawayHandler) toggleEntry(c *gin.Context) {
	var req EntrantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(err).SetType(gin.ErrorTypeBind)
		return
	}
	outcome, err := h.service.ToggleEntry(c.Request.Context(), c.Param("id"), req.MemberID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"outcome": outcomeName(outcome)})
}

// stateError explains a refused transition: a nil giveaway means it does
// not exist (or vanished concurrently), otherwise it is in the wrong state.
func stateError(id string, g *models.Giveaway, code apperrors.ErrorCode, msg string) error {
	if g == nil {
		return apperrors.NewGiveawayNotFoundError(id)
	}
	return apperrors.New(code, msg).WithDetail("message_id", id)
}

func outcomeName(o models.EntryOutcome) string {
	switch o {
	case models.EntryAdded:
		return "entered"
	case models.EntryRemoved:
		return "left"
	default:
		return "rejected"
	}
}
