package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	apperrors "giveaway-engine-backend/internal/common/errors"
	"giveaway-engine-backend/internal/common/middleware"
	"giveaway-engine-backend/internal/features/giveaway/models"
	giveawayservice "giveaway-engine-backend/internal/features/giveaway/service"
)

type GiveawayHandler struct {
	service giveawayservice.GiveawayService
	logger  zerolog.Logger
}

func NewGiveawayHandler(service giveawayservice.GiveawayService, logger zerolog.Logger) *GiveawayHandler {
	return &GiveawayHandler{
		service: service,
		logger:  logger,
	}
}

func (h *GiveawayHandler) RegisterRoutes(router *gin.RouterGroup) {
	giveaways := router.Group("/giveaways")
	{
		giveaways.POST("", h.create)
		giveaways.GET("", h.list)
		giveaways.GET("/:id", h.getByID)
		giveaways.GET("/:id/entrants", h.getEntrants)
		giveaways.POST("/:id/enter", h.enter)
		giveaways.POST("/:id/withdraw", h.withdraw)
		giveaways.POST("/:id/end", h.endNow)
		giveaways.POST("/:id/cancel", h.cancel)
	}
}

// EnterRequest is the body of an entry submission.
type EnterRequest struct {
	ParticipantID string   `json:"participant_id" binding:"required"`
	Roles         []string `json:"roles"`
}

// WithdrawRequest is the body of an entry withdrawal.
type WithdrawRequest struct {
	ParticipantID string `json:"participant_id" binding:"required"`
}

// OutcomeResponse wraps non-error outcomes of enter and withdraw requests.
// A rejected entry is a normal response, not an HTTP failure.
type OutcomeResponse struct {
	GiveawayID string `json:"giveaway_id"`
	Outcome    string `json:"outcome"`
}

// @title Giveaway Engine API
// @version 1.0
// @description Lifecycle engine for channel giveaways

// @Summary Create a giveaway
// @Description Creates a giveaway in the scheduled status with the given window and prize
// @Tags giveaways
// @Accept json
// @Produce json
// @Param input body models.GiveawayCreate true "Giveaway parameters"
// @Success 201 {object} models.GiveawayResponse
// @Failure 400 {object} middleware.ErrorResponse "Validation error"
// @Failure 500 {object} middleware.ErrorResponse "Internal server error"
// @Router /giveaways [post]
func (h *GiveawayHandler) create(c *gin.Context) {
	var input models.GiveawayCreate
	if err := c.ShouldBindJSON(&input); err != nil {
		middleware.SendError(c, apperrors.Wrap(err, apperrors.ErrCodeBadRequest, "invalid request body"), h.logger)
		return
	}

	giveaway, err := h.service.Create(c.Request.Context(), &input)
	if err != nil {
		middleware.SendError(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, giveaway)
}

// @Summary List giveaways
// @Description Lists giveaways, optionally filtered by status, creator or channel
// @Tags giveaways
// @Accept json
// @Produce json
// @Param status query string false "Comma-separated statuses to include"
// @Param creator_id query string false "Filter by creator"
// @Param channel_id query string false "Filter by channel"
// @Success 200 {array} models.GiveawayResponse
// @Failure 400 {object} middleware.ErrorResponse "Unknown status value"
// @Router /giveaways [get]
func (h *GiveawayHandler) list(c *gin.Context) {
	filter := models.ListFilter{
		CreatorID: c.Query("creator_id"),
		ChannelID: c.Query("channel_id"),
	}

	if raw := c.Query("status"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			status := models.GiveawayStatus(strings.TrimSpace(part))
			if !status.Valid() {
				middleware.SendError(c, apperrors.NewValidationError("status", "unknown status value").
					WithDetail("value", string(status)), h.logger)
				return
			}
			filter.Statuses = append(filter.Statuses, status)
		}
	}

	giveaways, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		middleware.SendError(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, giveaways)
}

// @Summary Get giveaway by ID
// @Description Returns a giveaway with its entrant count and, once ended, its winners
// @Tags giveaways
// @Accept json
// @Produce json
// @Param id path string true "Giveaway ID"
// @Success 200 {object} models.GiveawayResponse
// @Failure 404 {object} middleware.ErrorResponse "Giveaway not found"
// @Router /giveaways/{id} [get]
func (h *GiveawayHandler) getByID(c *gin.Context) {
	giveaway, err := h.service.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		middleware.SendError(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, giveaway)
}

// @Summary Get entrants
// @Description Returns the participant ids currently entered in a giveaway
// @Tags giveaways
// @Accept json
// @Produce json
// @Param id path string true "Giveaway ID"
// @Success 200 {array} string
// @Failure 404 {object} middleware.ErrorResponse "Giveaway not found"
// @Router /giveaways/{id}/entrants [get]
func (h *GiveawayHandler) getEntrants(c *gin.Context) {
	entrants, err := h.service.Entrants(c.Request.Context(), c.Param("id"))
	if err != nil {
		middleware.SendError(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, gin.H{"entrants": entrants, "count": len(entrants)})
}

// @Summary Enter a giveaway
// @Description Records an entry for a participant. Rejections (already entered, not eligible, giveaway not open) come back as outcomes with status 200.
// @Tags giveaways
// @Accept json
// @Produce json
// @Param id path string true "Giveaway ID"
// @Param input body EnterRequest true "Participant and their role ids"
// @Success 200 {object} OutcomeResponse
// @Failure 400 {object} middleware.ErrorResponse "Invalid request body"
// @Failure 404 {object} middleware.ErrorResponse "Giveaway not found"
// @Router /giveaways/{id}/enter [post]
func (h *GiveawayHandler) enter(c *gin.Context) {
	var input EnterRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		middleware.SendError(c, apperrors.Wrap(err, apperrors.ErrCodeBadRequest, "invalid request body"), h.logger)
		return
	}

	giveawayID := c.Param("id")
	outcome, err := h.service.Enter(c.Request.Context(), giveawayID, input.ParticipantID, input.Roles)
	if err != nil {
		middleware.SendError(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, OutcomeResponse{GiveawayID: giveawayID, Outcome: string(outcome)})
}

// @Summary Withdraw from a giveaway
// @Description Removes a participant's entry while the giveaway still accepts entries
// @Tags giveaways
// @Accept json
// @Produce json
// @Param id path string true "Giveaway ID"
// @Param input body WithdrawRequest true "Participant"
// @Success 200 {object} OutcomeResponse
// @Failure 400 {object} middleware.ErrorResponse "Invalid request body"
// @Failure 404 {object} middleware.ErrorResponse "Giveaway not found"
// @Router /giveaways/{id}/withdraw [post]
func (h *GiveawayHandler) withdraw(c *gin.Context) {
	var input WithdrawRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		middleware.SendError(c, apperrors.Wrap(err, apperrors.ErrCodeBadRequest, "invalid request body"), h.logger)
		return
	}

	giveawayID := c.Param("id")
	outcome, err := h.service.Withdraw(c.Request.Context(), giveawayID, input.ParticipantID)
	if err != nil {
		middleware.SendError(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, OutcomeResponse{GiveawayID: giveawayID, Outcome: string(outcome)})
}

// @Summary End a giveaway now
// @Description Finalizes an active giveaway immediately: draws winners and commits them with the transition to ended
// @Tags giveaways
// @Accept json
// @Produce json
// @Param id path string true "Giveaway ID"
// @Success 200 {object} models.FinalizeOutcome
// @Failure 404 {object} middleware.ErrorResponse "Giveaway not found"
// @Failure 409 {object} middleware.ErrorResponse "Giveaway is not active"
// @Router /giveaways/{id}/end [post]
func (h *GiveawayHandler) endNow(c *gin.Context) {
	outcome, err := h.service.EndNow(c.Request.Context(), c.Param("id"))
	if err != nil {
		middleware.SendError(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, outcome)
}

// @Summary Cancel a giveaway
// @Description Cancels a scheduled or active giveaway without winner selection
// @Tags giveaways
// @Accept json
// @Produce json
// @Param id path string true "Giveaway ID"
// @Success 200 {object} models.CancelOutcome
// @Failure 404 {object} middleware.ErrorResponse "Giveaway not found"
// @Failure 409 {object} middleware.ErrorResponse "Giveaway is terminal or already finalizing"
// @Router /giveaways/{id}/cancel [post]
func (h *GiveawayHandler) cancel(c *gin.Context) {
	outcome, err := h.service.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		middleware.SendError(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, outcome)
}
