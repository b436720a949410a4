package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"pairplan-service/internal/models"
	"pairplan-service/internal/services"

	"github.com/gin-gonic/gin"
)

type ProposalHandler struct {
	proposalService *services.ProposalService
}

func NewProposalHandler(proposalService *services.ProposalService) *ProposalHandler {
	return &ProposalHandler{proposalService: proposalService}
}

func proposalIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Code:    http.StatusBadRequest,
			Message: "Invalid proposal ID",
		})
		return 0, false
	}
	return uint(id), true
}

func (h *ProposalHandler) writeProposalError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrProposalNotFound):
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Code:    http.StatusNotFound,
			Message: "Proposal not found",
		})
	case errors.Is(err, services.ErrProposalForbidden):
		c.JSON(http.StatusForbidden, models.ErrorResponse{
			Code:    http.StatusForbidden,
			Message: "No access to this proposal",
		})
	case errors.Is(err, services.ErrNotProposalRecipient):
		c.JSON(http.StatusForbidden, models.ErrorResponse{
			Code:    http.StatusForbidden,
			Message: "Only the recipient can answer a proposal",
		})
	case errors.Is(err, services.ErrProposalNotPending):
		c.JSON(http.StatusConflict, models.ErrorResponse{
			Code:    http.StatusConflict,
			Message: "Proposal has already been answered",
		})
	case errors.Is(err, services.ErrSlotNotFound):
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Code:    http.StatusBadRequest,
			Message: "Slot does not belong to this proposal",
		})
	case errors.Is(err, services.ErrNotPartner):
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Code:    http.StatusBadRequest,
			Message: "Proposals can only be sent to your partner",
		})
	default:
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Code:    http.StatusInternalServerError,
			Message: "Proposal operation failed",
		})
	}
}

// List godoc
// @Summary List proposals
// @Description List proposals sent or received by the current user, newest first
// @Tags proposals
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Proposal
// @Router /proposals [get]
func (h *ProposalHandler) List(c *gin.Context) {
	userID := c.GetUint("user_id")

	proposals, err := h.proposalService.List(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Code:    http.StatusInternalServerError,
			Message: "Failed to list proposals",
		})
		return
	}

	c.JSON(http.StatusOK, proposals)
}

// Get godoc
// @Summary Get a proposal
// @Tags proposals
// @Produce json
// @Security BearerAuth
// @Param id path int true "Proposal ID"
// @Success 200 {object} models.Proposal
// @Failure 403 {object} models.ErrorResponse "No access to this proposal"
// @Failure 404 {object} models.ErrorResponse "Proposal not found"
// @Router /proposals/{id} [get]
func (h *ProposalHandler) Get(c *gin.Context) {
	userID := c.GetUint("user_id")

	proposalID, ok := proposalIDParam(c)
	if !ok {
		return
	}

	proposal, err := h.proposalService.Get(userID, proposalID)
	if err != nil {
		h.writeProposalError(c, err)
		return
	}

	c.JSON(http.StatusOK, proposal)
}

// Create godoc
// @Summary Propose a date
// @Description Create a date proposal with one or more candidate time slots for the partner
// @Tags proposals
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.CreateProposalRequest true "Proposal data"
// @Success 201 {object} models.Proposal
// @Failure 400 {object} models.ErrorResponse "Bad request"
// @Router /proposals [post]
func (h *ProposalHandler) Create(c *gin.Context) {
	userID := c.GetUint("user_id")

	var req models.CreateProposalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Code:    http.StatusBadRequest,
			Message: "Invalid input data",
			Details: err.Error(),
		})
		return
	}

	proposal, err := h.proposalService.Create(userID, &req)
	if err != nil {
		if errors.Is(err, services.ErrInvalidTimeRange) {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Code:    http.StatusBadRequest,
				Message: "Slot end time must be after start time",
			})
			return
		}
		h.writeProposalError(c, err)
		return
	}

	c.JSON(http.StatusCreated, proposal)
}

// Accept godoc
// @Summary Accept a proposal
// @Description Accept one of the proposed slots. A shared calendar event is created for the chosen window.
// @Tags proposals
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Proposal ID"
// @Param request body models.AcceptProposalRequest true "Chosen slot"
// @Success 200 {object} models.Proposal
// @Failure 403 {object} models.ErrorResponse "Only the recipient can accept"
// @Failure 404 {object} models.ErrorResponse "Proposal not found"
// @Failure 409 {object} models.ErrorResponse "Proposal already answered"
// @Router /proposals/{id}/accept [post]
func (h *ProposalHandler) Accept(c *gin.Context) {
	userID := c.GetUint("user_id")

	proposalID, ok := proposalIDParam(c)
	if !ok {
		return
	}

	var req models.AcceptProposalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Code:    http.StatusBadRequest,
			Message: "Invalid input data",
			Details: err.Error(),
		})
		return
	}

	proposal, event, err := h.proposalService.Accept(c.Request.Context(), userID, proposalID, req.SlotID)
	if err != nil {
		h.writeProposalError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"proposal": proposal,
		"event":    event,
	})
}

// Decline godoc
// @Summary Decline a proposal
// @Tags proposals
// @Produce json
// @Security BearerAuth
// @Param id path int true "Proposal ID"
// @Success 200 {object} models.Proposal
// @Failure 403 {object} models.ErrorResponse "Only the recipient can decline"
// @Failure 404 {object} models.ErrorResponse "Proposal not found"
// @Failure 409 {object} models.ErrorResponse "Proposal already answered"
// @Router /proposals/{id}/decline [post]
func (h *ProposalHandler) Decline(c *gin.Context) {
	userID := c.GetUint("user_id")

	proposalID, ok := proposalIDParam(c)
	if !ok {
		return
	}

	proposal, err := h.proposalService.Decline(userID, proposalID)
	if err != nil {
		h.writeProposalError(c, err)
		return
	}

	c.JSON(http.StatusOK, proposal)
}
