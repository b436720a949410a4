package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"pairplan-service/internal/models"
	"pairplan-service/internal/services"

	"github.com/gin-gonic/gin"
)

type PartnerHandler struct {
	partnerService *services.PartnerService
}

func NewPartnerHandler(partnerService *services.PartnerService) *PartnerHandler {
	return &PartnerHandler{partnerService: partnerService}
}

// GetPartner godoc
// @Summary Get current partner
// @Description Get the connected partner's profile and partnership status
// @Tags partner
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.PartnerResponse
// @Failure 404 {object} models.ErrorResponse "No partner connected"
// @Router /partner [get]
func (h *PartnerHandler) GetPartner(c *gin.Context) {
	userID := c.GetUint("user_id")

	partner, err := h.partnerService.GetPartner(userID)
	if err != nil {
		if errors.Is(err, services.ErrNoPartner) {
			c.JSON(http.StatusNotFound, models.ErrorResponse{
				Code:    http.StatusNotFound,
				Message: "No partner connected",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Code:    http.StatusInternalServerError,
			Message: "Failed to get partner",
		})
		return
	}

	c.JSON(http.StatusOK, partner)
}

// PendingInvites godoc
// @Summary List pending partner invites
// @Description List invites addressed to the current user that have not been answered
// @Tags partner
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Partnership
// @Router /partner/invites [get]
func (h *PartnerHandler) PendingInvites(c *gin.Context) {
	userID := c.GetUint("user_id")

	invites, err := h.partnerService.PendingInvites(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Code:    http.StatusInternalServerError,
			Message: "Failed to list invites",
		})
		return
	}

	c.JSON(http.StatusOK, invites)
}

// Invite godoc
// @Summary Invite a partner by email
// @Tags partner
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.PartnerInviteRequest true "Partner email"
// @Success 201 {object} models.Partnership
// @Failure 400 {object} models.ErrorResponse "Bad request"
// @Failure 404 {object} models.ErrorResponse "No user with that email"
// @Failure 409 {object} models.ErrorResponse "Already partnered or invite pending"
// @Router /partner/invite [post]
func (h *PartnerHandler) Invite(c *gin.Context) {
	userID := c.GetUint("user_id")

	var req models.PartnerInviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Code:    http.StatusBadRequest,
			Message: "Invalid input data",
			Details: err.Error(),
		})
		return
	}

	invite, err := h.partnerService.Invite(userID, req.Email)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrCannotInviteSelf):
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Code:    http.StatusBadRequest,
				Message: "Cannot invite yourself",
			})
		case errors.Is(err, services.ErrUserNotFound):
			c.JSON(http.StatusNotFound, models.ErrorResponse{
				Code:    http.StatusNotFound,
				Message: "No user with that email",
			})
		case errors.Is(err, services.ErrAlreadyPartnered):
			c.JSON(http.StatusConflict, models.ErrorResponse{
				Code:    http.StatusConflict,
				Message: "Already partnered or invite pending",
			})
		default:
			c.JSON(http.StatusInternalServerError, models.ErrorResponse{
				Code:    http.StatusInternalServerError,
				Message: "Failed to create invite",
			})
		}
		return
	}

	c.JSON(http.StatusCreated, invite)
}

// Accept godoc
// @Summary Accept a partner invite
// @Tags partner
// @Produce json
// @Security BearerAuth
// @Param id path int true "Partnership ID"
// @Success 200 {object} models.PartnerResponse
// @Failure 403 {object} models.ErrorResponse "Not the invite recipient"
// @Failure 404 {object} models.ErrorResponse "Invite not found"
// @Router /partner/invites/{id}/accept [post]
func (h *PartnerHandler) Accept(c *gin.Context) {
	userID := c.GetUint("user_id")

	partnershipID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Code:    http.StatusBadRequest,
			Message: "Invalid partnership ID",
		})
		return
	}

	partner, err := h.partnerService.Accept(userID, uint(partnershipID))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInviteNotFound):
			c.JSON(http.StatusNotFound, models.ErrorResponse{
				Code:    http.StatusNotFound,
				Message: "Invite not found",
			})
		case errors.Is(err, services.ErrNotInviteRecipient):
			c.JSON(http.StatusForbidden, models.ErrorResponse{
				Code:    http.StatusForbidden,
				Message: "Only the invited user can accept",
			})
		default:
			c.JSON(http.StatusInternalServerError, models.ErrorResponse{
				Code:    http.StatusInternalServerError,
				Message: "Failed to accept invite",
			})
		}
		return
	}

	c.JSON(http.StatusOK, partner)
}

// Decline godoc
// @Summary Decline a partner invite
// @Tags partner
// @Produce json
// @Security BearerAuth
// @Param id path int true "Partnership ID"
// @Success 200 {object} models.MessageResponse
// @Failure 403 {object} models.ErrorResponse "Not the invite recipient"
// @Failure 404 {object} models.ErrorResponse "Invite not found"
// @Router /partner/invites/{id}/decline [post]
func (h *PartnerHandler) Decline(c *gin.Context) {
	userID := c.GetUint("user_id")

	partnershipID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Code:    http.StatusBadRequest,
			Message: "Invalid partnership ID",
		})
		return
	}

	if err := h.partnerService.Decline(userID, uint(partnershipID)); err != nil {
		switch {
		case errors.Is(err, services.ErrInviteNotFound):
			c.JSON(http.StatusNotFound, models.ErrorResponse{
				Code:    http.StatusNotFound,
				Message: "Invite not found",
			})
		case errors.Is(err, services.ErrNotInviteRecipient):
			c.JSON(http.StatusForbidden, models.ErrorResponse{
				Code:    http.StatusForbidden,
				Message: "Only the invited user can decline",
			})
		default:
			c.JSON(http.StatusInternalServerError, models.ErrorResponse{
				Code:    http.StatusInternalServerError,
				Message: "Failed to decline invite",
			})
		}
		return
	}

	c.JSON(http.StatusOK, models.MessageResponse{Message: "invite declined"})
}

// Disconnect godoc
// @Summary Disconnect from the current partner
// @Tags partner
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.MessageResponse
// @Failure 404 {object} models.ErrorResponse "No partner connected"
// @Router /partner [delete]
func (h *PartnerHandler) Disconnect(c *gin.Context) {
	userID := c.GetUint("user_id")

	if err := h.partnerService.Disconnect(userID); err != nil {
		if errors.Is(err, services.ErrNoPartner) {
			c.JSON(http.StatusNotFound, models.ErrorResponse{
				Code:    http.StatusNotFound,
				Message: "No partner connected",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Code:    http.StatusInternalServerError,
			Message: "Failed to disconnect",
		})
		return
	}

	c.JSON(http.StatusOK, models.MessageResponse{Message: "partner disconnected"})
}
