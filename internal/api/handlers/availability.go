package handlers

import (
	"errors"
	"net/http"

	"pairplan-service/internal/models"
	"pairplan-service/internal/services"

	"github.com/gin-gonic/gin"
)

type AvailabilityHandler struct {
	availabilityService *services.AvailabilityService
}

func NewAvailabilityHandler(availabilityService *services.AvailabilityService) *AvailabilityHandler {
	return &AvailabilityHandler{availabilityService: availabilityService}
}

// FindSlots godoc
// @Summary Find mutual free slots
// @Description Compute windows where both partners are free for at least the requested duration
// @Tags availability
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.AvailabilityRequest true "Desired duration and date range"
// @Success 200 {array} models.AvailabilitySlot
// @Failure 400 {object} models.ErrorResponse "Bad request or no partner connected"
// @Router /availability/slots [post]
func (h *AvailabilityHandler) FindSlots(c *gin.Context) {
	userID := c.GetUint("user_id")

	var req models.AvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Code:    http.StatusBadRequest,
			Message: "Invalid input data",
			Details: err.Error(),
		})
		return
	}

	slots, err := h.availabilityService.FindSlots(c.Request.Context(), userID, &req)
	if err != nil {
		if errors.Is(err, services.ErrNoPartner) {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Code:    http.StatusBadRequest,
				Message: "Connect a partner before searching for mutual slots",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Code:    http.StatusInternalServerError,
			Message: "Failed to compute availability",
		})
		return
	}

	c.JSON(http.StatusOK, slots)
}
