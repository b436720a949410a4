package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"pairplan-service/internal/models"
	"pairplan-service/internal/services"

	"github.com/gin-gonic/gin"
)

type EventHandler struct {
	eventService *services.EventService
}

func NewEventHandler(eventService *services.EventService) *EventHandler {
	return &EventHandler{eventService: eventService}
}

func eventIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Code:    http.StatusBadRequest,
			Message: "Invalid event ID",
		})
		return 0, false
	}
	return uint(id), true
}

func (h *EventHandler) writeEventError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrEventNotFound):
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Code:    http.StatusNotFound,
			Message: "Event not found",
		})
	case errors.Is(err, services.ErrEventForbidden):
		c.JSON(http.StatusForbidden, models.ErrorResponse{
			Code:    http.StatusForbidden,
			Message: "No access to this event",
		})
	case errors.Is(err, services.ErrInvalidTimeRange):
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Code:    http.StatusBadRequest,
			Message: "End time must be after start time",
		})
	case errors.Is(err, services.ErrMessageNotFound):
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Code:    http.StatusNotFound,
			Message: "Message not found",
		})
	case errors.Is(err, services.ErrNotMessageSender):
		c.JSON(http.StatusForbidden, models.ErrorResponse{
			Code:    http.StatusForbidden,
			Message: "Only the sender can delete a message",
		})
	case errors.Is(err, services.ErrChecklistNotFound):
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Code:    http.StatusNotFound,
			Message: "Checklist item not found",
		})
	case errors.Is(err, services.ErrNotItemCreator):
		c.JSON(http.StatusForbidden, models.ErrorResponse{
			Code:    http.StatusForbidden,
			Message: "Only the creator can delete a checklist item",
		})
	default:
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Code:    http.StatusInternalServerError,
			Message: "Event operation failed",
		})
	}
}

// List godoc
// @Summary List calendar events
// @Description List events of the current user and their partner in a time window. Partner events marked title-only come back masked.
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param from query string false "Window start (RFC3339), defaults to start of today"
// @Param to query string false "Window end (RFC3339), defaults to 30 days after from"
// @Success 200 {array} models.EventResponse
// @Failure 400 {object} models.ErrorResponse "Bad request"
// @Router /events [get]
func (h *EventHandler) List(c *gin.Context) {
	userID := c.GetUint("user_id")

	now := time.Now().UTC()
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if raw := c.Query("from"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Code:    http.StatusBadRequest,
				Message: "Invalid from timestamp, expected RFC3339",
			})
			return
		}
		from = parsed
	}

	to := from.AddDate(0, 0, 30)
	if raw := c.Query("to"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Code:    http.StatusBadRequest,
				Message: "Invalid to timestamp, expected RFC3339",
			})
			return
		}
		to = parsed
	}

	if !to.After(from) {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Code:    http.StatusBadRequest,
			Message: "to must be after from",
		})
		return
	}

	events, err := h.eventService.List(userID, from, to)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Code:    http.StatusInternalServerError,
			Message: "Failed to list events",
		})
		return
	}

	c.JSON(http.StatusOK, events)
}

// Get godoc
// @Summary Get an event
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param id path int true "Event ID"
// @Success 200 {object} models.EventResponse
// @Failure 403 {object} models.ErrorResponse "No access to this event"
// @Failure 404 {object} models.ErrorResponse "Event not found"
// @Router /events/{id} [get]
func (h *EventHandler) Get(c *gin.Context) {
	userID := c.GetUint("user_id")

	eventID, ok := eventIDParam(c)
	if !ok {
		return
	}

	event, err := h.eventService.Get(userID, eventID)
	if err != nil {
		h.writeEventError(c, err)
		return
	}

	c.JSON(http.StatusOK, event)
}

// Create godoc
// @Summary Create an event
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.CreateEventRequest true "Event data"
// @Success 201 {object} models.EventResponse
// @Failure 400 {object} models.ErrorResponse "Bad request"
// @Router /events [post]
func (h *EventHandler) Create(c *gin.Context) {
	userID := c.GetUint("user_id")

	var req models.CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Code:    http.StatusBadRequest,
			Message: "Invalid input data",
			Details: err.Error(),
		})
		return
	}

	event, err := h.eventService.Create(c.Request.Context(), userID, &req)
	if err != nil {
		h.writeEventError(c, err)
		return
	}

	c.JSON(http.StatusCreated, event)
}

// Update godoc
// @Summary Update an event
// @Description Creator or any attendee can update an event
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Event ID"
// @Param request body models.UpdateEventRequest true "Fields to update"
// @Success 200 {object} models.EventResponse
// @Failure 403 {object} models.ErrorResponse "No access to this event"
// @Failure 404 {object} models.ErrorResponse "Event not found"
// @Router /events/{id} [put]
func (h *EventHandler) Update(c *gin.Context) {
	userID := c.GetUint("user_id")

	eventID, ok := eventIDParam(c)
	if !ok {
		return
	}

	var req models.UpdateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Code:    http.StatusBadRequest,
			Message: "Invalid input data",
			Details: err.Error(),
		})
		return
	}

	event, err := h.eventService.Update(c.Request.Context(), userID, eventID, &req)
	if err != nil {
		h.writeEventError(c, err)
		return
	}

	c.JSON(http.StatusOK, event)
}

// Delete godoc
// @Summary Delete an event
// @Description Only the creator can delete an event
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param id path int true "Event ID"
// @Success 200 {object} models.MessageResponse
// @Failure 403 {object} models.ErrorResponse "Only the creator can delete"
// @Failure 404 {object} models.ErrorResponse "Event not found"
// @Router /events/{id} [delete]
func (h *EventHandler) Delete(c *gin.Context) {
	userID := c.GetUint("user_id")

	eventID, ok := eventIDParam(c)
	if !ok {
		return
	}

	if err := h.eventService.Delete(c.Request.Context(), userID, eventID); err != nil {
		h.writeEventError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.MessageResponse{Message: "event deleted"})
}

/** -------------------- MESSAGES -------------------- */

// ListMessages godoc
// @Summary List event chat messages
// @Description List messages of the event chat, newest page first. Use before to page backwards.
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param id path int true "Event ID"
// @Param limit query int false "Page size, default 20, max 100"
// @Param before query int false "Unix timestamp cursor, returns messages older than this"
// @Success 200 {array} models.EventMessageResponse
// @Failure 403 {object} models.ErrorResponse "No access to this event"
// @Failure 404 {object} models.ErrorResponse "Event not found"
// @Router /events/{id}/messages [get]
func (h *EventHandler) ListMessages(c *gin.Context) {
	userID := c.GetUint("user_id")

	eventID, ok := eventIDParam(c)
	if !ok {
		return
	}

	limit := 20
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Code:    http.StatusBadRequest,
				Message: "Invalid limit",
			})
			return
		}
		limit = parsed
	}

	var before *int64
	if raw := c.Query("before"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Code:    http.StatusBadRequest,
				Message: "Invalid before cursor",
			})
			return
		}
		before = &parsed
	}

	messages, err := h.eventService.ListMessages(userID, eventID, limit, before)
	if err != nil {
		h.writeEventError(c, err)
		return
	}

	c.JSON(http.StatusOK, messages)
}

// SendMessage godoc
// @Summary Send a chat message
// @Description Send a message to the event chat. Other room members receive it over the websocket.
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Event ID"
// @Param request body models.SendEventMessageRequest true "Message content"
// @Success 201 {object} models.EventMessageResponse
// @Failure 403 {object} models.ErrorResponse "No access to this event"
// @Failure 404 {object} models.ErrorResponse "Event not found"
// @Router /events/{id}/messages [post]
func (h *EventHandler) SendMessage(c *gin.Context) {
	userID := c.GetUint("user_id")

	eventID, ok := eventIDParam(c)
	if !ok {
		return
	}

	var req models.SendEventMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Code:    http.StatusBadRequest,
			Message: "Invalid input data",
			Details: err.Error(),
		})
		return
	}

	message, err := h.eventService.SendMessage(userID, eventID, &req)
	if err != nil {
		h.writeEventError(c, err)
		return
	}

	c.JSON(http.StatusCreated, message)
}

// DeleteMessage godoc
// @Summary Delete a chat message
// @Description Only the sender can delete a message
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param id path int true "Event ID"
// @Param messageId path int true "Message ID"
// @Success 200 {object} models.MessageResponse
// @Failure 403 {object} models.ErrorResponse "Only the sender can delete"
// @Failure 404 {object} models.ErrorResponse "Message not found"
// @Router /events/{id}/messages/{messageId} [delete]
func (h *EventHandler) DeleteMessage(c *gin.Context) {
	userID := c.GetUint("user_id")

	eventID, ok := eventIDParam(c)
	if !ok {
		return
	}

	messageID, err := strconv.ParseUint(c.Param("messageId"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Code:    http.StatusBadRequest,
			Message: "Invalid message ID",
		})
		return
	}

	if err := h.eventService.DeleteMessage(userID, eventID, uint(messageID)); err != nil {
		h.writeEventError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.MessageResponse{Message: "message deleted"})
}

/** -------------------- CHECKLIST -------------------- */

// ListChecklist godoc
// @Summary List checklist items
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param id path int true "Event ID"
// @Success 200 {array} models.ChecklistItem
// @Failure 403 {object} models.ErrorResponse "No access to this event"
// @Failure 404 {object} models.ErrorResponse "Event not found"
// @Router /events/{id}/checklist [get]
func (h *EventHandler) ListChecklist(c *gin.Context) {
	userID := c.GetUint("user_id")

	eventID, ok := eventIDParam(c)
	if !ok {
		return
	}

	items, err := h.eventService.ListChecklist(userID, eventID)
	if err != nil {
		h.writeEventError(c, err)
		return
	}

	c.JSON(http.StatusOK, items)
}

// CreateChecklistItem godoc
// @Summary Add a checklist item
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Event ID"
// @Param request body models.CreateChecklistItemRequest true "Item text"
// @Success 201 {object} models.ChecklistItem
// @Failure 403 {object} models.ErrorResponse "No access to this event"
// @Failure 404 {object} models.ErrorResponse "Event not found"
// @Router /events/{id}/checklist [post]
func (h *EventHandler) CreateChecklistItem(c *gin.Context) {
	userID := c.GetUint("user_id")

	eventID, ok := eventIDParam(c)
	if !ok {
		return
	}

	var req models.CreateChecklistItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Code:    http.StatusBadRequest,
			Message: "Invalid input data",
			Details: err.Error(),
		})
		return
	}

	item, err := h.eventService.CreateChecklistItem(userID, eventID, &req)
	if err != nil {
		h.writeEventError(c, err)
		return
	}

	c.JSON(http.StatusCreated, item)
}

// UpdateChecklistItem godoc
// @Summary Update a checklist item
// @Description Either attendee can edit the text or toggle completion
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Event ID"
// @Param itemId path int true "Checklist item ID"
// @Param request body models.UpdateChecklistItemRequest true "Fields to update"
// @Success 200 {object} models.ChecklistItem
// @Failure 403 {object} models.ErrorResponse "No access to this event"
// @Failure 404 {object} models.ErrorResponse "Item not found"
// @Router /events/{id}/checklist/{itemId} [put]
func (h *EventHandler) UpdateChecklistItem(c *gin.Context) {
	userID := c.GetUint("user_id")

	eventID, ok := eventIDParam(c)
	if !ok {
		return
	}

	itemID, err := strconv.ParseUint(c.Param("itemId"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Code:    http.StatusBadRequest,
			Message: "Invalid checklist item ID",
		})
		return
	}

	var req models.UpdateChecklistItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Code:    http.StatusBadRequest,
			Message: "Invalid input data",
			Details: err.Error(),
		})
		return
	}

	item, err := h.eventService.UpdateChecklistItem(userID, eventID, uint(itemID), &req)
	if err != nil {
		h.writeEventError(c, err)
		return
	}

	c.JSON(http.StatusOK, item)
}

// DeleteChecklistItem godoc
// @Summary Delete a checklist item
// @Description Only the creator can delete a checklist item
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param id path int true "Event ID"
// @Param itemId path int true "Checklist item ID"
// @Success 200 {object} models.MessageResponse
// @Failure 403 {object} models.ErrorResponse "Only the creator can delete"
// @Failure 404 {object} models.ErrorResponse "Item not found"
// @Router /events/{id}/checklist/{itemId} [delete]
func (h *EventHandler) DeleteChecklistItem(c *gin.Context) {
	userID := c.GetUint("user_id")

	eventID, ok := eventIDParam(c)
	if !ok {
		return
	}

	itemID, err := strconv.ParseUint(c.Param("itemId"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Code:    http.StatusBadRequest,
			Message: "Invalid checklist item ID",
		})
		return
	}

	if err := h.eventService.DeleteChecklistItem(userID, eventID, uint(itemID)); err != nil {
		h.writeEventError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.MessageResponse{Message: "checklist item deleted"})
}
