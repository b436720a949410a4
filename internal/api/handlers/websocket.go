package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"pairplan-service/internal/models"
	"pairplan-service/internal/realtime"
	"pairplan-service/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origin is validated by the CORS middleware before the upgrade
	CheckOrigin: func(r *http.Request) bool { return true },
}

type WSHandler struct {
	manager      *realtime.Manager
	eventService *services.EventService
	redisService *services.RedisService
}

func NewWSHandler(manager *realtime.Manager, eventService *services.EventService, redisService *services.RedisService) *WSHandler {
	return &WSHandler{
		manager:      manager,
		eventService: eventService,
		redisService: redisService,
	}
}

// EventRoom godoc
// @Summary Join an event room
// @Description Upgrade to a websocket scoped to one event. Chat and checklist updates for the event are pushed here. Admission failures close the socket with 1003 (no such event), 4003 (no access), or 1008 (quota exceeded).
// @Tags websocket
// @Param id path int true "Event ID"
// @Param token query string true "JWT access token"
// @Success 101 "Switching Protocols"
// @Failure 400 {object} models.ErrorResponse "Invalid event ID"
// @Failure 401 {object} models.ErrorResponse "Missing or invalid token"
// @Router /events/{id}/ws [get]
func (h *WSHandler) EventRoom(c *gin.Context) {
	userID := c.GetUint("user_id")

	eventID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Code:    http.StatusBadRequest,
			Message: "Invalid event ID",
		})
		return
	}
	roomID := uint(eventID)

	socket, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "user_id", userID, "error", err)
		return
	}

	conn := realtime.NewConnection(socket, userID, roomID)

	// Admission runs after the upgrade so the client gets a close code
	// instead of a failed handshake it cannot distinguish from a network error
	if _, err := h.eventService.CheckAccess(userID, roomID); err != nil {
		switch {
		case errors.Is(err, services.ErrEventNotFound):
			conn.CloseWithCode(realtime.CloseRoomNotFound, "event not found")
		case errors.Is(err, services.ErrEventForbidden):
			conn.CloseWithCode(realtime.CloseForbidden, "no access to this event")
		default:
			conn.CloseWithCode(realtime.CloseInternal, "admission check failed")
		}
		return
	}

	if err := h.manager.JoinRoom(roomID, conn); err != nil {
		switch {
		case errors.Is(err, realtime.ErrShuttingDown):
			conn.CloseWithCode(realtime.CloseGoingAway, "server shutting down")
		default:
			conn.CloseWithCode(realtime.ClosePolicy, err.Error())
		}
		return
	}

	slog.Info("event room joined", "user_id", userID, "event_id", roomID, "conn_id", conn.ID)
	h.manager.ReadLoop(conn)
}

// Presence godoc
// @Summary Open the presence connection
// @Description Upgrade to the per-user notification websocket. Partner, proposal, and calendar events are pushed here, and notifications queued while offline are flushed on connect. A newer connection replaces the old one.
// @Tags websocket
// @Param token query string true "JWT access token"
// @Success 101 "Switching Protocols"
// @Failure 401 {object} models.ErrorResponse "Missing or invalid token"
// @Router /partner/ws [get]
func (h *WSHandler) Presence(c *gin.Context) {
	userID := c.GetUint("user_id")

	socket, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "user_id", userID, "error", err)
		return
	}

	conn := realtime.NewConnection(socket, userID, 0)

	if err := h.manager.OpenPresence(conn); err != nil {
		switch {
		case errors.Is(err, realtime.ErrShuttingDown):
			conn.CloseWithCode(realtime.CloseGoingAway, "server shutting down")
		default:
			conn.CloseWithCode(realtime.ClosePolicy, err.Error())
		}
		return
	}

	if err := h.redisService.SetUserOnline(c.Request.Context(), userID); err != nil {
		slog.Warn("presence mirror update failed", "user_id", userID, "error", err)
	}

	slog.Info("presence opened", "user_id", userID, "conn_id", conn.ID)
	h.manager.ReadLoop(conn)

	// A replacement connection may already hold the slot, only mark the
	// user offline when this was the last presence connection
	if !h.manager.IsUserOnline(userID) {
		if err := h.redisService.SetUserOffline(c.Request.Context(), userID); err != nil {
			slog.Warn("presence mirror update failed", "user_id", userID, "error", err)
		}
	}
}
