package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"trade-chat/internal/models"
	"trade-chat/internal/relay"
	"trade-chat/internal/repositories"
)

// HistoryHandler serves the persisted transcript for trade chat rooms.
// Persistence lives here, not at the relay: the relay only fans out live
// frames, and clients rebuild state from this API plus the stream.
type HistoryHandler struct {
	messageRepo repositories.MessageRepository
	hub         *relay.Hub
}

// NewHistoryHandler builds a HistoryHandler.
func NewHistoryHandler(messageRepo repositories.MessageRepository, hub *relay.Hub) *HistoryHandler {
	return &HistoryHandler{messageRepo: messageRepo, hub: hub}
}

// GetRoomMessages returns a room's messages newest-first. Clients reverse
// to oldest-first before rendering.
func (h *HistoryHandler) GetRoomMessages(c *gin.Context) {
	tradeID, roomID, ok := parseIDs(c)
	if !ok {
		return
	}

	msgs, err := h.messageRepo.ListRoomMessages(c.Request.Context(), tradeID, roomID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// PostRoomMessage stores a text message and broadcasts it on the room's
// chat topic.
func (h *HistoryHandler) PostRoomMessage(c *gin.Context) {
	tradeID, roomID, ok := parseIDs(c)
	if !ok {
		return
	}

	var req struct {
		SenderID   int    `json:"sender_id" binding:"required"`
		SenderName string `json:"sender_name"`
		Body       string `json:"body" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if strings.TrimSpace(req.Body) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "empty message body"})
		return
	}

	msg, err := h.messageRepo.CreateMessage(c.Request.Context(), tradeID, roomID, req.SenderID, req.SenderName, req.Body)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store message"})
		return
	}

	if h.hub != nil {
		frame, err := models.NewFrame(models.ChatTopic(roomID), msg.Event())
		if err == nil {
			h.hub.BroadcastChat(strconv.Itoa(roomID), frame)
		}
	}

	c.JSON(http.StatusCreated, msg)
}

func parseIDs(c *gin.Context) (int, int, bool) {
	tradeID, err := strconv.Atoi(c.Param("trade_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid trade id"})
		return 0, 0, false
	}
	roomID, err := strconv.Atoi(c.Param("room_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room id"})
		return 0, 0, false
	}
	return tradeID, roomID, true
}
