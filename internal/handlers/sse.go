package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/piyushagarwal-55/classroom-assignment-automatic-solver/internal/logger"
	"github.com/piyushagarwal-55/classroom-assignment-automatic-solver/internal/sse"
)

type SSEHandler struct {
	log *logger.Logger
	hub *sse.SSEHub
}

func NewSSEHandler(log *logger.Logger, hub *sse.SSEHub) *SSEHandler {
	return &SSEHandler{
		log: log.With("handler", "SSEHandler"),
		hub: hub,
	}
}

// GET /api/sse/stream
// Every stream subscribes to the caller's user channel, which is where
// solution and summary lifecycle events land.
func (h *SSEHandler) Stream(c *gin.Context) {
	userID := currentUserID(c)
	if userID == uuid.Nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	client := h.hub.NewSSEClient(userID)
	h.hub.AddChannel(client, userID.String())
	h.log.Debug("SSE stream open", "user_id", userID, "client_id", client.ID)

	h.hub.ServeHTTP(c.Writer, c.Request, client)

	h.hub.CloseClient(client)
	h.log.Debug("SSE stream closed", "user_id", userID, "client_id", client.ID)
}
