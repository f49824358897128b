package handler

import (
	"net/http"

	"github.com/GoPolymarket/ginauditor/internal/pkg/logger"
	"github.com/gin-gonic/gin"
)

type StreamServer interface {
	ServeWS(w http.ResponseWriter, r *http.Request) error
}

type StreamHandler struct {
	hub StreamServer
}

func NewStreamHandler(hub StreamServer) *StreamHandler {
	return &StreamHandler{hub: hub}
}

// Serve upgrades GET /audit/stream to a websocket carrying live records.
// A failed upgrade has already been answered by the upgrader.
func (h *StreamHandler) Serve(c *gin.Context) {
	if err := h.hub.ServeWS(c.Writer, c.Request); err != nil {
		logger.Debug("audit stream upgrade failed", "error", err, "client_ip", c.ClientIP())
	}
}
