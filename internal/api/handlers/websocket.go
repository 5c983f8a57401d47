package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/playmatatu/simplepool/internal/ws"
)

// HandleGameWebSocket handles real-time game communication
// GET /api/v1/game/:token/ws?pt=<player token>
func HandleGameWebSocket() gin.HandlerFunc {
	return ws.HandleWebSocket
}
