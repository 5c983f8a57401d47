package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/playmatatu/simplepool/internal/game"
)

// JoinQueue puts the caller in the quick-match queue
// POST /api/v1/matchmaking
func JoinQueue() gin.HandlerFunc {
	return func(c *gin.Context) {
		info, ok := playerInfo(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		entry, err := game.Manager.EnqueueQuickMatch(c.Request.Context(), info)
		if err != nil {
			c.JSON(gameErrorStatus(err), gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusAccepted, gin.H{
			"queue_token": entry.QueueToken,
			"status":      entry.Status,
			"expires_at":  entry.ExpiresAt,
		})
	}
}

// QueueStatus reports whether the caller has been paired yet. Once matched it
// carries the same seat info as JoinGame.
// GET /api/v1/matchmaking/:queue_token
func QueueStatus() gin.HandlerFunc {
	return func(c *gin.Context) {
		pid, ok := playerIDFromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		entry, err := game.Manager.GetQueueEntry(c.Request.Context(), c.Param("queue_token"), pid)
		if err != nil {
			c.JSON(gameErrorStatus(err), gin.H{"error": err.Error()})
			return
		}

		resp := gin.H{
			"queue_token": entry.QueueToken,
			"status":      entry.Status,
			"expires_at":  entry.ExpiresAt,
		}
		if entry.Status == game.QueueMatched && entry.GameToken.Valid {
			token, pt := entry.GameToken.String, entry.PlayerToken.String
			resp["game_token"] = token
			resp["player_token"] = pt
			resp["ws_url"] = "/api/v1/game/" + token + "/ws?pt=" + pt
		}
		c.JSON(http.StatusOK, resp)
	}
}

// LeaveQueue cancels the caller's queue entry
// DELETE /api/v1/matchmaking/:queue_token
func LeaveQueue() gin.HandlerFunc {
	return func(c *gin.Context) {
		pid, ok := playerIDFromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		if err := game.Manager.CancelQuickMatch(c.Request.Context(), c.Param("queue_token"), pid); err != nil {
			c.JSON(gameErrorStatus(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": game.QueueCancelled})
	}
}
