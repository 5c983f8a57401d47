package handlers

import (
	"crypto/subtle"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/playmatatu/simplepool/internal/config"
	"github.com/playmatatu/simplepool/internal/game"
)

const adminTokenHeader = "X-Admin-Token"

// AdminTokenMiddleware guards admin routes with the ADMIN_TOKEN shared secret.
// Without a configured token the admin routes do not exist.
func AdminTokenMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.AdminToken == "" {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		got := c.GetHeader(adminTokenHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(cfg.AdminToken)) != 1 {
			log.Printf("[ADMIN] Rejected admin request from %s to %s", c.ClientIP(), c.FullPath())
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
			return
		}
		c.Next()
	}
}

// GetAdminGames returns a paginated list of persisted game sessions
// GET /api/v1/admin/games?status=all|waiting|active|completed|cancelled
func GetAdminGames(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if db == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "database not configured"})
			return
		}
		status := c.DefaultQuery("status", "all")
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "25"))
		offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
		if limit <= 0 || limit > 200 {
			limit = 25
		}
		if offset < 0 {
			offset = 0
		}

		type gameRow struct {
			ID          int     `db:"id" json:"id"`
			GameToken   string  `db:"game_token" json:"game_token"`
			Player1Name *string `db:"player1_name" json:"player1_name"`
			Player2Name *string `db:"player2_name" json:"player2_name"`
			Status      string  `db:"status" json:"status"`
			WinnerID    *int    `db:"winner_id" json:"winner_id"`
			WinType     *string `db:"win_type" json:"win_type"`
			Shots       int     `db:"shots" json:"shots"`
			CreatedAt   string  `db:"created_at" json:"created_at"`
			CompletedAt *string `db:"completed_at" json:"completed_at"`
			TotalCount  int     `db:"total_count" json:"-"`
		}

		query := `
			SELECT gs.id, gs.game_token,
				p1.display_name as player1_name,
				p2.display_name as player2_name,
				gs.status, gs.winner_id, gs.win_type,
				(SELECT COUNT(*) FROM game_shots s WHERE s.session_id = gs.id) as shots,
				to_char(gs.created_at, 'YYYY-MM-DD"T"HH24:MI:SS"Z"') as created_at,
				to_char(gs.completed_at, 'YYYY-MM-DD"T"HH24:MI:SS"Z"') as completed_at,
				COUNT(*) OVER() as total_count
			FROM game_sessions gs
			LEFT JOIN players p1 ON gs.player1_id = p1.id
			LEFT JOIN players p2 ON gs.player2_id = p2.id
			WHERE ($1 = 'all'
				OR ($1 = 'waiting' AND gs.status = 'WAITING')
				OR ($1 = 'active' AND gs.status = 'IN_PROGRESS')
				OR ($1 = 'completed' AND gs.status = 'COMPLETED')
				OR ($1 = 'cancelled' AND gs.status = 'CANCELLED'))
			ORDER BY gs.created_at DESC
			LIMIT $2 OFFSET $3
		`

		rows := []gameRow{}
		if err := db.Select(&rows, query, status, limit, offset); err != nil {
			log.Printf("[ADMIN] Failed to fetch games: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch games"})
			return
		}

		total := 0
		if len(rows) > 0 {
			total = rows[0].TotalCount
		}
		c.JSON(http.StatusOK, gin.H{"games": rows, "total": total, "limit": limit, "offset": offset})
	}
}

// GetLiveGames lists the matches held in memory by this instance
// GET /api/v1/admin/games/live
func GetLiveGames() gin.HandlerFunc {
	return func(c *gin.Context) {
		games := game.Manager.ListMatches()
		c.JSON(http.StatusOK, gin.H{"games": games, "total": len(games)})
	}
}

// AdminCancelGame cancels a stuck waiting or in-progress match
// POST /api/v1/admin/games/:token/cancel {"reason": "..."}
func AdminCancelGame() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Reason string `json:"reason" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Reason is required"})
			return
		}

		token := c.Param("token")
		if err := game.Manager.AbortMatch(token, req.Reason); err != nil {
			c.JSON(gameErrorStatus(err), gin.H{"error": err.Error()})
			return
		}

		log.Printf("[ADMIN] %s cancelled game %s: %s", c.ClientIP(), token, req.Reason)
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}
