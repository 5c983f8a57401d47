package handlers

import (
	"database/sql"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/playmatatu/simplepool/internal/config"
	"github.com/playmatatu/simplepool/internal/game"
	"github.com/playmatatu/simplepool/internal/models"
)

// seatResponse tells a player how to connect to their seat.
func seatResponse(m *game.Match, p *game.MatchPlayer) gin.H {
	return gin.H{
		"game_id":      m.ID,
		"game_token":   m.Token,
		"player_id":    p.ID,
		"player_token": p.PlayerToken,
		"ws_url":       "/api/v1/game/" + m.Token + "/ws?pt=" + p.PlayerToken,
	}
}

// playerInfo builds the seat info of the authenticated player.
func playerInfo(c *gin.Context) (game.PlayerInfo, bool) {
	pid, ok := playerIDFromContext(c)
	if !ok {
		return game.PlayerInfo{}, false
	}
	return game.PlayerInfo{DBPlayerID: pid, DisplayName: c.GetString("display_name")}, true
}

// CreateGame opens a match with the caller as player 1
// POST /api/v1/game
func CreateGame() gin.HandlerFunc {
	return func(c *gin.Context) {
		info, ok := playerInfo(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		m, p1, err := game.Manager.CreateMatch(info)
		if err != nil {
			c.JSON(gameErrorStatus(err), gin.H{"error": err.Error()})
			return
		}

		resp := seatResponse(m, p1)
		resp["status"] = m.GetStatus()
		resp["expires_at"] = m.ExpiresAt
		c.JSON(http.StatusCreated, resp)
	}
}

// JoinGame seats the caller as player 2
// POST /api/v1/game/:token/join
func JoinGame() gin.HandlerFunc {
	return func(c *gin.Context) {
		info, ok := playerInfo(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		m, p2, err := game.Manager.JoinMatch(c.Param("token"), info)
		if err != nil {
			c.JSON(gameErrorStatus(err), gin.H{"error": err.Error()})
			return
		}

		resp := seatResponse(m, p2)
		resp["opponent"] = m.Player1.DisplayName
		c.JSON(http.StatusOK, resp)
	}
}

// CreateTestGame creates a match with two anonymous players (dev only)
// POST /api/v1/game/test
func CreateTestGame(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.IsProduction() {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}

		m, err := game.Manager.CreateTestMatch()
		if err != nil {
			log.Printf("[POOL] CreateTestMatch failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create game"})
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"game_id":    m.ID,
			"game_token": m.Token,
			"player1":    seatResponse(m, m.Player1),
			"player2":    seatResponse(m, m.Player2),
		})
	}
}

// GetGameState returns the public snapshot of a game, or a player's own view
// when ?pt=<player token> is given.
// GET /api/v1/game/:token
func GetGameState() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Param("token")

		if pt := c.Query("pt"); pt != "" {
			m, err := game.Manager.GetMatchByToken(token)
			if err != nil {
				c.JSON(http.StatusNotFound, gin.H{"error": "Game not found"})
				return
			}
			p := m.PlayerByToken(pt)
			if p == nil {
				c.JSON(http.StatusForbidden, gin.H{"error": "invalid player token"})
				return
			}
			c.JSON(http.StatusOK, m.GetStateForPlayer(p.ID))
			return
		}

		state, err := game.Manager.GetPublicState(token)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Game not found"})
			return
		}
		c.JSON(http.StatusOK, state)
	}
}

// GetGameShots returns the recorded shots of a persisted game
// GET /api/v1/game/:token/shots
func GetGameShots(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var session models.GameSession
		err := db.Get(&session, `SELECT id, game_token, player1_id, player2_id, status, winner_id, win_type, created_at, started_at, completed_at FROM game_sessions WHERE game_token=$1`, c.Param("token"))
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Game not found"})
			return
		}
		if err != nil {
			log.Printf("[DB] GetGameShots session lookup failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		shots := []models.GameShot{}
		if err := db.Select(&shots, `SELECT id, session_id, player_id, shot_number, aim_degrees, first_hit, pocketed, foul, turn_passed, created_at FROM game_shots WHERE session_id=$1 ORDER BY shot_number`, session.ID); err != nil {
			log.Printf("[DB] GetGameShots failed for session %d: %v", session.ID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"session": session, "shots": shots})
	}
}
