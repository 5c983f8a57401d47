package handlers

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/playmatatu/simplepool/internal/game"
	"github.com/playmatatu/simplepool/internal/ws"
	"golang.org/x/crypto/bcrypt"
)

// UpdateDisplayName renames the caller and refreshes any live match they sit in
// PUT /api/v1/player/me/display-name
func UpdateDisplayName(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		pid, ok := playerIDFromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		var body struct {
			DisplayName string `json:"display_name"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		name := strings.TrimSpace(body.DisplayName)
		if err := validateDisplayName(name); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		res, err := db.Exec(`UPDATE players SET display_name=$1 WHERE id=$2`, name, pid)
		if err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code == "23505" {
				c.JSON(http.StatusConflict, gin.H{"error": "display name already taken"})
				return
			}
			log.Printf("[DB] Failed to update display_name for %d: %v", pid, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update display_name"})
			return
		}
		if rows, _ := res.RowsAffected(); rows == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "player not found"})
			return
		}

		for _, m := range game.Manager.UpdateDisplayName(pid, name) {
			ws.NotifyStateChanged(m)
		}

		c.JSON(http.StatusOK, gin.H{"status": "ok", "display_name": name})
	}
}

// ChangePIN replaces the caller's PIN after checking the current one
// PUT /api/v1/player/me/pin
func ChangePIN(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		pid, ok := playerIDFromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		var req struct {
			CurrentPIN string `json:"current_pin"`
			NewPIN     string `json:"new_pin"`
		}
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "current_pin and new_pin required"})
			return
		}
		newPIN := strings.TrimSpace(req.NewPIN)
		if len(newPIN) < 4 || len(newPIN) > 6 || !isDigits(newPIN) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "PIN must be 4 to 6 digits"})
			return
		}

		var current string
		if err := db.Get(&current, `SELECT pin_hash FROM players WHERE id=$1`, pid); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "player not found"})
			return
		}
		if bcrypt.CompareHashAndPassword([]byte(current), []byte(strings.TrimSpace(req.CurrentPIN))) != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "current PIN is incorrect"})
			return
		}

		pinHash, err := bcrypt.GenerateFromPassword([]byte(newPIN), bcrypt.DefaultCost)
		if err != nil {
			log.Printf("[AUTH] ChangePIN bcrypt error: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		if _, err := db.Exec(`UPDATE players SET pin_hash=$1 WHERE id=$2`, string(pinHash), pid); err != nil {
			log.Printf("[DB] ChangePIN failed for %d: %v", pid, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}
