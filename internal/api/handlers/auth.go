package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/playmatatu/simplepool/internal/config"
	"github.com/playmatatu/simplepool/internal/models"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

const (
	maxLoginFailures = 5
	loginLockout     = 15 * time.Minute
)

type credentials struct {
	DisplayName string `json:"display_name"`
	PIN         string `json:"pin"`
}

// bind reads and validates a register/login body, writing the error response itself.
func (cr *credentials) bind(c *gin.Context) bool {
	if err := c.BindJSON(cr); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "display_name and pin required"})
		return false
	}
	cr.DisplayName = strings.TrimSpace(cr.DisplayName)
	cr.PIN = strings.TrimSpace(cr.PIN)

	if err := validateDisplayName(cr.DisplayName); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	if len(cr.PIN) < 4 || len(cr.PIN) > 6 || !isDigits(cr.PIN) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "PIN must be 4 to 6 digits"})
		return false
	}
	return true
}

// Register creates a player and returns a session token
// POST /api/v1/auth/register
func Register(db *sqlx.DB, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req credentials
		if !req.bind(c) {
			return
		}

		pinHash, err := bcrypt.GenerateFromPassword([]byte(req.PIN), bcrypt.DefaultCost)
		if err != nil {
			log.Printf("[AUTH] Register bcrypt error: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		var player models.Player
		err = db.QueryRowx(
			`INSERT INTO players (display_name, pin_hash, created_at) VALUES ($1, $2, NOW())
			 RETURNING id, display_name, pin_hash, games_played, games_won, created_at`,
			req.DisplayName, string(pinHash),
		).StructScan(&player)
		if err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code == "23505" {
				c.JSON(http.StatusConflict, gin.H{"error": "display name already taken"})
				return
			}
			log.Printf("[AUTH] Register insert failed for %s: %v", req.DisplayName, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		respondWithToken(c, cfg, player, http.StatusCreated)
	}
}

// Login verifies a PIN and returns a session token. Repeated failures lock
// the name for a while.
// POST /api/v1/auth/login
func Login(db *sqlx.DB, rdb *redis.Client, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req credentials
		if !req.bind(c) {
			return
		}

		ctx := c.Request.Context()
		failKey := "login_fail:" + strings.ToLower(req.DisplayName)
		if rdb != nil {
			if n, err := rdb.Get(ctx, failKey).Int(); err == nil && n >= maxLoginFailures {
				ttl, _ := rdb.TTL(ctx, failKey).Result()
				c.JSON(http.StatusTooManyRequests, gin.H{
					"error":         "too many failed attempts",
					"retry_seconds": int(ttl.Seconds()),
				})
				return
			}
		}

		var player models.Player
		err := db.Get(&player, `SELECT id, display_name, pin_hash, games_played, games_won, created_at FROM players WHERE display_name=$1`, req.DisplayName)
		if err == nil {
			err = bcrypt.CompareHashAndPassword([]byte(player.PINHash), []byte(req.PIN))
		}
		if err != nil {
			recordLoginFailure(ctx, rdb, failKey)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid display name or PIN"})
			return
		}

		if rdb != nil {
			rdb.Del(ctx, failKey)
		}
		respondWithToken(c, cfg, player, http.StatusOK)
	}
}

func recordLoginFailure(ctx context.Context, rdb *redis.Client, key string) {
	if rdb == nil {
		return
	}
	pipe := rdb.TxPipeline()
	pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, loginLockout)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("[AUTH] failed to record login failure: %v", err)
	}
}

func respondWithToken(c *gin.Context, cfg *config.Config, player models.Player, status int) {
	signed, err := IssueToken(cfg, player.ID, player.DisplayName)
	if err != nil {
		log.Printf("[AUTH] Failed to sign token: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"token": signed, "player": player})
}

// IssueToken signs an HS256 session token for a player.
func IssueToken(cfg *config.Config, playerID int, displayName string) (string, error) {
	ttl := time.Duration(cfg.SessionTimeoutMin) * time.Minute
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	claims := jwt.MapClaims{
		"player_id":    playerID,
		"display_name": displayName,
		"exp":          time.Now().Add(ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.JWTSecret))
}

// AuthMiddleware validates bearer JWT and sets player_id and display_name in context
func AuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}
		token := strings.TrimPrefix(auth, "Bearer ")

		parsed, err := jwt.Parse(token, func(token *jwt.Token) (interface{}, error) {
			if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
				return nil, fmt.Errorf("unexpected signing method")
			}
			return []byte(cfg.JWTSecret), nil
		})
		if err != nil || !parsed.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		claims, ok := parsed.Claims.(jwt.MapClaims)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		playerIDf, ok := claims["player_id"].(float64)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		name, _ := claims["display_name"].(string)

		c.Set("player_id", int(playerIDf))
		c.Set("display_name", name)
		c.Next()
	}
}

// GetMe returns the authenticated player's profile and stats
// GET /api/v1/player/me
func GetMe(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		pid, ok := playerIDFromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		var player models.Player
		if err := db.Get(&player, `SELECT id, display_name, pin_hash, games_played, games_won, created_at FROM players WHERE id=$1`, pid); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "player not found"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"id":           player.ID,
			"display_name": player.DisplayName,
			"games_played": player.GamesPlayed,
			"games_won":    player.GamesWon,
			"win_rate":     player.WinRate(),
			"created_at":   player.CreatedAt,
		})
	}
}
