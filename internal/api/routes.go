package api

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/playmatatu/simplepool/internal/api/handlers"
	"github.com/playmatatu/simplepool/internal/config"
	"github.com/playmatatu/simplepool/internal/middleware"
	"github.com/redis/go-redis/v9"
)

// SetupRoutes configures all API routes
func SetupRoutes(router *gin.Engine, db *sqlx.DB, rdb *redis.Client, cfg *config.Config) {
	router.Use(middleware.CORSMiddleware(cfg))

	if !cfg.IsProduction() {
		router.Use(func(c *gin.Context) {
			c.Header("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
			c.Header("Pragma", "no-cache")
			c.Header("Expires", "0")
			c.Next()
		})
		log.Println("[DEV MODE] no-cache headers enabled for all routes")
	}

	router.GET("/health", handlers.HealthCheck)

	// API v1 group
	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", handlers.HealthCheck)

		auth := v1.Group("/auth")
		{
			auth.POST("/register", handlers.Register(db, cfg))
			auth.POST("/login", handlers.Login(db, rdb, cfg))
		}

		requireAuth := handlers.AuthMiddleware(cfg)

		game := v1.Group("/game")
		{
			game.POST("", requireAuth, handlers.CreateGame())
			game.POST("/test", handlers.CreateTestGame(cfg)) // Dev only
			game.GET("/:token", handlers.GetGameState())
			game.POST("/:token/join", requireAuth, handlers.JoinGame())
			game.GET("/:token/shots", handlers.GetGameShots(db))
			game.GET("/:token/ws", middleware.WebSocketCORSCheck(cfg), handlers.HandleGameWebSocket())
		}

		matchmaking := v1.Group("/matchmaking", requireAuth)
		{
			matchmaking.POST("", handlers.JoinQueue())
			matchmaking.GET("/:queue_token", handlers.QueueStatus())
			matchmaking.DELETE("/:queue_token", handlers.LeaveQueue())
		}

		admin := v1.Group("/admin", handlers.AdminTokenMiddleware(cfg))
		{
			admin.GET("/games", handlers.GetAdminGames(db))
			admin.GET("/games/live", handlers.GetLiveGames())
			admin.POST("/games/:token/cancel", handlers.AdminCancelGame())
		}

		player := v1.Group("/player")
		{
			player.GET("/me", requireAuth, handlers.GetMe(db))
			player.PUT("/me/display-name", requireAuth, handlers.UpdateDisplayName(db))
			player.PUT("/me/pin", requireAuth, handlers.ChangePIN(db))
		}
	}
}
