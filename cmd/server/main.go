package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/playmatatu/simplepool/internal/api"
	"github.com/playmatatu/simplepool/internal/config"
	"github.com/playmatatu/simplepool/internal/database"
	"github.com/playmatatu/simplepool/internal/game"
	"github.com/playmatatu/simplepool/internal/migrations"
	"github.com/playmatatu/simplepool/internal/redis"
	"github.com/playmatatu/simplepool/internal/ws"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize configuration (also reads .env when present)
	cfg := config.Load()

	// Initialize database
	db, err := database.Connect(ctx, cfg.DatabaseURL, 5)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if cfg.MigrateOnStart {
		log.Println("↗ Running DB migrations on startup...")
		if err := migrations.RunMigrations(cfg.DatabaseURL, "migrations"); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
	}

	// Initialize Redis
	rdb, err := redis.Connect(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer rdb.Close()

	// Game manager, expiry checker, idle worker and quick-match pairing
	game.InitializeManager(ctx, db, rdb, cfg)
	game.Manager.StartIdleWorker(ctx)
	game.Manager.StartMatchmakerWorker(ctx)

	// Cross-instance events for connected players
	ws.SetRedisClient(rdb, game.Manager.InstanceID())
	ws.StartEventSubscriber(ctx)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	api.SetupRoutes(router, db, rdb, cfg)

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: router}
	go func() {
		log.Printf("Starting SimplePool server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
}
