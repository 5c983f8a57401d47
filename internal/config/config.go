package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	// Environment
	Environment string

	// Database
	DatabaseURL    string
	MigrateOnStart bool

	// Redis
	RedisURL string

	// Server
	Port        string
	FrontendURL string

	// Game Settings
	GameExpiryMinutes      int
	IdleWarningSeconds     int
	IdleForfeitSeconds     int
	IdleWorkerPollInterval int // seconds
	TickRateHz             int
	MatchmakerPollSeconds  int
	QueueExpiryMinutes     int

	// Table
	ViewportWidth  float64
	ViewportHeight float64
	StrikeSpeed    float64

	// Local client
	AudioEnabled bool
	Player1Name  string
	Player2Name  string

	// Security
	JWTSecret         string
	SessionTimeoutMin int
	AdminToken        string // empty disables /admin
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	return &Config{
		// Environment
		Environment: getEnv("APP_ENV", "development"),

		// Database
		DatabaseURL:    getEnv("DATABASE_URL", "postgres://localhost:5432/simplepool?sslmode=disable"),
		MigrateOnStart: getEnvBool("MIGRATE_ON_START", true),

		// Redis
		RedisURL: getEnv("REDIS_URL", "redis://localhost:6379/0"),

		// Server
		Port:        getEnv("APP_PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),

		// Game Settings
		GameExpiryMinutes:      getEnvInt("GAME_EXPIRY_MINUTES", 10),
		IdleWarningSeconds:     getEnvInt("IDLE_WARNING_SECONDS", 45),
		IdleForfeitSeconds:     getEnvInt("IDLE_FORFEIT_SECONDS", 90),
		IdleWorkerPollInterval: getEnvInt("IDLE_WORKER_POLL_INTERVAL", 5),
		TickRateHz:             getEnvInt("TICK_RATE_HZ", 60),
		MatchmakerPollSeconds:  getEnvInt("MATCHMAKER_POLL_SECONDS", 2),
		QueueExpiryMinutes:     getEnvInt("QUEUE_EXPIRY_MINUTES", 5),

		// Table
		ViewportWidth:  getEnvFloat("VIEWPORT_WIDTH", 800),
		ViewportHeight: getEnvFloat("VIEWPORT_HEIGHT", 600),
		StrikeSpeed:    getEnvFloat("STRIKE_SPEED", 11),

		// Local client
		AudioEnabled: getEnvBool("AUDIO_ENABLED", true),
		Player1Name:  getEnv("PLAYER1_NAME", "PLAYER 1"),
		Player2Name:  getEnv("PLAYER2_NAME", "PLAYER 2"),

		// Security
		JWTSecret:         getEnv("JWT_SECRET", "change-me-in-production"),
		SessionTimeoutMin: getEnvInt("SESSION_TIMEOUT_MINUTES", 1440),
		AdminToken:        getEnv("ADMIN_TOKEN", ""),
	}
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
