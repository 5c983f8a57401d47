// Command seed-players creates or resets development player accounts.
//
//	SEED_PLAYERS="alice:1234,bob:5678" go run ./cmd/seed-players
package main

import (
	"context"
	"log"
	"os"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/playmatatu/simplepool/internal/config"
	"github.com/playmatatu/simplepool/internal/database"
	"golang.org/x/crypto/bcrypt"
)

const defaultSeed = "alice:1234,bob:1234"

func main() {
	cfg := config.Load()
	if cfg.IsProduction() {
		log.Fatal("Refusing to seed players in production")
	}

	db, err := database.Connect(context.Background(), cfg.DatabaseURL, 3)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	seed := os.Getenv("SEED_PLAYERS")
	if seed == "" {
		seed = defaultSeed
		log.Printf("Using default players: %s", seed)
	}

	for _, entry := range strings.Split(seed, ",") {
		name, pin, ok := strings.Cut(strings.TrimSpace(entry), ":")
		if !ok || name == "" || pin == "" {
			log.Printf("Skipping malformed entry %q (want name:pin)", entry)
			continue
		}
		id, err := upsertPlayer(db, name, pin)
		if err != nil {
			log.Fatalf("Failed to seed %s: %v", name, err)
		}
		log.Printf("✓ Player %s seeded (id=%d)", name, id)
	}
}

// upsertPlayer creates the player or resets the PIN of an existing one.
func upsertPlayer(db *sqlx.DB, name, pin string) (int, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return 0, err
	}
	var id int
	err = db.QueryRow(`
		INSERT INTO players (display_name, pin_hash, created_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (display_name) DO UPDATE SET pin_hash = EXCLUDED.pin_hash
		RETURNING id
	`, name, string(hash)).Scan(&id)
	return id, err
}
