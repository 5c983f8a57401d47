package models

import (
	"database/sql"
	"time"

	"github.com/lib/pq"
)

// Player represents a registered user
type Player struct {
	ID          int       `db:"id" json:"id"`
	DisplayName string    `db:"display_name" json:"display_name"`
	PINHash     string    `db:"pin_hash" json:"-"`
	GamesPlayed int       `db:"games_played" json:"games_played"`
	GamesWon    int       `db:"games_won" json:"games_won"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// WinRate returns won/played as a percentage.
func (p Player) WinRate() float64 {
	if p.GamesPlayed == 0 {
		return 0
	}
	return float64(p.GamesWon) * 100 / float64(p.GamesPlayed)
}

// GameSession represents a game between two players
type GameSession struct {
	ID          int            `db:"id" json:"id"`
	GameToken   string         `db:"game_token" json:"game_token"`
	Player1ID   int            `db:"player1_id" json:"player1_id"`
	Player2ID   sql.NullInt64  `db:"player2_id" json:"player2_id,omitempty"`
	Status      string         `db:"status" json:"status"`
	WinnerID    sql.NullInt64  `db:"winner_id" json:"winner_id,omitempty"`
	WinType     sql.NullString `db:"win_type" json:"win_type,omitempty"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	StartedAt   sql.NullTime   `db:"started_at" json:"started_at,omitempty"`
	CompletedAt sql.NullTime   `db:"completed_at" json:"completed_at,omitempty"`
}

// GameShot represents one resolved shot in a game
type GameShot struct {
	ID         int           `db:"id" json:"id"`
	SessionID  int           `db:"session_id" json:"session_id"`
	PlayerID   int           `db:"player_id" json:"player_id"`
	ShotNumber int           `db:"shot_number" json:"shot_number"`
	AimDegrees float64       `db:"aim_degrees" json:"aim_degrees"`
	FirstHit   int           `db:"first_hit" json:"first_hit"`
	Pocketed   pq.Int64Array `db:"pocketed" json:"pocketed"`
	Foul       bool          `db:"foul" json:"foul"`
	TurnPassed bool          `db:"turn_passed" json:"turn_passed"`
	CreatedAt  time.Time     `db:"created_at" json:"created_at"`
}

// QueueEntry is one player's place in the quick-match queue
type QueueEntry struct {
	ID          int            `db:"id" json:"id"`
	PlayerID    int            `db:"player_id" json:"player_id"`
	DisplayName string         `db:"display_name" json:"display_name"`
	QueueToken  string         `db:"queue_token" json:"queue_token"`
	Status      string         `db:"status" json:"status"`
	GameToken   sql.NullString `db:"game_token" json:"game_token,omitempty"`
	PlayerToken sql.NullString `db:"player_token" json:"-"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	ExpiresAt   time.Time      `db:"expires_at" json:"expires_at"`
	MatchedAt   sql.NullTime   `db:"matched_at" json:"matched_at,omitempty"`
}
