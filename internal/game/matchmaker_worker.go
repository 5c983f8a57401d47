package game

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"time"

	"github.com/playmatatu/simplepool/internal/models"
)

var (
	ErrMatchmakingUnavailable = errors.New("matchmaking requires a database")
	ErrAlreadyQueued          = errors.New("player already queued")
	ErrQueueEntryNotFound     = errors.New("queue entry not found")
)

// Queue entry statuses
const (
	QueueQueued    = "queued"
	QueueMatched   = "matched"
	QueueCancelled = "cancelled"
	QueueExpired   = "expired"
)

// CreatePairedMatch seats two players in a new WAITING match and opens its session row.
func (gm *GameManager) CreatePairedMatch(a, b PlayerInfo) (*Match, error) {
	if a.DBPlayerID > 0 && a.DBPlayerID == b.DBPlayerID {
		return nil, ErrOwnGame
	}

	gm.mu.Lock()
	for _, info := range []PlayerInfo{a, b} {
		if info.DBPlayerID > 0 && gm.activeForDBPlayerLocked(info.DBPlayerID) {
			gm.mu.Unlock()
			return nil, ErrPlayerInGame
		}
	}
	p1, p2 := newMatchPlayer(a), newMatchPlayer(b)
	m := NewMatch(generateGameID(), generateToken(16), p1, p2, gm.matchOptions())
	m.AddSink(gm)
	gm.registerLocked(m, p1)
	gm.registerLocked(m, p2)
	gm.mu.Unlock()

	gm.createSession(m)
	log.Printf("[POOL] Paired match created: %s (token=%s) %s vs %s", m.ID, m.Token, p1.ID, p2.ID)
	go gm.saveMatchToRedis(m)
	return m, nil
}

func (gm *GameManager) isDBPlayerActive(dbPlayerID int) bool {
	gm.mu.RLock()
	defer gm.mu.RUnlock()
	return gm.activeForDBPlayerLocked(dbPlayerID)
}

// EnqueueQuickMatch puts a registered player in the quick-match queue and
// returns the entry the player polls for a seat.
func (gm *GameManager) EnqueueQuickMatch(ctx context.Context, info PlayerInfo) (*models.QueueEntry, error) {
	if gm.db == nil {
		return nil, ErrMatchmakingUnavailable
	}
	if gm.isDBPlayerActive(info.DBPlayerID) {
		return nil, ErrPlayerInGame
	}

	expiry := 5 * time.Minute
	if gm.config != nil && gm.config.QueueExpiryMinutes > 0 {
		expiry = time.Duration(gm.config.QueueExpiryMinutes) * time.Minute
	}

	var entry models.QueueEntry
	err := gm.db.QueryRowxContext(ctx, `
		INSERT INTO matchmaking_queue (player_id, queue_token, status, created_at, expires_at)
		VALUES ($1, $2, $3, NOW(), $4)
		ON CONFLICT (player_id) WHERE status = 'queued' DO NOTHING
		RETURNING id, player_id, queue_token, status, game_token, player_token, created_at, expires_at, matched_at
	`, info.DBPlayerID, "q_"+generateToken(12), QueueQueued, time.Now().Add(expiry)).StructScan(&entry)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAlreadyQueued
	}
	if err != nil {
		log.Printf("[MATCHMAKER] Failed to queue player %d: %v", info.DBPlayerID, err)
		return nil, err
	}
	entry.DisplayName = info.DisplayName

	log.Printf("[MATCHMAKER] Player %d queued (token=%s)", info.DBPlayerID, entry.QueueToken)
	return &entry, nil
}

// GetQueueEntry returns a player's own queue entry.
func (gm *GameManager) GetQueueEntry(ctx context.Context, queueToken string, dbPlayerID int) (*models.QueueEntry, error) {
	if gm.db == nil {
		return nil, ErrMatchmakingUnavailable
	}
	var entry models.QueueEntry
	err := gm.db.GetContext(ctx, &entry, `
		SELECT mq.id, mq.player_id, p.display_name, mq.queue_token, mq.status, mq.game_token,
		       mq.player_token, mq.created_at, mq.expires_at, mq.matched_at
		FROM matchmaking_queue mq
		JOIN players p ON mq.player_id = p.id
		WHERE mq.queue_token = $1 AND mq.player_id = $2
	`, queueToken, dbPlayerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrQueueEntryNotFound
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// CancelQuickMatch takes a still-queued entry out of the queue.
func (gm *GameManager) CancelQuickMatch(ctx context.Context, queueToken string, dbPlayerID int) error {
	if gm.db == nil {
		return ErrMatchmakingUnavailable
	}
	res, err := gm.db.ExecContext(ctx,
		`UPDATE matchmaking_queue SET status=$1 WHERE queue_token=$2 AND player_id=$3 AND status=$4`,
		QueueCancelled, queueToken, dbPlayerID, QueueQueued)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrQueueEntryNotFound
	}
	return nil
}

// StartMatchmakerWorker pairs queued players until ctx is done.
func (gm *GameManager) StartMatchmakerWorker(ctx context.Context) {
	if gm.db == nil {
		log.Println("[MATCHMAKER] No database; matchmaker not started")
		return
	}
	interval := 2 * time.Second
	if gm.config != nil && gm.config.MatchmakerPollSeconds > 0 {
		interval = time.Duration(gm.config.MatchmakerPollSeconds) * time.Second
	}

	log.Printf("[MATCHMAKER] Starting matchmaker worker (poll every %v)", interval)
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				log.Printf("[MATCHMAKER] Worker stopped")
				return
			case <-ticker.C:
				gm.processMatchmaking(ctx)
			}
		}
	}()
}

func (gm *GameManager) processMatchmaking(ctx context.Context) {
	if _, err := gm.db.ExecContext(ctx,
		`UPDATE matchmaking_queue SET status=$1 WHERE status=$2 AND expires_at <= NOW()`,
		QueueExpired, QueueQueued); err != nil {
		log.Printf("[MATCHMAKER] Failed to expire queue entries: %v", err)
	}

	for gm.tryMatchPair(ctx) {
	}
}

// tryMatchPair claims the two oldest queued players and seats them in a new
// match. It reports whether a pair was made.
func (gm *GameManager) tryMatchPair(ctx context.Context) bool {
	tx, err := gm.db.BeginTxx(ctx, nil)
	if err != nil {
		log.Printf("[MATCHMAKER] Failed to begin transaction: %v", err)
		return false
	}
	defer tx.Rollback()

	// SKIP LOCKED lets several instances run the worker without double-claiming
	var entries []models.QueueEntry
	err = tx.SelectContext(ctx, &entries, `
		SELECT mq.id, mq.player_id, p.display_name, mq.queue_token, mq.status, mq.game_token,
		       mq.player_token, mq.created_at, mq.expires_at, mq.matched_at
		FROM matchmaking_queue mq
		JOIN players p ON mq.player_id = p.id
		WHERE mq.status = $1
		  AND mq.expires_at > NOW()
		ORDER BY mq.created_at
		FOR UPDATE OF mq SKIP LOCKED
		LIMIT 2
	`, QueueQueued)
	if err != nil {
		log.Printf("[MATCHMAKER] Failed to query queued players: %v", err)
		return false
	}
	if len(entries) < 2 {
		return false
	}

	a, b := entries[0], entries[1]
	for _, e := range entries {
		if !gm.isDBPlayerActive(e.PlayerID) {
			continue
		}
		// Already seated elsewhere; drop the stale entry and try again
		if _, err := tx.ExecContext(ctx, `UPDATE matchmaking_queue SET status=$1 WHERE id=$2`, QueueCancelled, e.ID); err != nil {
			log.Printf("[MATCHMAKER] Failed to cancel entry %d: %v", e.ID, err)
			return false
		}
		return tx.Commit() == nil
	}

	m, err := gm.CreatePairedMatch(
		PlayerInfo{DBPlayerID: a.PlayerID, DisplayName: a.DisplayName},
		PlayerInfo{DBPlayerID: b.PlayerID, DisplayName: b.DisplayName},
	)
	if err != nil {
		log.Printf("[MATCHMAKER] Cannot pair %d vs %d: %v", a.PlayerID, b.PlayerID, err)
		return false
	}

	for i, p := range []*MatchPlayer{m.Player1, m.Player2} {
		_, err = tx.ExecContext(ctx, `
			UPDATE matchmaking_queue
			SET status=$1, matched_at=NOW(), game_token=$2, player_token=$3
			WHERE id=$4
		`, QueueMatched, m.Token, p.PlayerToken, entries[i].ID)
		if err != nil {
			log.Printf("[MATCHMAKER] Failed to update queue entry %d: %v", entries[i].ID, err)
			gm.EndMatch(m.ID)
			return false
		}
	}

	if err := tx.Commit(); err != nil {
		log.Printf("[MATCHMAKER] Failed to commit: %v", err)
		gm.EndMatch(m.ID)
		return false
	}

	log.Printf("[MATCHMAKER] ✓ Match created: token=%s players=[%d,%d]", m.Token, a.PlayerID, b.PlayerID)
	return true
}
