package game

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/lib/pq"
)

// The manager is itself a MatchSink: it persists every shot and the final
// result, and announces them on the game_events channel.

func (gm *GameManager) Frame(m *Match, f Frame)  {}
func (gm *GameManager) Sound(m *Match, ev Event) {}

func (gm *GameManager) ShotResolved(m *Match, r ShotReport) {
	gm.RecordShot(m, r)
	if err := gm.saveMatchToRedis(m); err != nil {
		log.Printf("[REDIS] Failed to save match %s: %v", m.Token, err)
	}
	gm.publishEvent("shot_result", m, map[string]interface{}{"result": r})
}

func (gm *GameManager) GameOver(m *Match) {
	gm.SaveFinalGameState(m)
	if err := gm.saveMatchToRedis(m); err != nil {
		log.Printf("[REDIS] Failed to save match %s: %v", m.Token, err)
	}
	gm.clearIdleTimers(m)

	m.mu.RLock()
	extra := map[string]interface{}{"winner": m.Winner, "win_type": m.WinType}
	m.mu.RUnlock()
	gm.publishEvent("game_over", m, extra)
}

// RecordShot stores one resolved shot in game_shots.
func (gm *GameManager) RecordShot(m *Match, r ShotReport) {
	if gm == nil || gm.db == nil {
		return
	}
	m.mu.RLock()
	sessionID := m.SessionID
	shotNumber := m.ShotNumber
	shooter := m.dbPlayerIDLocked(m.playerIDLocked(r.Player1Shot))
	aim := m.level.AimDegrees()
	m.mu.RUnlock()
	if sessionID == 0 || shooter == 0 {
		return
	}

	pocketed := make([]int64, len(r.PocketedBalls))
	for i, id := range r.PocketedBalls {
		pocketed[i] = int64(id)
	}

	_, err := gm.db.Exec(
		`INSERT INTO game_shots (session_id, player_id, shot_number, aim_degrees, first_hit, pocketed, foul, turn_passed, created_at) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,NOW())`,
		sessionID, shooter, shotNumber, aim, r.FirstHit, pq.Array(pocketed), r.Foul != nil, r.TurnChange,
	)
	if err != nil {
		log.Printf("[DB] Failed to record shot %d for session %d: %v", shotNumber, sessionID, err)
	}
}

// createSession persists a game_sessions row once both seats hold registered players.
func (gm *GameManager) createSession(m *Match) {
	if gm == nil || gm.db == nil {
		return
	}
	m.mu.RLock()
	p1, p2 := m.Player1.DBPlayerID, 0
	if m.Player2 != nil {
		p2 = m.Player2.DBPlayerID
	}
	token, status := m.Token, m.Status
	m.mu.RUnlock()
	if p1 == 0 || p2 == 0 {
		return
	}

	var sessionID int
	err := gm.db.QueryRowx(
		`INSERT INTO game_sessions (game_token, player1_id, player2_id, status, created_at) VALUES ($1, $2, $3, $4, NOW()) RETURNING id`,
		token, p1, p2, string(status),
	).Scan(&sessionID)
	if err != nil {
		log.Printf("[DB] Failed to create game_session for %s: %v", token, err)
		return
	}

	m.mu.Lock()
	m.SessionID = sessionID
	m.mu.Unlock()
}

// MarkSessionStarted updates the session row to IN_PROGRESS and sets started_at if it wasn't set.
func (gm *GameManager) MarkSessionStarted(sessionID int, startedAt time.Time) error {
	if gm == nil || gm.db == nil || sessionID == 0 {
		return nil
	}
	_, err := gm.db.Exec(`UPDATE game_sessions SET status=$1, started_at = COALESCE(started_at, $2) WHERE id=$3`, string(StatusInProgress), startedAt, sessionID)
	if err != nil {
		log.Printf("[DB] Failed to mark session %d as IN_PROGRESS: %v", sessionID, err)
	}
	return err
}

// SaveFinalGameState writes the outcome of a finished or cancelled match and
// updates both players' stats.
func (gm *GameManager) SaveFinalGameState(m *Match) {
	if gm == nil || gm.db == nil || m == nil {
		return
	}
	m.mu.RLock()
	sessionID := m.SessionID
	status, winType := m.Status, m.WinType
	winnerDBID := m.dbPlayerIDLocked(m.Winner)
	p1 := m.Player1.DBPlayerID
	p2 := 0
	if m.Player2 != nil {
		p2 = m.Player2.DBPlayerID
	}
	m.mu.RUnlock()
	if sessionID == 0 {
		return
	}

	log.Printf("[DB] SaveFinalGameState called for session=%d status=%s winner=%d", sessionID, status, winnerDBID)

	tx, err := gm.db.Beginx()
	if err != nil {
		log.Printf("[DB] Failed to begin tx for session %d: %v", sessionID, err)
		return
	}
	defer tx.Rollback()

	var winner interface{}
	if winnerDBID > 0 {
		winner = winnerDBID
	}
	if _, err := tx.Exec(`UPDATE game_sessions SET status=$1, winner_id=$2, win_type=$3, completed_at=NOW() WHERE id=$4`,
		string(status), winner, winType, sessionID); err != nil {
		log.Printf("[DB] Failed to update game_sessions for %d: %v", sessionID, err)
		return
	}

	if status == StatusCompleted {
		if _, err := tx.Exec(`UPDATE players SET games_played = games_played + 1 WHERE id = ANY($1)`, pq.Array([]int64{int64(p1), int64(p2)})); err != nil {
			log.Printf("[DB] Failed to update games_played for session %d: %v", sessionID, err)
			return
		}
		if winnerDBID > 0 {
			if _, err := tx.Exec(`UPDATE players SET games_won = games_won + 1 WHERE id = $1`, winnerDBID); err != nil {
				log.Printf("[DB] Failed to update winner stats for session %d: %v", sessionID, err)
				return
			}
		}
	}

	if err := tx.Commit(); err != nil {
		log.Printf("[DB] Failed to commit final state for session %d: %v", sessionID, err)
	}
}

func redisStateKey(token string) string {
	return "game:" + token + ":state"
}

// saveMatchToRedis saves the public match snapshot with a one hour TTL.
func (gm *GameManager) saveMatchToRedis(m *Match) error {
	if gm.rdb == nil {
		return nil
	}
	state := m.PublicState()
	state["game_type"] = "pool"

	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return gm.rdb.SetEx(context.Background(), redisStateKey(m.Token), data, time.Hour).Err()
}

// loadMatchStateFromRedis returns the last saved snapshot of a match.
func (gm *GameManager) loadMatchStateFromRedis(token string) (map[string]interface{}, error) {
	if gm.rdb == nil {
		return nil, errors.New("no redis client")
	}
	data, err := gm.rdb.Get(context.Background(), redisStateKey(token)).Bytes()
	if err != nil {
		return nil, err
	}
	var state map[string]interface{}
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, err
	}
	return state, nil
}

// publishEvent announces a match event on game_events. Subscribers on this
// instance ignore events carrying their own instance id.
func (gm *GameManager) publishEvent(eventType string, m *Match, extra map[string]interface{}) {
	if gm.rdb == nil {
		return
	}
	payload := map[string]interface{}{
		"type":       eventType,
		"game_token": m.Token,
		"game_id":    m.ID,
		"instance":   gm.instanceID,
	}
	for k, v := range extra {
		payload[k] = v
	}
	b, err := json.Marshal(payload)
	if err != nil {
		log.Printf("[REDIS] Failed to marshal %s event for %s: %v", eventType, m.Token, err)
		return
	}
	if n, err := gm.rdb.Publish(context.Background(), "game_events", b).Result(); err != nil {
		log.Printf("[REDIS] publish %s failed: %v", eventType, err)
	} else {
		log.Printf("[REDIS] published %s: game=%s subscribers=%d", eventType, m.Token, n)
	}
}
