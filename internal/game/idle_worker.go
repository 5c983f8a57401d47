package game

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	idleWarningKey = "idle_warning"
	idleForfeitKey = "idle_forfeit"
	idleEvents     = "idle_events"
)

// idleMember formats the sorted-set member for a player in a match.
func idleMember(token, playerID string) string {
	return "g:" + token + ":p:" + playerID
}

// parseMember expects member format g:<gameToken>:p:<playerID>
func parseMember(m string) (string, string) {
	parts := strings.Split(m, ":")
	if len(parts) >= 4 && parts[0] == "g" && parts[2] == "p" {
		return parts[1], parts[3]
	}
	return "", ""
}

// ResetIdleTimers marks the shooter active now and schedules their warning and
// forfeit deadlines. The opponent's pending deadlines are dropped.
func (gm *GameManager) ResetIdleTimers(m *Match) {
	if gm == nil || gm.rdb == nil || gm.config == nil {
		return
	}
	ctx := context.Background()
	now := time.Now().Unix()

	shooter := m.CurrentTurn()
	opponent := m.GetOpponentID(shooter)
	if opponent != "" {
		om := idleMember(m.Token, opponent)
		gm.rdb.ZRem(ctx, idleWarningKey, om)
		gm.rdb.ZRem(ctx, idleForfeitKey, om)
	}

	member := idleMember(m.Token, shooter)
	gm.rdb.Set(ctx, "last_active:"+member, fmt.Sprintf("%d", now), 0)
	gm.rdb.ZAdd(ctx, idleWarningKey, redis.Z{Score: float64(now + int64(gm.config.IdleWarningSeconds)), Member: member})
	gm.rdb.ZAdd(ctx, idleForfeitKey, redis.Z{Score: float64(now + int64(gm.config.IdleForfeitSeconds)), Member: member})
}

func (gm *GameManager) clearIdleTimers(m *Match) {
	if gm == nil || gm.rdb == nil {
		return
	}
	ctx := context.Background()
	for _, p := range []*MatchPlayer{m.Player1, m.Player2} {
		if p == nil {
			continue
		}
		member := idleMember(m.Token, p.ID)
		gm.rdb.ZRem(ctx, idleWarningKey, member)
		gm.rdb.ZRem(ctx, idleForfeitKey, member)
		gm.rdb.Del(ctx, "last_active:"+member)
	}
}

// StartIdleWorker starts a background worker that processes idle warnings and forfeits using Redis sorted sets
func (gm *GameManager) StartIdleWorker(ctx context.Context) {
	if gm.rdb == nil || gm.config == nil {
		log.Println("[IDLE] Redis or config missing; idle worker not started")
		return
	}

	log.Println("[IDLE] Idle worker started")
	go func() {
		ticker := time.NewTicker(time.Duration(gm.config.IdleWorkerPollInterval) * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				log.Println("[IDLE] Idle worker stopping")
				return
			case <-ticker.C:
				now := time.Now()
				gm.processIdle(ctx, idleWarningKey, now, gm.warnIdle)
				gm.processIdle(ctx, idleForfeitKey, now, gm.forfeitIdle)
			}
		}
	}()
}

// processIdle claims every member of key that is due and hands it to fn.
func (gm *GameManager) processIdle(ctx context.Context, key string, now time.Time, fn func(ctx context.Context, m *Match, playerID string, lastActive time.Time)) {
	members, err := gm.rdb.ZRangeByScore(ctx, key, &redis.ZRangeBy{Min: "-inf", Max: fmt.Sprintf("%d", now.Unix())}).Result()
	if err != nil {
		log.Printf("[IDLE] Failed to fetch %s: %v", key, err)
		return
	}
	for _, member := range members {
		// Attempt to remove (race-safe)
		if removed, _ := gm.rdb.ZRem(ctx, key, member).Result(); removed == 0 {
			continue
		}
		token, playerID := parseMember(member)
		if token == "" || playerID == "" {
			continue
		}
		m, err := gm.GetMatchByToken(token)
		if err != nil {
			continue
		}
		// Only act while the game is running and it is still this player's turn
		if m.GetStatus() != StatusInProgress || m.CurrentTurn() != playerID {
			log.Printf("[IDLE] skipping %s for player %s in game %s", key, playerID, token)
			continue
		}
		last, _ := gm.rdb.Get(ctx, "last_active:"+member).Result()
		lastTs, _ := strconv.ParseInt(last, 10, 64)
		fn(ctx, m, playerID, time.Unix(lastTs, 0))
	}
}

func (gm *GameManager) warnIdle(ctx context.Context, m *Match, playerID string, lastActive time.Time) {
	if time.Since(lastActive) < time.Duration(gm.config.IdleWarningSeconds)*time.Second {
		return
	}
	forfeitAt := lastActive.Add(time.Duration(gm.config.IdleForfeitSeconds) * time.Second)
	remaining := int(time.Until(forfeitAt).Seconds())
	gm.publishIdle(ctx, map[string]interface{}{
		"type":              "player_idle_warning",
		"game_token":        m.Token,
		"game_id":           m.ID,
		"player":            playerID,
		"forfeit_at":        forfeitAt.Format(time.RFC3339),
		"remaining_seconds": remaining,
		"message":           "Player idle; will forfeit soon.",
	})
}

func (gm *GameManager) forfeitIdle(ctx context.Context, m *Match, playerID string, lastActive time.Time) {
	if time.Since(lastActive) < time.Duration(gm.config.IdleForfeitSeconds)*time.Second {
		return
	}
	log.Printf("[IDLE] Forfeiting player %s in game %s due to inactivity", playerID, m.Token)
	if err := m.Forfeit(playerID, "idle"); err != nil {
		log.Printf("[IDLE] forfeit failed: game=%s player=%s err=%v", m.Token, playerID, err)
		return
	}
	gm.publishIdle(ctx, map[string]interface{}{
		"type":          "player_forfeit",
		"game_token":    m.Token,
		"game_id":       m.ID,
		"player":        playerID,
		"message":       "Player forfeited due to inactivity",
		"player1_state": m.GetStateForPlayer(m.Player1.ID),
		"player2_state": m.GetStateForPlayer(m.Player2.ID),
	})
}

func (gm *GameManager) publishIdle(ctx context.Context, payload map[string]interface{}) {
	b, err := json.Marshal(payload)
	if err != nil {
		log.Printf("[IDLE] marshal %v failed: %v", payload["type"], err)
		return
	}
	if n, err := gm.rdb.Publish(ctx, idleEvents, b).Result(); err != nil {
		log.Printf("[IDLE] publish %v failed: game=%v err=%v", payload["type"], payload["game_token"], err)
	} else {
		log.Printf("[IDLE] published %v: game=%v player=%v subscribers=%d", payload["type"], payload["game_token"], payload["player"], n)
	}
}
