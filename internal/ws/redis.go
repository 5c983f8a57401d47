package ws

import (
	"context"
	"encoding/json"
	"log"

	"github.com/redis/go-redis/v9"
)

var rdbClient *redis.Client

// instanceID identifies match events published by this process. Those were
// already delivered through the hub sink.
var instanceID string

func SetRedisClient(r *redis.Client, instance string) {
	rdbClient = r
	instanceID = instance
}

// StartEventSubscriber subscribes to idle_events and game_events and forwards
// them to connected players.
func StartEventSubscriber(ctx context.Context) {
	if rdbClient == nil {
		log.Println("[WS] Redis client not set; event subscriber not started")
		return
	}

	pubsub := rdbClient.Subscribe(ctx, "idle_events", "game_events")
	ch := pubsub.Channel()
	go func() {
		defer pubsub.Close()
		log.Println("[WS] idle_events/game_events subscriber started")
		for msg := range ch {
			var payload map[string]interface{}
			if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
				log.Printf("[WS] invalid event payload: %v", err)
				continue
			}
			GameHub.handleEvent(payload)
		}
	}()
}

// handleEvent routes one pub/sub event to the game room it belongs to.
func (h *Hub) handleEvent(payload map[string]interface{}) {
	typeStr, _ := payload["type"].(string)
	gameID, _ := payload["game_id"].(string)
	if gameID == "" {
		gameID, _ = payload["game_token"].(string)
	}
	if h.RoomSize(gameID) == 0 {
		return
	}

	log.Printf("[WS] event received: type=%s game_id=%s", typeStr, gameID)

	switch typeStr {
	case "player_idle_warning":
		h.BroadcastToGame(gameID, map[string]interface{}{
			"type":              "player_idle_warning",
			"message":           payload["message"],
			"player":            payload["player"],
			"forfeit_at":        payload["forfeit_at"],
			"remaining_seconds": payload["remaining_seconds"],
		})

	case "player_forfeit":
		// The final game_over already went out through the match sink.
		h.BroadcastToGame(gameID, map[string]interface{}{
			"type":    "player_forfeit",
			"message": payload["message"],
			"player":  payload["player"],
		})

	case "session_cancelled":
		h.BroadcastToGame(gameID, map[string]interface{}{
			"type":    "session_cancelled",
			"message": payload["message"],
		})

	case "shot_result", "game_over":
		if from, _ := payload["instance"].(string); from != "" && from == instanceID {
			return
		}
		h.BroadcastToGame(gameID, payload)

	default:
		log.Printf("[WS] unknown event type: %s", typeStr)
	}
}
