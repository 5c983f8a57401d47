package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/playmatatu/simplepool/internal/game"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeClient(h *Hub, playerID, gameID string) *Client {
	c := &Client{playerID: playerID, gameID: gameID, send: make(chan []byte, 8)}
	h.mu.Lock()
	h.addClientLocked(c)
	h.mu.Unlock()
	return c
}

func drain(t *testing.T, c *Client) map[string]interface{} {
	t.Helper()
	select {
	case data := <-c.send:
		var msg map[string]interface{}
		require.NoError(t, json.Unmarshal(data, &msg))
		return msg
	default:
		t.Fatalf("no message queued for %s", c.playerID)
		return nil
	}
}

func assertEmpty(t *testing.T, c *Client) {
	t.Helper()
	select {
	case data := <-c.send:
		t.Fatalf("unexpected message for %s: %s", c.playerID, data)
	default:
	}
}

func TestBroadcastReachesOnlyTheRoom(t *testing.T) {
	h := NewHub()
	a := fakeClient(h, "a", "g1")
	b := fakeClient(h, "b", "g1")
	other := fakeClient(h, "c", "g2")

	h.BroadcastToGame("g1", map[string]interface{}{"type": "ping"})

	assert.Equal(t, "ping", drain(t, a)["type"])
	assert.Equal(t, "ping", drain(t, b)["type"])
	assertEmpty(t, other)
	assert.Equal(t, 2, h.RoomSize("g1"))
}

func TestReplacedClientIsNotRemovedTwice(t *testing.T) {
	h := NewHub()
	first := fakeClient(h, "a", "g1")
	second := fakeClient(h, "a", "g1")

	h.mu.Lock()
	assert.False(t, h.removeClientLocked(first), "stale connection must not evict the new one")
	h.mu.Unlock()

	h.SendToPlayer("a", map[string]interface{}{"type": "hello"})
	assert.Equal(t, "hello", drain(t, second)["type"])
	assertEmpty(t, first)

	h.mu.Lock()
	assert.True(t, h.removeClientLocked(second))
	h.mu.Unlock()
	assert.Zero(t, h.RoomSize("g1"))
}

func TestHandleEventSkipsOwnMatchEvents(t *testing.T) {
	h := NewHub()
	c := fakeClient(h, "a", "g1")
	SetRedisClient(nil, "me")
	t.Cleanup(func() { SetRedisClient(nil, "") })

	h.handleEvent(map[string]interface{}{"type": "shot_result", "game_id": "g1", "instance": "me"})
	assertEmpty(t, c)

	h.handleEvent(map[string]interface{}{"type": "shot_result", "game_id": "g1", "instance": "other"})
	assert.Equal(t, "shot_result", drain(t, c)["type"])

	h.handleEvent(map[string]interface{}{"type": "session_cancelled", "game_id": "g1", "instance": "me", "message": "bye"})
	msg := drain(t, c)
	assert.Equal(t, "session_cancelled", msg["type"])
	assert.Equal(t, "bye", msg["message"])
}

func TestHandleEventIdleWarning(t *testing.T) {
	h := NewHub()
	c := fakeClient(h, "a", "g1")

	h.handleEvent(map[string]interface{}{
		"type":              "player_idle_warning",
		"game_token":        "g1",
		"player":            "a",
		"remaining_seconds": 30,
	})
	msg := drain(t, c)
	assert.Equal(t, "player_idle_warning", msg["type"])
	assert.Equal(t, "a", msg["player"])
	assert.EqualValues(t, 30, msg["remaining_seconds"])

	h.handleEvent(map[string]interface{}{"type": "player_idle_warning", "game_id": "nobody-here"})
	assertEmpty(t, c)
}

func TestHubSinkMessages(t *testing.T) {
	h := NewHub()
	c := fakeClient(h, "a", "g1")
	s := &hubSink{hub: h}
	m := &game.Match{ID: "g1"}

	s.Frame(m, game.Frame{Sprites: []game.SpriteDraw{{Sprite: game.SpriteTable, X: 50, Y: 114}}})
	frame := drain(t, c)
	assert.Equal(t, "frame", frame["type"])
	assert.Len(t, frame["sprites"], 1)

	s.Sound(m, game.Event{Kind: game.EventRailCollided, BodyID: 3})
	sound := drain(t, c)
	assert.Equal(t, "rail_collided", sound["event"])
	assert.EqualValues(t, 3, sound["body_id"])
}

func readUntil(t *testing.T, conn *websocket.Conn, msgType string) map[string]interface{} {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		conn.SetReadDeadline(deadline)
		var msg map[string]interface{}
		require.NoError(t, conn.ReadJSON(&msg))
		if msg["type"] == msgType {
			return msg
		}
	}
	t.Fatalf("no %s message before deadline", msgType)
	return nil
}

func TestWebSocketMatchFlow(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	prev := game.Manager
	game.Manager = game.NewGameManager(ctx, nil, nil, nil)
	t.Cleanup(func() { game.Manager = prev })

	m, err := game.Manager.CreateTestMatch()
	require.NoError(t, err)

	r := gin.New()
	r.GET("/game/:token/ws", HandleWebSocket)
	srv := httptest.NewServer(r)
	defer srv.Close()

	base := "ws" + strings.TrimPrefix(srv.URL, "http") + "/game/" + m.Token + "/ws?pt="

	_, resp, err := websocket.DefaultDialer.Dial(base+"bogus", nil)
	require.Error(t, err)
	assert.Equal(t, 403, resp.StatusCode)

	p1, _, err := websocket.DefaultDialer.Dial(base+m.Player1.PlayerToken, nil)
	require.NoError(t, err)
	defer p1.Close()
	readUntil(t, p1, "waiting_for_opponent")

	p2, _, err := websocket.DefaultDialer.Dial(base+m.Player2.PlayerToken, nil)
	require.NoError(t, err)
	defer p2.Close()

	readUntil(t, p1, "game_starting")
	readUntil(t, p2, "game_starting")
	state := readUntil(t, p1, "game_state")
	assert.Equal(t, true, state["my_turn"])

	require.NoError(t, p2.WriteJSON(map[string]interface{}{"type": "strike"}))
	errMsg := readUntil(t, p2, "error")
	assert.Equal(t, game.ErrNotYourTurn.Error(), errMsg["message"])

	require.NoError(t, p1.WriteJSON(map[string]interface{}{"type": "strike"}))
	sound := readUntil(t, p2, "sound")
	assert.Equal(t, "cue_struck", sound["event"])
	readUntil(t, p2, "frame")

	m.Stop()
}
