package ws

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/playmatatu/simplepool/internal/game"
)

// GameHub is the single hub for all games.
var GameHub *Hub

func init() {
	GameHub = NewHub()
	go runGameHub(GameHub)
}

// HandleWebSocket upgrades /game/:token/ws?pt=<player token>.
func HandleWebSocket(c *gin.Context) {
	gameToken := c.Param("token")
	if gameToken == "" {
		gameToken = c.Query("token")
	}
	playerToken := c.Query("pt")

	if gameToken == "" || playerToken == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "token and pt required"})
		return
	}
	if game.Manager == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "game manager not ready"})
		return
	}

	m, err := game.Manager.GetMatchByToken(gameToken)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "game not found"})
		return
	}

	p := m.PlayerByToken(playerToken)
	if p == nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "invalid player token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[WS] Upgrade error: %v", err)
		return
	}

	client := &Client{
		conn:       conn,
		playerID:   p.ID,
		opponentID: m.GetOpponentID(p.ID),
		gameID:     m.ID,
		gameToken:  gameToken,
		send:       make(chan []byte, 256),
	}

	GameHub.register <- client

	go client.writePump()
	go client.readPump()
}

// runGameHub serializes connects and disconnects.
func runGameHub(h *Hub) {
	for {
		select {
		case client := <-h.register:
			h.onRegister(client)
		case client := <-h.unregister:
			h.onUnregister(client)
		}
	}
}

func (h *Hub) onRegister(client *Client) {
	h.mu.Lock()
	old := h.addClientLocked(client)
	h.mu.Unlock()

	isReconnect := old != nil
	if isReconnect {
		log.Printf("[WS] Player %s reconnecting - closing old connection", client.playerID)
		if err := old.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "replaced by new connection"), time.Now().Add(5*time.Second)); err != nil {
			log.Printf("[WS] Error writing close control to old client %s: %v", old.playerID, err)
		}
		// Its readPump fails on the closed conn and unregisters it.
		old.conn.Close()
	}

	log.Printf("[WS] Player %s connected to game %s", client.playerID, client.gameID)

	m, err := game.Manager.GetMatchByToken(client.gameToken)
	if err != nil {
		log.Printf("[WS] Game not found for token %s: %v", client.gameToken, err)
		return
	}
	h.attach(m)

	client.opponentID = m.GetOpponentID(client.playerID)
	m.SetPlayerConnected(client.playerID, true)

	status := m.GetStatus()
	switch {
	case status == game.StatusWaiting && m.BothPlayersConnected():
		log.Printf("[WS] Both players connected - scheduling start of game %s", m.ID)
		go func(m *game.Match) {
			time.Sleep(150 * time.Millisecond)
			if m.GetStatus() != game.StatusWaiting || !m.BothPlayersConnected() {
				return
			}
			if err := game.Manager.StartMatch(m); err != nil {
				log.Printf("[WS] Start failed for %s: %v", m.ID, err)
				return
			}
			h.BroadcastToGame(m.ID, map[string]interface{}{
				"type":    "game_starting",
				"message": "Both players connected! Break shot...",
			})
			h.sendStates(m, "game_state")
			game.Manager.ResetIdleTimers(m)
		}(m)

	case status == game.StatusWaiting:
		client.sendJSON(map[string]interface{}{
			"type":    "waiting_for_opponent",
			"message": "Waiting for opponent...",
		})

	default:
		state := m.GetStateForPlayer(client.playerID)
		state["type"] = "game_state"
		client.sendJSON(state)
	}

	if isReconnect && status == game.StatusInProgress {
		h.BroadcastToGame(client.gameID, map[string]interface{}{
			"type":    "player_connected",
			"player":  client.playerID,
			"message": "Opponent connected",
		})
	}
}

func (h *Hub) onUnregister(client *Client) {
	h.mu.Lock()
	removed := h.removeClientLocked(client)
	h.mu.Unlock()
	// readPump has returned, so nothing sends on client.send any more.
	close(client.send)
	if !removed {
		return
	}

	log.Printf("[WS] Player %s disconnected from game %s", client.playerID, client.gameID)

	m, err := game.Manager.GetMatchByToken(client.gameToken)
	if err != nil {
		return
	}
	m.SetPlayerConnected(client.playerID, false)
	if m.GetStatus() != game.StatusInProgress {
		return
	}

	go func(playerID string) {
		time.Sleep(500 * time.Millisecond)
		p := m.GetPlayerByID(playerID)
		if p == nil || p.Connected || p.DisconnectedAt == nil {
			return
		}
		h.BroadcastToGame(m.ID, map[string]interface{}{
			"type":            "player_disconnected",
			"player":          playerID,
			"disconnected_at": p.DisconnectedAt.Unix(),
			"message":         "Opponent disconnected",
		})
	}(client.playerID)
}

// attach registers the hub as a sink of m once.
func (h *Hub) attach(m *game.Match) {
	h.mu.Lock()
	if h.attached[m.ID] {
		h.mu.Unlock()
		return
	}
	h.attached[m.ID] = true
	h.mu.Unlock()
	m.AddSink(&hubSink{hub: h})
}

// NotifyStateChanged pushes a fresh game_update to both players of m.
func NotifyStateChanged(m *game.Match) {
	GameHub.sendStates(m, "game_update")
}

// sendStates sends each seated player their own view of m.
func (h *Hub) sendStates(m *game.Match, msgType string) {
	for _, p := range m.Players() {
		state := m.GetStateForPlayer(p.ID)
		state["type"] = msgType
		h.SendToPlayer(p.ID, state)
	}
}

// hubSink streams a running match to its room.
type hubSink struct {
	hub *Hub
}

func (s *hubSink) Frame(m *game.Match, f game.Frame) {
	s.hub.BroadcastToGame(m.ID, map[string]interface{}{
		"type":    "frame",
		"sprites": f.Sprites,
	})
}

func (s *hubSink) Sound(m *game.Match, ev game.Event) {
	s.hub.BroadcastToGame(m.ID, map[string]interface{}{
		"type":    "sound",
		"event":   ev.Kind.String(),
		"body_id": ev.BodyID,
	})
}

func (s *hubSink) ShotResolved(m *game.Match, r game.ShotReport) {
	state := m.PublicState()
	s.hub.BroadcastToGame(m.ID, map[string]interface{}{
		"type":        "shot_result",
		"result":      r,
		"next_turn":   state["current_turn"],
		"shot_number": state["shot_number"],
	})
	if !r.GameOver && game.Manager != nil {
		game.Manager.ResetIdleTimers(m)
	}
	s.hub.sendStates(m, "game_update")
}

func (s *hubSink) GameOver(m *game.Match) {
	state := m.PublicState()
	s.hub.BroadcastToGame(m.ID, map[string]interface{}{
		"type":     "game_over",
		"winner":   state["winner"],
		"win_type": state["win_type"],
	})
	s.hub.sendStates(m, "game_state")

	s.hub.mu.Lock()
	delete(s.hub.attached, m.ID)
	s.hub.mu.Unlock()
}

// readPump reads messages for pool games.
func (c *Client) readPump() {
	defer func() {
		GameHub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(65536)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[WS] unexpected close for player %s: %v", c.playerID, err)
			}
			break
		}

		var msg WSMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			c.sendError("Invalid message")
			continue
		}

		c.handleMessage(msg)
	}
}

// handleMessage processes incoming pool game messages.
func (c *Client) handleMessage(msg WSMessage) {
	m, err := game.Manager.GetMatchByToken(c.gameToken)
	if err != nil {
		c.sendError("Game not found")
		return
	}

	switch msg.Type {
	case "aim":
		var data AimData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("Invalid aim data")
			return
		}
		if err := m.Submit(c.playerID, game.InputEvent{Kind: game.InputPointer, X: data.X, Y: data.Y}); err != nil {
			c.sendError(err.Error())
		}

	case "strike":
		if err := m.Submit(c.playerID, game.InputEvent{Kind: game.InputStrike}); err != nil {
			c.sendError(err.Error())
			return
		}
		game.Manager.ResetIdleTimers(m)
		GameHub.BroadcastToGame(c.gameID, map[string]interface{}{"type": "player_idle_canceled", "player": c.playerID})

	case "get_state":
		state := m.GetStateForPlayer(c.playerID)
		state["type"] = "game_state"
		c.sendJSON(state)

	case "concede":
		c.handleConcede(m)

	default:
		c.sendError("Unknown message type")
	}
}

// handleConcede processes a concede in a pool game.
func (c *Client) handleConcede(m *game.Match) {
	if err := m.Concede(c.playerID); err != nil {
		c.sendError(err.Error())
		return
	}

	GameHub.BroadcastToGame(c.gameID, map[string]interface{}{
		"type":    "player_conceded",
		"player":  c.playerID,
		"message": "Player conceded",
	})
}
