package game

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"
)

var (
	ErrNotYourTurn       = errors.New("not your turn")
	ErrGameNotInProgress = errors.New("game not in progress")
	ErrShotInProgress    = errors.New("shot in progress")
	ErrUnknownPlayer     = errors.New("player not in this game")
	ErrMatchFull         = errors.New("game already has two players")
	ErrInputQueueFull    = errors.New("too many pending inputs")
)

const inputQueueSize = 64

// MatchPlayer represents a player in a networked match.
type MatchPlayer struct {
	ID             string     `json:"id"`
	DBPlayerID     int        `json:"db_player_id,omitempty"`
	DisplayName    string     `json:"display_name,omitempty"`
	PlayerToken    string     `json:"-"`
	Connected      bool       `json:"connected"`
	DisconnectedAt *time.Time `json:"-"`
}

// MatchSink receives everything a running match produces. Calls are made
// without the match lock held.
type MatchSink interface {
	Frame(m *Match, f Frame)
	Sound(m *Match, ev Event)
	ShotResolved(m *Match, r ShotReport)
	GameOver(m *Match)
}

// MatchOptions configures a new match.
type MatchOptions struct {
	Level    LevelOptions
	TickRate int // steps per second
	Expiry   time.Duration
}

type matchInput struct {
	playerID string
	ev       InputEvent
}

// Match is a two-player game session driving a Level at a fixed tick rate.
type Match struct {
	ID           string       `json:"id"`
	Token        string       `json:"token"`
	Player1      *MatchPlayer `json:"player1"`
	Player2      *MatchPlayer `json:"player2"`
	Status       GameStatus   `json:"status"`
	Winner       string       `json:"winner,omitempty"`
	WinType      string       `json:"win_type,omitempty"`
	ShotNumber   int          `json:"shot_number"`
	ExpiresAt    time.Time    `json:"expires_at"`
	CreatedAt    time.Time    `json:"created_at"`
	StartedAt    *time.Time   `json:"started_at,omitempty"`
	CompletedAt  *time.Time   `json:"completed_at,omitempty"`
	LastActivity time.Time    `json:"last_activity"`
	SessionID    int          `json:"session_id,omitempty"`

	level        *Level
	recorder     FrameRecorder
	inputs       chan matchInput
	dirty        bool
	sounds       []Event
	sinks        []MatchSink
	tickInterval time.Duration
	cancel       context.CancelFunc
	mu           sync.RWMutex
}

// matchAudio collects level sounds while the match lock is held.
type matchAudio struct {
	m    *Match
	next AudioSink
}

func (a *matchAudio) Play(kind EventKind, bodyID int) {
	a.m.sounds = append(a.m.sounds, Event{Kind: kind, BodyID: bodyID, OtherID: NoHit})
	if a.next != nil {
		a.next.Play(kind, bodyID)
	}
}

// NewMatch creates a WAITING match. p2 may be nil until an opponent joins.
func NewMatch(id, token string, p1, p2 *MatchPlayer, opts MatchOptions) *Match {
	if opts.TickRate <= 0 {
		opts.TickRate = 60
	}
	if opts.Expiry <= 0 {
		opts.Expiry = 10 * time.Minute
	}

	now := time.Now()
	m := &Match{
		ID:           id,
		Token:        token,
		Player1:      p1,
		Player2:      p2,
		Status:       StatusWaiting,
		ExpiresAt:    now.Add(opts.Expiry),
		CreatedAt:    now,
		LastActivity: now,
		inputs:       make(chan matchInput, inputQueueSize),
		tickInterval: time.Second / time.Duration(opts.TickRate),
	}
	levelOpts := opts.Level
	levelOpts.Audio = &matchAudio{m: m, next: opts.Level.Audio}
	m.level = NewLevel(levelOpts)
	return m
}

// AddSink registers a consumer of frames, sounds and results.
func (m *Match) AddSink(s MatchSink) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sinks = append(m.sinks, s)
}

// Join seats the second player.
func (m *Match) Join(p *MatchPlayer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Status != StatusWaiting {
		return ErrGameNotInProgress
	}
	if m.Player2 != nil {
		return ErrMatchFull
	}
	m.Player2 = p
	m.LastActivity = time.Now()
	return nil
}

// Start moves a full WAITING match to IN_PROGRESS.
func (m *Match) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Status != StatusWaiting || m.Player2 == nil {
		return ErrGameNotInProgress
	}
	now := time.Now()
	m.Status = StatusInProgress
	m.StartedAt = &now
	m.LastActivity = now
	m.dirty = true
	log.Printf("[POOL] Match %s started: %s vs %s", m.Token, m.Player1.ID, m.Player2.ID)
	return nil
}

// Run steps the match at its tick rate until ctx is cancelled or the game ends.
func (m *Match) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	m.mu.Lock()
	m.cancel = cancel
	m.mu.Unlock()

	ticker := time.NewTicker(m.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !m.tick() {
				log.Printf("[POOL] Match %s loop stopped (status=%s)", m.Token, m.GetStatus())
				return
			}
		}
	}
}

// Stop cancels a running loop.
func (m *Match) Stop() {
	m.mu.RLock()
	cancel := m.cancel
	m.mu.RUnlock()
	if cancel != nil {
		cancel()
	}
}

// Submit queues input from playerID for the next tick. Only the shooter may
// act, and strikes are rejected while balls are moving.
func (m *Match) Submit(playerID string, ev InputEvent) error {
	m.mu.RLock()
	err := m.validateLocked(playerID, ev)
	m.mu.RUnlock()
	if err != nil {
		return err
	}

	select {
	case m.inputs <- matchInput{playerID: playerID, ev: ev}:
		return nil
	default:
		return ErrInputQueueFull
	}
}

func (m *Match) validateLocked(playerID string, ev InputEvent) error {
	if m.Status != StatusInProgress {
		return ErrGameNotInProgress
	}
	if m.playerLocked(playerID) == nil {
		return ErrUnknownPlayer
	}
	if m.currentTurnLocked() != playerID {
		return ErrNotYourTurn
	}
	if ev.Kind == InputStrike && m.level.Phase() != PhaseAiming {
		return ErrShotInProgress
	}
	return nil
}

// tick drains queued input, steps the level once and dispatches what it
// produced. It returns false once the match can no longer progress.
func (m *Match) tick() bool {
	m.mu.Lock()
	if m.Status != StatusInProgress {
		waiting := m.Status == StatusWaiting
		m.mu.Unlock()
		return waiting
	}

	m.drainInputsLocked()
	m.level.Step()

	report := m.level.TakeShotReport()
	if report != nil {
		m.ShotNumber++
		m.LastActivity = time.Now()
		if report.GameOver {
			m.completeLocked(m.playerIDLocked(report.Player1Won), report.WinType)
		}
	}

	var frame *Frame
	if m.dirty || m.level.Moving() || report != nil {
		m.level.Render(&m.recorder)
		f := m.recorder.Frame()
		frame = &f
		m.dirty = false
	}

	sounds := m.sounds
	m.sounds = nil
	over := m.Status == StatusCompleted
	sinks := append([]MatchSink(nil), m.sinks...)
	m.mu.Unlock()

	for _, s := range sinks {
		for _, ev := range sounds {
			s.Sound(m, ev)
		}
		if frame != nil {
			s.Frame(m, *frame)
		}
		if report != nil {
			s.ShotResolved(m, *report)
		}
		if over {
			s.GameOver(m)
		}
	}
	return !over
}

func (m *Match) drainInputsLocked() {
	for {
		select {
		case in := <-m.inputs:
			// Turn may have changed since the input was queued.
			if err := m.validateLocked(in.playerID, in.ev); err != nil {
				log.Printf("[POOL] Match %s dropped input from %s: %v", m.Token, in.playerID, err)
				continue
			}
			m.level.HandleInput(in.ev)
			m.LastActivity = time.Now()
			m.dirty = true
		default:
			return
		}
	}
}

// Concede ends the match in the opponent's favour.
func (m *Match) Concede(playerID string) error {
	return m.Forfeit(playerID, "concede")
}

// Forfeit ends the match against playerID with the given win type
// ("forfeit", "idle", "concede").
func (m *Match) Forfeit(playerID, winType string) error {
	m.mu.Lock()
	if m.Status != StatusInProgress {
		m.mu.Unlock()
		return ErrGameNotInProgress
	}
	if m.playerLocked(playerID) == nil {
		m.mu.Unlock()
		return ErrUnknownPlayer
	}
	m.completeLocked(m.opponentIDLocked(playerID), winType)
	sinks := append([]MatchSink(nil), m.sinks...)
	m.mu.Unlock()

	log.Printf("[POOL] Match %s: %s lost by %s", m.Token, playerID, winType)
	for _, s := range sinks {
		s.GameOver(m)
	}
	return nil
}

// Cancel marks a WAITING match as cancelled.
func (m *Match) Cancel() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Status != StatusWaiting {
		return false
	}
	now := time.Now()
	m.Status = StatusCancelled
	m.CompletedAt = &now
	return true
}

// Abort cancels a match that has not finished yet, waiting or in progress.
func (m *Match) Abort() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Status != StatusWaiting && m.Status != StatusInProgress {
		return false
	}
	now := time.Now()
	m.Status = StatusCancelled
	m.CompletedAt = &now
	return true
}

func (m *Match) completeLocked(winnerID, winType string) {
	now := time.Now()
	m.Status = StatusCompleted
	m.Winner = winnerID
	m.WinType = winType
	m.CompletedAt = &now
	m.LastActivity = now
}

// CurrentTurn returns the id of the player expected to shoot.
func (m *Match) CurrentTurn() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.currentTurnLocked()
}

func (m *Match) currentTurnLocked() string {
	return m.playerIDLocked(m.level.Player1Turn())
}

func (m *Match) playerIDLocked(player1 bool) string {
	if player1 {
		return m.Player1.ID
	}
	if m.Player2 == nil {
		return ""
	}
	return m.Player2.ID
}

func (m *Match) GetStatus() GameStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.Status
}

// Phase returns the level phase.
func (m *Match) Phase() Phase {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.level.Phase()
}

// AimDegrees returns the current cue angle.
func (m *Match) AimDegrees() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.level.AimDegrees()
}

// GetStateForPlayer returns the game state visible to a specific player.
func (m *Match) GetStateForPlayer(playerID string) map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	me, opp := m.Player1, m.Player2
	myGroup, oppGroup := m.level.groupOf(true), m.level.groupOf(false)
	if m.Player2 != nil && m.Player2.ID == playerID {
		me, opp = m.Player2, m.Player1
		myGroup, oppGroup = oppGroup, myGroup
	}

	state := m.publicStateLocked()
	state["my_id"] = me.ID
	state["my_display_name"] = me.DisplayName
	state["my_connected"] = me.Connected
	state["my_group"] = myGroup
	state["opponent_group"] = oppGroup
	state["my_turn"] = m.currentTurnLocked() == playerID
	if opp != nil {
		state["opponent_id"] = opp.ID
		state["opponent_display_name"] = opp.DisplayName
		state["opponent_connected"] = opp.Connected
	}
	return state
}

// PublicState returns the state visible to spectators.
func (m *Match) PublicState() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.publicStateLocked()
}

func (m *Match) publicStateLocked() map[string]interface{} {
	return map[string]interface{}{
		"game_id":      m.ID,
		"token":        m.Token,
		"status":       m.Status,
		"player1":      m.Player1,
		"player2":      m.Player2,
		"current_turn": m.currentTurnLocked(),
		"shot_number":  m.ShotNumber,
		"winner":       m.Winner,
		"win_type":     m.WinType,
		"level":        m.level.Snapshot(),
	}
}

// === Connection management ===

func (m *Match) SetPlayerConnected(playerID string, connected bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p := m.playerLocked(playerID); p != nil {
		p.Connected = connected
		if connected {
			p.DisconnectedAt = nil
		} else {
			now := time.Now()
			p.DisconnectedAt = &now
		}
	}
}

func (m *Match) BothPlayersConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.Player2 != nil && m.Player1.Connected && m.Player2.Connected
}

func (m *Match) GetOpponentID(playerID string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.opponentIDLocked(playerID)
}

func (m *Match) opponentIDLocked(playerID string) string {
	if m.Player1.ID == playerID {
		return m.playerIDLocked(false)
	}
	return m.Player1.ID
}

// Players returns the seated players in seat order.
func (m *Match) Players() []*MatchPlayer {
	m.mu.RLock()
	defer m.mu.RUnlock()
	players := []*MatchPlayer{m.Player1}
	if m.Player2 != nil {
		players = append(players, m.Player2)
	}
	return players
}

func (m *Match) GetPlayerByID(playerID string) *MatchPlayer {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.playerLocked(playerID)
}

// PlayerByToken resolves a secret player token to the player it was issued to.
func (m *Match) PlayerByToken(token string) *MatchPlayer {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if token == "" {
		return nil
	}
	if m.Player1.PlayerToken == token {
		return m.Player1
	}
	if m.Player2 != nil && m.Player2.PlayerToken == token {
		return m.Player2
	}
	return nil
}

func (m *Match) playerLocked(playerID string) *MatchPlayer {
	if m.Player1 != nil && m.Player1.ID == playerID {
		return m.Player1
	}
	if m.Player2 != nil && m.Player2.ID == playerID {
		return m.Player2
	}
	return nil
}

func (m *Match) dbPlayerIDLocked(playerID string) int {
	if p := m.playerLocked(playerID); p != nil {
		return p.DBPlayerID
	}
	return 0
}
