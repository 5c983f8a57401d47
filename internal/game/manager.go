package game

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/playmatatu/simplepool/internal/config"
	"github.com/redis/go-redis/v9"
)

var (
	ErrGameNotFound = errors.New("game not found")
	ErrPlayerInGame = errors.New("player already in a game")
	ErrOwnGame      = errors.New("cannot join your own game")
	ErrNotInAnyGame = errors.New("player not in a game")
	ErrNotAbortable = errors.New("only waiting or in-progress games can be cancelled")
)

// GameManager manages all active matches.
type GameManager struct {
	matches      map[string]*Match // keyed by match ID
	tokens       map[string]string // game token -> match ID
	playerToGame map[string]string // player ID -> match ID
	dbToGame     map[int]string    // DB player id -> match ID
	instanceID   string
	rdb          *redis.Client
	db           *sqlx.DB
	config       *config.Config
	ctx          context.Context
	mu           sync.RWMutex
}

// PlayerInfo identifies a player taking a seat. DBPlayerID is 0 for anonymous
// test players.
type PlayerInfo struct {
	DBPlayerID  int
	DisplayName string
}

var (
	// Global game manager instance
	Manager *GameManager
)

// InitializeManager initializes the global game manager and starts its background jobs.
func InitializeManager(ctx context.Context, db *sqlx.DB, rdb *redis.Client, cfg *config.Config) {
	Manager = NewGameManager(ctx, db, rdb, cfg)
	go Manager.StartExpiryChecker(ctx)
}

// NewGameManager creates a game manager. db, rdb and cfg may be nil.
func NewGameManager(ctx context.Context, db *sqlx.DB, rdb *redis.Client, cfg *config.Config) *GameManager {
	if ctx == nil {
		ctx = context.Background()
	}
	return &GameManager{
		matches:      make(map[string]*Match),
		tokens:       make(map[string]string),
		playerToGame: make(map[string]string),
		dbToGame:     make(map[int]string),
		instanceID:   uuid.NewString(),
		rdb:          rdb,
		db:           db,
		config:       cfg,
		ctx:          ctx,
	}
}

// InstanceID identifies this process in published events.
func (gm *GameManager) InstanceID() string {
	return gm.instanceID
}

// generateToken generates a secure random token
func generateToken(length int) string {
	bytes := make([]byte, length)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}

// generateGameID generates a unique game ID
func generateGameID() string {
	return "game_" + uuid.NewString()
}

func (gm *GameManager) matchOptions() MatchOptions {
	if gm.config == nil {
		return MatchOptions{}
	}
	return MatchOptions{
		Level: LevelOptions{
			ViewportWidth:  gm.config.ViewportWidth,
			ViewportHeight: gm.config.ViewportHeight,
			StrikeSpeed:    gm.config.StrikeSpeed,
		},
		TickRate: gm.config.TickRateHz,
		Expiry:   time.Duration(gm.config.GameExpiryMinutes) * time.Minute,
	}
}

func newMatchPlayer(info PlayerInfo) *MatchPlayer {
	return &MatchPlayer{
		ID:          "p_" + uuid.NewString(),
		DBPlayerID:  info.DBPlayerID,
		DisplayName: info.DisplayName,
		PlayerToken: generateToken(16),
	}
}

// CreateMatch opens a WAITING match with info as player 1.
func (gm *GameManager) CreateMatch(info PlayerInfo) (*Match, *MatchPlayer, error) {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	if info.DBPlayerID > 0 && gm.activeForDBPlayerLocked(info.DBPlayerID) {
		return nil, nil, ErrPlayerInGame
	}

	p1 := newMatchPlayer(info)
	m := NewMatch(generateGameID(), generateToken(16), p1, nil, gm.matchOptions())
	m.AddSink(gm)
	gm.registerLocked(m, p1)

	log.Printf("[POOL] Match created: %s (token=%s) by %s", m.ID, m.Token, p1.ID)
	go gm.saveMatchToRedis(m)
	return m, p1, nil
}

// JoinMatch seats info as player 2 of the match behind token.
func (gm *GameManager) JoinMatch(token string, info PlayerInfo) (*Match, *MatchPlayer, error) {
	m, err := gm.GetMatchByToken(token)
	if err != nil {
		return nil, nil, err
	}

	gm.mu.Lock()
	if info.DBPlayerID > 0 {
		if m.Player1.DBPlayerID == info.DBPlayerID {
			gm.mu.Unlock()
			return nil, nil, ErrOwnGame
		}
		if gm.activeForDBPlayerLocked(info.DBPlayerID) {
			gm.mu.Unlock()
			return nil, nil, ErrPlayerInGame
		}
	}
	p2 := newMatchPlayer(info)
	if err := m.Join(p2); err != nil {
		gm.mu.Unlock()
		return nil, nil, err
	}
	gm.registerLocked(m, p2)
	gm.mu.Unlock()

	gm.createSession(m)
	log.Printf("[POOL] Player %s joined match %s", p2.ID, m.Token)
	go gm.saveMatchToRedis(m)
	return m, p2, nil
}

// CreateTestMatch creates a match with two anonymous players for development.
func (gm *GameManager) CreateTestMatch() (*Match, error) {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	p1 := newMatchPlayer(PlayerInfo{DisplayName: "Player1"})
	p2 := newMatchPlayer(PlayerInfo{DisplayName: "Player2"})
	m := NewMatch(generateGameID(), generateToken(16), p1, p2, gm.matchOptions())
	m.AddSink(gm)
	gm.registerLocked(m, p1)
	gm.registerLocked(m, p2)
	return m, nil
}

func (gm *GameManager) registerLocked(m *Match, p *MatchPlayer) {
	gm.matches[m.ID] = m
	gm.tokens[m.Token] = m.ID
	gm.playerToGame[p.ID] = m.ID
	if p.DBPlayerID > 0 {
		gm.dbToGame[p.DBPlayerID] = m.ID
	}
}

func (gm *GameManager) activeForDBPlayerLocked(dbPlayerID int) bool {
	id, ok := gm.dbToGame[dbPlayerID]
	if !ok {
		return false
	}
	m, ok := gm.matches[id]
	if !ok {
		return false
	}
	status := m.GetStatus()
	return status == StatusWaiting || status == StatusInProgress
}

// StartMatch moves a full match to IN_PROGRESS and starts its tick loop.
func (gm *GameManager) StartMatch(m *Match) error {
	if err := m.Start(); err != nil {
		return err
	}
	m.mu.RLock()
	sessionID, startedAt := m.SessionID, *m.StartedAt
	m.mu.RUnlock()

	gm.MarkSessionStarted(sessionID, startedAt)
	go gm.saveMatchToRedis(m)
	go m.Run(gm.ctx)
	return nil
}

// GetMatch retrieves a match by ID
func (gm *GameManager) GetMatch(id string) (*Match, error) {
	gm.mu.RLock()
	defer gm.mu.RUnlock()
	m, ok := gm.matches[id]
	if !ok {
		return nil, ErrGameNotFound
	}
	return m, nil
}

// GetMatchByToken retrieves a match by its token
func (gm *GameManager) GetMatchByToken(token string) (*Match, error) {
	gm.mu.RLock()
	defer gm.mu.RUnlock()
	id, ok := gm.tokens[token]
	if !ok {
		return nil, ErrGameNotFound
	}
	m, ok := gm.matches[id]
	if !ok {
		return nil, ErrGameNotFound
	}
	return m, nil
}

// GetMatchForPlayer retrieves the match a player is seated in
func (gm *GameManager) GetMatchForPlayer(playerID string) (*Match, error) {
	gm.mu.RLock()
	defer gm.mu.RUnlock()
	id, ok := gm.playerToGame[playerID]
	if !ok {
		return nil, ErrNotInAnyGame
	}
	m, ok := gm.matches[id]
	if !ok {
		return nil, ErrGameNotFound
	}
	return m, nil
}

// GetPublicState returns a match snapshot, falling back to the last one saved
// in Redis when the match lives on another instance or has been evicted.
func (gm *GameManager) GetPublicState(token string) (map[string]interface{}, error) {
	if m, err := gm.GetMatchByToken(token); err == nil {
		return m.PublicState(), nil
	}
	state, err := gm.loadMatchStateFromRedis(token)
	if err != nil {
		return nil, ErrGameNotFound
	}
	return state, nil
}

// EndMatch stops a match loop and removes it from the manager
func (gm *GameManager) EndMatch(id string) error {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	m, ok := gm.matches[id]
	if !ok {
		return ErrGameNotFound
	}
	m.Stop()

	for _, p := range []*MatchPlayer{m.Player1, m.Player2} {
		if p == nil {
			continue
		}
		delete(gm.playerToGame, p.ID)
		if p.DBPlayerID > 0 && gm.dbToGame[p.DBPlayerID] == id {
			delete(gm.dbToGame, p.DBPlayerID)
		}
	}
	delete(gm.tokens, m.Token)
	delete(gm.matches, id)
	return nil
}

// GetActiveGameCount returns the number of matches waiting or in progress
func (gm *GameManager) GetActiveGameCount() int {
	gm.mu.RLock()
	defer gm.mu.RUnlock()
	n := 0
	for _, m := range gm.matches {
		if s := m.GetStatus(); s == StatusWaiting || s == StatusInProgress {
			n++
		}
	}
	return n
}

// UpdateDisplayName renames a registered player in every live match they are
// seated in and returns those matches.
func (gm *GameManager) UpdateDisplayName(dbPlayerID int, name string) []*Match {
	gm.mu.RLock()
	var matches []*Match
	for _, m := range gm.matches {
		matches = append(matches, m)
	}
	gm.mu.RUnlock()

	var updated []*Match
	for _, m := range matches {
		m.mu.Lock()
		changed := false
		for _, p := range []*MatchPlayer{m.Player1, m.Player2} {
			if p != nil && p.DBPlayerID == dbPlayerID {
				p.DisplayName = name
				changed = true
			}
		}
		m.mu.Unlock()
		if changed {
			updated = append(updated, m)
			go gm.saveMatchToRedis(m)
		}
	}
	return updated
}

// ListMatches returns a snapshot of every match held by this instance.
func (gm *GameManager) ListMatches() []map[string]interface{} {
	gm.mu.RLock()
	matches := make([]*Match, 0, len(gm.matches))
	for _, m := range gm.matches {
		matches = append(matches, m)
	}
	gm.mu.RUnlock()

	out := make([]map[string]interface{}, 0, len(matches))
	for _, m := range matches {
		out = append(out, m.PublicState())
	}
	return out
}

// AbortMatch cancels a live match, tells its players and removes it.
func (gm *GameManager) AbortMatch(token, reason string) error {
	m, err := gm.GetMatchByToken(token)
	if err != nil {
		return err
	}
	if !m.Abort() {
		return ErrNotAbortable
	}
	m.Stop()

	log.Printf("[POOL] Match %s cancelled: %s", m.Token, reason)
	gm.clearIdleTimers(m)
	gm.SaveFinalGameState(m)
	gm.publishEvent("session_cancelled", m, map[string]interface{}{"message": "Game cancelled: " + reason})
	return gm.EndMatch(m.ID)
}

// StartExpiryChecker cancels WAITING matches nobody joined in time.
func (gm *GameManager) StartExpiryChecker(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := time.Now()
			gm.checkExpiredMatches(now)
			gm.evictFinishedMatches(now)
		}
	}
}

// checkExpiredMatches cancels all WAITING matches past their expiry
func (gm *GameManager) checkExpiredMatches(now time.Time) int {
	gm.mu.RLock()
	var expired []*Match
	for _, m := range gm.matches {
		m.mu.RLock()
		if m.Status == StatusWaiting && now.After(m.ExpiresAt) {
			expired = append(expired, m)
		}
		m.mu.RUnlock()
	}
	gm.mu.RUnlock()

	n := 0
	for _, m := range expired {
		// Re-checked under the match lock
		if !m.Cancel() {
			continue
		}
		n++
		log.Printf("[EXPIRY] Match %s cancelled: no opponent joined", m.Token)
		gm.SaveFinalGameState(m)
		gm.publishEvent("session_cancelled", m, map[string]interface{}{"message": "Game cancelled: no opponent joined in time."})
		gm.EndMatch(m.ID)
	}
	return n
}

// finishedRetention is how long a completed match stays queryable in memory.
// Afterwards its last snapshot is served from Redis.
const finishedRetention = 5 * time.Minute

// evictFinishedMatches drops completed matches older than finishedRetention.
func (gm *GameManager) evictFinishedMatches(now time.Time) int {
	gm.mu.RLock()
	var stale []string
	for id, m := range gm.matches {
		m.mu.RLock()
		if m.Status == StatusCompleted && m.CompletedAt != nil && now.Sub(*m.CompletedAt) > finishedRetention {
			stale = append(stale, id)
		}
		m.mu.RUnlock()
	}
	gm.mu.RUnlock()

	for _, id := range stale {
		gm.EndMatch(id)
	}
	return len(stale)
}
