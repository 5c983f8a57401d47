package game

import (
	"errors"
	"sync"
	"testing"
)

type captureSink struct {
	mu     sync.Mutex
	frames []Frame
	sounds []Event
	shots  []ShotReport
	over   int
}

func (c *captureSink) Frame(m *Match, f Frame) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, f)
}

func (c *captureSink) Sound(m *Match, ev Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sounds = append(c.sounds, ev)
}

func (c *captureSink) ShotResolved(m *Match, r ShotReport) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.shots = append(c.shots, r)
}

func (c *captureSink) GameOver(m *Match) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.over++
}

func newTestMatch(t *testing.T) (*Match, *captureSink) {
	t.Helper()
	p1 := &MatchPlayer{ID: "p1", PlayerToken: "tok1"}
	p2 := &MatchPlayer{ID: "p2", PlayerToken: "tok2"}
	m := NewMatch("game_1", "token_1", p1, p2, MatchOptions{})
	sink := &captureSink{}
	m.AddSink(sink)
	if err := m.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	return m, sink
}

func TestSubmitValidatesTurnAndStatus(t *testing.T) {
	m := NewMatch("g", "t", &MatchPlayer{ID: "p1"}, nil, MatchOptions{})
	if err := m.Submit("p1", InputEvent{Kind: InputStrike}); !errors.Is(err, ErrGameNotInProgress) {
		t.Errorf("waiting match: %v", err)
	}
	if err := m.Start(); err == nil {
		t.Error("match without an opponent should not start")
	}

	m, _ = newTestMatch(t)
	if err := m.Submit("p2", InputEvent{Kind: InputStrike}); !errors.Is(err, ErrNotYourTurn) {
		t.Errorf("p2 on p1's turn: %v", err)
	}
	if err := m.Submit("nobody", InputEvent{Kind: InputStrike}); !errors.Is(err, ErrUnknownPlayer) {
		t.Errorf("unknown player: %v", err)
	}
	if err := m.Submit("p1", InputEvent{Kind: InputPointer, X: 10, Y: 10}); err != nil {
		t.Errorf("p1 aim: %v", err)
	}
}

func TestStrikeRejectedWhileSimulating(t *testing.T) {
	m, sink := newTestMatch(t)

	if err := m.Submit("p1", InputEvent{Kind: InputStrike}); err != nil {
		t.Fatalf("strike: %v", err)
	}
	m.tick()

	if m.Phase() != PhaseSimulating {
		t.Fatalf("phase = %s, want SIMULATING", m.Phase())
	}
	if err := m.Submit("p1", InputEvent{Kind: InputStrike}); !errors.Is(err, ErrShotInProgress) {
		t.Errorf("strike while moving: %v", err)
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.frames) == 0 {
		t.Error("no frame emitted while balls move")
	}
	if len(sink.sounds) == 0 || sink.sounds[0].Kind != EventCueStruck {
		t.Errorf("expected cue struck sound first, got %+v", sink.sounds)
	}
}

func TestShotResolvesAndReportsOnce(t *testing.T) {
	m, sink := newTestMatch(t)
	m.Submit("p1", InputEvent{Kind: InputStrike})

	for i := 0; i < 20000 && m.ShotNumber == 0; i++ {
		m.tick()
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.shots) != 1 {
		t.Fatalf("shot reports = %d, want 1", len(sink.shots))
	}
	if m.level.Phase() != PhaseAiming && !m.level.Phase().Terminal() {
		t.Errorf("phase after shot = %s", m.level.Phase())
	}
}

func TestConcedeEndsMatchForOpponent(t *testing.T) {
	m, sink := newTestMatch(t)

	if err := m.Concede("p1"); err != nil {
		t.Fatalf("concede: %v", err)
	}
	if m.GetStatus() != StatusCompleted || m.Winner != "p2" || m.WinType != "concede" {
		t.Errorf("status=%s winner=%s type=%s", m.GetStatus(), m.Winner, m.WinType)
	}
	if sink.over != 1 {
		t.Errorf("game over notifications = %d", sink.over)
	}
	if err := m.Concede("p2"); !errors.Is(err, ErrGameNotInProgress) {
		t.Errorf("second concede: %v", err)
	}
	if m.tick() {
		t.Error("completed match should stop ticking")
	}
}

func TestEightBallFinishesMatch(t *testing.T) {
	m, sink := newTestMatch(t)
	l := m.level
	l.teamColor = TeamPlayer1Solids
	for id := 1; id <= 7; id++ {
		pocket(l, id)
	}
	pocket(l, EightBallID)
	l.pockets = []int{EightBallID}
	l.collision.firstHit = EightBallID
	l.moveWasMade = true
	l.phase = PhaseSimulating

	if m.tick() {
		t.Error("tick should report the match is over")
	}
	if m.GetStatus() != StatusCompleted || m.Winner != "p1" || m.WinType != "pocket_8" {
		t.Errorf("status=%s winner=%s type=%s", m.GetStatus(), m.Winner, m.WinType)
	}
	if len(sink.shots) != 1 || !sink.shots[0].GameOver || sink.over != 1 {
		t.Errorf("shots=%+v over=%d", sink.shots, sink.over)
	}
}

func TestStateForPlayer(t *testing.T) {
	m, _ := newTestMatch(t)

	s1 := m.GetStateForPlayer("p1")
	s2 := m.GetStateForPlayer("p2")
	if s1["my_turn"] != true || s2["my_turn"] != false {
		t.Errorf("my_turn p1=%v p2=%v", s1["my_turn"], s2["my_turn"])
	}
	if s1["opponent_id"] != "p2" || s2["opponent_id"] != "p1" {
		t.Errorf("opponents: %v %v", s1["opponent_id"], s2["opponent_id"])
	}
	if _, ok := s1["level"].(LevelSnapshot); !ok {
		t.Errorf("level snapshot missing: %T", s1["level"])
	}
	if p := m.PlayerByToken("tok2"); p == nil || p.ID != "p2" {
		t.Errorf("PlayerByToken = %+v", p)
	}
	if m.PlayerByToken("") != nil {
		t.Error("empty token matched a player")
	}
}

func TestConnectionTracking(t *testing.T) {
	m, _ := newTestMatch(t)
	m.SetPlayerConnected("p1", true)
	if m.BothPlayersConnected() {
		t.Error("only p1 connected")
	}
	m.SetPlayerConnected("p2", true)
	if !m.BothPlayersConnected() {
		t.Error("both connected")
	}
	m.SetPlayerConnected("p2", false)
	if p := m.GetPlayerByID("p2"); p.Connected || p.DisconnectedAt == nil {
		t.Errorf("p2 disconnect not recorded: %+v", p)
	}
}
