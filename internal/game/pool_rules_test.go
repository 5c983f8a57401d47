package game

import "testing"

func TestOpenTableSingleGroupAssignsShooter(t *testing.T) {
	l := newTestLevel(t)

	r := resolveWith(t, l, 2, 2, 5)

	if l.TeamColor() != TeamPlayer1Solids {
		t.Errorf("team = %s, want PLAYER1_SOLIDS", l.TeamColor())
	}
	if !l.Player1Turn() || r.TurnChange {
		t.Error("shooter should keep the turn after pocketing only solids")
	}
	if !r.GroupAssigned || r.Player1Group != GroupSolids || r.Player2Group != GroupStripes {
		t.Errorf("report groups: %+v", r)
	}
	if l.Phase() != PhaseAiming || l.MoveWasMade() || len(l.PocketsThisShot()) != 0 {
		t.Errorf("next shot not prepared: phase=%s moveWasMade=%v", l.Phase(), l.MoveWasMade())
	}
}

func TestOpenTablePlayerTwoStripes(t *testing.T) {
	l := newTestLevel(t)
	l.player1Turn = false

	resolveWith(t, l, 10, 10)

	if l.TeamColor() != TeamPlayer1Solids {
		t.Errorf("player 2 pocketed a stripe; team = %s, want PLAYER1_SOLIDS", l.TeamColor())
	}
	if l.Player1Turn() {
		t.Error("player 2 should keep the turn")
	}
}

func TestOpenTableMixedPocketLeavesGroupsOpen(t *testing.T) {
	l := newTestLevel(t)

	r := resolveWith(t, l, 3, 3, 12)

	if l.TeamColor() != TeamUndefined || r.GroupAssigned {
		t.Errorf("mixed shot assigned %s", l.TeamColor())
	}
	if !l.Player1Turn() {
		t.Error("pocketing balls on an open table keeps the turn")
	}
}

func TestTeamAssignmentIsIdempotent(t *testing.T) {
	l := newTestLevel(t)
	resolveWith(t, l, 1, 1)
	if l.TeamColor() != TeamPlayer1Solids {
		t.Fatalf("team = %s", l.TeamColor())
	}

	// Player 1 then pockets only stripes: the groups stay as they are.
	resolveWith(t, l, 2, 9)
	if l.TeamColor() != TeamPlayer1Solids {
		t.Errorf("team reassigned to %s", l.TeamColor())
	}
}

func TestNothingPocketedPassesTurn(t *testing.T) {
	l := newTestLevel(t)

	r := resolveWith(t, l, 4)

	if l.Player1Turn() || !r.TurnChange {
		t.Error("turn should pass when nothing is pocketed")
	}
	if r.Foul != nil {
		t.Errorf("no foul on an open table, got %+v", r.Foul)
	}
}

func TestWrongGroupFirstHitPassesTurn(t *testing.T) {
	l := newTestLevel(t)
	l.teamColor = TeamPlayer1Solids

	r := resolveWith(t, l, 12)

	if l.Player1Turn() {
		t.Error("turn should pass after hitting the opponent's ball first")
	}
	if r.Foul == nil || r.Foul.Type != "wrong_first_contact" {
		t.Errorf("foul = %+v", r.Foul)
	}
}

func TestWrongGroupFirstHitPassesEvenWhenOwnBallDrops(t *testing.T) {
	l := newTestLevel(t)
	l.teamColor = TeamPlayer1Solids

	resolveWith(t, l, 12, 3)

	if l.Player1Turn() {
		t.Error("foul must pass the turn regardless of what was pocketed")
	}
}

func TestNoContactIsFoulOnceGroupsAssigned(t *testing.T) {
	l := newTestLevel(t)
	l.teamColor = TeamPlayer1Stripes

	r := resolveWith(t, l, NoHit)

	if r.Foul == nil || r.Foul.Type != "no_contact" || l.Player1Turn() {
		t.Errorf("foul=%+v player1Turn=%v", r.Foul, l.Player1Turn())
	}
}

func TestOwnGroupPocketKeepsTurn(t *testing.T) {
	l := newTestLevel(t)
	l.teamColor = TeamPlayer1Stripes

	r := resolveWith(t, l, 11, 11)

	if !l.Player1Turn() || r.TurnChange {
		t.Error("pocketing an own ball after a legal hit keeps the turn")
	}
}

func TestOpponentBallOnlyPocketPassesTurn(t *testing.T) {
	l := newTestLevel(t)
	l.teamColor = TeamPlayer1Stripes

	resolveWith(t, l, 11, 4)

	if l.Player1Turn() {
		t.Error("pocketing only the opponent's ball passes the turn")
	}
}

func TestScratchRecreatesCueAndPassesTurn(t *testing.T) {
	l := newTestLevel(t)
	old := l.CueBall()
	// Park a ball on the re-entry point.
	l.Ball(7).Pos = NewVec2(l.Table().X+RespawnOffsetX, l.Table().Center().Y+RespawnOffsetY)

	r := resolveWith(t, l, 3, CueBallID)

	cue := l.CueBall()
	if cue == old {
		t.Fatal("cue ball was not recreated")
	}
	if !cue.Visible || !cue.Movable || cue.IsMoving() {
		t.Errorf("new cue ball not in play: %+v", cue)
	}
	if !cue.HasObserver(l.collisionHandle) || !cue.HasObserver(l.audioHandle) {
		t.Error("new cue ball not registered with observers")
	}
	assertNoOverlap(t, l, cue)
	if l.Player1Turn() || !r.Scratch {
		t.Errorf("scratch should pass the turn: %+v", r)
	}
	if l.TeamColor() != TeamUndefined {
		t.Errorf("scratch assigned groups: %s", l.TeamColor())
	}
}

func TestEightBallWithOwnGroupLeftLoses(t *testing.T) {
	l := newTestLevel(t)
	l.teamColor = TeamPlayer1Solids
	for _, id := range []int{1, 2, 4, 5, 6, 7} {
		pocket(l, id)
	}

	r := resolveWith(t, l, 3, EightBallID)

	if l.Phase() != PhaseLost {
		t.Fatalf("phase = %s, want LOST", l.Phase())
	}
	if p1, ok := l.Winner(); !ok || p1 {
		t.Errorf("player 2 should win: player1=%v ok=%v", p1, ok)
	}
	if !r.GameOver || r.WinType != "illegal_8ball" || r.Player1Won {
		t.Errorf("report: %+v", r)
	}
	if l.Next() != ScreenResult {
		t.Errorf("next screen = %d", l.Next())
	}
}

func TestEightBallAfterClearingGroupWins(t *testing.T) {
	l := newTestLevel(t)
	l.teamColor = TeamPlayer1Solids
	for id := 1; id <= 7; id++ {
		pocket(l, id)
	}

	r := resolveWith(t, l, EightBallID, EightBallID)

	if l.Phase() != PhaseWon {
		t.Fatalf("phase = %s, want WON", l.Phase())
	}
	if p1, ok := l.Winner(); !ok || !p1 {
		t.Error("player 1 should win")
	}
	if r.WinType != "pocket_8" || !r.Player1Won {
		t.Errorf("report: %+v", r)
	}

	// Terminal levels ignore further steps and strikes.
	l.Step()
	if err := l.Strike(); err != ErrGameOver {
		t.Errorf("strike after game over: %v", err)
	}
}

func TestEightBallOnOpenTableLoses(t *testing.T) {
	l := newTestLevel(t)
	l.player1Turn = false

	resolveWith(t, l, 1, EightBallID)

	if l.Phase() != PhaseLost {
		t.Fatalf("phase = %s, want LOST", l.Phase())
	}
	if p1, _ := l.Winner(); !p1 {
		t.Error("player 1 should win when player 2 sinks the eight early")
	}
}

func TestEightBallWithScratchAfterClearingGroupWins(t *testing.T) {
	l := newTestLevel(t)
	l.teamColor = TeamPlayer1Solids
	for id := 1; id <= 7; id++ {
		pocket(l, id)
	}

	r := resolveWith(t, l, EightBallID, EightBallID, CueBallID)

	if l.Phase() != PhaseWon || r.WinType != "pocket_8" {
		t.Fatalf("phase = %s winType = %q, want WON pocket_8", l.Phase(), r.WinType)
	}
	if !r.Scratch || l.CueBall() == nil || !l.CueBall().Visible {
		t.Errorf("scratch=%v cue=%+v, cue ball should be recreated", r.Scratch, l.CueBall())
	}
}

func TestEightBallHitFirstIsFoulWhileGroupRemains(t *testing.T) {
	l := newTestLevel(t)
	l.teamColor = TeamPlayer1Solids

	r := resolveWith(t, l, EightBallID, 2)

	if r.Foul == nil || l.Player1Turn() {
		t.Errorf("foul=%+v player1Turn=%v", r.Foul, l.Player1Turn())
	}
}

func TestOffTableBallReturnsAndPassesTurn(t *testing.T) {
	l := newTestLevel(t)
	l.teamColor = TeamPlayer1Solids
	b := l.Ball(13)
	b.Pos = NewVec2(5, 5)

	r := resolveWith(t, l, 2, 2)

	if !l.Table().Contains(b.Pos) || !b.Vel.IsZero() {
		t.Errorf("ball 13 not returned: pos=%+v vel=%+v", b.Pos, b.Vel)
	}
	assertNoOverlap(t, l, b)
	if l.Player1Turn() {
		t.Error("ball off the table should pass the turn")
	}
	if len(r.OffTable) != 1 || r.OffTable[0] != 13 {
		t.Errorf("off table = %v", r.OffTable)
	}
}

func TestOffTableCueIsRecreated(t *testing.T) {
	l := newTestLevel(t)
	old := l.CueBall()
	old.Pos = NewVec2(-50, 0)

	r := resolveWith(t, l, 1, 1)

	if l.CueBall() == old || !l.Table().Contains(l.CueBall().Pos) {
		t.Errorf("cue not recreated on the table: %+v", l.CueBall().Pos)
	}
	if l.Player1Turn() || len(r.OffTable) != 1 || r.OffTable[0] != CueBallID {
		t.Errorf("report: %+v", r)
	}
}
