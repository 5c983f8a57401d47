package game

import "log"

// BallGroup represents a player's assigned ball group.
type BallGroup string

const (
	GroupSolids  BallGroup = "SOLIDS"
	GroupStripes BallGroup = "STRIPES"
	GroupAny     BallGroup = "ANY" // not yet assigned
)

// ballGroup returns the group for a ball ID.
func ballGroup(id int) BallGroup {
	if id >= 1 && id <= 7 {
		return GroupSolids
	}
	if id >= 9 && id <= 15 {
		return GroupStripes
	}
	return "" // 0 = cue, 8 = eight
}

// FoulInfo describes a foul that occurred during a shot.
type FoulInfo struct {
	Type    string `json:"type"` // "no_contact", "wrong_first_contact", "scratch"
	Message string `json:"message"`
}

// ShotReport is the outcome of one resolved shot.
type ShotReport struct {
	Player1Shot   bool      `json:"player1_shot"`
	FirstHit      int       `json:"first_hit"`
	PocketedBalls []int     `json:"pocketed_balls"`
	OffTable      []int     `json:"off_table,omitempty"`
	Foul          *FoulInfo `json:"foul,omitempty"`
	Scratch       bool      `json:"scratch"`
	GroupAssigned bool      `json:"group_assigned"`
	Player1Group  BallGroup `json:"player1_group"`
	Player2Group  BallGroup `json:"player2_group"`
	TurnChange    bool      `json:"turn_change"`
	Player1Next   bool      `json:"player1_next"`
	GameOver      bool      `json:"game_over"`
	Player1Won    bool      `json:"player1_won,omitempty"`
	WinType       string    `json:"win_type,omitempty"`
}

// groupOf returns the group owned by player 1 (true) or player 2 (false).
func (l *Level) groupOf(player1 bool) BallGroup {
	switch l.teamColor {
	case TeamPlayer1Solids:
		if player1 {
			return GroupSolids
		}
		return GroupStripes
	case TeamPlayer1Stripes:
		if player1 {
			return GroupStripes
		}
		return GroupSolids
	}
	return GroupAny
}

// remaining counts the balls of group still on the table.
func (l *Level) remaining(group BallGroup) int {
	n := 0
	for _, b := range l.balls {
		if b.Visible && ballGroup(b.ID) == group {
			n++
		}
	}
	return n
}

// firstHitFoul reports whether the first ball the cue touched was illegal for
// a shooter owning group own. The eight-ball is legal only once own is cleared.
func (l *Level) firstHitFoul(firstHit int, own BallGroup) *FoulInfo {
	switch {
	case firstHit == NoHit:
		return &FoulInfo{Type: "no_contact", Message: "cue ball touched no object ball"}
	case firstHit == EightBallID:
		if l.remaining(own) > 0 {
			return &FoulInfo{Type: "wrong_first_contact", Message: "eight-ball hit before clearing own group"}
		}
	case ballGroup(firstHit) != own:
		return &FoulInfo{Type: "wrong_first_contact", Message: "opponent's ball hit first"}
	}
	return nil
}

func containsBall(ids []int, id int) bool {
	for _, cur := range ids {
		if cur == id {
			return true
		}
	}
	return false
}

// resolveShot applies the 8-ball rules once all balls have stopped. Rules are
// evaluated in a fixed order; passing the turn is idempotent within a shot.
func (l *Level) resolveShot() {
	shooter := l.player1Turn
	l.shooterPlayer1 = shooter
	own := l.groupOf(shooter)
	pocketed := append([]int(nil), l.pockets...)

	report := &ShotReport{
		Player1Shot:   shooter,
		FirstHit:      l.collision.FirstHit(),
		PocketedBalls: pocketed,
	}
	pass := func() {
		l.player1Turn = !shooter
		report.TurnChange = true
	}

	// Wrong first contact.
	if l.teamColor != TeamUndefined {
		if foul := l.firstHitFoul(report.FirstHit, own); foul != nil {
			report.Foul = foul
			pass()
		}
	}

	if len(pocketed) == 0 {
		pass()
	} else {
		if containsBall(pocketed, CueBallID) {
			report.Scratch = true
			if report.Foul == nil {
				report.Foul = &FoulInfo{Type: "scratch", Message: "cue ball pocketed"}
			}
			l.createCueBall()
			pass()
		} else if l.teamColor != TeamUndefined && !l.pocketedOwn(pocketed, own) {
			pass()
		}

		if containsBall(pocketed, EightBallID) {
			switch {
			case l.teamColor == TeamUndefined:
				l.finish(PhaseLost, report, "illegal_8ball")
			case l.remaining(own) > 0:
				l.finish(PhaseLost, report, "illegal_8ball")
			default:
				l.finish(PhaseWon, report, "pocket_8")
			}
		}

		if l.teamColor == TeamUndefined && !l.phase.Terminal() {
			l.assignTeams(pocketed, shooter, report)
		}
	}

	if !l.phase.Terminal() {
		l.returnOffTableBalls(report, pass)
	}

	l.pockets = l.pockets[:0]
	l.moveWasMade = false
	if !l.phase.Terminal() {
		l.phase = PhaseAiming
	}

	report.Player1Group = l.groupOf(true)
	report.Player2Group = l.groupOf(false)
	report.Player1Next = l.player1Turn
	l.lastShot = report

	log.Printf("[POOL] Shot by player%d, firstHit=%d, pocketed=%v, foul=%v, team=%s, phase=%s, player1Next=%v",
		playerNumber(shooter), report.FirstHit, pocketed, report.Foul != nil, l.teamColor, l.phase, l.player1Turn)
}

func (l *Level) pocketedOwn(pocketed []int, own BallGroup) bool {
	for _, id := range pocketed {
		if ballGroup(id) == own {
			return true
		}
	}
	return false
}

// assignTeams gives the shooter a group when every ball pocketed this shot
// belongs to that one group. Mixed shots and scratches leave the groups open.
func (l *Level) assignTeams(pocketed []int, shooter bool, report *ShotReport) {
	grp := ballGroup(pocketed[0])
	if grp == "" {
		return
	}
	for _, id := range pocketed[1:] {
		if ballGroup(id) != grp {
			return
		}
	}
	if (grp == GroupSolids) == shooter {
		l.teamColor = TeamPlayer1Solids
	} else {
		l.teamColor = TeamPlayer1Stripes
	}
	report.GroupAssigned = true
}

// returnOffTableBalls puts back any visible ball that left the table bounds.
func (l *Level) returnOffTableBalls(report *ShotReport, pass func()) {
	for _, b := range l.balls {
		if !b.Visible || l.table.Contains(b.Pos) {
			continue
		}
		pos, err := l.safePosition(b)
		if err != nil {
			log.Printf("[POOL] ball %d: %v", b.ID, err)
		}
		b.Pos = pos
		b.Stop()
		report.OffTable = append(report.OffTable, b.ID)
		pass()
	}
	if l.cue.Visible && !l.table.Contains(l.cue.Pos) {
		report.OffTable = append(report.OffTable, CueBallID)
		l.createCueBall()
		pass()
	}
}

func (l *Level) finish(phase Phase, report *ShotReport, winType string) {
	l.phase = phase
	report.GameOver = true
	report.WinType = winType
	report.Player1Won, _ = l.Winner()
}

func playerNumber(player1 bool) int {
	if player1 {
		return 1
	}
	return 2
}
