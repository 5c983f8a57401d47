package game

import (
	"errors"
	"log"
	"math"
)

// Phase is the turn engine's position in a shot cycle.
type Phase int

const (
	PhaseAiming Phase = iota
	PhaseSimulating
	PhaseResolving
	PhaseWon
	PhaseLost
)

func (p Phase) String() string {
	switch p {
	case PhaseAiming:
		return "AIMING"
	case PhaseSimulating:
		return "SIMULATING"
	case PhaseResolving:
		return "RESOLVING"
	case PhaseWon:
		return "WON"
	case PhaseLost:
		return "LOST"
	}
	return "UNKNOWN"
}

// Terminal reports whether the game has ended.
func (p Phase) Terminal() bool {
	return p == PhaseWon || p == PhaseLost
}

// TeamColor records which group player 1 owns. It is assigned at most once.
type TeamColor int

const (
	TeamUndefined TeamColor = iota
	TeamPlayer1Solids
	TeamPlayer1Stripes
)

func (t TeamColor) String() string {
	switch t {
	case TeamPlayer1Solids:
		return "PLAYER1_SOLIDS"
	case TeamPlayer1Stripes:
		return "PLAYER1_STRIPES"
	}
	return "UNDEFINED"
}

var (
	ErrNoSafePosition = errors.New("no collision-free position left on the table")
	ErrNotAiming      = errors.New("balls are still moving")
	ErrGameOver       = errors.New("game is over")
)

// LevelOptions configures a new level. Zero values fall back to defaults.
type LevelOptions struct {
	ViewportWidth  float64
	ViewportHeight float64
	StrikeSpeed    float64
	Audio          AudioSink
}

// Level is the 8-ball turn engine. It owns the balls, the table and every
// observer, and must be driven from a single goroutine.
type Level struct {
	observers       *Observers
	collision       *CollisionObserver
	collisionHandle ObserverHandle
	audioHandle     ObserverHandle

	table *Table
	balls [NumObjectBalls]*Body
	cue   *Body

	viewW, viewH float64
	strikeSpeed  float64
	aim          float64

	pockets     []int
	moving      bool
	player1Turn bool
	moveWasMade bool
	teamColor   TeamColor
	phase       Phase
	quit        bool

	shooterPlayer1 bool
	lastShot       *ShotReport
}

// NewLevel racks fifteen object balls, places the cue ball and starts aiming
// with player 1 to shoot.
func NewLevel(opts LevelOptions) *Level {
	if opts.ViewportWidth <= 0 {
		opts.ViewportWidth = DefaultViewportWidth
	}
	if opts.ViewportHeight <= 0 {
		opts.ViewportHeight = DefaultViewportHeight
	}
	if opts.StrikeSpeed <= 0 {
		opts.StrikeSpeed = StrikeSpeed
	}

	l := &Level{
		observers:   NewObservers(),
		collision:   NewCollisionObserver(),
		viewW:       opts.ViewportWidth,
		viewH:       opts.ViewportHeight,
		strikeSpeed: opts.StrikeSpeed,
		aim:         0,
		player1Turn: true,
		phase:       PhaseAiming,
	}
	l.collisionHandle = l.observers.Register(l.collision)
	l.audioHandle = l.observers.Register(NewAudioObserver(opts.Audio))
	l.table = NewTable(l.viewW, l.viewH, l.observers, l.collisionHandle)

	l.createBalls()
	l.createCueBall()
	return l
}

func (l *Level) createBalls() {
	var pos [NumObjectBalls]Vec2

	radius := BallRadius + 0.5
	px := l.table.X + RackOffsetX
	py := l.table.Center().Y - 5*radius
	cur := 0
	for col := 5; col > 0; col-- {
		for j := 0; j < col; j++ {
			pos[cur] = NewVec2(px, py+radius*float64(j)*2)
			cur++
		}
		px += radius * 2 * math.Sqrt(3) / 2
		py += radius
	}

	// Eight-ball in the middle of the triangle, opposite groups on the back corners.
	pos[7], pos[10] = pos[10], pos[7]
	pos[4], pos[8] = pos[8], pos[4]

	for i := range l.balls {
		b := NewBall(i+1, pos[i], l.observers)
		b.AddObserver(l.collisionHandle)
		b.AddObserver(l.audioHandle)
		l.balls[i] = b
	}
}

// createCueBall (re)creates the cue ball at a safe position with fresh
// observer registrations.
func (l *Level) createCueBall() {
	pos, err := l.safePosition(l.cue)
	if err != nil {
		log.Printf("[POOL] %v; cue ball placed at re-entry point", err)
	}
	cue := NewBall(CueBallID, pos, l.observers)
	cue.AddObserver(l.collisionHandle)
	cue.AddObserver(l.audioHandle)
	l.cue = cue
}

// safePosition searches leftward from the re-entry point for a spot that
// overlaps no visible ball other than exclude. Rows alternate below and above
// the centre line. The search is bounded by the rails and RespawnRows.
func (l *Level) safePosition(exclude *Body) (Vec2, error) {
	start := NewVec2(l.table.X+RespawnOffsetX, l.table.Center().Y+RespawnOffsetY)
	step := 2 * BallRadius
	minX := l.table.X + railInset + BallRadius
	minY := l.table.Y + railInset + BallRadius
	maxY := l.table.Y + l.table.Height - railInset - BallRadius

	for row := 0; row < RespawnRows; row++ {
		offset := float64((row + 1) / 2)
		if row%2 == 0 {
			offset = -offset
		}
		y := start.Y + offset*step
		if y < minY || y > maxY {
			continue
		}
		for x := start.X; x >= minX; x -= step {
			p := NewVec2(x, y)
			if l.overlapping(p, BallRadius, exclude) == nil {
				return p, nil
			}
		}
	}
	return start, ErrNoSafePosition
}

// railInset is the depth of the rail cushions into the table rectangle.
const railInset = 37.0

func (l *Level) overlapping(p Vec2, radius float64, exclude *Body) *Body {
	for _, b := range l.bodies() {
		if b == exclude || !b.Visible {
			continue
		}
		if b.Pos.Distance(p) < b.Radius+radius {
			return b
		}
	}
	return nil
}

// bodies returns the object balls followed by the cue ball.
func (l *Level) bodies() []*Body {
	out := make([]*Body, 0, NumObjectBalls+1)
	out = append(out, l.balls[:]...)
	if l.cue != nil {
		out = append(out, l.cue)
	}
	return out
}

// HandleInput applies one polled input event. Only quit is honoured while
// balls are moving.
func (l *Level) HandleInput(ev InputEvent) {
	if ev.Kind == InputQuit {
		l.quit = true
		return
	}
	if l.phase != PhaseAiming {
		return
	}
	switch ev.Kind {
	case InputStrike:
		if err := l.Strike(); err != nil {
			log.Printf("[POOL] strike ignored: %v", err)
		}
	case InputPointer:
		l.Aim(NewVec2(ev.X, ev.Y))
	}
}

// Aim points the cue so that a strike sends the cue ball away from p.
func (l *Level) Aim(p Vec2) {
	if l.phase != PhaseAiming {
		return
	}
	l.aim = aimDegrees(l.cue.Pos, p)
}

// SetAimDegrees sets the cue angle directly.
func (l *Level) SetAimDegrees(deg float64) {
	if l.phase != PhaseAiming {
		return
	}
	l.aim = math.Mod(math.Mod(deg, 360)+360, 360)
}

// Strike hits the cue ball along the current aim with the fixed strike speed.
func (l *Level) Strike() error {
	if l.phase.Terminal() {
		return ErrGameOver
	}
	if l.phase != PhaseAiming {
		return ErrNotAiming
	}
	l.collision.ResetFirstHit()
	l.cue.Vel = FromDegrees(l.aim).Invert().Times(l.strikeSpeed)
	l.cue.Notify(EventCueStruck, NoHit)
	l.moveWasMade = true
	l.shooterPlayer1 = l.player1Turn
	l.lastShot = nil
	l.phase = PhaseSimulating
	return nil
}

// Step runs one frame: integrate, collide, detect pockets and, once everything
// is at rest after a shot, resolve the shot.
func (l *Level) Step() {
	if l.phase.Terminal() {
		return
	}

	bodies := l.bodies()
	l.moving = false
	for _, b := range bodies {
		if b.IsMoving() {
			l.moving = true
			b.Move()
		}
	}

	if l.moving {
		l.phase = PhaseSimulating
		l.resolveCollisions(bodies)
		for _, b := range bodies {
			l.checkPocket(b)
		}
		return
	}

	if l.moveWasMade {
		l.phase = PhaseResolving
		l.resolveShot()
	}
}

func (l *Level) resolveCollisions(bodies []*Body) {
	for i, a := range bodies {
		if !a.Visible {
			continue
		}
		for _, b := range bodies[i+1:] {
			Collide(a, b)
		}
		l.table.Collide(a)
	}
}

// checkPocket removes b from play when it reaches a pocket sensor.
func (l *Level) checkPocket(b *Body) bool {
	if !b.Visible {
		return false
	}
	pocket := l.table.PocketAt(b.Pos, b.Radius)
	if pocket < 0 {
		return false
	}
	b.Notify(EventPocketCollided, pocket)
	b.RemoveObserver(l.collisionHandle)
	b.Movable = false
	b.Visible = false
	b.Stop()
	l.pockets = append(l.pockets, b.ID)
	return true
}

// Render draws the table, visible balls, the cue while aiming and the HUD.
func (l *Level) Render(r Renderer) {
	r.Clear()
	r.RenderSprite(SpriteBackground, 0, 0)
	r.RenderSprite(SpriteTable, l.table.X, l.table.Y)

	for _, b := range l.bodies() {
		if b.Visible {
			r.RenderSprite(BallSprite(b.ID), b.Pos.X-b.Radius, b.Pos.Y-b.Radius)
		}
	}

	if !l.moving && l.cue.Visible && !l.phase.Terminal() {
		x, y := l.cue.Pos.X+l.cue.Radius, l.cue.Pos.Y-CueHeight/2
		if rr, ok := r.(RotatingRenderer); ok {
			rr.RenderSpriteRotated(SpriteCue, x, y, l.aim)
		} else {
			r.RenderSprite(SpriteCue, x, y)
		}
	}

	l.renderHUD(r)
	r.Present()
}

func (l *Level) renderHUD(r Renderer) {
	r.RenderSprite(SpritePlayer1Label, 5, 5)
	r.RenderSprite(SpritePlayer2Label, l.viewW-HUDLabelWidth-5, 5)

	player1, icon := l.HUD()
	if player1 {
		r.RenderSprite(icon, 10+HUDLabelWidth, 10)
	} else {
		r.RenderSprite(icon, l.viewW-HUDLabelWidth-30, 10)
	}
}

// HUD reports whose turn it is and the group icon shown next to that player.
func (l *Level) HUD() (player1Turn bool, icon Sprite) {
	switch l.groupOf(l.player1Turn) {
	case GroupSolids:
		icon = BallSprite(1)
	case GroupStripes:
		icon = BallSprite(9)
	default:
		icon = BallSprite(EightBallID)
	}
	return l.player1Turn, icon
}

func (l *Level) Phase() Phase           { return l.phase }
func (l *Level) Player1Turn() bool      { return l.player1Turn }
func (l *Level) TeamColor() TeamColor   { return l.teamColor }
func (l *Level) Moving() bool           { return l.moving }
func (l *Level) MoveWasMade() bool      { return l.moveWasMade }
func (l *Level) AimDegrees() float64    { return l.aim }
func (l *Level) Table() *Table          { return l.table }
func (l *Level) CueBall() *Body         { return l.cue }
func (l *Level) FirstHit() int          { return l.collision.FirstHit() }
func (l *Level) QuitRequested() bool    { return l.quit }
func (l *Level) Ball(id int) *Body      { return l.ballByID(id) }
func (l *Level) PocketsThisShot() []int { return append([]int(nil), l.pockets...) }
func (l *Level) LastShot() *ShotReport  { return l.lastShot }

// TakeShotReport returns the report of the last resolved shot once.
func (l *Level) TakeShotReport() *ShotReport {
	r := l.lastShot
	l.lastShot = nil
	return r
}

// Winner reports the winning side once the game has ended.
func (l *Level) Winner() (player1 bool, ok bool) {
	switch l.phase {
	case PhaseWon:
		return l.shooterPlayer1, true
	case PhaseLost:
		return !l.shooterPlayer1, true
	}
	return false, false
}

func (l *Level) ballByID(id int) *Body {
	if id == CueBallID {
		return l.cue
	}
	if id >= 1 && id <= NumObjectBalls {
		return l.balls[id-1]
	}
	return nil
}

// BallState is the serialisable view of a ball.
type BallState struct {
	ID      int     `json:"id"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Visible bool    `json:"visible"`
	Moving  bool    `json:"moving"`
}

// LevelSnapshot is the serialisable view of the turn engine.
type LevelSnapshot struct {
	Phase       Phase       `json:"-"`
	PhaseName   string      `json:"phase"`
	Player1Turn bool        `json:"player1_turn"`
	TeamColor   string      `json:"team_color"`
	AimDegrees  float64     `json:"aim_degrees"`
	Balls       []BallState `json:"balls"`
	Table       Rect        `json:"table"`
}

func (l *Level) Snapshot() LevelSnapshot {
	balls := make([]BallState, 0, NumObjectBalls+1)
	for id := 0; id <= NumObjectBalls; id++ {
		b := l.ballByID(id)
		balls = append(balls, BallState{ID: b.ID, X: b.Pos.X, Y: b.Pos.Y, Visible: b.Visible, Moving: b.IsMoving()})
	}
	return LevelSnapshot{
		Phase:       l.phase,
		PhaseName:   l.phase.String(),
		Player1Turn: l.player1Turn,
		TeamColor:   l.teamColor.String(),
		AimDegrees:  l.aim,
		Balls:       balls,
		Table:       l.table.Bounds(),
	}
}
