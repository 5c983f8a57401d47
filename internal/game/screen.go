package game

// ScreenID names the screen a Machine should switch to.
type ScreenID int

const (
	ScreenNone ScreenID = iota // stay on the current screen
	ScreenLevel
	ScreenResult
	ScreenQuit
)

// Screen is one state of the local game loop.
type Screen interface {
	HandleInput(ev InputEvent)
	Step()
	Render(r Renderer)
	Next() ScreenID
}

// Next reports the screen that should replace the level.
func (l *Level) Next() ScreenID {
	switch {
	case l.quit:
		return ScreenQuit
	case l.phase.Terminal():
		return ScreenResult
	}
	return ScreenNone
}

// ResultScreen shows the final outcome until the player dismisses it.
type ResultScreen struct {
	won        bool
	player1Won bool
	viewW      float64
	viewH      float64
	restart    bool
	quit       bool
}

// NewResultScreen builds the result screen for a finished level.
func NewResultScreen(l *Level) *ResultScreen {
	player1Won, _ := l.Winner()
	return &ResultScreen{
		won:        l.Phase() == PhaseWon,
		player1Won: player1Won,
		viewW:      l.viewW,
		viewH:      l.viewH,
	}
}

// Player1Won reports the winning side.
func (s *ResultScreen) Player1Won() bool { return s.player1Won }

func (s *ResultScreen) HandleInput(ev InputEvent) {
	switch ev.Kind {
	case InputQuit:
		s.quit = true
	case InputStrike:
		s.restart = true
	}
}

func (s *ResultScreen) Step() {}

func (s *ResultScreen) Render(r Renderer) {
	r.Clear()
	r.RenderSprite(SpriteBackground, 0, 0)
	banner := SpriteLost
	if s.won {
		banner = SpriteWon
	}
	r.RenderSprite(banner, s.viewW/2-HUDLabelWidth/2, s.viewH/2-HUDLabelWidth/2)
	if s.player1Won {
		r.RenderSprite(SpritePlayer1Label, s.viewW/2-HUDLabelWidth/2, s.viewH/2+HUDLabelWidth/2)
	} else {
		r.RenderSprite(SpritePlayer2Label, s.viewW/2-HUDLabelWidth/2, s.viewH/2+HUDLabelWidth/2)
	}
	r.Present()
}

func (s *ResultScreen) Next() ScreenID {
	switch {
	case s.quit:
		return ScreenQuit
	case s.restart:
		return ScreenLevel
	}
	return ScreenNone
}

// Machine drives the local screens: a level, then its result, then a new level.
type Machine struct {
	opts    LevelOptions
	current Screen
	done    bool
}

func NewMachine(opts LevelOptions) *Machine {
	return &Machine{opts: opts, current: NewLevel(opts)}
}

// Current returns the active screen.
func (m *Machine) Current() Screen { return m.current }

// Done reports whether the player quit.
func (m *Machine) Done() bool { return m.done }

// Tick feeds events to the active screen, advances it one frame, switches
// screens when asked and renders. It returns false once the player quit.
func (m *Machine) Tick(events []InputEvent, r Renderer) bool {
	if m.done {
		return false
	}
	for _, ev := range events {
		m.current.HandleInput(ev)
	}
	m.current.Step()

	switch m.current.Next() {
	case ScreenQuit:
		m.done = true
		return false
	case ScreenResult:
		if l, ok := m.current.(*Level); ok {
			m.current = NewResultScreen(l)
		}
	case ScreenLevel:
		m.current = NewLevel(m.opts)
	}

	m.current.Render(r)
	return true
}
