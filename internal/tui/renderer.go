package tui

import (
	"math"

	"github.com/gdamore/tcell/v2"
	"github.com/playmatatu/simplepool/internal/game"
)

// CueLength is the drawn stick length in table units.
const CueLength = 180.0

var (
	styleBackground = tcell.StyleDefault.Background(tcell.ColorBlack)
	styleFelt       = tcell.StyleDefault.Background(tcell.ColorDarkGreen).Foreground(tcell.ColorWhite)
	styleRail       = tcell.StyleDefault.Background(tcell.NewRGBColor(92, 51, 23)).Foreground(tcell.ColorWheat)
	stylePocket     = tcell.StyleDefault.Background(tcell.ColorDarkGreen).Foreground(tcell.ColorBlack)
	styleCue        = tcell.StyleDefault.Background(tcell.ColorDarkGreen).Foreground(tcell.ColorBurlyWood)
	styleLabel      = tcell.StyleDefault.Foreground(tcell.ColorWhite).Bold(true)
)

// ballColors follows the usual set: 1/9 yellow, 2/10 blue, ... 8 black.
var ballColors = [8]tcell.Color{
	tcell.ColorWhite,
	tcell.ColorYellow,
	tcell.ColorBlue,
	tcell.ColorRed,
	tcell.ColorPurple,
	tcell.ColorOrange,
	tcell.ColorGreen,
	tcell.ColorMaroon,
}

// Renderer draws game sprites as terminal cells, scaling the viewport to the screen.
// It implements game.Renderer and game.RotatingRenderer.
type Renderer struct {
	screen       tcell.Screen
	viewW, viewH float64
	player1Name  string
	player2Name  string
	button1Down  bool
}

func NewRenderer(screen tcell.Screen, viewW, viewH float64) *Renderer {
	if viewW <= 0 {
		viewW = game.DefaultViewportWidth
	}
	if viewH <= 0 {
		viewH = game.DefaultViewportHeight
	}
	return &Renderer{screen: screen, viewW: viewW, viewH: viewH, player1Name: "PLAYER 1", player2Name: "PLAYER 2"}
}

// SetPlayerNames changes the HUD labels.
func (r *Renderer) SetPlayerNames(p1, p2 string) {
	r.player1Name, r.player2Name = p1, p2
}

// ToCell maps viewport coordinates to a screen cell.
func (r *Renderer) ToCell(x, y float64) (int, int) {
	w, h := r.screen.Size()
	return int(math.Floor(x * float64(w) / r.viewW)), int(math.Floor(y * float64(h) / r.viewH))
}

// ToView maps a screen cell to the viewport coordinates of its centre.
func (r *Renderer) ToView(col, row int) (float64, float64) {
	w, h := r.screen.Size()
	if w == 0 || h == 0 {
		return 0, 0
	}
	return (float64(col) + 0.5) * r.viewW / float64(w), (float64(row) + 0.5) * r.viewH / float64(h)
}

func (r *Renderer) Clear() {
	r.screen.Clear()
}

func (r *Renderer) Present() {
	r.screen.Show()
}

func (r *Renderer) RenderSprite(s game.Sprite, x, y float64) {
	switch s {
	case game.SpriteBackground:
		r.screen.Fill(' ', styleBackground)
	case game.SpriteTable:
		r.drawTable(x, y)
	case game.SpriteCue:
		r.drawCue(x, y, 0)
	case game.SpritePlayer1Label:
		r.drawText(x, y, r.player1Name, styleLabel)
	case game.SpritePlayer2Label:
		r.drawText(x, y, r.player2Name, styleLabel)
	case game.SpriteWon:
		r.drawCentered(y, "YOU WIN", styleLabel.Foreground(tcell.ColorGreen))
	case game.SpriteLost:
		r.drawCentered(y, "YOU LOSE", styleLabel.Foreground(tcell.ColorRed))
	default:
		if id, ok := s.BallID(); ok {
			r.drawBall(id, x+game.BallRadius, y+game.BallRadius)
		}
	}
}

func (r *Renderer) RenderSpriteRotated(s game.Sprite, x, y, degrees float64) {
	if s != game.SpriteCue {
		r.RenderSprite(s, x, y)
		return
	}
	r.drawCue(x, y, degrees)
}

func (r *Renderer) drawTable(x, y float64) {
	c0, r0 := r.ToCell(x, y)
	c1, r1 := r.ToCell(x+game.TableWidth, y+game.TableHeight)
	for row := r0; row <= r1; row++ {
		for col := c0; col <= c1; col++ {
			style := styleFelt
			if row == r0 || row == r1 || col == c0 || col == c1 {
				style = styleRail
			}
			r.screen.SetContent(col, row, ' ', nil, style)
		}
	}

	mid := (c0 + c1) / 2
	for _, p := range [][2]int{{c0 + 1, r0 + 1}, {mid, r0 + 1}, {c1 - 1, r0 + 1}, {c0 + 1, r1 - 1}, {mid, r1 - 1}, {c1 - 1, r1 - 1}} {
		r.screen.SetContent(p[0], p[1], '●', nil, stylePocket)
	}
}

func (r *Renderer) drawBall(id int, cx, cy float64) {
	col, row := r.ToCell(cx, cy)
	glyph := '●'
	if id > game.EightBallID {
		glyph = '◍'
	}
	style := styleFelt.Foreground(ballColors[id%8])
	if id == game.EightBallID {
		style = styleFelt.Foreground(tcell.ColorBlack)
	}
	r.screen.SetContent(col, row, glyph, nil, style)
}

// drawCue draws the stick from the cue ball outwards at degrees. x,y is the
// sprite anchor Level uses: right edge of the ball, half a cue above centre.
func (r *Renderer) drawCue(x, y, degrees float64) {
	cx, cy := x-game.BallRadius, y+game.CueHeight/2
	rad := degrees * math.Pi / 180
	dx, dy := math.Cos(rad), math.Sin(rad)

	ballCol, ballRow := r.ToCell(cx, cy)
	for d := game.BallRadius * 1.5; d <= game.BallRadius*1.5+CueLength; d += 2 {
		col, row := r.ToCell(cx+dx*d, cy+dy*d)
		if col == ballCol && row == ballRow {
			continue
		}
		r.screen.SetContent(col, row, '·', nil, styleCue)
	}
}

func (r *Renderer) drawText(x, y float64, text string, style tcell.Style) {
	col, row := r.ToCell(x, y)
	for i, ch := range text {
		r.screen.SetContent(col+i, row, ch, nil, style)
	}
}

func (r *Renderer) drawCentered(y float64, text string, style tcell.Style) {
	w, _ := r.screen.Size()
	_, row := r.ToCell(0, y)
	col := (w - len(text)) / 2
	for i, ch := range text {
		r.screen.SetContent(col+i, row, ch, nil, style)
	}
}
