package game

// Sprite names an image the renderer knows how to draw.
type Sprite int

const (
	SpriteBackground Sprite = iota
	SpriteTable
	SpriteCue
	SpritePlayer1Label
	SpritePlayer2Label
	SpriteWon
	SpriteLost
	SpriteBall0 // SpriteBall0+id for balls 0..15
)

// BallSprite returns the sprite of ball id.
func BallSprite(id int) Sprite {
	return SpriteBall0 + Sprite(id)
}

// BallID reports which ball a sprite shows, if any.
func (s Sprite) BallID() (int, bool) {
	if s < SpriteBall0 || s > SpriteBall0+NumObjectBalls {
		return 0, false
	}
	return int(s - SpriteBall0), true
}

// Renderer draws sprites anchored at their top-left corner.
type Renderer interface {
	Clear()
	RenderSprite(s Sprite, x, y float64)
	Present()
}

// RotatingRenderer is implemented by renderers able to draw the cue at an angle.
type RotatingRenderer interface {
	RenderSpriteRotated(s Sprite, x, y, degrees float64)
}

// InputKind classifies polled input.
type InputKind int

const (
	InputQuit InputKind = iota
	InputStrike
	InputPointer
)

// InputEvent is one polled input event. X/Y are set for InputPointer.
type InputEvent struct {
	Kind InputKind `json:"kind"`
	X    float64   `json:"x"`
	Y    float64   `json:"y"`
}

// SpriteDraw is one recorded draw call.
type SpriteDraw struct {
	Sprite  Sprite  `json:"sprite"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Degrees float64 `json:"degrees,omitempty"`
}

// Frame is a recorded list of draw calls, ready to be shipped to a remote client.
type Frame struct {
	Sprites []SpriteDraw `json:"sprites"`
}

// FrameRecorder is a Renderer that captures a frame instead of drawing it.
type FrameRecorder struct {
	pending []SpriteDraw
	last    Frame
}

func (f *FrameRecorder) Clear() {
	f.pending = f.pending[:0]
}

func (f *FrameRecorder) RenderSprite(s Sprite, x, y float64) {
	f.pending = append(f.pending, SpriteDraw{Sprite: s, X: x, Y: y})
}

func (f *FrameRecorder) RenderSpriteRotated(s Sprite, x, y, degrees float64) {
	f.pending = append(f.pending, SpriteDraw{Sprite: s, X: x, Y: y, Degrees: degrees})
}

func (f *FrameRecorder) Present() {
	sprites := make([]SpriteDraw, len(f.pending))
	copy(sprites, f.pending)
	f.last = Frame{Sprites: sprites}
}

// Frame returns the last presented frame.
func (f *FrameRecorder) Frame() Frame {
	return f.last
}
