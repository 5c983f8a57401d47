package game

// Physics, table and rack constants for the 8-ball level.
// Offsets are calibration data matched to the table artwork, not derived values.

const (
	NumObjectBalls = 15
	CueBallID      = 0
	EightBallID    = 8
	StaticID       = 999 // rails and pocket-mouth colliders
	NoHit          = -1  // first-hit sentinel

	BallRadius  = 10.0
	BallMass    = 10.0
	CueBallMass = 13.0

	Friction    = 0.985 // speed multiplier per step
	RestSpeed   = 0.05  // below this a body is clamped to rest
	StrikeSpeed = 11.0

	DefaultViewportWidth  = 800.0
	DefaultViewportHeight = 600.0

	TableWidth  = 700.0
	TableHeight = 372.0

	// Rack apex column and cue re-entry point, relative to the table origin.
	RackOffsetX    = 150.0
	RespawnOffsetX = 550.0
	RespawnOffsetY = -2.5 // from the table's horizontal centre line
	RespawnRows    = 7

	// HUD layout.
	HUDLabelWidth = 90.0
	CueHeight     = 6.0
)
