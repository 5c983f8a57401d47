package game

// Rail rectangles relative to the table origin. fromW/fromH anchor an axis to
// the far edge instead of the origin.
var railLayout = [6]struct {
	x, y, w, h   float64
	fromW, fromH bool
}{
	{x: -3, y: 60, w: 40, h: 252},               // left
	{x: -37, y: 62, w: 40, h: 249, fromW: true}, // right
	{x: 61, y: -5, w: 268, h: 40},               // top, left half
	{x: 59, y: -37, w: 268, h: 40, fromH: true}, // bottom, left half
	{x: 371, y: -5, w: 269, h: 40},              // top, right half
	{x: 371, y: -37, w: 269, h: 40, fromH: true},
}

// Two ball-shaped colliders per pocket reject balls glancing off the mouth.
var pocketColliderLayout = [12]struct {
	x, y         float64
	fromW, fromH bool
}{
	{x: 27, y: 58}, // top left
	{x: 58, y: 25},
	{x: 325, y: 25}, // top middle
	{x: 375, y: 25},
	{x: -58, y: 24, fromW: true}, // top right
	{x: -27, y: 57, fromW: true},
	{x: 27, y: -58, fromH: true}, // bottom left
	{x: 58, y: -25, fromH: true},
	{x: 325, y: -26, fromH: true}, // bottom middle
	{x: 375, y: -26, fromH: true},
	{x: -58, y: -25, fromW: true, fromH: true}, // bottom right
	{x: -26, y: -58, fromW: true, fromH: true},
}

// Pocket sensor centres. Middle pockets sit on the vertical centre line.
var sensorLayout = [6]struct {
	x, y         float64
	fromW, fromH bool
	midX         bool
}{
	{x: 35, y: 35},                             // top left
	{x: 33, y: -33, fromH: true},               // bottom left
	{x: -35, y: 35, fromW: true},               // top right
	{x: -35, y: -35, fromW: true, fromH: true}, // bottom right
	{y: 25, midX: true},                        // top middle
	{y: -23, fromH: true, midX: true},          // bottom middle
}

// Table holds the immutable table geometry: bounds, rails, pocket colliders and
// pocket sensors. Everything is derived from the bounds once, at construction.
type Table struct {
	X       float64   `json:"x"`
	Y       float64   `json:"y"`
	Width   float64   `json:"width"`
	Height  float64   `json:"height"`
	Rails   [6]*Rail  `json:"-"`
	Pockets [12]*Body `json:"-"`
	Sensors [6]Vec2   `json:"sensors"`
}

// NewTable centres a table in the viewport and wires every collider to the
// collision observer behind handle.
func NewTable(viewW, viewH float64, arena *Observers, collision ObserverHandle) *Table {
	t := &Table{
		X:      float64(int((viewW - TableWidth) / 2)),
		Y:      float64(int((viewH - TableHeight) / 2)),
		Width:  TableWidth,
		Height: TableHeight,
	}

	for i, l := range railLayout {
		x, y := t.anchor(l.x, l.y, l.fromW, l.fromH)
		t.Rails[i] = NewRail(Rect{X: x, Y: y, W: l.w, H: l.h}, arena)
		t.Rails[i].AddObserver(collision)
	}

	for i, l := range pocketColliderLayout {
		x, y := t.anchor(l.x, l.y, l.fromW, l.fromH)
		t.Pockets[i] = NewStaticCollider(NewVec2(x, y), arena)
		t.Pockets[i].AddObserver(collision)
	}

	for i, l := range sensorLayout {
		x, y := t.anchor(l.x, l.y, l.fromW, l.fromH)
		if l.midX {
			x = t.X + float64(int(t.Width/2))
		}
		t.Sensors[i] = NewVec2(x, y)
	}

	return t
}

func (t *Table) anchor(dx, dy float64, fromW, fromH bool) (float64, float64) {
	x, y := t.X+dx, t.Y+dy
	if fromW {
		x += t.Width
	}
	if fromH {
		y += t.Height
	}
	return x, y
}

// Bounds returns the table rectangle.
func (t *Table) Bounds() Rect {
	return Rect{X: t.X, Y: t.Y, W: t.Width, H: t.Height}
}

// Contains reports whether p lies on the table.
func (t *Table) Contains(p Vec2) bool {
	return t.Bounds().Contains(p)
}

// Center returns the middle of the playing surface.
func (t *Table) Center() Vec2 {
	return NewVec2(t.X+t.Width/2, t.Y+t.Height/2)
}

// PocketAt returns the index of the sensor that captures a body of the given
// radius at p, or -1.
func (t *Table) PocketAt(p Vec2, radius float64) int {
	for i, s := range t.Sensors {
		if p.Distance(s) <= radius {
			return i
		}
	}
	return -1
}

// Collide resolves b against every rail and pocket collider.
func (t *Table) Collide(b *Body) {
	for _, r := range t.Rails {
		b.CollideRail(r)
	}
	for _, p := range t.Pockets {
		Collide(b, p)
	}
}
