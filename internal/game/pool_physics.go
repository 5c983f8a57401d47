package game

import "math"

// Body is a circular physical object: a ball or a static pocket-mouth collider.
type Body struct {
	ID      int     `json:"id"`
	Pos     Vec2    `json:"position"`
	Vel     Vec2    `json:"velocity"`
	Radius  float64 `json:"radius"`
	Mass    float64 `json:"-"`
	Movable bool    `json:"movable"`
	Visible bool    `json:"visible"`

	subscribers
}

// NewBall creates a movable, visible ball at pos.
func NewBall(id int, pos Vec2, arena *Observers) *Body {
	mass := BallMass
	if id == CueBallID {
		mass = CueBallMass
	}
	return &Body{
		ID:          id,
		Pos:         pos,
		Radius:      BallRadius,
		Mass:        mass,
		Movable:     true,
		Visible:     true,
		subscribers: subscribers{arena: arena},
	}
}

// NewStaticCollider creates an immovable, infinite-mass ball-shaped collider.
func NewStaticCollider(pos Vec2, arena *Observers) *Body {
	return &Body{
		ID:          StaticID,
		Pos:         pos,
		Radius:      BallRadius,
		Mass:        math.Inf(1),
		Visible:     true,
		subscribers: subscribers{arena: arena},
	}
}

func (b *Body) Circle() Circle {
	return Circle{Center: b.Pos, Radius: b.Radius}
}

func (b *Body) Speed() float64 {
	return b.Vel.Magnitude()
}

// IsMoving reports whether the body will still travel on the next step.
func (b *Body) IsMoving() bool {
	return b.Movable && b.Visible && b.Speed() > 0
}

// Move advances one simulation step and applies rolling friction. Speeds below
// RestSpeed snap to exactly zero so bodies settle in a bounded number of steps.
func (b *Body) Move() {
	if !b.Movable {
		return
	}
	b.Pos = b.Pos.Plus(b.Vel)
	b.Vel = b.Vel.Times(Friction)
	if b.Speed() < RestSpeed {
		b.Vel = Vec2{}
	}
}

// Stop zeroes the velocity.
func (b *Body) Stop() {
	b.Vel = Vec2{}
}

// Notify fans an event out to every registered observer.
func (b *Body) Notify(kind EventKind, other int) {
	b.publish(Event{Kind: kind, BodyID: b.ID, OtherID: other})
}

func (b *Body) isStatic() bool {
	return math.IsInf(b.Mass, 1)
}

// Collide separates and resolves two overlapping bodies. It returns true when
// an impulse was exchanged, in which case the participants have been notified.
func Collide(a, b *Body) bool {
	if !a.Visible || !b.Visible || (a.isStatic() && b.isStatic()) {
		return false
	}
	n, depth, ok := circlesOverlap(a.Circle(), b.Circle())
	if !ok {
		return false
	}
	separate(a, b, n, depth)

	va, vb, applied := elasticImpulse(a.Vel, b.Vel, a.Mass, b.Mass, n)
	if !applied {
		return false
	}
	a.Vel, b.Vel = va, vb

	switch {
	case b.isStatic():
		a.Notify(EventRailCollided, b.ID)
		b.Notify(EventRailCollided, a.ID)
	case a.isStatic():
		b.Notify(EventRailCollided, a.ID)
		a.Notify(EventRailCollided, b.ID)
	default:
		a.Notify(EventBallCollided, b.ID)
	}
	return true
}

// separate pushes overlapping bodies apart along n in proportion to inverse mass.
func separate(a, b *Body, n Vec2, depth float64) {
	invA, invB := inverseMass(a.Mass), inverseMass(b.Mass)
	total := invA + invB
	if total == 0 {
		return
	}
	a.Pos = a.Pos.Minus(n.Times(depth * invA / total))
	b.Pos = b.Pos.Plus(n.Times(depth * invB / total))
}

// Rail is a static rectangular cushion collider.
type Rail struct {
	Rect
	subscribers
}

func NewRail(r Rect, arena *Observers) *Rail {
	return &Rail{Rect: r, subscribers: subscribers{arena: arena}}
}

// CollideRail pushes b out of the rail and reflects the normal component of its
// velocity. The tangential component is kept.
func (b *Body) CollideRail(r *Rail) bool {
	if !b.Visible || !b.Movable {
		return false
	}
	n, depth, ok := circleRectOverlap(b.Circle(), r.Rect)
	if !ok {
		return false
	}
	b.Pos = b.Pos.Plus(n.Times(depth))

	v, reflected := reflect(b.Vel, n)
	if !reflected {
		return false
	}
	b.Vel = v
	b.Notify(EventRailCollided, StaticID)
	r.publish(Event{Kind: EventRailCollided, BodyID: StaticID, OtherID: b.ID})
	return true
}
