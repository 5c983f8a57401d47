package game

import "math"

// Circle is a collision circle.
type Circle struct {
	Center Vec2
	Radius float64
}

// Rect is an axis-aligned rectangle anchored at its top-left corner.
type Rect struct {
	X, Y, W, H float64
}

func (r Rect) Contains(p Vec2) bool {
	return p.X >= r.X && p.X <= r.X+r.W && p.Y >= r.Y && p.Y <= r.Y+r.H
}

// ClosestPoint clamps p onto the rectangle.
func (r Rect) ClosestPoint(p Vec2) Vec2 {
	return Vec2{
		X: math.Max(r.X, math.Min(p.X, r.X+r.W)),
		Y: math.Max(r.Y, math.Min(p.Y, r.Y+r.H)),
	}
}

// circlesOverlap reports whether a and b intersect. The normal points from a to b.
func circlesOverlap(a, b Circle) (normal Vec2, depth float64, ok bool) {
	d := b.Center.Minus(a.Center)
	dist := d.Magnitude()
	sum := a.Radius + b.Radius
	if dist >= sum {
		return Vec2{}, 0, false
	}
	if dist == 0 {
		// Coincident centres; any axis separates them.
		return Vec2{X: 1}, sum, true
	}
	return d.Times(1 / dist), sum - dist, true
}

// circleRectOverlap reports whether c intersects r. The normal points from the
// rectangle toward the circle centre.
func circleRectOverlap(c Circle, r Rect) (normal Vec2, depth float64, ok bool) {
	closest := r.ClosestPoint(c.Center)
	d := c.Center.Minus(closest)
	dist := d.Magnitude()
	if dist >= c.Radius {
		return Vec2{}, 0, false
	}
	if dist > 0 {
		return d.Times(1 / dist), c.Radius - dist, true
	}

	// Centre is inside the rectangle: push out along the shallowest face.
	left := c.Center.X - r.X
	right := r.X + r.W - c.Center.X
	top := c.Center.Y - r.Y
	bottom := r.Y + r.H - c.Center.Y
	best := left
	normal = Vec2{X: -1}
	if right < best {
		best, normal = right, Vec2{X: 1}
	}
	if top < best {
		best, normal = top, Vec2{Y: -1}
	}
	if bottom < best {
		best, normal = bottom, Vec2{Y: 1}
	}
	return normal, best + c.Radius, true
}

// elasticImpulse returns post-impact velocities for two bodies meeting along the
// unit normal n (pointing from a to b). An infinite mass yields zero inverse mass,
// so that body keeps its velocity and the other reflects its normal component.
// applied is false when the bodies are not approaching along n.
func elasticImpulse(va, vb Vec2, ma, mb float64, n Vec2) (na, nb Vec2, applied bool) {
	approach := va.Minus(vb).Dot(n)
	if approach <= 0 {
		return va, vb, false
	}
	invA, invB := inverseMass(ma), inverseMass(mb)
	if invA+invB == 0 {
		return va, vb, false
	}
	j := 2 * approach / (invA + invB)
	return va.Minus(n.Times(j * invA)), vb.Plus(n.Times(j * invB)), true
}

func inverseMass(m float64) float64 {
	if math.IsInf(m, 1) || m <= 0 {
		return 0
	}
	return 1 / m
}

// reflect mirrors v about a surface with unit normal n when v points into it.
func reflect(v, n Vec2) (Vec2, bool) {
	vn := v.Dot(n)
	if vn >= 0 {
		return v, false
	}
	return v.Minus(n.Times(2 * vn)), true
}

// aimDegrees returns the cue angle for a pointer at p relative to the cue ball at
// c, in [0, 360). Striking at that angle sends the ball away from the pointer.
func aimDegrees(c, p Vec2) float64 {
	if c == p {
		return 0
	}
	deg := math.Atan2(p.Y-c.Y, p.X-c.X) * 180 / math.Pi
	if deg < 0 {
		deg += 360
	}
	return deg
}
