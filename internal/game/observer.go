package game

// EventKind identifies a physical event published by a body.
type EventKind int

const (
	EventCueStruck EventKind = iota
	EventBallCollided
	EventRailCollided
	EventPocketCollided
)

func (k EventKind) String() string {
	switch k {
	case EventCueStruck:
		return "cue_struck"
	case EventBallCollided:
		return "ball_collided"
	case EventRailCollided:
		return "rail_collided"
	case EventPocketCollided:
		return "pocket_collided"
	}
	return "unknown"
}

// Event is delivered synchronously to every observer registered on the
// publishing body. OtherID is the second participant, or NoHit.
type Event struct {
	Kind    EventKind `json:"kind"`
	BodyID  int       `json:"body_id"`
	OtherID int       `json:"other_id"`
}

// Observer receives body events.
type Observer interface {
	OnNotify(ev Event)
}

// ObserverHandle is a stable index into an Observers arena.
type ObserverHandle int

// Observers owns every observer of a level. Bodies and rails keep handles into
// it and never own the observers themselves.
type Observers struct {
	list []Observer
}

func NewObservers() *Observers {
	return &Observers{}
}

// Register adds obs to the arena and returns its handle.
func (o *Observers) Register(obs Observer) ObserverHandle {
	o.list = append(o.list, obs)
	return ObserverHandle(len(o.list) - 1)
}

// Get returns the observer behind h, or nil for an unknown handle.
func (o *Observers) Get(h ObserverHandle) Observer {
	if o == nil || int(h) < 0 || int(h) >= len(o.list) {
		return nil
	}
	return o.list[h]
}

// subscribers is the handle list embedded in everything that publishes events.
type subscribers struct {
	arena   *Observers
	handles []ObserverHandle
}

func (s *subscribers) AddObserver(h ObserverHandle) {
	for _, cur := range s.handles {
		if cur == h {
			return
		}
	}
	s.handles = append(s.handles, h)
}

func (s *subscribers) RemoveObserver(h ObserverHandle) {
	for i, cur := range s.handles {
		if cur == h {
			s.handles = append(s.handles[:i], s.handles[i+1:]...)
			return
		}
	}
}

func (s *subscribers) HasObserver(h ObserverHandle) bool {
	for _, cur := range s.handles {
		if cur == h {
			return true
		}
	}
	return false
}

func (s *subscribers) publish(ev Event) {
	for _, h := range s.handles {
		if obs := s.arena.Get(h); obs != nil {
			obs.OnNotify(ev)
		}
	}
}

// CollisionObserver records the first object ball touched by the cue ball
// during the current shot.
type CollisionObserver struct {
	firstHit int
}

func NewCollisionObserver() *CollisionObserver {
	return &CollisionObserver{firstHit: NoHit}
}

// ResetFirstHit is called once per shot, when the cue ball is struck.
func (c *CollisionObserver) ResetFirstHit() {
	c.firstHit = NoHit
}

// FirstHit returns the recorded ball id or NoHit.
func (c *CollisionObserver) FirstHit() int {
	return c.firstHit
}

func (c *CollisionObserver) OnNotify(ev Event) {
	if ev.Kind != EventBallCollided || c.firstHit != NoHit {
		return
	}
	switch CueBallID {
	case ev.BodyID:
		c.firstHit = ev.OtherID
	case ev.OtherID:
		c.firstHit = ev.BodyID
	}
}

// AudioSink turns event kinds into sounds. Implementations live outside the engine.
type AudioSink interface {
	Play(kind EventKind, bodyID int)
}

// AudioObserver forwards every event to an AudioSink.
type AudioObserver struct {
	sink AudioSink
}

func NewAudioObserver(sink AudioSink) *AudioObserver {
	return &AudioObserver{sink: sink}
}

func (a *AudioObserver) OnNotify(ev Event) {
	if a.sink == nil {
		return
	}
	a.sink.Play(ev.Kind, ev.BodyID)
}
