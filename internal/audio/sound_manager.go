package audio

import (
	"log"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"
	"github.com/playmatatu/simplepool/internal/game"
)

const (
	sampleRate = beep.SampleRate(44100)

	// Collisions arrive in bursts during a break; one sound per kind per window.
	minInterval = 30 * time.Millisecond
)

// SoundManager plays table sounds. It implements game.AudioSink.
type SoundManager struct {
	mu          sync.Mutex
	mixer       *beep.Mixer
	volume      float64
	lastPlayed  map[game.EventKind]time.Time
	now         func() time.Time
	initialized bool
}

// NewSoundManager creates a new sound manager
func NewSoundManager(volume float64) *SoundManager {
	return &SoundManager{
		mixer:      &beep.Mixer{},
		volume:     volume,
		lastPlayed: make(map[game.EventKind]time.Time),
		now:        time.Now,
	}
}

// Initialize sets up the audio system
func (sm *SoundManager) Initialize() error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.initialized {
		return nil
	}

	if err := speaker.Init(sampleRate, sampleRate.N(50*time.Millisecond)); err != nil {
		return err
	}

	speaker.Play(sm.mixer)
	sm.initialized = true
	log.Printf("[AUDIO] speaker initialized at %d Hz", sampleRate)
	return nil
}

// Cleanup stops all sounds
func (sm *SoundManager) Cleanup() {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if !sm.initialized {
		return
	}
	speaker.Lock()
	sm.mixer.Clear()
	speaker.Unlock()
	sm.initialized = false
}

// Play queues the sound for kind. Calls before Initialize are ignored.
func (sm *SoundManager) Play(kind game.EventKind, bodyID int) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if !sm.initialized || !sm.allowLocked(kind) {
		return
	}
	s := SoundFor(kind, sampleRate, sm.volume)
	if s == nil {
		return
	}
	speaker.Lock()
	sm.mixer.Add(s)
	speaker.Unlock()
}

// allowLocked rate-limits each event kind.
func (sm *SoundManager) allowLocked(kind game.EventKind) bool {
	now := sm.now()
	if last, ok := sm.lastPlayed[kind]; ok && now.Sub(last) < minInterval {
		return false
	}
	sm.lastPlayed[kind] = now
	return true
}
