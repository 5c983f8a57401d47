package audio

import (
	"testing"
	"time"

	"github.com/gopxl/beep"
	"github.com/playmatatu/simplepool/internal/game"
)

func streamAll(t *testing.T, s beep.Streamer) (int, float64) {
	t.Helper()
	buf := make([][2]float64, 512)
	total, peak := 0, 0.0
	for i := 0; i < 10000; i++ {
		n, ok := s.Stream(buf)
		for _, smp := range buf[:n] {
			if smp[0] > peak {
				peak = smp[0]
			}
			if -smp[0] > peak {
				peak = -smp[0]
			}
		}
		total += n
		if !ok {
			return total, peak
		}
	}
	t.Fatal("stream never ended")
	return 0, 0
}

func TestOscillatorLength(t *testing.T) {
	rate := beep.SampleRate(44100)
	osc := NewOscillator(440, 100*time.Millisecond, WaveSine, rate)

	n, peak := streamAll(t, osc)
	if n != rate.N(100*time.Millisecond) {
		t.Errorf("streamed %d samples, want %d", n, rate.N(100*time.Millisecond))
	}
	if peak > 1.0 {
		t.Errorf("sine out of range: %f", peak)
	}
}

func TestDecayAttenuates(t *testing.T) {
	rate := beep.SampleRate(44100)
	s := NewDecay(NewOscillator(0, 200*time.Millisecond, WaveNoise, rate), 0, 10*time.Millisecond, rate)

	buf := make([][2]float64, rate.N(200*time.Millisecond))
	n, _ := s.Stream(buf)
	tail := 0.0
	for _, smp := range buf[n-100 : n] {
		if smp[0] > tail {
			tail = smp[0]
		}
	}
	if tail > 0.01 {
		t.Errorf("tail not decayed: %f", tail)
	}
}

func TestSoundForEveryEvent(t *testing.T) {
	for _, kind := range []game.EventKind{game.EventCueStruck, game.EventBallCollided, game.EventRailCollided, game.EventPocketCollided} {
		s := SoundFor(kind, sampleRate, 0.5)
		if s == nil {
			t.Fatalf("no sound for %s", kind)
		}
		n, peak := streamAll(t, s)
		if n == 0 || peak == 0 {
			t.Errorf("%s: silent sound (n=%d peak=%f)", kind, n, peak)
		}
	}
	if SoundFor(game.EventKind(99), sampleRate, 1) != nil {
		t.Error("unknown event kind should have no sound")
	}
}

func TestPlayBeforeInitializeIsIgnored(t *testing.T) {
	sm := NewSoundManager(1)
	sm.Play(game.EventCueStruck, game.CueBallID)
	if sm.mixer.Len() != 0 {
		t.Error("sound queued without a speaker")
	}
}

func TestBurstsAreRateLimited(t *testing.T) {
	sm := NewSoundManager(1)
	now := time.Unix(0, 0)
	sm.now = func() time.Time { return now }

	if !sm.allowLocked(game.EventBallCollided) {
		t.Fatal("first collision should play")
	}
	if sm.allowLocked(game.EventBallCollided) {
		t.Error("second collision in the same instant should be dropped")
	}
	if !sm.allowLocked(game.EventRailCollided) {
		t.Error("kinds are limited independently")
	}
	now = now.Add(minInterval)
	if !sm.allowLocked(game.EventBallCollided) {
		t.Error("collision after the interval should play")
	}
}
