package audio

import (
	"math"
	"math/rand"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/playmatatu/simplepool/internal/game"
)

// WaveType defines oscillator wave shapes
type WaveType int

const (
	WaveSine WaveType = iota
	WaveNoise
)

// oscillator generates raw audio waves
type oscillator struct {
	freq     float64
	phase    float64
	duration int
	position int
	wave     WaveType
	rate     beep.SampleRate
}

// NewOscillator creates a finite oscillator.
func NewOscillator(freq float64, duration time.Duration, wave WaveType, rate beep.SampleRate) beep.Streamer {
	return &oscillator{
		freq:     freq,
		duration: rate.N(duration),
		wave:     wave,
		rate:     rate,
	}
}

func (o *oscillator) Stream(samples [][2]float64) (n int, ok bool) {
	for i := range samples {
		if o.position >= o.duration {
			return i, i > 0
		}

		var val float64
		switch o.wave {
		case WaveSine:
			val = math.Sin(2 * math.Pi * o.phase)
		case WaveNoise:
			val = rand.Float64()*2 - 1
		}

		samples[i][0] = val
		samples[i][1] = val

		o.phase += o.freq / float64(o.rate)
		o.phase -= math.Floor(o.phase)
		o.position++
	}
	return len(samples), true
}

func (o *oscillator) Err() error { return nil }

// decay fades a stream out exponentially after a short linear attack.
type decay struct {
	streamer beep.Streamer
	attack   int
	rate     float64
	position int
}

// NewDecay shapes s with an attack ramp and an exponential tail of the given time constant.
func NewDecay(s beep.Streamer, attack, tau time.Duration, sr beep.SampleRate) beep.Streamer {
	return &decay{
		streamer: s,
		attack:   sr.N(attack),
		rate:     1 / (tau.Seconds() * float64(sr)),
	}
}

func (d *decay) Stream(samples [][2]float64) (n int, ok bool) {
	n, ok = d.streamer.Stream(samples)
	for i := 0; i < n; i++ {
		vol := math.Exp(-float64(d.position) * d.rate)
		if d.position < d.attack {
			vol *= float64(d.position) / float64(d.attack)
		}
		samples[i][0] *= vol
		samples[i][1] *= vol
		d.position++
	}
	return n, ok
}

func (d *decay) Err() error { return d.streamer.Err() }

// math.Log2(0) is -Inf, so zero volume is rendered silent.
func newVolume(s beep.Streamer, vol float64) beep.Streamer {
	if vol <= 0 {
		return &effects.Volume{Streamer: s, Base: 2, Volume: 0, Silent: true}
	}
	return &effects.Volume{Streamer: s, Base: 2, Volume: math.Log2(vol), Silent: false}
}

// clack is a percussive tone with a noise transient, the basis of every table sound.
func clack(freq float64, duration, tau time.Duration, noise float64, sr beep.SampleRate) beep.Streamer {
	tone := NewDecay(NewOscillator(freq, duration, WaveSine, sr), time.Millisecond, tau, sr)
	hit := NewDecay(NewOscillator(0, duration, WaveNoise, sr), 0, tau/4, sr)
	return beep.Mix(newVolume(tone, 1-noise), newVolume(hit, noise))
}

// SoundFor builds the effect played for a physical event.
func SoundFor(kind game.EventKind, sr beep.SampleRate, volume float64) beep.Streamer {
	var s beep.Streamer
	switch kind {
	case game.EventCueStruck:
		s = clack(180, 90*time.Millisecond, 25*time.Millisecond, 0.6, sr)
	case game.EventBallCollided:
		s = clack(1400, 60*time.Millisecond, 12*time.Millisecond, 0.35, sr)
	case game.EventRailCollided:
		s = clack(320, 80*time.Millisecond, 20*time.Millisecond, 0.5, sr)
	case game.EventPocketCollided:
		s = beep.Seq(
			clack(600, 40*time.Millisecond, 10*time.Millisecond, 0.4, sr),
			clack(110, 220*time.Millisecond, 80*time.Millisecond, 0.2, sr),
		)
	default:
		return nil
	}
	return newVolume(s, volume)
}
