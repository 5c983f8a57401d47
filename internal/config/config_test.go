package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"APP_ENV", "TICK_RATE_HZ", "STRIKE_SPEED", "AUDIO_ENABLED", "VIEWPORT_WIDTH", "PLAYER1_NAME"} {
		t.Setenv(k, "")
	}

	cfg := Load()

	assert.Equal(t, "development", cfg.Environment)
	assert.False(t, cfg.IsProduction())
	assert.Equal(t, 60, cfg.TickRateHz)
	assert.Equal(t, 11.0, cfg.StrikeSpeed)
	assert.Equal(t, 800.0, cfg.ViewportWidth)
	assert.True(t, cfg.AudioEnabled)
	assert.Equal(t, "PLAYER 1", cfg.Player1Name)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "Production")
	t.Setenv("TICK_RATE_HZ", "120")
	t.Setenv("STRIKE_SPEED", "9.5")
	t.Setenv("AUDIO_ENABLED", "false")
	t.Setenv("IDLE_FORFEIT_SECONDS", "not-a-number")
	t.Setenv("PLAYER2_NAME", "BOB")

	cfg := Load()

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 120, cfg.TickRateHz)
	assert.Equal(t, 9.5, cfg.StrikeSpeed)
	assert.False(t, cfg.AudioEnabled)
	assert.Equal(t, 90, cfg.IdleForfeitSeconds, "invalid ints fall back to the default")
	assert.Equal(t, "BOB", cfg.Player2Name)
}
