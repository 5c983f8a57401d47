// Command pool plays a local two-player game of 8-ball in the terminal.
package main

import (
	"log"
	"os"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/playmatatu/simplepool/internal/audio"
	"github.com/playmatatu/simplepool/internal/config"
	"github.com/playmatatu/simplepool/internal/game"
	"github.com/playmatatu/simplepool/internal/tui"
)

func main() {
	cfg := config.Load()

	// Logs would corrupt the terminal UI
	logFile, err := os.OpenFile("pool.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err == nil {
		log.SetOutput(logFile)
		defer logFile.Close()
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		log.Fatalf("Failed to create screen: %v", err)
	}
	if err := screen.Init(); err != nil {
		log.Fatalf("Failed to initialize screen: %v", err)
	}
	defer screen.Fini()
	screen.EnableMouse()
	screen.HideCursor()

	opts := game.LevelOptions{
		ViewportWidth:  cfg.ViewportWidth,
		ViewportHeight: cfg.ViewportHeight,
		StrikeSpeed:    cfg.StrikeSpeed,
	}
	if cfg.AudioEnabled {
		sm := audio.NewSoundManager(0.6)
		if err := sm.Initialize(); err != nil {
			log.Printf("[AUDIO] disabled: %v", err)
		} else {
			defer sm.Cleanup()
			opts.Audio = sm
		}
	}

	renderer := tui.NewRenderer(screen, cfg.ViewportWidth, cfg.ViewportHeight)
	renderer.SetPlayerNames(cfg.Player1Name, cfg.Player2Name)
	machine := game.NewMachine(opts)

	quit := make(chan struct{})
	defer close(quit)
	events := tui.PumpEvents(screen, quit)

	hz := cfg.TickRateHz
	if hz <= 0 {
		hz = 60
	}
	ticker := time.NewTicker(time.Second / time.Duration(hz))
	defer ticker.Stop()

	for range ticker.C {
		if !machine.Tick(renderer.Poll(events), renderer) {
			return
		}
	}
}
