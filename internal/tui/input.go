package tui

import (
	"github.com/gdamore/tcell/v2"
	"github.com/playmatatu/simplepool/internal/game"
)

// Translate converts a terminal event to game input. Events with no game
// meaning return false.
func (r *Renderer) Translate(ev tcell.Event) (game.InputEvent, bool) {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		switch ev.Key() {
		case tcell.KeyEscape, tcell.KeyCtrlC:
			return game.InputEvent{Kind: game.InputQuit}, true
		case tcell.KeyEnter:
			return game.InputEvent{Kind: game.InputStrike}, true
		case tcell.KeyRune:
			switch ev.Rune() {
			case 'q', 'Q':
				return game.InputEvent{Kind: game.InputQuit}, true
			case ' ':
				return game.InputEvent{Kind: game.InputStrike}, true
			}
		}

	case *tcell.EventMouse:
		// Only the press strikes; drags with the button held keep aiming
		pressed := ev.Buttons()&tcell.Button1 != 0
		wasDown := r.button1Down
		r.button1Down = pressed
		if pressed && !wasDown {
			return game.InputEvent{Kind: game.InputStrike}, true
		}
		col, row := ev.Position()
		x, y := r.ToView(col, row)
		return game.InputEvent{Kind: game.InputPointer, X: x, Y: y}, true

	case *tcell.EventResize:
		r.screen.Sync()
	}
	return game.InputEvent{}, false
}

// Poll drains every pending terminal event without blocking.
func (r *Renderer) Poll(events <-chan tcell.Event) []game.InputEvent {
	var out []game.InputEvent
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return out
			}
			if in, ok := r.Translate(ev); ok {
				out = append(out, in)
			}
		default:
			return out
		}
	}
}

// PumpEvents forwards screen events to a channel until quit is closed.
func PumpEvents(screen tcell.Screen, quit <-chan struct{}) <-chan tcell.Event {
	ch := make(chan tcell.Event, 100)
	go screen.ChannelEvents(ch, quit)
	return ch
}
