package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/playmatatu/simplepool/internal/game"
)

// validateDisplayName accepts 3-20 letters, digits, '_' or '-'.
func validateDisplayName(name string) error {
	if len(name) < 3 || len(name) > 20 {
		return errors.New("display name must be 3 to 20 characters")
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
		default:
			return errors.New("display name may only contain letters, digits, '_' and '-'")
		}
	}
	return nil
}

// isDigits checks if a string contains only digits
func isDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// playerIDFromContext returns the id set by AuthMiddleware.
func playerIDFromContext(c *gin.Context) (int, bool) {
	v, ok := c.Get("player_id")
	if !ok {
		return 0, false
	}
	pid, ok := v.(int)
	return pid, ok && pid > 0
}

// gameErrorStatus maps game package errors to HTTP status codes.
func gameErrorStatus(err error) int {
	switch {
	case errors.Is(err, game.ErrGameNotFound), errors.Is(err, game.ErrNotInAnyGame),
		errors.Is(err, game.ErrQueueEntryNotFound):
		return http.StatusNotFound
	case errors.Is(err, game.ErrPlayerInGame), errors.Is(err, game.ErrOwnGame),
		errors.Is(err, game.ErrMatchFull), errors.Is(err, game.ErrGameNotInProgress),
		errors.Is(err, game.ErrAlreadyQueued), errors.Is(err, game.ErrNotAbortable):
		return http.StatusConflict
	case errors.Is(err, game.ErrMatchmakingUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
