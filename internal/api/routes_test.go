package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/playmatatu/simplepool/internal/api/handlers"
	"github.com/playmatatu/simplepool/internal/config"
	"github.com/playmatatu/simplepool/internal/game"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRouter(t *testing.T, env string) (*gin.Engine, *config.Config) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	prev := game.Manager
	game.Manager = game.NewGameManager(ctx, nil, nil, nil)
	t.Cleanup(func() { game.Manager = prev })

	cfg := &config.Config{Environment: env, JWTSecret: "test-secret", SessionTimeoutMin: 60}
	r := gin.New()
	SetupRoutes(r, nil, nil, cfg)
	return r, cfg
}

func doJSON(t *testing.T, r *gin.Engine, method, path, token string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var out map[string]interface{}
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	}
	return w, out
}

func tokenFor(t *testing.T, cfg *config.Config, id int, name string) string {
	t.Helper()
	tok, err := handlers.IssueToken(cfg, id, name)
	require.NoError(t, err)
	return tok
}

func TestHealth(t *testing.T) {
	r, _ := setupRouter(t, "development")

	for _, path := range []string{"/health", "/api/v1/health"} {
		w, body := doJSON(t, r, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "ok", body["status"])
		assert.EqualValues(t, 0, body["active_games"])
	}
}

func TestRegisterValidation(t *testing.T) {
	r, _ := setupRouter(t, "development")

	cases := []map[string]string{
		{"display_name": "al", "pin": "1234"},
		{"display_name": "has space", "pin": "1234"},
		{"display_name": "alice", "pin": "12"},
		{"display_name": "alice", "pin": "12ab"},
	}
	for _, body := range cases {
		w, resp := doJSON(t, r, http.MethodPost, "/api/v1/auth/register", "", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, "%v", body)
		assert.NotEmpty(t, resp["error"])
	}
}

func TestAuthRequired(t *testing.T) {
	r, cfg := setupRouter(t, "development")

	w, _ := doJSON(t, r, http.MethodPost, "/api/v1/game", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = doJSON(t, r, http.MethodPost, "/api/v1/game", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"player_id": 1,
		"exp":       time.Now().Add(-time.Minute).Unix(),
	})
	signed, err := expired.SignedString([]byte(cfg.JWTSecret))
	require.NoError(t, err)
	w, _ = doJSON(t, r, http.MethodPost, "/api/v1/game", signed, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	wrongKey, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"player_id": 1}).SignedString([]byte("other"))
	require.NoError(t, err)
	w, _ = doJSON(t, r, http.MethodPost, "/api/v1/game", wrongKey, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateAndJoinGame(t *testing.T) {
	r, cfg := setupRouter(t, "development")
	alice := tokenFor(t, cfg, 7, "alice")
	bob := tokenFor(t, cfg, 8, "bob")

	w, created := doJSON(t, r, http.MethodPost, "/api/v1/game", alice, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	gameToken := created["game_token"].(string)
	assert.NotEmpty(t, created["player_token"])
	assert.Equal(t, string(game.StatusWaiting), created["status"])

	w, _ = doJSON(t, r, http.MethodPost, "/api/v1/game", alice, nil)
	assert.Equal(t, http.StatusConflict, w.Code, "one open game per player")

	w, _ = doJSON(t, r, http.MethodPost, "/api/v1/game/"+gameToken+"/join", alice, nil)
	assert.Equal(t, http.StatusConflict, w.Code, "cannot join own game")

	w, _ = doJSON(t, r, http.MethodPost, "/api/v1/game/missing/join", bob, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, joined := doJSON(t, r, http.MethodPost, "/api/v1/game/"+gameToken+"/join", bob, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "alice", joined["opponent"])

	w, _ = doJSON(t, r, http.MethodPost, "/api/v1/game/"+gameToken+"/join", tokenFor(t, cfg, 9, "carol"), nil)
	assert.Equal(t, http.StatusConflict, w.Code, "game is full")

	w, state := doJSON(t, r, http.MethodGet, "/api/v1/game/"+gameToken+"?pt="+joined["player_token"].(string), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, state["my_turn"])
	assert.Equal(t, "bob", state["my_display_name"])
}

func TestGetGameState(t *testing.T) {
	r, _ := setupRouter(t, "development")

	w, created := doJSON(t, r, http.MethodPost, "/api/v1/game/test", "", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	gameToken := created["game_token"].(string)

	w, state := doJSON(t, r, http.MethodGet, "/api/v1/game/"+gameToken, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, gameToken, state["token"])
	level := state["level"].(map[string]interface{})
	assert.Equal(t, "AIMING", level["phase"])
	assert.Len(t, level["balls"], 16)

	w, _ = doJSON(t, r, http.MethodGet, "/api/v1/game/"+gameToken+"?pt=wrong", "", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = doJSON(t, r, http.MethodGet, "/api/v1/game/unknown", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTestGameHiddenInProduction(t *testing.T) {
	r, _ := setupRouter(t, "production")

	w, _ := doJSON(t, r, http.MethodPost, "/api/v1/game/test", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMatchmakingWithoutDatabase(t *testing.T) {
	r, cfg := setupRouter(t, "development")
	alice := tokenFor(t, cfg, 7, "alice")

	w, _ := doJSON(t, r, http.MethodPost, "/api/v1/matchmaking", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, body := doJSON(t, r, http.MethodPost, "/api/v1/matchmaking", alice, nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, game.ErrMatchmakingUnavailable.Error(), body["error"])

	w, _ = doJSON(t, r, http.MethodDelete, "/api/v1/matchmaking/q_x", alice, nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestAdminRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	prev := game.Manager
	game.Manager = game.NewGameManager(ctx, nil, nil, nil)
	t.Cleanup(func() { game.Manager = prev })

	disabled := gin.New()
	SetupRoutes(disabled, nil, nil, &config.Config{Environment: "development", JWTSecret: "s"})
	w, _ := doJSON(t, disabled, http.MethodGet, "/api/v1/admin/games/live", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code, "admin routes are off without ADMIN_TOKEN")

	r := gin.New()
	SetupRoutes(r, nil, nil, &config.Config{Environment: "development", JWTSecret: "s", AdminToken: "letmein"})

	admin := func(method, path string, body interface{}, token string) (*httptest.ResponseRecorder, map[string]interface{}) {
		var buf bytes.Buffer
		if body != nil {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
		req := httptest.NewRequest(method, path, &buf)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Admin-Token", token)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		var out map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
		return w, out
	}

	w, _ = admin(http.MethodGet, "/api/v1/admin/games/live", nil, "wrong")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	m, err := game.Manager.CreateTestMatch()
	require.NoError(t, err)

	w, live := admin(http.MethodGet, "/api/v1/admin/games/live", nil, "letmein")
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, live["total"])

	w, _ = admin(http.MethodPost, "/api/v1/admin/games/"+m.Token+"/cancel", map[string]string{}, "letmein")
	assert.Equal(t, http.StatusBadRequest, w.Code, "reason is required")

	w, _ = admin(http.MethodPost, "/api/v1/admin/games/"+m.Token+"/cancel", map[string]string{"reason": "stuck"}, "letmein")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, game.StatusCancelled, m.GetStatus())

	w, _ = admin(http.MethodPost, "/api/v1/admin/games/"+m.Token+"/cancel", map[string]string{"reason": "again"}, "letmein")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = admin(http.MethodGet, "/api/v1/admin/games", nil, "letmein")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
