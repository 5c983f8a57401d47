package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/playmatatu/simplepool/internal/config"
	"github.com/stretchr/testify/assert"
)

func wsRouter(cfg *config.Config) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(WebSocketCORSCheck(cfg))
	r.GET("/ws", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func upgradeRequest(origin string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.Header.Set("Connection", "Upgrade")
	req.Header.Set("Upgrade", "websocket")
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	return req
}

func TestWebSocketOriginCheck(t *testing.T) {
	prod := &config.Config{Environment: "production", FrontendURL: "https://pool.example.com/"}
	dev := &config.Config{Environment: "development"}

	cases := []struct {
		name   string
		cfg    *config.Config
		origin string
		want   int
	}{
		{"dev localhost", dev, "http://localhost:3000", http.StatusOK},
		{"dev no origin", dev, "", http.StatusOK},
		{"dev foreign", dev, "https://evil.example.com", http.StatusForbidden},
		{"prod frontend", prod, "https://pool.example.com", http.StatusOK},
		{"prod localhost", prod, "http://localhost:5173", http.StatusForbidden},
		{"prod no origin", prod, "", http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			wsRouter(tc.cfg).ServeHTTP(w, upgradeRequest(tc.origin))
			assert.Equal(t, tc.want, w.Code)
		})
	}
}

func TestPlainRequestsSkipOriginCheck(t *testing.T) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	wsRouter(&config.Config{Environment: "production"}).ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCORSPreflight(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORSMiddleware(&config.Config{Environment: "development"}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "GET")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
}
