package router

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-adaptive/internal/config"
	"github.com/stemsi/exstem-adaptive/internal/handler"
	"github.com/stemsi/exstem-adaptive/internal/lock"
	"github.com/stemsi/exstem-adaptive/internal/repository/memory"
	"github.com/stemsi/exstem-adaptive/internal/service"
)

func newRouter(t *testing.T, cfg *config.Config) (*gin.Engine, *service.AuthService) {
	t.Helper()
	auth := service.NewAuthService(cfg)
	events := memory.NewEventLog()
	monitor := service.NewMonitorService(nil, zerolog.Nop())
	sessions := service.NewExamSessionService(memory.NewQuestionBank(), memory.NewSessionStore(), events, lock.NewLocal(), monitor, service.SessionOptions{}, zerolog.Nop())
	proctoring := service.NewProctoringService(sessions, service.DirectSink{Log: events}, monitor, zerolog.Nop())

	handlers := &Handlers{
		Auth:       handler.NewAuthHandler(auth, zerolog.Nop()),
		Session:    handler.NewSessionHandler(sessions, zerolog.Nop()),
		Proctoring: handler.NewProctoringHandler(proctoring, zerolog.Nop()),
		WS:         handler.NewWSHandler(proctoring, zerolog.Nop(), cfg.AllowedOrigins),
	}
	return SetupRouter(auth, handlers, NewLimiters(cfg), cfg, zerolog.Nop()), auth
}

func testConfig() *config.Config {
	return &config.Config{
		GinMode:                 gin.TestMode,
		StorageDriver:           config.StorageDriverMemory,
		JWTSecret:               "router-secret",
		JWTExpiry:               time.Hour,
		ProctoringRatePerMinute: 2,
		AllowedOrigins:          []string{"https://exam.example.com"},
	}
}

func TestRoutes(t *testing.T) {
	r, auth := newRouter(t, testConfig())
	student, err := auth.GenerateToken(service.TokenTypeStudent, "s-1")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	tests := []struct {
		name     string
		method   string
		path     string
		token    string
		wantCode int
	}{
		{"health", http.MethodGet, "/health", "", http.StatusOK},
		{"session requires token", http.MethodGet, "/api/v1/sessions/" + "00000000-0000-0000-0000-000000000000", "", http.StatusUnauthorized},
		{"unknown session", http.MethodGet, "/api/v1/sessions/00000000-0000-0000-0000-000000000000", student, http.StatusNotFound},
		{"report accepts students", http.MethodGet, "/api/v1/sessions/00000000-0000-0000-0000-000000000000/report", student, http.StatusNotFound},
		{"monitor absent without redis", http.MethodGet, "/api/v1/proctor/banks/00000000-0000-0000-0000-000000000000/monitor", student, http.StatusNotFound},
		{"unknown route", http.MethodGet, "/api/v1/nope", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tt.wantCode {
				t.Errorf("status = %d, want %d (%s)", w.Code, tt.wantCode, w.Body.String())
			}
		})
	}
}

func TestSessionRoutesAreNotCached(t *testing.T) {
	r, auth := newRouter(t, testConfig())
	student, _ := auth.GenerateToken(service.TokenTypeStudent, "s-1")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions/00000000-0000-0000-0000-000000000000", nil)
	req.Header.Set("Authorization", "Bearer "+student)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if got := w.Header().Get("Cache-Control"); got != "no-store" {
		t.Errorf("cache-control = %q", got)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("request id header missing")
	}
}

func TestProctoringRateLimitPerStudent(t *testing.T) {
	r, auth := newRouter(t, testConfig())
	first, _ := auth.GenerateToken(service.TokenTypeStudent, "s-1")
	second, _ := auth.GenerateToken(service.TokenTypeStudent, "s-2")

	post := func(token string) int {
		req := httptest.NewRequest(http.MethodPost,
			"/api/v1/sessions/00000000-0000-0000-0000-000000000000/proctoring/events",
			strings.NewReader(`{}`))
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	// The session does not exist, so allowed requests end in 404.
	got := []int{post(first), post(first), post(first), post(second)}
	want := []int{http.StatusNotFound, http.StatusNotFound, http.StatusTooManyRequests, http.StatusNotFound}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("request %d = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestCORSAllowedOrigin(t *testing.T) {
	r, _ := newRouter(t, testConfig())
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/sessions", nil)
	req.Header.Set("Origin", "https://exam.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://exam.example.com" {
		t.Errorf("allow-origin = %q", got)
	}
}
