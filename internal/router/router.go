package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-adaptive/internal/config"
	"github.com/stemsi/exstem-adaptive/internal/database"
	"github.com/stemsi/exstem-adaptive/internal/handler"
	"github.com/stemsi/exstem-adaptive/internal/logger"
	"github.com/stemsi/exstem-adaptive/internal/middleware"
	"github.com/stemsi/exstem-adaptive/internal/response"
	"github.com/stemsi/exstem-adaptive/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth       *handler.AuthHandler
	Session    *handler.SessionHandler
	Proctoring *handler.ProctoringHandler
	WS         *handler.WSHandler
	// Monitor is nil when no Redis is configured.
	Monitor *handler.MonitorHandler
	// Probes are the backing services checked by /health.
	Probes []database.Probe
}

// Limiters are the rate limiters applied to public and high-volume routes.
type Limiters struct {
	Login      *middleware.RateLimiter
	Proctoring *middleware.RateLimiter
}

// NewLimiters builds the limiters from configuration.
func NewLimiters(cfg *config.Config) Limiters {
	return Limiters{
		Login:      middleware.NewRateLimiter(30, time.Minute, middleware.ByClientIP),
		Proctoring: middleware.NewRateLimiter(cfg.ProctoringRatePerMinute, time.Minute, middleware.ByTokenSubject),
	}
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	limiters Limiters,
	cfg *config.Config,
	log zerolog.Logger,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())

	// ─── CORS ──────────────────────────────────────────────────────────
	// Restrict to AllowedOrigins when set; otherwise allow all for dev.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	router.Use(response.RequestID())
	router.Use(logger.Requests(log, "/health"))
	router.Use(middleware.Brotli(middleware.BrotliOptions{
		MinLength: middleware.DefaultBrotliOptions.MinLength,
		SkipPaths: []string{"/ws/", "/api/v1/proctor/banks/"},
	}))

	router.GET("/health", handler.Health(cfg.StorageDriver, handlers.Probes...))

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	auth := router.Group("/api/v1/auth")
	auth.Use(limiters.Login.Middleware())
	{
		auth.POST("/proctor/login", handlers.Auth.ProctorLogin)
	}

	// ─── 2. Session Group (JWT) ────────────────────────────────────────
	student := middleware.RequireStudentJWT(authService)
	sessions := router.Group("/api/v1/sessions")
	sessions.Use(middleware.NoStore())
	{
		sessions.POST("", student, handlers.Session.StartSession)
		sessions.GET("/:id", student, handlers.Session.GetSession)
		sessions.POST("/:id/answers", student, handlers.Session.SubmitAnswer)
		sessions.GET("/:id/report", middleware.RequireAnyJWT(authService), handlers.Session.GetReport)
		sessions.POST("/:id/proctoring/events",
			student,
			limiters.Proctoring.Middleware(),
			handlers.Proctoring.LogEvent,
		)
	}

	// ─── 3. WebSocket Group (Student, token in query) ──────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireStudentJWT(authService))
	{
		ws.GET("/sessions/:id/proctoring", handlers.WS.ProctoringStream)
	}

	// ─── 4. Proctor Group (JWT) ────────────────────────────────────────
	if handlers.Monitor != nil {
		proctor := router.Group("/api/v1/proctor")
		proctor.Use(middleware.RequireProctorJWT(authService))
		{
			proctor.GET("/banks/:id/monitor", handlers.Monitor.MonitorBankSSE)
		}
	}

	router.NoRoute(func(c *gin.Context) {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	})

	return router
}
