package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/clinic-api/internal/middleware"
	"github.com/jwalitptl/clinic-api/internal/session"
	"github.com/jwalitptl/clinic-api/internal/submission"
	"github.com/jwalitptl/clinic-api/pkg/httputil"
	"github.com/jwalitptl/clinic-api/pkg/metrics"
)

type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

type RouterConfig struct {
	// RateLimit is nil when rate limiting is disabled.
	RateLimit  *middleware.RateLimiterConfig
	CORSConfig middleware.CORSConfig
	Timeout    time.Duration
	Metrics    *metrics.Metrics
	Tracker    *submission.Tracker
	Sessions   session.Provider
}

type Router struct {
	engine   *gin.Engine
	config   RouterConfig
	health   Handler
	handlers []Handler
}

// NewRouter builds the engine. health is mounted without session resolution
// or rate limiting; handlers share the session-aware /api/v1 group.
func NewRouter(config RouterConfig, health Handler, handlers ...Handler) *Router {
	engine := gin.New()

	engine.Use(
		middleware.RequestID(),
		middleware.Recovery(),
		middleware.Logger(),
		middleware.CORS(config.CORSConfig),
		middleware.Timeout(config.Timeout),
	)
	if config.Metrics != nil {
		engine.Use(middleware.Metrics(config.Metrics))
	}

	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, httputil.Response{Status: "error", Message: "route not found"})
	})

	return &Router{
		engine:   engine,
		config:   config,
		health:   health,
		handlers: handlers,
	}
}

func (r *Router) Setup() {
	api := r.engine.Group("/api/v1")

	api.Use(func(c *gin.Context) {
		c.Header("X-API-Version", "1.0")
		c.Next()
	})

	if r.health != nil {
		r.health.RegisterRoutes(api)
	}

	app := api.Group("")
	if r.config.RateLimit != nil {
		app.Use(middleware.NewRateLimiter(*r.config.RateLimit).RateLimit())
	}
	app.Use(middleware.Session(r.config.Sessions))
	if r.config.Tracker != nil {
		app.Use(middleware.TrackSubmissions(r.config.Tracker))
	}

	for _, h := range r.handlers {
		h.RegisterRoutes(app)
	}
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
