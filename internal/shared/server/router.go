package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"cv-optimizer/internal/clientstate"
	"cv-optimizer/internal/optimize"
	"cv-optimizer/internal/services/health"
	"cv-optimizer/internal/shared/config"
	"cv-optimizer/internal/shared/metrics"
	"cv-optimizer/internal/shared/server/middleware"
	"cv-optimizer/internal/shared/server/respond"
)

const (
	rateGroupDefault  = "DEFAULT"
	rateGroupOptimize = "OPTIMIZE"
)

// RouterDeps bundles handlers needed by the router.
type RouterDeps struct {
	Config          config.Config
	OptimizeHandler *optimize.Handler
	StateHandler    *clientstate.Handler
	Health          *health.Service
	Limiter         *middleware.RateLimiter
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Config.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
		middleware.RateLimit(middleware.RateLimitConfig{
			DefaultGroup: rateGroupDefault,
			GroupFor:     rateGroupFor,
			Limiter:      deps.Limiter,
			Rules: map[string]middleware.RateLimitRule{
				rateGroupDefault:  {Rate: 20, Burst: 40},
				rateGroupOptimize: {Rate: deps.Config.RateLimitRPS, Burst: deps.Config.RateLimitBurst},
			},
		}),
	)

	api := r.Group("/api")
	if deps.OptimizeHandler != nil {
		deps.OptimizeHandler.RegisterRoutes(api)
	}

	v1 := api.Group("/v1")
	v1.GET("/health", func(c *gin.Context) {
		if deps.Health == nil {
			respond.OK(c, gin.H{"ok": true})
			return
		}
		payload, ok := deps.Health.Status(c.Request.Context())
		status := http.StatusOK
		if !ok {
			status = http.StatusServiceUnavailable
		}
		respond.JSON(c, status, payload)
	})

	v1.GET("/metrics", metrics.Handler())

	if deps.StateHandler != nil {
		identified := v1.Group("")
		identified.Use(middleware.ClientIdentity())
		deps.StateHandler.RegisterRoutes(identified)
	}

	return r
}

func rateGroupFor(c *gin.Context) string {
	if c.Request.Method != http.MethodPost {
		return rateGroupDefault
	}
	switch c.FullPath() {
	case "/api/optimize", "/api/v1/state/optimize":
		return rateGroupOptimize
	}
	return rateGroupDefault
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
