package server

import (
	"github.com/gin-gonic/gin"

	"safetyagent-backend/internal/chat"
	"safetyagent-backend/internal/documents"
	"safetyagent-backend/internal/services/health"
	"safetyagent-backend/internal/shared/config"
	"safetyagent-backend/internal/shared/metrics"
	"safetyagent-backend/internal/shared/server/middleware"
	"safetyagent-backend/internal/shared/server/respond"
)

// RouterDeps carries the handlers the router wires up.
type RouterDeps struct {
	Config          config.Config
	DocumentHandler *documents.Handler
	ChatHandler     *chat.Handler
	Health          *health.Service
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
		middleware.RateLimit(rateLimits()),
	)

	r.GET("/health", func(c *gin.Context) {
		respond.OK(c, deps.Health.Status())
	})
	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api")
	deps.DocumentHandler.RegisterRoutes(api)
	deps.ChatHandler.RegisterRoutes(api)

	r.GET("/ws/chat", deps.ChatHandler.WSHandler())

	return r
}

// rateLimits throttles the expensive endpoints per client IP; other
// routes pass through unlimited.
func rateLimits() middleware.RateLimitConfig {
	return middleware.RateLimitConfig{
		GroupFor: func(c *gin.Context) string {
			switch c.FullPath() {
			case "/api/chat":
				return "CHAT"
			case "/api/upload", "/api/reindex":
				return "INGEST"
			default:
				return ""
			}
		},
		Rules: map[string]middleware.RateLimitRule{
			"CHAT":   {Rate: 2, Burst: 10},
			"INGEST": {Rate: 0.5, Burst: 5},
		},
	}
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
