package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"casa-backend/internal/analyses"
	googleauth "casa-backend/internal/auth"
	"casa-backend/internal/chat"
	"casa-backend/internal/media"
	"casa-backend/internal/services/health"
	"casa-backend/internal/shared/config"
	"casa-backend/internal/shared/metrics"
	"casa-backend/internal/shared/server/middleware"
	"casa-backend/internal/shared/server/respond"
	"casa-backend/internal/users"
)

// PublicMediaPrefix is served without identity so the analysis platform can
// fetch uploaded media by URL.
const PublicMediaPrefix = "/api/v1/storage/public/"

// Rate-limit groups. Function invocations start remote deployments and LLM
// calls, so they get a much smaller budget than reads.
const (
	groupInvoke = "INVOKE"
	groupUpload = "UPLOAD"
	groupRead   = "READ"
)

// RouterDeps carries handlers built by bootstrap.
type RouterDeps struct {
	Config          config.Config
	Health          *health.Service
	AnalysisHandler *analyses.Handler
	MediaHandler    *media.Handler
	ChatHandler     *chat.Handler
	UserHandler     *users.Handler
	GoogleAuth      *googleauth.GoogleService
	RateLimiter     *middleware.RateLimiter
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
		middleware.Auth(PublicMediaPrefix),
		middleware.RateLimit(middleware.RateLimitConfig{
			Rules: map[string]middleware.RateLimitRule{
				groupInvoke: {Rate: 0.2, Burst: 5},
				groupUpload: {Rate: 0.5, Burst: 10},
				groupRead:   {Rate: 5, Burst: 60},
			},
			DefaultGroup: groupRead,
			GroupFor:     rateGroup,
			Limiter:      deps.RateLimiter,
		}),
	)

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		status := deps.Health.Check(c.Request.Context())
		code := http.StatusOK
		if !status.OK {
			code = http.StatusServiceUnavailable
		}
		respond.JSON(c, code, status)
	})

	if deps.GoogleAuth != nil {
		deps.GoogleAuth.RegisterRoutes(api)
	}
	if deps.UserHandler != nil {
		deps.UserHandler.RegisterRoutes(api)
	}
	if deps.MediaHandler != nil {
		deps.MediaHandler.RegisterRoutes(api)
	}
	if deps.AnalysisHandler != nil {
		deps.AnalysisHandler.RegisterInvocation(api)
		deps.AnalysisHandler.RegisterRoutes(api)
	}
	if deps.ChatHandler != nil {
		deps.ChatHandler.RegisterRoutes(api)
	}

	return r
}

func rateGroup(c *gin.Context) string {
	path := c.Request.URL.Path
	switch {
	case strings.HasPrefix(path, "/api/v1/functions/"):
		return groupInvoke
	case c.Request.Method == http.MethodPut && strings.HasPrefix(path, "/api/v1/storage/objects/"):
		return groupUpload
	default:
		return groupRead
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
