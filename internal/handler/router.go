package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pictura/imagegen/internal/config"
	"pictura/imagegen/internal/handler/middleware"
	"pictura/imagegen/internal/metrics"
	jwtpkg "pictura/imagegen/pkg/jwt"
)

// SetupRouter wires the HTTP surface. jwtManager may be nil when auth is
// disabled. ctx bounds background work owned by middleware.
func SetupRouter(
	ctx context.Context,
	cfg *config.Config,
	logger *zap.Logger,
	m *metrics.Collector,
	jwtManager *jwtpkg.Manager,
	generateHandler *GenerateHandler,
) *gin.Engine {
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogger(logger, m))
	r.Use(middleware.CORS(cfg.CORS))

	// Health check
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if m != nil {
		r.GET("/metrics", gin.WrapH(m.Handler()))
	}

	api := r.Group("/api")
	if cfg.Auth.Enabled && jwtManager != nil {
		api.Use(middleware.JWTAuth(jwtManager))
	}
	api.Use(middleware.RateLimit(ctx, cfg.RateLimit.RPS, cfg.RateLimit.Burst))
	{
		api.POST("/generate", generateHandler.Generate)
	}

	return r
}
