package middleware

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"pictura/imagegen/internal/config"
)

func CORS(cfg config.CORSConfig) gin.HandlerFunc {
	conf := cors.Config{
		AllowMethods:     cfg.AllowedMethods,
		AllowHeaders:     cfg.AllowedHeaders,
		ExposeHeaders:    []string{RequestIDHeader},
		AllowCredentials: cfg.AllowCredentials,
		MaxAge:           cfg.MaxAge,
	}
	switch {
	case len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*":
		conf.AllowAllOrigins = true
	case len(cfg.AllowedOrigins) == 0:
		// no cross-origin callers
		conf.AllowOriginFunc = func(string) bool { return false }
	default:
		conf.AllowOrigins = cfg.AllowedOrigins
	}
	return cors.New(conf)
}
