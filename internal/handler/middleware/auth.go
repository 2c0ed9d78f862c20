package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	jwtpkg "pictura/imagegen/pkg/jwt"
	"pictura/imagegen/pkg/response"
)

const ContextKeyClientClaims = "client_claims"

func JWTAuth(jwtManager *jwtpkg.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, "missing authorization header")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(c, "invalid authorization format")
			c.Abort()
			return
		}

		claims, err := jwtManager.Validate(parts[1])
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}

		c.Set(ContextKeyClientClaims, claims)
		c.Next()
	}
}

// ClientName returns the authenticated client, or "" when auth is disabled.
func ClientName(c *gin.Context) string {
	v, ok := c.Get(ContextKeyClientClaims)
	if !ok {
		return ""
	}
	claims, ok := v.(*jwtpkg.Claims)
	if !ok {
		return ""
	}
	return claims.Subject
}
