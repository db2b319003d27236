package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const claimsKey = "auth.claims"

// Middleware rejects requests without a valid bearer token and stores the
// claims on the gin context. When disabled, the X-Player-Id header names
// the player instead; it is meant for local development only.
func Middleware(j JWT, disabled bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if disabled {
			id := strings.TrimSpace(c.GetHeader("X-Player-Id"))
			if id == "" {
				id = "dev"
			}
			c.Set(claimsKey, Claims{PlayerID: id, Name: c.GetHeader("X-Player-Name"), Role: RoleAdmin})
			c.Next()
			return
		}
		tok := bearerToken(c.GetHeader("Authorization"))
		if tok == "" {
			abort(c, http.StatusUnauthorized, "missing bearer token")
			return
		}
		claims, err := j.Verify(tok)
		if err != nil {
			abort(c, http.StatusUnauthorized, "invalid token")
			return
		}
		c.Set(claimsKey, claims)
		c.Next()
	}
}

// RequireAdmin must run after Middleware.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := ClaimsFrom(c)
		if !ok || !claims.IsAdmin() {
			abort(c, http.StatusForbidden, "admin role required")
			return
		}
		c.Next()
	}
}

func ClaimsFrom(c *gin.Context) (Claims, bool) {
	v, ok := c.Get(claimsKey)
	if !ok {
		return Claims{}, false
	}
	claims, ok := v.(Claims)
	return claims, ok
}

func abort(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"code": status, "message": message})
}

func bearerToken(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	parts := strings.SplitN(v, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
