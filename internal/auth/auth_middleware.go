package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/announa/blogpost/internal/domain"
	"github.com/announa/blogpost/internal/ports"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	AccessCookie = "accessToken"
	claimsKey    = "claims"
)

func AuthMiddleware(providerJWT ports.JWT, denylist ports.Denylist, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := bearerToken(c)
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization failed: no token"})
			return
		}

		claims, err := CheckToken(c.Request.Context(), tokenString, providerJWT, denylist, logger)
		if errors.Is(err, domain.ErrTokenInvalid) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": domain.ErrTokenInvalid.Error()})
			return
		} else if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			return
		}
		c.Set(claimsKey, claims)
		c.Next()
	}
}

// RequireRole must run after AuthMiddleware.
func RequireRole(role domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := ClaimsFrom(c)
		if !ok || domain.Role(claims.Role) != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "insufficient permissions"})
			return
		}
		c.Next()
	}
}

func ClaimsFrom(c *gin.Context) (*ports.Claims, bool) {
	value, ok := c.Get(claimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := value.(*ports.Claims)
	return claims, ok
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if parts := strings.SplitN(header, " ", 2); len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	if cookie, err := c.Cookie(AccessCookie); err == nil {
		return cookie
	}
	return ""
}
