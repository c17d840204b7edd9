package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const claimsContextKey = "auth_claims"

// Middleware validates bearer tokens and stores the decoded claims in the context.
func (s *Service) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := s.ValidateToken(s.extractToken(c))
		if err != nil {
			if errors.Is(err, ErrTokenMissing) {
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": ErrTokenMissing.Error()})
				return
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": ErrInvalidToken.Error()})
			return
		}
		c.Set(claimsContextKey, claims)
		c.Next()
	}
}

// ClaimsFromContext retrieves the claims stored by the middleware.
func ClaimsFromContext(c *gin.Context) (*Claims, bool) {
	val, ok := c.Get(claimsContextKey)
	if !ok {
		return nil, false
	}
	claims, ok := val.(*Claims)
	return claims, ok && claims != nil
}

// SubjectFromContext returns the token subject, or "" for anonymous requests.
func SubjectFromContext(c *gin.Context) string {
	if claims, ok := ClaimsFromContext(c); ok {
		return claims.Subject
	}
	return ""
}

func (s *Service) extractToken(c *gin.Context) string {
	authHeader := c.GetHeader(s.headerName)
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	return ""
}
