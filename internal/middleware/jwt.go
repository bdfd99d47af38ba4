package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"todo_api/internal/auth"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// IdentityResolver loads the current identity for a token's user id.
type IdentityResolver interface {
	Identify(ctx context.Context, userID int) (auth.Identity, error)
}

// AuthMiddleware validates the bearer token and stores the caller identity
// on the context.
func AuthMiddleware(tokens auth.TokenServiceInterface, resolver IdentityResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		// Extract token from "Bearer <token>"
		parts := strings.Fields(authHeader)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization format. Use: Bearer <token>"})
			return
		}

		claims, err := tokens.Validate(parts[1])
		if err != nil {
			if errors.Is(err, auth.ErrExpiredToken) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Token expired"})
			} else {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			}
			return
		}

		identity, err := resolver.Identify(c.Request.Context(), claims.UserID)
		if err != nil {
			logrus.WithError(err).WithField("user_id", claims.UserID).Warn("Failed to resolve token identity")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		auth.SetIdentity(c, identity)
		c.Next()
	}
}

// RequireRole rejects callers whose identity lacks role. It must run after
// AuthMiddleware.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, err := auth.IdentityFromContext(c)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		if !identity.HasRole(role) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
			return
		}
		c.Next()
	}
}
