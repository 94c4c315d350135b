package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mijinummi/Lumenpulse/adapters/ratelimit"
	"github.com/mijinummi/Lumenpulse/ports"
)

const (
	ctxUserID    = "user_id"
	ctxPublicKey = "public_key"
)

// AuthMiddleware validates bearer access tokens and stores the session
// identity on the request context.
func AuthMiddleware(tokenizer ports.Tokenizer) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header"})
			return
		}

		claims, err := tokenizer.ParseAccessToken(strings.TrimPrefix(auth, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}

		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxPublicKey, claims.PublicKey)

		c.Next()
	}
}

// RateLimitMiddleware applies a per-IP fixed-window limit. Limiter errors
// fail open; the limiter already decided to allow in that case.
func RateLimitMiddleware(limiter *ratelimit.RedisLimiter, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, err := limiter.Allow(c.Request.Context(), c.ClientIP())
		if err != nil {
			logger.Warn("rate limiter unavailable", zap.Error(err))
		}
		if !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests"})
			return
		}

		c.Next()
	}
}
