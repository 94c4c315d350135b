package http

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mijinummi/Lumenpulse/adapters/ratelimit"
	"github.com/mijinummi/Lumenpulse/ports"
)

// SetupRouter wires the gin router. The limiter is optional; when nil the
// public auth endpoints run unthrottled.
func SetupRouter(handlers *AuthHandlers, tokenizer ports.Tokenizer, limiter *ratelimit.RedisLimiter, logger *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	throttled := func(h gin.HandlerFunc) []gin.HandlerFunc {
		if limiter == nil {
			return []gin.HandlerFunc{h}
		}
		return []gin.HandlerFunc{RateLimitMiddleware(limiter, logger), h}
	}

	auth := router.Group("/auth")
	{
		auth.POST("/challenge", throttled(handlers.Challenge)...)
		auth.POST("/verify", handlers.Verify)
		auth.POST("/refresh", handlers.Refresh)
		auth.POST("/logout", handlers.Logout)
		auth.POST("/password/forgot", throttled(handlers.ForgotPassword)...)
		auth.POST("/password/reset", handlers.ResetPassword)
	}

	api := router.Group("/api")
	api.Use(AuthMiddleware(tokenizer))
	{
		api.GET("/me", handlers.Me)
		api.POST("/logout_all", handlers.LogoutAll)
		api.GET("/accounts/:address/balances", handlers.Balances)
		api.GET("/assets", handlers.Assets)
	}

	return router
}
