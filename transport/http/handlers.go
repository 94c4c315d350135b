package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mijinummi/Lumenpulse/adapters/horizon"
	"github.com/mijinummi/Lumenpulse/core"
	"github.com/mijinummi/Lumenpulse/ports"
	"github.com/mijinummi/Lumenpulse/service"
)

// AuthHandlers contains the HTTP handlers for the auth and read-proxy
// endpoints.
type AuthHandlers struct {
	auth    *service.AuthService
	refresh *service.RefreshManager
	reset   *service.ResetManager
	ledger  *horizon.Client
	events  ports.EventPublisher
	logger  *zap.Logger
}

// NewAuthHandlers creates the handler set.
func NewAuthHandlers(
	auth *service.AuthService,
	refresh *service.RefreshManager,
	reset *service.ResetManager,
	ledger *horizon.Client,
	events ports.EventPublisher,
	logger *zap.Logger,
) *AuthHandlers {
	return &AuthHandlers{
		auth:    auth,
		refresh: refresh,
		reset:   reset,
		ledger:  ledger,
		events:  events,
		logger:  logger,
	}
}

type userSummary struct {
	ID               string `json:"id"`
	StellarPublicKey string `json:"stellar_public_key,omitempty"`
}

func summarize(user *core.User) userSummary {
	summary := userSummary{ID: user.ID.String()}
	if user.StellarPublicKey != nil {
		summary.StellarPublicKey = *user.StellarPublicKey
	}
	return summary
}

// Challenge handles the challenge request.
func (h *AuthHandlers) Challenge(c *gin.Context) {
	var req struct {
		PublicKey string `json:"public_key" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	resp, err := h.auth.CreateChallenge(req.PublicKey)
	if err != nil {
		if errors.Is(err, core.ErrInvalidKeyFormat) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid public key"})
			return
		}
		h.logger.Error("failed to create challenge", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create challenge"})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Verify handles the counter-signed challenge submission.
func (h *AuthHandlers) Verify(c *gin.Context) {
	var req struct {
		PublicKey     string  `json:"public_key" binding:"required"`
		SignedPayload string  `json:"signed_payload" binding:"required"`
		DeviceInfo    *string `json:"device_info"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	ip := c.ClientIP()
	meta := service.TokenMeta{DeviceInfo: req.DeviceInfo, IPAddress: &ip}

	result, err := h.auth.VerifyChallenge(c.Request.Context(), req.PublicKey, req.SignedPayload, meta)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrInvalidKeyFormat), errors.Is(err, core.ErrMalformedPayload):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid challenge submission"})
		case errors.Is(err, core.ErrNoChallenge), errors.Is(err, core.ErrChallengeExpired):
			// Not-found and expired are indistinguishable to the caller.
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired challenge"})
		case errors.Is(err, core.ErrSignatureMismatch):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid signature"})
		case core.Classify(err) == core.ClassTransient:
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Service temporarily unavailable"})
		default:
			h.logger.Error("challenge verification failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Authentication failed"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token":  result.AccessToken,
		"refresh_token": result.RefreshToken,
		"token_type":    "Bearer",
		"user":          summarize(result.User),
	})
}

// Refresh handles refresh token rotation.
func (h *AuthHandlers) Refresh(c *gin.Context) {
	var req struct {
		RefreshToken string  `json:"refresh_token" binding:"required"`
		DeviceInfo   *string `json:"device_info"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	ip := c.ClientIP()
	meta := service.TokenMeta{DeviceInfo: req.DeviceInfo, IPAddress: &ip}

	result, err := h.refresh.Rotate(c.Request.Context(), req.RefreshToken, meta)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrInvalidToken),
			errors.Is(err, core.ErrTokenExpired),
			errors.Is(err, core.ErrUserGone):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired refresh token"})
		case core.Classify(err) == core.ClassTransient:
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Service temporarily unavailable"})
		default:
			h.logger.Error("refresh rotation failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to refresh tokens"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token":  result.AccessToken,
		"refresh_token": result.RefreshToken,
		"token_type":    "Bearer",
	})
}

// Logout revokes a refresh token. The response never reveals whether the
// token existed.
func (h *AuthHandlers) Logout(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if err := h.refresh.Revoke(c.Request.Context(), req.RefreshToken); err != nil {
		if core.Classify(err) == core.ClassTransient {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Service temporarily unavailable"})
			return
		}
		h.logger.Error("logout failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to logout"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// LogoutAll revokes every refresh token of the authenticated user.
func (h *AuthHandlers) LogoutAll(c *gin.Context) {
	userID, err := uuid.Parse(c.GetString(ctxUserID))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token subject"})
		return
	}

	if err := h.refresh.RevokeAll(c.Request.Context(), userID); err != nil {
		if core.Classify(err) == core.ClassTransient {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Service temporarily unavailable"})
			return
		}
		h.logger.Error("logout-all failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to logout"})
		return
	}

	if h.events != nil {
		if err := h.events.PublishLogout(c.Request.Context(), userID.String()); err != nil {
			h.logger.Warn("failed to publish logout event", zap.Error(err))
		}
	}

	c.JSON(http.StatusOK, gin.H{"message": "Logged out everywhere"})
}

// ForgotPassword requests a password reset. The response is identical for
// registered and unregistered emails.
func (h *AuthHandlers) ForgotPassword(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if err := h.reset.RequestReset(c.Request.Context(), req.Email); err != nil {
		if core.Classify(err) == core.ClassTransient {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Service temporarily unavailable"})
			return
		}
		h.logger.Error("reset request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process request"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": service.GenericResetMessage})
}

// ResetPassword redeems a reset token.
func (h *AuthHandlers) ResetPassword(c *gin.Context) {
	var req struct {
		Token       string `json:"token" binding:"required"`
		NewPassword string `json:"new_password" binding:"required,min=8"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if err := h.reset.RedeemReset(c.Request.Context(), req.Token, req.NewPassword); err != nil {
		switch {
		case errors.Is(err, core.ErrResetTokenInvalid),
			errors.Is(err, core.ErrResetTokenExpired),
			errors.Is(err, core.ErrUserGone):
			// One generic message for every rejection.
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired reset token"})
		case core.Classify(err) == core.ClassTransient:
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Service temporarily unavailable"})
		default:
			h.logger.Error("reset redemption failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reset password"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Your password has been updated."})
}

// Me returns the authenticated session identity.
func (h *AuthHandlers) Me(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"user_id":    c.GetString(ctxUserID),
		"public_key": c.GetString(ctxPublicKey),
	})
}

// Balances proxies an account balance lookup to Horizon.
func (h *AuthHandlers) Balances(c *gin.Context) {
	account := c.Param("address")

	balances, err := h.ledger.AccountBalances(c.Request.Context(), account)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Account not found"})
		case core.Classify(err) == core.ClassTransient:
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Ledger unavailable"})
		default:
			h.logger.Error("balance lookup failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch balances"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"balances": balances})
}

// Assets proxies an asset search to Horizon.
func (h *AuthHandlers) Assets(c *gin.Context) {
	assets, err := h.ledger.SearchAssets(c.Request.Context(), c.Query("code"), c.Query("issuer"), 20)
	if err != nil {
		if core.Classify(err) == core.ClassTransient {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Ledger unavailable"})
			return
		}
		h.logger.Error("asset search failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to search assets"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"assets": assets})
}
