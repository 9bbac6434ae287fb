package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/openfellowship/commons/backend/internal/auth"
	"github.com/openfellowship/commons/backend/internal/users"
	"go.uber.org/zap"
)

type telegramLoginResponse struct {
	AccessToken string      `json:"access_token"`
	ExpiresIn   int64       `json:"expires_in"`
	TokenType   string      `json:"token_type"`
	User        userPayload `json:"user"`
}

type userPayload struct {
	ID         string  `json:"id"`
	Username   string  `json:"username"`
	IsAdmin    bool    `json:"is_admin"`
	IsVerified bool    `json:"is_verified"`
	PhotoURL   *string `json:"photo_url,omitempty"`
}

func userPayloadFrom(user users.User) userPayload {
	return userPayload{
		ID:         user.ID,
		Username:   user.Username,
		IsAdmin:    user.IsAdmin,
		IsVerified: user.IsVerified,
		PhotoURL:   user.TelegramPhotoURL,
	}
}

// handleTelegramLogin verifies a Login Widget payload, provisions the account
// on first sight and returns a backend bearer token.
func (h *httpHandler) handleTelegramLogin(c *gin.Context) {
	var profile auth.TelegramProfile
	if err := c.ShouldBindJSON(&profile); err != nil || profile.ID == 0 || profile.Hash == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	if err := h.telegram.Verify(profile); err != nil {
		if errors.Is(err, auth.ErrTelegramNotConfigured) {
			h.logger.Error("telegram login attempted without bot token", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "telegram_login_unavailable"})
			return
		}
		h.logger.Warn("telegram payload verification failed", zap.Error(err))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	user, err := h.users.LoginWithTelegram(c.Request.Context(), profile)
	if err != nil {
		if errors.Is(err, users.ErrAccountDeactivated) {
			c.JSON(http.StatusForbidden, gin.H{"error": "account_deactivated"})
			return
		}
		h.logger.Error("telegram login failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login_failed"})
		return
	}

	principal := auth.Principal{
		UserID:   user.ID,
		Username: user.Username,
		IsAdmin:  user.IsAdmin,
	}
	token, expiresIn, err := h.tokens.IssueBackendToken(c.Request.Context(), principal)
	if err != nil {
		h.logger.Error("failed to issue backend token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token_issue_failed"})
		return
	}

	c.JSON(http.StatusOK, telegramLoginResponse{
		AccessToken: token,
		ExpiresIn:   expiresIn,
		TokenType:   "Bearer",
		User:        userPayloadFrom(user),
	})
}

// handleCurrentUser returns the account behind the bearer token.
func (h *httpHandler) handleCurrentUser(c *gin.Context) {
	principal, _ := currentPrincipal(c)
	user, err := h.users.GetByID(c.Request.Context(), principal.UserID)
	if err != nil {
		h.respondDomainError(c, err, []errorStatus{
			{users.ErrUserNotFound, http.StatusNotFound},
		})
		return
	}
	c.JSON(http.StatusOK, userPayloadFrom(user))
}
