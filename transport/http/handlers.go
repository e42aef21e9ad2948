package http

import (
	"errors"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/layer-3/trusttag/core"
	"github.com/layer-3/trusttag/service"
)

const (
	statusSuccess = "success"
	statusError   = "error"

	msgInvalidNonce   = "Invalid nonce"
	msgInvalidRequest = "Invalid request"
	msgInternal       = "Internal server error"
)

// CookieConfig controls the nonce session cookie
type CookieConfig struct {
	Name   string
	Secure bool
	// ClearOnFailure clears the cookie when verification fails, not only on success
	ClearOnFailure bool
}

// AuthHandlers contains HTTP handlers for auth endpoints
type AuthHandlers struct {
	authService *service.AuthService
	cookie      CookieConfig
	logger      *log.Logger
}

// NewAuthHandlers creates new auth handlers
func NewAuthHandlers(authService *service.AuthService, cookie CookieConfig, logger *log.Logger) *AuthHandlers {
	return &AuthHandlers{
		authService: authService,
		cookie:      cookie,
		logger:      logger,
	}
}

type completeSiweRequest struct {
	Payload core.SiwePayload `json:"payload"`
	Nonce   string           `json:"nonce"`
}

// Nonce issues a nonce and binds it to the caller with a cookie
func (h *AuthHandlers) Nonce(c *gin.Context) {
	nonce, err := h.authService.IssueNonce(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to issue nonce", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgInternal})
		return
	}

	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(h.cookie.Name, nonce.Value, int(h.authService.NonceTTL().Seconds()), "/", "", h.cookie.Secure, true)

	c.JSON(http.StatusOK, gin.H{"nonce": nonce.Value})
}

// CompleteSiwe verifies a signed SIWE payload against the session nonce
func (h *AuthHandlers) CompleteSiwe(c *gin.Context) {
	var req completeSiweRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody(msgInvalidRequest))
		return
	}

	// An absent cookie reads as "" and fails the nonce check
	sessionNonce, _ := c.Cookie(h.cookie.Name)

	res, err := h.authService.CompleteSiwe(c.Request.Context(), sessionNonce, core.CompletionRequest{
		Payload: req.Payload,
		Nonce:   req.Nonce,
	})
	if err != nil {
		kind := core.KindOf(err)
		switch kind {
		case core.KindNonceMismatch:
			h.logger.Debug("siwe completion rejected", "kind", kind.String(), "err", err)
			c.JSON(http.StatusBadRequest, errorBody(msgInvalidNonce))
		case core.KindVerificationFailure:
			if h.cookie.ClearOnFailure {
				h.clearCookie(c)
			}
			var verr *core.VerificationError
			reason := err.Error()
			if errors.As(err, &verr) {
				reason = verr.Reason
			}
			h.logger.Info("siwe verification failed", "kind", kind.String(), "reason", reason)
			c.JSON(http.StatusBadRequest, errorBody(reason))
		default:
			h.logger.Error("failed to complete siwe", "kind", kind.String(), "err", err)
			c.JSON(http.StatusInternalServerError, errorBody(msgInternal))
		}
		return
	}

	h.clearCookie(c)
	h.logger.Info("wallet signed in", "address", res.Address, "session", res.Session.ID)

	c.JSON(http.StatusOK, gin.H{
		"status":  statusSuccess,
		"isValid": true,
		"address": res.Address,
		"token":   res.Token,
	})
}

// Me returns information about the authenticated user
func (h *AuthHandlers) Me(c *gin.Context) {
	session, ok := sessionFromContext(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "User not found in context"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"address":    session.Address,
		"expires_at": session.ExpiresAt,
	})
}

// Logout invalidates the caller's session token
func (h *AuthHandlers) Logout(c *gin.Context) {
	session, ok := sessionFromContext(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "User not found in context"})
		return
	}

	if err := h.authService.Logout(c.Request.Context(), session); err != nil {
		h.logger.Error("failed to logout", "address", session.Address, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to logout"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

func (h *AuthHandlers) clearCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(h.cookie.Name, "", -1, "/", "", h.cookie.Secure, true)
}

func errorBody(message string) gin.H {
	return gin.H{
		"status":  statusError,
		"isValid": false,
		"message": message,
	}
}
