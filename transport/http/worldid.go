package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/layer-3/trusttag/core"
	"github.com/layer-3/trusttag/ports"
)

const worldIDKey = "worldid"

// WorldIDGuard requires a valid World ID proof in the verifyPayload field.
// The request body is left intact for the next handler.
func WorldIDGuard(verifier ports.WorldIDVerifier, logger *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON body"})
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		var req struct {
			VerifyPayload *core.WorldIDProof `json:"verifyPayload"`
		}
		if err := json.Unmarshal(body, &req); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON body"})
			return
		}
		if req.VerifyPayload == nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Missing verifyPayload"})
			return
		}

		if err := verifier.VerifyProof(c.Request.Context(), *req.VerifyPayload); err != nil {
			if errors.Is(err, core.ErrWorldIDRejected) {
				logger.Warn("world id verification failed", "action", req.VerifyPayload.Action, "err", err)
				c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "WorldID verification failed"})
				return
			}
			logger.Error("world id verification unavailable", "err", err)
			c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "WorldID verification unavailable"})
			return
		}

		c.Set(worldIDKey, req.VerifyPayload)
		c.Next()
	}
}

// VerifyHuman confirms a World ID proof for the signed-in wallet
func (h *AuthHandlers) VerifyHuman(c *gin.Context) {
	session, ok := sessionFromContext(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "User not found in context"})
		return
	}
	proof, ok := c.MustGet(worldIDKey).(*core.WorldIDProof)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgInternal})
		return
	}

	h.logger.Info("world id verified", "address", session.Address, "action", proof.Action)
	c.JSON(http.StatusOK, gin.H{
		"status":         statusSuccess,
		"verified":       true,
		"address":        session.Address,
		"action":         proof.Action,
		"nullifier_hash": proof.NullifierHash,
	})
}
