// README: Session handlers: show the platform account and rotate the platform token.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"fleetops/internal/http/middleware"
	"fleetops/internal/logger"
)

type SessionHandler struct {
	session Session
	log     *zap.Logger
}

func NewSessionHandler(session Session, log *zap.Logger) *SessionHandler {
	return &SessionHandler{session: session, log: logger.OrNop(log)}
}

func (h *SessionHandler) Get(c *gin.Context) {
	acct, err := h.session.Current().Client.VerifyConnection(c.Request.Context())
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"account": acct})
}

type rotateTokenReq struct {
	Token string `json:"token"`
}

func (h *SessionHandler) RotateToken(c *gin.Context) {
	var req rotateTokenReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	acct, err := h.session.Rotate(c.Request.Context(), req.Token)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	h.log.Info("session token replaced", zap.String("by", middleware.CallerUID(c)))
	writeJSON(c, http.StatusOK, gin.H{"account": acct})
}
