package controllers

import (
	"net/http"

	"storefront-service/apperrors"
	"storefront-service/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SessionController issues and clears the session cookie.
type SessionController struct {
	sessions SessionAPI
}

func NewSessionController(sessions SessionAPI) *SessionController {
	return &SessionController{sessions: sessions}
}

// IssueSession handles POST /internal/sessions for a user the upstream auth
// service has already authenticated.
func (sc *SessionController) IssueSession(c *gin.Context) {
	var req SessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.Validation([]apperrors.FieldError{
			{Field: "userId", Rule: "required", Message: "userId is required"},
		}))
		return
	}

	if _, err := sc.sessions.IssueSession(c.Writer, req.UserID); err != nil {
		respondError(c, apperrors.New(apperrors.KindInternal, "Failed to issue session", err))
		return
	}

	logger.Info(c, "session issued", zap.String("user_id", req.UserID))
	c.JSON(http.StatusOK, gin.H{"message": "Session issued"})
}

// Logout handles POST /sessions/logout.
func (sc *SessionController) Logout(c *gin.Context) {
	sc.sessions.ClearSession(c.Writer)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}
