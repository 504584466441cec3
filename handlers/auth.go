package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rustinsight/pairing-agent/internal/session"
	"github.com/rustinsight/pairing-agent/pkg/logger"
)

// AuthHandler exposes the cloud session commands to the UI.
type AuthHandler struct {
	sessions *session.Manager
}

func NewAuthHandler(sessions *session.Manager) *AuthHandler {
	return &AuthHandler{sessions: sessions}
}

// Register routes under /auth
func (h *AuthHandler) Register(rg *gin.RouterGroup) {
	a := rg.Group("/auth")
	a.POST("/login", h.Login)
	a.POST("/logout", h.Logout)
	a.GET("/session", h.GetSession)
}

// Login drives the interactive login flow. The request stays open until the
// user completes or abandons the login; a cancellation is a structured
// non-success result, not an HTTP error.
func (h *AuthHandler) Login(c *gin.Context) {
	_, user, err := h.sessions.Login(c.Request.Context())
	if err != nil {
		if errors.Is(err, session.ErrCancelled) {
			c.JSON(http.StatusOK, gin.H{"success": false, "error": "Login cancelled"})
			return
		}
		logger.Errorf("auth: login failed: %v", err)
		c.JSON(http.StatusOK, gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "user": user})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.sessions.Logout(c.Request.Context()); err != nil {
		logger.Errorf("auth: logout failed: %v", err)
		c.JSON(http.StatusOK, gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// GetSession returns the persisted session, or JSON null when logged out.
func (h *AuthHandler) GetSession(c *gin.Context) {
	sess, err := h.sessions.Session(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, sess)
}
