package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rustinsight/pairing-agent/internal/cloudsync"
	"github.com/rustinsight/pairing-agent/pkg/logger"
)

// Pusher is the sync client surface the handler needs.
type Pusher interface {
	Push(ctx context.Context) error
}

// SyncHandler exposes the cloud sync command plus the web app link the UI
// opens in the system browser.
type SyncHandler struct {
	pusher    Pusher
	webAppURL string
}

func NewSyncHandler(pusher Pusher, webAppURL string) *SyncHandler {
	return &SyncHandler{pusher: pusher, webAppURL: webAppURL}
}

func (h *SyncHandler) Register(rg *gin.RouterGroup) {
	rg.POST("/sync/cloud", h.Push)
	rg.GET("/app/url", h.WebAppURL)
}

func (h *SyncHandler) Push(c *gin.Context) {
	if err := h.pusher.Push(c.Request.Context()); err != nil {
		// precondition failures are expected outcomes, the rest are faults
		if !errors.Is(err, cloudsync.ErrNotLoggedIn) && !errors.Is(err, cloudsync.ErrSessionExpired) {
			logger.Errorf("sync: push failed: %v", err)
		}
		c.JSON(http.StatusOK, gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *SyncHandler) WebAppURL(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"url": h.webAppURL})
}
