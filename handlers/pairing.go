package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rustinsight/pairing-agent/internal/pairing"
	"github.com/rustinsight/pairing-agent/pkg/logger"
)

// PairingService is the orchestrator surface the handler needs.
type PairingService interface {
	Start(ctx context.Context) error
	Stop() error
}

// PairingHandler exposes pairing commands and the paired collections.
type PairingHandler struct {
	svc  PairingService
	repo pairing.Repository
}

func NewPairingHandler(svc PairingService, repo pairing.Repository) *PairingHandler {
	return &PairingHandler{svc: svc, repo: repo}
}

// Register routes under /pairing
func (h *PairingHandler) Register(rg *gin.RouterGroup) {
	p := rg.Group("/pairing")
	p.POST("/start", h.Start)
	p.POST("/stop", h.Stop)
	p.GET("/servers", h.Servers)
	p.GET("/entities", h.Entities)
	p.DELETE("/servers/:id", h.DeleteServer)
	p.DELETE("/entities/:id", h.DeleteEntity)
}

// Start blocks until the engine is listening or the attempt fails. The UI
// follows progress on the event stream meanwhile.
func (h *PairingHandler) Start(c *gin.Context) {
	if err := h.svc.Start(c.Request.Context()); err != nil {
		if !errors.Is(err, pairing.ErrLoginCancelled) {
			logger.Errorf("pairing: start failed: %v", err)
		}
		c.JSON(http.StatusOK, gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *PairingHandler) Stop(c *gin.Context) {
	if err := h.svc.Stop(); err != nil {
		c.JSON(http.StatusOK, gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *PairingHandler) Servers(c *gin.Context) {
	servers, err := h.repo.Servers(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, servers)
}

func (h *PairingHandler) Entities(c *gin.Context) {
	entities, err := h.repo.Entities(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, entities)
}

func (h *PairingHandler) DeleteServer(c *gin.Context) {
	err := h.repo.DeleteServer(c.Request.Context(), c.Param("id"))
	switch {
	case errors.Is(err, pairing.ErrNotFound):
		c.JSON(http.StatusOK, gin.H{"success": false, "error": "Server not found"})
	case err != nil:
		c.JSON(http.StatusOK, gin.H{"success": false, "error": err.Error()})
	default:
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

func (h *PairingHandler) DeleteEntity(c *gin.Context) {
	err := h.repo.DeleteEntity(c.Request.Context(), c.Param("id"))
	switch {
	case errors.Is(err, pairing.ErrNotFound):
		c.JSON(http.StatusOK, gin.H{"success": false, "error": "Entity not found"})
	case err != nil:
		c.JSON(http.StatusOK, gin.H{"success": false, "error": err.Error()})
	default:
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}
