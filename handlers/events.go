package handlers

import (
	"io"

	"github.com/gin-gonic/gin"

	"github.com/rustinsight/pairing-agent/internal/notify"
)

// EventsHandler streams push notifications (pairing:status, pairing:server,
// pairing:entity, pairing:error) to the UI as server-sent events.
type EventsHandler struct {
	notifier *notify.Notifier
}

func NewEventsHandler(n *notify.Notifier) *EventsHandler {
	return &EventsHandler{notifier: n}
}

func (h *EventsHandler) Register(rg *gin.RouterGroup) {
	rg.GET("/events", h.Stream)
}

func (h *EventsHandler) Stream(c *gin.Context) {
	id, ch := h.notifier.Subscribe()
	defer h.notifier.Unsubscribe(id)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	c.Stream(func(w io.Writer) bool {
		select {
		case ev, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent(ev.Channel, ev.Payload)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
