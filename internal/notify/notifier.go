// Package notify fans pairing notifications out to the UI collaborator's
// event-stream subscribers.
package notify

import (
	"sync"

	"github.com/google/uuid"

	"github.com/rustinsight/pairing-agent/internal/pairing"
	"github.com/rustinsight/pairing-agent/pkg/logger"
)

// Event is one outbound push notification.
type Event struct {
	Channel string      `json:"channel"`
	Payload interface{} `json:"payload"`
}

const (
	ChannelStatus = "pairing:status"
	ChannelServer = "pairing:server"
	ChannelEntity = "pairing:entity"
	ChannelError  = "pairing:error"
)

// Notifier implements pairing.Notifier over a set of subscriber channels.
// Delivery is best-effort: a subscriber that stops draining loses events
// rather than blocking the pairing loop.
type Notifier struct {
	mu   sync.RWMutex
	subs map[string]chan Event
}

func NewNotifier() *Notifier {
	return &Notifier{subs: make(map[string]chan Event)}
}

// Subscribe registers a new subscriber and returns its id and channel.
func (n *Notifier) Subscribe() (string, <-chan Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	id := uuid.NewString()
	ch := make(chan Event, 32)
	n.subs[id] = ch
	return id, ch
}

// Unsubscribe drops a subscriber and closes its channel.
func (n *Notifier) Unsubscribe(id string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if ch, ok := n.subs[id]; ok {
		delete(n.subs, id)
		close(ch)
	}
}

func (n *Notifier) publish(channel string, payload interface{}) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	for id, ch := range n.subs {
		select {
		case ch <- Event{Channel: channel, Payload: payload}:
		default:
			logger.Warnf("notify: subscriber %s is not draining, dropping %s", id, channel)
		}
	}
}

func (n *Notifier) Status(message string)          { n.publish(ChannelStatus, message) }
func (n *Notifier) Server(s *pairing.PairedServer) { n.publish(ChannelServer, s) }
func (n *Notifier) Entity(e *pairing.PairedEntity) { n.publish(ChannelEntity, e) }
func (n *Notifier) Error(message string)           { n.publish(ChannelError, message) }
