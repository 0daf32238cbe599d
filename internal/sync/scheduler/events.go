package scheduler

import (
	"time"

	"github.com/kimhsiao/fieldcapture/backend/internal/models"
	syncpkg "github.com/kimhsiao/fieldcapture/backend/internal/sync"
)

// EventType identifies a coordinator notification.
type EventType string

const (
	EventSyncStarted    EventType = "sync.started"
	EventSyncProgress   EventType = "sync.progress"
	EventSyncCompleted  EventType = "sync.completed"
	EventSyncFailed     EventType = "sync.failed"
	EventNetworkChanged EventType = "network.changed"
	EventPendingChanged EventType = "pending.changed"
)

// Event is delivered to listeners. Only the fields relevant to Type are set.
type Event struct {
	Type     EventType            `json:"type"`
	Time     time.Time            `json:"time"`
	Trigger  string               `json:"trigger,omitempty"`
	Online   *bool                `json:"online,omitempty"`
	Progress *syncpkg.Progress    `json:"progress,omitempty"`
	Result   *models.SyncResult   `json:"result,omitempty"`
	Pending  *models.PendingCount `json:"pending,omitempty"`
	Error    string               `json:"error,omitempty"`
}

// Listener receives events synchronously and must not block.
type Listener func(Event)

// Subscribe registers l and returns a function that removes it.
func (c *Coordinator) Subscribe(l Listener) func() {
	c.listenersMu.Lock()
	id := c.nextListener
	c.nextListener++
	c.listeners[id] = l
	c.listenersMu.Unlock()

	return func() {
		c.listenersMu.Lock()
		delete(c.listeners, id)
		c.listenersMu.Unlock()
	}
}

func (c *Coordinator) emit(event Event) {
	if event.Time.IsZero() {
		event.Time = time.Now()
	}

	c.listenersMu.RLock()
	listeners := make([]Listener, 0, len(c.listeners))
	for _, l := range c.listeners {
		listeners = append(listeners, l)
	}
	c.listenersMu.RUnlock()

	for _, l := range listeners {
		l(event)
	}
}
