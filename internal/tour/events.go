package tour

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Event types emitted on tour mutations.
const (
	EventHotspotCreated = "hotspot_created"
	EventHotspotUpdated = "hotspot_updated"
	EventHotspotDeleted = "hotspot_deleted"
	EventSceneImage     = "scene_image_replaced"
	EventStatusChanged  = "status_changed"
)

// writeTimeout bounds a single broadcast write so one stalled client
// cannot hold up delivery to the rest of a tour's subscribers.
const writeTimeout = 10 * time.Second

// Event describes one mutation applied to a tour.
type Event struct {
	Type      string    `json:"type"`
	TourID    string    `json:"tour_id"`
	SceneID   string    `json:"scene_id,omitempty"`
	HotspotID string    `json:"hotspot_id,omitempty"`
	Status    Status    `json:"status,omitempty"`
	At        time.Time `json:"at"`
}

// subscriber wraps a connection with its write lock. gorilla/websocket
// permits at most one concurrent writer per connection, so every write
// to conn must hold mu.
type subscriber struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *subscriber) send(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

// EventBroadcaster manages WebSocket connections and broadcasts tour
// mutation events to editor sessions watching a tour.
type EventBroadcaster struct {
	mu          sync.RWMutex
	connections map[string]map[*websocket.Conn]*subscriber // tourID -> connections
}

// NewEventBroadcaster creates a new event broadcaster.
func NewEventBroadcaster() *EventBroadcaster {
	return &EventBroadcaster{
		connections: make(map[string]map[*websocket.Conn]*subscriber),
	}
}

// Subscribe registers a WebSocket connection for a tour.
func (b *EventBroadcaster) Subscribe(tourID string, conn *websocket.Conn) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.connections[tourID] == nil {
		b.connections[tourID] = make(map[*websocket.Conn]*subscriber)
	}
	b.connections[tourID][conn] = &subscriber{conn: conn}
}

// Unsubscribe removes a WebSocket connection from all tours.
func (b *EventBroadcaster) Unsubscribe(conn *websocket.Conn) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for tourID, conns := range b.connections {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(b.connections, tourID)
		}
	}
}

// Broadcast sends an event to all subscribers of a tour. The registry
// lock is released before writing so slow clients only delay their own
// delivery; per-connection writes are serialized through the
// subscriber's lock.
func (b *EventBroadcaster) Broadcast(event *Event) {
	b.mu.RLock()
	subs := make([]*subscriber, 0, len(b.connections[event.TourID]))
	for _, sub := range b.connections[event.TourID] {
		subs = append(subs, sub)
	}
	b.mu.RUnlock()

	if len(subs) == 0 {
		return
	}

	// Serialize event once
	data, err := json.Marshal(event)
	if err != nil {
		slog.Error("failed to marshal tour event", "error", err)
		return
	}

	for _, sub := range subs {
		if err := sub.send(data); err != nil {
			slog.Warn("failed to send event to websocket client",
				"error", err,
				"tour_id", event.TourID,
			)
			// Connection will be cleaned up when client disconnects
		}
	}
}

// ConnectionCount returns the number of active WebSocket connections for a tour.
func (b *EventBroadcaster) ConnectionCount(tourID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if conns, exists := b.connections[tourID]; exists {
		return len(conns)
	}
	return 0
}
