package tour

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// dialSubscriber upgrades a test connection and registers it with the
// broadcaster for the given tour. The returned client conn is the peer
// the broadcaster writes to.
func dialSubscriber(t *testing.T, b *EventBroadcaster, tourID string) *websocket.Conn {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		b.Subscribe(tourID, conn)
	}))
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("failed to dial websocket: %v", err)
	}
	t.Cleanup(func() { client.Close() })

	deadline := time.Now().Add(2 * time.Second)
	for b.ConnectionCount(tourID) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscription never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}
	return client
}

func TestBroadcast_NoSubscribersIsNoop(t *testing.T) {
	b := NewEventBroadcaster()
	b.Broadcast(&Event{Type: EventHotspotCreated, TourID: "tour-1", At: time.Now().UTC()})

	if got := b.ConnectionCount("tour-1"); got != 0 {
		t.Errorf("expected 0 connections, got %d", got)
	}
}

func TestUnsubscribe_RemovesConnectionFromAllTours(t *testing.T) {
	b := NewEventBroadcaster()
	client := dialSubscriber(t, b, "tour-1")
	_ = client

	b.mu.RLock()
	var conn *websocket.Conn
	for c := range b.connections["tour-1"] {
		conn = c
	}
	b.mu.RUnlock()

	b.Unsubscribe(conn)
	if got := b.ConnectionCount("tour-1"); got != 0 {
		t.Errorf("expected 0 connections after unsubscribe, got %d", got)
	}
}

// TestBroadcast_ConcurrentWritersDeliverEveryEvent fires broadcasts from
// many goroutines at a single subscriber. gorilla/websocket allows one
// writer per connection, so the broadcaster must serialize the writes;
// every event must still arrive intact.
func TestBroadcast_ConcurrentWritersDeliverEveryEvent(t *testing.T) {
	b := NewEventBroadcaster()
	client := dialSubscriber(t, b, "tour-1")

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.Broadcast(&Event{
				Type:    EventHotspotUpdated,
				TourID:  "tour-1",
				SceneID: "scene-1",
				At:      time.Now().UTC(),
			})
		}()
	}
	wg.Wait()

	client.SetReadDeadline(time.Now().Add(5 * time.Second))
	for i := 0; i < n; i++ {
		msgType, data, err := client.ReadMessage()
		if err != nil {
			t.Fatalf("read %d of %d failed: %v", i+1, n, err)
		}
		if msgType != websocket.TextMessage {
			t.Fatalf("read %d: expected text message, got type %d", i+1, msgType)
		}
		if !strings.Contains(string(data), EventHotspotUpdated) {
			t.Errorf("read %d: unexpected payload %s", i+1, data)
		}
	}
}

// TestBroadcast_ScopedToTour checks that events for one tour never reach
// subscribers of another.
func TestBroadcast_ScopedToTour(t *testing.T) {
	b := NewEventBroadcaster()
	client := dialSubscriber(t, b, "tour-2")

	b.Broadcast(&Event{Type: EventStatusChanged, TourID: "tour-1", At: time.Now().UTC()})
	b.Broadcast(&Event{Type: EventStatusChanged, TourID: "tour-2", Status: StatusLive, At: time.Now().UTC()})

	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := client.ReadMessage()
	if err != nil {
		t.Fatalf("failed to read event: %v", err)
	}
	if !strings.Contains(string(data), `"tour_id":"tour-2"`) {
		t.Errorf("expected tour-2 event, got %s", data)
	}
}
