package monitoring

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

func dialHub(t *testing.T, hub *WebSocketHub) (*websocket.Conn, func()) {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		server.Close()
		t.Fatalf("dial failed: %v", err)
	}
	return conn, func() {
		conn.Close()
		server.Close()
	}
}

func waitForClients(t *testing.T, hub *WebSocketHub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if hub.ClientCount() == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("client count = %d, want %d", hub.ClientCount(), want)
}

func readHubMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	return msg
}

func TestHubBroadcastPrediction(t *testing.T) {
	hub := NewWebSocketHub(zap.NewNop())
	go hub.Start()
	defer hub.Stop()

	conn, cleanup := dialHub(t, hub)
	defer cleanup()
	waitForClients(t, hub, 1)

	event := PredictionMessage{
		RequestID:      "req-1",
		DistanceKM:     500,
		WeightKG:       2000,
		CargoType:      "fragile",
		UrgencyDays:    5,
		PredictedPrice: 825.5,
		Timestamp:      time.Now().UTC(),
	}
	if err := hub.BroadcastPrediction(event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	msg := readHubMessage(t, conn)
	if msg.Type != PredictionEvent {
		t.Fatalf("message type = %q, want %q", msg.Type, PredictionEvent)
	}
	if msg.ID == "" {
		t.Error("message id empty")
	}

	var got PredictionMessage
	if err := json.Unmarshal(msg.Data, &got); err != nil {
		t.Fatalf("unmarshal data failed: %v", err)
	}
	if got.RequestID != "req-1" || got.PredictedPrice != 825.5 || got.CargoType != "fragile" {
		t.Errorf("unexpected payload: %+v", got)
	}
}

func TestHubHeartbeat(t *testing.T) {
	hub := NewWebSocketHub(zap.NewNop())
	go hub.Start()
	defer hub.Stop()

	conn, cleanup := dialHub(t, hub)
	defer cleanup()
	waitForClients(t, hub, 1)

	if err := hub.SendHeartbeat(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	msg := readHubMessage(t, conn)
	if msg.Type != Heartbeat {
		t.Fatalf("message type = %q, want %q", msg.Type, Heartbeat)
	}
	var hb HeartbeatMessage
	if err := json.Unmarshal(msg.Data, &hb); err != nil {
		t.Fatalf("unmarshal data failed: %v", err)
	}
	if hb.Status != "alive" {
		t.Errorf("status = %q, want alive", hb.Status)
	}
}

func TestHubClientDisconnect(t *testing.T) {
	hub := NewWebSocketHub(zap.NewNop())
	go hub.Start()
	defer hub.Stop()

	conn, cleanup := dialHub(t, hub)
	defer cleanup()
	waitForClients(t, hub, 1)

	conn.Close()
	waitForClients(t, hub, 0)
}

func TestBroadcastWithoutClients(t *testing.T) {
	hub := NewWebSocketHub(nil)
	go hub.Start()
	defer hub.Stop()

	// No clients connected; broadcasting must not block or fail.
	if err := hub.BroadcastPrediction(PredictionMessage{RequestID: "req-1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hub.ClientCount() != 0 {
		t.Errorf("client count = %d, want 0", hub.ClientCount())
	}
}
