package api

import (
	"encoding/json"
	"testing"

	"github.com/ThorvaldLarsen/labstation/internal/infrastructure/config"
	"github.com/ThorvaldLarsen/labstation/internal/infrastructure/logging"
)

func newTestClient(hub *Hub, channels ...string) *WSClient {
	client := &WSClient{
		hub:           hub,
		send:          make(chan []byte, wsSendBufferSize),
		subscriptions: make(map[string]struct{}),
	}
	for _, ch := range channels {
		client.subscriptions[ch] = struct{}{}
	}
	return client
}

func TestHub_BroadcastRespectsSubscriptions(t *testing.T) {
	hub := NewHub(config.WebSocketConfig{}, logging.Default())

	subscribed := newTestClient(hub, ChannelParameterUpdated)
	other := newTestClient(hub, ChannelAcquisitionSample)
	hub.Register(subscribed)
	hub.Register(other)

	hub.Broadcast(ChannelParameterUpdated, map[string]any{
		"component": "smu1",
		"parameter": "voltage",
		"value":     2.5,
	})

	select {
	case data := <-subscribed.send:
		var msg WSMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("decoding broadcast: %v", err)
		}
		if msg.Type != WSTypeEvent || msg.EventType != ChannelParameterUpdated {
			t.Errorf("broadcast message = %+v", msg)
		}
	default:
		t.Fatal("subscribed client received nothing")
	}

	select {
	case <-other.send:
		t.Fatal("unsubscribed client received a broadcast")
	default:
	}
}

func TestHub_UnregisterClosesSendOnce(t *testing.T) {
	hub := NewHub(config.WebSocketConfig{}, logging.Default())
	client := newTestClient(hub)

	hub.Register(client)
	if hub.ClientCount() != 1 {
		t.Fatalf("ClientCount() = %d, want 1", hub.ClientCount())
	}

	hub.Unregister(client)
	if hub.ClientCount() != 0 {
		t.Fatalf("ClientCount() = %d, want 0", hub.ClientCount())
	}

	// Double unregister must not panic on a closed channel.
	hub.Unregister(client)

	// Broadcast to a closed channel is absorbed by trySend.
	client.mu.Lock()
	client.subscriptions[ChannelParameterUpdated] = struct{}{}
	client.mu.Unlock()
	client.trySend([]byte("late"))
}

func TestClient_SubscribeMessage(t *testing.T) {
	hub := NewHub(config.WebSocketConfig{}, logging.Default())
	client := newTestClient(hub)

	raw, _ := json.Marshal(WSMessage{
		Type:    WSTypeSubscribe,
		ID:      "1",
		Payload: WSSubscribePayload{Channels: []string{ChannelParameterUpdated}},
	})
	client.handleMessage(raw)

	if !client.isSubscribed(ChannelParameterUpdated) {
		t.Error("client not subscribed after subscribe message")
	}

	// Response went out.
	select {
	case data := <-client.send:
		var msg WSMessage
		json.Unmarshal(data, &msg)
		if msg.Type != WSTypeResponse || msg.ID != "1" {
			t.Errorf("response = %+v", msg)
		}
	default:
		t.Fatal("no response to subscribe")
	}

	// Unsubscribe reverses it.
	raw, _ = json.Marshal(WSMessage{
		Type:    WSTypeUnsubscribe,
		ID:      "2",
		Payload: WSSubscribePayload{Channels: []string{ChannelParameterUpdated}},
	})
	client.handleMessage(raw)

	if client.isSubscribed(ChannelParameterUpdated) {
		t.Error("client still subscribed after unsubscribe message")
	}
}

func TestClient_UnknownMessageType(t *testing.T) {
	hub := NewHub(config.WebSocketConfig{}, logging.Default())
	client := newTestClient(hub)

	raw, _ := json.Marshal(WSMessage{Type: "bogus", ID: "9"})
	client.handleMessage(raw)

	select {
	case data := <-client.send:
		var msg WSMessage
		json.Unmarshal(data, &msg)
		if msg.Type != WSTypeError {
			t.Errorf("message type = %q, want error", msg.Type)
		}
	default:
		t.Fatal("no error response for unknown type")
	}
}
