package chatws

import (
	"encoding/json"
	"testing"
	"time"
)

func receivePayload(t *testing.T, client *Client) []byte {
	t.Helper()
	select {
	case payload, ok := <-client.send:
		if !ok {
			t.Fatal("send channel closed unexpectedly")
		}
		return payload
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for delivery")
	}
	return nil
}

func TestDeliverReachesEveryConnectionOfUser(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	first := NewClient(hub, nil, "7")
	second := NewClient(hub, nil, "7")
	hub.Register(first)
	hub.Register(second)

	hub.Deliver("7", map[string]any{"id": 1, "content": "hi"})

	for _, client := range []*Client{first, second} {
		payload := receivePayload(t, client)

		var delivered struct {
			Type    string          `json:"type"`
			Message json.RawMessage `json:"message"`
		}
		if err := json.Unmarshal(payload, &delivered); err != nil {
			t.Fatalf("Unmarshal: %v", err)
		}
		if delivered.Type != "message_received" {
			t.Fatalf("expected message_received event, got %q", delivered.Type)
		}
		if len(delivered.Message) == 0 {
			t.Fatal("expected message payload")
		}
	}
}

func TestDeliverToOfflineUserIsNoOp(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	online := NewClient(hub, nil, "7")
	hub.Register(online)

	// Nothing is registered under "99"; the delivery must vanish silently.
	// A follow-up delivery to "7" proves the loop is still serving.
	hub.Deliver("99", map[string]any{"id": 1})
	hub.Deliver("7", map[string]any{"id": 2})

	payload := receivePayload(t, online)

	var delivered struct {
		Message struct {
			ID int `json:"id"`
		} `json:"message"`
	}
	if err := json.Unmarshal(payload, &delivered); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if delivered.Message.ID != 2 {
		t.Fatalf("expected only the online delivery, got message %d", delivered.Message.ID)
	}

	select {
	case extra := <-online.send:
		t.Fatalf("unexpected extra delivery: %s", extra)
	default:
	}
}

func TestDeliverySeparatedByUser(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	alice := NewClient(hub, nil, "1")
	bob := NewClient(hub, nil, "2")
	hub.Register(alice)
	hub.Register(bob)

	hub.Deliver("2", map[string]any{"id": 5})

	receivePayload(t, bob)

	select {
	case payload := <-alice.send:
		t.Fatalf("delivery leaked to another user: %s", payload)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestUnregisterClosesSendChannel(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client := NewClient(hub, nil, "7")
	hub.Register(client)
	hub.Unregister(client)

	select {
	case _, ok := <-client.send:
		if ok {
			t.Fatal("expected closed channel, got payload")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for channel close")
	}
}

func TestUnregisterUnknownClientIsNoOp(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	stranger := NewClient(hub, nil, "8")
	hub.Unregister(stranger)

	// The loop must survive; a registered client still receives deliveries.
	client := NewClient(hub, nil, "7")
	hub.Register(client)
	hub.Deliver("7", map[string]any{"id": 3})
	receivePayload(t, client)
}

func TestDisconnectBeforeJoinReleasesWriter(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	// The connection dropped before it ever sent a join event, so the hub
	// has no record of it. Unregister must still close the send channel,
	// or the write pump blocks forever.
	client := NewClient(hub, nil, "7")

	done := make(chan struct{})
	go func() {
		defer close(done)
		for range client.send {
		}
	}()

	hub.Unregister(client)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("writer still blocked after unregister of unjoined client")
	}
}

func TestSlowClientEvicted(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client := NewClient(hub, nil, "7")
	hub.Register(client)

	// Never drain the client; once its buffer fills, the hub must drop it
	// instead of blocking the delivery loop.
	for i := 0; i < cap(client.send)+8; i++ {
		hub.Deliver("7", map[string]any{"id": i})
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		client.mu.Lock()
		closed := client.closed
		client.mu.Unlock()
		if closed {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("slow client was never evicted")
		}
		time.Sleep(10 * time.Millisecond)
	}

	received := 0
	for range client.send {
		received++
	}
	if received > cap(client.send) {
		t.Fatalf("received %d payloads, more than the buffer holds", received)
	}
}

func TestErrorAfterCloseDoesNotPanic(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client := NewClient(hub, nil, "7")
	hub.Register(client)
	hub.Unregister(client)

	select {
	case _, ok := <-client.send:
		if ok {
			t.Fatal("expected closed channel, got payload")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for channel close")
	}

	// The read loop may still race one last error event against the close.
	writeError(client, "identity mismatch")
}
