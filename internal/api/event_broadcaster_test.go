package api

import (
	"encoding/json"
	"testing"
	"time"

	"construct-chat/internal/models"
)

func TestEventBroadcaster_Subscribe(t *testing.T) {
	b := NewEventBroadcaster()

	ch := b.Subscribe("chan-1")
	if ch == nil {
		t.Fatal("Subscribe returned nil channel")
	}

	if b.ClientCount("chan-1") != 1 {
		t.Errorf("Expected 1 client, got %d", b.ClientCount("chan-1"))
	}
	if b.TotalClientCount() != 1 {
		t.Errorf("Expected 1 total client, got %d", b.TotalClientCount())
	}
}

func TestEventBroadcaster_MultipleSubscribers(t *testing.T) {
	b := NewEventBroadcaster()

	ch1 := b.Subscribe("chan-1")
	ch2 := b.Subscribe("chan-1")
	ch3 := b.Subscribe("chan-2")

	if b.ClientCount("chan-1") != 2 {
		t.Errorf("Expected 2 clients for chan-1, got %d", b.ClientCount("chan-1"))
	}
	if b.TotalClientCount() != 3 {
		t.Errorf("Expected 3 total clients, got %d", b.TotalClientCount())
	}

	b.Unsubscribe("chan-1", ch1)
	b.Unsubscribe("chan-1", ch2)
	b.Unsubscribe("chan-2", ch3)

	if b.TotalClientCount() != 0 {
		t.Errorf("Expected 0 clients after unsubscribe, got %d", b.TotalClientCount())
	}
}

func TestEventBroadcaster_UnsubscribeTwice(t *testing.T) {
	b := NewEventBroadcaster()
	ch := b.Subscribe("chan-1")

	b.Unsubscribe("chan-1", ch)
	b.Unsubscribe("chan-1", ch)

	if _, open := <-ch; open {
		t.Error("Expected channel to be closed")
	}
}

func TestEventBroadcaster_Broadcast(t *testing.T) {
	b := NewEventBroadcaster()
	ch := b.Subscribe("chan-1")
	defer b.Unsubscribe("chan-1", ch)

	b.Broadcast("chan-1", Event{Type: "test", Data: map[string]string{"key": "value"}})

	select {
	case event := <-ch:
		if event.Type != "test" {
			t.Errorf("Expected event type 'test', got '%s'", event.Type)
		}
		data, ok := event.Data.(map[string]string)
		if !ok {
			t.Fatal("Event data is not map[string]string")
		}
		if data["key"] != "value" {
			t.Errorf("Expected data['key'] = 'value', got '%s'", data["key"])
		}
	case <-time.After(time.Second):
		t.Fatal("Timeout waiting for event")
	}
}

func TestEventBroadcaster_BroadcastToWrongChat(t *testing.T) {
	b := NewEventBroadcaster()
	ch := b.Subscribe("chan-1")
	defer b.Unsubscribe("chan-1", ch)

	b.Broadcast("chan-2", Event{Type: "test", Data: "should not receive"})

	select {
	case <-ch:
		t.Fatal("Should not receive event for a different chat")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestEventBroadcaster_FullClientIsSkipped(t *testing.T) {
	b := NewEventBroadcaster()
	ch := b.Subscribe("chan-1")
	defer b.Unsubscribe("chan-1", ch)

	for i := 0; i < 15; i++ {
		b.Broadcast("chan-1", Event{Type: "test", Data: i})
	}

	if len(ch) != cap(ch) {
		t.Errorf("Expected a full buffer of %d, got %d", cap(ch), len(ch))
	}
}

func TestEventBroadcaster_PublishMessage(t *testing.T) {
	b := NewEventBroadcaster()
	ch := b.Subscribe("chan-1")
	defer b.Unsubscribe("chan-1", ch)

	b.PublishMessage("chan-1", models.Message{ID: "m1", User: "Alice", Text: "Hello"})

	select {
	case event := <-ch:
		if event.Type != EventMessage {
			t.Errorf("Expected event type 'message', got '%s'", event.Type)
		}
		msg, ok := event.Data.(models.Message)
		if !ok || msg.Text != "Hello" {
			t.Errorf("Unexpected message payload %#v", event.Data)
		}
	case <-time.After(time.Second):
		t.Fatal("Timeout waiting for message event")
	}
}

func TestFormatSSE(t *testing.T) {
	data, err := FormatSSE(Event{Type: "message", Data: map[string]string{"text": "Hello"}})
	if err != nil {
		t.Fatalf("FormatSSE returned error: %v", err)
	}

	expected := "event: message\ndata: "
	if string(data[:len(expected)]) != expected {
		t.Errorf("Expected prefix '%s', got '%s'", expected, string(data[:len(expected)]))
	}

	var parsed map[string]string
	if err := json.Unmarshal(data[len(expected):len(data)-2], &parsed); err != nil {
		t.Fatalf("Failed to parse JSON data: %v", err)
	}
	if parsed["text"] != "Hello" {
		t.Errorf("Expected text 'Hello', got '%s'", parsed["text"])
	}
}
