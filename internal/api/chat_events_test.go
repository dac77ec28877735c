package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"construct-chat/internal/models"
)

// syncRecorder is a ResponseRecorder safe to read while the handler writes
type syncRecorder struct {
	mu sync.Mutex
	*httptest.ResponseRecorder
}

func (r *syncRecorder) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ResponseRecorder.Write(p)
}

func (r *syncRecorder) Flush() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ResponseRecorder.Flush()
}

func (r *syncRecorder) body() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Body.String()
}

func TestChatEventsHandler_InvalidID(t *testing.T) {
	handler := NewChatEventsHandler(NewEventBroadcaster())

	req := httptest.NewRequest(http.MethodGet, "/api/chats/%20/events", nil)
	req.SetPathValue("id", " ")
	rr := httptest.NewRecorder()

	handler.HandleEvents(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected status %d, got %d", http.StatusBadRequest, rr.Code)
	}
}

func TestChatEventsHandler_StreamsMessages(t *testing.T) {
	broadcaster := NewEventBroadcaster()
	handler := NewChatEventsHandler(broadcaster)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/chats/chan-1/events", nil).WithContext(ctx)
	req.SetPathValue("id", "chan-1")
	rr := &syncRecorder{ResponseRecorder: httptest.NewRecorder()}

	done := make(chan struct{})
	go func() {
		handler.HandleEvents(rr, req)
		close(done)
	}()

	deadline := time.Now().Add(time.Second)
	for broadcaster.ClientCount("chan-1") == 0 {
		if time.Now().After(deadline) {
			t.Fatal("handler never subscribed")
		}
		time.Sleep(5 * time.Millisecond)
	}

	broadcaster.PublishMessage("chan-1", models.Message{ID: "m1", User: "Alice", Text: "Ahoy"})

	deadline = time.Now().Add(time.Second)
	for !strings.Contains(rr.body(), "Ahoy") {
		if time.Now().After(deadline) {
			t.Fatalf("message never streamed, body=%q", rr.body())
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	<-done

	body := rr.body()
	if !strings.HasPrefix(body, "event: connected\n") {
		t.Errorf("Expected connected event first, got %q", body)
	}
	if !strings.Contains(body, "event: message\n") {
		t.Errorf("Expected message event, got %q", body)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Expected Content-Type 'text/event-stream', got '%s'", ct)
	}
	if broadcaster.ClientCount("chan-1") != 0 {
		t.Error("Expected client to unsubscribe on disconnect")
	}
}
