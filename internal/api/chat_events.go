package api

import (
	"log"
	"net/http"
	"strings"
)

// ChatEventsHandler はチャットイベントのSSE接続を処理する
type ChatEventsHandler struct {
	broadcaster *EventBroadcaster
}

// NewChatEventsHandler は新しいハンドラーを作成する
func NewChatEventsHandler(broadcaster *EventBroadcaster) *ChatEventsHandler {
	return &ChatEventsHandler{
		broadcaster: broadcaster,
	}
}

// HandleEvents は GET /api/chats/{id}/events を処理する
func (h *ChatEventsHandler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	chatID := strings.TrimSpace(r.PathValue("id"))
	if chatID == "" {
		http.Error(w, "Invalid chat ID", http.StatusBadRequest)
		return
	}

	log.Printf("[SSE] New connection request chat_id=%s", chatID)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("X-Accel-Buffering", "no") // nginxバッファリングを無効化

	flusher, ok := w.(http.Flusher)
	if !ok {
		log.Printf("[SSE] Streaming not supported")
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	eventCh := h.broadcaster.Subscribe(chatID)
	defer h.broadcaster.Unsubscribe(chatID, eventCh)

	if _, err := w.Write([]byte("event: connected\ndata: {}\n\n")); err != nil {
		log.Printf("[SSE] Failed to send connected event err=%v", err)
		return
	}
	flusher.Flush()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			log.Printf("[SSE] Client disconnected chat_id=%s", chatID)
			return
		case event, ok := <-eventCh:
			if !ok {
				return
			}
			data, err := FormatSSE(event)
			if err != nil {
				log.Printf("[SSE] Failed to format event err=%v", err)
				continue
			}
			if _, err := w.Write(data); err != nil {
				log.Printf("[SSE] Failed to write event err=%v", err)
				return
			}
			flusher.Flush()
		}
	}
}
