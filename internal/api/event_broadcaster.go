package api

import (
	"encoding/json"
	"log"
	"sync"

	"construct-chat/internal/models"
)

// SSEイベント種別
const (
	EventMessage = "message"
	EventReply   = "reply"
	EventEdit    = "edit"
	EventDelete  = "delete"
	EventTyping  = "typing"
)

// Event はServer-Sent Eventを表す
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// EventBroadcaster はSSEクライアントを管理し、チャットごとにイベントをブロードキャストする
type EventBroadcaster struct {
	mu      sync.RWMutex
	clients map[string]map[chan Event]struct{} // chatID -> clients
}

// NewEventBroadcaster は新しいイベントブロードキャスターを作成する
func NewEventBroadcaster() *EventBroadcaster {
	return &EventBroadcaster{
		clients: make(map[string]map[chan Event]struct{}),
	}
}

// Subscribe はチャットのイベントを受信するクライアントを追加する
func (b *EventBroadcaster) Subscribe(chatID string) chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, 10)

	if b.clients[chatID] == nil {
		b.clients[chatID] = make(map[chan Event]struct{})
	}
	b.clients[chatID][ch] = struct{}{}

	log.Printf("[SSE] Client subscribed chat_id=%s total_clients=%d", chatID, len(b.clients[chatID]))

	return ch
}

// Unsubscribe はクライアントのイベント受信を解除する
func (b *EventBroadcaster) Unsubscribe(chatID string, ch chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if clients, ok := b.clients[chatID]; ok {
		if _, subscribed := clients[ch]; subscribed {
			delete(clients, ch)
			close(ch)
		}
		if len(clients) == 0 {
			delete(b.clients, chatID)
		}
	}

	log.Printf("[SSE] Client unsubscribed chat_id=%s", chatID)
}

// Broadcast はチャットを監視しているすべてのクライアントにイベントを送信する。
// 満杯のクライアントはスキップする。
func (b *EventBroadcaster) Broadcast(chatID string, event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	clients := b.clients[chatID]
	if len(clients) == 0 {
		return
	}

	log.Printf("[SSE] Broadcasting event type=%s chat_id=%s clients=%d", event.Type, chatID, len(clients))

	for ch := range clients {
		select {
		case ch <- event:
		default:
			log.Printf("[SSE] Client channel full, skipping event chat_id=%s", chatID)
		}
	}
}

// PublishMessage はチャットログに追加されたメッセージを配信する
func (b *EventBroadcaster) PublishMessage(chatID string, msg models.Message) {
	b.Broadcast(chatID, Event{Type: EventMessage, Data: msg})
}

// ClientCount はチャットに購読しているクライアント数を返す
func (b *EventBroadcaster) ClientCount(chatID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients[chatID])
}

// TotalClientCount は全チャットの合計クライアント数を返す
func (b *EventBroadcaster) TotalClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	total := 0
	for _, clients := range b.clients {
		total += len(clients)
	}
	return total
}

// FormatSSE はイベントをSSE形式にフォーマットする
func FormatSSE(event Event) ([]byte, error) {
	data, err := json.Marshal(event.Data)
	if err != nil {
		return nil, err
	}
	return []byte("event: " + event.Type + "\ndata: " + string(data) + "\n\n"), nil
}
