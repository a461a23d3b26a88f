// Package stream доставляет новые сообщения чата подписчикам по websocket.
package stream

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/UkralStul/localized-view-service/internal/domain"
	"github.com/UkralStul/localized-view-service/internal/localize"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	subscriberBuffer  = 16
	keepAliveInterval = 10 * time.Second
	writeWait         = 5 * time.Second
)

// Hub хранит каналы для подписчиков на сообщения чатов.
type Hub struct {
	mu sync.RWMutex
	//          map[chatID] map[subscriberID] channel
	subs map[string]map[string]chan *domain.Message
	log  *zap.Logger
}

// NewHub - конструктор наблюдателя.
func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		subs: make(map[string]map[string]chan *domain.Message),
		log:  log,
	}
}

// Subscribe подписывает на чат до отмены ctx. После отмены канал закрывается.
func (h *Hub) Subscribe(ctx context.Context, chatID string) <-chan *domain.Message {
	ch := make(chan *domain.Message, subscriberBuffer)
	subID := uuid.NewString()

	h.mu.Lock()
	if h.subs[chatID] == nil {
		h.subs[chatID] = make(map[string]chan *domain.Message)
	}
	h.subs[chatID][subID] = ch
	h.mu.Unlock()

	// Горутина для очистки при отключении клиента
	go func() {
		<-ctx.Done()
		h.mu.Lock()
		if chatSubs, ok := h.subs[chatID]; ok {
			delete(chatSubs, subID)
			if len(chatSubs) == 0 {
				delete(h.subs, chatID)
			}
		}
		close(ch)
		h.mu.Unlock()
	}()

	return ch
}

// Publish рассылает сообщение подписчикам чата, не блокируясь на медленных.
func (h *Hub) Publish(msg *domain.Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for subID, ch := range h.subs[msg.ChatID] {
		select {
		case ch <- msg:
		default:
			// Клиент не успевает читать - пропускаем
			h.log.Warn("subscriber is slow, dropping message",
				zap.String("chat_id", msg.ChatID), zap.String("subscriber", subID))
		}
	}
}

// Subscribers возвращает число подписчиков чата.
func (h *Hub) Subscribers(chatID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[chatID])
}

// Viewer локализует сообщение для конкретного зрителя.
type Viewer interface {
	ViewMessage(ctx context.Context, m *domain.Message, opts localize.Options) *domain.MessageView
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeChat открывает websocket и пишет в него новые сообщения чата,
// переведенные на язык зрителя.
func (h *Hub) ServeChat(w http.ResponseWriter, r *http.Request, chatID string, opts localize.Options, viewer Viewer) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	log := h.log.With(zap.String("chat_id", chatID), zap.String("lang", opts.Lang))

	// Читаем только ради управляющих фреймов и закрытия соединения
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	msgs := h.Subscribe(ctx, chatID)
	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()
	log.Debug("stream subscriber connected")

	for {
		select {
		case <-ctx.Done():
			log.Debug("stream subscriber disconnected")
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			view := viewer.ViewMessage(ctx, msg, opts)
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(view); err != nil {
				log.Debug("stream write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
