package bridge

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/xiaot623/pagesmith/internal/domain"
	"github.com/xiaot623/pagesmith/internal/logging"
)

const (
	sendBuffer   = 256
	writeTimeout = 10 * time.Second
	readTimeout  = 60 * time.Second
	pingInterval = 30 * time.Second
)

// Subscriber receives the accepted bridge events of one session.
type Subscriber struct {
	ID        string
	SessionID string
	Send      chan []byte
}

type sessionMessage struct {
	sessionID string
	data      []byte
}

// Hub fans accepted bridge events out to the subscribers of their session.
// All bookkeeping happens on the Run goroutine.
type Hub struct {
	subscribers map[string]*Subscriber
	sessions    map[string]map[string]bool

	register   chan *Subscriber
	unregister chan *Subscriber
	broadcast  chan sessionMessage
	count      chan chan int
	done       chan struct{}

	logger *zap.Logger
}

// NewHub creates a new Hub.
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		subscribers: make(map[string]*Subscriber),
		sessions:    make(map[string]map[string]bool),
		register:    make(chan *Subscriber),
		unregister:  make(chan *Subscriber),
		broadcast:   make(chan sessionMessage, sendBuffer),
		count:       make(chan chan int),
		done:        make(chan struct{}),
		logger:      logger.Named("hub"),
	}
}

// Run starts the hub's main loop and returns when ctx is done. Remaining
// subscribers are closed on exit.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			for _, sub := range h.subscribers {
				close(sub.Send)
			}
			h.subscribers = map[string]*Subscriber{}
			h.sessions = map[string]map[string]bool{}
			return

		case sub := <-h.register:
			h.subscribers[sub.ID] = sub
			if h.sessions[sub.SessionID] == nil {
				h.sessions[sub.SessionID] = make(map[string]bool)
			}
			h.sessions[sub.SessionID][sub.ID] = true
			h.logger.Debug("subscriber registered", zap.String("subscriber", sub.ID), logging.Session(sub.SessionID))

		case sub := <-h.unregister:
			h.remove(sub)

		case msg := <-h.broadcast:
			for id := range h.sessions[msg.sessionID] {
				sub := h.subscribers[id]
				select {
				case sub.Send <- msg.data:
				default:
					h.logger.Warn("subscriber buffer full, closing", zap.String("subscriber", id))
					h.remove(sub)
				}
			}

		case reply := <-h.count:
			reply <- len(h.subscribers)
		}
	}
}

func (h *Hub) remove(sub *Subscriber) {
	if _, ok := h.subscribers[sub.ID]; !ok {
		return
	}
	delete(h.subscribers, sub.ID)
	delete(h.sessions[sub.SessionID], sub.ID)
	if len(h.sessions[sub.SessionID]) == 0 {
		delete(h.sessions, sub.SessionID)
	}
	close(sub.Send)
	h.logger.Debug("subscriber unregistered", zap.String("subscriber", sub.ID))
}

// Subscribe registers a subscriber for sessionID.
func (h *Hub) Subscribe(ctx context.Context, sessionID string) (*Subscriber, error) {
	sub := &Subscriber{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Send:      make(chan []byte, sendBuffer),
	}
	select {
	case h.register <- sub:
		return sub, nil
	case <-h.done:
		return nil, ErrHubStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Unsubscribe removes sub. It is safe to call more than once.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	select {
	case h.unregister <- sub:
	case <-h.done:
	}
}

// Publish queues event for the subscribers of its session. It never blocks;
// events are dropped when the hub is saturated.
func (h *Hub) Publish(event domain.BridgeEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	select {
	case h.broadcast <- sessionMessage{sessionID: event.SessionID, data: data}:
		return nil
	default:
		return ErrHubSaturated
	}
}

// SubscriberCount returns the number of registered subscribers.
func (h *Hub) SubscriberCount(ctx context.Context) (int, error) {
	reply := make(chan int, 1)
	select {
	case h.count <- reply:
	case <-h.done:
		return 0, ErrHubStopped
	case <-ctx.Done():
		return 0, ctx.Err()
	}
	select {
	case n := <-reply:
		return n, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// Serve pumps sub's events into ws until either side closes. Inbound frames
// are read only to process pings and detect closure.
func (h *Hub) Serve(ctx context.Context, ws *websocket.Conn, sub *Subscriber) {
	defer h.Unsubscribe(sub)

	// closed by the reader once the peer is gone
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		ws.SetReadLimit(512)
		_ = ws.SetReadDeadline(time.Now().Add(readTimeout))
		ws.SetPongHandler(func(string) error {
			return ws.SetReadDeadline(time.Now().Add(readTimeout))
		})
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					h.logger.Debug("websocket read failed", zap.Error(err))
				}
				_ = ws.Close()
				return
			}
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = ws.Close()
	}()

	for {
		select {
		case message, ok := <-sub.Send:
			_ = ws.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				_ = ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := ws.WriteMessage(websocket.TextMessage, message); err != nil {
				h.logger.Debug("websocket write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = ws.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-gone:
			return
		case <-ctx.Done():
			_ = ws.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
			return
		}
	}
}
