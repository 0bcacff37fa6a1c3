package metrics

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
)

// WebSocketBroadcaster fans Collector events out to subscribed clients,
// grounded on the teacher's WebSocketHub/WebSocketObserver pair
// (internal/application/observer/websocket_observer.go): a register/
// unregister/broadcast channel trio driving a background run loop, each
// client holding its own buffered send channel so one slow reader can't
// stall the rest.
type WebSocketBroadcaster struct {
	mu         sync.RWMutex
	clients    map[*wsClient]bool
	register   chan *wsClient
	unregister chan *wsClient
	broadcast  chan []byte
}

type wsClient struct {
	conn        *websocket.Conn
	send        chan []byte
	executionID string
}

func NewWebSocketBroadcaster() *WebSocketBroadcaster {
	b := &WebSocketBroadcaster{
		clients:    make(map[*wsClient]bool),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		broadcast:  make(chan []byte, 256),
	}
	go b.run()
	return b
}

func (b *WebSocketBroadcaster) run() {
	for {
		select {
		case c := <-b.register:
			b.mu.Lock()
			b.clients[c] = true
			b.mu.Unlock()
		case c := <-b.unregister:
			b.mu.Lock()
			if _, ok := b.clients[c]; ok {
				delete(b.clients, c)
				close(c.send)
			}
			b.mu.Unlock()
		case msg := <-b.broadcast:
			b.mu.RLock()
			for c := range b.clients {
				if c.executionID != "" {
					var evt wsEnvelope
					if err := json.Unmarshal(msg, &evt); err == nil && evt.ExecutionID != c.executionID {
						continue
					}
				}
				select {
				case c.send <- msg:
				default:
				}
			}
			b.mu.RUnlock()
		}
	}
}

type wsEnvelope struct {
	ExecutionID string `json:"execution_id"`
}

// Subscribe registers conn to receive every broadcast event, optionally
// filtered to a single execution ID (empty means all). It starts a write
// pump goroutine and returns an unsubscribe function.
func (b *WebSocketBroadcaster) Subscribe(conn *websocket.Conn, executionID string) (unsubscribe func()) {
	c := &wsClient{conn: conn, send: make(chan []byte, 64), executionID: executionID}
	b.register <- c
	go func() {
		for msg := range c.send {
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				break
			}
		}
	}()
	return func() { b.unregister <- c }
}

// OnEvent adapts Collector.Subscribe's callback shape to the broadcaster.
func (b *WebSocketBroadcaster) OnEvent(evt Event) {
	msg, err := json.Marshal(evt)
	if err != nil {
		return
	}
	select {
	case b.broadcast <- msg:
	default:
	}
}

// ClientCount returns the number of currently subscribed clients.
func (b *WebSocketBroadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}
