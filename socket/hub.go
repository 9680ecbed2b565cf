package socket

import (
	"context"
	"encoding/json"
	"sync"

	"storyarchive/internal/story/model"
	"storyarchive/pkg/logger"

	"github.com/gorilla/websocket"
)

const (
	BacklogType  = "BACKLOG"  // Recent dispatches, sent once on connect
	DispatchType = "DISPATCH" // One finished dispatch

	backlogSize = 20
)

type WSMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Hub fans dispatch outcomes out to connected operator consoles.
type Hub struct {
	Clients    map[*Client]bool
	Broadcast  chan model.DispatchEvent
	Register   chan *Client
	Unregister chan *Client

	done    chan struct{} // closed when Run returns
	mu      sync.Mutex
	backlog []model.DispatchEvent // oldest first, at most backlogSize
}

type Client struct {
	Hub        *Hub
	Conn       *websocket.Conn
	OperatorID string
	Send       chan []byte
}

func NewHub() *Hub {
	return &Hub{
		Clients:    make(map[*Client]bool),
		Broadcast:  make(chan model.DispatchEvent, 64),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Publish queues ev for broadcast without blocking the caller. Events are
// dropped when the hub is saturated.
func (h *Hub) Publish(ev model.DispatchEvent) {
	select {
	case h.Broadcast <- ev:
	default:
		logger.Sugar.Warnf("Operator feed saturated, dropping event for story %s", ev.StoryID)
	}
}

func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.Clients {
				delete(h.Clients, client)
				close(client.Send)
			}
			h.mu.Unlock()
			return

		case client := <-h.Register:
			h.mu.Lock()
			h.Clients[client] = true
			backlog := append([]model.DispatchEvent(nil), h.backlog...)
			h.mu.Unlock()

			payload, _ := json.Marshal(backlog)
			msg, _ := json.Marshal(WSMessage{Type: BacklogType, Payload: payload})
			client.Send <- msg
			logger.Sugar.Infof("Operator %s connected to the dispatch feed", client.OperatorID)

		case client := <-h.Unregister:
			h.mu.Lock()
			if _, ok := h.Clients[client]; ok {
				delete(h.Clients, client)
				close(client.Send)
			}
			h.mu.Unlock()

		case ev := <-h.Broadcast:
			payload, err := json.Marshal(ev)
			if err != nil {
				logger.Sugar.Errorf("Error marshalling dispatch event: %v", err)
				continue
			}
			msg, _ := json.Marshal(WSMessage{Type: DispatchType, Payload: payload})

			// Collect recipients under the lock, write outside of it.
			h.mu.Lock()
			h.backlog = append(h.backlog, ev)
			if len(h.backlog) > backlogSize {
				h.backlog = h.backlog[len(h.backlog)-backlogSize:]
			}
			clientsToSend := make([]*Client, 0, len(h.Clients))
			for client := range h.Clients {
				clientsToSend = append(clientsToSend, client)
			}
			h.mu.Unlock()

			for _, client := range clientsToSend {
				select {
				case client.Send <- msg:
				default:
					// The console is lagging; drop it rather than block the hub.
					logger.Sugar.Warnf("Operator %s's send buffer is full. Disconnecting.", client.OperatorID)
					h.mu.Lock()
					if _, ok := h.Clients[client]; ok {
						delete(h.Clients, client)
						close(client.Send)
					}
					h.mu.Unlock()
				}
			}
		}
	}
}

// ClientCount reports how many consoles are connected.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.Clients)
}
