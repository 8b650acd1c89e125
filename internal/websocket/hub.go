package websocket

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

const (
	sendBuffer   = 256
	notifyBuffer = 1024
)

type Client struct {
	Hub    *Hub
	Conn   *websocket.Conn
	Send   chan []byte
	UserID uuid.UUID
}

func NewClient(hub *Hub, conn *websocket.Conn, userID uuid.UUID) *Client {
	return &Client{Hub: hub, Conn: conn, Send: make(chan []byte, sendBuffer), UserID: userID}
}

// Event is the message pushed to a user's connections.
type Event struct {
	TargetUserID uuid.UUID `json:"-"`
	Type         string    `json:"type"`
	Data         any       `json:"data"`
	SentAt       time.Time `json:"sentAt"`
}

// Hub fans events out to every open connection of the target user. All map
// access happens on the Run goroutine.
type Hub struct {
	Clients    map[uuid.UUID]map[*Client]struct{}
	Register   chan *Client
	Unregister chan *Client
	Broadcast  chan Event

	done chan struct{}
	log  *log.Entry
}

func NewHub() *Hub {
	return &Hub{
		Clients:    make(map[uuid.UUID]map[*Client]struct{}),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		Broadcast:  make(chan Event, notifyBuffer),
		done:       make(chan struct{}),
		log:        log.WithField("component", "websocket"),
	}
}

// Done is closed once Run has returned.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// Notify queues an event without blocking the caller. Events are dropped
// when the queue is full.
func (h *Hub) Notify(userID uuid.UUID, event string, payload any) {
	select {
	case h.Broadcast <- Event{TargetUserID: userID, Type: event, Data: payload, SentAt: time.Now().UTC()}:
	default:
		h.log.WithFields(log.Fields{"user_id": userID, "event": event}).Warn("notification queue full, dropping event")
	}
}

func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for _, clients := range h.Clients {
				for client := range clients {
					close(client.Send)
				}
			}
			h.Clients = make(map[uuid.UUID]map[*Client]struct{})
			return

		case client := <-h.Register:
			if h.Clients[client.UserID] == nil {
				h.Clients[client.UserID] = make(map[*Client]struct{})
			}
			h.Clients[client.UserID][client] = struct{}{}
			h.log.WithField("user_id", client.UserID).Debug("client registered")

		case client := <-h.Unregister:
			h.remove(client)

		case event := <-h.Broadcast:
			clients := h.Clients[event.TargetUserID]
			if len(clients) == 0 {
				continue
			}
			jsonData, err := json.Marshal(event)
			if err != nil {
				h.log.WithError(err).WithField("event", event.Type).Error("failed to marshal event")
				continue
			}
			for client := range clients {
				select {
				case client.Send <- jsonData:
				default:
					// Slow consumer.
					h.remove(client)
				}
			}
		}
	}
}

func (h *Hub) remove(client *Client) {
	clients, ok := h.Clients[client.UserID]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}
	delete(clients, client)
	close(client.Send)
	if len(clients) == 0 {
		delete(h.Clients, client.UserID)
	}
	h.log.WithField("user_id", client.UserID).Debug("client unregistered")
}
