package chatws

import (
	"github.com/google/uuid"
	"github.com/sujal-surani/NeuroNxt/internal/chat"
	"github.com/sujal-surani/NeuroNxt/internal/models"
)

// Hub routes realtime events to every live session of their recipients. It
// owns the client registry; all registry access happens on the Run goroutine.
type Hub struct {
	clients    map[uuid.UUID]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	events     chan envelope
}

type envelope struct {
	event      chat.Event
	recipients []uuid.UUID
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[uuid.UUID]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		events:     make(chan envelope, 64),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			set, ok := h.clients[client.userID]
			if !ok {
				set = make(map[*Client]struct{})
				h.clients[client.userID] = set
			}
			set[client] = struct{}{}
		case client := <-h.unregister:
			set, ok := h.clients[client.userID]
			if !ok {
				continue
			}
			if _, exists := set[client]; exists {
				delete(set, client)
				client.closeSend()
			}
			if len(set) == 0 {
				delete(h.clients, client.userID)
			}
		case env := <-h.events:
			h.deliver(env)
		}
	}
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// PublishMessage fans an inserted message out to every live session of the
// named recipients. Sessions decide themselves whether the message belongs to
// their open thread.
func (h *Hub) PublishMessage(message *models.Message, recipients ...uuid.UUID) {
	h.events <- envelope{
		event: chat.Event{
			Type:           chat.EventMessageInserted,
			ConversationID: message.ConversationID,
			Message:        message,
		},
		recipients: recipients,
	}
}

// PublishConversation notifies the recipients' sessions that a conversation
// row changed; each session schedules its own directory refresh.
func (h *Hub) PublishConversation(conversationID int64, recipients ...uuid.UUID) {
	h.events <- envelope{
		event: chat.Event{
			Type:           chat.EventConversationUpdated,
			ConversationID: conversationID,
		},
		recipients: recipients,
	}
}

func (h *Hub) deliver(env envelope) {
	seen := make(map[uuid.UUID]struct{}, len(env.recipients))
	for _, userID := range env.recipients {
		if _, dup := seen[userID]; dup {
			continue
		}
		seen[userID] = struct{}{}

		for client := range h.clients[userID] {
			client.session.HandleEvent(env.event)
		}
	}
}
