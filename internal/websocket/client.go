package chatws

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"

	websocket "github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"
	"github.com/sujal-surani/NeuroNxt/internal/chat"
	"github.com/sujal-surani/NeuroNxt/internal/models"
	"github.com/sujal-surani/NeuroNxt/internal/services"
)

// wsConn is the slice of *websocket.Conn the client uses.
type wsConn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Client binds one websocket connection to one chat session. The session
// pushes state through the Sink methods; the client frames each push and
// queues it for WritePump.
type Client struct {
	hub     *Hub
	conn    wsConn
	userID  uuid.UUID
	session *chat.Session

	mu     sync.Mutex
	closed bool
	send   chan []byte
}

func NewClient(hub *Hub, conn wsConn, userID uuid.UUID, backend chat.Backend) *Client {
	client := &Client{
		hub:    hub,
		conn:   conn,
		userID: userID,
		send:   make(chan []byte, 32),
	}
	client.session = chat.NewSession(backend, client, userID)
	return client
}

type frame struct {
	Type           string                 `json:"type"`
	ConversationID int64                  `json:"conversation_id,omitempty"`
	Contacts       []models.ContactEntry  `json:"contacts,omitempty"`
	Messages       []models.ThreadMessage `json:"messages,omitempty"`
	Message        *models.ThreadMessage  `json:"message,omitempty"`
	Error          string                 `json:"error,omitempty"`
}

type action struct {
	Action         string    `json:"action"`
	ConversationID int64     `json:"conversation_id,omitempty"`
	StudentID      uuid.UUID `json:"student_id,omitempty"`
	Content        string    `json:"content,omitempty"`
	MessageType    string    `json:"message_type,omitempty"`
	Pinned         bool      `json:"pinned,omitempty"`
}

func (c *Client) DirectoryUpdated(contacts []models.ContactEntry) {
	c.push(frame{Type: "directory", Contacts: contacts})
}

func (c *Client) ThreadReplaced(conversationID int64, messages []models.ThreadMessage) {
	c.push(frame{Type: "thread", ConversationID: conversationID, Messages: messages})
}

func (c *Client) MessageAppended(conversationID int64, message models.ThreadMessage) {
	c.push(frame{Type: "message", ConversationID: conversationID, Message: &message})
}

func (c *Client) SessionError(op string, err error) {
	log.Printf("chat session %s: %s: %v", c.userID, op, err)
	c.push(frame{Type: "error", Error: publicError(err)})
}

func (c *Client) push(f frame) {
	payload, err := json.Marshal(f)
	if err != nil {
		log.Printf("chat hub encode frame: %v", err)
		return
	}
	if c.enqueue(payload) {
		return
	}
	// Full buffer means the reader stalled. Drop the client here and let
	// ReadPump's teardown unregister it: push can run on the hub's Run
	// goroutine, which must never send on its own unregister channel.
	c.closeSend()
	_ = c.conn.Close()
}

// enqueue queues a frame for WritePump. It reports false when the client is
// already closed or its buffer is full.
func (c *Client) enqueue(payload []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// closeSend closes the outbound queue exactly once. Late pushes from a
// session still winding down see the closed flag instead of a closed channel.
func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// ReadPump decodes action frames and applies them to the session until the
// connection drops. It owns connection teardown.
func (c *Client) ReadPump(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer func() {
		cancel()
		c.session.Close()
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	go c.session.Run(ctx)
	c.session.ScheduleRefresh()

	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var act action
		if err := json.Unmarshal(payload, &act); err != nil {
			c.push(frame{Type: "error", Error: "invalid action payload"})
			continue
		}
		c.apply(ctx, act)
	}
}

func (c *Client) apply(ctx context.Context, act action) {
	switch act.Action {
	case "refresh":
		c.session.ScheduleRefresh()
	case "open":
		c.reportLocal(c.session.Open(ctx, act.ConversationID))
	case "send":
		messageType := act.MessageType
		if messageType == "" {
			messageType = models.MessageText
		}
		c.reportLocal(c.session.Send(ctx, act.Content, messageType))
	case "read":
		c.reportLocal(c.session.MarkRead(ctx))
	case "pin":
		c.reportLocal(c.session.SetPinned(ctx, act.Pinned))
	case "delete":
		c.reportLocal(c.session.DeleteChat(ctx))
	case "clear":
		c.reportLocal(c.session.ClearChat(ctx))
	case "disconnect":
		c.reportLocal(c.session.Disconnect(ctx))
	case "start":
		_, _ = c.session.StartChat(ctx, act.StudentID)
	default:
		c.push(frame{Type: "error", Error: "unsupported action"})
	}
}

// reportLocal surfaces validation failures the session returns without going
// through the sink; backend failures already arrived as error frames.
func (c *Client) reportLocal(err error) {
	if errors.Is(err, chat.ErrNoSelection) || errors.Is(err, chat.ErrUnknownConversation) {
		c.push(frame{Type: "error", Error: publicError(err)})
	}
}

func (c *Client) WritePump() {
	defer func() {
		_ = c.conn.Close()
	}()

	for payload := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
}

func publicError(err error) string {
	switch {
	case errors.Is(err, services.ErrDisconnected):
		return "conversation is disconnected"
	case errors.Is(err, services.ErrNotConnected):
		return "not connected with this student"
	case errors.Is(err, services.ErrStudentNotFound):
		return "student not found"
	case errors.Is(err, services.ErrInvalidInput):
		return "invalid input"
	case errors.Is(err, services.ErrForbidden):
		return "not allowed"
	case errors.Is(err, chat.ErrNoSelection):
		return "no conversation selected"
	case errors.Is(err, chat.ErrUnknownConversation):
		return "unknown conversation"
	default:
		return "something went wrong"
	}
}
