package chat

import (
	"context"

	"github.com/google/uuid"
	"github.com/sujal-surani/NeuroNxt/internal/models"
	"github.com/sujal-surani/NeuroNxt/internal/services"
)

// Backend is everything a chat session needs from the platform: the directory
// and thread queries, the unread aggregate, and the conversation mutations.
// *services.ChatService satisfies it.
type Backend interface {
	ListConversationDetails(ctx context.Context, userID uuid.UUID) ([]models.ConversationDetail, error)
	UnreadCounts(ctx context.Context, userID uuid.UUID) (map[int64]int, error)
	ListMessages(ctx context.Context, actorID uuid.UUID, conversationID int64) ([]models.Message, error)
	MarkConversationRead(ctx context.Context, actorID uuid.UUID, conversationID int64) error
	SendMessage(ctx context.Context, actorID uuid.UUID, input services.SendMessageInput) (*models.Message, error)
	SetPinned(ctx context.Context, actorID uuid.UUID, conversationID int64, pinned bool) error
	DeleteChat(ctx context.Context, actorID uuid.UUID, conversationID int64) error
	ClearChat(ctx context.Context, actorID uuid.UUID, conversationID int64) error
	DisconnectStudent(ctx context.Context, actorID uuid.UUID, targetID uuid.UUID) error
	StartChat(ctx context.Context, actorID uuid.UUID, targetID uuid.UUID) (*models.Conversation, *models.Profile, error)
}

// Sink receives the session's state pushes. The websocket client implements
// it by framing each call onto the wire.
type Sink interface {
	DirectoryUpdated(contacts []models.ContactEntry)
	ThreadReplaced(conversationID int64, messages []models.ThreadMessage)
	MessageAppended(conversationID int64, message models.ThreadMessage)
	SessionError(op string, err error)
}

type EventType string

const (
	EventMessageInserted     EventType = "message"
	EventConversationUpdated EventType = "conversation"
)

// Event is a realtime row-change notification. Events are not scoped to the
// session's open conversation; the session filters them itself.
type Event struct {
	Type           EventType
	ConversationID int64
	Message        *models.Message
}
