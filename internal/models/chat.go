package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	ConversationActive       = "active"
	ConversationDisconnected = "disconnected"
)

const (
	MessageText  = "text"
	MessageImage = "image"
	MessageFile  = "file"
	MessageVoice = "voice"
)

// Conversation always has exactly two participants. pinned_by and hidden_for
// are per-user flags: either participant may appear in pinned_by
// independently, and hidden_for implements the soft delete (a hidden
// conversation stays intact for the other participant).
type Conversation struct {
	ID             int64       `json:"id"`
	Participant1ID uuid.UUID   `json:"participant1_id"`
	Participant2ID uuid.UUID   `json:"participant2_id"`
	LastMessageID  *int64      `json:"last_message_id"`
	Status         string      `json:"status"`
	DisconnectedBy *uuid.UUID  `json:"disconnected_by,omitempty"`
	PinnedBy       []uuid.UUID `json:"pinned_by"`
	HiddenFor      []uuid.UUID `json:"-"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

func (c *Conversation) OtherParticipant(userID uuid.UUID) uuid.UUID {
	if c.Participant1ID == userID {
		return c.Participant2ID
	}
	return c.Participant1ID
}

func (c *Conversation) PinnedFor(userID uuid.UUID) bool {
	for _, id := range c.PinnedBy {
		if id == userID {
			return true
		}
	}
	return false
}

// Message rows are append-only; deleted_for carries the per-user clear-history
// flag so the other participant's thread is untouched.
type Message struct {
	ID             int64     `json:"id"`
	ConversationID int64     `json:"conversation_id"`
	SenderID       uuid.UUID `json:"sender_id"`
	Content        string    `json:"content"`
	Type           string    `json:"type"`
	FileName       *string   `json:"file_name,omitempty"`
	FileSize       *string   `json:"file_size,omitempty"`
	IsRead         bool      `json:"is_read"`
	CreatedAt      time.Time `json:"created_at"`
}

// ConversationDetail is the directory query projection: the conversation row
// joined with both participants' profiles and the last message, if any.
type ConversationDetail struct {
	Conversation
	Participant1 Profile  `json:"participant1"`
	Participant2 Profile  `json:"participant2"`
	LastMessage  *Message `json:"last_message,omitempty"`
}

// ContactEntry is the locally held conversation summary shown in the chat
// list. It is rebuilt from ConversationDetail rows on every directory refresh
// and patched in place by realtime ingest and user actions.
type ContactEntry struct {
	ConversationID  int64     `json:"conversation_id"`
	StudentID       uuid.UUID `json:"student_id"`
	Name            string    `json:"name"`
	Avatar          string    `json:"avatar"`
	Status          string    `json:"status"`
	LastMessage     string    `json:"last_message"`
	LastMessageTime string    `json:"last_message_time"`
	UnreadCount     int       `json:"unread_count"`
	IsPinned        bool      `json:"is_pinned"`
	IsDisconnected  bool      `json:"is_disconnected"`
	Branch          *string   `json:"branch,omitempty"`
	Semester        *string   `json:"semester,omitempty"`
}

const (
	SenderUser  = "user"
	SenderOther = "other"
)

// ThreadMessage tags a message with which side of the open conversation sent
// it. The tag is a display convenience derived from the viewer's id, never
// stored.
type ThreadMessage struct {
	Message
	Sender string `json:"sender"`
}
