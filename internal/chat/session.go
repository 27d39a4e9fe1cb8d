package chat

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sujal-surani/NeuroNxt/internal/models"
	"github.com/sujal-surani/NeuroNxt/internal/services"
)

var (
	ErrNoSelection         = errors.New("no conversation selected")
	ErrUnknownConversation = errors.New("conversation not in directory")
)

// Session is one user's live view of the chat subsystem: the contact
// directory, the open thread, and the selection. All remote state lives in
// the backend; the session only caches projections of it, replaced wholesale
// on refresh and patched in place by actions and realtime ingest. Mutations
// touch local state only after the backend call succeeds.
type Session struct {
	backend Backend
	sink    Sink
	userID  uuid.UUID
	now     func() time.Time

	mu         sync.Mutex
	contacts   []models.ContactEntry
	selectedID int64
	thread     []models.ThreadMessage

	// refreshCh has capacity one: bursts of realtime events collapse into a
	// single queued refresh while one is in flight.
	refreshCh chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	seq       atomic.Uint64
}

func NewSession(backend Backend, sink Sink, userID uuid.UUID) *Session {
	return &Session{
		backend:   backend,
		sink:      sink,
		userID:    userID,
		now:       time.Now,
		refreshCh: make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
}

func (s *Session) UserID() uuid.UUID {
	return s.userID
}

// Run drives the coalesced refresh loop until the context is cancelled or the
// session is closed. Callers run it on its own goroutine.
func (s *Session) Run(ctx context.Context) {
	for {
		select {
		case <-s.done:
			return
		case <-ctx.Done():
			return
		case <-s.refreshCh:
			s.Refresh(ctx)
		}
	}
}

// ScheduleRefresh queues a directory refresh. Repeated calls while one is
// queued are no-ops.
func (s *Session) ScheduleRefresh() {
	select {
	case s.refreshCh <- struct{}{}:
	default:
	}
}

// Close stops the refresh loop. Safe to call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
}

// Refresh rebuilds the whole directory from the backend. On any fetch error
// the previous directory is retained. A sequence guard drops responses that
// were overtaken by a newer refresh, so a slow query can never overwrite a
// fresher directory.
func (s *Session) Refresh(ctx context.Context) {
	seq := s.seq.Add(1)

	details, err := s.backend.ListConversationDetails(ctx, s.userID)
	if err != nil {
		s.sink.SessionError("refresh", err)
		return
	}
	unread, err := s.backend.UnreadCounts(ctx, s.userID)
	if err != nil {
		s.sink.SessionError("refresh", err)
		return
	}

	contacts := BuildDirectory(details, unread, s.userID, s.now())

	s.mu.Lock()
	if s.seq.Load() != seq {
		s.mu.Unlock()
		return
	}
	s.contacts = contacts
	snapshot := cloneContacts(contacts)
	s.mu.Unlock()

	s.sink.DirectoryUpdated(snapshot)
}

// Open selects a conversation, loads its thread oldest-first and marks it
// read. The thread is replaced wholesale. The unread badge is zeroed only if
// the mark-read write succeeds; on failure it stays, truthfully stale.
func (s *Session) Open(ctx context.Context, conversationID int64) error {
	s.mu.Lock()
	if s.indexOf(conversationID) < 0 {
		s.mu.Unlock()
		return ErrUnknownConversation
	}
	s.mu.Unlock()

	messages, err := s.backend.ListMessages(ctx, s.userID, conversationID)
	if err != nil {
		s.sink.SessionError("open", err)
		return err
	}
	thread := BuildThread(messages, s.userID)

	s.mu.Lock()
	s.selectedID = conversationID
	s.thread = thread
	snapshot := cloneThread(thread)
	s.mu.Unlock()

	s.sink.ThreadReplaced(conversationID, snapshot)

	return s.MarkRead(ctx)
}

// MarkRead clears the unread badge for the selected conversation, locally
// only after the backend acknowledged the write.
func (s *Session) MarkRead(ctx context.Context) error {
	s.mu.Lock()
	conversationID := s.selectedID
	s.mu.Unlock()
	if conversationID == 0 {
		return ErrNoSelection
	}

	if err := s.backend.MarkConversationRead(ctx, s.userID, conversationID); err != nil {
		s.sink.SessionError("mark read", err)
		return err
	}

	s.mu.Lock()
	if i := s.indexOf(conversationID); i >= 0 {
		s.contacts[i].UnreadCount = 0
	}
	snapshot := cloneContacts(s.contacts)
	s.mu.Unlock()

	s.sink.DirectoryUpdated(snapshot)
	return nil
}

// Send submits a message to the selected conversation. No local append
// happens here: the realtime insert event echoes the message back and the
// ingest path appends it, so it shows up exactly once.
func (s *Session) Send(ctx context.Context, content string, messageType string) error {
	s.mu.Lock()
	conversationID := s.selectedID
	s.mu.Unlock()
	if conversationID == 0 {
		return ErrNoSelection
	}

	_, err := s.backend.SendMessage(ctx, s.userID, services.SendMessageInput{
		ConversationID: conversationID,
		Content:        content,
		Type:           messageType,
	})
	if err != nil {
		s.sink.SessionError("send", err)
		return err
	}
	return nil
}

// SetPinned toggles the pin on the selected conversation and re-sorts the
// directory pinned-first, keeping the rest of the order intact.
func (s *Session) SetPinned(ctx context.Context, pinned bool) error {
	s.mu.Lock()
	conversationID := s.selectedID
	s.mu.Unlock()
	if conversationID == 0 {
		return ErrNoSelection
	}

	if err := s.backend.SetPinned(ctx, s.userID, conversationID, pinned); err != nil {
		s.sink.SessionError("pin", err)
		return err
	}

	s.mu.Lock()
	if i := s.indexOf(conversationID); i >= 0 {
		s.contacts[i].IsPinned = pinned
	}
	SortPinnedFirst(s.contacts)
	snapshot := cloneContacts(s.contacts)
	s.mu.Unlock()

	s.sink.DirectoryUpdated(snapshot)
	return nil
}

// DeleteChat soft-deletes the selected conversation for this user and drops
// it locally: entry removed, thread cleared, selection cleared.
func (s *Session) DeleteChat(ctx context.Context) error {
	s.mu.Lock()
	conversationID := s.selectedID
	s.mu.Unlock()
	if conversationID == 0 {
		return ErrNoSelection
	}

	if err := s.backend.DeleteChat(ctx, s.userID, conversationID); err != nil {
		s.sink.SessionError("delete chat", err)
		return err
	}

	s.mu.Lock()
	s.removeContact(conversationID)
	s.selectedID = 0
	s.thread = nil
	snapshot := cloneContacts(s.contacts)
	s.mu.Unlock()

	s.sink.DirectoryUpdated(snapshot)
	s.sink.ThreadReplaced(0, nil)
	return nil
}

// ClearChat purges the selected thread for this user; the directory entry
// stays.
func (s *Session) ClearChat(ctx context.Context) error {
	s.mu.Lock()
	conversationID := s.selectedID
	s.mu.Unlock()
	if conversationID == 0 {
		return ErrNoSelection
	}

	if err := s.backend.ClearChat(ctx, s.userID, conversationID); err != nil {
		s.sink.SessionError("clear chat", err)
		return err
	}

	s.mu.Lock()
	s.thread = nil
	s.mu.Unlock()

	s.sink.ThreadReplaced(conversationID, nil)
	return nil
}

// Disconnect severs the relationship with the selected contact's student and
// removes the conversation from this user's view.
func (s *Session) Disconnect(ctx context.Context) error {
	s.mu.Lock()
	conversationID := s.selectedID
	var studentID uuid.UUID
	if i := s.indexOf(conversationID); i >= 0 {
		studentID = s.contacts[i].StudentID
	}
	s.mu.Unlock()
	if conversationID == 0 {
		return ErrNoSelection
	}
	if studentID == uuid.Nil {
		return ErrUnknownConversation
	}

	if err := s.backend.DisconnectStudent(ctx, s.userID, studentID); err != nil {
		s.sink.SessionError("disconnect", err)
		return err
	}

	s.mu.Lock()
	s.removeContact(conversationID)
	s.selectedID = 0
	s.thread = nil
	snapshot := cloneContacts(s.contacts)
	s.mu.Unlock()

	s.sink.DirectoryUpdated(snapshot)
	s.sink.ThreadReplaced(0, nil)
	return nil
}

// StartChat resolves the idempotent conversation for the target student and
// selects it. An entry already in the directory is reused with its
// disconnected flag cleared; otherwise a provisional entry is synthesized and
// prepended until the next refresh replaces it with the query's version.
func (s *Session) StartChat(ctx context.Context, studentID uuid.UUID) (int64, error) {
	conversation, profile, err := s.backend.StartChat(ctx, s.userID, studentID)
	if err != nil {
		s.sink.SessionError("start chat", err)
		return 0, err
	}

	s.mu.Lock()
	if i := s.indexOf(conversation.ID); i >= 0 {
		s.contacts[i].IsDisconnected = false
		s.contacts[i].Status = profile.Presence()
	} else {
		entry := models.ContactEntry{
			ConversationID:  conversation.ID,
			StudentID:       profile.ID,
			Name:            profile.FullName,
			Avatar:          avatarFor(profile),
			Status:          profile.Presence(),
			LastMessage:     previewText(nil, false),
			LastMessageTime: FormatMessageTime(s.now(), s.now()),
			IsPinned:        conversation.PinnedFor(s.userID),
			Branch:          profile.Branch,
			Semester:        profile.Semester,
		}
		s.contacts = append([]models.ContactEntry{entry}, s.contacts...)
	}
	s.selectedID = conversation.ID
	snapshot := cloneContacts(s.contacts)
	s.mu.Unlock()

	s.sink.DirectoryUpdated(snapshot)
	return conversation.ID, nil
}

// HandleEvent folds a realtime row-change notification into local state. A
// message for the open conversation is appended to the thread immediately;
// every event, whichever conversation it belongs to, schedules a directory
// refresh so previews, ordering and unread counts catch up.
func (s *Session) HandleEvent(event Event) {
	switch event.Type {
	case EventMessageInserted:
		if event.Message != nil {
			s.mu.Lock()
			if s.selectedID == event.ConversationID {
				tagged := models.ThreadMessage{
					Message: *event.Message,
					Sender:  SenderTag(event.Message.SenderID, s.userID),
				}
				s.thread = append(s.thread, tagged)
				s.mu.Unlock()
				s.sink.MessageAppended(event.ConversationID, tagged)
			} else {
				s.mu.Unlock()
			}
		}
		s.ScheduleRefresh()
	case EventConversationUpdated:
		s.ScheduleRefresh()
	}
}

// Contacts returns a copy of the current directory.
func (s *Session) Contacts() []models.ContactEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneContacts(s.contacts)
}

// Thread returns a copy of the open thread.
func (s *Session) Thread() []models.ThreadMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneThread(s.thread)
}

// Selected returns the open conversation id, zero when none is selected.
func (s *Session) Selected() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectedID
}

func (s *Session) indexOf(conversationID int64) int {
	for i := range s.contacts {
		if s.contacts[i].ConversationID == conversationID {
			return i
		}
	}
	return -1
}

func (s *Session) removeContact(conversationID int64) {
	if i := s.indexOf(conversationID); i >= 0 {
		s.contacts = append(s.contacts[:i], s.contacts[i+1:]...)
	}
}

func cloneContacts(contacts []models.ContactEntry) []models.ContactEntry {
	out := make([]models.ContactEntry, len(contacts))
	copy(out, contacts)
	return out
}

func cloneThread(thread []models.ThreadMessage) []models.ThreadMessage {
	out := make([]models.ThreadMessage, len(thread))
	copy(out, thread)
	return out
}
