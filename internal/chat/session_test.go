package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sujal-surani/NeuroNxt/internal/models"
	"github.com/sujal-surani/NeuroNxt/internal/services"
)

type fakeBackend struct {
	details       []models.ConversationDetail
	detailsErr    error
	onListDetails func()
	unread        map[int64]int
	messages      map[int64][]models.Message
	markReadErr   error
	sendErr       error

	startConversation *models.Conversation
	startProfile      *models.Profile
	startErr          error

	markedRead   []int64
	sent         []services.SendMessageInput
	pinned       map[int64]bool
	deleted      []int64
	cleared      []int64
	disconnected []uuid.UUID
}

func (f *fakeBackend) ListConversationDetails(_ context.Context, _ uuid.UUID) ([]models.ConversationDetail, error) {
	if f.onListDetails != nil {
		f.onListDetails()
	}
	return f.details, f.detailsErr
}

func (f *fakeBackend) UnreadCounts(_ context.Context, _ uuid.UUID) (map[int64]int, error) {
	return f.unread, nil
}

func (f *fakeBackend) ListMessages(_ context.Context, _ uuid.UUID, conversationID int64) ([]models.Message, error) {
	return f.messages[conversationID], nil
}

func (f *fakeBackend) MarkConversationRead(_ context.Context, _ uuid.UUID, conversationID int64) error {
	if f.markReadErr != nil {
		return f.markReadErr
	}
	f.markedRead = append(f.markedRead, conversationID)
	return nil
}

func (f *fakeBackend) SendMessage(_ context.Context, actorID uuid.UUID, input services.SendMessageInput) (*models.Message, error) {
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.sent = append(f.sent, input)
	return &models.Message{
		ID:             int64(len(f.sent)),
		ConversationID: input.ConversationID,
		SenderID:       actorID,
		Content:        input.Content,
		Type:           input.Type,
		CreatedAt:      time.Now().UTC(),
	}, nil
}

func (f *fakeBackend) SetPinned(_ context.Context, _ uuid.UUID, conversationID int64, pinned bool) error {
	if f.pinned == nil {
		f.pinned = make(map[int64]bool)
	}
	f.pinned[conversationID] = pinned
	return nil
}

func (f *fakeBackend) DeleteChat(_ context.Context, _ uuid.UUID, conversationID int64) error {
	f.deleted = append(f.deleted, conversationID)
	return nil
}

func (f *fakeBackend) ClearChat(_ context.Context, _ uuid.UUID, conversationID int64) error {
	f.cleared = append(f.cleared, conversationID)
	return nil
}

func (f *fakeBackend) DisconnectStudent(_ context.Context, _ uuid.UUID, targetID uuid.UUID) error {
	f.disconnected = append(f.disconnected, targetID)
	return nil
}

func (f *fakeBackend) StartChat(_ context.Context, _ uuid.UUID, _ uuid.UUID) (*models.Conversation, *models.Profile, error) {
	return f.startConversation, f.startProfile, f.startErr
}

type recordingSink struct {
	directories [][]models.ContactEntry
	threads     map[int64][]models.ThreadMessage
	appended    []models.ThreadMessage
	errOps      []string
}

func newRecordingSink() *recordingSink {
	return &recordingSink{threads: make(map[int64][]models.ThreadMessage)}
}

func (s *recordingSink) DirectoryUpdated(contacts []models.ContactEntry) {
	s.directories = append(s.directories, contacts)
}

func (s *recordingSink) ThreadReplaced(conversationID int64, messages []models.ThreadMessage) {
	s.threads[conversationID] = messages
}

func (s *recordingSink) MessageAppended(_ int64, message models.ThreadMessage) {
	s.appended = append(s.appended, message)
}

func (s *recordingSink) SessionError(op string, _ error) {
	s.errOps = append(s.errOps, op)
}

func sessionWithDirectory(t *testing.T, backend *fakeBackend, userID uuid.UUID) (*Session, *recordingSink) {
	t.Helper()
	sink := newRecordingSink()
	session := NewSession(backend, sink, userID)
	session.Refresh(context.Background())
	return session, sink
}

func TestRefreshReplacesDirectory(t *testing.T) {
	me := uuid.New()
	backend := &fakeBackend{
		details: []models.ConversationDetail{detailWith(1, me, uuid.New(), "Asha Patel")},
		unread:  map[int64]int{1: 2},
	}

	session, sink := sessionWithDirectory(t, backend, me)

	contacts := session.Contacts()
	if len(contacts) != 1 || contacts[0].UnreadCount != 2 {
		t.Fatalf("unexpected directory: %+v", contacts)
	}
	if len(sink.directories) != 1 {
		t.Fatalf("expected one directory push, got %d", len(sink.directories))
	}

	backend.details = nil
	session.Refresh(context.Background())
	if len(session.Contacts()) != 0 {
		t.Fatal("expected directory replaced wholesale")
	}
}

func TestRefreshKeepsPriorDirectoryOnError(t *testing.T) {
	me := uuid.New()
	backend := &fakeBackend{
		details: []models.ConversationDetail{detailWith(1, me, uuid.New(), "Asha Patel")},
	}

	session, sink := sessionWithDirectory(t, backend, me)

	backend.detailsErr = errors.New("db down")
	session.Refresh(context.Background())

	if len(session.Contacts()) != 1 {
		t.Fatal("expected prior directory retained after failed refresh")
	}
	if len(sink.errOps) != 1 || sink.errOps[0] != "refresh" {
		t.Fatalf("expected refresh error reported, got %v", sink.errOps)
	}
}

func TestOpenLoadsThreadAndMarksRead(t *testing.T) {
	me := uuid.New()
	other := uuid.New()
	backend := &fakeBackend{
		details: []models.ConversationDetail{detailWith(1, me, other, "Asha Patel")},
		unread:  map[int64]int{1: 5},
		messages: map[int64][]models.Message{
			1: {
				{ID: 1, ConversationID: 1, SenderID: other, Content: "hi"},
				{ID: 2, ConversationID: 1, SenderID: me, Content: "hey"},
			},
		},
	}

	session, _ := sessionWithDirectory(t, backend, me)

	if err := session.Open(context.Background(), 1); err != nil {
		t.Fatalf("Open: %v", err)
	}

	thread := session.Thread()
	if len(thread) != 2 {
		t.Fatalf("expected two messages, got %d", len(thread))
	}
	if thread[0].Sender != models.SenderOther || thread[1].Sender != models.SenderUser {
		t.Fatalf("unexpected sender tags: %q %q", thread[0].Sender, thread[1].Sender)
	}
	if len(backend.markedRead) != 1 || backend.markedRead[0] != 1 {
		t.Fatalf("expected mark read for conversation 1, got %v", backend.markedRead)
	}
	if session.Contacts()[0].UnreadCount != 0 {
		t.Fatal("expected unread badge zeroed after successful mark read")
	}
}

func TestOpenKeepsBadgeWhenMarkReadFails(t *testing.T) {
	me := uuid.New()
	backend := &fakeBackend{
		details:     []models.ConversationDetail{detailWith(1, me, uuid.New(), "Asha Patel")},
		unread:      map[int64]int{1: 5},
		messages:    map[int64][]models.Message{1: {}},
		markReadErr: errors.New("db down"),
	}

	session, _ := sessionWithDirectory(t, backend, me)

	if err := session.Open(context.Background(), 1); err == nil {
		t.Fatal("expected mark read error surfaced")
	}
	if session.Contacts()[0].UnreadCount != 5 {
		t.Fatal("expected badge untouched after failed mark read")
	}
}

func TestOpenRejectsUnknownConversation(t *testing.T) {
	session, _ := sessionWithDirectory(t, &fakeBackend{}, uuid.New())

	if err := session.Open(context.Background(), 99); !errors.Is(err, ErrUnknownConversation) {
		t.Fatalf("expected ErrUnknownConversation, got %v", err)
	}
}

func TestSendRequiresSelection(t *testing.T) {
	session, _ := sessionWithDirectory(t, &fakeBackend{}, uuid.New())

	if err := session.Send(context.Background(), "hi", models.MessageText); !errors.Is(err, ErrNoSelection) {
		t.Fatalf("expected ErrNoSelection, got %v", err)
	}
}

func TestSendDoesNotAppendLocally(t *testing.T) {
	me := uuid.New()
	backend := &fakeBackend{
		details:  []models.ConversationDetail{detailWith(1, me, uuid.New(), "Asha Patel")},
		messages: map[int64][]models.Message{1: {}},
	}

	session, _ := sessionWithDirectory(t, backend, me)
	if err := session.Open(context.Background(), 1); err != nil {
		t.Fatalf("Open: %v", err)
	}

	if err := session.Send(context.Background(), "hello", models.MessageText); err != nil {
		t.Fatalf("Send: %v", err)
	}

	// The echo arrives via the realtime event, not the send path.
	if len(session.Thread()) != 0 {
		t.Fatal("expected thread untouched until the insert event arrives")
	}
	if len(backend.sent) != 1 || backend.sent[0].Content != "hello" {
		t.Fatalf("unexpected sent input: %+v", backend.sent)
	}
}

func TestHandleEventAppendsToOpenThreadOnly(t *testing.T) {
	me := uuid.New()
	other := uuid.New()
	backend := &fakeBackend{
		details: []models.ConversationDetail{
			detailWith(1, me, other, "Asha Patel"),
			detailWith(2, me, uuid.New(), "Ravi Kumar"),
		},
		messages: map[int64][]models.Message{1: {}, 2: {}},
	}

	session, sink := sessionWithDirectory(t, backend, me)
	if err := session.Open(context.Background(), 1); err != nil {
		t.Fatalf("Open: %v", err)
	}

	session.HandleEvent(Event{
		Type:           EventMessageInserted,
		ConversationID: 1,
		Message:        &models.Message{ID: 10, ConversationID: 1, SenderID: other, Content: "a"},
	})
	session.HandleEvent(Event{
		Type:           EventMessageInserted,
		ConversationID: 2,
		Message:        &models.Message{ID: 11, ConversationID: 2, SenderID: other, Content: "b"},
	})

	thread := session.Thread()
	if len(thread) != 1 || thread[0].ID != 10 {
		t.Fatalf("expected only the open conversation's message appended, got %+v", thread)
	}
	if thread[0].Sender != models.SenderOther {
		t.Fatalf("unexpected sender tag: %q", thread[0].Sender)
	}
	if len(sink.appended) != 1 {
		t.Fatalf("expected one appended push, got %d", len(sink.appended))
	}
}

func TestHandleEventCoalescesRefreshes(t *testing.T) {
	session := NewSession(&fakeBackend{}, newRecordingSink(), uuid.New())

	for i := 0; i < 5; i++ {
		session.HandleEvent(Event{Type: EventConversationUpdated, ConversationID: 1})
	}

	// One queued refresh at most.
	select {
	case <-session.refreshCh:
	default:
		t.Fatal("expected a refresh queued")
	}
	select {
	case <-session.refreshCh:
		t.Fatal("expected bursts to collapse into a single queued refresh")
	default:
	}
}

func TestSetPinnedResortsDirectory(t *testing.T) {
	me := uuid.New()
	backend := &fakeBackend{
		details: []models.ConversationDetail{
			detailWith(1, me, uuid.New(), "First"),
			detailWith(2, me, uuid.New(), "Second"),
		},
		messages: map[int64][]models.Message{2: {}},
	}

	session, _ := sessionWithDirectory(t, backend, me)
	if err := session.Open(context.Background(), 2); err != nil {
		t.Fatalf("Open: %v", err)
	}

	if err := session.SetPinned(context.Background(), true); err != nil {
		t.Fatalf("SetPinned: %v", err)
	}

	contacts := session.Contacts()
	if contacts[0].ConversationID != 2 || !contacts[0].IsPinned {
		t.Fatalf("expected conversation 2 pinned first, got %+v", contacts)
	}
	if !backend.pinned[2] {
		t.Fatal("expected pin persisted")
	}
}

func TestDeleteChatRemovesEntryAndClearsThread(t *testing.T) {
	me := uuid.New()
	backend := &fakeBackend{
		details: []models.ConversationDetail{
			detailWith(1, me, uuid.New(), "First"),
			detailWith(2, me, uuid.New(), "Second"),
		},
		messages: map[int64][]models.Message{1: {{ID: 1, ConversationID: 1}}},
	}

	session, _ := sessionWithDirectory(t, backend, me)
	if err := session.Open(context.Background(), 1); err != nil {
		t.Fatalf("Open: %v", err)
	}

	if err := session.DeleteChat(context.Background()); err != nil {
		t.Fatalf("DeleteChat: %v", err)
	}

	if len(backend.deleted) != 1 || backend.deleted[0] != 1 {
		t.Fatalf("expected delete of conversation 1, got %v", backend.deleted)
	}
	contacts := session.Contacts()
	if len(contacts) != 1 || contacts[0].ConversationID != 2 {
		t.Fatalf("expected entry removed, got %+v", contacts)
	}
	if session.Selected() != 0 || len(session.Thread()) != 0 {
		t.Fatal("expected selection and thread cleared")
	}
}

func TestClearChatEmptiesThreadKeepsEntry(t *testing.T) {
	me := uuid.New()
	backend := &fakeBackend{
		details:  []models.ConversationDetail{detailWith(1, me, uuid.New(), "First")},
		messages: map[int64][]models.Message{1: {{ID: 1, ConversationID: 1}}},
	}

	session, _ := sessionWithDirectory(t, backend, me)
	if err := session.Open(context.Background(), 1); err != nil {
		t.Fatalf("Open: %v", err)
	}

	if err := session.ClearChat(context.Background()); err != nil {
		t.Fatalf("ClearChat: %v", err)
	}

	if len(session.Thread()) != 0 {
		t.Fatal("expected thread emptied")
	}
	if len(session.Contacts()) != 1 {
		t.Fatal("expected directory entry kept")
	}
	if session.Selected() != 1 {
		t.Fatal("expected selection kept")
	}
}

func TestDisconnectRemovesEntry(t *testing.T) {
	me := uuid.New()
	other := uuid.New()
	backend := &fakeBackend{
		details:  []models.ConversationDetail{detailWith(1, me, other, "Asha Patel")},
		messages: map[int64][]models.Message{1: {}},
	}

	session, _ := sessionWithDirectory(t, backend, me)
	if err := session.Open(context.Background(), 1); err != nil {
		t.Fatalf("Open: %v", err)
	}

	if err := session.Disconnect(context.Background()); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}

	if len(backend.disconnected) != 1 || backend.disconnected[0] != other {
		t.Fatalf("expected disconnect of %s, got %v", other, backend.disconnected)
	}
	if len(session.Contacts()) != 0 || session.Selected() != 0 {
		t.Fatal("expected entry and selection removed")
	}
}

func TestStartChatSynthesizesProvisionalEntry(t *testing.T) {
	me := uuid.New()
	target := uuid.New()
	backend := &fakeBackend{
		details: []models.ConversationDetail{detailWith(1, me, uuid.New(), "Existing")},
		startConversation: &models.Conversation{
			ID:             9,
			Participant1ID: me,
			Participant2ID: target,
			Status:         models.ConversationActive,
		},
		startProfile: &models.Profile{ID: target, FullName: "Ravi Kumar"},
	}

	session, _ := sessionWithDirectory(t, backend, me)

	conversationID, err := session.StartChat(context.Background(), target)
	if err != nil {
		t.Fatalf("StartChat: %v", err)
	}
	if conversationID != 9 {
		t.Fatalf("expected conversation 9, got %d", conversationID)
	}

	contacts := session.Contacts()
	if len(contacts) != 2 {
		t.Fatalf("expected provisional entry prepended, got %d entries", len(contacts))
	}
	if contacts[0].ConversationID != 9 || contacts[0].Name != "Ravi Kumar" {
		t.Fatalf("unexpected provisional entry: %+v", contacts[0])
	}
	if contacts[0].LastMessage != "Tap to start chatting" {
		t.Fatalf("unexpected provisional preview: %q", contacts[0].LastMessage)
	}
	if session.Selected() != 9 {
		t.Fatalf("expected conversation 9 selected, got %d", session.Selected())
	}
}

func TestStartChatReusesExistingEntry(t *testing.T) {
	me := uuid.New()
	other := uuid.New()
	detail := detailWith(1, me, other, "Asha Patel")
	detail.Status = models.ConversationDisconnected
	detail.DisconnectedBy = &other

	backend := &fakeBackend{
		details: []models.ConversationDetail{detail},
		startConversation: &models.Conversation{
			ID:             1,
			Participant1ID: me,
			Participant2ID: other,
			Status:         models.ConversationActive,
		},
		startProfile: &models.Profile{ID: other, FullName: "Asha Patel"},
	}

	session, _ := sessionWithDirectory(t, backend, me)

	if _, err := session.StartChat(context.Background(), other); err != nil {
		t.Fatalf("StartChat: %v", err)
	}

	contacts := session.Contacts()
	if len(contacts) != 1 {
		t.Fatalf("expected single entry, got %d", len(contacts))
	}
	if contacts[0].IsDisconnected {
		t.Fatal("expected disconnected flag cleared on restart")
	}
}

func TestStaleRefreshDoesNotOverwriteNewer(t *testing.T) {
	me := uuid.New()
	backend := &fakeBackend{
		details: []models.ConversationDetail{detailWith(1, me, uuid.New(), "Asha Patel")},
	}
	sink := newRecordingSink()
	session := NewSession(backend, sink, me)

	// Simulate a newer refresh overtaking this one mid-fetch: its result must
	// be dropped on the floor.
	backend.onListDetails = func() {
		session.seq.Add(1)
	}
	session.Refresh(context.Background())

	if len(session.Contacts()) != 0 {
		t.Fatal("expected overtaken refresh discarded")
	}
	if len(sink.directories) != 0 {
		t.Fatal("expected no directory push from a stale refresh")
	}

	// With no newer refresh in flight the result lands normally.
	backend.onListDetails = nil
	session.Refresh(context.Background())
	if len(session.Contacts()) != 1 {
		t.Fatal("expected current refresh applied")
	}
}
