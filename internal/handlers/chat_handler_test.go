package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/sujal-surani/NeuroNxt/internal/models"
	"github.com/sujal-surani/NeuroNxt/internal/services"
	chatws "github.com/sujal-surani/NeuroNxt/internal/websocket"
)

type stubChatService struct {
	detailsResult      []models.ConversationDetail
	detailsErr         error
	unreadResult       map[int64]int
	messagesResult     []models.Message
	messagesErr        error
	sendResult         *models.Message
	sendErr            error
	startConversation  *models.Conversation
	startProfile       *models.Profile
	startErr           error
	lastActorID        uuid.UUID
	lastConversationID int64
	lastTargetID       uuid.UUID
	lastPinned         bool
	lastSendInput      services.SendMessageInput
	markedRead         bool
	deleted            bool
	cleared            bool
	disconnected       bool
}

func (s *stubChatService) ListConversationDetails(_ context.Context, userID uuid.UUID) ([]models.ConversationDetail, error) {
	s.lastActorID = userID
	return s.detailsResult, s.detailsErr
}

func (s *stubChatService) UnreadCounts(_ context.Context, userID uuid.UUID) (map[int64]int, error) {
	return s.unreadResult, nil
}

func (s *stubChatService) ListMessages(_ context.Context, actorID uuid.UUID, conversationID int64) ([]models.Message, error) {
	s.lastActorID = actorID
	s.lastConversationID = conversationID
	return s.messagesResult, s.messagesErr
}

func (s *stubChatService) MarkConversationRead(_ context.Context, actorID uuid.UUID, conversationID int64) error {
	s.lastActorID = actorID
	s.lastConversationID = conversationID
	s.markedRead = true
	return nil
}

func (s *stubChatService) SendMessage(_ context.Context, actorID uuid.UUID, input services.SendMessageInput) (*models.Message, error) {
	s.lastActorID = actorID
	s.lastSendInput = input
	return s.sendResult, s.sendErr
}

func (s *stubChatService) SetPinned(_ context.Context, actorID uuid.UUID, conversationID int64, pinned bool) error {
	s.lastActorID = actorID
	s.lastConversationID = conversationID
	s.lastPinned = pinned
	return nil
}

func (s *stubChatService) DeleteChat(_ context.Context, actorID uuid.UUID, conversationID int64) error {
	s.lastConversationID = conversationID
	s.deleted = true
	return nil
}

func (s *stubChatService) ClearChat(_ context.Context, actorID uuid.UUID, conversationID int64) error {
	s.lastConversationID = conversationID
	s.cleared = true
	return nil
}

func (s *stubChatService) DisconnectStudent(_ context.Context, actorID uuid.UUID, targetID uuid.UUID) error {
	s.lastActorID = actorID
	s.lastTargetID = targetID
	s.disconnected = true
	return nil
}

func (s *stubChatService) StartChat(_ context.Context, actorID uuid.UUID, targetID uuid.UUID) (*models.Conversation, *models.Profile, error) {
	s.lastActorID = actorID
	s.lastTargetID = targetID
	return s.startConversation, s.startProfile, s.startErr
}

func newChatTestApp(service *stubChatService, userID uuid.UUID) (*fiber.App, *ChatHandler) {
	handler := NewChatHandler(service, chatws.NewHub(), "secret")
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("role", models.RoleStudent)
		c.Locals("user_id", userID)
		return c.Next()
	})
	return app, handler
}

func TestListContactsBuildsDirectory(t *testing.T) {
	me := uuid.New()
	other := uuid.New()
	service := &stubChatService{
		detailsResult: []models.ConversationDetail{
			{
				Conversation: models.Conversation{
					ID:             21,
					Participant1ID: me,
					Participant2ID: other,
					Status:         models.ConversationActive,
					UpdatedAt:      time.Now().UTC(),
				},
				Participant1: models.Profile{ID: me, FullName: "Me Myself"},
				Participant2: models.Profile{ID: other, FullName: "Asha Patel"},
				LastMessage: &models.Message{
					ID: 5, ConversationID: 21, SenderID: other,
					Content: "See you at the lab", Type: models.MessageText,
				},
			},
		},
		unreadResult: map[int64]int{21: 3},
	}

	app, handler := newChatTestApp(service, me)
	app.Get("/api/v1/chats", handler.ListContacts)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/chats", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if service.lastActorID != me {
		t.Fatalf("unexpected actor: %s", service.lastActorID)
	}

	var body struct {
		Contacts []models.ContactEntry `json:"contacts"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(body.Contacts) != 1 {
		t.Fatalf("expected one contact, got %d", len(body.Contacts))
	}
	contact := body.Contacts[0]
	if contact.Name != "Asha Patel" || contact.UnreadCount != 3 {
		t.Fatalf("unexpected contact: %+v", contact)
	}
	if contact.LastMessage != "See you at the lab" {
		t.Fatalf("unexpected preview: %q", contact.LastMessage)
	}
}

func TestGetMessagesTagsSenders(t *testing.T) {
	me := uuid.New()
	other := uuid.New()
	service := &stubChatService{
		messagesResult: []models.Message{
			{ID: 1, ConversationID: 11, SenderID: me, Content: "Hi", Type: models.MessageText},
			{ID: 2, ConversationID: 11, SenderID: other, Content: "Hey", Type: models.MessageText},
		},
	}

	app, handler := newChatTestApp(service, me)
	app.Get("/api/v1/chats/:id/messages", handler.GetMessages)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/chats/11/messages", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if service.lastConversationID != 11 {
		t.Fatalf("expected conversation 11, got %d", service.lastConversationID)
	}

	var body struct {
		Messages []models.ThreadMessage `json:"messages"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(body.Messages) != 2 {
		t.Fatalf("expected two messages, got %d", len(body.Messages))
	}
	if body.Messages[0].Sender != models.SenderUser || body.Messages[1].Sender != models.SenderOther {
		t.Fatalf("unexpected sender tags: %q %q", body.Messages[0].Sender, body.Messages[1].Sender)
	}
}

func TestGetMessagesReturnsNotFound(t *testing.T) {
	service := &stubChatService{messagesErr: pgx.ErrNoRows}

	app, handler := newChatTestApp(service, uuid.New())
	app.Get("/api/v1/chats/:id/messages", handler.GetMessages)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/chats/99/messages", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestSendMessageForwardsInput(t *testing.T) {
	me := uuid.New()
	service := &stubChatService{
		sendResult: &models.Message{ID: 7, ConversationID: 11, SenderID: me, Content: "Hello"},
	}

	app, handler := newChatTestApp(service, me)
	app.Post("/api/v1/chats/:id/messages", handler.SendMessage)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/chats/11/messages", strings.NewReader(`{"content":"Hello"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	if service.lastSendInput.ConversationID != 11 || service.lastSendInput.Content != "Hello" {
		t.Fatalf("unexpected send input: %+v", service.lastSendInput)
	}
	if service.lastSendInput.Type != models.MessageText {
		t.Fatalf("expected default text type, got %q", service.lastSendInput.Type)
	}
}

func TestSendMessageRejectsDisconnected(t *testing.T) {
	service := &stubChatService{sendErr: services.ErrDisconnected}

	app, handler := newChatTestApp(service, uuid.New())
	app.Post("/api/v1/chats/:id/messages", handler.SendMessage)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/chats/11/messages", strings.NewReader(`{"content":"Hello"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
}

func TestSetPinnedForwardsFlag(t *testing.T) {
	service := &stubChatService{}

	app, handler := newChatTestApp(service, uuid.New())
	app.Put("/api/v1/chats/:id/pin", handler.SetPinned)

	req := httptest.NewRequest(http.MethodPut, "/api/v1/chats/21/pin", strings.NewReader(`{"pinned":true}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if service.lastConversationID != 21 || !service.lastPinned {
		t.Fatalf("unexpected pin call: conversation=%d pinned=%v", service.lastConversationID, service.lastPinned)
	}
}

func TestStartChatReturnsConversation(t *testing.T) {
	me := uuid.New()
	target := uuid.New()
	service := &stubChatService{
		startConversation: &models.Conversation{ID: 31, Participant1ID: me, Participant2ID: target},
		startProfile:      &models.Profile{ID: target, FullName: "Ravi Kumar"},
	}

	app, handler := newChatTestApp(service, me)
	app.Post("/api/v1/chats/start", handler.StartChat)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/chats/start", strings.NewReader(`{"student_id":"`+target.String()+`"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	if service.lastTargetID != target {
		t.Fatalf("expected target %s, got %s", target, service.lastTargetID)
	}
}

func TestStartChatRejectsUnconnectedStudent(t *testing.T) {
	service := &stubChatService{startErr: services.ErrNotConnected}

	app, handler := newChatTestApp(service, uuid.New())
	app.Post("/api/v1/chats/start", handler.StartChat)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/chats/start", strings.NewReader(`{"student_id":"`+uuid.NewString()+`"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
}

func TestDeleteChatForwardsConversation(t *testing.T) {
	service := &stubChatService{}

	app, handler := newChatTestApp(service, uuid.New())
	app.Delete("/api/v1/chats/:id", handler.DeleteChat)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/chats/21", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if !service.deleted || service.lastConversationID != 21 {
		t.Fatalf("expected delete of conversation 21, got %+v", service)
	}
}
