package handlers

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	websocket "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/sujal-surani/NeuroNxt/internal/chat"
	"github.com/sujal-surani/NeuroNxt/internal/models"
	"github.com/sujal-surani/NeuroNxt/internal/services"
	chatws "github.com/sujal-surani/NeuroNxt/internal/websocket"
	"github.com/sujal-surani/NeuroNxt/pkg/utils"
)

type ChatHandler struct {
	service   chat.Backend
	hub       *chatws.Hub
	jwtSecret string
}

func NewChatHandler(service chat.Backend, hub *chatws.Hub, jwtSecret string) *ChatHandler {
	return &ChatHandler{
		service:   service,
		hub:       hub,
		jwtSecret: jwtSecret,
	}
}

type sendMessageRequest struct {
	Content  string `json:"content"`
	Type     string `json:"type"`
	FileName string `json:"file_name"`
	FileSize string `json:"file_size"`
}

type pinRequest struct {
	Pinned bool `json:"pinned"`
}

type startChatRequest struct {
	StudentID uuid.UUID `json:"student_id"`
}

type disconnectRequest struct {
	StudentID uuid.UUID `json:"student_id"`
}

// ListContacts returns the directory: one entry per visible conversation,
// pinned first, with previews and unread counts.
func (h *ChatHandler) ListContacts(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	details, err := h.service.ListConversationDetails(c.Context(), userID)
	if err != nil {
		return mapChatError(c, err)
	}
	unread, err := h.service.UnreadCounts(c.Context(), userID)
	if err != nil {
		return mapChatError(c, err)
	}

	contacts := chat.BuildDirectory(details, unread, userID, time.Now())
	return c.JSON(fiber.Map{"contacts": contacts})
}

func (h *ChatHandler) GetMessages(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	conversationID, err := parseConversationID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid conversation id"})
	}

	messages, err := h.service.ListMessages(c.Context(), userID, conversationID)
	if err != nil {
		return mapChatError(c, err)
	}

	return c.JSON(fiber.Map{"messages": chat.BuildThread(messages, userID)})
}

func (h *ChatHandler) SendMessage(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	conversationID, err := parseConversationID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid conversation id"})
	}

	var req sendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.Type == "" {
		req.Type = models.MessageText
	}

	input := services.SendMessageInput{
		ConversationID: conversationID,
		Content:        req.Content,
		Type:           req.Type,
	}
	if req.FileName != "" {
		input.FileName = &req.FileName
	}
	if req.FileSize != "" {
		input.FileSize = &req.FileSize
	}

	message, err := h.service.SendMessage(c.Context(), userID, input)
	if err != nil {
		return mapChatError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": message})
}

func (h *ChatHandler) MarkRead(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	conversationID, err := parseConversationID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid conversation id"})
	}

	if err := h.service.MarkConversationRead(c.Context(), userID, conversationID); err != nil {
		return mapChatError(c, err)
	}
	return c.JSON(fiber.Map{"status": "read"})
}

func (h *ChatHandler) SetPinned(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	conversationID, err := parseConversationID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid conversation id"})
	}

	var req pinRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if err := h.service.SetPinned(c.Context(), userID, conversationID, req.Pinned); err != nil {
		return mapChatError(c, err)
	}
	return c.JSON(fiber.Map{"pinned": req.Pinned})
}

// DeleteChat hides the conversation for the caller only; the other
// participant keeps their copy.
func (h *ChatHandler) DeleteChat(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	conversationID, err := parseConversationID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid conversation id"})
	}

	if err := h.service.DeleteChat(c.Context(), userID, conversationID); err != nil {
		return mapChatError(c, err)
	}
	return c.JSON(fiber.Map{"status": "deleted"})
}

// ClearChat hides the conversation's messages for the caller; the entry and
// the other participant's copy survive.
func (h *ChatHandler) ClearChat(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	conversationID, err := parseConversationID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid conversation id"})
	}

	if err := h.service.ClearChat(c.Context(), userID, conversationID); err != nil {
		return mapChatError(c, err)
	}
	return c.JSON(fiber.Map{"status": "cleared"})
}

func (h *ChatHandler) StartChat(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req startChatRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.StudentID == uuid.Nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid student id"})
	}

	conversation, profile, err := h.service.StartChat(c.Context(), userID, req.StudentID)
	if err != nil {
		return mapChatError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"conversation": conversation,
		"student":      profile,
	})
}

func (h *ChatHandler) Disconnect(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req disconnectRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.StudentID == uuid.Nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid student id"})
	}

	if err := h.service.DisconnectStudent(c.Context(), userID, req.StudentID); err != nil {
		return mapChatError(c, err)
	}
	return c.JSON(fiber.Map{"status": "disconnected"})
}

func (h *ChatHandler) WebSocketAuth(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return c.Status(fiber.StatusUpgradeRequired).JSON(fiber.Map{"error": "WebSocket upgrade required"})
	}

	claims, err := h.parseWSClaims(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid or expired token"})
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid or expired token"})
	}

	c.Locals("user_id", userID)
	c.Locals("role", claims.Role)
	return c.Next()
}

func (h *ChatHandler) HandleWebSocket(conn *websocket.Conn) {
	userID, ok := conn.Locals("user_id").(uuid.UUID)
	if !ok {
		_ = conn.Close()
		return
	}
	client := chatws.NewClient(h.hub, conn, userID, h.service)

	h.hub.Register(client)
	go client.WritePump()
	client.ReadPump(context.Background())
}

func (h *ChatHandler) parseWSClaims(c *fiber.Ctx) (*utils.Claims, error) {
	tokenString := strings.TrimSpace(c.Query("token"))
	if tokenString == "" {
		authHeader := strings.TrimSpace(c.Get("Authorization"))
		if authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) == 2 && parts[0] == "Bearer" {
				tokenString = parts[1]
			}
		}
	}

	if tokenString == "" {
		return nil, errors.New("missing token")
	}

	return utils.ValidateToken(tokenString, h.jwtSecret)
}

func parseConversationID(c *fiber.Ctx) (int64, error) {
	conversationID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || conversationID <= 0 {
		return 0, errors.New("invalid conversation id")
	}
	return conversationID, nil
}

func mapChatError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	case errors.Is(err, services.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request"})
	case errors.Is(err, services.ErrDisconnected):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Conversation is disconnected"})
	case errors.Is(err, services.ErrNotConnected):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Not connected with this student"})
	case errors.Is(err, services.ErrStudentNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Student not found"})
	case errors.Is(err, pgx.ErrNoRows):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Conversation not found"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process chat request"})
	}
}
