package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sujal-surani/NeuroNxt/internal/models"
	"github.com/sujal-surani/NeuroNxt/internal/repository"
)

// EventPublisher is how mutations fan out to live sessions. The hub
// implements it; a nil publisher is valid for callers that don't need
// realtime (tests, batch tools).
type EventPublisher interface {
	PublishMessage(message *models.Message, recipients ...uuid.UUID)
	PublishConversation(conversationID int64, recipients ...uuid.UUID)
}

type studentReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Profile, error)
}

type connectionChecker interface {
	HasAccepted(ctx context.Context, userID, targetID uuid.UUID) (bool, error)
	Disconnect(ctx context.Context, userID, targetID uuid.UUID) error
}

// ChatService owns every conversation mutation. Each operation applies its
// database effect first; callers patch local state only after the call
// returns without error.
type ChatService struct {
	db               *pgxpool.Pool
	conversationRepo *repository.ConversationRepository
	messageRepo      *repository.MessageRepository
	profileRepo      studentReader
	connectionRepo   connectionChecker
	events           EventPublisher
}

func NewChatService(
	db *pgxpool.Pool,
	conversationRepo *repository.ConversationRepository,
	messageRepo *repository.MessageRepository,
	profileRepo studentReader,
	connectionRepo connectionChecker,
	events EventPublisher,
) *ChatService {
	return &ChatService{
		db:               db,
		conversationRepo: conversationRepo,
		messageRepo:      messageRepo,
		profileRepo:      profileRepo,
		connectionRepo:   connectionRepo,
		events:           events,
	}
}

// ListConversationDetails backs the directory refresh: every visible
// conversation with both profiles and the last message, updated_at
// descending.
func (s *ChatService) ListConversationDetails(
	ctx context.Context,
	userID uuid.UUID,
) ([]models.ConversationDetail, error) {
	return s.conversationRepo.ListDetailsForParticipant(ctx, userID)
}

// UnreadCounts is the separate unread aggregate the directory merges in.
func (s *ChatService) UnreadCounts(ctx context.Context, userID uuid.UUID) (map[int64]int, error) {
	return s.messageRepo.UnreadCounts(ctx, userID)
}

func (s *ChatService) ListMessages(
	ctx context.Context,
	actorID uuid.UUID,
	conversationID int64,
) ([]models.Message, error) {
	if conversationID <= 0 {
		return nil, ErrInvalidInput
	}

	if _, err := s.conversationRepo.GetByIDForParticipant(ctx, conversationID, actorID); err != nil {
		return nil, err
	}

	return s.messageRepo.ListByConversation(ctx, conversationID, actorID)
}

// MarkConversationRead flags every message addressed to the actor as read.
// Callers zero their local badge only when this succeeds; on error the stale
// badge is the truthful state.
func (s *ChatService) MarkConversationRead(
	ctx context.Context,
	actorID uuid.UUID,
	conversationID int64,
) error {
	if conversationID <= 0 {
		return ErrInvalidInput
	}

	if _, err := s.conversationRepo.GetByIDForParticipant(ctx, conversationID, actorID); err != nil {
		return err
	}

	return s.messageRepo.MarkConversationRead(ctx, conversationID, actorID)
}

type SendMessageInput struct {
	ConversationID int64
	Content        string
	Type           string
	FileName       *string
	FileSize       *string
}

// SendMessage inserts the message, unhides the conversation for everyone and
// advances last_message_id/updated_at in one transaction, then publishes the
// insert and the conversation update to both participants.
func (s *ChatService) SendMessage(
	ctx context.Context,
	actorID uuid.UUID,
	input SendMessageInput,
) (*models.Message, error) {
	if input.ConversationID <= 0 {
		return nil, ErrInvalidInput
	}

	trimmed := strings.TrimSpace(input.Content)
	if trimmed == "" {
		return nil, ErrInvalidInput
	}

	messageType := input.Type
	if messageType == "" {
		messageType = models.MessageText
	}
	switch messageType {
	case models.MessageText, models.MessageImage, models.MessageFile, models.MessageVoice:
	default:
		return nil, ErrInvalidInput
	}

	conversation, err := s.conversationRepo.GetByIDForParticipant(ctx, input.ConversationID, actorID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrForbidden
		}
		return nil, err
	}
	if conversation.Status == models.ConversationDisconnected {
		return nil, ErrDisconnected
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txMessageRepo := repository.NewMessageRepository(tx)
	txConversationRepo := repository.NewConversationRepository(tx)

	message, err := txMessageRepo.Create(ctx, repository.CreateMessageInput{
		ConversationID: input.ConversationID,
		SenderID:       actorID,
		Content:        trimmed,
		Type:           messageType,
		FileName:       input.FileName,
		FileSize:       input.FileSize,
	})
	if err != nil {
		return nil, err
	}

	if err := txConversationRepo.Undelete(ctx, input.ConversationID); err != nil {
		return nil, err
	}

	if err := txConversationRepo.SetLastMessage(ctx, input.ConversationID, message.ID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	recipients := []uuid.UUID{conversation.Participant1ID, conversation.Participant2ID}
	if s.events != nil {
		s.events.PublishMessage(message, recipients...)
		s.events.PublishConversation(conversation.ID, recipients...)
	}

	return message, nil
}

// SetPinned toggles the actor's entry in pinned_by with a locked
// read-modify-write, so the other participant's pin is never clobbered.
func (s *ChatService) SetPinned(
	ctx context.Context,
	actorID uuid.UUID,
	conversationID int64,
	pinned bool,
) error {
	if conversationID <= 0 {
		return ErrInvalidInput
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txConversationRepo := repository.NewConversationRepository(tx)

	pinnedBy, err := txConversationRepo.GetPinnedByForUpdate(ctx, conversationID, actorID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrForbidden
		}
		return err
	}

	updated := make([]uuid.UUID, 0, len(pinnedBy)+1)
	for _, id := range pinnedBy {
		if id != actorID {
			updated = append(updated, id)
		}
	}
	if pinned {
		updated = append(updated, actorID)
	}

	if err := txConversationRepo.UpdatePinnedBy(ctx, conversationID, updated); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// DeleteChat hides the conversation for the actor only.
func (s *ChatService) DeleteChat(ctx context.Context, actorID uuid.UUID, conversationID int64) error {
	if conversationID <= 0 {
		return ErrInvalidInput
	}

	if _, err := s.conversationRepo.GetByIDForParticipant(ctx, conversationID, actorID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrForbidden
		}
		return err
	}

	return s.conversationRepo.HideForUser(ctx, conversationID, actorID)
}

// ClearChat purges the thread for the actor only; the other participant's
// history is untouched.
func (s *ChatService) ClearChat(ctx context.Context, actorID uuid.UUID, conversationID int64) error {
	if conversationID <= 0 {
		return ErrInvalidInput
	}

	if _, err := s.conversationRepo.GetByIDForParticipant(ctx, conversationID, actorID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrForbidden
		}
		return err
	}

	return s.messageRepo.ClearForUser(ctx, conversationID, actorID)
}

// DisconnectStudent severs the relationship both ways and marks the shared
// conversation disconnected-by-actor in one transaction. The actor stops
// seeing the thread; the other participant keeps it, flagged.
func (s *ChatService) DisconnectStudent(
	ctx context.Context,
	actorID uuid.UUID,
	targetID uuid.UUID,
) error {
	if targetID == uuid.Nil || targetID == actorID {
		return ErrInvalidInput
	}

	conversation, err := s.conversationRepo.GetBetween(ctx, actorID, targetID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txConversationRepo := repository.NewConversationRepository(tx)
	txConnectionRepo := repository.NewConnectionRepository(tx)

	if err := txConnectionRepo.Disconnect(ctx, actorID, targetID); err != nil {
		return err
	}
	if err := txConversationRepo.Disconnect(ctx, actorID, targetID); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	if conversation != nil && s.events != nil {
		s.events.PublishConversation(conversation.ID, actorID, targetID)
	}

	return nil
}

// StartChat is the idempotent get-or-create lookup: calling it twice for the
// same target yields the same conversation. Requires an accepted connection.
func (s *ChatService) StartChat(
	ctx context.Context,
	actorID uuid.UUID,
	targetID uuid.UUID,
) (*models.Conversation, *models.Profile, error) {
	if targetID == uuid.Nil || targetID == actorID {
		return nil, nil, ErrInvalidInput
	}

	target, err := s.profileRepo.GetByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, ErrStudentNotFound
		}
		return nil, nil, err
	}

	connected, err := s.connectionRepo.HasAccepted(ctx, actorID, targetID)
	if err != nil {
		return nil, nil, err
	}
	if !connected {
		return nil, nil, ErrNotConnected
	}

	conversation, err := s.conversationRepo.GetOrCreate(ctx, actorID, targetID)
	if err != nil {
		return nil, nil, err
	}

	return conversation, target, nil
}
