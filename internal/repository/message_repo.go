package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/sujal-surani/NeuroNxt/internal/models"
)

type MessageRepository struct {
	db DBTX
}

func NewMessageRepository(db DBTX) *MessageRepository {
	return &MessageRepository{db: db}
}

type CreateMessageInput struct {
	ConversationID int64
	SenderID       uuid.UUID
	Content        string
	Type           string
	FileName       *string
	FileSize       *string
}

func (r *MessageRepository) Create(ctx context.Context, input CreateMessageInput) (*models.Message, error) {
	query := `
		INSERT INTO messages (conversation_id, sender_id, content, type, file_name, file_size, is_read)
		VALUES ($1, $2, $3, $4, $5, $6, FALSE)
		RETURNING id, conversation_id, sender_id, content, type, file_name, file_size, is_read, created_at
	`

	var message models.Message
	err := r.db.QueryRow(ctx, query,
		input.ConversationID,
		input.SenderID,
		input.Content,
		input.Type,
		input.FileName,
		input.FileSize,
	).Scan(
		&message.ID,
		&message.ConversationID,
		&message.SenderID,
		&message.Content,
		&message.Type,
		&message.FileName,
		&message.FileSize,
		&message.IsRead,
		&message.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &message, nil
}

// ListByConversation returns the whole thread oldest-first, skipping rows the
// reader cleared. No pagination: the thread is replaced wholesale on each
// load.
func (r *MessageRepository) ListByConversation(
	ctx context.Context,
	conversationID int64,
	readerID uuid.UUID,
) ([]models.Message, error) {
	query := `
		SELECT id, conversation_id, sender_id, content, type, file_name, file_size, is_read, created_at
		FROM messages
		WHERE conversation_id = $1
		  AND NOT (deleted_for @> ARRAY[$2]::uuid[])
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.db.Query(ctx, query, conversationID, readerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := make([]models.Message, 0)
	for rows.Next() {
		var message models.Message
		if err := rows.Scan(
			&message.ID,
			&message.ConversationID,
			&message.SenderID,
			&message.Content,
			&message.Type,
			&message.FileName,
			&message.FileSize,
			&message.IsRead,
			&message.CreatedAt,
		); err != nil {
			return nil, err
		}

		messages = append(messages, message)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return messages, nil
}

// UnreadCounts aggregates unread messages addressed to the user, grouped by
// conversation. Feeds the directory badge counts.
func (r *MessageRepository) UnreadCounts(ctx context.Context, userID uuid.UUID) (map[int64]int, error) {
	query := `
		SELECT conversation_id, COUNT(*)
		FROM messages
		WHERE sender_id <> $1
		  AND is_read = FALSE
		  AND NOT (deleted_for @> ARRAY[$1]::uuid[])
		GROUP BY conversation_id
	`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[int64]int)
	for rows.Next() {
		var conversationID int64
		var count int
		if err := rows.Scan(&conversationID, &count); err != nil {
			return nil, err
		}
		counts[conversationID] = count
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return counts, nil
}

func (r *MessageRepository) MarkConversationRead(
	ctx context.Context,
	conversationID int64,
	readerID uuid.UUID,
) error {
	_, err := r.db.Exec(ctx, `
		UPDATE messages
		SET is_read = TRUE
		WHERE conversation_id = $1
		  AND sender_id <> $2
		  AND is_read = FALSE
	`, conversationID, readerID)
	return err
}

// ClearForUser hides every message in the conversation from the given user
// without touching the other participant's copy.
func (r *MessageRepository) ClearForUser(
	ctx context.Context,
	conversationID int64,
	userID uuid.UUID,
) error {
	_, err := r.db.Exec(ctx, `
		UPDATE messages
		SET deleted_for = array_append(deleted_for, $2)
		WHERE conversation_id = $1
		  AND NOT (deleted_for @> ARRAY[$2]::uuid[])
	`, conversationID, userID)
	return err
}
