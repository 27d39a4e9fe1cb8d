package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/sujal-surani/NeuroNxt/internal/models"
)

type ConversationRepository struct {
	db DBTX
}

func NewConversationRepository(db DBTX) *ConversationRepository {
	return &ConversationRepository{db: db}
}

const conversationColumns = `
	id, participant1_id, participant2_id, last_message_id,
	status, disconnected_by, pinned_by, hidden_for, created_at, updated_at
`

// GetOrCreate returns the single conversation between the two users, creating
// it on first contact. Repeated calls are idempotent; the caller is also
// removed from hidden_for so a previously deleted chat reappears, and a
// disconnected conversation is reactivated (callers gate this on an accepted
// connection).
func (r *ConversationRepository) GetOrCreate(
	ctx context.Context,
	userID uuid.UUID,
	targetID uuid.UUID,
) (*models.Conversation, error) {
	query := `
		INSERT INTO conversations (participant1_id, participant2_id)
		VALUES ($1, $2)
		ON CONFLICT (LEAST(participant1_id, participant2_id), GREATEST(participant1_id, participant2_id))
		DO UPDATE SET
			hidden_for = array_remove(conversations.hidden_for, $1),
			status = 'active',
			disconnected_by = NULL
		RETURNING ` + conversationColumns

	return r.scanConversation(r.db.QueryRow(ctx, query, userID, targetID))
}

// GetBetween finds the conversation shared by the two users, if any.
func (r *ConversationRepository) GetBetween(
	ctx context.Context,
	userID uuid.UUID,
	targetID uuid.UUID,
) (*models.Conversation, error) {
	query := `
		SELECT ` + conversationColumns + `
		FROM conversations
		WHERE (participant1_id = $1 AND participant2_id = $2)
		   OR (participant1_id = $2 AND participant2_id = $1)
	`
	return r.scanConversation(r.db.QueryRow(ctx, query, userID, targetID))
}

func (r *ConversationRepository) GetByIDForParticipant(
	ctx context.Context,
	conversationID int64,
	participantID uuid.UUID,
) (*models.Conversation, error) {
	query := `
		SELECT ` + conversationColumns + `
		FROM conversations
		WHERE id = $1 AND (participant1_id = $2 OR participant2_id = $2)
	`
	return r.scanConversation(r.db.QueryRow(ctx, query, conversationID, participantID))
}

// ListDetailsForParticipant returns every conversation the user takes part in
// and has not deleted, joined with both participants' directory profiles and
// the last message row. Ordered by updated_at descending; the pinned-first
// ordering is applied by the caller on top of this.
func (r *ConversationRepository) ListDetailsForParticipant(
	ctx context.Context,
	participantID uuid.UUID,
) ([]models.ConversationDetail, error) {
	query := `
		SELECT
			c.id, c.participant1_id, c.participant2_id, c.last_message_id,
			c.status, c.disconnected_by, c.pinned_by, c.hidden_for, c.created_at, c.updated_at,
			p1.full_name, p1.avatar_url, p1.status, p1.branch, p1.semester,
			p2.full_name, p2.avatar_url, p2.status, p2.branch, p2.semester,
			lm.id, lm.sender_id, lm.content, lm.type, lm.is_read, lm.created_at
		FROM conversations c
		JOIN profiles p1 ON p1.id = c.participant1_id
		JOIN profiles p2 ON p2.id = c.participant2_id
		LEFT JOIN messages lm ON lm.id = c.last_message_id
		WHERE (c.participant1_id = $1 OR c.participant2_id = $1)
		  AND NOT (c.hidden_for @> ARRAY[$1]::uuid[])
		ORDER BY c.updated_at DESC, c.id DESC
	`

	rows, err := r.db.Query(ctx, query, participantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	details := make([]models.ConversationDetail, 0)
	for rows.Next() {
		var detail models.ConversationDetail
		var messageID sql.NullInt64
		var messageSenderID uuid.NullUUID
		var messageContent, messageType sql.NullString
		var messageIsRead sql.NullBool
		var messageCreatedAt sql.NullTime

		if err := rows.Scan(
			&detail.ID,
			&detail.Participant1ID,
			&detail.Participant2ID,
			&detail.LastMessageID,
			&detail.Status,
			&detail.DisconnectedBy,
			&detail.PinnedBy,
			&detail.HiddenFor,
			&detail.CreatedAt,
			&detail.UpdatedAt,
			&detail.Participant1.FullName,
			&detail.Participant1.AvatarURL,
			&detail.Participant1.Status,
			&detail.Participant1.Branch,
			&detail.Participant1.Semester,
			&detail.Participant2.FullName,
			&detail.Participant2.AvatarURL,
			&detail.Participant2.Status,
			&detail.Participant2.Branch,
			&detail.Participant2.Semester,
			&messageID,
			&messageSenderID,
			&messageContent,
			&messageType,
			&messageIsRead,
			&messageCreatedAt,
		); err != nil {
			return nil, err
		}

		detail.Participant1.ID = detail.Participant1ID
		detail.Participant2.ID = detail.Participant2ID

		if messageID.Valid {
			detail.LastMessage = &models.Message{
				ID:             messageID.Int64,
				ConversationID: detail.ID,
				SenderID:       messageSenderID.UUID,
				Content:        messageContent.String,
				Type:           messageType.String,
				IsRead:         messageIsRead.Bool,
				CreatedAt:      messageCreatedAt.Time,
			}
		}

		details = append(details, detail)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return details, nil
}

// HideForUser is the per-user soft delete: the conversation disappears from
// the caller's directory but stays visible to the other participant.
func (r *ConversationRepository) HideForUser(
	ctx context.Context,
	conversationID int64,
	userID uuid.UUID,
) error {
	_, err := r.db.Exec(ctx, `
		UPDATE conversations
		SET hidden_for = array_append(hidden_for, $2)
		WHERE id = $1
		  AND (participant1_id = $2 OR participant2_id = $2)
		  AND NOT (hidden_for @> ARRAY[$2]::uuid[])
	`, conversationID, userID)
	return err
}

// Undelete clears hidden_for for every participant so a hidden conversation
// reappears for all of them, which happens whenever a new message lands in it.
func (r *ConversationRepository) Undelete(ctx context.Context, conversationID int64) error {
	_, err := r.db.Exec(ctx, `
		UPDATE conversations
		SET hidden_for = '{}'
		WHERE id = $1
	`, conversationID)
	return err
}

func (r *ConversationRepository) SetLastMessage(
	ctx context.Context,
	conversationID int64,
	messageID int64,
) error {
	_, err := r.db.Exec(ctx, `
		UPDATE conversations
		SET last_message_id = $2, updated_at = NOW()
		WHERE id = $1
	`, conversationID, messageID)
	return err
}

// GetPinnedByForUpdate locks the row so the service can read-modify-write the
// pinned_by array without losing a concurrent toggle by the other participant.
func (r *ConversationRepository) GetPinnedByForUpdate(
	ctx context.Context,
	conversationID int64,
	participantID uuid.UUID,
) ([]uuid.UUID, error) {
	query := `
		SELECT pinned_by
		FROM conversations
		WHERE id = $1 AND (participant1_id = $2 OR participant2_id = $2)
		FOR UPDATE
	`
	var pinnedBy []uuid.UUID
	if err := r.db.QueryRow(ctx, query, conversationID, participantID).Scan(&pinnedBy); err != nil {
		return nil, err
	}
	return pinnedBy, nil
}

func (r *ConversationRepository) UpdatePinnedBy(
	ctx context.Context,
	conversationID int64,
	pinnedBy []uuid.UUID,
) error {
	_, err := r.db.Exec(ctx, `
		UPDATE conversations
		SET pinned_by = $2
		WHERE id = $1
	`, conversationID, pinnedBy)
	return err
}

// Disconnect marks the conversation between the two users as disconnected by
// the acting user. The actor stops seeing it; the other participant keeps it,
// flagged.
func (r *ConversationRepository) Disconnect(
	ctx context.Context,
	actorID uuid.UUID,
	targetID uuid.UUID,
) error {
	_, err := r.db.Exec(ctx, `
		UPDATE conversations
		SET status = 'disconnected', disconnected_by = $1, updated_at = NOW()
		WHERE (participant1_id = $1 AND participant2_id = $2)
		   OR (participant1_id = $2 AND participant2_id = $1)
	`, actorID, targetID)
	return err
}

func (r *ConversationRepository) scanConversation(row interface{ Scan(dest ...any) error }) (*models.Conversation, error) {
	var conversation models.Conversation
	err := row.Scan(
		&conversation.ID,
		&conversation.Participant1ID,
		&conversation.Participant2ID,
		&conversation.LastMessageID,
		&conversation.Status,
		&conversation.DisconnectedBy,
		&conversation.PinnedBy,
		&conversation.HiddenFor,
		&conversation.CreatedAt,
		&conversation.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &conversation, nil
}
