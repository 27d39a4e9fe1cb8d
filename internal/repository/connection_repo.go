package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/sujal-surani/NeuroNxt/internal/models"
)

type ConnectionRepository struct {
	db DBTX
}

func NewConnectionRepository(db DBTX) *ConnectionRepository {
	return &ConnectionRepository{db: db}
}

// ListAcceptedProfiles returns the profiles of everyone the user holds an
// accepted connection with, in either direction. Backs the "new chat" picker.
func (r *ConnectionRepository) ListAcceptedProfiles(
	ctx context.Context,
	userID uuid.UUID,
) ([]models.Profile, error) {
	query := `
		SELECT p.id, p.full_name, p.avatar_url, p.status, p.branch, p.semester,
			   p.bio, p.location, p.institute_code, p.visibility, p.last_active,
			   p.created_at, p.updated_at
		FROM connections c
		JOIN profiles p ON p.id = CASE
			WHEN c.requester_id = $1 THEN c.recipient_id
			ELSE c.requester_id
		END
		WHERE c.status = 'accepted'
		  AND (c.requester_id = $1 OR c.recipient_id = $1)
		ORDER BY p.full_name ASC
	`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	profiles := make([]models.Profile, 0)
	for rows.Next() {
		var profile models.Profile
		if err := rows.Scan(
			&profile.ID,
			&profile.FullName,
			&profile.AvatarURL,
			&profile.Status,
			&profile.Branch,
			&profile.Semester,
			&profile.Bio,
			&profile.Location,
			&profile.InstituteCode,
			&profile.Visibility,
			&profile.LastActive,
			&profile.CreatedAt,
			&profile.UpdatedAt,
		); err != nil {
			return nil, err
		}
		profiles = append(profiles, profile)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return profiles, nil
}

func (r *ConnectionRepository) HasAccepted(
	ctx context.Context,
	userID uuid.UUID,
	targetID uuid.UUID,
) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM connections
			WHERE status = 'accepted'
			  AND ((requester_id = $1 AND recipient_id = $2)
			    OR (requester_id = $2 AND recipient_id = $1))
		)
	`
	var exists bool
	err := r.db.QueryRow(ctx, query, userID, targetID).Scan(&exists)
	return exists, err
}

// Disconnect severs the relationship both ways: whichever direction the
// accepted row points, it is marked disconnected.
func (r *ConnectionRepository) Disconnect(
	ctx context.Context,
	userID uuid.UUID,
	targetID uuid.UUID,
) error {
	_, err := r.db.Exec(ctx, `
		UPDATE connections
		SET status = 'disconnected', updated_at = NOW()
		WHERE status = 'accepted'
		  AND ((requester_id = $1 AND recipient_id = $2)
		    OR (requester_id = $2 AND recipient_id = $1))
	`, userID, targetID)
	return err
}

// CountAccepted is used for the profile popup's connection count.
func (r *ConnectionRepository) CountAccepted(ctx context.Context, userID uuid.UUID) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM connections
		WHERE status = 'accepted'
		  AND (requester_id = $1 OR recipient_id = $1)
	`
	var count int
	err := r.db.QueryRow(ctx, query, userID).Scan(&count)
	return count, err
}
