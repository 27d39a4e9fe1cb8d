package repository

import (
	"context"

	"github.com/sujal-surani/NeuroNxt/internal/models"
)

type NoticeRepository struct {
	db DBTX
}

func NewNoticeRepository(db DBTX) *NoticeRepository {
	return &NoticeRepository{db: db}
}

func (r *NoticeRepository) Create(ctx context.Context, notice *models.Notice) error {
	query := `
		INSERT INTO notices (institute_code, title, body)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`
	return r.db.QueryRow(ctx, query, notice.InstituteCode, notice.Title, notice.Body).
		Scan(&notice.ID, &notice.CreatedAt)
}

func (r *NoticeRepository) ListForInstitute(
	ctx context.Context,
	instituteCode string,
	limit int,
) ([]models.Notice, error) {
	query := `
		SELECT id, institute_code, title, body, created_at
		FROM notices
		WHERE institute_code = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, instituteCode, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notices := make([]models.Notice, 0)
	for rows.Next() {
		var notice models.Notice
		if err := rows.Scan(
			&notice.ID,
			&notice.InstituteCode,
			&notice.Title,
			&notice.Body,
			&notice.CreatedAt,
		); err != nil {
			return nil, err
		}
		notices = append(notices, notice)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return notices, nil
}
