package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/sujal-surani/NeuroNxt/internal/models"
)

type ProfileRepository struct {
	db DBTX
}

func NewProfileRepository(db DBTX) *ProfileRepository {
	return &ProfileRepository{db: db}
}

const profileColumns = `
	id, full_name, avatar_url, status, branch, semester, bio, location,
	institute_code, visibility, last_active, created_at, updated_at
`

func (r *ProfileRepository) Create(
	ctx context.Context,
	userID uuid.UUID,
	fullName string,
	instituteCode *string,
) error {
	query := `
		INSERT INTO profiles (id, full_name, institute_code)
		VALUES ($1, $2, $3)
	`
	_, err := r.db.Exec(ctx, query, userID, fullName, instituteCode)
	return err
}

func (r *ProfileRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	query := `
		SELECT ` + profileColumns + `
		FROM profiles
		WHERE id = $1
	`
	return r.scanProfile(r.db.QueryRow(ctx, query, id))
}

type UpdateProfileInput struct {
	FullName   *string
	Branch     *string
	Semester   *string
	Bio        *string
	Location   *string
	Visibility *string
}

func (r *ProfileRepository) UpdatePartial(
	ctx context.Context,
	id uuid.UUID,
	req UpdateProfileInput,
) (*models.Profile, error) {
	query := `
		UPDATE profiles
		SET full_name = COALESCE($1, full_name),
			branch = COALESCE($2, branch),
			semester = COALESCE($3, semester),
			bio = COALESCE($4, bio),
			location = COALESCE($5, location),
			visibility = COALESCE($6, visibility),
			updated_at = NOW()
		WHERE id = $7
		RETURNING ` + profileColumns

	return r.scanProfile(r.db.QueryRow(ctx, query,
		req.FullName,
		req.Branch,
		req.Semester,
		req.Bio,
		req.Location,
		req.Visibility,
		id,
	))
}

func (r *ProfileRepository) SetAvatarURL(ctx context.Context, id uuid.UUID, avatarURL string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE profiles
		SET avatar_url = $2, updated_at = NOW()
		WHERE id = $1
	`, id, avatarURL)
	return err
}

func (r *ProfileRepository) SetStatus(ctx context.Context, id uuid.UUID, status string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE profiles
		SET status = $2, last_active = NOW(), updated_at = NOW()
		WHERE id = $1
	`, id, status)
	return err
}

func (r *ProfileRepository) scanProfile(row interface{ Scan(dest ...any) error }) (*models.Profile, error) {
	var profile models.Profile
	err := row.Scan(
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
	)
	if err != nil {
		return nil, err
	}
	return &profile, nil
}
