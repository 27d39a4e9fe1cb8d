package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/sujal-surani/NeuroNxt/internal/models"
	"github.com/sujal-surani/NeuroNxt/internal/repository"
)

type profileStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	UpdatePartial(ctx context.Context, id uuid.UUID, req repository.UpdateProfileInput) (*models.Profile, error)
	SetStatus(ctx context.Context, id uuid.UUID, status string) error
}

type connectionCounter interface {
	CountAccepted(ctx context.Context, userID uuid.UUID) (int, error)
}

type ProfileService struct {
	profileRepo    profileStore
	connectionRepo connectionCounter
}

func NewProfileService(profileRepo profileStore, connectionRepo connectionCounter) *ProfileService {
	return &ProfileService{
		profileRepo:    profileRepo,
		connectionRepo: connectionRepo,
	}
}

// ProfileWithConnections is what the profile page and the chat's student
// popup render.
type ProfileWithConnections struct {
	Profile     *models.Profile `json:"profile"`
	Connections int             `json:"connections"`
}

func (s *ProfileService) GetProfile(ctx context.Context, id uuid.UUID) (*ProfileWithConnections, error) {
	profile, err := s.profileRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	count, err := s.connectionRepo.CountAccepted(ctx, id)
	if err != nil {
		return nil, err
	}

	return &ProfileWithConnections{Profile: profile, Connections: count}, nil
}

func (s *ProfileService) UpdateProfile(
	ctx context.Context,
	id uuid.UUID,
	req repository.UpdateProfileInput,
) (*models.Profile, error) {
	return s.profileRepo.UpdatePartial(ctx, id, req)
}

func (s *ProfileService) SetPresence(ctx context.Context, id uuid.UUID, status string) error {
	switch status {
	case models.PresenceOnline, models.PresenceOffline, models.PresenceAway:
	default:
		return ErrInvalidInput
	}
	return s.profileRepo.SetStatus(ctx, id, status)
}
