package handlers

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/sujal-surani/NeuroNxt/internal/models"
	"github.com/sujal-surani/NeuroNxt/internal/repository"
	"github.com/sujal-surani/NeuroNxt/internal/services"
)

const maxAvatarSizeBytes = 5 * 1024 * 1024

type profileStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	SetAvatarURL(ctx context.Context, id uuid.UUID, avatarURL string) error
}

type ProfileHandler struct {
	profileService *services.ProfileService
	profileRepo    profileStore
	storageService services.StorageService
}

func NewProfileHandler(
	profileService *services.ProfileService,
	profileRepo profileStore,
	storageService services.StorageService,
) *ProfileHandler {
	return &ProfileHandler{
		profileService: profileService,
		profileRepo:    profileRepo,
		storageService: storageService,
	}
}

type updateProfileRequest struct {
	FullName   *string `json:"full_name"`
	Branch     *string `json:"branch"`
	Semester   *string `json:"semester"`
	Bio        *string `json:"bio"`
	Location   *string `json:"location"`
	Visibility *string `json:"visibility"`
}

type presenceRequest struct {
	Status string `json:"status"`
}

func (h *ProfileHandler) GetProfile(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	result, err := h.profileService.GetProfile(c.Context(), userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Profile not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch profile"})
	}

	return c.JSON(fiber.Map{
		"profile":     result.Profile,
		"connections": result.Connections,
	})
}

func (h *ProfileHandler) UpdateProfile(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req updateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if validationErr := validateProfileUpdateRequest(req); validationErr != "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": validationErr})
	}

	profile, err := h.profileService.UpdateProfile(c.Context(), userID, repository.UpdateProfileInput{
		FullName:   req.FullName,
		Branch:     req.Branch,
		Semester:   req.Semester,
		Bio:        req.Bio,
		Location:   req.Location,
		Visibility: req.Visibility,
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update profile"})
	}

	return c.JSON(fiber.Map{"profile": profile})
}

// SetPresence records the caller's presence; the directory reads it for the
// contact status dots.
func (h *ProfileHandler) SetPresence(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req presenceRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if err := h.profileService.SetPresence(c.Context(), userID, req.Status); err != nil {
		if errors.Is(err, services.ErrInvalidInput) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid status"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update status"})
	}

	return c.JSON(fiber.Map{"status": req.Status})
}

func (h *ProfileHandler) UploadAvatar(c *fiber.Ctx) error {
	if h.storageService == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "Storage service is not configured"})
	}

	userID, ok := currentUserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	fileHeader, err := c.FormFile("avatar")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "avatar file is required"})
	}
	if fileHeader.Size <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "avatar file is empty"})
	}
	if fileHeader.Size > maxAvatarSizeBytes {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "avatar file exceeds 5MB limit"})
	}

	file, err := fileHeader.Open()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to open avatar file"})
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".webp":
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "avatar must be a jpg, jpeg, png, or webp file"})
	}

	filename := fmt.Sprintf("%s-%d%s", userID, time.Now().UnixNano(), ext)
	avatarURL, err := h.storageService.UploadFile(c.Context(), file, filename, "students/avatars")
	if err != nil {
		if errors.Is(err, services.ErrStorageUnavailable) {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "Storage service is not configured"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to upload avatar"})
	}

	currentProfile, err := h.profileRepo.GetByID(c.Context(), userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch profile"})
	}
	if currentProfile.AvatarURL != nil && *currentProfile.AvatarURL != "" && *currentProfile.AvatarURL != avatarURL {
		_ = h.storageService.DeleteFile(c.Context(), *currentProfile.AvatarURL)
	}

	if err := h.profileRepo.SetAvatarURL(c.Context(), userID, avatarURL); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update profile"})
	}

	return c.JSON(fiber.Map{"avatar_url": avatarURL})
}
