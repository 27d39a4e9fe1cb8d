package handlers

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/sujal-surani/NeuroNxt/internal/models"
)

const defaultNoticeLimit = 50

type noticeStore interface {
	Create(ctx context.Context, notice *models.Notice) error
	ListForInstitute(ctx context.Context, instituteCode string, limit int) ([]models.Notice, error)
}

type noticeProfileReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Profile, error)
}

type NoticeHandler struct {
	noticeRepo  noticeStore
	profileRepo noticeProfileReader
}

func NewNoticeHandler(noticeRepo noticeStore, profileRepo noticeProfileReader) *NoticeHandler {
	return &NoticeHandler{
		noticeRepo:  noticeRepo,
		profileRepo: profileRepo,
	}
}

type createNoticeRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// ListNotices returns the caller's institute feed, newest first.
func (h *NoticeHandler) ListNotices(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	profile, err := h.profileRepo.GetByID(c.Context(), userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Profile not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch profile"})
	}
	if profile.InstituteCode == nil || *profile.InstituteCode == "" {
		return c.JSON(fiber.Map{"notices": []models.Notice{}})
	}

	notices, err := h.noticeRepo.ListForInstitute(c.Context(), *profile.InstituteCode, defaultNoticeLimit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch notices"})
	}

	return c.JSON(fiber.Map{"notices": notices})
}

// CreateNotice posts to the caller's institute feed. Institute admins only.
func (h *NoticeHandler) CreateNotice(c *fiber.Ctx) error {
	role, ok := c.Locals("role").(string)
	if !ok || role != models.RoleInstituteAdmin {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	userID, ok := currentUserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req createNoticeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	req.Title = strings.TrimSpace(req.Title)
	req.Body = strings.TrimSpace(req.Body)
	if req.Title == "" || req.Body == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Title and body are required"})
	}

	profile, err := h.profileRepo.GetByID(c.Context(), userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch profile"})
	}
	if profile.InstituteCode == nil || *profile.InstituteCode == "" {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "No institute on record"})
	}

	notice := &models.Notice{
		InstituteCode: *profile.InstituteCode,
		Title:         req.Title,
		Body:          req.Body,
	}
	if err := h.noticeRepo.Create(c.Context(), notice); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create notice"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"notice": notice})
}
