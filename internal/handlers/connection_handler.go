package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sujal-surani/NeuroNxt/internal/models"
)

type connectionStore interface {
	ListAcceptedProfiles(ctx context.Context, userID uuid.UUID) ([]models.Profile, error)
}

// ConnectionHandler serves the "new chat" picker: the students the caller
// holds an accepted connection with.
type ConnectionHandler struct {
	connectionRepo connectionStore
}

func NewConnectionHandler(connectionRepo connectionStore) *ConnectionHandler {
	return &ConnectionHandler{connectionRepo: connectionRepo}
}

func (h *ConnectionHandler) ListConnectedStudents(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	profiles, err := h.connectionRepo.ListAcceptedProfiles(c.Context(), userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch connections"})
	}

	return c.JSON(fiber.Map{"students": profiles})
}
