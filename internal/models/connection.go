package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	ConnectionPending      = "pending"
	ConnectionAccepted     = "accepted"
	ConnectionDisconnected = "disconnected"
)

type Connection struct {
	ID          int64     `json:"id"`
	RequesterID uuid.UUID `json:"requester_id"`
	RecipientID uuid.UUID `json:"recipient_id"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
