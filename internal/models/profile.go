package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	PresenceOnline  = "online"
	PresenceOffline = "offline"
	PresenceAway    = "away"
)

const (
	VisibilityInstitute  = "institute"
	VisibilityClassmates = "classmates"
)

// Profile is the student-facing identity row. Its id equals the owning
// user's id, mirroring how the auth service keys profiles.
type Profile struct {
	ID            uuid.UUID  `json:"id"`
	FullName      string     `json:"full_name"`
	AvatarURL     *string    `json:"avatar_url"`
	Status        string     `json:"status"`
	Branch        *string    `json:"branch"`
	Semester      *string    `json:"semester"`
	Bio           *string    `json:"bio"`
	Location      *string    `json:"location"`
	InstituteCode *string    `json:"institute_code"`
	Visibility    string     `json:"visibility"`
	LastActive    *time.Time `json:"last_active"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Presence falls back to offline when the stored status is empty or unknown.
func (p *Profile) Presence() string {
	switch p.Status {
	case PresenceOnline, PresenceAway:
		return p.Status
	default:
		return PresenceOffline
	}
}
