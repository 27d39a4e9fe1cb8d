package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	RoleStudent        = "student"
	RoleInstituteAdmin = "institute_admin"
	RoleSuperAdmin     = "super_admin"
)

type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
