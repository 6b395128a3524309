package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	StudentRole = "student"
	AdminRole   = "admin"
)

type Profile struct {
	ID                uuid.UUID `json:"id"`
	Name              string    `json:"name"`
	Email             string    `json:"email"`
	Role              string    `json:"role"`
	IsActive          bool      `json:"is_active"`
	Pending           bool      `json:"pending"`
	PhoneNumber       string    `json:"phone_number,omitempty"`
	ProfilePictureURL string    `json:"profile_picture_url,omitempty"`
	Password          string    `json:"-"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// ProfileUpdate carries the fields an admin or the profile owner may change.
// Nil fields are left untouched.
type ProfileUpdate struct {
	Name              *string
	PhoneNumber       *string
	ProfilePictureURL *string
	IsActive          *bool
}

// Actor is the authenticated caller of a service operation.
type Actor struct {
	ID   uuid.UUID
	Role string
}

func (a Actor) IsAdmin() bool { return a.Role == AdminRole }
