// Package models defines the data models for the Minka API.
package models

import (
	"time"
)

// Role is the role persisted on a profile row.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleOrganizer Role = "organizer"
	RoleRegular   Role = "regular"
)

// Profile is the application-level user record, keyed by the identity provider's user id.
type Profile struct {
	ID             string     `json:"id" db:"id"`
	Name           string     `json:"name" db:"name"`
	Email          string     `json:"email" db:"email"`
	Role           Role       `json:"role" db:"role"`
	Phone          *string    `json:"phone,omitempty" db:"phone"`
	Address        *string    `json:"address,omitempty" db:"address"`
	IdentityNumber *string    `json:"identity_number,omitempty" db:"identity_number"`
	Birthdate      *time.Time `json:"birthdate,omitempty" db:"birthdate"`
	ProfilePicture *string    `json:"profile_picture,omitempty" db:"profile_picture"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
}

// PublicProfile is the subset of a profile that may be shown to other users.
type PublicProfile struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	ProfilePicture *string `json:"profile_picture,omitempty"`
}

// Public returns the publicly displayable projection of the profile.
func (p *Profile) Public() PublicProfile {
	return PublicProfile{
		ID:             p.ID,
		Name:           p.Name,
		ProfilePicture: p.ProfilePicture,
	}
}

// DisplayName returns the profile name, falling back to the email address.
func (p *Profile) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	return p.Email
}
