package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User describes a platform member: founder, investor, job-seeker, or mentor.
type User struct {
	ID       string `gorm:"primaryKey;type:uuid" json:"id"`
	Username string `gorm:"uniqueIndex;not null" json:"username"`
	Email    string `gorm:"uniqueIndex;not null" json:"email"`
	Password string `gorm:"not null" json:"-"`

	DisplayName string `json:"display_name"`
	Headline    string `gorm:"type:varchar(255)" json:"headline"`
	Avatar      string `json:"avatar"`

	IsActive bool `gorm:"default:true" json:"is_active"`

	LastSeenAt *time.Time `json:"last_seen_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate ensures a UUID is present before persisting.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// PublicProfile is the embeddable projection of a user shown to other members.
type PublicProfile struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Headline    string `json:"headline,omitempty"`
	Avatar      string `json:"avatar,omitempty"`
}

// Profile returns the public projection of the user.
func (u *User) Profile() PublicProfile {
	return PublicProfile{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		Headline:    u.Headline,
		Avatar:      u.Avatar,
	}
}
