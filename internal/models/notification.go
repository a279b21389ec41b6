package models

import (
	"time"

	"gorm.io/datatypes"
)

// Notification types written by the fan-out pipeline.
const (
	NotificationConnectionRequest  = "connection_request"
	NotificationConnectionAccepted = "connection_accepted"
	NotificationMessage            = "message"
	NotificationPostLike           = "post_like"
	NotificationPostComment        = "post_comment"
	NotificationJobApplication     = "job_application"
	NotificationMention            = "mention"
	NotificationPitchStatus        = "pitch_status"
)

// Notification is a durable per-user record written as a side effect of another
// mutation. It is the fallback for realtime events that were never delivered.
type Notification struct {
	BaseModel

	RecipientID string `gorm:"type:uuid;not null;index" json:"recipient_id"`
	Type        string `gorm:"type:varchar(64);not null" json:"type"`
	// ActorID is NULL for system notifications so the users foreign key holds.
	ActorID *string `gorm:"type:uuid" json:"actor_id,omitempty"`

	EntityType string `gorm:"type:varchar(64)" json:"entity_type,omitempty"`
	EntityID   string `gorm:"type:uuid" json:"entity_id,omitempty"`

	Message  string         `gorm:"type:text" json:"message"`
	Metadata datatypes.JSON `json:"metadata,omitempty"`

	Read   bool       `gorm:"default:false;index" json:"read"`
	ReadAt *time.Time `json:"read_at,omitempty"`

	Actor *User `gorm:"foreignKey:ActorID" json:"actor,omitempty"`
}
