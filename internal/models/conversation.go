package models

import "gorm.io/gorm"

// Conversation holds the two-party message thread state: a pointer to the latest
// message and one unread counter per participant. Participants are stored in
// canonical (lexicographic) order so the unique PairKey index prevents duplicate
// threads for the same pair even under concurrent first contact.
type Conversation struct {
	BaseModel

	ParticipantOneID string `gorm:"type:uuid;not null;index" json:"participant_one_id"`
	ParticipantTwoID string `gorm:"type:uuid;not null;index" json:"participant_two_id"`
	PairKey          string `gorm:"uniqueIndex;not null" json:"-"`

	LastMessageID *string `gorm:"type:uuid" json:"last_message_id,omitempty"`

	UnreadOne int `gorm:"not null;default:0" json:"-"`
	UnreadTwo int `gorm:"not null;default:0" json:"-"`

	ParticipantOne *User    `gorm:"foreignKey:ParticipantOneID" json:"-"`
	ParticipantTwo *User    `gorm:"foreignKey:ParticipantTwoID" json:"-"`
	LastMessage    *Message `gorm:"foreignKey:LastMessageID" json:"last_message,omitempty"`
}

// NewConversation builds a conversation with participants in canonical order.
func NewConversation(userA, userB string) Conversation {
	if userA > userB {
		userA, userB = userB, userA
	}
	return Conversation{
		ParticipantOneID: userA,
		ParticipantTwoID: userB,
		PairKey:          PairKey(userA, userB),
	}
}

// BeforeSave keeps the pair key consistent with the participant columns.
func (c *Conversation) BeforeSave(tx *gorm.DB) error {
	if c.ParticipantOneID != "" && c.ParticipantTwoID != "" {
		c.PairKey = PairKey(c.ParticipantOneID, c.ParticipantTwoID)
	}
	return nil
}

// HasParticipant reports whether the user belongs to the conversation.
func (c *Conversation) HasParticipant(userID string) bool {
	return c.ParticipantOneID == userID || c.ParticipantTwoID == userID
}

// OtherParticipant returns the participant that is not the supplied user.
func (c *Conversation) OtherParticipant(userID string) string {
	if c.ParticipantOneID == userID {
		return c.ParticipantTwoID
	}
	return c.ParticipantOneID
}

// UnreadFor returns the unread counter belonging to the supplied participant.
func (c *Conversation) UnreadFor(userID string) int {
	if c.ParticipantOneID == userID {
		return c.UnreadOne
	}
	return c.UnreadTwo
}

// UnreadColumn returns the column name of the participant's unread counter.
// Callers use it to build atomic `SET col = col + 1` updates.
func (c *Conversation) UnreadColumn(userID string) string {
	if c.ParticipantOneID == userID {
		return "unread_one"
	}
	return "unread_two"
}
